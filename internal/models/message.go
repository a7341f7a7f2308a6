package models

import "time"

type Message struct {
	ID           string    `json:"id"`
	SenderID     string    `json:"sender_id"`
	SenderName   string    `json:"sender_name"`
	SenderRole   string    `json:"sender_role"`
	ReceiverID   string    `json:"receiver_id"`
	ReceiverName string    `json:"receiver_name"`
	ReceiverRole string    `json:"receiver_role"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
	Read         bool      `json:"read"`
}

// Conversation is derived from the message log on every read; it is never stored.
type Conversation struct {
	UserID          string    `json:"user_id"`
	UserName        string    `json:"user_name"`
	UserRole        string    `json:"user_role"`
	LastMessage     string    `json:"last_message"`
	LastMessageTime time.Time `json:"last_message_time"`
	UnreadCount     int       `json:"unread_count"`
}

type SendMessageRequest struct {
	ReceiverID   string `json:"receiver_id" validate:"required"`
	ReceiverName string `json:"receiver_name" validate:"required"`
	ReceiverRole string `json:"receiver_role" validate:"required,oneof=student parent admin teacher"`
	Content      string `json:"content" validate:"required,max=4000"`
}
