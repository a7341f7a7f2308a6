package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"studyspot-backend/internal/logger"
	"studyspot-backend/internal/models"
)

const (
	SourceGemini  = "gemini"
	SourceOffline = "offline"

	maxHistoryTurns = 10
)

// generator produces a reply for a question given the prior turns.
type generator interface {
	generate(ctx context.Context, subject string, history []models.ChatMessage, question string) (string, error)
}

// AssistantService answers study questions. With no API key it runs offline
// and answers from a fixed set of study tips.
type AssistantService struct {
	client   *genai.Client
	gen      generator
	log      *logger.Logger
	rateChan chan struct{} // Token bucket
}

func NewAssistantService(apiKey string, concurrentReqs int, log *logger.Logger) (*AssistantService, error) {
	if log == nil {
		log = logger.Nop()
	}
	if concurrentReqs <= 0 {
		concurrentReqs = 1
	}

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	s := &AssistantService{
		log:      log.With("component", "AssistantService"),
		rateChan: rateChan,
	}
	if apiKey == "" {
		return s, nil
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-2.0-flash")
	model.SetTemperature(0.4)
	model.SetTopP(0.95)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(
		"You are a friendly study helper for school students. Explain step by step, " +
			"keep answers short, and never just hand over homework answers.")}}

	s.client = client
	s.gen = &geminiGenerator{model: model}
	return s, nil
}

func (s *AssistantService) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// Online reports whether questions go to Gemini.
func (s *AssistantService) Online() bool { return s.gen != nil }

// acquireRate blocks until a rate slot is available
func (s *AssistantService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(30 * time.Second):
		return &RateLimitError{Message: "Assistant is busy, try again shortly"}
	}
}

func (s *AssistantService) releaseRate() {
	s.rateChan <- struct{}{}
}

// Ask answers question. Gemini failures fall back to the offline responder.
func (s *AssistantService) Ask(ctx context.Context, question, subject string, history []models.ChatMessage) (reply, source string, err error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", "", &ValidationError{Fields: map[string]string{"message": "Message is required"}}
	}

	if s.gen == nil {
		return offlineAnswer(question, subject), SourceOffline, nil
	}

	if err := s.acquireRate(ctx); err != nil {
		return "", "", err
	}
	defer s.releaseRate()

	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	text, genErr := s.gen.generate(ctx, subject, history, question)
	if genErr != nil || strings.TrimSpace(text) == "" {
		s.log.Warn("gemini request failed, answering offline", "error", genErr)
		return offlineAnswer(question, subject), SourceOffline, nil
	}
	return strings.TrimSpace(text), SourceGemini, nil
}

type geminiGenerator struct {
	model *genai.GenerativeModel
}

func (g *geminiGenerator) generate(ctx context.Context, subject string, history []models.ChatMessage, question string) (string, error) {
	cs := g.model.StartChat()
	for _, turn := range history {
		role := "user"
		if turn.Role == "assistant" {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(turn.Content)}})
	}

	prompt := question
	if subject != "" {
		prompt = fmt.Sprintf("Subject: %s\n\n%s", subject, question)
	}

	resp, err := cs.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini chat failed: %w", err)
	}
	return extractText(resp), nil
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

var offlineTips = []struct {
	keywords []string
	answer   string
}{
	{[]string{"fraction", "equation", "algebra", "math", "solve"},
		"Write down what you know and what you need to find. Work one step at a time and check each step by plugging your answer back in."},
	{[]string{"essay", "write", "paragraph", "english"},
		"Start with a one-sentence main idea, then give each paragraph one supporting point with an example. Read it aloud at the end to catch mistakes."},
	{[]string{"science", "experiment", "hypothesis", "cell", "energy"},
		"Try to explain the idea in your own words, then draw a simple diagram. For experiments, name what you change, what you measure and what stays the same."},
	{[]string{"history", "date", "war", "empire"},
		"Build a short timeline of the key events and ask why each one led to the next. Causes and effects are easier to remember than bare dates."},
	{[]string{"memor", "remember", "test", "exam", "quiz"},
		"Use short review sessions spread over several days and test yourself with flashcards instead of rereading. Sleep helps too."},
	{[]string{"focus", "distract", "motivat", "procrastinat"},
		"Set a 25 minute timer, put your phone away, and take a 5 minute break when it rings. Start with the smallest task to get going."},
}

func offlineAnswer(question, subject string) string {
	q := strings.ToLower(question + " " + subject)
	for _, tip := range offlineTips {
		for _, kw := range tip.keywords {
			if strings.Contains(q, kw) {
				return tip.answer
			}
		}
	}
	return "Break the problem into smaller parts, look back at your notes or textbook for a similar example, and ask your teacher about the step where you get stuck."
}
