package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"studyspot-backend/internal/logger"
	"studyspot-backend/internal/middleware"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/presence"
	"studyspot-backend/internal/store"
)

// AuthService manages local (demo-mode) accounts. Accounts of the real backend
// never pass through here.
type AuthService struct {
	mu       sync.Mutex
	store    *store.Store
	jwt      *middleware.JWTAuth
	presence *presence.Tracker
	log      *logger.Logger
	cost     int
}

func NewAuthService(st *store.Store, jwt *middleware.JWTAuth, tracker *presence.Tracker, log *logger.Logger) *AuthService {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthService{
		store:    st,
		jwt:      jwt,
		presence: tracker,
		log:      log.With("component", "AuthService"),
		cost:     12,
	}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// registrableRoles are open to self-registration. Admins are created with
// CreateAdmin from the operator CLI.
var registrableRoles = map[string]bool{
	models.RoleStudent: true,
	models.RoleParent:  true,
	models.RoleTeacher: true,
}

func (s *AuthService) accounts(ctx context.Context) []models.Account {
	return store.Get(ctx, s.store, store.KeyAccounts, []models.Account{})
}

func findByEmail(accounts []models.Account, email string) int {
	for i, a := range accounts {
		if strings.EqualFold(a.Email, email) {
			return i
		}
	}
	return -1
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthTokens, error) {
	if req.Role == "" {
		req.Role = models.RoleStudent
	}
	account, err := s.createAccount(ctx, req, registrableRoles[req.Role])
	if err != nil {
		return nil, err
	}
	return s.issueTokens(account)
}

// CreateAdmin stores an admin account without signing it in.
func (s *AuthService) CreateAdmin(ctx context.Context, fullName, email, password string) (*models.User, error) {
	account, err := s.createAccount(ctx, models.RegisterRequest{
		FullName: fullName,
		Email:    email,
		Password: password,
		Role:     models.RoleAdmin,
	}, true)
	if err != nil {
		return nil, err
	}
	user := toUser(account)
	return &user, nil
}

func (s *AuthService) createAccount(ctx context.Context, req models.RegisterRequest, roleAllowed bool) (models.Account, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)

	// Validate all fields at once
	fieldErrors := make(map[string]string)

	if req.FullName == "" {
		fieldErrors["full_name"] = "Full name is required"
	}
	if !emailRegex.MatchString(req.Email) {
		fieldErrors["email"] = "Invalid email format"
	}
	if err := validatePassword(req.Password); err != nil {
		fieldErrors["password"] = err.Error()
	}
	if !roleAllowed {
		fieldErrors["role"] = "Role must be student, parent or teacher"
	}

	if len(fieldErrors) > 0 {
		return models.Account{}, &ValidationError{Fields: fieldErrors}
	}

	// Hash password (bcrypt cost 12)
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := s.accounts(ctx)
	if findByEmail(accounts, req.Email) >= 0 {
		return models.Account{}, &ConflictError{Message: "Email already in use"}
	}

	account := models.Account{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         req.Role,
		CreatedAt:    time.Now().UTC(),
	}
	accounts = append(accounts, account)
	if !s.store.Set(ctx, store.KeyAccounts, accounts) {
		s.log.Warn("account not persisted, it will not survive a restart", "user_id", account.ID)
	}

	s.log.Info("local account registered", "user_id", account.ID, "role", account.Role)
	return account, nil
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthTokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := s.accounts(ctx)
	i := findByEmail(accounts, strings.TrimSpace(req.Email))
	if i < 0 {
		return nil, &UnauthorizedError{Message: "Invalid email or password"}
	}
	account := accounts[i]

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, &UnauthorizedError{Message: "Invalid email or password"}
	}

	now := time.Now().UTC()
	accounts[i].LastLoginAt = &now
	s.store.Set(ctx, store.KeyAccounts, accounts)

	return s.issueTokens(account)
}

// Logout drops the user from the presence registry. Local tokens are stateless
// and simply expire.
func (s *AuthService) Logout(ctx context.Context, userID string) {
	if s.presence != nil {
		s.presence.UserLoggedOut(userID)
	}
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	for _, a := range s.accounts(ctx) {
		if a.ID == userID {
			u := toUser(a)
			return &u, nil
		}
	}
	return nil, &NotFoundError{Message: "User not found"}
}

func (s *AuthService) issueTokens(account models.Account) (*models.AuthTokens, error) {
	user := toUser(account)
	accessToken, err := s.jwt.GenerateLocalToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	if s.presence != nil {
		s.presence.UserLoggedIn(presence.User{ID: user.ID, Name: user.FullName, Email: user.Email, Role: user.Role})
	}

	return &models.AuthTokens{
		AccessToken: accessToken,
		ExpiresIn:   int(s.jwt.TTL.Seconds()),
		User:        user,
	}, nil
}

func toUser(a models.Account) models.User {
	return models.User{ID: a.ID, Email: a.Email, FullName: a.FullName, Role: a.Role}
}

func validatePassword(pw string) error {
	if len(pw) < 8 {
		return fmt.Errorf("Password must be at least 8 characters")
	}
	hasNumber := false
	for _, ch := range pw {
		if unicode.IsDigit(ch) {
			hasNumber = true
			break
		}
	}
	if !hasNumber {
		return fmt.Errorf("Password must contain at least one number")
	}
	return nil
}
