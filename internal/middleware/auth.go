package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"studyspot-backend/internal/models"
)

type contextKey string

const (
	UserIDKey  contextKey = "user_id"
	SessionKey contextKey = "session"
)

// LocalTokenPrefix marks tokens issued by this service for local accounts.
const LocalTokenPrefix = "demo_"

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Session is the authenticated caller of a request.
type Session struct {
	User  models.User
	Token string
	Local bool
}

// RemoteVerifier resolves a remote backend token to the account it belongs to.
type RemoteVerifier interface {
	Me(ctx context.Context, token string) (*models.User, error)
}

type JWTAuth struct {
	Secret []byte
	TTL    time.Duration

	// RemoteSecret checks remote tokens locally when the backend shares its
	// HS256 key. Otherwise remote tokens are resolved through Remote.
	RemoteSecret []byte
	Remote       RemoteVerifier
	// RemoteCacheTTL bounds how long a token resolved through Remote is
	// reused without asking the backend again.
	RemoteCacheTTL time.Duration

	now     func() time.Time
	cacheMu sync.Mutex
	cache   map[string]verifiedToken
}

type verifiedToken struct {
	user    models.User
	expires time.Time
}

const maxCachedTokens = 1024

type AuthOption func(*JWTAuth)

// WithRemoteVerifier admits remote tokens the backend vouches for.
func WithRemoteVerifier(v RemoteVerifier, cacheTTL time.Duration) AuthOption {
	return func(j *JWTAuth) {
		j.Remote = v
		j.RemoteCacheTTL = cacheTTL
	}
}

// WithRemoteSecret admits remote tokens signed with the backend's HS256 key.
func WithRemoteSecret(secret string) AuthOption {
	return func(j *JWTAuth) { j.RemoteSecret = []byte(secret) }
}

func NewJWTAuth(secret string, opts ...AuthOption) *JWTAuth {
	j := &JWTAuth{
		Secret:         []byte(secret),
		TTL:            24 * time.Hour,
		RemoteCacheTTL: 5 * time.Minute,
		now:            time.Now,
		cache:          make(map[string]verifiedToken),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// AcceptsRemote reports whether tokens from the remote backend can be verified.
func (j *JWTAuth) AcceptsRemote() bool {
	return len(j.RemoteSecret) > 0 || j.Remote != nil
}

// GenerateLocalToken signs a demo_-prefixed HS256 token for a local account.
func (j *JWTAuth) GenerateLocalToken(user models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"name":    user.FullName,
		"email":   user.Email,
		"role":    user.Role,
		"exp":     now.Add(j.TTL).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.Secret)
	if err != nil {
		return "", err
	}
	return LocalTokenPrefix + signed, nil
}

// ParseToken turns a bearer token into a Session. Claims are only used once
// the token's signature or the remote backend has vouched for them.
func (j *JWTAuth) ParseToken(ctx context.Context, tokenStr string) (*Session, error) {
	if strings.HasPrefix(tokenStr, LocalTokenPrefix) {
		user, err := parseSigned(strings.TrimPrefix(tokenStr, LocalTokenPrefix), j.Secret)
		if err != nil {
			return nil, err
		}
		return &Session{User: user, Token: tokenStr, Local: true}, nil
	}

	switch {
	case len(j.RemoteSecret) > 0:
		user, err := parseSigned(tokenStr, j.RemoteSecret)
		if err != nil {
			return nil, err
		}
		return &Session{User: user, Token: tokenStr}, nil
	case j.Remote != nil:
		return j.verifyRemote(ctx, tokenStr)
	}
	return nil, ErrTokenInvalid
}

func parseSigned(tokenStr string, secret []byte) (models.User, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.User{}, ErrTokenExpired
		}
		return models.User{}, ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return models.User{}, ErrTokenInvalid
	}
	user, ok := userFromClaims(claims)
	if !ok {
		return models.User{}, ErrTokenInvalid
	}
	return user, nil
}

// verifyRemote asks the backend who owns tokenStr. The identity comes from
// the backend's answer, never from the token's own claims.
func (j *JWTAuth) verifyRemote(ctx context.Context, tokenStr string) (*Session, error) {
	now := j.now()

	j.cacheMu.Lock()
	cached, ok := j.cache[tokenStr]
	j.cacheMu.Unlock()
	if ok && now.Before(cached.expires) {
		return &Session{User: cached.user, Token: tokenStr}, nil
	}

	// Malformed or expired tokens are rejected without a round trip.
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, ErrTokenInvalid
	}
	exp, _ := claims.GetExpirationTime()
	if exp != nil && !now.Before(exp.Time) {
		return nil, ErrTokenExpired
	}

	user, err := j.Remote.Me(ctx, tokenStr)
	if err != nil || user == nil || user.ID == "" {
		return nil, ErrTokenInvalid
	}
	if user.Role == "" {
		user.Role = models.RoleStudent
	}

	expires := now.Add(j.RemoteCacheTTL)
	if exp != nil && exp.Time.Before(expires) {
		expires = exp.Time
	}
	j.cacheMu.Lock()
	if len(j.cache) >= maxCachedTokens {
		for k, v := range j.cache {
			if !now.Before(v.expires) {
				delete(j.cache, k)
			}
		}
	}
	if len(j.cache) < maxCachedTokens {
		j.cache[tokenStr] = verifiedToken{user: *user, expires: expires}
	}
	j.cacheMu.Unlock()

	return &Session{User: *user, Token: tokenStr}, nil
}

func userFromClaims(claims jwt.MapClaims) (models.User, bool) {
	id, _ := claims["user_id"].(string)
	if id == "" {
		id, _ = claims["sub"].(string)
	}
	if id == "" {
		return models.User{}, false
	}
	name, _ := claims["name"].(string)
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	if role == "" {
		role = models.RoleStudent
	}
	return models.User{ID: id, FullName: name, Email: email, Role: role}, true
}

// Middleware validates the bearer token and attaches the session to the context.
func (j *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization header", r)
			return
		}

		// Must be Bearer format
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization format", r)
			return
		}

		sess, err := j.ParseToken(r.Context(), parts[1])
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired", r)
			} else {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token", r)
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

func WithSession(ctx context.Context, sess *Session) context.Context {
	ctx = context.WithValue(ctx, SessionKey, sess)
	return context.WithValue(ctx, UserIDKey, sess.User.ID)
}

// GetSession returns the request session, or nil outside authenticated routes.
func GetSession(ctx context.Context) *Session {
	sess, _ := ctx.Value(SessionKey).(*Session)
	return sess
}

func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

// RequireRole rejects sessions whose role is not listed.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := GetSession(r.Context())
			if sess == nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", r)
				return
			}
			for _, role := range roles {
				if sess.User.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Access denied", r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	})
}
