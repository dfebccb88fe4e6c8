package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
)

// SessionCookie задаёт имя cookie анонимной сессии корзины.
const SessionCookie = "glowup_session"

const sessionTTL = 7 * 24 * time.Hour

var errUnauthorized = domain.Unauthorized("Unauthorized")

type identityKey struct{}

// IdentityFrom возвращает идентичность, определённую middleware.
func IdentityFrom(ctx context.Context) domain.Identity {
	identity, _ := ctx.Value(identityKey{}).(domain.Identity)
	return identity
}

func withIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// Authenticator проверяет bearer-токены HS256 и извлекает userId из claim sub.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator создаёт проверку токенов. Без секрета любой токен отклоняется.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// UserID разбирает заголовок Authorization. Пустой заголовок означает анонимный запрос.
func (a *Authenticator) UserID(header string) (string, error) {
	if header == "" {
		return "", nil
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", domain.Unauthorized("Invalid token")
	}
	if len(a.secret) == 0 {
		return "", domain.Unauthorized("Invalid token")
	}

	token, err := jwt.Parse(strings.TrimSpace(raw), func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", &domain.Error{Kind: domain.KindUnauthorized, Message: "Invalid token", Err: err}
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", domain.Unauthorized("Invalid token")
	}
	return sub, nil
}

// SignToken выпускает токен для userID; используется тестами и локальной отладкой.
func SignToken(secret, userID string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// identify определяет пользователя по токену и сессию по cookie.
// Отсутствующая или некорректная сессия заменяется новой.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.auth.UserID(r.Header.Get("Authorization"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		sessionID := ""
		if cookie, err := r.Cookie(SessionCookie); err == nil {
			if _, err := uuid.Parse(cookie.Value); err == nil {
				sessionID = cookie.Value
			}
		}
		if sessionID == "" {
			sessionID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   int(sessionTTL / time.Second),
				HttpOnly: true,
				Secure:   s.cfg.SecureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}

		identity := domain.Identity{UserID: userID, SessionID: sessionID}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
	})
}

func requireUser(identity domain.Identity) error {
	if !identity.Authenticated() {
		return errUnauthorized
	}
	return nil
}
