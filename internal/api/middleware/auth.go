// auth.go — middleware проверки непрозрачного токена и ролей API-ETL.
// Токен расшифровывается и проверяется без обращения к БД,
// личность помещается в контекст запроса.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/F-Elotlan-M/API-ETL/internal/api/errors"
	"github.com/F-Elotlan-M/API-ETL/internal/domain/model"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeyIdentity — проверенная личность в контексте запроса.
const ContextKeyIdentity contextKey = "identity"

// Сообщения для клиента.
const (
	msgTokenMissing = "Acceso denegado. Token no proporcionado."
	msgTokenInvalid = "Acceso denegado. Token inválido o expirado."
	msgRoleDenied   = "Rol no autorizado para esta acción."
)

// TokenVerifier восстанавливает личность из токена.
// Реализуется security.Pipeline.
type TokenVerifier interface {
	Verify(token string) (*model.Identity, error)
}

// TokenAuth — middleware аутентификации по Bearer-токену.
type TokenAuth struct {
	verifier TokenVerifier
	logger   *slog.Logger
}

// NewTokenAuth создаёт middleware аутентификации.
func NewTokenAuth(verifier TokenVerifier, logger *slog.Logger) *TokenAuth {
	return &TokenAuth{
		verifier: verifier,
		logger:   logger.With(slog.String("component", "token_auth")),
	}
}

// Middleware возвращает HTTP middleware: извлекает Bearer token,
// проверяет его и помещает личность в контекст.
// Токен без содержимого приравнивается к недействительному.
func (a *TokenAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				apierrors.Unauthorized(w, msgTokenMissing)
				return
			}

			identity, err := a.verifier.Verify(token)
			if err != nil {
				a.logger.Debug("Токен не прошёл проверку",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, msgTokenInvalid)
				return
			}
			if identity == nil {
				a.logger.Debug("Токен без содержимого", slog.String("remote_addr", r.RemoteAddr))
				apierrors.Unauthorized(w, msgTokenInvalid)
				return
			}

			recordRequestUser(r.Context(), identity.AccountID, identity.Name)
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// bearerToken извлекает токен из заголовка "Bearer <token>".
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// WithIdentity возвращает контекст с личностью.
func WithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, identity)
}

// IdentityFromContext извлекает личность из контекста.
// Возвращает nil, если запрос не прошёл TokenAuth.
func IdentityFromContext(ctx context.Context) *model.Identity {
	identity, _ := ctx.Value(ContextKeyIdentity).(*model.Identity)
	return identity
}

// RequireRole пропускает запрос, только если роль личности входит в roles.
// Должен стоять после TokenAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if identity == nil {
				apierrors.Unauthorized(w, msgTokenMissing)
				return
			}
			for _, role := range roles {
				if identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			apierrors.Forbidden(w, msgRoleDenied)
		})
	}
}
