// auth.go — обработчики /api/auth: вход и текущий пользователь.
package handlers

import (
	"net/http"

	apierrors "github.com/F-Elotlan-M/API-ETL/internal/api/errors"
	"github.com/F-Elotlan-M/API-ETL/internal/api/middleware"
)

type loginRequest struct {
	Username string `json:"nombreUsuario"`
}

type userSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"nombre"`
	Role string `json:"rol"`
}

type loginResponse struct {
	Message string      `json:"mensaje"`
	Token   string      `json:"token"`
	User    userSummary `json:"usuario"`
}

type meResponse struct {
	userSummary
	IssuedAt  string `json:"emitido"`
	ExpiresAt string `json:"expira"`
}

// Login — POST /api/auth/login.
// Проверяет пользователя в каталоге и локальной БД, выдаёт токен.
// Доступ: без аутентификации.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.Auth.Login(r.Context(), req.Username)
	if err != nil {
		h.writeServiceError(w, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Message: "Autenticación exitosa.",
		Token:   result.Token,
		User: userSummary{
			ID:   result.Account.ID,
			Name: result.Account.Name,
			Role: result.Account.Role,
		},
	})
}

// Me — GET /api/auth/me.
// Возвращает личность из проверенного токена.
func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		apierrors.Unauthorized(w, "Acceso denegado. Token no proporcionado.")
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		userSummary: userSummary{ID: identity.AccountID, Name: identity.Name, Role: identity.Role},
		IssuedAt:    formatTime(identity.IssuedAt),
		ExpiresAt:   formatTime(identity.ExpiresAt),
	})
}
