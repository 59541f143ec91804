// users.go — обработчики /api/usuarios: учётные записи и права на ETL.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	apierrors "github.com/F-Elotlan-M/API-ETL/internal/api/errors"
	"github.com/F-Elotlan-M/API-ETL/internal/domain/model"
	"github.com/F-Elotlan-M/API-ETL/internal/service"
)

const msgInvalidETLIDs = `Todos los IDs en "etlIds" deben ser números enteros positivos.`

type createUserRequest struct {
	Username string        `json:"nombreUsuario"`
	Role     string        `json:"rol"`
	ETLIDs   []json.Number `json:"etlIds"`
}

type createUserResponse struct {
	ID       int64   `json:"idUsuario"`
	Username string  `json:"nombreUsuario"`
	Role     string  `json:"rol"`
	ETLIDs   []int64 `json:"etlIdsAsignados"`
	Message  string  `json:"mensaje"`
}

type userItem struct {
	ID        int64  `json:"idUsuario"`
	Username  string `json:"nombreUsuario"`
	Role      string `json:"rol"`
	CreatedAt string `json:"fechaCreacion"`
}

type permissionItem struct {
	ETLID   int64  `json:"idEtl"`
	ETLName string `json:"nombreEtl"`
}

type permissionsResponse struct {
	ID          int64            `json:"idUsuario"`
	Username    string           `json:"nombreUsuario,omitempty"`
	Role        string           `json:"rol,omitempty"`
	Permissions []permissionItem `json:"permisos"`
	Message     string           `json:"mensaje,omitempty"`
}

// CreateUser — POST /api/usuarios.
// Создаёт учётную запись и назначает права одной транзакцией.
// Доступ: Administrador.
func (h *APIHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	etlIDs, ok := parseETLIDs(req.ETLIDs)
	if !ok {
		apierrors.ValidationError(w, msgInvalidETLIDs)
		return
	}

	created, err := h.svc.Users.CreateUser(r.Context(), service.CreateUserRequest{
		Name:   req.Username,
		Role:   req.Role,
		ETLIDs: etlIDs,
	})
	if err != nil {
		h.writeServiceError(w, "create_user", err)
		return
	}

	writeJSON(w, http.StatusCreated, createUserResponse{
		ID:       created.Account.ID,
		Username: created.Account.Name,
		Role:     created.Account.Role,
		ETLIDs:   created.ETLIDs,
		Message:  "Usuario agregado y permisos asignados exitosamente.",
	})
}

// ListUsers — GET /api/usuarios.
// Доступ: Administrador.
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.Users.ListUsers(r.Context())
	if err != nil {
		h.writeServiceError(w, "list_users", err)
		return
	}

	items := make([]userItem, len(accounts))
	for i, a := range accounts {
		items[i] = userItem{ID: a.ID, Username: a.Name, Role: a.Role, CreatedAt: formatTime(a.CreatedAt)}
	}
	writeJSON(w, http.StatusOK, items)
}

// GetUserPermissions — GET /api/usuarios/{id}/permisos.
// Доступ: Administrador.
func (h *APIHandler) GetUserPermissions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(r, "id")
	if !ok {
		apierrors.ValidationError(w, "El ID del usuario debe ser un número entero positivo.")
		return
	}

	account, perms, err := h.svc.Users.GetPermissions(r.Context(), accountID)
	if err != nil {
		h.writeServiceError(w, "get_permissions", err)
		return
	}

	writeJSON(w, http.StatusOK, permissionsResponse{
		ID:          account.ID,
		Username:    account.Name,
		Role:        account.Role,
		Permissions: mapPermissions(perms),
	})
}

// ReplaceUserPermissions — PUT /api/usuarios/{id}/permisos.
// Заменяет набор прав целиком; пустой массив снимает все права.
// Доступ: Administrador.
func (h *APIHandler) ReplaceUserPermissions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(r, "id")
	if !ok {
		apierrors.ValidationError(w, "El ID del usuario debe ser un número entero positivo.")
		return
	}

	var req struct {
		ETLIDs []json.Number `json:"etlIds"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	etlIDs, ok := parseETLIDs(req.ETLIDs)
	if !ok {
		apierrors.ValidationError(w, msgInvalidETLIDs)
		return
	}

	perms, err := h.svc.Users.ReplacePermissions(r.Context(), accountID, etlIDs)
	if err != nil {
		h.writeServiceError(w, "replace_permissions", err)
		return
	}

	writeJSON(w, http.StatusOK, permissionsResponse{
		ID:          accountID,
		Permissions: mapPermissions(perms),
		Message:     "Permisos actualizados exitosamente.",
	})
}

// parseETLIDs переводит числа JSON в id. nil сохраняется как nil,
// чтобы сервис отличал отсутствующее поле от пустого массива.
func parseETLIDs(raw []json.Number) ([]int64, bool) {
	if raw == nil {
		return nil, true
	}
	ids := make([]int64, len(raw))
	for i, n := range raw {
		id, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			return nil, false
		}
		ids[i] = id
	}
	return ids, true
}

func mapPermissions(perms []model.Permission) []permissionItem {
	items := make([]permissionItem, len(perms))
	for i, p := range perms {
		items[i] = permissionItem{ETLID: p.ETLID, ETLName: p.ETLName}
	}
	return items
}
