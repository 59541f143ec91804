// Пакет errors — ответы API-ETL с ошибками.
// Тело: {"mensaje": "...", "codigo": "..."}; mensaje показывается клиенту,
// codigo — машиночитаемая категория.
package errors

import (
	"encoding/json"
	"net/http"
)

// Kind — категория ошибки, определяющая HTTP-статус и codigo.
type Kind struct {
	Status int
	Code   string
}

var (
	KindValidation   = Kind{http.StatusBadRequest, "VALIDACION"}
	KindUnauthorized = Kind{http.StatusUnauthorized, "NO_AUTENTICADO"}
	KindForbidden    = Kind{http.StatusForbidden, "SIN_PERMISO"}
	KindNotFound     = Kind{http.StatusNotFound, "NO_ENCONTRADO"}
	KindConflict     = Kind{http.StatusConflict, "CONFLICTO"}
	KindInternal     = Kind{http.StatusInternalServerError, "ERROR_INTERNO"}
)

// Body — тело ответа с ошибкой.
type Body struct {
	Message string `json:"mensaje"`
	Code    string `json:"codigo"`
}

// Write отправляет ошибку категории kind.
func Write(w http.ResponseWriter, kind Kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(kind.Status)
	_ = json.NewEncoder(w).Encode(Body{Message: message, Code: kind.Code})
}

func ValidationError(w http.ResponseWriter, message string) { Write(w, KindValidation, message) }

func Unauthorized(w http.ResponseWriter, message string) { Write(w, KindUnauthorized, message) }

func Forbidden(w http.ResponseWriter, message string) { Write(w, KindForbidden, message) }

func NotFound(w http.ResponseWriter, message string) { Write(w, KindNotFound, message) }

func Conflict(w http.ResponseWriter, message string) { Write(w, KindConflict, message) }

// InternalError — 500; message не должен раскрывать причину сбоя.
func InternalError(w http.ResponseWriter, message string) { Write(w, KindInternal, message) }
