package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestWriters проверяет статус, codigo и формат тела ошибки.
func TestWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter, message string)
		status int
		code   string
	}{
		{"валидация", ValidationError, http.StatusBadRequest, "VALIDACION"},
		{"не найдено", NotFound, http.StatusNotFound, "NO_ENCONTRADO"},
		{"не аутентифицирован", Unauthorized, http.StatusUnauthorized, "NO_AUTENTICADO"},
		{"нет прав", Forbidden, http.StatusForbidden, "SIN_PERMISO"},
		{"конфликт", Conflict, http.StatusConflict, "CONFLICTO"},
		{"внутренняя", InternalError, http.StatusInternalServerError, "ERROR_INTERNO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w, "Mensaje de prueba.")

			if w.Code != tt.status {
				t.Errorf("статус = %d, ожидается %d", w.Code, tt.status)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}

			var raw map[string]any
			if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
				t.Fatalf("декодирование тела: %v", err)
			}
			if len(raw) != 2 || raw["mensaje"] != "Mensaje de prueba." || raw["codigo"] != tt.code {
				t.Errorf("тело = %v", raw)
			}
		})
	}
}
