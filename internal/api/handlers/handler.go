// handler.go — основной обработчик API-ETL.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/F-Elotlan-M/API-ETL/internal/api/errors"
	"github.com/F-Elotlan-M/API-ETL/internal/domain/model"
	"github.com/F-Elotlan-M/API-ETL/internal/service"
)

// --- Контракты сервисного слоя ---

// AuthService — вход пользователя.
type AuthService interface {
	Login(ctx context.Context, username string) (*service.LoginResult, error)
}

// IngestionService — приём отчётов ETL.
type IngestionService interface {
	Ingest(ctx context.Context, req service.IngestRequest) (*model.IngestedReport, error)
}

// AcknowledgmentService — критические отчёты и их подтверждение.
type AcknowledgmentService interface {
	ListUnacknowledgedCritical(ctx context.Context, identity *model.Identity) ([]*model.Report, error)
	Acknowledge(ctx context.Context, identity *model.Identity, reportID int64) (*service.AckResult, error)
}

// ReportService — выборки отчётов за день.
type ReportService interface {
	ListToday(ctx context.Context, identity *model.Identity) ([]*model.Report, error)
	ListByDate(ctx context.Context, identity *model.Identity, date string) ([]*model.Report, error)
}

// UserService — учётные записи и права.
type UserService interface {
	CreateUser(ctx context.Context, req service.CreateUserRequest) (*service.CreatedUser, error)
	ListUsers(ctx context.Context) ([]*model.Account, error)
	GetPermissions(ctx context.Context, accountID int64) (*model.Account, []model.Permission, error)
	ReplacePermissions(ctx context.Context, accountID int64, etlIDs []int64) ([]model.Permission, error)
}

// ETLService — каталог ETL.
type ETLService interface {
	List(ctx context.Context) ([]*model.ETL, error)
}

// Services — зависимости APIHandler.
type Services struct {
	Auth            AuthService
	Ingestion       IngestionService
	Acknowledgments AcknowledgmentService
	Reports         ReportService
	Users           UserService
	ETLs            ETLService
}

// APIHandler — основной обработчик API-ETL.
type APIHandler struct {
	health *HealthHandler
	svc    Services
	logger *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(health *HealthHandler, svc Services, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		health: health,
		svc:    svc,
		logger: logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

const (
	msgInvalidBody = "El cuerpo de la solicitud no es un JSON válido."
	msgInternal    = "Error interno del servidor."
)

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON разбирает тело запроса; при ошибке пишет 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apierrors.ValidationError(w, msgInvalidBody)
		return false
	}
	return true
}

// writeServiceError переводит ошибку сервиса в HTTP-ответ по её категории.
// Клиент получает только сообщение UserError, внутренние причины идут в журнал.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	message := msgInternal
	var userErr *service.UserError
	if errors.As(err, &userErr) {
		message = userErr.Message
	}

	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, message)
	case errors.Is(err, service.ErrAuthentication):
		apierrors.Unauthorized(w, message)
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, message)
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, message)
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, message)
	default:
		h.logger.Error("Ошибка обработки запроса",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, message)
	}
}

// pathID разбирает положительный числовой параметр пути (style: simple).
func pathID(r *http.Request, name string) (int64, bool) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// formatTime форматирует время для ответа (RFC 3339, UTC).
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
