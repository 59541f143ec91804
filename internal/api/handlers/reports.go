// reports.go — обработчики /api/reportes: приём отчётов ETL, выборки за день,
// критические отчёты и их подтверждение.
package handlers

import (
	"net/http"
	"time"

	apierrors "github.com/F-Elotlan-M/API-ETL/internal/api/errors"
	"github.com/F-Elotlan-M/API-ETL/internal/api/middleware"
	"github.com/F-Elotlan-M/API-ETL/internal/domain/model"
	"github.com/F-Elotlan-M/API-ETL/internal/service"
)

// --- Приём отчётов ---

// reportHeader — общие поля входящего отчёта.
type reportHeader struct {
	ETLID      int64  `json:"idEtl"`
	ReportedAt string `json:"fechaReporte"`
	Status     string `json:"status"`
}

type processingBody struct {
	Name      string  `json:"nombre"`
	EventTime string  `json:"fecha"`
	FileName  *string `json:"nombreArchivo"`
	Status    string  `json:"status"`
	Message   *string `json:"mensaje"`
}

type fileBody struct {
	Status  string  `json:"status"`
	Message *string `json:"mensaje"`
}

type alertBody struct {
	Name       string  `json:"nombre"`
	HostName   *string `json:"hostName"`
	StartTime  string  `json:"horaInicio"`
	EndTime    string  `json:"horaFin"`
	DurationMs *int64  `json:"tiempoEjecucion"`
}

type ingestResponse struct {
	ReportID int64 `json:"reportId"`
	DetailID int64 `json:"detailId"`
}

// IngestProcessing — POST /api/reportes/procesamiento.
// Доступ: без аутентификации (вызывается самими ETL).
func (h *APIHandler) IngestProcessing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		reportHeader
		Detail *processingBody `json:"procesamiento"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	var detail model.ReportDetail
	if req.Detail != nil {
		eventTime, ok := parseTime(w, "procesamiento.fecha", req.Detail.EventTime)
		if !ok {
			return
		}
		detail = model.ProcessingDetail{
			Name:      req.Detail.Name,
			EventTime: eventTime,
			FileName:  req.Detail.FileName,
			Status:    req.Detail.Status,
			Message:   req.Detail.Message,
		}
	}
	h.ingest(w, r, req.reportHeader, detail)
}

// IngestFile — POST /api/reportes/archivo.
// Доступ: без аутентификации.
func (h *APIHandler) IngestFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		reportHeader
		Detail *fileBody `json:"archivo"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	var detail model.ReportDetail
	if req.Detail != nil {
		detail = model.FileDetail{Status: req.Detail.Status, Message: req.Detail.Message}
	}
	h.ingest(w, r, req.reportHeader, detail)
}

// IngestAlert — POST /api/reportes/alerta.
// Доступ: без аутентификации.
func (h *APIHandler) IngestAlert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		reportHeader
		Detail *alertBody `json:"alerta"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	var detail model.ReportDetail
	if req.Detail != nil {
		start, ok := parseTime(w, "alerta.horaInicio", req.Detail.StartTime)
		if !ok {
			return
		}
		end, ok := parseTime(w, "alerta.horaFin", req.Detail.EndTime)
		if !ok {
			return
		}
		detail = model.AlertDetail{
			Name:       req.Detail.Name,
			HostName:   req.Detail.HostName,
			StartTime:  start,
			EndTime:    end,
			DurationMs: req.Detail.DurationMs,
		}
	}
	h.ingest(w, r, req.reportHeader, detail)
}

func (h *APIHandler) ingest(w http.ResponseWriter, r *http.Request, header reportHeader, detail model.ReportDetail) {
	reportedAt, ok := parseTime(w, "fechaReporte", header.ReportedAt)
	if !ok {
		return
	}

	result, err := h.svc.Ingestion.Ingest(r.Context(), service.IngestRequest{
		ETLID:      header.ETLID,
		ReportedAt: reportedAt,
		Status:     header.Status,
		Detail:     detail,
	})
	if err != nil {
		h.writeServiceError(w, "ingest", err)
		return
	}

	writeJSON(w, http.StatusCreated, ingestResponse{ReportID: result.ReportID, DetailID: result.DetailID})
}

// parseTime разбирает дату RFC 3339. Пустая строка даёт нулевое время:
// обязательность поля проверяет сервис.
func parseTime(w http.ResponseWriter, field, value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		apierrors.ValidationError(w, `El campo "`+field+`" debe ser una fecha en formato RFC 3339.`)
		return time.Time{}, false
	}
	return t, true
}

// --- Выборки ---

type etlSummary struct {
	ID   int64  `json:"idEtl"`
	Name string `json:"nombreEtl"`
	Kind string `json:"tipoEtl"`
}

type reportItem struct {
	ID         int64       `json:"idReporte"`
	ReportedAt string      `json:"fechaReporte"`
	Status     string      `json:"statusReporte"`
	ETL        *etlSummary `json:"etl"`
}

func mapReports(reports []*model.Report) []reportItem {
	items := make([]reportItem, len(reports))
	for i, rep := range reports {
		items[i] = reportItem{
			ID:         rep.ID,
			ReportedAt: formatTime(rep.ReportedAt),
			Status:     rep.Status,
		}
		if rep.ETL != nil {
			items[i].ETL = &etlSummary{ID: rep.ETL.ID, Name: rep.ETL.Name, Kind: rep.ETL.Kind}
		}
	}
	return items
}

// ListReportsToday — GET /api/reportes/hoy.
// Доступ: Administrador, Consultor (в пределах своих ETL).
func (h *APIHandler) ListReportsToday(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	reports, err := h.svc.Reports.ListToday(r.Context(), identity)
	if err != nil {
		h.writeServiceError(w, "list_reports_today", err)
		return
	}
	writeJSON(w, http.StatusOK, mapReports(reports))
}

// ListReportsByDate — GET /api/reportes/por-fecha?fecha=YYYY-MM-DD.
// Доступ: Administrador, Consultor (в пределах своих ETL).
func (h *APIHandler) ListReportsByDate(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	reports, err := h.svc.Reports.ListByDate(r.Context(), identity, r.URL.Query().Get("fecha"))
	if err != nil {
		h.writeServiceError(w, "list_reports_by_date", err)
		return
	}
	writeJSON(w, http.StatusOK, mapReports(reports))
}

// ListPendingCritical — GET /api/reportes/criticos/pendientes.
// Критические отчёты, ещё не подтверждённые пользователем.
// Доступ: Administrador, Consultor (в пределах своих ETL).
func (h *APIHandler) ListPendingCritical(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	reports, err := h.svc.Acknowledgments.ListUnacknowledgedCritical(r.Context(), identity)
	if err != nil {
		h.writeServiceError(w, "list_pending_critical", err)
		return
	}
	writeJSON(w, http.StatusOK, mapReports(reports))
}

// --- Подтверждение ---

type ackResponse struct {
	Message        string `json:"mensaje"`
	AccountID      int64  `json:"idUsuario"`
	ReportID       int64  `json:"idReporte"`
	AcknowledgedAt string `json:"fechaAcuse,omitempty"`
}

// AcknowledgeReport — POST /api/reportes/{id}/acuse.
// 201 при первом подтверждении, 200 при повторном.
// Доступ: любой проверенный пользователь.
func (h *APIHandler) AcknowledgeReport(w http.ResponseWriter, r *http.Request) {
	reportID, ok := pathID(r, "id")
	if !ok {
		apierrors.ValidationError(w, "El ID del reporte debe ser un número entero positivo.")
		return
	}

	identity := middleware.IdentityFromContext(r.Context())
	result, err := h.svc.Acknowledgments.Acknowledge(r.Context(), identity, reportID)
	if err != nil {
		h.writeServiceError(w, "acknowledge", err)
		return
	}

	resp := ackResponse{
		AccountID: result.Acknowledgment.AccountID,
		ReportID:  result.Acknowledgment.ReportID,
	}
	if !result.Acknowledgment.AcknowledgedAt.IsZero() {
		resp.AcknowledgedAt = formatTime(result.Acknowledgment.AcknowledgedAt)
	}

	status := http.StatusOK
	resp.Message = "El reporte ya había sido marcado como visto."
	if result.Created {
		status = http.StatusCreated
		resp.Message = "Reporte marcado como visto."
	}
	writeJSON(w, status, resp)
}
