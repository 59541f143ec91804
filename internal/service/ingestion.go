// ingestion.go — приём отчётов ETL: заголовок и одна детализация в одной транзакции.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/F-Elotlan-M/API-ETL/internal/domain/model"
	"github.com/F-Elotlan-M/API-ETL/internal/repository"
)

// TxManager выполняет fn с репозиториями, привязанными к одной транзакции.
// Ошибка fn откатывает транзакцию целиком.
type TxManager interface {
	InTx(ctx context.Context, fn func(repos *repository.Repositories) error) error
}

// IngestRequest — входящий отчёт ETL.
type IngestRequest struct {
	ETLID      int64
	ReportedAt time.Time
	Status     string
	Detail     model.ReportDetail
}

// IngestionService принимает отчёты от самих ETL-процессов.
// Личность не требуется.
type IngestionService struct {
	tx     TxManager
	logger *slog.Logger
}

// NewIngestionService создаёт сервис приёма отчётов.
func NewIngestionService(tx TxManager, logger *slog.Logger) *IngestionService {
	return &IngestionService{
		tx:     tx,
		logger: logger.With(slog.String("component", "ingestion_service")),
	}
}

// Ingest сохраняет заголовок и детализацию отчёта.
// Валидация выполняется до открытия транзакции; любой сбой внутри
// транзакции откатывает обе записи.
func (s *IngestionService) Ingest(ctx context.Context, req IngestRequest) (*model.IngestedReport, error) {
	if err := validateIngest(req); err != nil {
		return nil, err
	}

	etlID := req.ETLID
	report := &model.Report{
		ETLID:      &etlID,
		ReportedAt: req.ReportedAt,
		Status:     strings.TrimSpace(req.Status),
		DetailKind: req.Detail.Kind(),
	}

	var detailID int64
	err := s.tx.InTx(ctx, func(repos *repository.Repositories) error {
		exists, err := repos.ETLs.Exists(ctx, req.ETLID)
		if err != nil {
			return internalError("проверка ETL", err)
		}
		if !exists {
			return etlNotFound(req.ETLID)
		}

		if err := repos.Reports.CreateHeader(ctx, report); err != nil {
			// ETL удалён между проверкой и вставкой
			if errors.Is(err, repository.ErrNotFound) {
				return etlNotFound(req.ETLID)
			}
			return internalError("создание заголовка отчёта", err)
		}

		detailID, err = repos.Reports.CreateDetail(ctx, report.ID, req.Detail)
		if err != nil {
			return internalError("создание детализации отчёта", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("Отчёт не принят",
			slog.Int64("etl_id", req.ETLID),
			slog.String("kind", string(req.Detail.Kind())),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	reportsIngestedTotal.WithLabelValues(string(report.DetailKind)).Inc()
	s.logger.Info("Отчёт принят",
		slog.Int64("report_id", report.ID),
		slog.Int64("detail_id", detailID),
		slog.Int64("etl_id", req.ETLID),
		slog.String("kind", string(report.DetailKind)),
		slog.String("status", report.Status),
	)
	return &model.IngestedReport{
		ReportID: report.ID,
		DetailID: detailID,
		Kind:     report.DetailKind,
	}, nil
}

func etlNotFound(etlID int64) error {
	return userError(ErrNotFound, "El ETL con id %d no existe.", etlID)
}

// maxFieldLength — предел VARCHAR(255) для строковых полей отчёта.
const maxFieldLength = 255

// validateIngest проверяет обязательные поля заголовка и детализации.
func validateIngest(req IngestRequest) error {
	if req.ETLID <= 0 {
		return userError(ErrValidation, `El campo "idEtl" es requerido y debe ser un número entero positivo.`)
	}
	if req.ReportedAt.IsZero() {
		return userError(ErrValidation, `El campo "fechaReporte" es requerido.`)
	}
	if err := requiredField("status", req.Status); err != nil {
		return err
	}

	switch d := req.Detail.(type) {
	case model.ProcessingDetail:
		if err := requiredField("procesamiento.nombre", d.Name); err != nil {
			return err
		}
		if d.EventTime.IsZero() {
			return userError(ErrValidation, `El campo "procesamiento.fecha" es requerido.`)
		}
		if err := optionalField("procesamiento.nombreArchivo", d.FileName); err != nil {
			return err
		}
		if err := requiredField("procesamiento.status", d.Status); err != nil {
			return err
		}
	case model.FileDetail:
		if err := requiredField("archivo.status", d.Status); err != nil {
			return err
		}
	case model.AlertDetail:
		if err := requiredField("alerta.nombre", d.Name); err != nil {
			return err
		}
		if err := optionalField("alerta.hostName", d.HostName); err != nil {
			return err
		}
		if d.StartTime.IsZero() || d.EndTime.IsZero() {
			return userError(ErrValidation, `Los campos "alerta.horaInicio" y "alerta.horaFin" son requeridos.`)
		}
		if d.EndTime.Before(d.StartTime) {
			return userError(ErrValidation, `El campo "alerta.horaFin" no puede ser anterior a "alerta.horaInicio".`)
		}
		if d.DurationMs != nil && *d.DurationMs < 0 {
			return userError(ErrValidation, `El campo "alerta.tiempoEjecucion" no puede ser negativo.`)
		}
	default:
		return userError(ErrValidation, "El detalle del reporte es requerido.")
	}
	return nil
}

// requiredField проверяет непустое поле с ограничением длины.
func requiredField(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return userError(ErrValidation, `El campo "%s" es requerido.`, field)
	}
	return fieldLength(field, value)
}

func optionalField(field string, value *string) error {
	if value == nil {
		return nil
	}
	return fieldLength(field, *value)
}

// fieldLength считает символы, а не байты: VARCHAR(n) ограничивает символы.
func fieldLength(field, value string) error {
	if utf8.RuneCountInString(value) > maxFieldLength {
		return userError(ErrValidation, `El campo "%s" no puede exceder %d caracteres.`, field, maxFieldLength)
	}
	return nil
}
