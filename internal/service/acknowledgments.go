// acknowledgments.go — список неподтверждённых критических отчётов и их подтверждение.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/F-Elotlan-M/API-ETL/internal/domain/model"
	"github.com/F-Elotlan-M/API-ETL/internal/repository"
)

// AckResult — результат подтверждения. Created=false означает,
// что пара уже была подтверждена ранее.
type AckResult struct {
	Acknowledgment *model.Acknowledgment
	Created        bool
}

// AcknowledgmentService — журнал подтверждений критических отчётов.
type AcknowledgmentService struct {
	repos    *repository.Repositories
	tx       TxManager
	resolver *PermissionResolver
	now      func() time.Time
	logger   *slog.Logger
}

// NewAcknowledgmentService создаёт сервис подтверждений.
// now — источник времени подтверждения; nil означает time.Now.
func NewAcknowledgmentService(
	repos *repository.Repositories,
	tx TxManager,
	resolver *PermissionResolver,
	now func() time.Time,
	logger *slog.Logger,
) *AcknowledgmentService {
	if now == nil {
		now = time.Now
	}
	return &AcknowledgmentService{
		repos:    repos,
		tx:       tx,
		resolver: resolver,
		now:      now,
		logger:   logger.With(slog.String("component", "acknowledgment_service")),
	}
}

// ListUnacknowledgedCritical возвращает критические отчёты, ещё не
// подтверждённые личностью, в пределах её доступа, от новых к старым.
func (s *AcknowledgmentService) ListUnacknowledgedCritical(ctx context.Context, identity *model.Identity) ([]*model.Report, error) {
	access, err := s.resolver.Resolve(ctx, identity)
	if err != nil {
		return nil, err
	}

	reports, err := s.repos.Reports.ListCriticalUnacknowledged(ctx, identity.AccountID, access)
	if err != nil {
		return nil, internalError("получение критических отчётов", err)
	}
	return reports, nil
}

// Acknowledge подтверждает критический отчёт.
// Повторное подтверждение не ошибка: возвращается Created=false.
// Идемпотентность обеспечивает уникальное ограничение пары, а не
// предварительная проверка, поэтому параллельные вызовы дают одну запись.
func (s *AcknowledgmentService) Acknowledge(ctx context.Context, identity *model.Identity, reportID int64) (*AckResult, error) {
	var ack *model.Acknowledgment
	err := s.tx.InTx(ctx, func(repos *repository.Repositories) error {
		report, err := repos.Reports.GetByID(ctx, reportID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return reportNotFound(reportID)
			}
			return internalError("получение отчёта", err)
		}
		if !report.IsCritical() {
			return reportNotFound(reportID)
		}

		ack, err = repos.Acknowledgments.Insert(ctx, identity.AccountID, reportID, s.now())
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrConflict):
				return err
			case errors.Is(err, repository.ErrNotFound):
				// учётная запись удалена после выдачи токена
				return userError(ErrNotFound, "El usuario con id %d no existe.", identity.AccountID)
			}
			return internalError("сохранение подтверждения", err)
		}
		return nil
	})

	switch {
	case err == nil:
		acknowledgmentsTotal.WithLabelValues("created").Inc()
		s.logger.Info("Отчёт подтверждён",
			slog.Int64("account_id", identity.AccountID),
			slog.Int64("report_id", reportID),
		)
		return &AckResult{Acknowledgment: ack, Created: true}, nil

	case errors.Is(err, repository.ErrConflict):
		acknowledgmentsTotal.WithLabelValues("already").Inc()
		existing, getErr := s.repos.Acknowledgments.Get(ctx, identity.AccountID, reportID)
		if getErr != nil {
			s.logger.Warn("Не удалось прочитать существующее подтверждение",
				slog.Int64("account_id", identity.AccountID),
				slog.Int64("report_id", reportID),
				slog.String("error", getErr.Error()),
			)
			existing = &model.Acknowledgment{AccountID: identity.AccountID, ReportID: reportID}
		}
		s.logger.Debug("Отчёт уже подтверждён",
			slog.Int64("account_id", identity.AccountID),
			slog.Int64("report_id", reportID),
		)
		return &AckResult{Acknowledgment: existing, Created: false}, nil

	default:
		return nil, err
	}
}

func reportNotFound(reportID int64) error {
	return userError(ErrNotFound, "El reporte %d no existe o no tiene estado de fallo crítico.", reportID)
}
