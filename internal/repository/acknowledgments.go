package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/F-Elotlan-M/API-ETL/internal/domain/model"
)

// AcknowledgmentRepository — журнал подтверждений критических отчётов.
type AcknowledgmentRepository interface {
	// Insert добавляет подтверждение. Если пара уже есть, возвращает ErrConflict.
	// Решение принимает уникальное ограничение, а не предварительная проверка.
	Insert(ctx context.Context, accountID, reportID int64, at time.Time) (*model.Acknowledgment, error)
	// Get возвращает подтверждение пары.
	Get(ctx context.Context, accountID, reportID int64) (*model.Acknowledgment, error)
}

type acknowledgmentRepo struct {
	db DBTX
}

// NewAcknowledgmentRepository создаёт репозиторий подтверждений.
func NewAcknowledgmentRepository(db DBTX) AcknowledgmentRepository {
	return &acknowledgmentRepo{db: db}
}

func (r *acknowledgmentRepo) Insert(ctx context.Context, accountID, reportID int64, at time.Time) (*model.Acknowledgment, error) {
	query := `
		INSERT INTO acknowledgments (account_id, report_id, acknowledged_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, report_id) DO NOTHING
		RETURNING account_id, report_id, acknowledged_at`

	ack := &model.Acknowledgment{}
	err := r.db.QueryRow(ctx, query, accountID, reportID, at).
		Scan(&ack.AccountID, &ack.ReportID, &ack.AcknowledgedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows), isUniqueViolation(err):
			// ON CONFLICT DO NOTHING не возвращает строк
			return nil, fmt.Errorf("%w: отчёт %d уже подтверждён", ErrConflict, reportID)
		case isForeignKeyViolation(err):
			return nil, fmt.Errorf("%w: учётная запись или отчёт не существует", ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка записи подтверждения: %w", err)
	}
	return ack, nil
}

func (r *acknowledgmentRepo) Get(ctx context.Context, accountID, reportID int64) (*model.Acknowledgment, error) {
	query := `
		SELECT account_id, report_id, acknowledged_at
		FROM acknowledgments
		WHERE account_id = $1 AND report_id = $2`

	ack := &model.Acknowledgment{}
	err := r.db.QueryRow(ctx, query, accountID, reportID).
		Scan(&ack.AccountID, &ack.ReportID, &ack.AcknowledgedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения подтверждения: %w", err)
	}
	return ack, nil
}
