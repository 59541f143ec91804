package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/F-Elotlan-M/API-ETL/internal/domain/model"
	"github.com/F-Elotlan-M/API-ETL/internal/domain/rbac"
)

// ReportRepository — доступ к отчётам и их детализации.
type ReportRepository interface {
	// CreateHeader вставляет заголовок отчёта и заполняет report.ID.
	CreateHeader(ctx context.Context, report *model.Report) error
	// CreateDetail вставляет детализацию нужного вида и возвращает её id.
	CreateDetail(ctx context.Context, reportID int64, detail model.ReportDetail) (int64, error)
	// GetByID возвращает заголовок отчёта.
	GetByID(ctx context.Context, id int64) (*model.Report, error)
	// ListCriticalUnacknowledged возвращает критические отчёты, не подтверждённые
	// учётной записью, в пределах access, от новых к старым.
	ListCriticalUnacknowledged(ctx context.Context, accountID int64, access rbac.Access) ([]*model.Report, error)
	// ListBetween возвращает отчёты с reported_at в [from, to) в пределах access.
	ListBetween(ctx context.Context, from, to time.Time, access rbac.Access) ([]*model.Report, error)
}

type reportRepo struct {
	db DBTX
}

// NewReportRepository создаёт репозиторий отчётов.
func NewReportRepository(db DBTX) ReportRepository {
	return &reportRepo{db: db}
}

func (r *reportRepo) CreateHeader(ctx context.Context, report *model.Report) error {
	query := `
		INSERT INTO reports (etl_id, reported_at, status, detail_kind)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		report.ETLID, report.ReportedAt, report.Status, string(report.DetailKind),
	).Scan(&report.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: ETL отчёта не существует", ErrNotFound)
		}
		return fmt.Errorf("ошибка создания отчёта: %w", err)
	}
	return nil
}

func (r *reportRepo) CreateDetail(ctx context.Context, reportID int64, detail model.ReportDetail) (int64, error) {
	var (
		query string
		args  []any
	)

	switch d := detail.(type) {
	case model.ProcessingDetail:
		query = `
			INSERT INTO report_processing (report_id, name, event_time, file_name, status, message)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`
		args = []any{reportID, d.Name, d.EventTime, d.FileName, d.Status, d.Message}
	case model.FileDetail:
		query = `
			INSERT INTO report_files (report_id, status, message)
			VALUES ($1, $2, $3)
			RETURNING id`
		args = []any{reportID, d.Status, d.Message}
	case model.AlertDetail:
		query = `
			INSERT INTO report_alerts (report_id, name, host_name, start_time, end_time, duration_ms)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`
		args = []any{reportID, d.Name, d.HostName, d.StartTime, d.EndTime, d.DurationMs}
	default:
		return 0, fmt.Errorf("неизвестный вид детализации %T", detail)
	}

	var id int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: у отчёта %d уже есть детализация", ErrConflict, reportID)
		}
		return 0, fmt.Errorf("ошибка создания детализации %s: %w", detail.Kind(), err)
	}
	return id, nil
}

func (r *reportRepo) GetByID(ctx context.Context, id int64) (*model.Report, error) {
	query := `SELECT id, etl_id, reported_at, status, detail_kind FROM reports WHERE id = $1`

	rep := &model.Report{}
	var kind string
	err := r.db.QueryRow(ctx, query, id).Scan(&rep.ID, &rep.ETLID, &rep.ReportedAt, &rep.Status, &kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения отчёта: %w", err)
	}
	rep.DetailKind = model.DetailKind(kind)
	return rep, nil
}

func (r *reportRepo) ListCriticalUnacknowledged(ctx context.Context, accountID int64, access rbac.Access) ([]*model.Report, error) {
	if access.IsEmpty() {
		return []*model.Report{}, nil
	}

	conditions := []string{
		"r.status = $1",
		"NOT EXISTS (SELECT 1 FROM acknowledgments a WHERE a.report_id = r.id AND a.account_id = $2)",
	}
	args := []any{model.StatusCriticalFailure, accountID}

	if !access.IsUnrestricted() {
		conditions = append(conditions, "r.etl_id = ANY($3)")
		args = append(args, access.ETLIDs())
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM reports r
		LEFT JOIN etls e ON e.id = r.etl_id
		WHERE %s
		ORDER BY r.reported_at DESC, r.id DESC`, reportWithETLColumns, strings.Join(conditions, " AND "))

	return r.queryReports(ctx, query, args...)
}

func (r *reportRepo) ListBetween(ctx context.Context, from, to time.Time, access rbac.Access) ([]*model.Report, error) {
	if access.IsEmpty() {
		return []*model.Report{}, nil
	}

	conditions := []string{"r.reported_at >= $1", "r.reported_at < $2"}
	args := []any{from, to}

	if !access.IsUnrestricted() {
		conditions = append(conditions, "r.etl_id = ANY($3)")
		args = append(args, access.ETLIDs())
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM reports r
		LEFT JOIN etls e ON e.id = r.etl_id
		WHERE %s
		ORDER BY r.reported_at DESC, e.name ASC, r.id DESC`, reportWithETLColumns, strings.Join(conditions, " AND "))

	return r.queryReports(ctx, query, args...)
}

const reportWithETLColumns = `r.id, r.etl_id, r.reported_at, r.status, r.detail_kind,
	e.name, e.kind`

// queryReports выполняет выборку отчётов с краткими данными ETL.
func (r *reportRepo) queryReports(ctx context.Context, query string, args ...any) ([]*model.Report, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки отчётов: %w", err)
	}
	defer rows.Close()

	result := []*model.Report{}
	for rows.Next() {
		rep := &model.Report{}
		var (
			kind    string
			etlName *string
			etlKind *string
		)
		if err := rows.Scan(&rep.ID, &rep.ETLID, &rep.ReportedAt, &rep.Status, &kind, &etlName, &etlKind); err != nil {
			return nil, fmt.Errorf("ошибка сканирования отчёта: %w", err)
		}
		rep.DetailKind = model.DetailKind(kind)
		if rep.ETLID != nil && etlName != nil {
			rep.ETL = &model.ETL{ID: *rep.ETLID, Name: *etlName}
			if etlKind != nil {
				rep.ETL.Kind = *etlKind
			}
		}
		result = append(result, rep)
	}
	return result, rows.Err()
}
