package repository

import (
	"context"
	"fmt"

	"github.com/F-Elotlan-M/API-ETL/internal/domain/model"
)

// PermissionRepository — доступ к таблице permissions.
type PermissionRepository interface {
	// ListETLIDs возвращает id ETL, разрешённых учётной записи.
	ListETLIDs(ctx context.Context, accountID int64) ([]int64, error)
	// HasAny проверяет, есть ли у учётной записи хотя бы одно право.
	HasAny(ctx context.Context, accountID int64) (bool, error)
	// ListByAccount возвращает права вместе с именами ETL.
	ListByAccount(ctx context.Context, accountID int64) ([]model.Permission, error)
	// Grant добавляет права; уже существующие пары пропускаются.
	Grant(ctx context.Context, accountID int64, etlIDs []int64) error
	// Replace заменяет набор прав учётной записи целиком.
	Replace(ctx context.Context, accountID int64, etlIDs []int64) error
}

type permissionRepo struct {
	db DBTX
}

// NewPermissionRepository создаёт репозиторий прав.
func NewPermissionRepository(db DBTX) PermissionRepository {
	return &permissionRepo{db: db}
}

func (r *permissionRepo) ListETLIDs(ctx context.Context, accountID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT etl_id FROM permissions WHERE account_id = $1 ORDER BY etl_id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения прав: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования права: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *permissionRepo) HasAny(ctx context.Context, accountID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM permissions WHERE account_id = $1)`, accountID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки прав: %w", err)
	}
	return exists, nil
}

func (r *permissionRepo) ListByAccount(ctx context.Context, accountID int64) ([]model.Permission, error) {
	query := `
		SELECT p.account_id, p.etl_id, e.name
		FROM permissions p
		JOIN etls e ON e.id = p.etl_id
		WHERE p.account_id = $1
		ORDER BY p.etl_id`

	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения прав с ETL: %w", err)
	}
	defer rows.Close()

	result := []model.Permission{}
	for rows.Next() {
		var p model.Permission
		if err := rows.Scan(&p.AccountID, &p.ETLID, &p.ETLName); err != nil {
			return nil, fmt.Errorf("ошибка сканирования права: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *permissionRepo) Grant(ctx context.Context, accountID int64, etlIDs []int64) error {
	if len(etlIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO permissions (account_id, etl_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT (account_id, etl_id) DO NOTHING`

	if _, err := r.db.Exec(ctx, query, accountID, etlIDs); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: учётная запись или ETL не существует", ErrNotFound)
		}
		return fmt.Errorf("ошибка назначения прав: %w", err)
	}
	return nil
}

func (r *permissionRepo) Replace(ctx context.Context, accountID int64, etlIDs []int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM permissions WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("ошибка удаления прав: %w", err)
	}
	return r.Grant(ctx, accountID, etlIDs)
}
