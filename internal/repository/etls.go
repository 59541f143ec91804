package repository

import (
	"context"
	"fmt"

	"github.com/F-Elotlan-M/API-ETL/internal/domain/model"
)

// ETLRepository — доступ к каталогу etls.
type ETLRepository interface {
	// List возвращает каталог по возрастанию id.
	List(ctx context.Context) ([]*model.ETL, error)
	// Exists проверяет наличие ETL.
	Exists(ctx context.Context, id int64) (bool, error)
	// FindMissing возвращает id из набора, которых нет в каталоге,
	// в порядке их следования во входном наборе.
	FindMissing(ctx context.Context, ids []int64) ([]int64, error)
}

type etlRepo struct {
	db DBTX
}

// NewETLRepository создаёт репозиторий каталога ETL.
func NewETLRepository(db DBTX) ETLRepository {
	return &etlRepo{db: db}
}

func (r *etlRepo) List(ctx context.Context) ([]*model.ETL, error) {
	query := `
		SELECT id, name, COALESCE(kind, ''), COALESCE(description, ''), created_at
		FROM etls
		ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения каталога ETL: %w", err)
	}
	defer rows.Close()

	var result []*model.ETL
	for rows.Next() {
		e := &model.ETL{}
		if err := rows.Scan(&e.ID, &e.Name, &e.Kind, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования ETL: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (r *etlRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM etls WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки ETL: %w", err)
	}
	return exists, nil
}

func (r *etlRepo) FindMissing(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT req.id
		FROM unnest($1::bigint[]) WITH ORDINALITY AS req(id, pos)
		LEFT JOIN etls e ON e.id = req.id
		WHERE e.id IS NULL
		ORDER BY req.pos`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки набора ETL: %w", err)
	}
	defer rows.Close()

	var missing []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования id ETL: %w", err)
		}
		missing = append(missing, id)
	}
	return missing, rows.Err()
}
