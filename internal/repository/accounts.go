package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/F-Elotlan-M/API-ETL/internal/domain/model"
)

// AccountRepository — доступ к таблице accounts.
type AccountRepository interface {
	// GetByName возвращает учётную запись по точному имени.
	GetByName(ctx context.Context, name string) (*model.Account, error)
	// GetByID возвращает учётную запись по id.
	GetByID(ctx context.Context, id int64) (*model.Account, error)
	// Create создаёт учётную запись; дубликат имени — ErrConflict.
	Create(ctx context.Context, account *model.Account) error
	// List возвращает все учётные записи по возрастанию id.
	List(ctx context.Context) ([]*model.Account, error)
}

type accountRepo struct {
	db DBTX
}

// NewAccountRepository создаёт репозиторий учётных записей.
func NewAccountRepository(db DBTX) AccountRepository {
	return &accountRepo{db: db}
}

const accountColumns = `id, name, role, created_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	a := &model.Account{}
	err := row.Scan(&a.ID, &a.Name, &a.Role, &a.CreatedAt)
	return a, err
}

func (r *accountRepo) GetByName(ctx context.Context, name string) (*model.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE name = $1`, accountColumns)
	a, err := scanAccount(r.db.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения учётной записи: %w", err)
	}
	return a, nil
}

func (r *accountRepo) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE id = $1`, accountColumns)
	a, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения учётной записи по id: %w", err)
	}
	return a, nil
}

func (r *accountRepo) Create(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (name, role)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query, account.Name, account.Role).Scan(&account.ID, &account.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: имя пользователя %q уже занято", ErrConflict, account.Name)
		}
		return fmt.Errorf("ошибка создания учётной записи: %w", err)
	}
	return nil
}

func (r *accountRepo) List(ctx context.Context) ([]*model.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts ORDER BY id`, accountColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка учётных записей: %w", err)
	}
	defer rows.Close()

	var result []*model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования учётной записи: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
