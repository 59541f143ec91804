// users.go — управление локальными учётными записями и их правами на ETL.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/F-Elotlan-M/API-ETL/internal/domain/model"
	"github.com/F-Elotlan-M/API-ETL/internal/domain/rbac"
	"github.com/F-Elotlan-M/API-ETL/internal/repository"
)

// CreateUserRequest — новая учётная запись.
type CreateUserRequest struct {
	Name string
	// Role — пусто означает rbac.RoleConsultant
	Role   string
	ETLIDs []int64
}

// CreatedUser — созданная учётная запись с назначенными ETL.
type CreatedUser struct {
	Account *model.Account
	ETLIDs  []int64
}

// UserService — сервис учётных записей.
type UserService struct {
	repos  *repository.Repositories
	tx     TxManager
	logger *slog.Logger
}

// NewUserService создаёт сервис учётных записей.
func NewUserService(repos *repository.Repositories, tx TxManager, logger *slog.Logger) *UserService {
	return &UserService{
		repos:  repos,
		tx:     tx,
		logger: logger.With(slog.String("component", "user_service")),
	}
}

// CreateUser создаёт учётную запись и её права одной транзакцией.
// Неизвестные ETL дают ErrValidation со списком id, занятое имя — ErrConflict.
func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*CreatedUser, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, userError(ErrValidation, `El campo "nombreUsuario" es requerido y debe ser una cadena de texto.`)
	}
	if err := fieldLength("nombreUsuario", name); err != nil {
		return nil, err
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = rbac.RoleConsultant
	}
	if !rbac.IsValidRole(role) {
		return nil, userError(ErrValidation, `El campo "rol" debe ser "%s" o "%s".`, rbac.RoleAdministrator, rbac.RoleConsultant)
	}

	if role == rbac.RoleConsultant && len(req.ETLIDs) == 0 {
		return nil, userError(ErrValidation, `El campo "etlIds" es requerido y debe ser un arreglo no vacío de IDs de ETL.`)
	}
	etlIDs, err := normalizeETLIDs(req.ETLIDs)
	if err != nil {
		return nil, err
	}

	account := &model.Account{Name: name, Role: role}
	err = s.tx.InTx(ctx, func(repos *repository.Repositories) error {
		if err := ensureETLsExist(ctx, repos, etlIDs,
			"No se pudo agregar el usuario porque uno o más ETLs no existen."); err != nil {
			return err
		}

		if err := repos.Accounts.Create(ctx, account); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return userError(ErrConflict, "El nombre de usuario '%s' ya está en uso. Por favor, elige otro.", name)
			}
			return internalError("создание учётной записи", err)
		}

		if len(etlIDs) > 0 {
			if err := repos.Permissions.Grant(ctx, account.ID, etlIDs); err != nil {
				return permissionWriteError("назначение прав", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Учётная запись создана",
		slog.Int64("account_id", account.ID),
		slog.String("username", account.Name),
		slog.String("role", account.Role),
		slog.Int("etl_count", len(etlIDs)),
	)
	return &CreatedUser{Account: account, ETLIDs: etlIDs}, nil
}

// ListUsers возвращает все учётные записи.
func (s *UserService) ListUsers(ctx context.Context) ([]*model.Account, error) {
	accounts, err := s.repos.Accounts.List(ctx)
	if err != nil {
		return nil, internalError("получение учётных записей", err)
	}
	return accounts, nil
}

// GetPermissions возвращает учётную запись и её права.
func (s *UserService) GetPermissions(ctx context.Context, accountID int64) (*model.Account, []model.Permission, error) {
	account, err := s.getAccount(ctx, s.repos, accountID)
	if err != nil {
		return nil, nil, err
	}

	perms, err := s.repos.Permissions.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, nil, internalError("получение прав", err)
	}
	return account, perms, nil
}

// ReplacePermissions заменяет набор прав учётной записи одной транзакцией.
// Пустой набор снимает все права.
func (s *UserService) ReplacePermissions(ctx context.Context, accountID int64, etlIDs []int64) ([]model.Permission, error) {
	if etlIDs == nil {
		return nil, userError(ErrValidation, `El campo "etlIds" es requerido y debe ser un arreglo de IDs de ETL.`)
	}
	ids, err := normalizeETLIDs(etlIDs)
	if err != nil {
		return nil, err
	}

	var perms []model.Permission
	err = s.tx.InTx(ctx, func(repos *repository.Repositories) error {
		if _, err := s.getAccount(ctx, repos, accountID); err != nil {
			return err
		}
		if err := ensureETLsExist(ctx, repos, ids,
			"No se pudieron actualizar los permisos porque uno o más ETLs no existen."); err != nil {
			return err
		}
		if err := repos.Permissions.Replace(ctx, accountID, ids); err != nil {
			return permissionWriteError("замена прав", err)
		}

		perms, err = repos.Permissions.ListByAccount(ctx, accountID)
		if err != nil {
			return internalError("получение прав", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Права учётной записи заменены",
		slog.Int64("account_id", accountID),
		slog.Int("etl_count", len(ids)),
	)
	return perms, nil
}

func (s *UserService) getAccount(ctx context.Context, repos *repository.Repositories, accountID int64) (*model.Account, error) {
	account, err := repos.Accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, userError(ErrNotFound, "El usuario con id %d no existe.", accountID)
		}
		return nil, internalError("получение учётной записи", err)
	}
	return account, nil
}

// permissionWriteError переводит нарушение внешнего ключа (ETL или
// учётная запись удалены параллельно) в ErrNotFound.
func permissionWriteError(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return userError(ErrNotFound, "El usuario o uno de los ETLs indicados ya no existe.")
	}
	return internalError(op, err)
}

// normalizeETLIDs проверяет id и убирает повторы, сохраняя порядок.
func normalizeETLIDs(ids []int64) ([]int64, error) {
	result := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, userError(ErrValidation, `Todos los IDs en "etlIds" deben ser números enteros positivos.`)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result, nil
}

// ensureETLsExist возвращает ErrValidation со списком отсутствующих id.
func ensureETLsExist(ctx context.Context, repos *repository.Repositories, ids []int64, prefix string) error {
	if len(ids) == 0 {
		return nil
	}
	missing, err := repos.ETLs.FindMissing(ctx, ids)
	if err != nil {
		return internalError("проверка ETL", err)
	}
	if len(missing) == 0 {
		return nil
	}

	parts := make([]string, len(missing))
	for i, id := range missing {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return userError(ErrValidation, "%s IDs de ETLs no encontrados: %s.", prefix, strings.Join(parts, ", "))
}
