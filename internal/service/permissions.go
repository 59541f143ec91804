// permissions.go — разрешение области видимости отчётов для личности.
package service

import (
	"context"
	"log/slog"

	"github.com/F-Elotlan-M/API-ETL/internal/domain/model"
	"github.com/F-Elotlan-M/API-ETL/internal/domain/rbac"
	"github.com/F-Elotlan-M/API-ETL/internal/repository"
)

// PermissionResolver переводит личность в набор доступных ETL.
type PermissionResolver struct {
	permissions repository.PermissionRepository
	logger      *slog.Logger
}

// NewPermissionResolver создаёт PermissionResolver.
func NewPermissionResolver(permissions repository.PermissionRepository, logger *slog.Logger) *PermissionResolver {
	return &PermissionResolver{
		permissions: permissions,
		logger:      logger.With(slog.String("component", "permission_resolver")),
	}
}

// Resolve возвращает доступ личности.
// Администратор видит всё, консультант только свои ETL (список может быть пуст).
// Роль из токена, не допущенная к отчётам, даёт ErrRoleUnauthorized.
func (r *PermissionResolver) Resolve(ctx context.Context, identity *model.Identity) (rbac.Access, error) {
	switch identity.Role {
	case rbac.RoleAdministrator:
		return rbac.Unrestricted(), nil
	case rbac.RoleConsultant:
		ids, err := r.permissions.ListETLIDs(ctx, identity.AccountID)
		if err != nil {
			return rbac.Access{}, internalError("получение прав", err)
		}
		return rbac.RestrictedTo(ids), nil
	default:
		r.logger.Warn("Роль не допускается к отчётам",
			slog.Int64("account_id", identity.AccountID),
			slog.String("role", identity.Role),
		)
		return rbac.Access{}, ErrRoleUnauthorized
	}
}
