// Пакет service — бизнес-логика API-ETL.
// auth.go — вход пользователя: каталог, локальная учётная запись, роль, права, токен.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/F-Elotlan-M/API-ETL/internal/directory"
	"github.com/F-Elotlan-M/API-ETL/internal/domain/model"
	"github.com/F-Elotlan-M/API-ETL/internal/domain/rbac"
	"github.com/F-Elotlan-M/API-ETL/internal/repository"
)

// TokenIssuer выпускает непрозрачный токен для личности.
type TokenIssuer interface {
	Issue(identity *model.Identity, ttl time.Duration) (string, error)
}

// LoginResult — успешный вход.
type LoginResult struct {
	Token   string
	Account *model.Account
}

// AuthService — сервис входа.
type AuthService struct {
	directory directory.Checker
	repos     *repository.Repositories
	issuer    TokenIssuer
	ttl       time.Duration
	logger    *slog.Logger
}

// NewAuthService создаёт сервис входа. ttl — время жизни выдаваемого токена.
func NewAuthService(
	dir directory.Checker,
	repos *repository.Repositories,
	issuer TokenIssuer,
	ttl time.Duration,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		directory: dir,
		repos:     repos,
		issuer:    issuer,
		ttl:       ttl,
		logger:    logger.With(slog.String("component", "auth_service")),
	}
}

// Login проверяет пользователя и выпускает токен.
// Каждый исход журналируется с отдельной причиной и учитывается в etl_logins_total.
func (s *AuthService) Login(ctx context.Context, username string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		s.reject("empty_username", username)
		return nil, ErrUsernameRequired
	}

	exists, err := s.directory.UserExists(ctx, username)
	if err != nil {
		s.fail("directory_error", username, err)
		return nil, internalError("проверка каталога", err)
	}
	if !exists {
		s.reject("directory_unknown", username)
		return nil, ErrInvalidCredentials
	}

	account, err := s.repos.Accounts.GetByName(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.reject("not_registered", username)
			return nil, ErrNotRegistered
		}
		s.fail("account_lookup_error", username, err)
		return nil, internalError("поиск учётной записи", err)
	}

	switch account.Role {
	case rbac.RoleAdministrator:
	case rbac.RoleConsultant:
		hasAny, err := s.repos.Permissions.HasAny(ctx, account.ID)
		if err != nil {
			s.fail("permission_lookup_error", username, err)
			return nil, internalError("проверка прав", err)
		}
		if !hasAny {
			s.reject("no_permissions", username)
			return nil, ErrNoPermissions
		}
	default:
		s.reject("role_not_allowed", username)
		return nil, ErrRoleNotAllowed
	}

	token, err := s.issuer.Issue(&model.Identity{
		AccountID: account.ID,
		Name:      account.Name,
		Role:      account.Role,
	}, s.ttl)
	if err != nil {
		s.fail("token_error", username, err)
		return nil, ErrTokenIssue
	}

	loginsTotal.WithLabelValues("granted").Inc()
	s.logger.Info("Вход выполнен",
		slog.String("username", account.Name),
		slog.Int64("account_id", account.ID),
		slog.String("role", account.Role),
	)
	return &LoginResult{Token: token, Account: account}, nil
}

func (s *AuthService) reject(reason, username string) {
	loginsTotal.WithLabelValues(reason).Inc()
	s.logger.Warn("Вход отклонён",
		slog.String("reason", reason),
		slog.String("username", username),
	)
}

func (s *AuthService) fail(reason, username string, err error) {
	loginsTotal.WithLabelValues(reason).Inc()
	s.logger.Error("Ошибка входа",
		slog.String("reason", reason),
		slog.String("username", username),
		slog.String("error", err.Error()),
	)
}
