// Пакет directory — проверка существования пользователя во внешнем каталоге.
// Каталог отвечает только на вопрос «есть ли такой логин»;
// роль и права определяются локальной БД.
package directory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/F-Elotlan-M/API-ETL/internal/keycloak"
)

// Checker — предикат существования пользователя в каталоге.
type Checker interface {
	UserExists(ctx context.Context, username string) (bool, error)
}

// Static — каталог с фиксированным списком логинов.
// Сравнение без учёта регистра.
type Static struct {
	users map[string]struct{}
}

// NewStatic создаёт статический каталог из списка логинов.
func NewStatic(usernames []string) *Static {
	s := &Static{users: make(map[string]struct{}, len(usernames))}
	for _, u := range usernames {
		s.users[strings.ToLower(strings.TrimSpace(u))] = struct{}{}
	}
	return s
}

// UserExists проверяет наличие логина в списке.
func (s *Static) UserExists(_ context.Context, username string) (bool, error) {
	_, ok := s.users[strings.ToLower(username)]
	return ok, nil
}

// CheckReady — статический каталог всегда готов.
func (s *Static) CheckReady() (string, string) {
	return "ok", fmt.Sprintf("статический каталог, пользователей: %d", len(s.users))
}

// userFinder — часть Keycloak-клиента, нужная каталогу.
type userFinder interface {
	FindUsersByUsername(ctx context.Context, username string) ([]keycloak.UserRepresentation, error)
}

// Keycloak — каталог на основе пользователей realm Keycloak.
// Отключённые учётные записи считаются отсутствующими.
type Keycloak struct {
	client userFinder
	logger *slog.Logger
}

// NewKeycloak создаёт каталог поверх клиента Keycloak Admin API.
func NewKeycloak(client userFinder, logger *slog.Logger) *Keycloak {
	return &Keycloak{
		client: client,
		logger: logger.With(slog.String("component", "directory")),
	}
}

// UserExists ищет пользователя по точному username.
func (k *Keycloak) UserExists(ctx context.Context, username string) (bool, error) {
	users, err := k.client.FindUsersByUsername(ctx, username)
	if err != nil {
		return false, fmt.Errorf("проверка пользователя в Keycloak: %w", err)
	}

	for _, u := range users {
		if !strings.EqualFold(u.Username, username) {
			continue
		}
		if !u.Enabled {
			k.logger.Debug("Пользователь отключён в Keycloak",
				slog.String("username", username),
			)
			return false, nil
		}
		return true, nil
	}
	return false, nil
}
