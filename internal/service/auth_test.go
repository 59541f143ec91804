package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/F-Elotlan-M/API-ETL/internal/config"
	"github.com/F-Elotlan-M/API-ETL/internal/directory"
	"github.com/F-Elotlan-M/API-ETL/internal/domain/model"
	"github.com/F-Elotlan-M/API-ETL/internal/domain/rbac"
	"github.com/F-Elotlan-M/API-ETL/internal/security"
)

var testNow = time.Date(2025, 5, 25, 12, 0, 0, 0, time.UTC)

func newTestPipeline(t *testing.T) *security.Pipeline {
	t.Helper()
	codec, err := security.NewCodec(config.DefaultTokenEncryptionKey, config.DefaultTokenEncryptionIV)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	signer, err := security.NewSigner("test-secret", func() time.Time { return testNow })
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	return security.NewPipeline(codec, signer)
}

type failingDirectory struct{}

func (failingDirectory) UserExists(context.Context, string) (bool, error) {
	return false, errors.New("каталог недоступен")
}

type failingIssuer struct{}

func (failingIssuer) Issue(*model.Identity, time.Duration) (string, error) {
	return "", errors.New("ошибка подписи")
}

func newAuthFixture(t *testing.T) (*AuthService, *memStore, *security.Pipeline) {
	t.Helper()
	store := newSeededStore()
	store.addAccount(4, "auditor", "Auditor")
	pipeline := newTestPipeline(t)
	dir := directory.NewStatic([]string{"admin_user", "consultor_user", "consultor_dos", "UsuarioPruebaLog2", "auditor"})
	return NewAuthService(dir, store.repos(), pipeline, 8*time.Hour, testLogger()), store, pipeline
}

// TestAuthService_Login_Admin проверяет вход администратора и содержимое токена.
func TestAuthService_Login_Admin(t *testing.T) {
	svc, _, pipeline := newAuthFixture(t)

	result, err := svc.Login(context.Background(), "  admin_user ")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Account.ID != 1 || result.Account.Role != rbac.RoleAdministrator {
		t.Errorf("учётная запись = %+v, ожидается admin_user/Administrador", result.Account)
	}

	identity, err := pipeline.Verify(result.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if identity.AccountID != 1 || identity.Name != "admin_user" || identity.Role != rbac.RoleAdministrator {
		t.Errorf("личность = %+v", identity)
	}
	if want := testNow.Add(8 * time.Hour); !identity.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, ожидается %v", identity.ExpiresAt, want)
	}
}

// TestAuthService_Login_Consultant проверяет вход консультанта с правами.
func TestAuthService_Login_Consultant(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	result, err := svc.Login(context.Background(), "consultor_user")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Account.Role != rbac.RoleConsultant {
		t.Errorf("Role = %q, ожидается Consultor", result.Account.Role)
	}
}

// TestAuthService_Login_Rejected проверяет все отказы входа.
func TestAuthService_Login_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		username string
		kind     error
		want     error
	}{
		{"пустое имя", "", ErrValidation, ErrUsernameRequired},
		{"только пробелы", "   ", ErrValidation, ErrUsernameRequired},
		{"нет в каталоге", "desconocido", ErrAuthentication, ErrInvalidCredentials},
		{"нет локальной записи", "UsuarioPruebaLog2", ErrForbidden, ErrNotRegistered},
		{"регистр локальной записи важен", "ADMIN_USER", ErrForbidden, ErrNotRegistered},
		{"консультант без прав", "consultor_dos", ErrForbidden, ErrNoPermissions},
		{"недопустимая роль", "auditor", ErrForbidden, ErrRoleNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newAuthFixture(t)

			result, err := svc.Login(context.Background(), tt.username)
			if err == nil {
				t.Fatalf("Login(%q) = %+v, ожидалась ошибка", tt.username, result)
			}
			if !errors.Is(err, tt.kind) {
				t.Errorf("ошибка %v не относится к категории %v", err, tt.kind)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("ошибка = %v, ожидается %v", err, tt.want)
			}
		})
	}
}

// TestAuthService_Login_DistinctForbiddenMessages проверяет, что отказы 403
// различимы для клиента.
func TestAuthService_Login_DistinctForbiddenMessages(t *testing.T) {
	messages := map[string]bool{}
	for _, err := range []*UserError{ErrNotRegistered, ErrNoPermissions, ErrRoleNotAllowed} {
		if messages[err.Message] {
			t.Errorf("сообщение %q повторяется", err.Message)
		}
		messages[err.Message] = true
	}
}

// TestAuthService_Login_InternalFailures проверяет сбои каталога, хранилища и подписи.
func TestAuthService_Login_InternalFailures(t *testing.T) {
	t.Run("каталог", func(t *testing.T) {
		store := newSeededStore()
		svc := NewAuthService(failingDirectory{}, store.repos(), newTestPipeline(t), time.Hour, testLogger())
		if _, err := svc.Login(context.Background(), "admin_user"); !errors.Is(err, ErrInternal) {
			t.Errorf("ошибка = %v, ожидается ErrInternal", err)
		}
	})

	t.Run("права", func(t *testing.T) {
		store := newSeededStore()
		store.failPermissions = true
		svc := NewAuthService(directory.NewStatic([]string{"consultor_user"}), store.repos(),
			newTestPipeline(t), time.Hour, testLogger())
		if _, err := svc.Login(context.Background(), "consultor_user"); !errors.Is(err, ErrInternal) {
			t.Errorf("ошибка = %v, ожидается ErrInternal", err)
		}
	})

	t.Run("подпись", func(t *testing.T) {
		store := newSeededStore()
		svc := NewAuthService(directory.NewStatic([]string{"admin_user"}), store.repos(),
			failingIssuer{}, time.Hour, testLogger())
		_, err := svc.Login(context.Background(), "admin_user")
		if !errors.Is(err, ErrTokenIssue) || !errors.Is(err, ErrInternal) {
			t.Errorf("ошибка = %v, ожидается ErrTokenIssue", err)
		}
	})
}
