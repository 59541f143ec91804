// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"
)

// Категории ошибок. HTTP-слой выбирает статус по категории через errors.Is.
var (
	// ErrValidation — некорректные входные данные, хранилище не затрагивается.
	ErrValidation = errors.New("ошибка валидации")
	// ErrAuthentication — личность не установлена.
	ErrAuthentication = errors.New("ошибка аутентификации")
	// ErrForbidden — личность установлена, прав недостаточно.
	ErrForbidden = errors.New("доступ запрещён")
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrInternal — сбой хранилища или криптографии.
	ErrInternal = errors.New("внутренняя ошибка")
)

// UserError — ошибка категории kind с сообщением для клиента API.
type UserError struct {
	kind error
	// Message — текст для клиента, без внутренних подробностей
	Message string
}

func (e *UserError) Error() string {
	return e.kind.Error() + ": " + e.Message
}

// Unwrap возвращает категорию ошибки.
func (e *UserError) Unwrap() error {
	return e.kind
}

func userError(kind error, format string, args ...any) *UserError {
	return &UserError{kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Исходы входа, различимые в журнале и в ответе.
var (
	ErrUsernameRequired   = userError(ErrValidation, `El campo "nombreUsuario" es requerido.`)
	ErrInvalidCredentials = userError(ErrAuthentication, "Credenciales inválidas. Usuario o contraseña incorrectos.")
	ErrNotRegistered      = userError(ErrForbidden, "Usuario autenticado por el directorio, pero no registrado o sin acceso en esta aplicación.")
	ErrNoPermissions      = userError(ErrForbidden, "Usuario autenticado, pero no tiene permisos ETL asignados en el sistema.")
	ErrRoleNotAllowed     = userError(ErrForbidden, "El rol del usuario no permite el acceso al sistema.")
	ErrTokenIssue         = userError(ErrInternal, "Error interno al procesar la seguridad del token.")
)

// ErrRoleUnauthorized — роль личности не допускается к операции.
var ErrRoleUnauthorized = userError(ErrForbidden, "Rol no autorizado para esta acción.")

// internalError оборачивает сбой инфраструктуры в категорию ErrInternal.
func internalError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}
