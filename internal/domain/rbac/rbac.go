// Пакет rbac — роли пользователей и область видимости ETL.
// Администратор видит все ETL, консультант — только назначенные ему.
// Любая другая роль доступа не получает.
package rbac

// Роли, хранимые в accounts.role и передаваемые в токене.
const (
	RoleAdministrator = "Administrador"
	RoleConsultant    = "Consultor"
)

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	return role == RoleAdministrator || role == RoleConsultant
}

// Access — область видимости ETL для проверенной личности.
// Нулевое значение — ограниченный доступ к пустому набору.
type Access struct {
	unrestricted bool
	etlIDs       []int64
	allowed      map[int64]struct{}
}

// Unrestricted возвращает доступ ко всем ETL.
func Unrestricted() Access {
	return Access{unrestricted: true}
}

// RestrictedTo возвращает доступ только к перечисленным ETL.
// Пустой набор допустим: все выборки будут пустыми.
func RestrictedTo(etlIDs []int64) Access {
	a := Access{
		etlIDs:  make([]int64, 0, len(etlIDs)),
		allowed: make(map[int64]struct{}, len(etlIDs)),
	}
	for _, id := range etlIDs {
		if _, dup := a.allowed[id]; dup {
			continue
		}
		a.allowed[id] = struct{}{}
		a.etlIDs = append(a.etlIDs, id)
	}
	return a
}

// IsUnrestricted сообщает, что фильтр по ETL не нужен.
func (a Access) IsUnrestricted() bool {
	return a.unrestricted
}

// IsEmpty сообщает, что доступ ограничен пустым набором.
func (a Access) IsEmpty() bool {
	return !a.unrestricted && len(a.etlIDs) == 0
}

// Allows проверяет, виден ли ETL с данным id.
func (a Access) Allows(etlID int64) bool {
	if a.unrestricted {
		return true
	}
	_, ok := a.allowed[etlID]
	return ok
}

// ETLIDs возвращает набор разрешённых id для предиката запроса.
// Для неограниченного доступа возвращает nil.
func (a Access) ETLIDs() []int64 {
	if a.unrestricted {
		return nil
	}
	out := make([]int64, len(a.etlIDs))
	copy(out, a.etlIDs)
	return out
}
