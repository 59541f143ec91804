// Пакет model — доменные модели API-ETL.
package model

import "time"

// Account — локальная учётная запись пользователя.
// Хранится в таблице accounts. Существование в каталоге проверяется отдельно.
type Account struct {
	// ID — идентификатор записи
	ID int64
	// Name — имя пользователя, совпадает с логином в каталоге
	Name string
	// Role — роль (Administrador, Consultor)
	Role string
	// CreatedAt — время создания записи
	CreatedAt time.Time
}

// Permission — право консультанта на просмотр отчётов одного ETL.
// Пара (AccountID, ETLID) уникальна.
type Permission struct {
	AccountID int64
	ETLID     int64
	// ETLName — имя ETL, заполняется при чтении вместе с каталогом
	ETLName string
}

// Identity — проверенная личность из токена.
// Не хранится в БД, восстанавливается при каждом запросе.
type Identity struct {
	// AccountID — идентификатор учётной записи
	AccountID int64
	// Name — отображаемое имя
	Name string
	// Role — роль на момент выдачи токена
	Role string
	// IssuedAt — время выдачи токена (заполняется при проверке)
	IssuedAt time.Time
	// ExpiresAt — время истечения токена (заполняется при проверке)
	ExpiresAt time.Time
}
