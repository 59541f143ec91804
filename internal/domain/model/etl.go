package model

import "time"

// ETL — запись каталога ETL-процессов.
// Хранится в таблице etls.
type ETL struct {
	ID int64
	// Name — имя процесса
	Name string
	// Kind — тип (Procesamientos, Archivos, Alertas), может быть пустым
	Kind string
	// Description — описание, может быть пустым
	Description string
	CreatedAt   time.Time
}
