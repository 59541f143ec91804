package model

import "time"

// StatusCriticalFailure — статус отчёта, требующий подтверждения пользователем.
const StatusCriticalFailure = "Fallido Crítico"

// DetailKind — дискриминант детализации отчёта.
// Хранится в reports.detail_kind.
type DetailKind string

// Виды детализации.
const (
	DetailProcessing DetailKind = "processing"
	DetailFile       DetailKind = "file"
	DetailAlert      DetailKind = "alert"
)

// Valid проверяет, что вид детализации известен.
func (k DetailKind) Valid() bool {
	switch k {
	case DetailProcessing, DetailFile, DetailAlert:
		return true
	}
	return false
}

// Report — заголовок отчёта ETL.
type Report struct {
	ID int64
	// ETLID — nil, если ETL удалён после записи отчёта
	ETLID      *int64
	ReportedAt time.Time
	// Status — произвольная строка, StatusCriticalFailure распознаётся особо
	Status     string
	DetailKind DetailKind
	// ETL — краткие данные процесса, заполняются в выборках со связью
	ETL *ETL
}

// IsCritical сообщает, требует ли отчёт подтверждения.
func (r *Report) IsCritical() bool {
	return r.Status == StatusCriticalFailure
}

// ReportDetail — детализация отчёта: ровно один из
// ProcessingDetail, FileDetail, AlertDetail.
type ReportDetail interface {
	Kind() DetailKind
	isReportDetail()
}

// ProcessingDetail — детализация шага обработки.
type ProcessingDetail struct {
	Name      string
	EventTime time.Time
	FileName  *string
	Status    string
	Message   *string
}

// FileDetail — детализация обработки файла.
type FileDetail struct {
	Status  string
	Message *string
}

// AlertDetail — детализация алерта или выполнения.
type AlertDetail struct {
	Name       string
	HostName   *string
	StartTime  time.Time
	EndTime    time.Time
	DurationMs *int64
}

func (ProcessingDetail) Kind() DetailKind { return DetailProcessing }
func (FileDetail) Kind() DetailKind       { return DetailFile }
func (AlertDetail) Kind() DetailKind      { return DetailAlert }

func (ProcessingDetail) isReportDetail() {}
func (FileDetail) isReportDetail()       {}
func (AlertDetail) isReportDetail()      {}

// IngestedReport — результат приёма отчёта.
type IngestedReport struct {
	ReportID int64
	DetailID int64
	Kind     DetailKind
}

// Acknowledgment — подтверждение критического отчёта пользователем.
// Пара (AccountID, ReportID) уникальна.
type Acknowledgment struct {
	AccountID      int64
	ReportID       int64
	AcknowledgedAt time.Time
}
