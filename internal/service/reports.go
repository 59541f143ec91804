// reports.go — отчёты за день в пределах доступа личности.
package service

import (
	"context"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/F-Elotlan-M/API-ETL/internal/domain/model"
	"github.com/F-Elotlan-M/API-ETL/internal/repository"
)

// ReportService — выборки отчётов для операторов.
type ReportService struct {
	reports  repository.ReportRepository
	resolver *PermissionResolver
	now      func() time.Time
	location *time.Location
}

// NewReportService создаёт сервис выборок. Границы суток считаются
// в location; nil означает time.Local.
func NewReportService(
	reports repository.ReportRepository,
	resolver *PermissionResolver,
	now func() time.Time,
	location *time.Location,
) *ReportService {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.Local
	}
	return &ReportService{
		reports:  reports,
		resolver: resolver,
		now:      now,
		location: location,
	}
}

// ListToday возвращает отчёты текущих суток.
func (s *ReportService) ListToday(ctx context.Context, identity *model.Identity) ([]*model.Report, error) {
	return s.listDay(ctx, identity, s.now().In(s.location))
}

// ListByDate возвращает отчёты за дату в формате YYYY-MM-DD.
func (s *ReportService) ListByDate(ctx context.Context, identity *model.Identity, date string) ([]*model.Report, error) {
	if date == "" {
		return nil, userError(ErrValidation, `El parámetro "fecha" es requerido (formato YYYY-MM-DD).`)
	}
	var day openapi_types.Date
	if err := day.UnmarshalText([]byte(date)); err != nil {
		return nil, userError(ErrValidation, `El parámetro "fecha" debe tener el formato YYYY-MM-DD.`)
	}
	// дата без зоны, границы суток listDay строит в s.location
	return s.listDay(ctx, identity, day.Time)
}

func (s *ReportService) listDay(ctx context.Context, identity *model.Identity, day time.Time) ([]*model.Report, error) {
	access, err := s.resolver.Resolve(ctx, identity)
	if err != nil {
		return nil, err
	}
	if access.IsEmpty() {
		return []*model.Report{}, nil
	}

	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.location)
	to := from.AddDate(0, 0, 1)

	reports, err := s.reports.ListBetween(ctx, from, to, access)
	if err != nil {
		return nil, internalError("получение отчётов", err)
	}
	return reports, nil
}
