package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/F-Elotlan-M/API-ETL/internal/domain/model"
	"github.com/F-Elotlan-M/API-ETL/internal/domain/rbac"
	"github.com/F-Elotlan-M/API-ETL/internal/repository"
)

func newAckFixture() (*AcknowledgmentService, *memStore) {
	store := newSeededStore()
	resolver := NewPermissionResolver(store.repos().Permissions, testLogger())
	svc := NewAcknowledgmentService(store.repos(), store, resolver,
		func() time.Time { return testNow }, testLogger())
	return svc, store
}

var (
	adminIdentity      = &model.Identity{AccountID: 1, Name: "admin_user", Role: rbac.RoleAdministrator}
	consultantIdentity = &model.Identity{AccountID: 2, Name: "consultor_user", Role: rbac.RoleConsultant}
	emptyIdentity      = &model.Identity{AccountID: 3, Name: "consultor_dos", Role: rbac.RoleConsultant}
)

func reportIDs(reports []*model.Report) []int64 {
	ids := make([]int64, len(reports))
	for i, r := range reports {
		ids[i] = r.ID
	}
	return ids
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestAcknowledgmentService_ListScoping проверяет фильтр по правам и порядок.
func TestAcknowledgmentService_ListScoping(t *testing.T) {
	tests := []struct {
		name     string
		identity *model.Identity
		want     []int64
	}{
		// отчёт 4 (25.05) новее отчёта 2 (24.05)
		{"администратор видит все", adminIdentity, []int64{4, 2}},
		{"консультант видит только свои ETL", consultantIdentity, []int64{2}},
		{"консультант без прав", emptyIdentity, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newAckFixture()
			reports, err := svc.ListUnacknowledgedCritical(context.Background(), tt.identity)
			if err != nil {
				t.Fatalf("ListUnacknowledgedCritical: %v", err)
			}
			if got := reportIDs(reports); !equalIDs(got, tt.want) {
				t.Errorf("отчёты = %v, ожидается %v", got, tt.want)
			}
		})
	}
}

// TestAcknowledgmentService_ListForbiddenRole проверяет отказ для чужой роли.
func TestAcknowledgmentService_ListForbiddenRole(t *testing.T) {
	svc, _ := newAckFixture()
	_, err := svc.ListUnacknowledgedCritical(context.Background(), &model.Identity{AccountID: 1, Role: "Auditor"})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("ошибка = %v, ожидается ErrForbidden", err)
	}
}

// TestAcknowledgmentService_AcknowledgeTwice проверяет идемпотентность:
// первый вызов создаёт запись, второй сообщает о существующей.
func TestAcknowledgmentService_AcknowledgeTwice(t *testing.T) {
	svc, store := newAckFixture()
	ctx := context.Background()

	first, err := svc.Acknowledge(ctx, consultantIdentity, 4)
	if err != nil {
		t.Fatalf("первое подтверждение: %v", err)
	}
	if !first.Created {
		t.Error("первое подтверждение: Created = false")
	}
	if !first.Acknowledgment.AcknowledgedAt.Equal(testNow) {
		t.Errorf("AcknowledgedAt = %v, ожидается %v", first.Acknowledgment.AcknowledgedAt, testNow)
	}

	second, err := svc.Acknowledge(ctx, consultantIdentity, 4)
	if err != nil {
		t.Fatalf("повторное подтверждение: %v", err)
	}
	if second.Created {
		t.Error("повторное подтверждение: Created = true")
	}
	if !second.Acknowledgment.AcknowledgedAt.Equal(testNow) {
		t.Errorf("повторное подтверждение вернуло %+v", second.Acknowledgment)
	}
	if n := store.ackCount(); n != 1 {
		t.Errorf("записей подтверждений = %d, ожидается 1", n)
	}

	// подтверждённый отчёт пропадает из списка только у этой учётной записи
	adminList, err := svc.ListUnacknowledgedCritical(ctx, adminIdentity)
	if err != nil {
		t.Fatalf("ListUnacknowledgedCritical: %v", err)
	}
	if got := reportIDs(adminList); !equalIDs(got, []int64{4, 2}) {
		t.Errorf("список администратора = %v, ожидается [4 2]", got)
	}
}

// TestAcknowledgmentService_Concurrent проверяет, что параллельные
// подтверждения дают одну запись и все завершаются успешно.
func TestAcknowledgmentService_Concurrent(t *testing.T) {
	svc, store := newAckFixture()

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := svc.Acknowledge(context.Background(), adminIdentity, 2)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if result.Created {
				created++
			}
		}()
	}
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("ошибки подтверждения: %v", errs)
	}
	if created != 1 {
		t.Errorf("Created = true у %d вызовов, ожидается 1", created)
	}
	if n := store.ackCount(); n != 1 {
		t.Errorf("записей подтверждений = %d, ожидается 1", n)
	}
}

// TestAcknowledgmentService_NotFound проверяет отсутствующий и некритический отчёт.
func TestAcknowledgmentService_NotFound(t *testing.T) {
	tests := []struct {
		name     string
		reportID int64
	}{
		{"нет отчёта", 999},
		{"отчёт не критический", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newAckFixture()
			_, err := svc.Acknowledge(context.Background(), adminIdentity, tt.reportID)
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("ошибка = %v, ожидается ErrNotFound", err)
			}
			if n := store.ackCount(); n != 0 {
				t.Errorf("записей подтверждений = %d, ожидается 0", n)
			}
		})
	}
}

// TestAcknowledgmentService_AccountRemoved проверяет подтверждение от
// учётной записи, удалённой после выдачи токена.
func TestAcknowledgmentService_AccountRemoved(t *testing.T) {
	svc, store := newAckFixture()
	store.writeErr = repository.ErrNotFound

	_, err := svc.Acknowledge(context.Background(), consultantIdentity, 4)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("ошибка = %v, ожидается ErrNotFound", err)
	}
	var userErr *UserError
	if !errors.As(err, &userErr) || userErr.Message != "El usuario con id 2 no existe." {
		t.Errorf("ошибка = %v, ожидается сообщение об отсутствующем пользователе", err)
	}
	if store.ackCount() != 0 {
		t.Errorf("подтверждений = %d, ожидается 0", store.ackCount())
	}
}
