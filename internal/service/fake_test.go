package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/F-Elotlan-M/API-ETL/internal/domain/model"
	"github.com/F-Elotlan-M/API-ETL/internal/domain/rbac"
	"github.com/F-Elotlan-M/API-ETL/internal/repository"
)

// testLogger создаёт logger, отбрасывающий вывод.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memState — содержимое хранилища, копируемое при откате.
type memState struct {
	accounts     map[int64]model.Account
	etls         map[int64]model.ETL
	perms        map[int64]map[int64]bool
	reports      map[int64]model.Report
	details      map[int64]model.ReportDetail
	acks         map[[2]int64]model.Acknowledgment
	nextAccount  int64
	nextReport   int64
	nextDetailID int64
}

func (s memState) clone() memState {
	c := memState{
		accounts:     make(map[int64]model.Account, len(s.accounts)),
		etls:         make(map[int64]model.ETL, len(s.etls)),
		perms:        make(map[int64]map[int64]bool, len(s.perms)),
		reports:      make(map[int64]model.Report, len(s.reports)),
		details:      make(map[int64]model.ReportDetail, len(s.details)),
		acks:         make(map[[2]int64]model.Acknowledgment, len(s.acks)),
		nextAccount:  s.nextAccount,
		nextReport:   s.nextReport,
		nextDetailID: s.nextDetailID,
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.etls {
		c.etls[k] = v
	}
	for k, v := range s.perms {
		set := make(map[int64]bool, len(v))
		for id := range v {
			set[id] = true
		}
		c.perms[k] = set
	}
	for k, v := range s.reports {
		c.reports[k] = v
	}
	for k, v := range s.details {
		c.details[k] = v
	}
	for k, v := range s.acks {
		c.acks[k] = v
	}
	return c
}

// memStore — хранилище в памяти, реализующее интерфейсы репозиториев.
// Транзакции сериализуются, при ошибке состояние восстанавливается.
type memStore struct {
	mu    sync.Mutex
	txMu  sync.Mutex
	state memState

	// failDetail — CreateDetail возвращает ошибку после вставки заголовка
	failDetail bool
	// failPermissions — ListETLIDs и HasAny возвращают ошибку
	failPermissions bool
	// writeErr — ошибка CreateHeader, Insert подтверждения и Grant
	writeErr error
}

var errStorage = errors.New("сбой хранилища")

func newMemStore() *memStore {
	return &memStore{state: memState{}.clone()}
}

// newSeededStore повторяет демонстрационные данные миграции 002.
func newSeededStore() *memStore {
	s := newMemStore()
	s.addAccount(1, "admin_user", rbac.RoleAdministrator)
	s.addAccount(2, "consultor_user", rbac.RoleConsultant)
	s.addAccount(3, "consultor_dos", rbac.RoleConsultant)
	for id, name := range map[int64]string{
		1: "ETL Ventas Diarias", 2: "ETL Inventario", 3: "ETL Clientes",
		4: "ETL Monitoreo Servidores", 5: "ETL Carga Archivos",
	} {
		s.state.etls[id] = model.ETL{ID: id, Name: name, Kind: "Procesamiento"}
	}
	s.grant(2, 1, 3)
	s.addReport(1, 1, "2025-05-25T10:00:00Z", "Exitoso", model.ProcessingDetail{Name: "carga"})
	s.addReport(2, 1, "2025-05-24T10:00:00Z", model.StatusCriticalFailure, model.ProcessingDetail{Name: "carga"})
	s.addReport(3, 5, "2025-05-25T09:00:00Z", "Exitoso", model.FileDetail{Status: "OK"})
	s.addReport(4, 4, "2025-05-25T08:00:00Z", model.StatusCriticalFailure, model.AlertDetail{Name: "cpu"})
	s.addReport(5, 2, "2025-05-23T10:00:00Z", "Exitoso", model.ProcessingDetail{Name: "carga"})
	return s
}

func (s *memStore) addAccount(id int64, name, role string) {
	s.state.accounts[id] = model.Account{ID: id, Name: name, Role: role}
	if id > s.state.nextAccount {
		s.state.nextAccount = id
	}
}

func (s *memStore) grant(accountID int64, etlIDs ...int64) {
	set := s.state.perms[accountID]
	if set == nil {
		set = make(map[int64]bool)
		s.state.perms[accountID] = set
	}
	for _, id := range etlIDs {
		set[id] = true
	}
}

func (s *memStore) addReport(id, etlID int64, at, status string, detail model.ReportDetail) {
	ts, err := time.Parse(time.RFC3339, at)
	if err != nil {
		panic(err)
	}
	s.state.reports[id] = model.Report{
		ID: id, ETLID: &etlID, ReportedAt: ts, Status: status, DetailKind: detail.Kind(),
	}
	s.state.details[id] = detail
	if id > s.state.nextReport {
		s.state.nextReport = id
	}
}

func (s *memStore) reportCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.reports)
}

func (s *memStore) ackCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.acks)
}

// repos возвращает набор репозиториев поверх хранилища.
func (s *memStore) repos() *repository.Repositories {
	return &repository.Repositories{
		Accounts:        memAccounts{s},
		Permissions:     memPermissions{s},
		ETLs:            memETLs{s},
		Reports:         memReports{s},
		Acknowledgments: memAcks{s},
	}
}

// InTx реализует TxManager.
func (s *memStore) InTx(_ context.Context, fn func(repos *repository.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.state.clone()
	s.mu.Unlock()

	if err := fn(s.repos()); err != nil {
		s.mu.Lock()
		s.state = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// --- accounts ---

type memAccounts struct{ s *memStore }

func (r memAccounts) GetByName(_ context.Context, name string) (*model.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.state.accounts {
		if a.Name == name {
			a := a
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memAccounts) GetByID(_ context.Context, id int64) (*model.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.state.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r memAccounts) Create(_ context.Context, account *model.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.state.accounts {
		if a.Name == account.Name {
			return repository.ErrConflict
		}
	}
	r.s.state.nextAccount++
	account.ID = r.s.state.nextAccount
	r.s.state.accounts[account.ID] = *account
	return nil
}

func (r memAccounts) List(_ context.Context) ([]*model.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make([]*model.Account, 0, len(r.s.state.accounts))
	for _, a := range r.s.state.accounts {
		a := a
		result = append(result, &a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// --- permissions ---

type memPermissions struct{ s *memStore }

func (r memPermissions) ListETLIDs(_ context.Context, accountID int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failPermissions {
		return nil, errStorage
	}
	ids := make([]int64, 0)
	for id := range r.s.state.perms[accountID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r memPermissions) HasAny(_ context.Context, accountID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failPermissions {
		return false, errStorage
	}
	return len(r.s.state.perms[accountID]) > 0, nil
}

func (r memPermissions) ListByAccount(ctx context.Context, accountID int64) ([]model.Permission, error) {
	ids, err := r.ListETLIDs(ctx, accountID)
	if err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	perms := make([]model.Permission, 0, len(ids))
	for _, id := range ids {
		perms = append(perms, model.Permission{AccountID: accountID, ETLID: id, ETLName: r.s.state.etls[id].Name})
	}
	return perms, nil
}

func (r memPermissions) Grant(_ context.Context, accountID int64, etlIDs []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.writeErr != nil {
		return r.s.writeErr
	}
	for _, id := range etlIDs {
		if _, ok := r.s.state.etls[id]; !ok {
			return repository.ErrNotFound
		}
	}
	r.s.grant(accountID, etlIDs...)
	return nil
}

func (r memPermissions) Replace(ctx context.Context, accountID int64, etlIDs []int64) error {
	r.s.mu.Lock()
	delete(r.s.state.perms, accountID)
	r.s.mu.Unlock()
	return r.Grant(ctx, accountID, etlIDs)
}

// --- etls ---

type memETLs struct{ s *memStore }

func (r memETLs) List(_ context.Context) ([]*model.ETL, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make([]*model.ETL, 0, len(r.s.state.etls))
	for _, e := range r.s.state.etls {
		e := e
		result = append(result, &e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r memETLs) Exists(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.state.etls[id]
	return ok, nil
}

func (r memETLs) FindMissing(_ context.Context, ids []int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var missing []int64
	for _, id := range ids {
		if _, ok := r.s.state.etls[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// --- reports ---

type memReports struct{ s *memStore }

func (r memReports) CreateHeader(_ context.Context, report *model.Report) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.writeErr != nil {
		return r.s.writeErr
	}
	if report.ETLID != nil {
		if _, ok := r.s.state.etls[*report.ETLID]; !ok {
			return repository.ErrNotFound
		}
	}
	r.s.state.nextReport++
	report.ID = r.s.state.nextReport
	r.s.state.reports[report.ID] = *report
	return nil
}

func (r memReports) CreateDetail(_ context.Context, reportID int64, detail model.ReportDetail) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failDetail {
		return 0, errStorage
	}
	if _, ok := r.s.state.details[reportID]; ok {
		return 0, repository.ErrConflict
	}
	r.s.state.details[reportID] = detail
	r.s.state.nextDetailID++
	return r.s.state.nextDetailID, nil
}

func (r memReports) GetByID(_ context.Context, id int64) (*model.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rep, ok := r.s.state.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rep, nil
}

func (r memReports) ListCriticalUnacknowledged(_ context.Context, accountID int64, access rbac.Access) ([]*model.Report, error) {
	return r.filter(func(rep model.Report) bool {
		if !rep.IsCritical() {
			return false
		}
		_, acked := r.s.state.acks[[2]int64{accountID, rep.ID}]
		return !acked && allows(access, rep)
	}), nil
}

func (r memReports) ListBetween(_ context.Context, from, to time.Time, access rbac.Access) ([]*model.Report, error) {
	return r.filter(func(rep model.Report) bool {
		return !rep.ReportedAt.Before(from) && rep.ReportedAt.Before(to) && allows(access, rep)
	}), nil
}

func (r memReports) filter(keep func(model.Report) bool) []*model.Report {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make([]*model.Report, 0)
	for _, rep := range r.s.state.reports {
		if keep(rep) {
			rep := rep
			result = append(result, &rep)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ReportedAt.Equal(result[j].ReportedAt) {
			return result[i].ReportedAt.After(result[j].ReportedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result
}

func allows(access rbac.Access, rep model.Report) bool {
	if access.IsUnrestricted() {
		return true
	}
	return rep.ETLID != nil && access.Allows(*rep.ETLID)
}

// --- acknowledgments ---

type memAcks struct{ s *memStore }

func (r memAcks) Insert(_ context.Context, accountID, reportID int64, at time.Time) (*model.Acknowledgment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.writeErr != nil {
		return nil, r.s.writeErr
	}
	key := [2]int64{accountID, reportID}
	if _, ok := r.s.state.acks[key]; ok {
		return nil, repository.ErrConflict
	}
	ack := model.Acknowledgment{AccountID: accountID, ReportID: reportID, AcknowledgedAt: at}
	r.s.state.acks[key] = ack
	return &ack, nil
}

func (r memAcks) Get(_ context.Context, accountID, reportID int64) (*model.Acknowledgment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ack, ok := r.s.state.acks[[2]int64{accountID, reportID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &ack, nil
}
