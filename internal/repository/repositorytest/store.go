// Package repositorytest はテスト用のインメモリリポジトリを提供する。
//
// Store はrepositoryパッケージの全インターフェースを実装し、
// WithSeatLock ではコホート単位のミューテックスとステージングによって
// PostgreSQL実装と同じ「ロック内で全部コミットするか、全部捨てるか」の振る舞いを再現する。
package repositorytest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/admissions/internal/model"
	"github.com/hitoshi/admissions/internal/repository"
)

// Store はインメモリのリポジトリ実装。ゼロ値ではなくNewStoreで生成すること。
type Store struct {
	lockMu sync.Mutex
	locks  map[string]*sync.Mutex

	mu         sync.RWMutex
	cohorts    map[string]*model.Cohort
	applicants map[string]*model.Applicant
	accounts   map[string]*model.Account
	sessions   map[string]*model.Session
	events     map[string]*model.PaymentEvent

	// 以下を設定すると対応する操作がそのエラーを返す。
	FailUpdateApplicant error
	FailCreateAccount   error
	FailClaimEvent      error
}

// NewStore は空のStoreを生成する。
func NewStore() *Store {
	return &Store{
		locks:      make(map[string]*sync.Mutex),
		cohorts:    make(map[string]*model.Cohort),
		applicants: make(map[string]*model.Applicant),
		accounts:   make(map[string]*model.Account),
		sessions:   make(map[string]*model.Session),
		events:     make(map[string]*model.PaymentEvent),
	}
}

// AddCohort はコホートを登録して返す。
func (s *Store) AddCohort(name string, maxSeats int) model.Cohort {
	c := &model.Cohort{ID: uuid.NewString(), Name: name, MaxSeats: maxSeats, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	s.mu.Lock()
	s.cohorts[c.ID] = c
	s.mu.Unlock()
	return *c
}

// AddApplicant は指定ステータスの応募者を登録して返す。
func (s *Store) AddApplicant(cohortID, fullName, email string, status model.Status) *model.Applicant {
	now := time.Now()
	a := &model.Applicant{
		ID: uuid.NewString(), CohortID: cohortID, FullName: fullName, Email: email,
		ClassYear: "2027", Activities: "activities", WhatMakesUnique: "unique", WhyMentorship: "why",
		Status: status, CreatedAt: now, UpdatedAt: now,
	}
	s.mu.Lock()
	s.applicants[a.ID] = copyApplicant(a)
	s.mu.Unlock()
	return a
}

// Applicant は現在の応募者の状態を返す。見つからない場合はnil。
func (s *Store) Applicant(id string) *model.Applicant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.applicants[id]; ok {
		return copyApplicant(a)
	}
	return nil
}

// Accounts は登録済みの全アカウントを返す。
func (s *Store) Accounts() []*model.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		c := *a
		out = append(out, &c)
	}
	return out
}

// AccountsByEmail は指定メールアドレスのアカウント数を返す。
func (s *Store) AccountsByEmail(email string) int {
	n := 0
	for _, a := range s.Accounts() {
		if a.Email == email {
			n++
		}
	}
	return n
}

// PaymentEvent は記録済みの支払いイベントを返す。見つからない場合はnil。
func (s *Store) PaymentEvent(id string) *model.PaymentEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.events[id]; ok {
		c := *e
		return &c
	}
	return nil
}

// SeatHolders はコホートの座席保有者数を返す。
func (s *Store) SeatHolders(cohortID string) int {
	n, _ := s.countSeats(cohortID)
	return n
}

func (s *Store) countSeats(cohortID string) (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var seatHolders, paidOrActive int
	for _, a := range s.applicants {
		if a.CohortID != cohortID {
			continue
		}
		if a.Status.IsSeatConsuming() {
			seatHolders++
		}
		if a.Status == model.StatusPaid || a.Status == model.StatusActive {
			paidOrActive++
		}
	}
	return seatHolders, paidOrActive
}

func copyApplicant(a *model.Applicant) *model.Applicant {
	c := *a
	if a.Score != nil {
		v := *a.Score
		c.Score = &v
	}
	if a.AdminNotes != nil {
		v := *a.AdminNotes
		c.AdminNotes = &v
	}
	return &c
}

// --- CohortRepository ---

// EnsureByName は名前でコホートを取得し、存在しなければ作成する。
func (s *Store) EnsureByName(ctx context.Context, name string, maxSeats int) (*model.Cohort, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cohorts {
		if c.Name == name {
			c.MaxSeats = maxSeats
			c.UpdatedAt = time.Now()
			cc := *c
			return &cc, nil
		}
	}
	c := &model.Cohort{ID: uuid.NewString(), Name: name, MaxSeats: maxSeats, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	s.cohorts[c.ID] = c
	cc := *c
	return &cc, nil
}

func (s *Store) hasCohort(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cohorts[id]
	return ok
}

// Cohorts はCohortRepositoryとしてのビューを返す。
func (s *Store) Cohorts() repository.CohortRepository { return s }

// Applicants はApplicantRepositoryとしてのビューを返す。
func (s *Store) Applicants() repository.ApplicantRepository { return applicantView{s} }

// AccountRepo はAccountRepositoryとしてのビューを返す。
func (s *Store) AccountRepo() repository.AccountRepository { return accountView{s} }

// Sessions はSessionRepositoryとしてのビューを返す。
func (s *Store) Sessions() repository.SessionRepository { return sessionView{s} }

// --- ApplicantRepository ---

type applicantView struct{ s *Store }

func (v applicantView) FindByID(ctx context.Context, id string) (*model.Applicant, error) {
	return v.s.Applicant(id), nil
}

func (v applicantView) FindAcceptedByEmail(ctx context.Context, cohortID, email string) (*model.Applicant, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var found *model.Applicant
	for _, a := range v.s.applicants {
		if a.CohortID == cohortID && a.Email == email && a.Status == model.StatusAccepted {
			if found == nil || a.CreatedAt.After(found.CreatedAt) {
				found = a
			}
		}
	}
	if found == nil {
		return nil, nil
	}
	return copyApplicant(found), nil
}

func (v applicantView) Create(ctx context.Context, a *model.Applicant) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.applicants[a.ID]; ok {
		return fmt.Errorf("applicant %s already exists", a.ID)
	}
	v.s.applicants[a.ID] = copyApplicant(a)
	return nil
}

func (v applicantView) ListByCohort(ctx context.Context, cohortID string) ([]*model.Applicant, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := []*model.Applicant{}
	for _, a := range v.s.applicants {
		if a.CohortID == cohortID {
			out = append(out, copyApplicant(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (v applicantView) CountSeats(ctx context.Context, cohortID string) (int, int, error) {
	seatHolders, paidOrActive := v.s.countSeats(cohortID)
	return seatHolders, paidOrActive, nil
}

// --- AccountRepository ---

type accountView struct{ s *Store }

func (v accountView) FindByID(ctx context.Context, id string) (*model.Account, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	if a, ok := v.s.accounts[id]; ok {
		c := *a
		return &c, nil
	}
	return nil, nil
}

func (v accountView) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.accountByEmailLocked(email), nil
}

func (v accountView) CreateIfAbsent(ctx context.Context, a *model.Account) (bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.accountByEmailLocked(a.Email) != nil {
		return false, nil
	}
	c := *a
	v.s.accounts[a.ID] = &c
	return true, nil
}

func (s *Store) accountByEmailLocked(email string) *model.Account {
	for _, a := range s.accounts {
		if a.Email == email {
			c := *a
			return &c
		}
	}
	return nil
}

// --- SessionRepository ---

type sessionView struct{ s *Store }

func (v sessionView) Create(ctx context.Context, session *model.Session) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	c := *session
	v.s.sessions[session.ID] = &c
	return nil
}

func (v sessionView) FindByID(ctx context.Context, id string) (*model.Session, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	sess, ok := v.s.sessions[id]
	if !ok || !sess.ExpiresAt.After(time.Now()) {
		return nil, nil
	}
	c := *sess
	if acc, ok := v.s.accounts[sess.AccountID]; ok {
		c.Role = acc.Role
	}
	return &c, nil
}

func (v sessionView) DeleteByID(ctx context.Context, id string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	delete(v.s.sessions, id)
	return nil
}

// --- SeatLocker ---

func (s *Store) lockFor(cohortID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.locks[cohortID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[cohortID] = l
	}
	return l
}

// ErrCohortNotFound はロック対象のコホートが存在しない場合のエラー。
var ErrCohortNotFound = errors.New("cohort does not exist")

// WithSeatLock はコホート単位のミューテックスを取得してfnを実行する。
// fnの書き込みはステージングされ、fnがnilを返した場合のみ反映される。
func (s *Store) WithSeatLock(ctx context.Context, cohortID string, fn func(tx repository.SeatTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.lockFor(cohortID)
	l.Lock()
	defer l.Unlock()

	if !s.hasCohort(cohortID) {
		return ErrCohortNotFound
	}

	tx := &seatTx{
		s:          s,
		cohortID:   cohortID,
		applicants: make(map[string]*model.Applicant),
		events:     make(map[string]*model.PaymentEvent),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range tx.applicants {
		s.applicants[id] = a
	}
	for _, a := range tx.accounts {
		s.accounts[a.ID] = a
	}
	for id, e := range tx.events {
		s.events[id] = e
	}
	return nil
}

type seatTx struct {
	s          *Store
	cohortID   string
	applicants map[string]*model.Applicant
	accounts   []*model.Account
	events     map[string]*model.PaymentEvent
}

func (t *seatTx) FindApplicantForUpdate(ctx context.Context, id string) (*model.Applicant, error) {
	if a, ok := t.applicants[id]; ok {
		return copyApplicant(a), nil
	}
	a := t.s.Applicant(id)
	if a == nil || a.CohortID != t.cohortID {
		return nil, nil
	}
	return a, nil
}

func (t *seatTx) CountSeatHolders(ctx context.Context, excludeID string) (int, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	n := 0
	for id, a := range t.s.applicants {
		if staged, ok := t.applicants[id]; ok {
			a = staged
		}
		if a.CohortID == t.cohortID && id != excludeID && a.Status.IsSeatConsuming() {
			n++
		}
	}
	return n, nil
}

func (t *seatTx) UpdateApplicant(ctx context.Context, a *model.Applicant) error {
	if t.s.FailUpdateApplicant != nil {
		return t.s.FailUpdateApplicant
	}
	current, _ := t.FindApplicantForUpdate(ctx, a.ID)
	if current == nil {
		return fmt.Errorf("applicant %s was not updated", a.ID)
	}
	current.Status = a.Status
	current.Score = a.Score
	current.AdminNotes = a.AdminNotes
	current.UpdatedAt = a.UpdatedAt
	t.applicants[a.ID] = copyApplicant(current)
	return nil
}

func (t *seatTx) FindAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	for _, a := range t.accounts {
		if a.Email == email {
			c := *a
			return &c, nil
		}
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.accountByEmailLocked(email), nil
}

func (t *seatTx) CreateAccount(ctx context.Context, a *model.Account) (bool, error) {
	if t.s.FailCreateAccount != nil {
		return false, t.s.FailCreateAccount
	}
	if existing, _ := t.FindAccountByEmail(ctx, a.Email); existing != nil {
		return false, nil
	}
	c := *a
	t.accounts = append(t.accounts, &c)
	return true, nil
}

func (t *seatTx) ClaimPaymentEvent(ctx context.Context, eventID, applicantID string) (bool, error) {
	if t.s.FailClaimEvent != nil {
		return false, t.s.FailClaimEvent
	}
	if _, ok := t.events[eventID]; ok {
		return false, nil
	}
	if t.s.PaymentEvent(eventID) != nil {
		return false, nil
	}
	t.events[eventID] = &model.PaymentEvent{ID: eventID, ApplicantID: applicantID, Outcome: "processing", ProcessedAt: time.Now()}
	return true, nil
}

func (t *seatTx) SetPaymentEventOutcome(ctx context.Context, eventID string, outcome model.PaymentOutcome) error {
	e, ok := t.events[eventID]
	if !ok {
		return fmt.Errorf("payment event %s was not claimed", eventID)
	}
	e.Outcome = outcome
	return nil
}

var (
	_ repository.CohortRepository    = (*Store)(nil)
	_ repository.SeatLocker          = (*Store)(nil)
	_ repository.ApplicantRepository = applicantView{}
	_ repository.AccountRepository   = accountView{}
	_ repository.SessionRepository   = sessionView{}
	_ repository.SeatTx              = (*seatTx)(nil)
)
