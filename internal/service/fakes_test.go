package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/KaiavN/Transac/internal/domain"
	"github.com/KaiavN/Transac/internal/logutil"
	"github.com/KaiavN/Transac/pkg/contractgen"
	"github.com/KaiavN/Transac/pkg/hash"
	"github.com/google/uuid"
)

var (
	errDatabaseDown = errors.New("connection refused")
	testLog         = logutil.Discard()
	cheapHasher     = hash.NewHasher(hash.Argon2Config{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
	err   error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*domain.User{}}
}

func (r *fakeUserRepo) add(u *domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
	return u
}

func (r *fakeUserRepo) get(id uuid.UUID) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *r.users[id]
	return &cp
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, u := range r.users {
		if u.Email == user.Email {
			return fmt.Errorf("duplicate email: %w", domain.ErrConflict)
		}
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) find(match func(*domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.ID == id })
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r *fakeUserRepo) GetByProvider(_ context.Context, provider, providerID string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool {
		return u.Provider != nil && *u.Provider == provider && u.ProviderID != nil && *u.ProviderID == providerID
	})
}

func (r *fakeUserRepo) mutate(id uuid.UUID, fn func(u *domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	u, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(u)
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	return r.mutate(user.ID, func(u *domain.User) {
		u.FullName = user.FullName
		u.IsBusinessAccount = user.IsBusinessAccount
		u.Provider = user.Provider
		u.ProviderID = user.ProviderID
	})
}

func (r *fakeUserRepo) UpdatePayment(_ context.Context, id uuid.UUID, payment domain.PaymentInfo) error {
	return r.mutate(id, func(u *domain.User) { u.PaymentInfo = payment })
}

func (r *fakeUserRepo) UpdateSignature(_ context.Context, id uuid.UUID, encryptedSignature, passwordHash string) error {
	return r.mutate(id, func(u *domain.User) {
		u.SignatureKey = &encryptedSignature
		u.SignaturePasswordHash = &passwordHash
	})
}

func (r *fakeUserRepo) UpdatePasswordHash(_ context.Context, id uuid.UUID, passwordHash string) error {
	return r.mutate(id, func(u *domain.User) { u.PasswordHash = &passwordHash })
}

func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID) error {
	return r.mutate(id, func(u *domain.User) {
		now := time.Now()
		u.LastLoginAt = &now
	})
}

// fakeOrgRepo keeps membership rows keyed by (org, user), mirroring the table's primary key.
type fakeOrgRepo struct {
	mu       sync.Mutex
	orgs     map[uuid.UUID]*domain.Organization
	members  map[[2]uuid.UUID]*domain.Membership
	activity []*domain.ActivityEntry
	users    *fakeUserRepo
	err      error
}

func newFakeOrgRepo(users *fakeUserRepo) *fakeOrgRepo {
	return &fakeOrgRepo{
		orgs:    map[uuid.UUID]*domain.Organization{},
		members: map[[2]uuid.UUID]*domain.Membership{},
		users:   users,
	}
}

func (r *fakeOrgRepo) appendLocked(entry *domain.ActivityEntry) {
	if entry == nil {
		return
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	cp := *entry
	r.activity = append(r.activity, &cp)
}

func (r *fakeOrgRepo) Create(_ context.Context, org *domain.Organization, creatorID uuid.UUID, entry *domain.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	cp := *org
	r.orgs[org.ID] = &cp
	r.members[[2]uuid.UUID{org.ID, creatorID}] = &domain.Membership{
		OrganizationID: org.ID, UserID: creatorID, Status: domain.MemberStatusEmployee, IsAdmin: true,
	}
	orgID := org.ID
	_ = r.users.mutate(creatorID, func(u *domain.User) { u.OrganizationID = &orgID })
	r.appendLocked(entry)
	return nil
}

func (r *fakeOrgRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	org, ok := r.orgs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *org
	cp.Employees, cp.EmployeeRequests, cp.AdminUsers = []uuid.UUID{}, []uuid.UUID{}, []uuid.UUID{}
	for key, m := range r.members {
		if key[0] != id {
			continue
		}
		switch m.Status {
		case domain.MemberStatusEmployee:
			cp.Employees = append(cp.Employees, m.UserID)
		case domain.MemberStatusPending:
			cp.EmployeeRequests = append(cp.EmployeeRequests, m.UserID)
		}
		if m.IsAdmin {
			cp.AdminUsers = append(cp.AdminUsers, m.UserID)
		}
	}
	return &cp, nil
}

func (r *fakeOrgRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	_, ok := r.orgs[id]
	return ok, nil
}

func (r *fakeOrgRepo) GetMembership(_ context.Context, orgID, userID uuid.UUID) (*domain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	m, ok := r.members[[2]uuid.UUID{orgID, userID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeOrgRepo) AddRequest(_ context.Context, orgID, userID uuid.UUID, entry *domain.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	key := [2]uuid.UUID{orgID, userID}
	if _, ok := r.members[key]; ok {
		return domain.ErrConflict
	}
	r.members[key] = &domain.Membership{OrganizationID: orgID, UserID: userID, Status: domain.MemberStatusPending}
	r.appendLocked(entry)
	return nil
}

func (r *fakeOrgRepo) ApproveRequest(_ context.Context, orgID, userID uuid.UUID, entry *domain.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	m, ok := r.members[[2]uuid.UUID{orgID, userID}]
	if !ok || m.Status != domain.MemberStatusPending {
		return domain.ErrNotFound
	}
	linked := false
	_ = r.users.mutate(userID, func(u *domain.User) {
		if u.OrganizationID == nil || *u.OrganizationID == orgID {
			u.OrganizationID = &orgID
			linked = true
		}
	})
	if !linked {
		return fmt.Errorf("employee already belongs to another organization: %w", domain.ErrConflict)
	}
	m.Status = domain.MemberStatusEmployee
	r.appendLocked(entry)
	return nil
}

func (r *fakeOrgRepo) RejectRequest(_ context.Context, orgID, userID uuid.UUID, entry *domain.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	key := [2]uuid.UUID{orgID, userID}
	m, ok := r.members[key]
	if !ok || m.Status != domain.MemberStatusPending {
		return domain.ErrNotFound
	}
	delete(r.members, key)
	r.appendLocked(entry)
	return nil
}

func (r *fakeOrgRepo) AppendActivity(_ context.Context, entry *domain.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.appendLocked(entry)
	return nil
}

func (r *fakeOrgRepo) ListActivity(_ context.Context, orgID uuid.UUID, limit, offset int) ([]*domain.ActivityEntry, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, 0, r.err
	}
	var all []*domain.ActivityEntry
	for _, e := range r.activity {
		if e.OrganizationID == orgID {
			all = append(all, e)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if offset >= total {
		return []*domain.ActivityEntry{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *fakeOrgRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.activity))
	for i, e := range r.activity {
		out[i] = e.Action
	}
	return out
}

type fakeContractRepo struct {
	mu        sync.Mutex
	contracts []*domain.Contract
	err       error
}

func (r *fakeContractRepo) Create(_ context.Context, c *domain.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	cp := *c
	r.contracts = append(r.contracts, &cp)
	return nil
}

func (r *fakeContractRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.contracts {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeContractRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Contract, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var mine []*domain.Contract
	for _, c := range r.contracts {
		if c.UserID == userID {
			mine = append(mine, c)
		}
	}
	total := len(mine)
	if offset >= total {
		return []*domain.Contract{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return mine[offset:end], total, nil
}

type fakeGenerator struct {
	result *contractgen.Result
	err    error
	prompt string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (*contractgen.Result, error) {
	g.prompt = prompt
	return g.result, g.err
}

type sentNotice struct {
	kind     string
	to       []string
	approved bool
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotice
	err  error
}

func (n *recordingNotifier) record(s sentNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, s)
	return n.err
}

func (n *recordingNotifier) SendWelcome(_ context.Context, to, _ string) error {
	return n.record(sentNotice{kind: "welcome", to: []string{to}})
}

func (n *recordingNotifier) SendMembershipRequested(_ context.Context, to []string, _, _, _ string) error {
	return n.record(sentNotice{kind: "requested", to: to})
}

func (n *recordingNotifier) SendMembershipResolved(_ context.Context, to, _, _ string, approved bool) error {
	return n.record(sentNotice{kind: "resolved", to: []string{to}, approved: approved})
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.sent))
	for i, s := range n.sent {
		out[i] = s.kind
	}
	return out
}

func newUser(email string) *domain.User {
	now := time.Now()
	return &domain.User{ID: uuid.New(), Email: email, FullName: "Test " + email, CreatedAt: now, UpdatedAt: now}
}
