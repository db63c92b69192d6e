package mock

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/garnizeh/interventions/pkg/models"
	"github.com/garnizeh/interventions/pkg/repository"
)

var _ repository.Store = (*Store)(nil)

// Store is an in-memory repository.Store for tests. Set the *Err fields to
// make the matching calls fail.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	Users         []models.User
	Interventions []models.Intervention
	Sessions      map[string]models.SessionRecord

	GetUserErr    error
	ListUsersErr  error
	CreateErr     error
	GetErr        error
	ListErr       error
	UpdateErr     error
	CreateSessErr error
	GetSessErr    error

	// TxCalls counts top-level WithTx invocations.
	TxCalls int

	nextIntervID int64
}

// NewStore returns a store holding the default roster: admin1 (1), tech1 (2), tech2 (3).
func NewStore() *Store {
	return &Store{
		Users: []models.User{
			{ID: 1, Username: "admin1", Role: models.RoleAdmin},
			{ID: 2, Username: "tech1", Role: models.RoleTechnician},
			{ID: 3, Username: "tech2", Role: models.RoleTechnician},
		},
		Sessions: map[string]models.SessionRecord{},
	}
}

func (m *Store) lock() func() {
	m.mu.Lock()
	return m.mu.Unlock
}

// txView is handed to WithTx callbacks so nested WithTx calls join the
// running transaction.
type txView struct {
	*Store
}

func (t txView) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	return fn(t)
}

// WithTx serializes transactions, snapshots the state and restores it when
// fn fails.
func (m *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	m.TxCalls++
	users := slices.Clone(m.Users)
	invs := slices.Clone(m.Interventions)
	sess := make(map[string]models.SessionRecord, len(m.Sessions))
	for k, v := range m.Sessions {
		sess[k] = v
	}
	next := m.nextIntervID
	m.mu.Unlock()

	err := fn(txView{m})
	if err != nil {
		m.mu.Lock()
		m.Users, m.Interventions, m.Sessions, m.nextIntervID = users, invs, sess, next
		m.mu.Unlock()
	}
	return err
}

func (m *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	defer m.lock()()
	if m.GetUserErr != nil {
		return nil, m.GetUserErr
	}
	for _, u := range m.Users {
		if u.ID == id {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (m *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	defer m.lock()()
	if m.GetUserErr != nil {
		return nil, m.GetUserErr
	}
	for _, u := range m.Users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (m *Store) ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	defer m.lock()()
	if m.ListUsersErr != nil {
		return nil, m.ListUsersErr
	}
	var out []models.User
	for _, u := range m.Users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *Store) CountUsers(ctx context.Context) (int64, error) {
	defer m.lock()()
	return int64(len(m.Users)), nil
}

func (m *Store) CreateIntervention(ctx context.Context, i *models.Intervention) (int64, error) {
	defer m.lock()()
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	if i == nil {
		return 0, fmt.Errorf("intervention is nil")
	}
	if i.Status == "" {
		i.Status = models.StatusToDo
	}
	m.nextIntervID++
	ts := time.Now().UTC().UnixMilli()
	i.ID, i.Created, i.Updated = m.nextIntervID, ts, ts
	m.Interventions = append(m.Interventions, *i)
	return i.ID, nil
}

func (m *Store) GetIntervention(ctx context.Context, id int64) (*models.Intervention, error) {
	defer m.lock()()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, inv := range m.Interventions {
		if inv.ID == id {
			inv := inv
			return &inv, nil
		}
	}
	return nil, nil
}

func (m *Store) ListInterventions(ctx context.Context) ([]models.Intervention, error) {
	defer m.lock()()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return slices.Clone(m.Interventions), nil
}

func (m *Store) ListInterventionsByTechnician(ctx context.Context, technicianID int64) ([]models.Intervention, error) {
	defer m.lock()()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []models.Intervention
	for _, inv := range m.Interventions {
		if inv.AssignedTo(technicianID) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *Store) UpdateInterventionStatus(ctx context.Context, id int64, status models.Status) error {
	defer m.lock()()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	for i := range m.Interventions {
		if m.Interventions[i].ID == id {
			m.Interventions[i].Status = status
			m.Interventions[i].Updated = time.Now().UTC().UnixMilli()
			return nil
		}
	}
	return fmt.Errorf("intervention %d: %w", id, models.ErrNotFound)
}

func (m *Store) CreateSession(ctx context.Context, s *models.SessionRecord) error {
	defer m.lock()()
	if m.CreateSessErr != nil {
		return m.CreateSessErr
	}
	if s == nil {
		return fmt.Errorf("session is nil")
	}
	m.Sessions[s.ID] = *s
	return nil
}

func (m *Store) GetSession(ctx context.Context, id string) (*models.SessionRecord, error) {
	defer m.lock()()
	if m.GetSessErr != nil {
		return nil, m.GetSessErr
	}
	s, ok := m.Sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Store) DeleteSession(ctx context.Context, id string) error {
	defer m.lock()()
	delete(m.Sessions, id)
	return nil
}

func (m *Store) DeleteExpiredSessions(ctx context.Context, now int64) (int64, error) {
	defer m.lock()()
	var n int64
	for id, s := range m.Sessions {
		if s.Expires <= now {
			delete(m.Sessions, id)
			n++
		}
	}
	return n, nil
}
