package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"dentalflow/internal/model"
)

// Memory is an in-process Store used for local runs and tests. Writes emit
// the same events the Postgres triggers would.
type Memory struct {
	mu           sync.Mutex
	seq          int64
	appointments map[string]memAppointment
	dentists     map[string]model.Dentist
	accounts     map[string]model.Account
	tokens       map[string]RefreshToken
	mail         map[string]memMail
	events       chan Event
}

type memAppointment struct {
	model.Appointment
	seq int64
}

type memMail struct {
	model.MailEnvelope
	seq int64
}

func NewMemory() *Memory {
	return &Memory{
		appointments: map[string]memAppointment{},
		dentists:     map[string]model.Dentist{},
		accounts:     map[string]model.Account{},
		tokens:       map[string]RefreshToken{},
		mail:         map[string]memMail{},
		events:       make(chan Event, 256),
	}
}

func (m *Memory) Ping(context.Context) error { return nil }

// emit must be called with mu held.
func (m *Memory) emit(collection, op, id, state string) {
	ev := Event{Collection: collection, Op: op, ID: id, State: state, TxID: m.seq}
	select {
	case m.events <- ev:
	default:
		log.WithFields(log.Fields{"collection": collection, "id": id}).Warn("memory store: event buffer full, dropping")
	}
}

func (m *Memory) next() (int64, time.Time) {
	m.seq++
	return m.seq, time.Now().UTC()
}

// Listen delivers events to handle until ctx is done.
func (m *Memory) Listen(ctx context.Context, handle func(context.Context, Event)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-m.events:
			handle(ctx, ev)
		}
	}
}

func (m *Memory) CreateAppointment(_ context.Context, a *model.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seq, now := m.next()
	a.ID = uuid.New().String()
	if a.EmailStatus == "" {
		a.EmailStatus = model.EmailUnknown
	}
	if a.Status == "" {
		a.Status = model.StatusScheduled
	}
	a.Version = 1
	a.CreatedAt, a.UpdatedAt = now, now
	m.appointments[a.ID] = memAppointment{Appointment: *a, seq: seq}
	m.emit(CollectionAppointments, OpInsert, a.ID, "")
	return nil
}

func (m *Memory) ListAppointmentsByDentist(_ context.Context, dentistID string) ([]model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []model.Appointment{}
	for _, a := range m.appointments {
		if a.DentistID == dentistID {
			out = append(out, a.Appointment)
		}
	}
	return out, nil
}

func (m *Memory) GetAppointment(_ context.Context, id string) (*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := a.Appointment
	return &cp, nil
}

func (m *Memory) UpdateAppointment(_ context.Context, a *model.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.appointments[a.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != a.Version {
		return ErrConflict
	}
	_, now := m.next()
	a.EmailStatus = cur.EmailStatus
	a.CreatedBy = cur.CreatedBy
	a.CreatedAt = cur.CreatedAt
	a.Version = cur.Version + 1
	a.UpdatedAt = now
	cur.Appointment = *a
	m.appointments[a.ID] = cur
	return nil
}

func (m *Memory) DeleteAppointment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.appointments[id]; !ok {
		return ErrNotFound
	}
	delete(m.appointments, id)
	return nil
}

func (m *Memory) LatestAppointmentByPatientEmail(_ context.Context, email string) (*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var found *memAppointment
	for _, a := range m.appointments {
		if a.PatientEmail != email {
			continue
		}
		if found == nil || a.seq > found.seq {
			cp := a
			found = &cp
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	cp := found.Appointment
	return &cp, nil
}

func (m *Memory) SetEmailStatus(_ context.Context, id string, st model.EmailStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok {
		return ErrNotFound
	}
	_, now := m.next()
	a.EmailStatus = st
	a.Version++
	a.UpdatedAt = now
	m.appointments[id] = a
	return nil
}

func (m *Memory) PutDentist(_ context.Context, d model.Dentist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dentists[d.ID]; ok {
		return ErrDuplicate
	}
	m.dentists[d.ID] = d
	return nil
}

func (m *Memory) GetDentist(_ context.Context, id string) (*model.Dentist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.dentists[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m *Memory) CreateAccount(_ context.Context, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.accounts {
		if existing.Email == a.Email {
			return ErrDuplicate
		}
	}
	_, now := m.next()
	a.CreatedAt, a.UpdatedAt = now, now
	m.accounts[a.ID] = *a
	return nil
}

func (m *Memory) AccountByEmail(_ context.Context, email string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.accounts {
		if a.Email == email {
			cp := a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) AccountByID(_ context.Context, id string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *Memory) CreateRefreshToken(_ context.Context, accountID, tokenHash string, expiresAt time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	_, now := m.next()
	m.tokens[id] = RefreshToken{ID: id, AccountID: accountID, TokenHash: tokenHash, ExpiresAt: expiresAt, CreatedAt: now}
	return id, nil
}

func (m *Memory) RefreshTokenByHash(_ context.Context, tokenHash string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rt := range m.tokens {
		if rt.TokenHash == tokenHash {
			cp := rt
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) RotateRefreshToken(_ context.Context, oldID, newID, accountID, newHash string, newExpiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.tokens[oldID]
	if !ok || old.Revoked {
		return ErrConflict
	}
	old.Revoked = true
	old.ReplacedBy = &newID
	m.tokens[oldID] = old

	_, now := m.next()
	m.tokens[newID] = RefreshToken{ID: newID, AccountID: accountID, TokenHash: newHash, ExpiresAt: newExpiry, CreatedAt: now}
	return nil
}

func (m *Memory) RevokeAllRefreshTokens(_ context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, rt := range m.tokens {
		if rt.AccountID == accountID && !rt.Revoked {
			rt.Revoked = true
			m.tokens[id] = rt
		}
	}
	return nil
}

func (m *Memory) CreateMail(_ context.Context, env *model.MailEnvelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seq, now := m.next()
	env.ID = uuid.New().String()
	env.Delivery = model.Delivery{State: model.DeliveryPending}
	env.CreatedAt, env.UpdatedAt = now, now
	m.mail[env.ID] = memMail{MailEnvelope: *env, seq: seq}
	return nil
}

func (m *Memory) GetMail(_ context.Context, id string) (*model.MailEnvelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	env, ok := m.mail[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := env.MailEnvelope
	return &cp, nil
}

func (m *Memory) PendingMail(_ context.Context, limit int) ([]model.MailEnvelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pending []memMail
	for _, env := range m.mail {
		if env.Delivery.State == model.DeliveryPending {
			pending = append(pending, env)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].seq < pending[j].seq })
	var out []model.MailEnvelope
	for _, env := range pending {
		if len(out) == limit {
			break
		}
		out = append(out, env.MailEnvelope)
	}
	return out, nil
}

func (m *Memory) ClaimMail(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	env, ok := m.mail[id]
	if !ok || env.Delivery.State != model.DeliveryPending {
		return false, nil
	}
	_, now := m.next()
	env.Delivery.State = model.DeliveryProcessing
	env.Delivery.Attempts++
	env.Delivery.StartedAt = &now
	env.UpdatedAt = now
	m.mail[id] = env
	m.emit(CollectionMail, OpUpdate, id, string(env.Delivery.State))
	return true, nil
}

func (m *Memory) CompleteMail(_ context.Context, id string, state model.DeliveryState, deliveryErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	env, ok := m.mail[id]
	if !ok {
		return ErrNotFound
	}
	_, now := m.next()
	env.Delivery.State = state
	env.Delivery.Error = deliveryErr
	env.Delivery.EndedAt = &now
	env.UpdatedAt = now
	m.mail[id] = env
	m.emit(CollectionMail, OpUpdate, id, string(state))
	return nil
}
