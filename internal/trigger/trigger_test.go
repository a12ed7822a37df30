package trigger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dentalflow/internal/mail"
	"dentalflow/internal/metrics"
	"dentalflow/internal/model"
	"dentalflow/internal/push"
	"dentalflow/internal/store"
	"dentalflow/internal/trigger"
)

type fakePublisher struct {
	mu   sync.Mutex
	sent []push.Message
	err  error
}

func (f *fakePublisher) Send(_ context.Context, msg push.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakePublisher) messages() []push.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]push.Message(nil), f.sent...)
}

type failingSender struct{}

func (failingSender) Send(context.Context, mail.Message) error {
	return errors.New("550 mailbox unavailable")
}

func newAppointment(t *testing.T, st *store.Memory, name, email string) *model.Appointment {
	t.Helper()
	a := &model.Appointment{
		PatientName: name, PatientEmail: email, DentistID: "D1",
		Date: "10/05/2025", Time: "09:00", Procedure: "Cleaning",
		EmailStatus: model.EmailPending,
	}
	require.NoError(t, st.CreateAppointment(context.Background(), a))
	return a
}

func TestReconcilerMarksLatestAppointment(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	older := newAppointment(t, st, "Ana", "ana@x.com")
	newer := newAppointment(t, st, "Ana", "ana@x.com")

	marked, err := trigger.NewReconciler(st).OnMailUpdated(ctx, &model.MailEnvelope{
		ID: "m1", To: "ana@x.com", Delivery: model.Delivery{State: model.DeliveryError, Error: "bounced"},
	})
	require.NoError(t, err)
	assert.True(t, marked)

	got, err := st.GetAppointment(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EmailError, got.EmailStatus)
	assert.Equal(t, newer.Version+1, got.Version)

	got, err = st.GetAppointment(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EmailPending, got.EmailStatus)
}

func TestReconcilerIgnoresNonErrorStates(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	a := newAppointment(t, st, "Ana", "ana@x.com")
	r := trigger.NewReconciler(st)

	for _, state := range []model.DeliveryState{model.DeliveryPending, model.DeliveryProcessing, model.DeliverySuccess} {
		marked, err := r.OnMailUpdated(ctx, &model.MailEnvelope{To: "ana@x.com", Delivery: model.Delivery{State: state}})
		require.NoError(t, err)
		assert.False(t, marked, state)
	}

	got, err := st.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EmailPending, got.EmailStatus)
}

func TestReconcilerNoMatchingAppointment(t *testing.T) {
	marked, err := trigger.NewReconciler(store.NewMemory()).OnMailUpdated(context.Background(), &model.MailEnvelope{
		To: "nobody@x.com", Delivery: model.Delivery{State: model.DeliveryError},
	})
	require.NoError(t, err)
	assert.False(t, marked)
}

func TestFanOutMessage(t *testing.T) {
	pub := &fakePublisher{}
	f := trigger.NewFanOut(pub, "")

	err := f.OnAppointmentCreated(context.Background(), &model.Appointment{PatientName: "Ana", Date: "10/05/2025", Time: "09:00"})
	require.NoError(t, err)

	msgs := pub.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "New appointment scheduled!", msgs[0].Title)
	assert.Equal(t, "Patient: Ana on 10/05/2025 at 09:00.", msgs[0].Body)
	assert.Equal(t, "default", msgs[0].Sound)
	assert.Equal(t, "all", msgs[0].Topic)
}

func TestFanOutPublishError(t *testing.T) {
	f := trigger.NewFanOut(&fakePublisher{err: errors.New("broker gone")}, "all")
	assert.Error(t, f.OnAppointmentCreated(context.Background(), &model.Appointment{}))
}

func TestRedisDeduper(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	d := trigger.NewRedisDeduper(client, time.Minute)
	ctx := context.Background()

	ok, err := d.Claim(ctx, "mail:UPDATE:m1:7")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Claim(ctx, "mail:UPDATE:m1:7")
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = d.Claim(ctx, "mail:UPDATE:m1:7")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisDeduperUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err := trigger.NewRedisDeduper(client, 0).Claim(context.Background(), "k")
	assert.Error(t, err)
}

func TestRouterDedupesAcrossReplicas(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	a := newAppointment(t, st, "Ana", "ana@x.com")

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	dedupe := trigger.NewRedisDeduper(client, time.Minute)

	pub := &fakePublisher{}
	m := metrics.New(prometheus.NewRegistry())
	first := trigger.NewRouter(st, nil, trigger.NewFanOut(pub, "all"), dedupe, m)
	second := trigger.NewRouter(st, nil, trigger.NewFanOut(pub, "all"), dedupe, m)

	ev := store.Event{Collection: store.CollectionAppointments, Op: store.OpInsert, ID: a.ID, TxID: 1}
	first.Handle(ctx, ev)
	second.Handle(ctx, ev)

	assert.Len(t, pub.messages(), 1)
}

func TestRouterIgnoresUnroutedEvents(t *testing.T) {
	pub := &fakePublisher{}
	rt := trigger.NewRouter(store.NewMemory(), nil, trigger.NewFanOut(pub, "all"), nil, nil)

	rt.Handle(context.Background(), store.Event{Collection: store.CollectionAppointments, Op: store.OpUpdate, ID: "a1"})
	rt.Handle(context.Background(), store.Event{Collection: store.CollectionMail, Op: store.OpUpdate, ID: "m1"})

	assert.Empty(t, pub.messages())
}

func TestReconcileUsesStateCarriedByEvent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	a := newAppointment(t, st, "Ana", "ana@x.com")
	env := &model.MailEnvelope{To: "ana@x.com", Subject: "s", Text: "t", AppointmentID: a.ID}
	require.NoError(t, st.CreateMail(ctx, env))
	claimed, err := st.ClaimMail(ctx, env.ID)
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, st.CompleteMail(ctx, env.ID, model.DeliveryError, "bounced"))

	rt := trigger.NewRouter(st, trigger.NewReconciler(st), nil, nil, nil)

	// the claim notification arrives after the row already reads ERROR
	rt.Handle(ctx, store.Event{Collection: store.CollectionMail, Op: store.OpUpdate, ID: env.ID,
		State: string(model.DeliveryProcessing), TxID: 2})
	got, err := st.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EmailPending, got.EmailStatus)
	assert.Equal(t, int64(1), got.Version)

	rt.Handle(ctx, store.Event{Collection: store.CollectionMail, Op: store.OpUpdate, ID: env.ID,
		State: string(model.DeliveryError), TxID: 3})
	got, err = st.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EmailError, got.EmailStatus)
	assert.Equal(t, int64(2), got.Version)
}

func TestFailedMailMarksAppointment(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.NewMemory()
	a := newAppointment(t, st, "Ana", "ana@x.com")
	require.NoError(t, st.CreateMail(ctx, &model.MailEnvelope{
		To: "ana@x.com", Subject: "Appointment Confirmation - DentalFlow", Text: "Hello", AppointmentID: a.ID,
	}))

	pub := &fakePublisher{}
	rt := trigger.NewRouter(st, trigger.NewReconciler(st), trigger.NewFanOut(pub, "all"), nil, nil)
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx, st) }()

	assert.Equal(t, 1, mail.NewDispatcher(st, failingSender{}, nil).Drain(ctx))

	require.Eventually(t, func() bool {
		got, err := st.GetAppointment(ctx, a.ID)
		return err == nil && got.EmailStatus == model.EmailError
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return len(pub.messages()) == 1 }, 2*time.Second, 10*time.Millisecond)

	// claim and failure notifications both went through; only the failure marks
	got, err := st.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
