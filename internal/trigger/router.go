package trigger

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dentalflow/internal/metrics"
	"dentalflow/internal/model"
	"dentalflow/internal/store"
)

// Documents loads the document an event points at.
type Documents interface {
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
	GetMail(ctx context.Context, id string) (*model.MailEnvelope, error)
}

const (
	triggerReconcile = "reconcile"
	triggerFanOut    = "fanout"
)

// Router dispatches document events to the reconciliation and fan-out
// triggers. Either trigger may be nil to disable it.
type Router struct {
	docs       Documents
	reconciler *Reconciler
	fanout     *FanOut
	dedupe     Deduper
	metrics    *metrics.Metrics
}

func NewRouter(docs Documents, r *Reconciler, f *FanOut, d Deduper, m *metrics.Metrics) *Router {
	return &Router{docs: docs, reconciler: r, fanout: f, dedupe: d, metrics: m}
}

// Run blocks until src stops.
func (rt *Router) Run(ctx context.Context, src Source) error {
	return src.Listen(ctx, rt.Handle)
}

func (rt *Router) Handle(ctx context.Context, ev store.Event) {
	var name string
	switch {
	case ev.Collection == store.CollectionMail && ev.Op == store.OpUpdate && rt.reconciler != nil:
		name = triggerReconcile
	case ev.Collection == store.CollectionAppointments && ev.Op == store.OpInsert && rt.fanout != nil:
		name = triggerFanOut
	default:
		return
	}

	entry := log.WithFields(log.Fields{"trigger": name, "collection": ev.Collection, "id": ev.ID})
	if rt.dedupe != nil {
		ok, err := rt.dedupe.Claim(ctx, ev.Key())
		if err != nil {
			// redis down: handle anyway
			entry.WithError(err).Warn("trigger: dedupe claim failed")
		} else if !ok {
			rt.metrics.ObserveTrigger(name, "duplicate")
			return
		}
	}

	ctx, span := otel.Tracer("dentalflow/trigger").Start(ctx, "trigger."+name,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("document.collection", ev.Collection),
			attribute.String("document.id", ev.ID),
		))
	defer span.End()

	outcome, err := rt.dispatch(ctx, name, ev)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		entry.WithError(err).Error("trigger: handler failed")
	}
	rt.metrics.ObserveTrigger(name, outcome)
}

func (rt *Router) dispatch(ctx context.Context, name string, ev store.Event) (string, error) {
	switch name {
	case triggerReconcile:
		// the event carries the state this write left; the stored row may
		// already be further along
		if ev.State != "" && model.DeliveryState(ev.State) != model.DeliveryError {
			return "skipped", nil
		}
		env, err := rt.docs.GetMail(ctx, ev.ID)
		if err != nil {
			return "error", err
		}
		if ev.State != "" {
			env.Delivery.State = model.DeliveryState(ev.State)
		}
		marked, err := rt.reconciler.OnMailUpdated(ctx, env)
		if err != nil {
			return "error", err
		}
		if !marked {
			return "skipped", nil
		}
		return "ok", nil
	default:
		a, err := rt.docs.GetAppointment(ctx, ev.ID)
		if err != nil {
			return "error", err
		}
		if err := rt.fanout.OnAppointmentCreated(ctx, a); err != nil {
			return "error", err
		}
		return "ok", nil
	}
}
