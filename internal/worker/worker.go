package worker

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"dentalflow/internal/config"
	"dentalflow/internal/mail"
	"dentalflow/internal/metrics"
	"dentalflow/internal/trigger"
)

type Store interface {
	mail.Outbox
	trigger.Documents
	trigger.AppointmentMarker
}

// Options holds the optional collaborators. A nil Publisher disables the
// fan-out trigger and a nil Dedupe handles every event.
type Options struct {
	Publisher trigger.Publisher
	Dedupe    trigger.Deduper
	Metrics   *metrics.Metrics
}

// Worker runs the mail dispatcher next to the document trigger router.
type Worker struct {
	dispatcher *mail.Dispatcher
	router     *trigger.Router
	source     trigger.Source
}

func New(cfg *config.Config, st Store, src trigger.Source, sender mail.Sender, opts Options) *Worker {
	var fanout *trigger.FanOut
	if opts.Publisher != nil {
		fanout = trigger.NewFanOut(opts.Publisher, cfg.PushTopic)
	} else {
		log.Warn("worker: no push publisher configured, fan-out disabled")
	}

	return &Worker{
		dispatcher: mail.NewDispatcher(st, sender, opts.Metrics).
			WithBatchSize(cfg.MailBatchSize).
			WithInterval(cfg.MailPollInterval),
		router: trigger.NewRouter(st, trigger.NewReconciler(st), fanout, opts.Dedupe, opts.Metrics),
		source: src,
	}
}

// Run blocks until ctx is done or the event source fails. A cancelled ctx
// is a clean stop and returns nil.
func (w *Worker) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.dispatcher.Run(ctx)
	}()

	err := w.router.Run(ctx, w.source)
	cancel()
	wg.Wait()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
