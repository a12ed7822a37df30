package trigger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"dentalflow/internal/store"
)

// Source delivers document events until ctx is done.
type Source interface {
	Listen(ctx context.Context, handle func(context.Context, store.Event)) error
}

// Listener is the Postgres Source: it takes one connection out of the pool
// for the lifetime of Listen and waits on the NOTIFY channel. The connection
// is closed afterwards, never returned to the pool while still listening.
type Listener struct {
	pool *pgxpool.Pool
}

func NewListener(pool *pgxpool.Pool) *Listener {
	return &Listener{pool: pool}
}

func (l *Listener) Listen(ctx context.Context, handle func(context.Context, store.Event)) error {
	pooled, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("trigger: acquire listen connection: %w", err)
	}
	conn := pooled.Hijack()
	defer func() {
		if err := conn.Close(context.Background()); err != nil {
			log.WithError(err).Debug("trigger: close listen connection")
		}
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+store.Channel); err != nil {
		return fmt.Errorf("trigger: listen: %w", err)
	}
	log.WithField("channel", store.Channel).Info("trigger: listening for document events")

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("trigger: wait for notification: %w", err)
		}
		ev, err := store.ParseEvent(n.Payload)
		if err != nil {
			log.WithError(err).Warn("trigger: skipping malformed event")
			continue
		}
		handle(ctx, ev)
	}
}

var (
	_ Source = (*Listener)(nil)
	_ Source = (*store.Memory)(nil)
)
