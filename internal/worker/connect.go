package worker

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"dentalflow/internal/config"
	"dentalflow/internal/metrics"
	"dentalflow/internal/push"
	"dentalflow/internal/trigger"
)

// Connect dials the optional broker and redis named in cfg. The returned
// func closes whatever was opened.
func Connect(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (Options, func(), error) {
	opts := Options{Metrics: m}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.AMQPURL != "" {
		pc, err := push.NewClient(cfg.AMQPURL)
		if err != nil {
			return Options{}, func() {}, err
		}
		closers = append(closers, func() {
			if err := pc.Close(); err != nil {
				log.WithError(err).Warn("close broker connection")
			}
		})
		pub, err := push.NewPublisher(pc.Channel(), m)
		if err != nil {
			closeAll()
			return Options{}, func() {}, err
		}
		opts.Publisher = pub
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			closeAll()
			return Options{}, func() {}, fmt.Errorf("worker: ping redis: %w", err)
		}
		closers = append(closers, func() { _ = rdb.Close() })
		opts.Dedupe = trigger.NewRedisDeduper(rdb, cfg.DedupeTTL)
	}

	return opts, closeAll, nil
}
