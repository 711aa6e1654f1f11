package sqlite

import (
	"context"
	"time"

	"github.com/sandevgo/gronkbot/pkg/log"
)

// Cleaner sweeps expired conversations on a fixed interval. Implements
// srv.Service.
type Cleaner struct {
	conversations *Conversations
	retention     time.Duration
	interval      time.Duration
	done          chan struct{}
}

func NewCleaner(conversations *Conversations, retention, interval time.Duration) *Cleaner {
	return &Cleaner{
		conversations: conversations,
		retention:     retention,
		interval:      interval,
		done:          make(chan struct{}),
	}
}

func (c *Cleaner) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// One sweep at startup so a long-stopped bot doesn't carry stale rows
	// until the first tick.
	c.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			c.sweep(ctx)
		case <-c.done:
			return nil
		case <-ctx.Done():
			logger.Debug().Msg("conversation cleaner stopping")
			return nil
		}
	}
}

func (c *Cleaner) Shutdown(_ context.Context) error {
	close(c.done)
	return nil
}

func (c *Cleaner) sweep(ctx context.Context) {
	logger := log.FromCtx(ctx)
	cutoff := time.Now().Add(-c.retention)

	n, err := c.conversations.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		logger.Error().Err(err).Msg("conversation cleanup failed")
		return
	}
	if n > 0 {
		logger.Info().Int64("deleted", n).Msg("cleaned up old conversations")
	}
}
