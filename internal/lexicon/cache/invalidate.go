package cache

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/m3ajem-lexicon/pkg/logger"
)

// Purger drops memoized state derived from dictionary text.
type Purger interface {
	Invalidate()
}

// HandleInvalidate returns a Kafka handler that flushes c, and every purger,
// when the index builder announces changed dictionary data. Flush failures
// are returned so the consumer retries the message.
func HandleInvalidate(c *DiscoverCache, purgers ...Purger) kafka.MessageHandler {
	log := logger.WithComponent("cache-invalidator")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[analytics.InvalidateEvent](value)
		if err != nil {
			log.Error("failed to decode invalidate event", "error", err, "key", string(key))
			return nil
		}
		for _, p := range purgers {
			p.Invalidate()
		}
		if c == nil {
			return nil
		}
		removed, err := c.Invalidate(ctx)
		if err != nil {
			return err
		}
		log.Info("discovery cache invalidated",
			"reason", event.Reason,
			"roots", event.Roots,
			"removed", removed,
		)
		return nil
	}
}
