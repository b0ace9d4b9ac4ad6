// Package publisher drains the link outbox to Kafka after an engine run.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/charterdesk/recon-engine/internal/config"
	"github.com/charterdesk/recon-engine/internal/domain/outbox"
	"github.com/charterdesk/recon-engine/internal/platform/messaging/producers"
)

// Drainer publishes pending outbox messages in batches, fanning each batch
// out over a worker pool. The engine sweep itself is single threaded; the
// fan-out happens only after links are committed, so publish order within a
// batch is not significant.
type Drainer struct {
	outboxRepo       outbox.Repository
	producer         producers.MessagePublisher
	pool             *ants.Pool
	logger           *slog.Logger
	batchSize        int
	maxRetryAttempts int
}

// NewDrainer creates a drainer with a worker pool of the given size
func NewDrainer(
	cfg *config.OutboxConfig,
	poolSize int,
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) (*Drainer, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher pool: %w", err)
	}

	return &Drainer{
		outboxRepo:       outboxRepo,
		producer:         producer,
		pool:             pool,
		logger:           logger,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}, nil
}

// Drain publishes every pending outbox message, batch by batch, until none
// remain or the context is canceled. Returns how many messages were published
// and how many failed this pass.
func (d *Drainer) Drain(ctx context.Context) (int, int, error) {
	var published, failed int64

	for {
		if err := ctx.Err(); err != nil {
			return int(published), int(failed), err
		}

		messages, err := d.outboxRepo.GetPending(ctx, d.batchSize)
		if err != nil {
			return int(published), int(failed), fmt.Errorf("failed to get pending outbox messages: %w", err)
		}
		if len(messages) == 0 {
			break
		}

		d.logger.Info("Draining outbox batch", "count", len(messages))

		var batchPublished int64
		var wg sync.WaitGroup
		for _, msg := range messages {
			msg := msg
			wg.Add(1)
			submitErr := d.pool.Submit(func() {
				defer wg.Done()
				if err := d.publishOne(ctx, msg); err != nil {
					atomic.AddInt64(&failed, 1)
				} else {
					atomic.AddInt64(&published, 1)
					atomic.AddInt64(&batchPublished, 1)
				}
			})
			if submitErr != nil {
				wg.Done()
				atomic.AddInt64(&failed, 1)
				d.logger.Error("Failed to submit outbox message to pool", "outbox_id", msg.ID, "error", submitErr)
			}
		}
		wg.Wait()

		// A batch where nothing went out means the remaining pending rows
		// are failing; stop instead of spinning on them.
		if atomic.LoadInt64(&batchPublished) == 0 {
			break
		}
	}

	return int(published), int(failed), nil
}

// publishOne pushes a single message to Kafka and advances its outbox status
func (d *Drainer) publishOne(ctx context.Context, msg *outbox.Message) error {
	event, err := msg.GetLinkEvent()
	if err != nil {
		d.logger.Error("Failed to decode link event from outbox payload", "outbox_id", msg.ID, "error", err)
		msg.MarkAsFailed()
		if updateErr := d.outboxRepo.UpdateStatus(ctx, msg.ID, msg.Status); updateErr != nil {
			d.logger.Error("Failed to mark undecodable outbox message", "outbox_id", msg.ID, "error", updateErr)
		}
		return err
	}

	if err := d.producer.Publish(ctx, event.RunID.String(), event); err != nil {
		d.logger.Error("Failed to publish link event",
			"outbox_id", msg.ID,
			"run_id", event.RunID.String(),
			"current_attempts", msg.Attempts,
			"error", err,
		)

		msg.IncrementAttempts()
		if errInc := d.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
			d.logger.Error("Failed to increment attempts for outbox message", "outbox_id", msg.ID, "error", errInc)
			return err
		}

		if msg.Attempts >= d.maxRetryAttempts {
			d.logger.Warn("Max retry attempts reached, marking as FAILED_TO_PUBLISH",
				"outbox_id", msg.ID,
				"attempts_made", msg.Attempts,
			)
			msg.MarkAsFailed()
			if errUpdate := d.outboxRepo.UpdateStatus(ctx, msg.ID, msg.Status); errUpdate != nil {
				d.logger.Error("Failed to update outbox status after max retries", "outbox_id", msg.ID, "error", errUpdate)
			}
		}
		return err
	}

	msg.MarkAsProcessed()
	if err := d.outboxRepo.UpdateStatus(ctx, msg.ID, msg.Status); err != nil {
		d.logger.Error("Publish succeeded but failed to mark outbox message as PROCESSED", "outbox_id", msg.ID, "error", err)
		return err
	}

	return nil
}

// Close releases the worker pool
func (d *Drainer) Close() {
	d.pool.Release()
}
