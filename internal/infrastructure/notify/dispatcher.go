// Package notify implements the outbound notification dispatcher: a sharded
// worker pool draining invitation notices to an external delivery gateway.
// Delivery is fire-and-forget from the core's perspective; at-least-once
// with idempotent acceptance on the gateway side is sufficient.
package notify

import (
	"context"
	"hash/fnv"

	"github.com/rs/zerolog"

	"github.com/famlio/budget-api/internal/core/domain"
	"github.com/famlio/budget-api/internal/core/ports"
	"github.com/famlio/budget-api/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 128
)

// Sender performs the actual delivery of one notice.
type Sender interface {
	Deliver(ctx context.Context, notice ports.InvitationNotice) error
}

// Dispatcher routes notices to a fixed set of workers using consistent
// hashing on the target identifier, so messages to one recipient keep their
// order. It satisfies ports.NotificationDispatcher: Send enqueues and
// returns immediately unless the shard buffer is full.
type Dispatcher struct {
	workers []chan ports.InvitationNotice
	sender  Sender
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sender Sender, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.InvitationNotice, numWorkers),
		sender:  sender,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.InvitationNotice, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Send enqueues a notice for asynchronous delivery. A full shard buffer
// drops the notice and returns domain.ErrDispatchFailed so the caller can
// surface the soft warning; the invitation itself stays valid either way.
func (d *Dispatcher) Send(ctx context.Context, notice ports.InvitationNotice) error {
	select {
	case d.workers[d.shardIndex(notice.Target)] <- notice:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		d.log.Warn().Str("invitation_id", notice.InvitationID).Msg("dispatch buffer full, notice dropped")
		return domain.ErrDispatchFailed
	}
}

// shardIndex maps a target identifier deterministically to a worker index.
func (d *Dispatcher) shardIndex(target string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(target))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.InvitationNotice) {
	for {
		select {
		case <-ctx.Done():
			return
		case notice, ok := <-ch:
			if !ok {
				return
			}
			if err := d.sender.Deliver(ctx, notice); err != nil {
				metrics.DispatchFailuresTotal.Inc()
				d.log.Error().Err(err).
					Str("invitation_id", notice.InvitationID).
					Int("worker_id", id).
					Msg("notification delivery failed")
			}
		}
	}
}
