package notification

import (
	"context"
	"log/slog"
	"time"

	"chat-core/contract"
	"chat-core/domain"
)

var _ contract.Worker = (*DeliveryWorker)(nil)

// DeliveryWorker drains one channel's queue and hands each notification to
// the gateway. One worker per channel keeps per-channel delivery in creation
// order. Failures are logged and not retried here: retry and backoff belong
// to the gateway implementations outside the core.
type DeliveryWorker struct {
	channel domain.Channel
	queue   <-chan domain.Notification
	gateway contract.Gateway
	log     *slog.Logger
}

func NewDeliveryWorker(channel domain.Channel, queue <-chan domain.Notification,
	gateway contract.Gateway, log *slog.Logger) *DeliveryWorker {
	return &DeliveryWorker{channel: channel, queue: queue, gateway: gateway, log: log}
}

func (w *DeliveryWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("stopping delivery worker", "channel", w.channel)
			return nil
		case n, ok := <-w.queue:
			if !ok {
				return nil
			}
			if err := w.gateway.Deliver(ctx, w.channel, n); err != nil {
				w.log.Error("channel delivery failed",
					"channel", w.channel, "notification_id", n.ID, "error", err)
			}
		}
	}
}

// SweepWorker runs the expiry sweep on a fixed interval.
type SweepWorker struct {
	dispatcher *Dispatcher
	interval   time.Duration
	log        *slog.Logger
}

var _ contract.Worker = (*SweepWorker)(nil)

func NewSweepWorker(dispatcher *Dispatcher, interval time.Duration, log *slog.Logger) *SweepWorker {
	return &SweepWorker{dispatcher: dispatcher, interval: interval, log: log}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("stopping sweep worker")
			return nil
		case <-ticker.C:
			if _, err := w.dispatcher.SweepExpired(ctx); err != nil {
				w.log.Error("expiry sweep failed", "error", err)
			}
		}
	}
}
