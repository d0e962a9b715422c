// Package worker runs scoring batches in response to bus events.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/pipeline"
)

// Worker listens for batch requests on the EventBus and executes the
// pipeline. Requests arriving while a batch is running are dropped; the
// pipeline rescans the full input on every run, so a queued re-run would
// only duplicate work.
type Worker struct {
	bus      domain.EventBus
	pipeline *pipeline.Pipeline

	subscriptions []domain.Subscription
	running       sync.Mutex
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// BatchRequest is the message payload for a batch run request.
type BatchRequest struct {
	RequestedBy string `json:"requestedBy,omitempty"`
	TraceID     string `json:"traceId,omitempty"`
}

// NewWorker creates a new batch worker.
func NewWorker(bus domain.EventBus, p *pipeline.Pipeline) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		pipeline: p,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start subscribes to the batch request topic.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicBatchRequested, w.handleRequest)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("batch worker started",
		"topic", domain.TopicBatchRequested,
	)
	return nil
}

// handleRequest runs one batch for an incoming request.
func (w *Worker) handleRequest(ctx context.Context, msg *domain.Message) error {
	var req BatchRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		slog.Error("failed to parse batch request",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	if !w.running.TryLock() {
		slog.Warn("batch already running, dropping request",
			"message_id", msg.ID,
			"requested_by", req.RequestedBy,
		)
		return nil
	}
	defer w.running.Unlock()

	start := time.Now()
	slog.Info("batch request received",
		"message_id", msg.ID,
		"requested_by", req.RequestedBy,
	)

	result, err := w.pipeline.Run(ctx)
	if err != nil {
		slog.Error("batch run failed",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	slog.Info("batch request completed",
		"batch_id", result.Batch.ID,
		"customers", result.Batch.Customers,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("batch worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
