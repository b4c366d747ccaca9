package worker

import (
	"context"
	"fmt"
	"sync"

	"ledger/internal/amqp"
	"ledger/internal/core"
	applog "ledger/internal/log"
)

// ConsumedRecorder counts processed events.
type ConsumedRecorder interface {
	RecordEventConsumed(eventType string, success bool)
}

// EventWorker follows the ledger event stream and keeps the latest summary
// of every month, the same projection the ledger itself holds.
type EventWorker struct {
	logger  *applog.Logger
	metrics ConsumedRecorder

	mu     sync.Mutex
	latest map[string]core.MonthlySummary
	seen   int
}

func NewEventWorker(logger *applog.Logger, metrics ConsumedRecorder) *EventWorker {
	if logger == nil {
		logger = applog.Wrap(nil, applog.ComponentWorker)
	}
	return &EventWorker{
		logger:  logger.WithComponent(applog.ComponentWorker),
		metrics: metrics,
		latest:  map[string]core.MonthlySummary{},
	}
}

// HandleEvent applies one event. It matches amqp.EventHandler.
func (w *EventWorker) HandleEvent(ctx context.Context, e *amqp.LedgerEvent) error {
	err := w.apply(ctx, e)
	if w.metrics != nil {
		w.metrics.RecordEventConsumed(e.Type, err == nil)
	}
	return err
}

func (w *EventWorker) apply(ctx context.Context, e *amqp.LedgerEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch e.Type {
	case amqp.EventSummaryRecorded:
		if e.Summary == nil {
			return fmt.Errorf("%s: missing summary", e.Type)
		}
		w.latest[e.Month] = *e.Summary
		w.seen++
		w.logger.InfoContext(ctx, "Summary recorded",
			applog.FieldOperation, applog.OpConsume,
			applog.FieldMonth, e.Month,
			applog.FieldMonths, len(w.latest),
			applog.FieldDate, core.DisplayDay(e.Summary.Date),
			applog.FieldIncome, core.FormatAmount(e.Summary.Income),
			applog.FieldTotalExpenses, core.FormatAmount(e.Summary.TotalExpenses),
			applog.FieldSavings, core.FormatAmount(e.Summary.Savings))
	case amqp.EventLedgerCleared:
		dropped := len(w.latest)
		clear(w.latest)
		w.seen++
		w.logger.InfoContext(ctx, "Ledger cleared",
			applog.FieldOperation, applog.OpConsume,
			applog.FieldMonths, dropped,
			"at", e.Timestamp)
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}

// Latest returns a copy of the latest summary per month.
func (w *EventWorker) Latest() map[string]core.MonthlySummary {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]core.MonthlySummary, len(w.latest))
	for k, v := range w.latest {
		out[k] = v
	}
	return out
}

// Seen returns how many events were applied.
func (w *EventWorker) Seen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seen
}
