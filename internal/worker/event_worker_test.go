package worker

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/amqp"
	"ledger/internal/core"
	applog "ledger/internal/log"
)

type countingRecorder struct {
	ok, failed int
}

func (c *countingRecorder) RecordEventConsumed(_ string, success bool) {
	if success {
		c.ok++
	} else {
		c.failed++
	}
}

func summary(income int64, date string) core.MonthlySummary {
	return core.NewMonthlySummary(core.CategoryTotals{
		Income: decimal.NewFromInt(income),
		Bills:  decimal.Zero,
		Food:   decimal.Zero,
		Other:  decimal.Zero,
	}, date)
}

func TestEventWorkerProjection(t *testing.T) {
	rec := &countingRecorder{}
	w := NewEventWorker(applog.Discard(), rec)
	ctx := context.Background()
	at := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, w.HandleEvent(ctx, amqp.NewSummaryRecordedEvent("07/2024", summary(10, "07/15/2024"), at)))
	require.NoError(t, w.HandleEvent(ctx, amqp.NewSummaryRecordedEvent("07/2024", summary(25, "07/20/2024"), at)))
	require.NoError(t, w.HandleEvent(ctx, amqp.NewSummaryRecordedEvent("08/2024", summary(30, "08/01/2024"), at)))

	latest := w.Latest()
	assert.Len(t, latest, 2)
	assert.Equal(t, "07/20/2024", latest["07/2024"].Date)
	assert.True(t, latest["07/2024"].Income.Equal(decimal.NewFromInt(25)))

	require.NoError(t, w.HandleEvent(ctx, amqp.NewLedgerClearedEvent(at)))
	assert.Empty(t, w.Latest())
	assert.Equal(t, 4, w.Seen())
	assert.Equal(t, 4, rec.ok)
}

func TestEventWorkerRejectsUnknownEvents(t *testing.T) {
	rec := &countingRecorder{}
	w := NewEventWorker(nil, rec)

	err := w.HandleEvent(context.Background(), &amqp.LedgerEvent{Type: "expense.synced"})
	assert.Error(t, err)
	err = w.HandleEvent(context.Background(), &amqp.LedgerEvent{Type: amqp.EventSummaryRecorded, Month: "07/2024"})
	assert.Error(t, err)

	assert.Equal(t, 2, rec.failed)
	assert.Equal(t, 0, w.Seen())
}
