package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/metrics"
	"ledger/internal/store"
)

// EventPublisher announces ledger mutations. Failures are logged, never returned
// to the caller of the mutation.
type EventPublisher interface {
	PublishSummaryRecorded(ctx context.Context, month string, summary core.MonthlySummary, at time.Time) error
	PublishLedgerCleared(ctx context.Context, at time.Time) error
	Close() error
}

// MonthEntry is one item of the recorded months list.
type MonthEntry struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// LedgerView is a snapshot of the ledger for rendering. It shares nothing
// with the service state.
type LedgerView struct {
	Months        []MonthEntry          `json:"months"`
	Totals        core.CategoryTotals   `json:"totals"`
	Selected      string                `json:"selected"`
	SelectedLabel string                `json:"selectedLabel"`
	Summaries     []core.MonthlySummary `json:"summaries"`
	Breakdown     core.Breakdown        `json:"breakdown"`
}

// HasSelection reports whether a month is selected and has summaries.
func (v LedgerView) HasSelection() bool {
	return v.Selected != "" && len(v.Summaries) > 0
}

// LedgerService owns the ledger state: running totals, the month store and
// the selected month. Every method runs as a single step under one mutex.
type LedgerService struct {
	mu sync.Mutex

	kv        store.KeyValueStore
	publisher EventPublisher
	metrics   metrics.Recorder
	clock     core.Clock
	logger    *applog.Logger
	events    *applog.StructuredLogger

	totals   core.CategoryTotals
	months   core.SummaryStore
	selected string
}

// Option configures a LedgerService.
type Option func(*LedgerService)

func WithClock(c core.Clock) Option {
	return func(s *LedgerService) { s.clock = c }
}

func WithPublisher(p EventPublisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithMetrics(m metrics.Recorder) Option {
	return func(s *LedgerService) { s.metrics = m }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *LedgerService) { s.logger = l }
}

// NewLedgerService loads the persisted snapshot from kv. Missing or corrupt
// values start from the empty ledger; only a failing backend is an error.
func NewLedgerService(ctx context.Context, kv store.KeyValueStore, opts ...Option) (*LedgerService, error) {
	if kv == nil {
		return nil, errors.New("ledger service: nil store")
	}
	s := &LedgerService{
		kv:      kv,
		metrics: metrics.Noop{},
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = applog.Wrap(nil, applog.ComponentLedger)
	}
	s.logger = s.logger.WithComponent(applog.ComponentLedger)
	s.events = applog.NewStructuredLogger(s.logger)

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *LedgerService) load(ctx context.Context) error {
	values, err := s.kv.Load(ctx, store.KeySummaries, store.KeyTotals)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	s.months = core.SummaryStore{}
	if raw, ok := values[store.KeySummaries]; ok {
		var months core.SummaryStore
		if err := json.Unmarshal([]byte(raw), &months); err != nil {
			s.logger.WarnContext(ctx, "Stored summaries are corrupt, starting empty",
				applog.FieldKey, store.KeySummaries,
				applog.FieldError, err)
		} else if months != nil {
			s.months = months
		}
	}

	s.totals = core.ZeroTotals()
	if raw, ok := values[store.KeyTotals]; ok {
		var totals core.CategoryTotals
		if err := json.Unmarshal([]byte(raw), &totals); err != nil {
			s.logger.WarnContext(ctx, "Stored totals are corrupt, starting from zero",
				applog.FieldKey, store.KeyTotals,
				applog.FieldError, err)
		} else {
			s.totals = totals
		}
	}

	s.metrics.SetMonths(len(s.months))
	s.logger.InfoContext(ctx, "Ledger loaded",
		applog.FieldOperation, applog.OpLoad,
		applog.FieldMonths, len(s.months))
	return nil
}

// Submit adds a form submission to the running totals and records the
// resulting summary as the only summary of the current month.
func (s *LedgerService) Submit(ctx context.Context, in core.EntryInput) (core.MonthlySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	month := core.MonthKeyOf(now)
	totals, summary := core.RecordEntry(s.totals, in, now)
	months := core.UpsertMonth(s.months, month, summary)

	if err := s.persist(ctx, applog.OpSubmit, months, totals); err != nil {
		s.metrics.RecordSubmission(false)
		return core.MonthlySummary{}, fmt.Errorf("persist ledger: %w", err)
	}
	s.totals, s.months = totals, months
	s.metrics.RecordSubmission(true)
	s.metrics.SetMonths(len(s.months))

	s.events.LogSummaryRecorded(ctx, month, summary.Date,
		core.FormatAmount(summary.Income),
		core.FormatAmount(summary.TotalExpenses),
		core.FormatAmount(summary.Savings))

	if s.publisher != nil {
		err := s.publisher.PublishSummaryRecorded(ctx, month, summary, now)
		s.recordPublish(ctx, "summary.recorded", err)
	}
	return summary, nil
}

// Clear drops every month and resets the totals and the selection.
func (s *LedgerService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	if err := s.kv.Remove(ctx, store.KeySummaries, store.KeyTotals); err != nil {
		s.metrics.RecordClear(false)
		return fmt.Errorf("persist ledger: %w", err)
	}
	s.metrics.ObservePersist(applog.OpClear, time.Since(start))

	cleared := len(s.months)
	s.months, s.totals = core.Clear()
	s.selected = ""
	s.metrics.RecordClear(true)
	s.metrics.SetMonths(0)
	s.events.LogLedgerCleared(ctx, cleared)

	if s.publisher != nil {
		err := s.publisher.PublishLedgerCleared(ctx, s.clock())
		s.recordPublish(ctx, "ledger.cleared", err)
	}
	return nil
}

// Select moves the view cursor to monthKey. An empty key clears it.
func (s *LedgerService) Select(monthKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if monthKey == "" {
		s.selected = ""
		return nil
	}
	if _, ok := s.months[monthKey]; !ok {
		if _, valid := core.ParseMonthKey(monthKey); !valid {
			return fmt.Errorf("select %q: %w", monthKey, core.ErrInvalidMonthKey)
		}
		return fmt.Errorf("select %q: %w", monthKey, core.ErrUnknownMonth)
	}
	s.selected = monthKey
	return nil
}

// View returns the current state for rendering.
func (s *LedgerService) View() LedgerView {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.months))
	for k := range s.months {
		keys = append(keys, k)
	}
	ordered, invalid := core.SortMonthKeys(keys)
	for _, k := range invalid {
		s.logger.Warn("Recorded month has an invalid key", applog.FieldMonth, k)
	}

	v := LedgerView{
		Months:    make([]MonthEntry, len(ordered)),
		Totals:    s.totals,
		Selected:  s.selected,
		Summaries: []core.MonthlySummary{},
	}
	for i, k := range ordered {
		v.Months[i] = MonthEntry{Key: k, Label: core.DisplayMonth(k)}
	}
	if s.selected != "" {
		v.SelectedLabel = core.DisplayMonth(s.selected)
		v.Summaries = append(v.Summaries, s.months[s.selected]...)
	}
	v.Breakdown = core.BreakdownOf(v.Summaries)
	return v
}

// Ping checks that the backend still answers.
func (s *LedgerService) Ping(ctx context.Context) error {
	_, err := s.kv.Load(ctx, store.KeyTotals)
	return err
}

// persist writes both snapshot keys in one backend call.
func (s *LedgerService) persist(ctx context.Context, op string, months core.SummaryStore, totals core.CategoryTotals) error {
	monthsJSON, err := json.Marshal(months)
	if err != nil {
		return fmt.Errorf("encode summaries: %w", err)
	}
	totalsJSON, err := json.Marshal(totals)
	if err != nil {
		return fmt.Errorf("encode totals: %w", err)
	}

	start := time.Now()
	err = s.kv.Save(ctx, map[string]string{
		store.KeySummaries: string(monthsJSON),
		store.KeyTotals:    string(totalsJSON),
	})
	s.metrics.ObservePersist(op, time.Since(start))
	return err
}

func (s *LedgerService) recordPublish(ctx context.Context, eventType string, err error) {
	s.metrics.RecordEventPublished(eventType, err == nil)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			applog.FieldEventType, eventType,
			applog.FieldOperation, applog.OpPublish,
			applog.FieldError, err)
	}
}

// Close closes the backend and the publisher.
func (s *LedgerService) Close() error {
	var errs []error

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	if err := s.kv.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}
