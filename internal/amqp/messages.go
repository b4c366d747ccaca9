package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"ledger/internal/core"
)

// Event types carried in LedgerEvent.Type and in the AMQP type property.
const (
	EventSummaryRecorded = "summary.recorded"
	EventLedgerCleared   = "ledger.cleared"
)

// LedgerEvent is the message published after every ledger mutation.
// Month and Summary are set only for summary.recorded.
type LedgerEvent struct {
	Type      string               `json:"type"`
	Month     string               `json:"month,omitempty"`
	Summary   *core.MonthlySummary `json:"summary,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// NewSummaryRecordedEvent describes a summary written for month.
func NewSummaryRecordedEvent(month string, summary core.MonthlySummary, at time.Time) *LedgerEvent {
	return &LedgerEvent{
		Type:      EventSummaryRecorded,
		Month:     month,
		Summary:   &summary,
		Timestamp: at,
	}
}

// NewLedgerClearedEvent describes a full reset.
func NewLedgerClearedEvent(at time.Time) *LedgerEvent {
	return &LedgerEvent{Type: EventLedgerCleared, Timestamp: at}
}

// ToJSON converts the message to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and checks a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Type {
	case EventSummaryRecorded:
		if e.Month == "" || e.Summary == nil {
			return nil, fmt.Errorf("%s event without month or summary", e.Type)
		}
	case EventLedgerCleared:
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	return &e, nil
}
