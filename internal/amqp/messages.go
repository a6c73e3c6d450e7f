package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"presupuesto/internal/core"
)

// ChangeKind names the record type whose write triggered a MonthChangedMessage.
type ChangeKind string

const (
	KindSales           ChangeKind = "sales"
	KindCommitment      ChangeKind = "commitment"
	KindPurchaseAdded   ChangeKind = "purchase_added"
	KindPurchaseDeleted ChangeKind = "purchase_deleted"
	KindSettings        ChangeKind = "settings"
)

func (k ChangeKind) IsValid() bool {
	switch k {
	case KindSales, KindCommitment, KindPurchaseAdded, KindPurchaseDeleted, KindSettings:
		return true
	default:
		return false
	}
}

// MonthChangedMessage tells consumers that the budget of a month must be recomputed.
// It carries no amounts; the worker reads current state from the store.
type MonthChangedMessage struct {
	YearMonth core.YearMonth `json:"year_month"`
	Kind      ChangeKind     `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
}

func NewMonthChangedMessage(ym core.YearMonth, kind ChangeKind) *MonthChangedMessage {
	return &MonthChangedMessage{
		YearMonth: ym,
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *MonthChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MonthChangedMessageFromJSON decodes and validates a message body.
func MonthChangedMessageFromJSON(data []byte) (*MonthChangedMessage, error) {
	var msg MonthChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Kind.IsValid() {
		return nil, fmt.Errorf("unknown change kind %q", msg.Kind)
	}
	return &msg, nil
}
