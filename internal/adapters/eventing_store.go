package adapters

import (
	"context"
	"log/slog"
	"time"

	"presupuesto/internal/amqp"
	"presupuesto/internal/core"
	"presupuesto/internal/ports"

	"github.com/shopspring/decimal"
)

var now = time.Now

func nowIn(s core.GlobalSettings) time.Time {
	return now().In(s.Location())
}

// Publisher announces that a month's budget changed.
type Publisher interface {
	PublishMonthChanged(ctx context.Context, ym core.YearMonth, kind amqp.ChangeKind) error
}

// EventingStore decorates a ports.Store and publishes a month-changed event
// after every successful write. Publish failures are logged and never fail the write.
type EventingStore struct {
	ports.Store
	publisher Publisher
	logger    *slog.Logger
}

func NewEventingStore(store ports.Store, publisher Publisher, logger *slog.Logger) *EventingStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventingStore{Store: store, publisher: publisher, logger: logger}
}

func (s *EventingStore) UpsertGlobalSettings(ctx context.Context, patch core.SettingsPatch) (core.GlobalSettings, error) {
	out, err := s.Store.UpsertGlobalSettings(ctx, patch)
	if err != nil {
		return out, err
	}
	// A percent change moves the budget of the current month in its own timezone.
	s.publish(ctx, core.YearMonthOf(nowIn(out)), amqp.KindSettings)
	return out, nil
}

func (s *EventingStore) SetSales(ctx context.Context, ym core.YearMonth, amount decimal.Decimal) (core.SalesRecord, error) {
	rec, err := s.Store.SetSales(ctx, ym, amount)
	if err != nil {
		return rec, err
	}
	s.publish(ctx, ym, amqp.KindSales)
	return rec, nil
}

func (s *EventingStore) UpsertCommitment(ctx context.Context, date core.Date, patch core.CommitmentPatch) (core.CommitmentRecord, error) {
	rec, err := s.Store.UpsertCommitment(ctx, date, patch)
	if err != nil {
		return rec, err
	}
	s.publish(ctx, rec.YearMonth, amqp.KindCommitment)
	return rec, nil
}

func (s *EventingStore) AddPurchase(ctx context.Context, p core.PurchaseRecord) (string, error) {
	id, err := s.Store.AddPurchase(ctx, p)
	if err != nil {
		return id, err
	}
	s.publish(ctx, p.YearMonth, amqp.KindPurchaseAdded)
	return id, nil
}

func (s *EventingStore) DeletePurchase(ctx context.Context, id string) (core.PurchaseRecord, error) {
	p, err := s.Store.DeletePurchase(ctx, id)
	if err != nil {
		return p, err
	}
	s.publish(ctx, p.YearMonth, amqp.KindPurchaseDeleted)
	return p, nil
}

func (s *EventingStore) publish(ctx context.Context, ym core.YearMonth, kind amqp.ChangeKind) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishMonthChanged(ctx, ym, kind); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish month changed event",
			"year_month", ym.String(),
			"kind", string(kind),
			"error", err)
	}
}

// Close closes the wrapped store and, when it has one, the publisher.
func (s *EventingStore) Close() error {
	err := s.Store.Close()
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Ping forwards health checks to the wrapped store.
func (s *EventingStore) Ping(ctx context.Context) error {
	if p, ok := s.Store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
