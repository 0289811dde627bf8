// Package ledger is the transaction lifecycle engine. It is the only code
// that changes account balances as a consequence of transactions and
// transfers, and it does so only through the store's atomic units.
package ledger

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/dvloznov/finance-ledger/internal/calendar"
	"github.com/dvloznov/finance-ledger/internal/store"
)

// Engine orchestrates accounts, payment methods, transactions, settlement
// and transfers.
type Engine struct {
	store    store.Ledger
	settings store.SettingsStore
	clock    calendar.Clock
	loc      *time.Location
	newID    func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the wall-clock source. The default is the system clock.
func WithClock(c calendar.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLocation sets the zone used to turn the clock into "today".
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// WithIDGenerator replaces the random UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// New creates an engine over s. Settings (monthly budget) live in settings,
// which may be the same object as s.
func New(s store.Ledger, settings store.SettingsStore, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		settings: settings,
		clock:    calendar.SystemClock{},
		loc:      time.Local,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the persistence the engine runs on.
func (e *Engine) Store() store.Ledger { return e.store }

// Settings returns the key-value store for user-level settings.
func (e *Engine) Settings() store.SettingsStore { return e.settings }

// Now returns the current time from the engine's clock.
func (e *Engine) Now() time.Time { return e.clock.Now() }

// Today returns the current calendar date in the engine's location.
func (e *Engine) Today() civil.Date { return calendar.Today(e.clock, e.loc) }

// NewID returns a fresh entity id.
func (e *Engine) NewID() string { return e.newID() }
