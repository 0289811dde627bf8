// Package recurring manages recurring transaction templates and expands them
// into ledger transactions, including catch-up after downtime.
package recurring

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/dvloznov/finance-ledger/internal/money"
	"github.com/dvloznov/finance-ledger/internal/store"
)

// Service owns the template lifecycle and the scheduler.
type Service struct {
	engine    *ledger.Engine
	templates store.RecurringStore
	settings  store.SettingsStore

	// catchUpMu serializes CatchUp runs within the process.
	catchUpMu sync.Mutex
}

// New creates a Service. Generated transactions go through engine, templates
// live in the engine's store and the watermark in its settings store.
func New(engine *ledger.Engine) *Service {
	return &Service{
		engine:    engine,
		templates: engine.Store(),
		settings:  engine.Settings(),
	}
}

// checkReferences makes sure the template's payment method and, when set,
// its account exist.
func (s *Service) checkReferences(ctx context.Context, r domain.RecurringTransaction) error {
	if _, err := s.engine.GetPaymentMethod(ctx, r.PaymentMethodID); err != nil {
		return fmt.Errorf("payment method: %w", err)
	}
	if r.AssetAccountID != "" {
		if _, err := s.engine.GetAccount(ctx, r.AssetAccountID); err != nil {
			return fmt.Errorf("asset account: %w", err)
		}
	}
	return nil
}

// Create stores a new active template.
func (s *Service) Create(ctx context.Context, r domain.RecurringTransaction) (domain.RecurringTransaction, error) {
	now := s.engine.Now()
	r.ID = s.engine.NewID()
	r.Active = true
	r.CreatedAt = now
	r.UpdatedAt = now

	if err := r.Validate(); err != nil {
		return domain.RecurringTransaction{}, fmt.Errorf("Create: %w", err)
	}
	if err := s.checkReferences(ctx, r); err != nil {
		return domain.RecurringTransaction{}, fmt.Errorf("Create: %w", err)
	}
	if err := s.templates.SaveRecurring(ctx, r); err != nil {
		return domain.RecurringTransaction{}, fmt.Errorf("Create: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("recurring_id", r.ID).
		Str("frequency", string(r.Frequency)).
		Str("start_date", r.StartDate.String()).
		Msg("Recurring template created")
	return r, nil
}

// Update replaces every editable field of a template. Activity is kept from
// the stored template; only Toggle and Apply change it.
func (s *Service) Update(ctx context.Context, id string, r domain.RecurringTransaction) (domain.RecurringTransaction, error) {
	existing, err := s.templates.GetRecurring(ctx, id)
	if err != nil {
		return domain.RecurringTransaction{}, fmt.Errorf("Update: %w", err)
	}
	r.ID = id
	r.Active = existing.Active
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = s.engine.Now()

	if err := r.Validate(); err != nil {
		return domain.RecurringTransaction{}, fmt.Errorf("Update: %w", err)
	}
	if err := s.checkReferences(ctx, r); err != nil {
		return domain.RecurringTransaction{}, fmt.Errorf("Update: %w", err)
	}
	if err := s.templates.SaveRecurring(ctx, r); err != nil {
		return domain.RecurringTransaction{}, fmt.Errorf("Update: %w", err)
	}
	return r, nil
}

// Patch holds the fields a partial update may change. Nil fields are kept.
type Patch struct {
	Name   *string       `json:"name,omitempty"`
	Amount *money.Amount `json:"amount,omitempty"`
	Active *bool         `json:"active,omitempty"`
}

// Apply updates a template with the non-nil fields of p.
func (s *Service) Apply(ctx context.Context, id string, p Patch) (domain.RecurringTransaction, error) {
	r, err := s.templates.GetRecurring(ctx, id)
	if err != nil {
		return domain.RecurringTransaction{}, fmt.Errorf("Apply: %w", err)
	}
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.Active != nil {
		r.Active = *p.Active
	}
	r.UpdatedAt = s.engine.Now()

	if err := r.Validate(); err != nil {
		return domain.RecurringTransaction{}, fmt.Errorf("Apply: %w", err)
	}
	if err := s.templates.SaveRecurring(ctx, r); err != nil {
		return domain.RecurringTransaction{}, fmt.Errorf("Apply: %w", err)
	}
	return r, nil
}

// Toggle flips a template between active and inactive.
func (s *Service) Toggle(ctx context.Context, id string) (domain.RecurringTransaction, error) {
	r, err := s.templates.GetRecurring(ctx, id)
	if err != nil {
		return domain.RecurringTransaction{}, fmt.Errorf("Toggle: %w", err)
	}
	active := !r.Active
	return s.Apply(ctx, id, Patch{Active: &active})
}

// Get returns one template.
func (s *Service) Get(ctx context.Context, id string) (domain.RecurringTransaction, error) {
	return s.templates.GetRecurring(ctx, id)
}

// List returns all templates, or only the active ones.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]domain.RecurringTransaction, error) {
	return s.templates.ListRecurring(ctx, activeOnly)
}

// Delete removes a template. Transactions it generated are kept.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.templates.DeleteRecurring(ctx, id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}
