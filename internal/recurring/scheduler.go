package recurring

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/dvloznov/finance-ledger/internal/calendar"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/dvloznov/finance-ledger/internal/store"
)

// firingNamespace seeds the name-based UUIDs of generated transactions.
var firingNamespace = uuid.MustParse("8b4f3c1e-6a2d-4f0b-9c57-2e1d7a9f4b63")

// FiringID is the id of the transaction template templateID generates on
// date. The same pair always yields the same id.
func FiringID(templateID string, date civil.Date) string {
	return uuid.NewSHA1(firingNamespace, []byte(templateID+"/"+date.String())).String()
}

// Failure records a template that could not fire.
type Failure struct {
	RecurringID string `json:"recurring_id"`
	Error       string `json:"error"`
}

// FireResult reports what one date produced.
type FireResult struct {
	Date    civil.Date `json:"date"`
	Created []string   `json:"created"`
	Skipped []string   `json:"skipped,omitempty"`
	Failed  []Failure  `json:"failed,omitempty"`
}

// FireForDate creates a transaction for every active template due on date.
//
// Templates already fired for date are skipped, so calling it twice for the
// same date creates nothing new. A template that fails (for example because
// its payment method was deleted) is reported and does not stop the others.
// It fails with ErrInvalidState when no asset account exists.
func (s *Service) FireForDate(ctx context.Context, date civil.Date) (FireResult, error) {
	log := logger.FromContext(ctx)
	result := FireResult{Date: date, Created: []string{}}

	accounts, err := s.engine.ListAccounts(ctx)
	if err != nil {
		return result, fmt.Errorf("FireForDate: listing accounts: %w", err)
	}
	if len(accounts) == 0 {
		return result, fmt.Errorf("FireForDate: no asset account configured: %w", domain.ErrInvalidState)
	}
	templates, err := s.templates.ListRecurring(ctx, true)
	if err != nil {
		return result, fmt.Errorf("FireForDate: listing templates: %w", err)
	}

	for _, r := range templates {
		if !r.ShouldFire(date) {
			continue
		}
		in := domain.TransactionInput{
			Date:            date,
			Amount:          r.Amount,
			Type:            r.Type,
			PaymentMethodID: r.PaymentMethodID,
			CategoryID:      r.CategoryID,
			AssetAccountID:  r.AssetAccountID,
			Memo:            r.AutoMemo(),
		}
		t, err := s.engine.CreateGenerated(ctx, FiringID(r.ID, date), in, r.ID)
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			result.Skipped = append(result.Skipped, r.ID)
		case err != nil:
			log.Warn().Err(err).
				Str("recurring_id", r.ID).
				Str("date", date.String()).
				Msg("Recurring template failed to fire")
			result.Failed = append(result.Failed, Failure{RecurringID: r.ID, Error: err.Error()})
		default:
			result.Created = append(result.Created, t.ID)
		}
	}
	return result, nil
}

// CatchUpResult summarizes a catch-up run.
type CatchUpResult struct {
	Watermark civil.Date   `json:"watermark"`
	Days      []FireResult `json:"days"`
}

// Created returns the number of transactions the run created.
func (r CatchUpResult) Created() int {
	n := 0
	for _, d := range r.Days {
		n += len(d.Created)
	}
	return n
}

// RunCatchUp fires templates for every date after watermark up to and
// including today and returns the new watermark.
//
// A nil watermark means the scheduler has never run: only today is fired, so
// the first run does not replay history. A watermark on or after today is a
// no-op. If a date fails as a whole, RunCatchUp stops and returns the last
// date it fully processed (the old watermark, or the zero Date when there
// was none) together with the error.
func (s *Service) RunCatchUp(ctx context.Context, today civil.Date, watermark *civil.Date) (civil.Date, CatchUpResult, error) {
	var dates []civil.Date
	var last civil.Date
	switch {
	case watermark == nil:
		dates = []civil.Date{today}
	case !watermark.Before(today):
		return *watermark, CatchUpResult{Watermark: *watermark, Days: []FireResult{}}, nil
	default:
		last = *watermark
		dates = calendar.Range(watermark.AddDays(1), today)
	}

	result := CatchUpResult{Watermark: last, Days: make([]FireResult, 0, len(dates))}
	for _, d := range dates {
		fired, err := s.FireForDate(ctx, d)
		if err != nil {
			return last, result, fmt.Errorf("RunCatchUp: %s: %w", d, err)
		}
		result.Days = append(result.Days, fired)
		last = d
		result.Watermark = last
	}
	return last, result, nil
}

// Watermark returns the persisted last-checked date, or nil before the
// first catch-up.
func (s *Service) Watermark(ctx context.Context) (*civil.Date, error) {
	raw, ok, err := s.settings.GetSetting(ctx, store.SettingRecurringWatermark)
	if err != nil {
		return nil, fmt.Errorf("Watermark: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	d, err := calendar.ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("Watermark: stored value %q: %w", raw, err)
	}
	return &d, nil
}

// CatchUp runs RunCatchUp from the persisted watermark and stores the
// returned one. The watermark is written last and only moves forward.
// Concurrent calls on one Service run one at a time.
func (s *Service) CatchUp(ctx context.Context, today civil.Date) (CatchUpResult, error) {
	s.catchUpMu.Lock()
	defer s.catchUpMu.Unlock()
	log := logger.FromContext(ctx)

	watermark, err := s.Watermark(ctx)
	if err != nil {
		return CatchUpResult{}, fmt.Errorf("CatchUp: %w", err)
	}
	next, result, runErr := s.RunCatchUp(ctx, today, watermark)

	if next.IsValid() {
		if err := s.advanceWatermark(ctx, next); err != nil {
			return result, errors.Join(runErr, fmt.Errorf("CatchUp: %w", err))
		}
	}
	if runErr != nil {
		return result, fmt.Errorf("CatchUp: %w", runErr)
	}

	event := log.Info().
		Str("today", today.String()).
		Str("watermark", next.String()).
		Int("days", len(result.Days)).
		Int("created", result.Created())
	if watermark != nil {
		event = event.Str("previous_watermark", watermark.String())
	}
	event.Msg("Recurring catch-up finished")
	return result, nil
}

// advanceWatermark stores next unless the stored watermark is already at or
// past it. The stored value is read again so that a run started from a stale
// watermark cannot move it back.
func (s *Service) advanceWatermark(ctx context.Context, next civil.Date) error {
	current, err := s.Watermark(ctx)
	if err != nil {
		return fmt.Errorf("saving watermark: %w", err)
	}
	if current != nil && !next.After(*current) {
		return nil
	}
	if err := s.settings.SetSetting(ctx, store.SettingRecurringWatermark, next.String()); err != nil {
		return fmt.Errorf("saving watermark: %w", err)
	}
	return nil
}
