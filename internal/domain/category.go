package domain

import (
	"fmt"
	"strings"
	"time"
)

// Category groups transactions for reporting.
type Category struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      TransactionType `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewCategory validates and builds a category.
func NewCategory(id, name string, typ TransactionType, now time.Time) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, fmt.Errorf("NewCategory: name is required: %w", ErrInvalidArgument)
	}
	if err := typ.Validate(); err != nil {
		return Category{}, fmt.Errorf("NewCategory: %w", err)
	}
	return Category{ID: id, Name: name, Type: typ, CreatedAt: now, UpdatedAt: now}, nil
}
