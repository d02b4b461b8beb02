// Package catalog defines the read-only boundary to the product
// catalog: item master records and effective-dated BOM lines.
package catalog

import (
	"context"
	"time"
)

// Item is one catalog entry, either a cylinder or a component.
type Item struct {
	Code string
	Name string
	Spec map[string]string
}

// Line is one BOM line under a master item. Effective dating follows
// the usual half-open convention: the line is active from Effective
// (inclusive) until Expiry (exclusive); a zero Expiry never expires.
type Line struct {
	ComponentCode string
	Quantity      int
	Effective     time.Time
	Expiry        time.Time
}

// ActiveAt reports whether the line is effective at t.
func (l Line) ActiveAt(t time.Time) bool {
	if !l.Effective.IsZero() && t.Before(l.Effective) {
		return false
	}
	if !l.Expiry.IsZero() && !t.Before(l.Expiry) {
		return false
	}
	return true
}

// Source is the catalog read boundary.
type Source interface {
	// Items returns all item master records.
	Items(ctx context.Context) ([]Item, error)
	// BOMLines returns the BOM lines filed under masterCode, active
	// or not. An unknown master yields an empty slice, not an error.
	BOMLines(ctx context.Context, masterCode string) ([]Line, error)
}
