// Package catalog keeps a local mirror of the branch product catalog so the
// register can price items while the ledger is unreachable. The mirror is
// never authoritative; every sync fully replaces a branch snapshot.
package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by handlers when a SKU has no mirrored row.
	ErrNotFound = errors.New("catalog: product not found")
	// ErrNoFetcher is returned by Refresh when no remote catalog source is wired.
	ErrNoFetcher = errors.New("catalog: no remote source configured")
	// ErrInvalidBranch rejects non-positive branch identifiers.
	ErrInvalidBranch = errors.New("catalog: invalid branch id")
)

// Product is one entry of the remote catalog response.
type Product struct {
	SKU   string  `json:"sku"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock float64 `json:"stock"`
}

// Row is a mirrored product as stored locally.
type Row struct {
	SKU      string    `json:"sku"`
	BranchID int64     `json:"branch_id"`
	Name     string    `json:"name"`
	Price    float64   `json:"price"`
	Stock    float64   `json:"stock"`
	SyncedAt time.Time `json:"synced_at"`
}

// Store persists branch snapshots.
type Store interface {
	// Replace swaps the whole snapshot of a branch atomically.
	Replace(ctx context.Context, branchID int64, rows []Row) error
	// Lookup returns the most recently synced row for the SKU.
	Lookup(ctx context.Context, sku string) (Row, bool, error)
	// Count reports the rows mirrored for a branch.
	Count(ctx context.Context, branchID int64) (int, error)
}

// Fetcher pulls the remote catalog of a branch.
type Fetcher interface {
	FetchCatalog(ctx context.Context, branchID int64) ([]Product, error)
}
