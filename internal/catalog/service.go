package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// refreshTimeout bounds a shared fetch, which outlives any single caller.
const refreshTimeout = 2 * time.Minute

// Service owns the local catalog mirror.
type Service struct {
	store   Store
	fetcher Fetcher
	logger  *slog.Logger
	clock   func() time.Time
	group   singleflight.Group
}

// NewService wires a catalog service. fetcher may be nil when the terminal
// only receives snapshots pushed through Sync.
func NewService(store Store, fetcher Fetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		fetcher: fetcher,
		logger:  logger.With(slog.String("component", "catalog")),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Sync replaces the branch snapshot with products and returns the number of
// rows stored. Blank SKUs are dropped and the last duplicate wins.
func (s *Service) Sync(ctx context.Context, branchID int64, products []Product) (int, error) {
	if branchID <= 0 {
		return 0, ErrInvalidBranch
	}
	syncedAt := s.clock()
	index := make(map[string]int, len(products))
	rows := make([]Row, 0, len(products))
	for _, p := range products {
		sku := strings.TrimSpace(p.SKU)
		if sku == "" {
			continue
		}
		row := Row{
			SKU:      sku,
			BranchID: branchID,
			Name:     strings.TrimSpace(p.Name),
			Price:    p.Price,
			Stock:    p.Stock,
			SyncedAt: syncedAt,
		}
		if i, ok := index[sku]; ok {
			rows[i] = row
			continue
		}
		index[sku] = len(rows)
		rows = append(rows, row)
	}
	if err := s.store.Replace(ctx, branchID, rows); err != nil {
		return 0, err
	}
	s.logger.Info("catalog synced", slog.Int64("branch_id", branchID), slog.Int("rows", len(rows)))
	return len(rows), nil
}

// Lookup reads a SKU from the local mirror.
func (s *Service) Lookup(ctx context.Context, sku string) (Row, bool, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return Row{}, false, nil
	}
	return s.store.Lookup(ctx, sku)
}

// Count reports the number of mirrored rows of a branch.
func (s *Service) Count(ctx context.Context, branchID int64) (int, error) {
	return s.store.Count(ctx, branchID)
}

// Refresh fetches the remote catalog and syncs it. Concurrent refreshes of
// the same branch share one fetch, and a caller that gives up does not
// cancel it for the others.
func (s *Service) Refresh(ctx context.Context, branchID int64) (int, error) {
	if s.fetcher == nil {
		return 0, ErrNoFetcher
	}
	if branchID <= 0 {
		return 0, ErrInvalidBranch
	}
	ch := s.group.DoChan(strconv.FormatInt(branchID, 10), func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		products, err := s.fetcher.FetchCatalog(flightCtx, branchID)
		if err != nil {
			return 0, fmt.Errorf("catalog: fetch branch %d: %w", branchID, err)
		}
		return s.Sync(flightCtx, branchID, products)
	})
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(int), nil
	}
}
