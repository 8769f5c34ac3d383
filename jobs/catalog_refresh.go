package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
)

// CatalogRefresher refreshes the mirror of one branch. catalog.Service
// satisfies it.
type CatalogRefresher interface {
	Refresh(ctx context.Context, branchID int64) (int, error)
}

// CatalogRefreshJob executes TaskCatalogRefresh.
type CatalogRefreshJob struct {
	Catalog       CatalogRefresher
	DefaultBranch int64
	Logger        *slog.Logger
	Metrics       *jobmetrics.Metrics
}

// NewCatalogRefreshJob constructs the job handler.
func NewCatalogRefreshJob(catalog CatalogRefresher, defaultBranch int64, logger *slog.Logger, metrics *jobmetrics.Metrics) *CatalogRefreshJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogRefreshJob{Catalog: catalog, DefaultBranch: defaultBranch, Logger: logger, Metrics: metrics}
}

// Handle refreshes the requested branch.
func (j *CatalogRefreshJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Catalog == nil {
		return errors.New("catalog refresh job: catalog not configured")
	}
	var payload CatalogRefreshPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("%w: decode payload: %v", asynq.SkipRetry, err)
		}
	}
	branchID := payload.BranchID
	if branchID == 0 {
		branchID = j.DefaultBranch
	}
	if branchID <= 0 {
		j.Logger.Warn("catalog refresh skipped, no branch configured")
		return nil
	}

	tracker := j.Metrics.Track(TaskCatalogRefresh)
	count, err := j.Catalog.Refresh(ctx, branchID)
	tracker.End(err)
	if err != nil {
		j.Logger.Error("catalog refresh failed", slog.Int64("branch_id", branchID), slog.Any("error", err))
		return err
	}
	j.Logger.Info("catalog refreshed", slog.Int64("branch_id", branchID), slog.Int("products", count))
	return nil
}
