// Package settings persists terminal preferences that the UI shell toggles
// at runtime.
package settings

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const key = "pos:settings"

const (
	fieldPrinter    = "selected_printer_device"
	fieldCutPaper   = "cut_paper_enabled"
	fieldTurbo      = "turbo_mode_enabled"
	fieldOpenDrawer = "open_drawer_on_cash"
)

// Settings is the effective terminal configuration.
type Settings struct {
	SelectedPrinter  string `json:"selected_printer_device"`
	CutPaper         bool   `json:"cut_paper_enabled"`
	TurboMode        bool   `json:"turbo_mode_enabled"`
	OpenDrawerOnCash bool   `json:"open_drawer_on_cash"`
}

// Patch carries the fields to change; nil fields are left alone.
type Patch struct {
	SelectedPrinter  *string `json:"selected_printer_device,omitempty"`
	CutPaper         *bool   `json:"cut_paper_enabled,omitempty"`
	TurboMode        *bool   `json:"turbo_mode_enabled,omitempty"`
	OpenDrawerOnCash *bool   `json:"open_drawer_on_cash,omitempty"`
}

// Store reads and writes settings in a Redis hash. Fields never written fall
// back to the defaults taken from the environment.
type Store struct {
	client   redis.UniversalClient
	defaults Settings
}

// NewStore constructs a store.
func NewStore(client redis.UniversalClient, defaults Settings) *Store {
	return &Store{client: client, defaults: defaults}
}

// Get returns the effective settings. When redis is unreachable it returns
// the defaults together with the error.
func (s *Store) Get(ctx context.Context) (Settings, error) {
	values, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return s.defaults, fmt.Errorf("settings: load: %w", err)
	}
	out := s.defaults
	if v, ok := values[fieldPrinter]; ok {
		out.SelectedPrinter = v
	}
	out.CutPaper = boolField(values, fieldCutPaper, out.CutPaper)
	out.TurboMode = boolField(values, fieldTurbo, out.TurboMode)
	out.OpenDrawerOnCash = boolField(values, fieldOpenDrawer, out.OpenDrawerOnCash)
	return out, nil
}

// Update applies patch and returns the resulting settings.
func (s *Store) Update(ctx context.Context, patch Patch) (Settings, error) {
	fields := make(map[string]any, 4)
	if patch.SelectedPrinter != nil {
		fields[fieldPrinter] = strings.TrimSpace(*patch.SelectedPrinter)
	}
	if patch.CutPaper != nil {
		fields[fieldCutPaper] = strconv.FormatBool(*patch.CutPaper)
	}
	if patch.TurboMode != nil {
		fields[fieldTurbo] = strconv.FormatBool(*patch.TurboMode)
	}
	if patch.OpenDrawerOnCash != nil {
		fields[fieldOpenDrawer] = strconv.FormatBool(*patch.OpenDrawerOnCash)
	}
	if len(fields) > 0 {
		if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
			return Settings{}, fmt.Errorf("settings: save: %w", err)
		}
	}
	return s.Get(ctx)
}

// Printer returns the selected printer, or the default when unreadable.
func (s *Store) Printer(ctx context.Context) string {
	current, _ := s.Get(ctx)
	return current.SelectedPrinter
}

func boolField(values map[string]string, field string, fallback bool) bool {
	raw, ok := values[field]
	if !ok {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}
