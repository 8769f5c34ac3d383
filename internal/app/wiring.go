package app

import (
	"fmt"
	"log/slog"
	"runtime"

	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
	"github.com/odyssey-erp/odyssey-pos/internal/printing"
	"github.com/odyssey-erp/odyssey-pos/internal/settings"
	"github.com/odyssey-erp/odyssey-pos/internal/ticket"
	"github.com/odyssey-erp/odyssey-pos/internal/view"
	"github.com/odyssey-erp/odyssey-pos/report"
)

// Printing bundles the printing stack shared by posd and the worker.
type Printing struct {
	Dispatcher *printing.Dispatcher
	Station    *printing.Station
	PDF        *report.Client
}

// NewPrinting builds the dispatcher for the host OS, the ticket views and the
// Gotenberg-backed HTML fallback.
func NewPrinting(cfg *Config, logger *slog.Logger, metrics *jobmetrics.Metrics) (*Printing, error) {
	views, err := view.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("app: ticket views: %w", err)
	}
	dispatcher := printing.NewDispatcher(printing.DispatcherConfig{
		Provider:      printing.NewProvider(runtime.GOOS, nil),
		StagingDir:    cfg.PrintStagingDir,
		HelperTimeout: cfg.PrintHelperTimeout,
		Logger:        logger,
		Metrics:       metrics,
	})
	pdf := report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)
	station := printing.NewStation(printing.StationConfig{
		Dispatcher: dispatcher,
		HTML:       printing.NewHTMLPrinter(pdf, dispatcher),
		Views:      views,
		Mode:       printing.Mode(cfg.PrintMode),
	})
	return &Printing{Dispatcher: dispatcher, Station: station, PDF: pdf}, nil
}

// Branch is the header printed on every ticket.
func (c *Config) Branch() ticket.Branch {
	return ticket.Branch{Name: c.StoreName, Address: c.StoreAddress, Phone: c.StorePhone}
}

// SettingsDefaults seeds settings the UI shell has never written.
func (c *Config) SettingsDefaults() settings.Settings {
	return settings.Settings{
		SelectedPrinter:  c.PrinterDevice,
		CutPaper:         c.CutPaperEnabled,
		TurboMode:        c.TurboModeEnabled,
		OpenDrawerOnCash: c.OpenDrawerOnCash,
	}
}
