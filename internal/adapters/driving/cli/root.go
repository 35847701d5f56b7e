// Package cli implements the canvas-sync command line.
//
// Commands receive their services through package-level variables that
// the composition root in cmd/canvas-sync injects with SetFactories.
// Tests replace the variables with fakes.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
	"github.com/custodia-labs/canvas-sync/internal/core/ports/driving"
	"github.com/custodia-labs/canvas-sync/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

// Services are the inbound ports the commands drive.
type Services struct {
	Ingest  driving.IngestOrchestrator
	Status  driving.StatusService
	Courses driving.CourseLister

	// Close releases the adapters behind the services.
	Close func() error
}

// SettingsFactory opens the settings service. An empty dir selects the
// default configuration directory.
type SettingsFactory func(configDir string) (driving.SettingsService, error)

// ServicesFactory builds the services for resolved settings.
type ServicesFactory func(ctx context.Context, settings domain.Settings, configDir string) (*Services, error)

var (
	newSettings SettingsFactory
	newServices ServicesFactory

	settingsService driving.SettingsService
	services        *Services

	verbose   bool
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "canvas-sync",
	Short: "Ingest Canvas LMS course content into a vector index",
	Long: `canvas-sync fetches pages, modules, assignments, announcements,
discussions, files and syllabi from Canvas, splits them into chunks and
writes the embedded chunks to a vector index. Unchanged items are
skipped on later runs.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "Configuration directory (default ~/.canvas-sync)")
}

// SetFactories injects the constructors used to build services.
func SetFactories(settings SettingsFactory, svc ServicesFactory) {
	newSettings = settings
	newServices = svc
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command. ctx is cancelled on interrupt.
func Execute(ctx context.Context) error {
	defer closeServices()
	return rootCmd.ExecuteContext(ctx)
}

func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	return nil
}

// loadSettings opens the settings service once.
func loadSettings() (driving.SettingsService, error) {
	if settingsService != nil {
		return settingsService, nil
	}
	if newSettings == nil {
		return nil, errors.New("settings service not configured")
	}
	s, err := newSettings(configDir)
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}
	settingsService = s
	return s, nil
}

// loadServices resolves settings and builds the services once.
func loadServices(ctx context.Context) (*Services, error) {
	if services != nil {
		return services, nil
	}
	if newServices == nil {
		return nil, errors.New("services not configured")
	}
	ss, err := loadSettings()
	if err != nil {
		return nil, err
	}
	settings, err := ss.Get()
	if err != nil {
		return nil, err
	}
	if !settings.Canvas.IsConfigured() {
		return nil, fmt.Errorf("%w: set CANVAS_BASE_URL and CANVAS_API_TOKEN or run 'canvas-sync token'",
			domain.ErrAuthRequired)
	}
	svc, err := newServices(ctx, settings, configDir)
	if err != nil {
		return nil, err
	}
	services = svc
	return svc, nil
}

func closeServices() {
	if services == nil || services.Close == nil {
		return
	}
	if err := services.Close(); err != nil {
		logger.Warn("Closing services: %v", err)
	}
	services = nil
}
