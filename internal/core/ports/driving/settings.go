package driving

import "github.com/custodia-labs/canvas-sync/internal/core/domain"

// SettingsService resolves and updates application settings.
type SettingsService interface {
	// Get returns the effective settings: defaults, then the config file,
	// then environment overrides. The result is validated.
	Get() (domain.Settings, error)

	// SetCanvasToken stores the API token in the config file.
	SetCanvasToken(token string) error

	// SetCanvasBaseURL stores the Canvas root URL in the config file.
	SetCanvasBaseURL(baseURL string) error

	// ConfigPath returns where settings are persisted.
	ConfigPath() string
}
