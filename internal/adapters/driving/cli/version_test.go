package cli

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd_Use(t *testing.T) {
	assert.Equal(t, "version", versionCmd.Use)
	assert.Equal(t, "Print the version number", versionCmd.Short)
}

func TestVersionCmd_Executes(t *testing.T) {
	setupCommands(t, nil, nil)
	originalVersion := version
	t.Cleanup(func() { version = originalVersion })

	tests := []struct {
		name string
		set  string
		want string
	}{
		{"dev build", "", "canvas-sync version dev"},
		{"release build", "v1.4.0", "canvas-sync version v1.4.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version = "dev"
			SetVersion(tt.set)

			out, err := execute(t, "version")
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
			assert.Contains(t, out, runtime.Version())
		})
	}
}
