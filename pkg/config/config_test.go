package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poi_router/pkg/codec"
	"poi_router/pkg/store"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestReadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
graph:
  dir: /var/lib/graph
  codec: zstd
  time-unit: min
import:
  osm: singapore.osm.pbf
  largest-component: true
  bbox: [1.2, 103.6, 1.5, 104.1]
server:
  addr: ":9000"
  read-timeout: 2s
log:
  format: json
`)
	c, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/graph", c.Graph.Dir)
	assert.Equal(t, codec.Zstd, c.Graph.Codec)
	assert.Equal(t, store.Minute, c.Graph.TimeUnit)
	assert.Equal(t, store.DefaultBlockSize, c.Graph.BlockSize, "default kept")
	assert.True(t, c.Import.LargestComponent)
	assert.Equal(t, []float64{1.2, 103.6, 1.5, 104.1}, c.Import.BBox)
	assert.Equal(t, ":9000", c.Server.Addr)
	assert.Equal(t, 2*time.Second, c.Server.ReadTimeout)
	assert.Equal(t, 5*time.Second, c.Server.WriteTimeout)
	assert.Equal(t, "json", c.Log.Format)
	assert.Equal(t, "info", c.Log.Level)

	var o store.Options
	c.Graph.StoreOptions(&o)
	assert.Equal(t, codec.Zstd, o.Codec)
	assert.Equal(t, store.Minute, o.TimeUnit)
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown codec", "graph:\n  codec: brotli\n"},
		{"unknown time unit", "graph:\n  time-unit: fortnight\n"},
		{"short bbox", "import:\n  bbox: [1, 2]\n"},
		{"bad log format", "log:\n  format: xml\n"},
		{"inverted service cost", "import:\n  service-cost:\n    min: 10\n    max: 5\n"},
		{"not yaml", "graph: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Read(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}
