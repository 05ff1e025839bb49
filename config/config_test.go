package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
log_level: info
channels:
  - input_item_type: gr_complex
    sampling_frequency: 4000000
    freq: 1575420000
    prn: 5
    samples: 0
    pll_bw_hz: 25
    dll_bw_hz: 2
    early_late_space_chips: 0.5
    dump: false
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTempConfig(t, validYAML)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Channels, 1)
	assert.Equal(t, 5, cfg.Channels[0].PRN)
	assert.Equal(t, 4e6, cfg.Channels[0].SamplingFrequencyHz)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestLoadRejectsNoChannels(t *testing.T) {
	path := writeTempConfig(t, "log_level: info\nchannels: []\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsOutOfRangePRN(t *testing.T) {
	path := writeTempConfig(t, `
channels:
  - sampling_frequency: 4000000
    prn: 99
    pll_bw_hz: 25
    dll_bw_hz: 2
    early_late_space_chips: 0.5
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "prn")
}

func TestLoadRejectsDumpWithoutFilename(t *testing.T) {
	path := writeTempConfig(t, `
channels:
  - sampling_frequency: 4000000
    prn: 1
    pll_bw_hz: 25
    dll_bw_hz: 2
    early_late_space_chips: 0.5
    dump: true
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "dump_filename")
}

func TestLoadRejectsRemoteControllerWithoutAddr(t *testing.T) {
	path := writeTempConfig(t, `
channels:
  - sampling_frequency: 4000000
    prn: 1
    pll_bw_hz: 25
    dll_bw_hz: 2
    early_late_space_chips: 0.5
    discriminator_controller: remote
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "remote_controller_addr")
}
