package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erraggy/rrest/dispatch"
	"github.com/erraggy/rrest/negotiate"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		want    Config
		wantErr bool
	}{
		{name: "defaults", vars: nil, want: Default()},
		{
			name: "all set",
			vars: map[string]string{
				EnvAssertResponse: "false",
				EnvAcceptPolicy:   "Strict",
				EnvLogLevel:       "DEBUG",
				EnvMaxBodySize:    "1024",
			},
			want: Config{
				AssertResponse: false,
				AcceptPolicy:   negotiate.AcceptStrict,
				LogLevel:       zerolog.DebugLevel,
				MaxBodySize:    1024,
			},
		},
		{name: "blank keeps default", vars: map[string]string{EnvMaxBodySize: "  "}, want: Default()},
		{name: "bad bool", vars: map[string]string{EnvAssertResponse: "maybe"}, wantErr: true},
		{name: "bad policy", vars: map[string]string{EnvAcceptPolicy: "loose"}, wantErr: true},
		{name: "bad level", vars: map[string]string{EnvLogLevel: "loud"}, wantErr: true},
		{name: "zero size", vars: map[string]string{EnvMaxBodySize: "0"}, wantErr: true},
		{name: "bad size", vars: map[string]string{EnvMaxBodySize: "10MB"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.vars)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("RREST_ACCEPT_POLICY=strict\nRREST_MAX_BODY_SIZE=2048\n"), 0o600))

	t.Setenv(EnvMaxBodySize, "4096")

	cfg, err := Load(filepath.Join(dir, "missing.env"), path)
	require.NoError(t, err)
	assert.Equal(t, negotiate.AcceptStrict, cfg.AcceptPolicy)
	assert.Equal(t, int64(4096), cfg.MaxBodySize, "environment wins over the file")
	assert.True(t, cfg.AssertResponse)
}

func TestConfig_Options(t *testing.T) {
	cfg := Default()
	cfg.MaxBodySize = 512
	d, err := dispatch.New(cfg.Options(zerolog.Nop())...)
	require.NoError(t, err)
	assert.NotNil(t, d)

	cfg.MaxBodySize = 0
	_, err = dispatch.New(cfg.Options(zerolog.Nop())...)
	assert.Error(t, err)
}
