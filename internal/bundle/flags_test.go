package bundle

import (
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected Flags
	}{
		{
			name:     "no args",
			args:     []string{},
			expected: Flags{},
		},
		{
			name:     "watch only",
			args:     []string{"--watch"},
			expected: Flags{Watch: true},
		},
		{
			name:     "deploy only",
			args:     []string{"--deploy"},
			expected: Flags{Deploy: true},
		},
		{
			name:     "ssr only",
			args:     []string{"--ssr"},
			expected: Flags{SSR: true},
		},
		{
			name:     "all flags",
			args:     []string{"--watch", "--deploy", "--ssr"},
			expected: Flags{Watch: true, Deploy: true, SSR: true},
		},
		{
			name:     "order does not matter",
			args:     []string{"--ssr", "--watch"},
			expected: Flags{Watch: true, SSR: true},
		},
		{
			name:     "duplicates are harmless",
			args:     []string{"--watch", "--watch", "--watch"},
			expected: Flags{Watch: true},
		},
		{
			name:     "unrecognized tokens are ignored",
			args:     []string{"--verbose", "extra", "--ssr", "--wat"},
			expected: Flags{SSR: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, ParseFlags(tt.args))
		})
	}
}

func TestSelect_Target(t *testing.T) {
	opts := DefaultOptions()

	tests := []struct {
		name          string
		args          []string
		expectedEntry string
	}{
		{
			name:          "no flags selects client",
			args:          nil,
			expectedEntry: opts.ClientEntry,
		},
		{
			name:          "deploy alone selects client",
			args:          []string{"--deploy"},
			expectedEntry: opts.ClientEntry,
		},
		{
			name:          "ssr selects server",
			args:          []string{"--ssr"},
			expectedEntry: opts.ServerEntry,
		},
		{
			name:          "ssr selects server regardless of position",
			args:          []string{"--deploy", "--ssr", "--watch"},
			expectedEntry: opts.ServerEntry,
		},
		{
			name:          "duplicated ssr still selects server",
			args:          []string{"--ssr", "--ssr"},
			expectedEntry: opts.ServerEntry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := Select(opts, ParseFlags(tt.args))
			require.Equal(t, tt.expectedEntry, cfg.EntryPoint)
		})
	}
}

func TestSelect_Minify(t *testing.T) {
	opts := DefaultOptions()

	// client minification follows --deploy
	cfg, _ := Select(opts, ParseFlags([]string{"--deploy"}))
	require.Equal(t, "client", cfg.Name)
	require.True(t, cfg.Minify)

	cfg, _ = Select(opts, ParseFlags(nil))
	require.False(t, cfg.Minify)

	// the server target is never minified, even with --deploy
	cfg, _ = Select(opts, ParseFlags([]string{"--deploy", "--ssr"}))
	require.Equal(t, "ssr", cfg.Name)
	require.False(t, cfg.Minify)

	cfg, _ = Select(opts, ParseFlags([]string{"--deploy", "--ssr", "--watch"}))
	require.False(t, cfg.Minify)
}

func TestSelect_Sourcemap(t *testing.T) {
	opts := DefaultOptions()

	tests := []struct {
		name     string
		args     []string
		expected api.SourceMap
	}{
		{
			name:     "no watch means no sourcemap",
			args:     nil,
			expected: api.SourceMapNone,
		},
		{
			name:     "watch enables inline sourcemap on client",
			args:     []string{"--watch"},
			expected: api.SourceMapInline,
		},
		{
			name:     "watch enables inline sourcemap on server",
			args:     []string{"--watch", "--ssr"},
			expected: api.SourceMapInline,
		},
		{
			name:     "deploy without watch has no sourcemap",
			args:     []string{"--deploy", "--ssr"},
			expected: api.SourceMapNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := Select(opts, ParseFlags(tt.args))
			require.Equal(t, tt.expected, cfg.Sourcemap)
		})
	}
}

func TestSelect_Mode(t *testing.T) {
	opts := DefaultOptions()

	_, mode := Select(opts, Flags{})
	require.Equal(t, ModeOnce, mode)

	_, mode = Select(opts, Flags{Watch: true})
	require.Equal(t, ModeWatch, mode)

	_, mode = Select(opts, Flags{Watch: true, SSR: true})
	require.Equal(t, ModeWatch, mode)
}

func TestSelect_FreshConfigs(t *testing.T) {
	opts := DefaultOptions()

	first, _ := Select(opts, Flags{})
	first.Externals[0] = "mutated"
	first.NodePaths[0] = "mutated"

	// mutating one invocation's config must not leak into the next
	second, _ := Select(opts, Flags{})
	require.Equal(t, DefaultOptions().Externals, second.Externals)
	require.Equal(t, DefaultOptions().NodePaths, second.NodePaths)
}

func TestServerConfig_SingleFileOutput(t *testing.T) {
	opts := DefaultOptions()

	cfg, _ := Select(opts, Flags{SSR: true})
	require.Empty(t, cfg.Outdir)
	require.Equal(t, opts.ServerOutfile, cfg.Outfile)
	require.False(t, cfg.Splitting)
	require.Equal(t, api.PlatformNode, cfg.Platform)
	require.Equal(t, []api.Engine{{Name: api.EngineNode, Version: opts.NodeVersion}}, cfg.Engines)
}

func TestClientConfig_SplitOutput(t *testing.T) {
	opts := DefaultOptions()

	cfg, _ := Select(opts, Flags{})
	require.Equal(t, opts.Outdir, cfg.Outdir)
	require.Empty(t, cfg.Outfile)
	require.True(t, cfg.Splitting)
	require.Equal(t, api.PlatformBrowser, cfg.Platform)
	require.Equal(t, api.FormatESModule, cfg.Format)
}
