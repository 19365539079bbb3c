package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configfile "github.com/corpora-labs/corpora-cli/internal/adapters/driven/config/file"
	"github.com/corpora-labs/corpora-cli/internal/adapters/driven/index/flat"
	"github.com/corpora-labs/corpora-cli/internal/adapters/driven/storage/sqlite"
	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

func TestRootRegistersCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	for _, want := range []string{"verify", "query", "batch", "chat", "version"} {
		assert.True(t, names[want], "command %q not registered", want)
	}
}

func TestQueryOptionsValidation(t *testing.T) {
	tests := []struct {
		name     string
		topK     int
		mode     string
		wantErr  bool
		wantTopK int
		wantMode domain.ResponseMode
	}{
		{
			name:     "defaults",
			wantTopK: domain.DefaultTopK,
			wantMode: domain.ResponseModeCompact,
		},
		{
			name:     "explicit values",
			topK:     3,
			mode:     "tree_summarize",
			wantTopK: 3,
			wantMode: domain.ResponseModeTreeSummarize,
		},
		{
			name:    "unknown mode rejected",
			mode:    "refine",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := queryOptions(tt.topK, tt.mode)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrConfiguration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTopK, opts.TopK)
			assert.Equal(t, tt.wantMode, opts.Mode)
		})
	}
}

func TestQueryOptionsUsesConfiguredDefaults(t *testing.T) {
	original := settings
	defer func() { settings = original }()
	settings.Query.TopK = 8
	settings.Query.ResponseMode = domain.ResponseModeTreeSummarize

	opts, err := queryOptions(0, "")
	require.NoError(t, err)
	assert.Equal(t, 8, opts.TopK)
	assert.Equal(t, domain.ResponseModeTreeSummarize, opts.Mode)

	// Flags still win over the configured defaults.
	opts, err = queryOptions(3, "compact")
	require.NoError(t, err)
	assert.Equal(t, 3, opts.TopK)
	assert.Equal(t, domain.ResponseModeCompact, opts.Mode)
}

func TestOpenEngineRejectsInconsistentIndex(t *testing.T) {
	original := settings
	defer func() { settings = original }()
	dir := t.TempDir()
	settings.Storage.Dir = dir

	fragmentsDB, vectorsBin, _ := configfile.ArtifactPaths(dir)

	store, err := sqlite.NewStore(fragmentsDB)
	require.NoError(t, err)
	require.NoError(t, store.SaveFragments(context.Background(), []domain.Fragment{
		{ID: "frag-1", Text: "indexed text", SourceName: "doc.pdf", Location: "1"},
	}))
	require.NoError(t, store.Close())

	index, err := flat.New(3)
	require.NoError(t, err)
	require.NoError(t, index.Add("frag-1", []float32{0.1, 0.2, 0.3}))
	// An embedding with no stored fragment.
	require.NoError(t, index.Add("frag-2", []float32{0.3, 0.2, 0.1}))
	require.NoError(t, index.Persist(vectorsBin))

	// Consistency is checked before any provider is contacted.
	_, err = openEngine()
	assert.ErrorIs(t, err, domain.ErrCorruptIndex)
}

func TestOpenArtifactsMissingFiles(t *testing.T) {
	original := settings
	defer func() { settings = original }()
	settings.Storage.Dir = t.TempDir()

	_, err := openArtifacts()
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestReadPrompts(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid array", func(t *testing.T) {
		path := filepath.Join(dir, "in.json")
		require.NoError(t, os.WriteFile(path, []byte(
			`[{"prompt": "one"}, {"id": "x", "prompt": "two", "k": 3}]`), 0600))

		prompts, err := readPrompts(path)
		require.NoError(t, err)
		require.Len(t, prompts, 2)
		assert.Equal(t, "one", prompts[0].Prompt)
		assert.Equal(t, 3, prompts[1].TopK)
	})

	t.Run("not an array", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"prompt": "one"}`), 0600))

		_, err := readPrompts(path)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := readPrompts(filepath.Join(dir, "absent.json"))
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
}
