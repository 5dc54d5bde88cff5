package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheShouldReuse(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, store *Store)
		cfg     *CacheConfig
		input   string
		want    bool
		explain string
	}{
		{
			name:  "no prior artifact",
			setup: func(t *testing.T, store *Store) {},
			input: "jd text",
			want:  false,
		},
		{
			name: "hash match",
			setup: func(t *testing.T, store *Store) {
				_, err := store.Write("acme", StageJDAnalysis, []byte(`{}`), HashText("jd text"))
				require.NoError(t, err)
			},
			input: "jd text",
			want:  true,
		},
		{
			name: "hash mismatch forces refresh",
			setup: func(t *testing.T, store *Store) {
				_, err := store.Write("acme", StageJDAnalysis, []byte(`{}`), HashText("old jd text"))
				require.NoError(t, err)
			},
			input: "new jd text",
			want:  false,
		},
		{
			name: "legacy artifact without hash reuses by presence",
			setup: func(t *testing.T, store *Store) {
				writeFixture(t, store.AnalysisDir("acme"), "jd_analysis.json", `{}`)
			},
			input:   "anything",
			want:    true,
			explain: "presence-only caching is weaker than hash-verified caching",
		},
		{
			name: "legacy artifact with force refresh",
			setup: func(t *testing.T, store *Store) {
				writeFixture(t, store.AnalysisDir("acme"), "jd_analysis.json", `{}`)
			},
			cfg:   &CacheConfig{ForceRefresh: true},
			input: "anything",
			want:  false,
		},
		{
			name: "force refresh beats hash match",
			setup: func(t *testing.T, store *Store) {
				_, err := store.Write("acme", StageJDAnalysis, []byte(`{}`), HashText("jd text"))
				require.NoError(t, err)
			},
			cfg:   &CacheConfig{ForceRefresh: true},
			input: "jd text",
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(t.TempDir())
			tt.setup(t, store)
			cache := NewCache(store, tt.cfg)
			assert.Equal(t, tt.want, cache.ShouldReuse("acme", StageJDAnalysis, tt.input), tt.explain)
		})
	}
}

func TestCacheSave_DeduplicatesByContentHash(t *testing.T) {
	store := NewStore(t.TempDir())
	cache := NewCache(store, nil)

	first, err := cache.Save("acme", StageJDAnalysis, []byte(`{"v":1}`), "jd text")
	require.NoError(t, err)

	// Same input hash: no new file is written.
	second, err := cache.Save("acme", StageJDAnalysis, []byte(`{"v":1}`), "jd text")
	require.NoError(t, err)
	assert.Equal(t, first.Path, second.Path)
	assert.Len(t, store.All("acme", StageJDAnalysis), 1)

	// Changed input: a new timestamped artifact appears, old one survives.
	third, err := cache.Save("acme", StageJDAnalysis, []byte(`{"v":2}`), "different jd text")
	require.NoError(t, err)
	assert.NotEqual(t, first.Path, third.Path)
	assert.Len(t, store.All("acme", StageJDAnalysis), 2)

	latest, err := cache.LoadCached("acme", StageJDAnalysis)
	require.NoError(t, err)
	assert.Equal(t, third.Path, latest.Path)
}

func TestCacheWithForceRefresh(t *testing.T) {
	store := NewStore(t.TempDir())
	cache := NewCache(store, nil)

	first, err := cache.Save("acme", StageJDAnalysis, []byte(`{"v":1}`), "jd text")
	require.NoError(t, err)
	require.True(t, cache.ShouldReuse("acme", StageJDAnalysis, "jd text"))

	// The refreshing view never reuses and always writes a new version,
	// even for an unchanged input hash.
	refreshing := cache.WithForceRefresh()
	assert.False(t, refreshing.ShouldReuse("acme", StageJDAnalysis, "jd text"))

	second, err := refreshing.Save("acme", StageJDAnalysis, []byte(`{"v":2}`), "jd text")
	require.NoError(t, err)
	assert.NotEqual(t, first.Path, second.Path)
	assert.Len(t, store.All("acme", StageJDAnalysis), 2)

	// The original cache is unaffected and now reuses the newest version.
	assert.True(t, cache.ShouldReuse("acme", StageJDAnalysis, "jd text"))
	latest, err := cache.LoadCached("acme", StageJDAnalysis)
	require.NoError(t, err)
	assert.Equal(t, second.Path, latest.Path)
}

func TestCacheIdempotence(t *testing.T) {
	store := NewStore(t.TempDir())
	cache := NewCache(store, nil)

	_, err := cache.Save("acme", StageCVJDMatch, []byte(`{"matched_required_keywords":["Python"]}`), "cv -- jd")
	require.NoError(t, err)

	require.True(t, cache.ShouldReuse("acme", StageCVJDMatch, "cv -- jd"))

	a, err := cache.LoadCached("acme", StageCVJDMatch)
	require.NoError(t, err)
	b, err := cache.LoadCached("acme", StageCVJDMatch)
	require.NoError(t, err)
	assert.Equal(t, a.Path, b.Path)
	assert.Equal(t, a.Payload, b.Payload)
}

func TestHashText(t *testing.T) {
	assert.Len(t, HashText(""), 64, "empty input is valid")
	assert.Equal(t, HashText("same"), HashText("same"))
	assert.NotEqual(t, HashText("a"), HashText("b"))
}
