package stages

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cv-match/internal/artifact"
	"github.com/jonathan/cv-match/internal/llm"
)

// fakeClient is a scripted llm.Client. Each call consumes the next scripted
// response or error.
type fakeClient struct {
	responses []fakeResponse
	calls     int
}

type fakeResponse struct {
	content string
	err     error
}

func (f *fakeClient) Generate(_ context.Context, _ llm.Request) (*llm.Response, error) {
	idx := f.calls
	f.calls++
	if idx >= len(f.responses) {
		return nil, &llm.ProviderError{Message: "fakeClient script exhausted"}
	}
	r := f.responses[idx]
	if r.err != nil {
		return nil, r.err
	}
	return &llm.Response{Content: r.content, Provider: "fake", Model: "fake-1"}, nil
}

func (f *fakeClient) Close() error { return nil }

func newTestRunner(t *testing.T, client llm.Client) (*Runner, *artifact.Store) {
	t.Helper()
	store := artifact.NewStore(t.TempDir())
	cache := artifact.NewCache(store, nil)
	cfg := &RunnerConfig{
		MaxAttempts:   3,
		RetryInterval: time.Millisecond,
		CallTimeout:   time.Second,
	}
	return NewRunner(client, cache, nil, cfg), store
}

const validJDAnalysis = `{
	"experience_years": "3+",
	"required_skills": {"technical": ["SQL", "Python"], "soft_skills": [], "experience": [], "domain_knowledge": []},
	"preferred_skills": {"technical": [], "soft_skills": [], "experience": [], "domain_knowledge": []}
}`

func TestJDAnalysis_CachingIdempotence(t *testing.T) {
	client := &fakeClient{responses: []fakeResponse{{content: validJDAnalysis}}}
	runner, _ := newTestRunner(t, client)

	first := runner.JDAnalysis(context.Background(), "acme", "Requires SQL and Python")
	require.True(t, first.Success, first.Error)
	assert.False(t, first.FromCache)
	assert.Equal(t, 1, client.calls)

	second := runner.JDAnalysis(context.Background(), "acme", "Requires SQL and Python")
	require.True(t, second.Success, second.Error)
	assert.True(t, second.FromCache, "identical input must be served from cache")
	assert.Equal(t, 1, client.calls, "no second provider invocation")
	assert.Equal(t, first.Payload, second.Payload)
	assert.Equal(t, first.ArtifactPath, second.ArtifactPath)
}

func TestJDAnalysis_CacheInvalidationOnChangedInput(t *testing.T) {
	client := &fakeClient{responses: []fakeResponse{
		{content: validJDAnalysis},
		{content: validJDAnalysis},
	}}
	runner, store := newTestRunner(t, client)

	first := runner.JDAnalysis(context.Background(), "acme", "Requires SQL")
	require.True(t, first.Success, first.Error)

	second := runner.JDAnalysis(context.Background(), "acme", "Requires Rust instead")
	require.True(t, second.Success, second.Error)
	assert.False(t, second.FromCache)
	assert.Equal(t, 2, client.calls)
	assert.NotEqual(t, first.ArtifactPath, second.ArtifactPath)

	// Old artifact remains on disk unmodified.
	require.Len(t, store.All("acme", artifact.StageJDAnalysis), 2)
	old, err := os.ReadFile(first.ArtifactPath)
	require.NoError(t, err)
	assert.NotEmpty(t, old)
}

func TestJDAnalysis_LegacyArtifactReusedByPresence(t *testing.T) {
	client := &fakeClient{}
	runner, store := newTestRunner(t, client)

	// Legacy artifact: no metadata sidecar, bare filename.
	dir := store.AnalysisDir("acme")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jd_analysis.json"), []byte(validJDAnalysis), 0o644))

	result := runner.JDAnalysis(context.Background(), "acme", "some totally new jd text")
	require.True(t, result.Success, result.Error)
	assert.True(t, result.FromCache)
	assert.Equal(t, 0, client.calls, "presence-only caching must not call the provider")
}

func TestMatching_MalformedResponseNotRetried(t *testing.T) {
	client := &fakeClient{responses: []fakeResponse{
		{content: `this is { not [ json`},
		{content: `{"never": "reached"}`},
	}}
	runner, _ := newTestRunner(t, client)

	result := runner.Matching(context.Background(), "acme", "cv", "{}")
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "invalid AI response format")
	assert.Equal(t, 1, client.calls, "malformed JSON must not trigger a retry")
}

func TestMatching_SingleQuotedResponseRepaired(t *testing.T) {
	client := &fakeClient{responses: []fakeResponse{
		{content: `{'matched_required_keywords': ['SQL']}`},
	}}
	runner, _ := newTestRunner(t, client)

	result := runner.Matching(context.Background(), "acme", "cv", "{}")
	require.True(t, result.Success, result.Error)
	assert.Equal(t, []any{"SQL"}, result.Payload["matched_required_keywords"])
}

func TestMatching_PartialPayloadDefaulting(t *testing.T) {
	client := &fakeClient{responses: []fakeResponse{
		{content: `{
			"matched_required_keywords": ["Python"],
			"matched_preferred_keywords": [],
			"missed_required_keywords": ["SQL"],
			"match_counts": {
				"total_required_keywords": 2,
				"total_preferred_keywords": 0,
				"matched_required_count": 1,
				"matched_preferred_count": 0
			}
		}`},
	}}
	runner, _ := newTestRunner(t, client)

	result := runner.Matching(context.Background(), "acme", "CV mentioning Python", validJDAnalysis)
	require.True(t, result.Success, result.Error)

	// missed_preferred_keywords was absent and must default to empty.
	assert.Equal(t, []any{}, result.Payload["missed_preferred_keywords"])
	assert.Equal(t, []any{"Python"}, result.Payload["matched_required_keywords"])
	assert.Equal(t, []any{"SQL"}, result.Payload["missed_required_keywords"])

	counts, ok := result.Payload["match_counts"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), counts["matched_required_count"])
	assert.Equal(t, float64(2), counts["total_required_keywords"])
}

func TestMatching_NeverCached(t *testing.T) {
	match := `{
		"matched_required_keywords": [],
		"matched_preferred_keywords": [],
		"missed_required_keywords": [],
		"missed_preferred_keywords": [],
		"match_counts": {"total_required_keywords": 0, "total_preferred_keywords": 0, "matched_required_count": 0, "matched_preferred_count": 0}
	}`
	client := &fakeClient{responses: []fakeResponse{{content: match}, {content: match}}}
	runner, _ := newTestRunner(t, client)

	first := runner.Matching(context.Background(), "acme", "cv", "{}")
	require.True(t, first.Success, first.Error)
	second := runner.Matching(context.Background(), "acme", "cv", "{}")
	require.True(t, second.Success, second.Error)
	assert.Equal(t, 2, client.calls, "matching always reflects the current CV")
}

func TestRunner_WithForceRefreshRecomputes(t *testing.T) {
	client := &fakeClient{responses: []fakeResponse{
		{content: validJDAnalysis},
		{content: validJDAnalysis},
	}}
	runner, store := newTestRunner(t, client)

	first := runner.JDAnalysis(context.Background(), "acme", "jd text")
	require.True(t, first.Success, first.Error)

	refreshed := runner.WithForceRefresh().JDAnalysis(context.Background(), "acme", "jd text")
	require.True(t, refreshed.Success, refreshed.Error)
	assert.False(t, refreshed.FromCache)
	assert.Equal(t, 2, client.calls)
	assert.NotEqual(t, first.ArtifactPath, refreshed.ArtifactPath)
	assert.Len(t, store.All("acme", artifact.StageJDAnalysis), 2)

	// The base runner is untouched and reuses the refreshed artifact.
	cached := runner.JDAnalysis(context.Background(), "acme", "jd text")
	require.True(t, cached.Success, cached.Error)
	assert.True(t, cached.FromCache)
	assert.Equal(t, 2, client.calls)
}

func TestCallProvider_TransientErrorRetried(t *testing.T) {
	client := &fakeClient{responses: []fakeResponse{
		{err: &llm.ProviderError{Message: "timeout", Transient: true}},
		{err: &llm.ProviderError{Message: "503", Transient: true}},
		{content: validJDAnalysis},
	}}
	runner, _ := newTestRunner(t, client)

	result := runner.JDAnalysis(context.Background(), "acme", "jd text")
	require.True(t, result.Success, result.Error)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, client.calls)
}

func TestCallProvider_RetriesExhausted(t *testing.T) {
	client := &fakeClient{responses: []fakeResponse{
		{err: &llm.ProviderError{Message: "timeout", Transient: true}},
		{err: &llm.ProviderError{Message: "timeout", Transient: true}},
		{err: &llm.ProviderError{Message: "timeout", Transient: true}},
	}}
	runner, _ := newTestRunner(t, client)

	result := runner.JDAnalysis(context.Background(), "acme", "jd text")
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "AI service unavailable")
	assert.Equal(t, 3, client.calls)
}

func TestCallProvider_PermanentErrorNotRetried(t *testing.T) {
	client := &fakeClient{responses: []fakeResponse{
		{err: &llm.ProviderError{Message: "no model configured", Transient: false}},
	}}
	runner, _ := newTestRunner(t, client)

	result := runner.JDAnalysis(context.Background(), "acme", "jd text")
	assert.False(t, result.Success)
	assert.Equal(t, 1, client.calls)
	assert.Contains(t, result.Error, "AI service rejected the request")
	assert.NotContains(t, result.Error, "unavailable")
}

func TestTailoring_StoresTailoredCVVariant(t *testing.T) {
	client := &fakeClient{responses: []fakeResponse{{content: "Tailored CV text"}}}
	runner, store := newTestRunner(t, client)

	result := runner.Tailoring(context.Background(), "acme", "cv", "{}", "{}")
	require.True(t, result.Success, result.Error)
	assert.Equal(t, "Tailored CV text", result.Text)
	assert.Equal(t, store.TailoredCVDir(), filepath.Dir(result.ArtifactPath))

	// Same inputs reuse the stored tailored CV.
	second := runner.Tailoring(context.Background(), "acme", "cv", "{}", "{}")
	require.True(t, second.Success, second.Error)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, client.calls)
}
