package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/cv-match/internal/types"
)

func TestBuildRunOptions_MapsRequestFields(t *testing.T) {
	s := &Server{log: zap.NewNop()}

	opts, err := s.buildRunOptions(context.Background(), types.AnalyzeRequest{
		Company:      "acme",
		JDText:       "jd text",
		ForceRefresh: true,
		UseLatest:    true,
	}, false)
	require.NoError(t, err)

	assert.Equal(t, "acme", opts.Company)
	assert.Equal(t, "jd text", opts.JDText)
	assert.True(t, opts.ForceRefresh, "force_refresh must reach the pipeline options")
	assert.True(t, opts.UseLatestOverall)
	assert.False(t, opts.IsRerun)
}

func TestBuildRunOptions_RerunFlag(t *testing.T) {
	s := &Server{log: zap.NewNop()}

	opts, err := s.buildRunOptions(context.Background(), types.AnalyzeRequest{
		Company: "acme",
		JDText:  "jd text",
	}, true)
	require.NoError(t, err)
	assert.True(t, opts.IsRerun)
	assert.False(t, opts.ForceRefresh)
}
