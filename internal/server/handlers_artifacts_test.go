package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/cv-match/internal/artifact"
	"github.com/jonathan/cv-match/internal/server/middleware"
)

func newArtifactTestServer(t *testing.T) (*Server, uuid.UUID, *artifact.Store) {
	t.Helper()
	s := &Server{dataRoot: t.TempDir(), log: zap.NewNop()}
	userID := uuid.New()
	return s, userID, s.userStore(userID)
}

func artifactRequest(userID uuid.UUID, company, stage string) *http.Request {
	path := "/companies/" + company + "/artifacts"
	if stage != "" {
		path += "/" + stage
	}
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	req.SetPathValue("company", company)
	if stage != "" {
		req.SetPathValue("stage", stage)
	}
	return req
}

func TestHandleListArtifacts(t *testing.T) {
	s, userID, store := newArtifactTestServer(t)

	_, err := store.Write("acme", artifact.StageJDAnalysis, []byte(`{"experience_years": "2+"}`), "hash1")
	require.NoError(t, err)
	_, err = store.Write("acme", artifact.StageTailoredCV, []byte("tailored text"), "hash2")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.handleListArtifacts(rec, artifactRequest(userID, "acme", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	var summaries []ArtifactSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 2)

	stages := []string{summaries[0].Stage, summaries[1].Stage}
	assert.Contains(t, stages, "jd_analysis")
	assert.Contains(t, stages, "tailored_cv")
}

func TestHandleListArtifacts_Empty(t *testing.T) {
	s, userID, _ := newArtifactTestServer(t)

	rec := httptest.NewRecorder()
	s.handleListArtifacts(rec, artifactRequest(userID, "ghost", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHandleGetArtifact(t *testing.T) {
	s, userID, store := newArtifactTestServer(t)

	_, err := store.Write("acme", artifact.StageJDAnalysis, []byte(`{"experience_years": "5+"}`), "hash")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.handleGetArtifact(rec, artifactRequest(userID, "acme", "jd_analysis"))

	require.Equal(t, http.StatusOK, rec.Code)
	var response map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	payload := response["payload"].(map[string]any)
	assert.Equal(t, "5+", payload["experience_years"])
}

func TestHandleGetArtifact_TextStage(t *testing.T) {
	s, userID, store := newArtifactTestServer(t)

	_, err := store.Write("acme", artifact.StageTailoredCV, []byte("tailored body"), "hash")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.handleGetArtifact(rec, artifactRequest(userID, "acme", "tailored_cv"))

	require.Equal(t, http.StatusOK, rec.Code)
	var response map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "tailored body", response["text"])
}

func TestHandleGetArtifact_Errors(t *testing.T) {
	s, userID, _ := newArtifactTestServer(t)

	rec := httptest.NewRecorder()
	s.handleGetArtifact(rec, artifactRequest(userID, "acme", "bogus"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	s.handleGetArtifact(rec, artifactRequest(userID, "acme", "jd_analysis"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestArtifacts_ScopedToUser(t *testing.T) {
	s, alice, aliceStore := newArtifactTestServer(t)
	bob := uuid.New()

	_, err := aliceStore.Write("acme", artifact.StageTailoredCV, []byte("alice's tailored CV"), "hash")
	require.NoError(t, err)

	// Alice sees her artifact.
	rec := httptest.NewRecorder()
	s.handleGetArtifact(rec, artifactRequest(alice, "acme", "tailored_cv"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice's tailored CV")

	// Bob, same company and stage, sees nothing.
	rec = httptest.NewRecorder()
	s.handleGetArtifact(rec, artifactRequest(bob, "acme", "tailored_cv"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	s.handleListArtifacts(rec, artifactRequest(bob, "acme", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	// Bob's pipeline roots under his own directory, so his runs read and
	// write a disjoint tree.
	_, bobStore := s.userPipeline(bob)
	assert.NotEqual(t, aliceStore.Root(), bobStore.Root())
	latest, err := bobStore.Latest("acme", artifact.StageTailoredCV)
	require.NoError(t, err)
	assert.Nil(t, latest)
}
