package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-intake/internal/analysis"
	"github.com/sells-group/lead-intake/internal/config"
	"github.com/sells-group/lead-intake/internal/model"
	"github.com/sells-group/lead-intake/internal/notify"
	"github.com/sells-group/lead-intake/internal/ratelimit"
	"github.com/sells-group/lead-intake/internal/store"
	"github.com/sells-group/lead-intake/internal/tasks"
	"github.com/sells-group/lead-intake/pkg/anthropic"
)

// stubModel returns a canned model response for every CreateMessage call.
type stubModel struct {
	text string
	err  error
}

func (s *stubModel) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: s.text}},
	}, nil
}

func analysisJSON(autoApprove bool) string {
	return `{
		"complexityScore": 4,
		"estimatedHours": 60,
		"hourRange": {"min": 40, "max": 80},
		"recommendedRate": 225,
		"recommendedEngagementModel": "hourly",
		"totalEstimate": {"min": 9000, "max": 18000},
		"suitability": "good",
		"autoApprove": ` + map[bool]string{true: "true", false: "false"}[autoApprove] + `,
		"reasoning": "Well scoped."
	}`
}

type testEnv struct {
	store  store.Store
	runner *tasks.Runner
	srv    http.Handler
}

func newTestServer(t *testing.T, client anthropic.Client) *testEnv {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "briefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	analyzer := analysis.New(client, config.AnthropicConfig{Model: "claude-sonnet-4-5-20250929", MaxTokens: 2048})
	dispatcher := notify.NewDispatcher(config.SendGridConfig{}, ratelimit.New(10, time.Minute))
	runner := tasks.NewRunner(0)

	s := New(st, analyzer, dispatcher, nil, runner,
		config.ServerConfig{AllowedOrigins: []string{"*"}, SubmitRPS: 100, SubmitBurst: 100},
		config.AdminConfig{Password: "secret"},
	)
	return &testEnv{store: st, runner: runner, srv: s.Router()}
}

func submitBody(t *testing.T, input model.BriefInput) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(input)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func validInput() model.BriefInput {
	return model.BriefInput{
		Name:        "Jane Doe",
		Email:       "jane@example.com",
		Description: "We need a demand forecasting model.",
		BudgetRange: "10k-25k",
	}
}

func TestHealth(t *testing.T) {
	env := newTestServer(t, &stubModel{text: analysisJSON(true)})

	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitBriefApproved(t *testing.T) {
	env := newTestServer(t, &stubModel{text: analysisJSON(true)})

	req := httptest.NewRequest(http.MethodPost, "/api/submit-brief", submitBody(t, validInput()))
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success  bool `json:"success"`
		Spam     bool `json:"spam"`
		Analysis *struct {
			EstimatedHours  float64 `json:"estimatedHours"`
			ComplexityScore int     `json:"complexityScore"`
			Timeline        string  `json:"timeline"`
		} `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.False(t, resp.Spam)
	require.NotNil(t, resp.Analysis)
	assert.Equal(t, 60.0, resp.Analysis.EstimatedHours)
	assert.Equal(t, "48 hours for proposal", resp.Analysis.Timeline)

	env.runner.Wait()
	briefs, err := env.store.ListBriefs(context.Background(), store.BriefFilter{})
	require.NoError(t, err)
	require.Len(t, briefs, 1)
	assert.Equal(t, model.BriefStatusApproved, briefs[0].Status)
	assert.Equal(t, model.ComplexityMedium, briefs[0].Complexity)
}

func TestSubmitBriefPendingWithoutAutoApprove(t *testing.T) {
	env := newTestServer(t, &stubModel{text: analysisJSON(false)})

	req := httptest.NewRequest(http.MethodPost, "/api/submit-brief", submitBody(t, validInput()))
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	env.runner.Wait()
	briefs, err := env.store.ListBriefs(context.Background(), store.BriefFilter{})
	require.NoError(t, err)
	require.Len(t, briefs, 1)
	assert.Equal(t, model.BriefStatusPending, briefs[0].Status)
}

func TestSubmitBriefSpamShortCircuits(t *testing.T) {
	env := newTestServer(t, &stubModel{err: assert.AnError})

	input := validInput()
	input.Description = "make money fast with guaranteed income"
	req := httptest.NewRequest(http.MethodPost, "/api/submit-brief", submitBody(t, input))
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)

	// Spam is answered with success so abusers learn nothing, and the
	// analyzer is never reached.
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool `json:"success"`
		Spam    bool `json:"spam"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.Spam)

	env.runner.Wait()
	briefs, err := env.store.ListBriefs(context.Background(), store.BriefFilter{})
	require.NoError(t, err)
	assert.Empty(t, briefs)
}

func TestSubmitBriefValidation(t *testing.T) {
	env := newTestServer(t, &stubModel{text: analysisJSON(true)})

	tests := []struct {
		name  string
		input model.BriefInput
	}{
		{"missing name", model.BriefInput{Email: "a@b.co", Description: "x"}},
		{"missing email", model.BriefInput{Name: "Jane", Description: "x"}},
		{"missing description", model.BriefInput{Name: "Jane", Email: "a@b.co"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/submit-brief", submitBody(t, tt.input))
			rec := httptest.NewRecorder()
			env.srv.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSubmitBriefBadBody(t *testing.T) {
	env := newTestServer(t, &stubModel{text: analysisJSON(true)})

	req := httptest.NewRequest(http.MethodPost, "/api/submit-brief", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitBriefAnalyzerFailure(t *testing.T) {
	env := newTestServer(t, &stubModel{err: assert.AnError})

	req := httptest.NewRequest(http.MethodPost, "/api/submit-brief", submitBody(t, validInput()))
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "temporarily unavailable")

	env.runner.Wait()
	briefs, err := env.store.ListBriefs(context.Background(), store.BriefFilter{})
	require.NoError(t, err)
	assert.Empty(t, briefs)
}

func TestSubmitBriefMethodNotAllowed(t *testing.T) {
	env := newTestServer(t, &stubModel{text: analysisJSON(true)})

	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/submit-brief", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSubmitRateLimit(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "briefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	analyzer := analysis.New(&stubModel{text: analysisJSON(true)}, config.AnthropicConfig{})
	dispatcher := notify.NewDispatcher(config.SendGridConfig{}, ratelimit.New(10, time.Minute))
	runner := tasks.NewRunner(0)
	s := New(st, analyzer, dispatcher, nil, runner,
		config.ServerConfig{SubmitRPS: 0.001, SubmitBurst: 1},
		config.AdminConfig{Password: "secret"},
	)
	router := s.Router()
	defer runner.Wait()

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/submit-brief", submitBody(t, validInput())))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/submit-brief", submitBody(t, validInput())))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
