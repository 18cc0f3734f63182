package compat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcErr "github.com/oggyb/devmatch/internal/errors"
)

type capturedRequest struct {
	path   string
	query  string
	apiKey string
	body   map[string]any
}

// fakeCompletions serves a single canned chat completion.
func fakeCompletions(t *testing.T, content string, status int) (*httptest.Server, *capturedRequest) {
	t.Helper()
	got := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.query = r.URL.Query().Get("api-version")
		got.apiKey = r.Header.Get("api-key")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &got.body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

var (
	ada   = Profile{Name: "Ada", Bio: "backend", Skills: []string{"go", "postgres"}, ExperienceLevel: "ADVANCED", Availability: "PART_TIME"}
	linus = Profile{Name: "Linus", Bio: "kernels", Skills: []string{"c"}, ExperienceLevel: "ADVANCED", Availability: "HACKATHON"}
)

func TestOpenAIScorer_Score(t *testing.T) {
	srv, got := fakeCompletions(t, `{"score": 82, "summary": "Strong overlap in backend skills"}`, http.StatusOK)

	s := NewOpenAIScorer(OpenAIConfig{Endpoint: srv.URL, APIKey: "k", Model: "gpt-4o-mini"})
	res, err := s.Score(context.Background(), ada, linus)
	require.NoError(t, err)
	assert.Equal(t, Result{Score: 82, Summary: "Strong overlap in backend skills"}, res)

	assert.Equal(t, "/chat/completions", got.path)
	assert.Equal(t, "gpt-4o-mini", got.body["model"])
	assert.Equal(t, 0.3, got.body["temperature"])

	msgs, ok := got.body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	user := msgs[1].(map[string]any)
	assert.Equal(t, "user", user["role"])
	assert.Contains(t, user["content"], "Skills: go, postgres")
	assert.Contains(t, user["content"], "Name: Linus")
}

func TestOpenAIScorer_AzureRouting(t *testing.T) {
	srv, got := fakeCompletions(t, "```json\n{\"score\": 40, \"summary\": \"ok\"}\n```", http.StatusOK)

	s := NewOpenAIScorer(OpenAIConfig{Endpoint: srv.URL + "/", APIKey: "azure-key", APIVersion: "2024-06-01", Model: "devmatch-gpt"})
	res, err := s.Score(context.Background(), ada, linus)
	require.NoError(t, err)
	assert.Equal(t, 40, res.Score)

	assert.Equal(t, "/openai/deployments/devmatch-gpt/chat/completions", got.path)
	assert.Equal(t, "2024-06-01", got.query)
	assert.Equal(t, "azure-key", got.apiKey)
}

func TestOpenAIScorer_UpstreamFailure(t *testing.T) {
	srv, _ := fakeCompletions(t, "", http.StatusInternalServerError)

	s := NewOpenAIScorer(OpenAIConfig{Endpoint: srv.URL, APIKey: "k", Model: "m"})
	_, err := s.Score(context.Background(), ada, linus)
	assert.True(t, svcErr.IsKind(err, svcErr.KindUpstream))
}

func TestParseResult(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    Result
		wantErr bool
	}{
		{"plain", `{"score": 82, "summary": " fit "}`, Result{82, "fit"}, false},
		{"fenced", "```json\n{\"score\": 0, \"summary\": \"none\"}\n```", Result{0, "none"}, false},
		{"bare fence", "```\n{\"score\": 100, \"summary\": \"max\"}\n```", Result{100, "max"}, false},
		{"too high", `{"score": 101, "summary": "x"}`, Result{}, true},
		{"negative", `{"score": -1, "summary": "x"}`, Result{}, true},
		{"prose", `I think they match`, Result{}, true},
		{"float integral", `{"score": 82.0, "summary": "x"}`, Result{82, "x"}, false},
		{"fractional rounds", `{"score": 82.5, "summary": "x"}`, Result{83, "x"}, false},
		{"fractional rounds down", `{"score": 64.2, "summary": "x"}`, Result{64, "x"}, false},
		{"exponent", `{"score": 7.5e1, "summary": "x"}`, Result{75, "x"}, false},
		{"just above range", `{"score": 100.4, "summary": "x"}`, Result{}, true},
		{"missing score", `{"summary": "x"}`, Result{}, true},
		{"string score", `{"score": "82", "summary": "x"}`, Result{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseResult(tc.in)
			if tc.wantErr {
				assert.True(t, svcErr.IsKind(err, svcErr.KindUpstream), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	p := buildPrompt(ada, linus)
	assert.True(t, strings.Index(p, "User A:") < strings.Index(p, "User B:"))
	assert.Contains(t, p, "Availability: HACKATHON")
	assert.Contains(t, p, `"score": number (0-100)`)
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable.Score(context.Background(), ada, linus)
	assert.True(t, svcErr.IsKind(err, svcErr.KindUpstream))
}
