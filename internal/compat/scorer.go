// Package compat computes the AI compatibility score of a new match in the
// background and announces the result.
package compat

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/oggyb/devmatch/internal/db"
	svcErr "github.com/oggyb/devmatch/internal/errors"
)

// Profile is the part of a user the scorer sees.
type Profile struct {
	Name            string
	Bio             string
	Skills          []string
	ExperienceLevel string
	Availability    string
}

func ProfileFromUser(u db.User) Profile {
	return Profile{
		Name:            u.Name,
		Bio:             u.Bio,
		Skills:          u.Skills,
		ExperienceLevel: string(u.ExperienceLevel),
		Availability:    string(u.Availability),
	}
}

// Result is a validated scoring answer.
type Result struct {
	Score   int    `json:"score"`
	Summary string `json:"summary"`
}

// Scorer rates how well two developers fit.
type Scorer interface {
	Score(ctx context.Context, a, b Profile) (Result, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, a, b Profile) (Result, error)

func (f ScorerFunc) Score(ctx context.Context, a, b Profile) (Result, error) { return f(ctx, a, b) }

// Unavailable is used when no scoring endpoint is configured.
var Unavailable = ScorerFunc(func(context.Context, Profile, Profile) (Result, error) {
	return Result{}, svcErr.Upstream("compatibility scoring is not configured", nil)
})

const systemPrompt = "You respond only in valid JSON."

// OpenAIConfig selects an OpenAI-compatible chat completions endpoint.
// A non-empty APIVersion switches to Azure OpenAI deployment routing.
type OpenAIConfig struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	Model      string
}

// OpenAIScorer asks a chat completion model for {score, summary}.
type OpenAIScorer struct {
	client openai.Client
	model  string
}

func NewOpenAIScorer(cfg OpenAIConfig) *OpenAIScorer {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// failures are swallowed, never retried
		option.WithMaxRetries(0),
	}

	switch {
	case cfg.APIVersion != "":
		base := strings.TrimRight(cfg.Endpoint, "/") + "/openai/deployments/" + cfg.Model + "/"
		opts = append(opts,
			option.WithBaseURL(base),
			option.WithQuery("api-version", cfg.APIVersion),
			option.WithHeader("api-key", cfg.APIKey),
		)
	case cfg.Endpoint != "":
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.Endpoint, "/")+"/"))
	}

	return &OpenAIScorer{client: openai.NewClient(opts...), model: cfg.Model}
}

// Score sends both profiles in one prompt and parses the JSON answer.
func (s *OpenAIScorer) Score(ctx context.Context, a, b Profile) (Result, error) {
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildPrompt(a, b)),
		},
		Model:       openai.ChatModel(s.model),
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		return Result{}, svcErr.Upstream("compatibility scoring failed", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, svcErr.Upstream("compatibility scoring returned no choices", nil)
	}
	return ParseResult(resp.Choices[0].Message.Content)
}

func buildPrompt(a, b Profile) string {
	var sb strings.Builder
	sb.WriteString("You are a team compatibility evaluator.\n\n")
	sb.WriteString("Analyze the two developer profiles and return JSON only:\n\n")
	sb.WriteString("{\n  \"score\": number (0-100),\n  \"summary\": \"short explanation\"\n}\n")
	writeProfile(&sb, "User A", a)
	writeProfile(&sb, "User B", b)
	return sb.String()
}

func writeProfile(sb *strings.Builder, label string, p Profile) {
	fmt.Fprintf(sb, "\n%s:\nName: %s\nBio: %s\nSkills: %s\nExperience: %s\nAvailability: %s\n",
		label, p.Name, p.Bio, strings.Join(p.Skills, ", "), p.ExperienceLevel, p.Availability)
}

// ParseResult decodes a model answer, tolerating a markdown code fence.
// Any JSON number in 0-100 is accepted and rounded to the nearest integer.
func ParseResult(content string) (Result, error) {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}

	var raw struct {
		Score   *float64 `json:"score"`
		Summary string   `json:"summary"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &raw); err != nil {
		return Result{}, svcErr.Upstream("malformed scoring response", err)
	}
	if raw.Score == nil {
		return Result{}, svcErr.Upstream("scoring response has no score", nil)
	}
	if v := *raw.Score; math.IsNaN(v) || v < 0 || v > 100 {
		return Result{}, svcErr.Upstream(fmt.Sprintf("score %v out of range", v), nil)
	}
	return Result{
		Score:   int(math.Round(*raw.Score)),
		Summary: strings.TrimSpace(raw.Summary),
	}, nil
}
