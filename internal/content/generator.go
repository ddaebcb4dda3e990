// File: internal/content/generator.go
package content

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"linkpilot/api/schemas"
	"linkpilot/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Kind selects the prompt family for a generation call.
type Kind string

const (
	KindPost              Kind = "post"
	KindComment           Kind = "comment"
	KindConnectionMessage Kind = "connection_message"
)

// Sampling parameters. Content runs warm, decisions run cold.
const (
	contentTemperature  = 0.7
	decisionTemperature = 0.3
)

// Per-kind output budgets.
const (
	maxTokensPostShort  = 150
	maxTokensPostMedium = 250
	maxTokensPostLong   = 400
	maxTokensComment    = 150
	maxTokensConnection = 100
	maxTokensDecision   = 10
)

// GenerationError wraps a provider failure or empty result.
type GenerationError struct {
	Kind Kind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("content generation (%s) failed: %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Params carries the per-kind inputs for one generation.
type Params struct {
	Topic  string
	Style  string
	Length string // short, medium or long; posts only

	// Comment inputs.
	PostContent string
	PostContext string

	// Connection message inputs.
	ProfileSummary string
}

// Generator produces post, comment and connection-note text, and makes
// the advisory engage/skip decision.
type Generator struct {
	client  schemas.LLMClient
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New builds a Generator. When cfg.RequestsPerMinute is positive, all
// provider calls share a token-bucket limiter at that rate.
func New(client schemas.LLMClient, cfg config.ContentConfig, logger *zap.Logger) *Generator {
	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}
	return &Generator{
		client:  client,
		limiter: limiter,
		logger:  logger.Named("content"),
	}
}

// Generate produces one piece of text for the given kind. Post output
// runs through NormalizePost before it is returned.
func (g *Generator) Generate(ctx context.Context, kind Kind, params Params) (string, error) {
	req, err := buildRequest(kind, params)
	if err != nil {
		return "", &GenerationError{Kind: kind, Err: err}
	}

	if err := g.wait(ctx); err != nil {
		return "", &GenerationError{Kind: kind, Err: err}
	}

	text, err := g.client.Generate(ctx, req)
	if err != nil {
		return "", &GenerationError{Kind: kind, Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &GenerationError{Kind: kind, Err: fmt.Errorf("provider returned empty output")}
	}

	if kind == KindPost {
		text = NormalizePost(text)
	}
	return text, nil
}

// ShouldAct asks the model whether engaging with the subject is worth
// it. Fail closed: any failure, ambiguity or garbage answer means no.
func (g *Generator) ShouldAct(ctx context.Context, kind Kind, subjectText string, subjectMeta map[string]any) bool {
	meta := "{}"
	if len(subjectMeta) > 0 {
		if encoded, err := json.MarshalToString(subjectMeta); err == nil {
			meta = encoded
		}
	}

	req := schemas.GenerationRequest{
		SystemPrompt: "You decide whether an automated professional account should engage with content. " +
			"Answer with exactly one word: true or false.",
		UserPrompt: fmt.Sprintf("Proposed action: %s\nSubject:\n%s\nMetadata: %s\nShould we engage?",
			kind, subjectText, meta),
		Options: schemas.GenerationOptions{
			Temperature:     decisionTemperature,
			MaxOutputTokens: maxTokensDecision,
		},
	}

	if err := g.wait(ctx); err != nil {
		return false
	}
	answer, err := g.client.Generate(ctx, req)
	if err != nil {
		g.logger.Debug("Decision call failed; declining to act.", zap.Error(err))
		return false
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "true")
}

func (g *Generator) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	return g.limiter.Wait(ctx)
}

func buildRequest(kind Kind, params Params) (schemas.GenerationRequest, error) {
	switch kind {
	case KindPost:
		return schemas.GenerationRequest{
			SystemPrompt: fmt.Sprintf(
				"You write LinkedIn posts in a %s voice. Plain text only, no markdown. "+
					"Include 2-3 relevant hashtags.", orDefault(params.Style, "professional")),
			UserPrompt: fmt.Sprintf("Write a %s LinkedIn post about: %s",
				orDefault(params.Length, "medium"), params.Topic),
			Options: schemas.GenerationOptions{
				Temperature:     contentTemperature,
				MaxOutputTokens: postTokenBudget(params.Length),
			},
		}, nil
	case KindComment:
		return schemas.GenerationRequest{
			SystemPrompt: fmt.Sprintf(
				"You write short, substantive LinkedIn comments in a %s voice. "+
					"One or two sentences, no hashtags.", orDefault(params.Style, "professional")),
			UserPrompt: fmt.Sprintf("Post:\n%s\n\nContext: %s\n\nWrite a comment.",
				params.PostContent, params.PostContext),
			Options: schemas.GenerationOptions{
				Temperature:     contentTemperature,
				MaxOutputTokens: maxTokensComment,
			},
		}, nil
	case KindConnectionMessage:
		return schemas.GenerationRequest{
			SystemPrompt: "You write short, personal LinkedIn connection notes. " +
				"Under 280 characters, friendly, no flattery.",
			UserPrompt: fmt.Sprintf("Recipient profile summary:\n%s\n\nWrite the connection note.",
				params.ProfileSummary),
			Options: schemas.GenerationOptions{
				Temperature:     contentTemperature,
				MaxOutputTokens: maxTokensConnection,
			},
		}, nil
	default:
		return schemas.GenerationRequest{}, fmt.Errorf("unknown generation kind: %q", kind)
	}
}

func postTokenBudget(length string) int32 {
	switch length {
	case "short":
		return maxTokensPostShort
	case "long":
		return maxTokensPostLong
	default:
		return maxTokensPostMedium
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
