package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"notevault-backend/internal/config"
	"notevault-backend/internal/logger"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"
)

const (
	summarySystemPrompt = "You are a helpful assistant that creates concise summaries. " +
		"Summarize the following note in 2-3 clear sentences. Focus on the main ideas and key points."
	tagsSystemPrompt = "You are a helpful assistant that generates relevant tags. " +
		"Generate 3-5 relevant, concise tags for this note. Return ONLY a JSON array of lowercase strings, " +
		`like: ["tag1", "tag2", "tag3"]. No additional text.`

	summaryTemperature = 0.3
	summaryMaxTokens   = 200
	tagsTemperature    = 0.5
	tagsMaxTokens      = 100

	// FallbackSummaryLength is how much of the note the deterministic
	// fallback summary keeps when the model call fails.
	FallbackSummaryLength = 100
)

// Gateway is the model capability surface consumed by the enrichment
// orchestrators. Summarize and GenerateTags absorb upstream failures into
// documented fallback values; SummarizeStream and Embed surface them so
// the caller decides (terminal error event, abandoned embedding phase).
type Gateway interface {
	Summarize(ctx context.Context, text string) string
	SummarizeStream(ctx context.Context, text string, onFragment func(fragment string)) (string, error)
	GenerateTags(ctx context.Context, text string) []string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GeminiClient implements Gateway against the Google Generative AI API.
type GeminiClient struct {
	client          *genai.Client
	generationModel string
	embeddingModel  string
	callTimeout     time.Duration
	breaker         *gobreaker.CircuitBreaker
	rateLimiter     *rate.Limiter
}

func NewGeminiClient(cfg *config.Config) (*GeminiClient, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	// ~10 requests per minute keeps a free-tier key out of 429 territory
	rateLimiter := rate.NewLimiter(rate.Limit(10.0/60.0), 2)

	return &GeminiClient{
		client:          client,
		generationModel: cfg.GenerationModel,
		embeddingModel:  cfg.EmbeddingModel,
		callTimeout:     cfg.ModelCallTimeout,
		breaker:         breaker,
		rateLimiter:     rateLimiter,
	}, nil
}

// Summarize generates a 2-3 sentence summary of the text. A failed model
// call falls back to FallbackSummary so the pipeline never blocks here.
func (gc *GeminiClient) Summarize(ctx context.Context, text string) string {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.summarize")
	defer span.End()
	span.SetAttributes(attribute.Int("gemini.input_chars", len(text)))

	ctx, cancel := context.WithTimeout(ctx, gc.callTimeout)
	defer cancel()

	result, err := gc.execute(ctx, func() (interface{}, error) {
		model := gc.generativeModel(summarySystemPrompt, summaryTemperature, summaryMaxTokens)
		return model.GenerateContent(ctx, genai.Text(text))
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.fallback", true))
		logger.Error("Summary generation failed, using fallback", "error", err)
		return FallbackSummary(text)
	}

	summary := extractText(result.(*genai.GenerateContentResponse))
	if summary == "" {
		span.SetAttributes(attribute.Bool("gemini.fallback", true))
		return FallbackSummary(text)
	}
	return summary
}

// SummarizeStream generates the same summary but delivers it as
// incremental fragments through onFragment, in arrival order. It returns
// the full concatenated summary. Unlike Summarize, a stream failure is
// returned to the caller.
func (gc *GeminiClient) SummarizeStream(ctx context.Context, text string, onFragment func(fragment string)) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.summarize_stream")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, gc.callTimeout)
	defer cancel()

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		return "", err
	}

	model := gc.generativeModel(summarySystemPrompt, summaryTemperature, summaryMaxTokens)
	iter := model.GenerateContentStream(ctx, genai.Text(text))

	var full strings.Builder
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			span.SetAttributes(attribute.Bool("gemini.error", true))
			return "", err
		}
		fragment := extractText(resp)
		if fragment == "" {
			continue
		}
		full.WriteString(fragment)
		onFragment(fragment)
	}

	span.SetAttributes(attribute.Int("gemini.summary_chars", full.Len()))
	return full.String(), nil
}

// GenerateTags asks the model for a strict JSON array of tags and runs the
// output through ParseTagList. It never fails: a dead model call or
// unusable output both end in the default tag pair.
func (gc *GeminiClient) GenerateTags(ctx context.Context, text string) []string {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.generate_tags")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, gc.callTimeout)
	defer cancel()

	result, err := gc.execute(ctx, func() (interface{}, error) {
		model := gc.generativeModel(tagsSystemPrompt, tagsTemperature, tagsMaxTokens)
		return model.GenerateContent(ctx, genai.Text(text))
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.fallback", true))
		logger.Error("Tag generation failed, using default tags", "error", err)
		return DefaultTags()
	}

	tags := ParseTagList(extractText(result.(*genai.GenerateContentResponse)))
	span.SetAttributes(attribute.Int("gemini.tag_count", len(tags)))
	return tags
}

// Embed returns the embedding vector for one chunk of text. Failures are
// returned as-is; the orchestrator abandons the embedding phase on the
// first one.
func (gc *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.embed")
	defer span.End()
	span.SetAttributes(attribute.Int("gemini.input_chars", len(text)))

	ctx, cancel := context.WithTimeout(ctx, gc.callTimeout)
	defer cancel()

	result, err := gc.execute(ctx, func() (interface{}, error) {
		model := gc.client.EmbeddingModel(gc.embeddingModel)
		return model.EmbedContent(ctx, genai.Text(text))
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return nil, err
	}

	resp := result.(*genai.EmbedContentResponse)
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, errors.New("no embedding returned")
	}
	return resp.Embedding.Values, nil
}

// execute runs a model call behind the rate limiter and circuit breaker.
func (gc *GeminiClient) execute(ctx context.Context, call func() (interface{}, error)) (interface{}, error) {
	if err := gc.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	return gc.breaker.Execute(call)
}

func (gc *GeminiClient) generativeModel(systemPrompt string, temperature float32, maxTokens int32) *genai.GenerativeModel {
	model := gc.client.GenerativeModel(gc.generationModel)
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(maxTokens)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	return model
}

// FallbackSummary is the deterministic substitute used when summary
// generation fails: the first 100 characters of the note plus ellipsis.
func FallbackSummary(text string) string {
	preview := text
	if len(preview) > FallbackSummaryLength {
		preview = preview[:FallbackSummaryLength]
	}
	return "Note about: " + preview + "..."
}

// extractText concatenates the text parts of a Gemini response.
func extractText(resp *genai.GenerateContentResponse) string {
	var result strings.Builder

	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					result.WriteString(string(text))
				}
			}
		}
	}

	return result.String()
}

// Close the underlying API client
func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}
