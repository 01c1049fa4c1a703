// Package gateway is the single point of contact with a remote LLM
// backend: one-shot summarize/classify calls and a bounded multi-turn
// tool loop, wrapped in an interface so the rest of the engine never
// imports genkit directly.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/anthropic"
	"github.com/firebase/genkit/go/plugins/compat_oai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
)

// Gateway is the narrow capability surface the rest of the engine
// consumes: Summarize/Classify/AgentTurn, per spec.md §4.2. Both
// *GenkitGateway and the network-free *FakeGateway implement it, so
// Escalation and the Parallel Map Executor can be unit tested without a
// live model.
type Gateway interface {
	Summarize(ctx context.Context, text, mode string, targetTokens int) (string, error)
	Classify(ctx context.Context, item, prompt string, outputSchema json.RawMessage) (json.RawMessage, error)
	AgentTurn(ctx context.Context, item, prompt string, opts AgentTurnOptions) (AgentTurnResult, error)
}

// AgentTurnOptions configures a multi-turn tool loop call.
type AgentTurnOptions struct {
	// Tools overrides the default catalogue. When empty, the default
	// catalogue is used: read_file always, bash iff !ReadOnly.
	Tools    []ai.ToolRef
	ReadOnly bool
	MaxTurns int
}

// AgentTurnResult is the JSON-shaped outcome of an AgentTurn call.
type AgentTurnResult struct {
	Result  string `json:"result"`
	Partial bool   `json:"partial,omitempty"`
}

// Config selects and authenticates the backend model.
type Config struct {
	Provider                 string // anthropic | openai | openai_compatible | google
	Model                    string
	APIKey                   string
	OpenAICompatibleProvider string
	OpenAICompatibleBaseURL  string
}

// GenkitGateway implements Gateway over a genkit.Genkit instance
// initialized with a single provider plugin, mirroring the teacher's own
// provider switch in NewGenkitBrain.
type GenkitGateway struct {
	g        *genkit.Genkit
	model    string
	llmOn    bool
	readFile ai.ToolRef
	bash     ai.ToolRef
}

// New initializes a GenkitGateway for the configured provider. When no API
// key is available for the selected provider, the genkit instance and the
// default tools are still created, but llmOn is false and every
// Summarize/Classify/AgentTurn call returns a "no model configured" error
// before contacting any backend.
func New(ctx context.Context, cfg Config) *GenkitGateway {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "anthropic"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModelForProvider(provider)
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		apiKey = envAPIKeyForProvider(provider)
	}

	var g *genkit.Genkit
	llmOn := false

	switch provider {
	case "anthropic":
		if apiKey != "" {
			g = genkit.Init(ctx, genkit.WithPlugins(&anthropic.Anthropic{
				APIKey:  apiKey,
				BaseURL: os.Getenv("ANTHROPIC_BASE_URL"),
			}))
			llmOn = true
			slog.Info("llm gateway initialized", "provider", "anthropic", "model", model)
		} else {
			g = genkit.Init(ctx)
			slog.Warn("anthropic api key missing; gateway calls will fail", "provider", provider)
		}
	case "openai":
		if apiKey != "" {
			g = genkit.Init(ctx, genkit.WithPlugins(&compat_oai.OpenAICompatible{
				Provider: "openai",
				APIKey:   apiKey,
				BaseURL:  os.Getenv("OPENAI_BASE_URL"),
			}))
			llmOn = true
			slog.Info("llm gateway initialized", "provider", "openai", "model", model)
		} else {
			g = genkit.Init(ctx)
			slog.Warn("openai api key missing; gateway calls will fail", "provider", provider)
		}
	case "openai_compatible":
		if apiKey != "" {
			g = genkit.Init(ctx, genkit.WithPlugins(&compat_oai.OpenAICompatible{
				Provider: cfg.OpenAICompatibleProvider,
				APIKey:   apiKey,
				BaseURL:  cfg.OpenAICompatibleBaseURL,
			}))
			llmOn = true
			slog.Info("llm gateway initialized", "provider", "openai_compatible", "model", model)
		} else {
			g = genkit.Init(ctx)
			slog.Warn("openai-compatible api key missing; gateway calls will fail", "provider", provider)
		}
	case "google":
		if apiKey != "" {
			_ = os.Setenv("GEMINI_API_KEY", apiKey)
			g = genkit.Init(ctx,
				genkit.WithPlugins(&googlegenai.GoogleAI{}),
				genkit.WithDefaultModel("googleai/"+model))
			llmOn = true
			slog.Info("llm gateway initialized", "provider", "google", "model", model)
		} else {
			g = genkit.Init(ctx)
			slog.Warn("google api key missing; gateway calls will fail", "provider", provider)
		}
	default:
		g = genkit.Init(ctx)
		slog.Warn("unknown llm provider, gateway calls will fail", "provider", provider)
	}

	gw := &GenkitGateway{g: g, model: model, llmOn: llmOn}
	gw.readFile = defineReadFileTool(g)
	gw.bash = defineBashTool(g)
	return gw
}

func defaultModelForProvider(provider string) string {
	switch provider {
	case "anthropic":
		return "claude-sonnet-4-5"
	case "openai":
		return "gpt-4o-mini"
	case "google":
		return "gemini-2.0-flash"
	default:
		return ""
	}
}

func envAPIKeyForProvider(provider string) string {
	switch provider {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "openai", "openai_compatible":
		return os.Getenv("OPENAI_API_KEY")
	case "google":
		return os.Getenv("GOOGLE_API_KEY")
	default:
		return ""
	}
}
