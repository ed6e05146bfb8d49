// Package narrative supplies the optional AI/LLM narrative-analysis
// enhancement spec §1/§9 calls for, invoked through a capability
// interface so a scan never depends on it to complete. The teacher's
// llm.Client (plain net/http, OpenAI-compatible chat completion,
// llm/client.go) is adapted as the one concrete implementation.
package narrative

import (
	"context"
	"fmt"
	"strings"
	"time"

	"signalengine/detect"
	"signalengine/llm"
)

const narrationTTL = 6 * time.Hour
const narrationCooldown = 2 * time.Minute

// Analyzer produces a short natural-language rationale for a scored
// candidate. Implementations may call out to an LLM; a failure or
// missing Analyzer must never block scoring or persistence.
type Analyzer interface {
	Narrate(ctx context.Context, candidate detect.CandidateSignal, overallScore float64, grade string) (string, error)
}

// ChatClient is the subset of llm.Client's surface this package needs,
// kept as an interface so LLMAnalyzer doesn't depend on llm.Client
// directly and tests can stub it.
type ChatClient interface {
	ChatCompletion(ctx context.Context, messages []Message) (string, error)
}

// Message mirrors llm.Message so callers don't need to import llm to
// build the narrative system/user turns.
type Message struct {
	Role    string
	Content string
}

const systemPrompt = "You are a disciplined quantitative trading analyst. Your analysis must be grounded strictly in the provided data — do not invent facts, news, or context not given. Be concise and direct."

// LLMClientAdapter wraps the teacher-derived llm.Client so it satisfies
// ChatClient without this package depending on llm.Message directly.
type LLMClientAdapter struct {
	Client *llm.Client
}

func (a LLMClientAdapter) ChatCompletion(ctx context.Context, messages []Message) (string, error) {
	converted := make([]llm.Message, len(messages))
	for i, m := range messages {
		converted[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return a.Client.ChatCompletion(ctx, converted)
}

// LLMAnalyzer adapts a ChatClient into an Analyzer. cache is optional
// (nil disables de-duplication and cooldown) — mirrors the teacher's
// LLMCache-backed analysis flow (cache/llm_cache.go), keyed here on the
// candidate's own fields instead of a whale alert.
type LLMAnalyzer struct {
	client ChatClient
	cache  *Cache
}

func NewLLMAnalyzer(client ChatClient) *LLMAnalyzer {
	return &LLMAnalyzer{client: client}
}

// WithCache attaches a Cache for narration de-duplication and per-symbol
// cooldown, returning the same analyzer for chaining at construction time.
func (a *LLMAnalyzer) WithCache(c *Cache) *LLMAnalyzer {
	a.cache = c
	return a
}

func (a *LLMAnalyzer) Narrate(ctx context.Context, candidate detect.CandidateSignal, overallScore float64, grade string) (string, error) {
	dataHash := DataHash(candidate)

	if a.cache != nil {
		if cached, ok := a.cache.GetNarration(ctx, candidate.Symbol, dataHash); ok {
			return cached, nil
		}
		if a.cache.IsInCooldown(ctx, candidate.Symbol) {
			return "", fmt.Errorf("Narrate: %s is in cooldown", candidate.Symbol)
		}
	}

	prompt := buildPrompt(candidate, overallScore, grade)
	resp, err := a.client.ChatCompletion(ctx, []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	})
	if a.cache != nil {
		_ = a.cache.SetCooldown(ctx, candidate.Symbol, narrationCooldown)
	}
	if err != nil {
		return "", fmt.Errorf("Narrate: %w", err)
	}

	narration := strings.TrimSpace(resp)
	if a.cache != nil {
		_ = a.cache.SetNarration(ctx, candidate.Symbol, dataHash, narration, narrationTTL)
	}
	return narration, nil
}

// buildPrompt composes the per-candidate analysis prompt. Structured as
// context sections followed by an explicit instruction list, the same
// shape the teacher's prompt formatters use (llm/patterns.go's
// FormatSymbolAnalysisPrompt), adapted from whale-flow statistics to a
// scored detector candidate.
func buildPrompt(candidate detect.CandidateSignal, overallScore float64, grade string) string {
	var sb strings.Builder
	sb.Grow(512)

	sb.WriteString(fmt.Sprintf("Setup: %s, strategy %s\n", candidate.Symbol, candidate.Strategy))
	sb.WriteString(fmt.Sprintf("Close price: %.2f | Detected: %s\n\n", candidate.ClosePrice, candidate.DetectedAt.Format("2006-01-02")))

	sb.WriteString("Component scores:\n")
	if candidate.Components.Volume != nil {
		sb.WriteString(fmt.Sprintf("- Volume: %.2f\n", *candidate.Components.Volume))
	}
	if candidate.Components.Momentum != nil {
		sb.WriteString(fmt.Sprintf("- Momentum: %.2f\n", *candidate.Components.Momentum))
	}
	if candidate.Components.RelativeStrength != nil {
		sb.WriteString(fmt.Sprintf("- Relative strength: %.2f\n", *candidate.Components.RelativeStrength))
	}
	if candidate.Components.RiskLiquidity != nil {
		sb.WriteString(fmt.Sprintf("- Risk/liquidity: %.2f\n", *candidate.Components.RiskLiquidity))
	}
	if candidate.Components.Fundamental != nil {
		sb.WriteString(fmt.Sprintf("- Fundamental: %.2f\n", *candidate.Components.Fundamental))
	}
	sb.WriteString(fmt.Sprintf("\nOverall score: %.2f | Grade: %s\n", overallScore, grade))

	sb.WriteString("\nIn two sentences: explain what this setup means for a trader and name the single largest risk. Be concise and direct.")
	return sb.String()
}
