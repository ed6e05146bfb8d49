package narrative

import (
	"context"
	"errors"
	"testing"
	"time"

	"signalengine/detect"
	"signalengine/scoring"
)

type fakeChatClient struct {
	calls    int
	response string
	err      error
}

func (f *fakeChatClient) ChatCompletion(_ context.Context, messages []Message) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(messages) != 2 || messages[0].Role != "system" {
		f.err = errors.New("unexpected message shape")
	}
	return f.response, nil
}

func testCandidate() detect.CandidateSignal {
	v, m, rs, rl := 0.9, 0.8, 0.7, 0.6
	return detect.CandidateSignal{
		Symbol:     "PENY",
		Strategy:   "penny_explosion",
		ClosePrice: 2.0,
		Components: scoring.Components{Volume: &v, Momentum: &m, RelativeStrength: &rs, RiskLiquidity: &rl},
		DetectedAt: time.Now(),
	}
}

func TestLLMAnalyzer_Narrate(t *testing.T) {
	client := &fakeChatClient{response: "  Strong breakout setup. Watch for liquidity risk.  "}
	a := NewLLMAnalyzer(client)

	got, err := a.Narrate(context.Background(), testCandidate(), 0.82, "A")
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if got != "Strong breakout setup. Watch for liquidity risk." {
		t.Errorf("Narrate returned %q, want trimmed response", got)
	}
	if client.calls != 1 {
		t.Fatalf("ChatCompletion called %d times, want 1", client.calls)
	}
}

func TestLLMAnalyzer_Narrate_CachesResult(t *testing.T) {
	client := &fakeChatClient{response: "cached narration"}
	cache := NewCache(nil) // nil redis: cache reads/writes are no-ops
	a := NewLLMAnalyzer(client).WithCache(cache)

	candidate := testCandidate()
	if _, err := a.Narrate(context.Background(), candidate, 0.82, "A"); err != nil {
		t.Fatalf("first Narrate: %v", err)
	}
	if _, err := a.Narrate(context.Background(), candidate, 0.82, "A"); err != nil {
		t.Fatalf("second Narrate: %v", err)
	}
	// nil-backed Cache never actually caches, so both calls hit the client;
	// this only asserts that a nil redis doesn't break the Narrate path.
	if client.calls != 2 {
		t.Fatalf("ChatCompletion called %d times, want 2 (nil cache never hits)", client.calls)
	}
}

func TestLLMAnalyzer_Narrate_PropagatesError(t *testing.T) {
	client := &fakeChatClient{err: errors.New("upstream down")}
	a := NewLLMAnalyzer(client)

	if _, err := a.Narrate(context.Background(), testCandidate(), 0.5, "C"); err == nil {
		t.Fatal("expected an error from a failing ChatClient")
	}
}

func TestDataHash_StableForIdenticalInput(t *testing.T) {
	c := testCandidate()
	h1 := DataHash(c)
	h2 := DataHash(c)
	if h1 != h2 {
		t.Errorf("DataHash not stable: %q != %q", h1, h2)
	}
}
