package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// recordingReporter captures progress updates and events for assertions.
type recordingReporter struct {
	mu       sync.Mutex
	progress []int
	messages []string
	events   []models.Event
}

func (r *recordingReporter) Progress(progress int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, progress)
	r.messages = append(r.messages, message)
}

func (r *recordingReporter) Event(ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingReporter) eventsOfType(t models.EventType) []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recordingReporter) progressValues() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.progress...)
}

// scriptedLLM routes prompts to canned responses by matching substrings of
// the prompt text.
type scriptedLLM struct {
	mu    sync.Mutex
	calls []string

	queryResponse   string
	queryErr        error
	briefingErr     error
	compileErr      error
	polishErr       error
	compileResponse string
	polishResponse  string
}

func (f *scriptedLLM) respond(prompt string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, prompt)
	f.mu.Unlock()

	switch {
	case strings.Contains(prompt, "Generate 4 specific search queries"):
		if f.queryErr != nil {
			return "", f.queryErr
		}
		return f.queryResponse, nil
	case strings.Contains(prompt, "compiling a comprehensive research report"):
		if f.compileErr != nil {
			return "", f.compileErr
		}
		if f.compileResponse != "" {
			return f.compileResponse, nil
		}
		return "## Company\n\n* compiled facts\n", nil
	case strings.Contains(prompt, "polishing a research report"):
		if f.polishErr != nil {
			return "", f.polishErr
		}
		if f.polishResponse != "" {
			return f.polishResponse, nil
		}
		return "## Company\n\n* polished facts\n", nil
	default:
		if f.briefingErr != nil {
			return "", f.briefingErr
		}
		return "* briefing point one\n* briefing point two", nil
	}
}

func (f *scriptedLLM) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	return f.respond(messages[len(messages)-1].Content)
}

func (f *scriptedLLM) ChatStream(ctx context.Context, messages []interfaces.Message, onDelta func(string)) (string, error) {
	text, err := f.respond(messages[len(messages)-1].Content)
	if err != nil {
		return "", err
	}
	// Deliver in small chunks so newline handling is exercised.
	for i := 0; i < len(text); i += 7 {
		end := i + 7
		if end > len(text) {
			end = len(text)
		}
		if onDelta != nil {
			onDelta(text[i:end])
		}
	}
	return text, nil
}

func (f *scriptedLLM) HealthCheck(ctx context.Context) error { return nil }
func (f *scriptedLLM) Close() error                          { return nil }

// fakeSearch returns a fixed number of synthetic results per query.
type fakeSearch struct {
	mu      sync.Mutex
	queries []string
	perHit  int
	err     error
}

func (f *fakeSearch) Search(ctx context.Context, query string, opts interfaces.SearchOptions) ([]interfaces.SearchResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	count := f.perHit
	if count == 0 {
		count = 2
	}
	results := make([]interfaces.SearchResult, 0, count)
	for i := 0; i < count; i++ {
		slug := strings.ReplaceAll(strings.ToLower(query), " ", "-")
		results = append(results, interfaces.SearchResult{
			URL:     fmt.Sprintf("https://example.com/%s/%d?utm=1", slug, i),
			Title:   fmt.Sprintf("Result %d for %s", i, query),
			Content: fmt.Sprintf("content for %s %d", query, i),
			Score:   0.9 - float64(i)*0.1,
		})
	}
	return results, nil
}

// fakeExtract returns deterministic raw content per URL.
type fakeExtract struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (f *fakeExtract) Extract(ctx context.Context, urls []string, depth string) ([]interfaces.ExtractResult, error) {
	f.mu.Lock()
	f.urls = append(f.urls, urls...)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	results := make([]interfaces.ExtractResult, 0, len(urls))
	for _, url := range urls {
		results = append(results, interfaces.ExtractResult{URL: url, RawContent: "full text for " + url})
	}
	return results, nil
}

func testResearchConfig() *common.ResearchConfig {
	cfg := common.NewDefaultConfig()
	return &cfg.Research
}

func queryLines(company string) string {
	return strings.Join([]string{
		company + " revenue growth 2026",
		company + " market share 2026",
		company + " product announcements 2026",
		company + " financial performance 2026",
	}, "\n") + "\n"
}
