package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/ternarybob/indago/internal/models"
)

// EditorStage compiles the four briefings into the final markdown report with
// two sequential streamed model passes. Editor failure is fatal to the job;
// the report is the system's output.
type EditorStage struct {
	llm    interfaces.LLMService
	logger arbor.ILogger
}

func NewEditorStage(llm interfaces.LLMService, logger arbor.ILogger) *EditorStage {
	return &EditorStage{llm: llm, logger: logger}
}

func (s *EditorStage) Name() string { return "editor" }

func (s *EditorStage) Run(ctx context.Context, state *models.ResearchState, reporter Reporter) (*models.StateDelta, error) {
	sections := s.formatSections(state)

	var report string
	if sections == "" {
		// No briefing produced any text. The editor still completes: the
		// report degrades to bare section headers and references.
		s.logger.Warn().
			Str("company", state.Company).
			Msg("No briefings available, producing header-only report")
		headers := make([]string, 0, len(models.Categories))
		for _, category := range models.Categories {
			headers = append(headers, "## "+category.SectionTitle())
		}
		report = strings.Join(headers, "\n\n")
	} else {
		compiled, err := s.runPass(ctx, editorCompilePrompt(state.Company, sections, time.Now()), "compile", reporter)
		if err != nil {
			return nil, s.fatal("compile", err)
		}

		polished, err := s.runPass(ctx, editorPolishPrompt(state.Company, compiled), "polish", reporter)
		if err != nil {
			return nil, s.fatal("polish", err)
		}
		report = polished
	}

	report = s.finalizeReport(state, report)

	s.logger.Info().
		Str("company", state.Company).
		Int("report_length", len(report)).
		Msg("Final report compiled")

	return &models.StateDelta{
		Messages: []string{fmt.Sprintf("Compiled final report for %s (%d characters)", state.Company, len(report))},
		Report:   &report,
	}, nil
}

// formatSections concatenates the non-empty briefings under their section
// headers in report order.
func (s *EditorStage) formatSections(state *models.ResearchState) string {
	var b strings.Builder
	for _, category := range models.Categories {
		text := strings.TrimSpace(state.Briefing(category))
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", category.SectionTitle(), text)
	}
	return strings.TrimSpace(b.String())
}

// runPass executes one streamed editor pass, forwarding chunks as report
// events.
func (s *EditorStage) runPass(ctx context.Context, prompt, pass string, reporter Reporter) (string, error) {
	seq := 0
	text, err := s.llm.ChatStream(ctx, []interfaces.Message{{Role: "user", Content: prompt}}, func(chunk string) {
		reporter.Event(models.NewEvent(models.EventReportChunk, map[string]interface{}{
			"pass":  pass,
			"seq":   seq,
			"chunk": chunk,
		}))
		seq++
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", models.Errorf(models.ErrContentEmpty, "editor %s pass produced no text", pass)
	}
	return text, nil
}

// fatal maps an editor pass failure onto the job's terminal error kind.
func (s *EditorStage) fatal(pass string, err error) error {
	if models.IsCancelled(err) {
		return err
	}
	kind := models.KindOf(err)
	if kind != models.ErrContentEmpty {
		kind = models.ErrExternalUnavailable
	}
	return models.NewError(kind, fmt.Sprintf("editor: %s pass", pass), err)
}

// finalizeReport enforces the output markdown conventions: a single '#' title,
// '*' bullets, and a trailing '## References' section of bullet-linked URLs.
func (s *EditorStage) finalizeReport(state *models.ResearchState, report string) string {
	report = normalizeBullets(strings.TrimSpace(report))

	if !strings.HasPrefix(report, "# ") {
		title := "# " + state.Company
		if report == "" {
			report = title
		} else {
			report = title + "\n\n" + report
		}
	}

	var b strings.Builder
	b.WriteString(report)
	b.WriteString("\n\n## References\n")
	for _, url := range state.References {
		fmt.Fprintf(&b, "\n* [%s](%s)", url, url)
	}
	b.WriteString("\n")
	return b.String()
}

// normalizeBullets rewrites '-' and unicode bullet markers to '*'.
func normalizeBullets(report string) string {
	lines := strings.Split(report, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		indent := line[:len(line)-len(trimmed)]
		switch {
		case strings.HasPrefix(trimmed, "- "):
			lines[i] = indent + "* " + trimmed[2:]
		case strings.HasPrefix(trimmed, "• "):
			lines[i] = indent + "* " + strings.TrimPrefix(trimmed, "• ")
		}
	}
	return strings.Join(lines, "\n")
}
