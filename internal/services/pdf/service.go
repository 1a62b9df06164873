// -----------------------------------------------------------------------
// PDF Service - renders markdown research reports to PDF
// -----------------------------------------------------------------------

package pdf

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/indago/internal/interfaces"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Service implements interfaces.PDFService
type Service struct {
	logger arbor.ILogger
}

var _ interfaces.PDFService = (*Service)(nil)

// NewService creates a new PDF service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

// ConvertMarkdownToPDF converts a markdown report to a PDF byte slice. The
// title is set as document metadata; the report's own H1 heading provides the
// visible title.
func (s *Service) ConvertMarkdownToPDF(markdown, title string) ([]byte, error) {
	if markdown == "" {
		return nil, fmt.Errorf("report content is empty")
	}

	s.logger.Debug().
		Int("markdown_len", len(markdown)).
		Str("title", title).
		Msg("Converting markdown to PDF")

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(title, true)
	doc.SetMargins(12, 12, 12)
	doc.SetAutoPageBreak(true, 12)
	doc.AddPage()
	doc.SetFont("Arial", "", 10)

	md := goldmark.New(
		goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
	)
	source := []byte(markdown)
	root := md.Parser().Parse(text.NewReader(source))

	r := &reportRenderer{doc: doc, source: source}
	if err := r.render(root); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}

	s.logger.Debug().Int("pdf_size", buf.Len()).Msg("PDF generated")
	return buf.Bytes(), nil
}

// reportRenderer walks the markdown AST and writes it into the document.
// Research reports are headings, paragraphs, bullet lists, and link-only
// references, so the renderer covers that subset.
type reportRenderer struct {
	doc    *fpdf.Fpdf
	source []byte

	bold      bool
	italic    bool
	listDepth int
	linkURL   string
}

func (r *reportRenderer) render(root ast.Node) error {
	return ast.Walk(root, r.walk)
}

func (r *reportRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		r.heading(node, entering)
	case *ast.Paragraph:
		if !entering {
			r.doc.Ln(6)
		}
	case *ast.Text:
		if entering {
			r.text(string(node.Text(r.source)))
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.applyFont()
	case *ast.Link:
		if entering {
			r.linkURL = string(node.Destination)
			r.doc.SetTextColor(0, 0, 200)
		} else {
			r.linkURL = ""
			r.doc.SetTextColor(0, 0, 0)
		}
	case *ast.AutoLink:
		if entering {
			url := string(node.URL(r.source))
			r.doc.SetTextColor(0, 0, 200)
			r.doc.WriteLinkString(5, url, url)
			r.doc.SetTextColor(0, 0, 0)
		}
		return ast.WalkSkipChildren, nil
	case *ast.List:
		if entering {
			r.listDepth++
		} else {
			r.listDepth--
			if r.listDepth == 0 {
				r.doc.Ln(3)
			}
		}
	case *ast.ListItem:
		if entering {
			r.doc.Ln(5)
			r.doc.SetX(14 + float64(r.listDepth-1)*5)
			r.doc.Write(5, "- ")
		}
	case *ast.ThematicBreak:
		if entering {
			r.doc.Ln(3)
			r.doc.Line(14, r.doc.GetY(), 196, r.doc.GetY())
			r.doc.Ln(3)
		}
	case *ast.CodeSpan:
		if entering {
			r.doc.SetFont("Courier", "", 9)
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					r.doc.Write(5, string(t.Segment.Value(r.source)))
				}
			}
			r.applyFont()
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (r *reportRenderer) heading(n *ast.Heading, entering bool) {
	if entering {
		r.doc.Ln(6)
		size := 11.0
		switch n.Level {
		case 1:
			size = 16
		case 2:
			size = 13
		case 3:
			size = 11.5
		}
		r.doc.SetFont("Arial", "B", size)
		return
	}
	r.doc.Ln(7)
	r.applyFont()
}

func (r *reportRenderer) text(s string) {
	if r.linkURL != "" {
		r.doc.WriteLinkString(5, s, r.linkURL)
		return
	}
	r.doc.Write(5, s)
}

func (r *reportRenderer) applyFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.doc.SetFont("Arial", style, 10)
}
