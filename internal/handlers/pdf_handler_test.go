package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/indago/internal/common"
	"github.com/ternarybob/indago/internal/services/pdf"
)

func testPDFHandler(t *testing.T) *PDFHandler {
	t.Helper()
	cfg := &common.PDFConfig{OutputDir: t.TempDir()}
	return NewPDFHandler(pdf.NewService(common.GetLogger()), cfg, common.GetLogger())
}

func TestGenerateHandler(t *testing.T) {
	handler := testPDFHandler(t)

	body := `{"report_content": "# Acme\n\n## Company Overview\n\n* fact one\n", "company_name": "Acme"}`
	req := httptest.NewRequest(http.MethodPost, "/generate-pdf", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.GenerateHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "acme-")
	assert.Equal(t, "%PDF", rec.Body.String()[:4])
}

func TestGenerateHandler_MissingContent(t *testing.T) {
	handler := testPDFHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/generate-pdf", strings.NewReader(`{"company_name": "Acme"}`))
	rec := httptest.NewRecorder()
	handler.GenerateHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPDFFilename(t *testing.T) {
	assert.True(t, strings.HasPrefix(pdfFilename("Acme Corp"), "acme-corp-"))
	assert.True(t, strings.HasPrefix(pdfFilename("  "), "report-"))
	assert.True(t, strings.HasPrefix(pdfFilename("Müller & Söhne"), "mller--shne-"))
	assert.True(t, strings.HasSuffix(pdfFilename("Acme"), ".pdf"))
}
