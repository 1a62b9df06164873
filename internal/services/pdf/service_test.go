package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/indago/internal/common"
)

func TestConvertMarkdownToPDF(t *testing.T) {
	service := NewService(common.GetLogger())

	report := "# Acme Research Report\n\n" +
		"## Company Overview\n\n" +
		"* Founded in 2001, **headquartered** in Springfield\n" +
		"* Sells *widgets* worldwide\n\n" +
		"## References\n\n" +
		"* [https://example.com/a](https://example.com/a)\n" +
		"* [https://example.com/b](https://example.com/b)\n"

	data, err := service.ConvertMarkdownToPDF(report, "Acme Research Report")
	require.NoError(t, err)
	require.NotEmpty(t, data)
	// PDF header magic
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestConvertMarkdownToPDF_EmptyContent(t *testing.T) {
	service := NewService(common.GetLogger())

	_, err := service.ConvertMarkdownToPDF("", "Acme")
	require.Error(t, err)
}

func TestConvertMarkdownToPDF_PlainParagraphs(t *testing.T) {
	service := NewService(common.GetLogger())

	data, err := service.ConvertMarkdownToPDF("Just a paragraph with no structure.", "Note")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
