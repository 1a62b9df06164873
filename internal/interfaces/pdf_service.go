package interfaces

// PDFService renders a markdown research report into a PDF document.
type PDFService interface {
	ConvertMarkdownToPDF(markdown, title string) ([]byte, error)
}
