package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

func extractPDF(path string) (string, int, error) {
	f, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open pdf: %w", err)
	}

	numPages := f.NumPage()
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := protectExtract(page)
		if err != nil {
			// a single broken page should not sink the document
			continue
		}
		pages = append(pages, content)
	}
	return strings.Join(pages, "\n\n"), numPages, nil
}

// extractdocxTxtRtf reads a .odt, .docx, .rtf or plaintext file. These
// formats carry no page structure, so the page count is fixed at 1.
func extractdocxTxtRtf(path string) (string, int, error) {
	text, err := cat.File(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to extract document: %w", err)
	}
	return text, 1, nil
}

// protectExtract guards page parsing with a timeout; malformed pages can make
// the parser spin.
func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(time.Second * 10):
		return "", errors.New("page extraction timeout")
	}
}
