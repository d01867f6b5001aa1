// Package document extracts text from uploaded documents so it can be
// added to the chat context.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/teslashibe/go-vhuman/internal/log"
)

// ErrNotPDF is returned when data does not start with a PDF header.
var ErrNotPDF = errors.New("document: not a PDF file")

// Info is the document information dictionary.
type Info struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	Subject  string `json:"subject"`
	Creator  string `json:"creator"`
	Producer string `json:"producer"`
}

// Document is the text content of a PDF.
type Document struct {
	Pages int    `json:"pages"`
	Text  string `json:"text"`
	Info  Info   `json:"info"`
}

// IsPDF reports whether data starts with a PDF header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

// ExtractPDF reads the PDF at path.
func ExtractPDF(path string) (doc *Document, err error) {
	defer recoverParse(&doc, &err)
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	return extract(r)
}

// ExtractPDFBytes parses a PDF held in memory.
func ExtractPDFBytes(data []byte) (*Document, error) {
	if !IsPDF(data) {
		return nil, ErrNotPDF
	}
	return ExtractPDFReader(bytes.NewReader(data), int64(len(data)))
}

// ExtractPDFReader parses a PDF of the given size from r.
func ExtractPDFReader(r io.ReaderAt, size int64) (doc *Document, err error) {
	defer recoverParse(&doc, &err)
	pr, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}
	return extract(pr)
}

// The pdf package panics on some malformed input.
func recoverParse(doc **Document, err *error) {
	if p := recover(); p != nil {
		*doc, *err = nil, fmt.Errorf("parse pdf: %v", p)
	}
}

// extract joins the text of every non-empty page under a page marker.
// A page whose text cannot be decoded is skipped.
func extract(r *pdf.Reader) (*Document, error) {
	logger := log.Component("document")
	doc := &Document{Pages: r.NumPage(), Info: readInfo(r)}

	var parts []string
	for i := 1; i <= doc.Pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			logger.Warn("skipping unreadable page", "page", i, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", i, text))
	}

	doc.Text = strings.Join(parts, "\n\n")
	if doc.Text == "" {
		logger.Warn("no text content found in PDF", "pages", doc.Pages)
	}
	return doc, nil
}

func readInfo(r *pdf.Reader) Info {
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return Info{}
	}
	return Info{
		Title:    info.Key("Title").Text(),
		Author:   info.Key("Author").Text(),
		Subject:  info.Key("Subject").Text(),
		Creator:  info.Key("Creator").Text(),
		Producer: info.Key("Producer").Text(),
	}
}
