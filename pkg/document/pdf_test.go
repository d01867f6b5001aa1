package document

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// buildPDF writes a minimal PDF with one page per entry in pages. An empty
// entry produces a page with no text.
func buildPDF(pages ...string) []byte {
	var objs []string
	objs = append(objs, "<< /Type /Catalog /Pages 2 0 R >>")

	var kids []string
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", 5+2*i))
	}
	objs = append(objs,
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		"<< /Title (Lesson Notes) /Author (Professor Smith) >>",
	)
	for i, text := range pages {
		content := ""
		if text != "" {
			content = fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		}
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 6+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 4 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func TestExtractPDFBytes(t *testing.T) {
	doc, err := ExtractPDFBytes(buildPDF("Hello world", "", "Second page"))
	if err != nil {
		t.Fatalf("ExtractPDFBytes: %v", err)
	}
	if doc.Pages != 3 {
		t.Errorf("expected 3 pages, got %d", doc.Pages)
	}
	if !strings.Contains(doc.Text, "--- Page 1 ---") || !strings.Contains(doc.Text, "Hello") {
		t.Errorf("page 1 missing from %q", doc.Text)
	}
	if strings.Contains(doc.Text, "--- Page 2 ---") {
		t.Errorf("empty page should be skipped: %q", doc.Text)
	}
	if !strings.Contains(doc.Text, "--- Page 3 ---") {
		t.Errorf("page 3 missing from %q", doc.Text)
	}
	if doc.Info.Title != "Lesson Notes" || doc.Info.Author != "Professor Smith" {
		t.Errorf("unexpected info %+v", doc.Info)
	}
}

func TestExtractPDF_EmptyText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank.pdf")
	if err := os.WriteFile(path, buildPDF(""), 0644); err != nil {
		t.Fatal(err)
	}
	doc, err := ExtractPDF(path)
	if err != nil {
		t.Fatalf("empty text layer should not fail: %v", err)
	}
	if doc.Text != "" || doc.Pages != 1 {
		t.Errorf("unexpected document %+v", doc)
	}
}

func TestExtractPDF_Invalid(t *testing.T) {
	if _, err := ExtractPDFBytes([]byte("hello")); !errors.Is(err, ErrNotPDF) {
		t.Errorf("expected ErrNotPDF, got %v", err)
	}
	if _, err := ExtractPDFBytes([]byte("%PDF-1.4\ngarbage")); err == nil {
		t.Error("expected parse error for truncated PDF")
	}
	if _, err := ExtractPDF(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
	if !IsPDF(buildPDF("x")) {
		t.Error("IsPDF should accept generated PDF")
	}
}
