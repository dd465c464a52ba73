package reader

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pricelens/pricelens/internal/types"
)

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "plain list",
			text: "https://example.com/a\nhttps://example.com/b\n",
			want: []string{"https://example.com/a", "https://example.com/b"},
		},
		{
			name: "urls embedded in prose",
			text: "Check https://shop.example.com/item?id=1&ref=x, then stop.",
			want: []string{"https://shop.example.com/item?id=1&ref=x"},
		},
		{
			name: "trailing punctuation stripped",
			text: "(see https://example.com/sale).",
			want: []string{"https://example.com/sale"},
		},
		{
			name: "duplicates removed preserving order",
			text: "https://b.com/x https://a.com/y https://b.com/x",
			want: []string{"https://b.com/x", "https://a.com/y"},
		},
		{
			name: "percent encoding kept",
			text: "https://example.com/p%20q/item",
			want: []string{"https://example.com/p%20q/item"},
		},
		{
			name: "no urls",
			text: "nothing to see here",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractURLs(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("extractURLs() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("extractURLs()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReadURLsText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "urls.txt")
	content := "https://example.com/1\nsome text\nhttps://example.com/2\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	urls, err := ReadURLs(path)
	if err != nil {
		t.Fatalf("ReadURLs() error = %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("Expected 2 URLs, got %d: %v", len(urls), urls)
	}
}

func TestReadURLsEmptyText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(path, []byte("no links"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := ReadURLs(path)
	if !errors.Is(err, types.ErrNoURLsFound) {
		t.Errorf("Expected ErrNoURLsFound, got %v", err)
	}
}

func TestReadURLsUnsupportedExtension(t *testing.T) {
	_, err := ReadURLs("urls.pdf")
	if !errors.Is(err, types.ErrUnsupportedDocument) {
		t.Errorf("Expected ErrUnsupportedDocument, got %v", err)
	}
}

func TestReadURLsDocx(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "urls.docx")
	writeTestDocx(t, path)

	urls, err := ReadURLs(path)
	if err != nil {
		t.Fatalf("ReadURLs() error = %v", err)
	}

	found := map[string]bool{}
	for _, u := range urls {
		found[u] = true
	}
	if !found["https://example.com/visible"] {
		t.Errorf("Expected visible-text URL in %v", urls)
	}
	if !found["https://example.com/hyperlink-target"] {
		t.Errorf("Expected hyperlink relationship URL in %v", urls)
	}
	for u := range found {
		if strings.Contains(u, "schemas.openxmlformats.org") {
			t.Errorf("Namespace URL leaked into results: %q", u)
		}
	}
}

// writeTestDocx builds a minimal docx: a document part with visible text and
// a relationships part carrying a hyperlink target.
func writeTestDocx(t *testing.T, path string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	doc, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = doc.Write([]byte(`<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>See https://example.com/visible for the sale.</w:t></w:r></w:p>
  </w:body>
</w:document>`))

	rels, err := zw.Create("word/_rels/document.xml.rels")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = rels.Write([]byte(`<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="https://example.com/hyperlink-target" TargetMode="External"/>
</Relationships>`))

	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}
