// Package reader extracts target URLs from user-supplied documents. Plain
// text files are scanned with a URL pattern; Word documents are unpacked and
// scanned the same way, covering both link relationships and visible text.
package reader

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/pricelens/pricelens/internal/types"
)

// urlPattern matches http(s) URLs including percent-encoded characters and
// the punctuation that legitimately appears in product URLs.
var urlPattern = regexp.MustCompile(`https?://(?:[-\w.]|(?:%[\da-fA-F]{2}))+(?:/[-\w%!$&'()*+,./:;=?@~#]*)*`)

// maxDocxEntrySize bounds each archive entry read, guarding against
// decompression bombs in hostile documents.
const maxDocxEntrySize = 50 << 20

// ReadURLs extracts the deduplicated, order-preserving URL list from a file.
// Supported formats are .txt and .docx.
func ReadURLs(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return readText(path)
	case ".docx":
		return readDocx(path)
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedDocument, filepath.Ext(path))
	}
}

func readText(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read url file: %w", err)
	}

	// Lines starting with # are comments.
	var sb strings.Builder
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	urls := extractURLs(sb.String())
	if len(urls) == 0 {
		return nil, types.ErrNoURLsFound
	}
	log.Info().Int("count", len(urls)).Str("file", path).Msg("URLs loaded from text file")
	return urls, nil
}

// readDocx scans every XML part of the document archive: document.xml holds
// the visible text, the .rels parts hold hyperlink targets.
func readDocx(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	var combined strings.Builder
	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, ".xml") && !strings.HasSuffix(f.Name, ".rels") {
			continue
		}
		text, err := readDocxEntry(f)
		if err != nil {
			log.Debug().Err(err).Str("entry", f.Name).Msg("Skipping unreadable docx entry")
			continue
		}
		combined.WriteString(text)
		combined.WriteString("\n")
	}

	urls := extractURLs(combined.String())
	if len(urls) == 0 {
		return nil, types.ErrNoURLsFound
	}
	log.Info().Int("count", len(urls)).Str("file", path).Msg("URLs loaded from docx file")
	return urls, nil
}

func readDocxEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxDocxEntrySize))
	if err != nil {
		return "", err
	}
	return flattenXML(data), nil
}

// flattenXML returns the character data and attribute values of an XML blob
// as plain text. Word splits a URL across multiple runs, so adjacent
// character data is joined without separators and only element boundaries
// insert breaks.
func flattenXML(data []byte) string {
	decoder := xml.NewDecoder(strings.NewReader(string(data)))
	var sb strings.Builder

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			// Only hyperlink targets carry URLs of interest; namespace
			// declarations and schema type attributes are URLs too and must
			// not leak into the result.
			for _, attr := range t.Attr {
				if attr.Name.Local != "Target" {
					continue
				}
				if strings.HasPrefix(attr.Value, "http://") || strings.HasPrefix(attr.Value, "https://") {
					sb.WriteString(" ")
					sb.WriteString(attr.Value)
					sb.WriteString(" ")
				}
			}
		case xml.EndElement:
			// Word wraps paragraphs in separate elements; a paragraph end is
			// a hard boundary for URL continuation.
			if t.Name.Local == "p" {
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}

// extractURLs finds all URLs in the text, strips trailing sentence
// punctuation, and deduplicates while preserving first-seen order.
func extractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)

	seen := make(map[string]struct{}, len(matches))
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		u := strings.TrimRight(m, ").,;")
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}
