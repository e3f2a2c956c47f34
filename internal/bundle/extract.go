package bundle

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"sentinel/internal/textfile"
)

const bom = "\ufeff"

// ExtractFile reads the bundle at path and returns its script text.
func ExtractFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Extract(data, strings.TrimPrefix(filepath.Ext(path), "."))
}

// Extract decodes bundle content by extension: plain text with encoding
// fallback, or the paragraphs of a word-processing document.
func Extract(data []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case "txt":
		doc, err := textfile.Decode(data)
		if err != nil {
			return "", err
		}
		return strings.TrimPrefix(doc.Text, bom), nil
	case "docx":
		return docxText(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}
}

// docxText joins the paragraphs of word/document.xml with newlines. Tabs
// and line breaks inside a paragraph are kept.
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			part = f
			break
		}
	}
	if part == nil {
		return "", fmt.Errorf("failed to open docx: word/document.xml missing")
	}

	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open docx body: %w", err)
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var (
		paragraphs []string
		// open paragraphs; text boxes nest a paragraph inside a run
		open   []*strings.Builder
		inText bool
		runs   int
		// depth inside property elements such as pPr and rPr, whose tab
		// and break children describe layout rather than content
		props int
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse docx body: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			if isProperties(name) {
				props++
				continue
			}
			if props > 0 {
				continue
			}
			switch name {
			case "p":
				open = append(open, &strings.Builder{})
			case "r":
				runs++
			case "t":
				inText = true
			case "tab", "br", "cr":
				if runs == 0 || len(open) == 0 {
					continue
				}
				if name == "tab" {
					open[len(open)-1].WriteByte('\t')
				} else {
					open[len(open)-1].WriteByte('\n')
				}
			}
		case xml.EndElement:
			name := t.Name.Local
			if isProperties(name) {
				props--
				continue
			}
			if props > 0 {
				continue
			}
			switch name {
			case "p":
				if n := len(open); n > 0 {
					paragraphs = append(paragraphs, open[n-1].String())
					open = open[:n-1]
				}
			case "r":
				if runs > 0 {
					runs--
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText && props == 0 && len(open) > 0 {
				open[len(open)-1].Write(t)
			}
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}

// isProperties reports whether a WordprocessingML element holds formatting
// properties, e.g. pPr, rPr, sectPr or tblPr.
func isProperties(local string) bool {
	return len(local) > 2 && strings.HasSuffix(local, "Pr")
}

// CheckHeader verifies that text, after any byte order mark and leading
// whitespace, begins with token.
func CheckHeader(text, token string) error {
	trimmed := strings.TrimLeftFunc(strings.TrimPrefix(text, bom), unicode.IsSpace)
	if !strings.HasPrefix(trimmed, token) {
		return fmt.Errorf("%w: expected %q", ErrMissingHeader, token)
	}
	return nil
}
