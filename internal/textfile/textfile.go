// Package textfile reads and writes source files as text, preferring UTF-8
// and falling back to Latin-1 in both directions.
package textfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"sentinel/internal/logging"
)

// Encoding names the byte encoding of a text file.
type Encoding string

const (
	UTF8   Encoding = "utf-8"
	Latin1 Encoding = "latin-1"
)

// ErrEncoding is returned when text cannot be represented in either encoding.
var ErrEncoding = errors.New("text not representable in utf-8 or latin-1")

// Document is a decoded text file.
type Document struct {
	Text     string
	Encoding Encoding
}

// Decode turns raw bytes into text. Valid UTF-8 is taken as is; anything
// else is decoded as Latin-1, which maps every byte.
func Decode(data []byte) (Document, error) {
	if utf8.Valid(data) {
		return Document{Text: string(data), Encoding: UTF8}, nil
	}
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return Document{Text: string(text), Encoding: Latin1}, nil
}

// Read loads and decodes the file at path.
func Read(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	doc, err := Decode(data)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Encoding != UTF8 {
		logging.Get(logging.CategoryPatch).Debug("%s decoded as %s", path, doc.Encoding)
	}
	return doc, nil
}

func encode(text string, enc Encoding) ([]byte, error) {
	switch enc {
	case Latin1:
		return charmap.ISO8859_1.NewEncoder().Bytes([]byte(text))
	default:
		if !utf8.ValidString(text) {
			return nil, ErrEncoding
		}
		return []byte(text), nil
	}
}

// Encode renders text in the preferred encoding, falling back to the other
// one. It reports the encoding actually used.
func Encode(text string, preferred Encoding) ([]byte, Encoding, error) {
	if preferred == "" {
		preferred = UTF8
	}
	if data, err := encode(text, preferred); err == nil {
		return data, preferred, nil
	}
	alt := UTF8
	if preferred == UTF8 {
		alt = Latin1
	}
	data, err := encode(text, alt)
	if err != nil {
		return nil, "", ErrEncoding
	}
	return data, alt, nil
}

// Write encodes text and replaces path atomically. A fallback to the other
// encoding is logged as a warning. The existing file mode is kept.
func Write(path, text string, preferred Encoding) (Encoding, error) {
	data, used, err := Encode(text, preferred)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	if preferred != "" && used != preferred {
		logging.PatchWarn("%s: cannot encode as %s, wrote %s instead", path, preferred, used)
	}

	perm := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := WriteAtomic(path, data, perm); err != nil {
		return "", err
	}
	return used, nil
}

// WriteAtomic writes data to a temp file in the target directory, syncs it
// and renames it over path.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, perm)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
