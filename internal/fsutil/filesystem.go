// Package fsutil provides the file-level side of G-code processing: reading a
// toolpath file into lines and replacing it atomically.
//
// G-code files are rewritten in place, so a crash mid-write must never leave a
// half-transformed toolpath behind. WriteLines therefore stages the output in
// a temporary file next to the destination and renames it over the target only
// after a successful flush.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document is a text file split into lines, remembering enough about the
// source bytes (line terminator, trailing newline) to reproduce untouched
// lines exactly on write.
type Document struct {
	Lines []string

	crlf            bool // lines ended with \r\n
	trailingNewline bool // file ended with a line terminator
}

// ReadLines loads a text file as a Document.
func ReadLines(path string) (*Document, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("fsutil: read %s: %w", path, err)
	}

	d := &Document{crlf: strings.Contains(string(raw), "\r\n")}
	text := string(raw)
	if d.crlf {
		text = strings.ReplaceAll(text, "\r\n", "\n")
	}
	d.trailingNewline = strings.HasSuffix(text, "\n")
	if d.trailingNewline {
		text = strings.TrimSuffix(text, "\n")
	}
	if text == "" && d.trailingNewline {
		d.Lines = []string{""}
	} else {
		d.Lines = strings.Split(text, "\n")
	}
	return d, nil
}

// WithLines returns a copy of the Document carrying the given lines but the
// original file's byte conventions.
func (d *Document) WithLines(lines []string) *Document {
	return &Document{Lines: lines, crlf: d.crlf, trailingNewline: d.trailingNewline}
}

// Bytes renders the Document back into file bytes, restoring the source line
// terminator and trailing-newline convention.
func (d *Document) Bytes() []byte {
	sep := "\n"
	if d.crlf {
		sep = "\r\n"
	}
	out := strings.Join(d.Lines, sep)
	if d.trailingNewline {
		out += sep
	}
	return []byte(out)
}

// WriteLines writes the Document to path atomically: the content is staged in
// a temporary file in the same directory and renamed over the destination, so
// the target is either the old file or the complete new one, never a partial
// write.
func WriteLines(path string, d *Document) error {
	dir := filepath.Dir(filepath.Clean(path))
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("fsutil: stage %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(d.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("fsutil: stage %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("fsutil: stage %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("fsutil: replace %s: %w", path, err)
	}
	return nil
}
