// Package seed reads and writes memory files as YAML documents.
package seed

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/second-mind/internal/model"
	"github.com/rcliao/second-mind/internal/store"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Document is one memory file in a seed file.
type Document struct {
	Filename    string `yaml:"filename"`
	Description string `yaml:"description"`
	Content     string `yaml:"content"`
}

// File is the top-level seed file layout.
type File struct {
	Files []Document `yaml:"files"`
}

// Defaults returns the built-in starter documents.
func Defaults() ([]Document, error) {
	return Load(bytes.NewReader(defaultsYAML))
}

// Load parses and validates a seed file.
func Load(r io.Reader) ([]Document, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("seed file is empty")
		}
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	seen := make(map[string]bool, len(f.Files))
	for i, d := range f.Files {
		name := strings.TrimSpace(d.Filename)
		switch {
		case name == "":
			return nil, fmt.Errorf("document %d: filename is required", i)
		case seen[name]:
			return nil, fmt.Errorf("document %d: duplicate filename %q", i, name)
		case strings.TrimSpace(d.Content) == "":
			return nil, fmt.Errorf("document %q: content is required", name)
		}
		seen[name] = true
		f.Files[i].Filename = name
	}
	return f.Files, nil
}

// Encode writes docs in the layout Load reads.
func Encode(w io.Writer, docs []Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(File{Files: docs}); err != nil {
		return fmt.Errorf("encode seed file: %w", err)
	}
	return enc.Close()
}

// FromMemoryFiles converts stored files to documents.
func FromMemoryFiles(files []model.MemoryFile) []Document {
	docs := make([]Document, 0, len(files))
	for _, f := range files {
		docs = append(docs, Document{Filename: f.Filename, Description: f.Description, Content: f.Content})
	}
	return docs
}

// PutParams converts documents to store parameters.
func PutParams(docs []Document) []store.PutParams {
	params := make([]store.PutParams, 0, len(docs))
	for _, d := range docs {
		params = append(params, store.PutParams{Filename: d.Filename, Description: d.Description, Content: d.Content})
	}
	return params
}
