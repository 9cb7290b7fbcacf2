// Package parser turns uploaded bytes into a dataset.Dataset. The format is chosen
// from the filename suffix through a small registry of parsers.
package parser

import (
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/segmenta/internal/apperr"
	"github.com/KaramelBytes/segmenta/internal/dataset"
)

// Parser decodes one tabular format.
type Parser interface {
	CanParse(filename string) bool
	// Parse returns the dataset for the requested sheet (ignored by single-sheet
	// formats) and every sheet name the content holds.
	Parse(content []byte, sheet string, opt dataset.Options) (*dataset.Dataset, []string, error)
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// Supported reports whether some registered parser accepts filename.
func Supported(filename string) bool {
	return lookup(filename) != nil
}

// Load parses content with default number handling.
func Load(content []byte, filename, sheet string) (*dataset.Dataset, []string, error) {
	return LoadWithOptions(content, filename, sheet, dataset.DefaultOptions())
}

// LoadWithOptions selects a parser by filename and parses content. On error no
// dataset is returned.
func LoadWithOptions(content []byte, filename, sheet string, opt dataset.Options) (*dataset.Dataset, []string, error) {
	p := lookup(filename)
	if p == nil {
		return nil, nil, apperr.New(apperr.ErrFormat, "load", "unsupported file type %q (expected .csv, .tsv or .xlsx)", filepath.Ext(filename))
	}
	ds, sheets, err := p.Parse(content, sheet, opt)
	if err != nil {
		return nil, nil, err
	}
	ds.Name = filepath.Base(filename)
	if sheets == nil {
		sheets = []string{}
	}
	return ds, sheets, nil
}

func lookup(filename string) Parser {
	name := strings.ToLower(strings.TrimSpace(filename))
	for _, p := range registry {
		if p.CanParse(name) {
			return p
		}
	}
	return nil
}

func init() {
	Register(csvParser{})
	Register(tsvParser{})
	Register(xlsxParser{})
}
