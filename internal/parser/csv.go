package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/KaramelBytes/segmenta/internal/apperr"
	"github.com/KaramelBytes/segmenta/internal/dataset"
)

type csvParser struct{}

func (csvParser) CanParse(filename string) bool { return strings.HasSuffix(filename, ".csv") }

func (csvParser) Parse(content []byte, _ string, opt dataset.Options) (*dataset.Dataset, []string, error) {
	return parseDelimited(content, sniffDelimiter(content), opt)
}

// tsvParser always splits on tab.
type tsvParser struct{}

func (tsvParser) CanParse(filename string) bool { return strings.HasSuffix(filename, ".tsv") }

func (tsvParser) Parse(content []byte, _ string, opt dataset.Options) (*dataset.Dataset, []string, error) {
	return parseDelimited(content, '\t', opt)
}

func parseDelimited(content []byte, delim rune, opt dataset.Options) (*dataset.Dataset, []string, error) {
	header, records, err := readDelimited(content, delim)
	if err != nil {
		return nil, nil, err
	}
	ds, err := dataset.New("", header, records, opt)
	if err != nil {
		return nil, nil, err
	}
	return ds, nil, nil
}

func readDelimited(content []byte, delim rune) ([]string, [][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, apperr.New(apperr.ErrFormat, "load", "file is empty")
		}
		return nil, nil, apperr.Wrap(apperr.ErrFormat, "load", err)
	}
	var records [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, apperr.Wrap(apperr.ErrFormat, "load", err)
		}
		records = append(records, rec)
	}
	return header, records, nil
}

// sniffDelimiter picks ';' when the header line holds more of them than ','.
func sniffDelimiter(content []byte) rune {
	line := content
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		line = content[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}
