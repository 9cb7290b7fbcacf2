package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/KaramelBytes/segmenta/internal/apperr"
	"github.com/KaramelBytes/segmenta/internal/dataset"
)

type xlsxParser struct{}

func (xlsxParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".xlsx")
}

// Parse loads the named sheet, falling back to the first sheet when sheet is empty
// or not present in the workbook.
func (xlsxParser) Parse(content []byte, sheet string, opt dataset.Options) (*dataset.Dataset, []string, error) {
	wb, err := openWorkbook(content)
	if err != nil {
		return nil, nil, err
	}
	target := wb.sheets[0]
	for _, s := range wb.sheets {
		if s.Name == sheet {
			target = s
			break
		}
	}
	rows, err := wb.readSheet(target)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, apperr.New(apperr.ErrFormat, "load", "sheet %q is empty", target.Name)
	}
	ds, err := dataset.New("", rows[0], rows[1:], opt)
	if err != nil {
		return nil, nil, err
	}
	ds.Sheet = target.Name
	return ds, wb.names(), nil
}

// SheetInfo describes one worksheet without loading it into a Dataset.
type SheetInfo struct {
	Name        string   `json:"name" yaml:"name"`
	Rows        int      `json:"rows" yaml:"rows"`
	Columns     int      `json:"columns" yaml:"columns"`
	ColumnNames []string `json:"column_names" yaml:"column_names"`
}

// SheetsInfo lists every sheet of an xlsx workbook with its shape and first five
// column names. Other formats have no sheets.
func SheetsInfo(content []byte, filename string) ([]SheetInfo, error) {
	if !(xlsxParser{}).CanParse(strings.ToLower(filename)) {
		return []SheetInfo{}, nil
	}
	wb, err := openWorkbook(content)
	if err != nil {
		return nil, err
	}
	out := make([]SheetInfo, 0, len(wb.sheets))
	for _, s := range wb.sheets {
		rows, err := wb.readSheet(s)
		if err != nil {
			return nil, err
		}
		info := SheetInfo{Name: s.Name, ColumnNames: []string{}}
		if len(rows) > 0 {
			info.Rows = len(rows) - 1
			info.Columns = len(rows[0])
			n := len(rows[0])
			if n > 5 {
				n = 5
			}
			info.ColumnNames = append(info.ColumnNames, rows[0][:n]...)
		}
		out = append(out, info)
	}
	return out, nil
}

type workbook struct {
	zr     *zip.Reader
	sheets []wbSheet
	rels   map[string]string
	shared []string
}

type wbSheet struct {
	Name    string
	SheetID int
	RID     string
}

func openWorkbook(content []byte) (*workbook, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrFormat, "load", fmt.Errorf("open xlsx: %w", err))
	}
	wbXML := readZipFile(zr, "xl/workbook.xml")
	if len(wbXML) == 0 {
		return nil, apperr.New(apperr.ErrFormat, "load", "xl/workbook.xml not found in xlsx")
	}
	wb := &workbook{
		zr:     zr,
		sheets: parseWorkbook(wbXML),
		rels:   parseRelationships(readZipFile(zr, "xl/_rels/workbook.xml.rels")),
		shared: parseSharedStrings(readZipFile(zr, "xl/sharedStrings.xml")),
	}
	if len(wb.sheets) == 0 {
		return nil, apperr.New(apperr.ErrFormat, "load", "workbook has no sheets")
	}
	return wb, nil
}

func (wb *workbook) names() []string {
	out := make([]string, len(wb.sheets))
	for i, s := range wb.sheets {
		out[i] = s.Name
	}
	return out
}

func (wb *workbook) readSheet(s wbSheet) ([][]string, error) {
	target := ""
	if rel, ok := wb.rels[s.RID]; ok {
		target = normalizeRelPath(rel)
	}
	if target == "" {
		target = path.Join("xl", "worksheets", fmt.Sprintf("sheet%d.xml", s.SheetID))
	}
	data := readZipFile(wb.zr, target)
	if data == nil {
		return nil, apperr.New(apperr.ErrFormat, "load", "worksheet %q (%s) missing from xlsx", s.Name, target)
	}
	rr := newSheetRowReader(data, wb.shared)
	var rows [][]string
	width := 0
	for {
		row, ok := rr.Next()
		if !ok {
			break
		}
		if allEmpty(row) {
			continue
		}
		if len(row) > width {
			width = len(row)
		}
		rows = append(rows, row)
	}
	if rr.err != nil {
		return nil, apperr.Wrap(apperr.ErrFormat, "load", fmt.Errorf("sheet %q: %w", s.Name, rr.err))
	}
	// Trailing blank header cells define no column.
	if len(rows) > 0 {
		h := rows[0]
		for len(h) > 0 && strings.TrimSpace(h[len(h)-1]) == "" {
			h = h[:len(h)-1]
		}
		rows[0] = h
	}
	return rows, nil
}

// parseWorkbook extracts sheet entries with names and relationship ids.
func parseWorkbook(data []byte) []wbSheet {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var sheets []wbSheet
	for {
		tok, err := dec.Token()
		if err != nil {
			return sheets
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "sheet" {
			var s wbSheet
			for _, a := range se.Attr {
				switch a.Name.Local {
				case "name":
					s.Name = a.Value
				case "sheetId":
					s.SheetID = atoiSafe(a.Value)
				case "id":
					s.RID = a.Value // in r: namespace
				}
			}
			sheets = append(sheets, s)
		}
	}
}

func parseRelationships(data []byte) map[string]string {
	// returns map[r:id]Target
	out := map[string]string{}
	if len(data) == 0 {
		return out
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "Relationship" {
			var id, target string
			for _, a := range se.Attr {
				switch a.Name.Local {
				case "Id":
					id = a.Value
				case "Target":
					target = a.Value
				}
			}
			if id != "" && target != "" {
				out[id] = target
			}
		}
	}
}

func readZipFile(zr *zip.Reader, name string) []byte {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil
			}
			defer rc.Close()
			b, err := io.ReadAll(rc)
			if err != nil {
				return nil
			}
			return b
		}
	}
	return nil
}

// parseSharedStrings concatenates the text runs of every <si> entry. Phonetic
// runs (<rPh>) are skipped.
func parseSharedStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out []string
	var buf strings.Builder
	var inT, inPh bool
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "si":
				buf.Reset()
			case "t":
				inT = true
			case "rPh":
				inPh = true
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "t":
				inT = false
			case "rPh":
				inPh = false
			case "si":
				out = append(out, buf.String())
				buf.Reset()
			}
		case xml.CharData:
			if inT && !inPh {
				buf.Write(se)
			}
		}
	}
}

// sheetRowReader streams rows of a worksheet as string slices.
type sheetRowReader struct {
	dec    *xml.Decoder
	shared []string
	err    error
}

func newSheetRowReader(data []byte, shared []string) *sheetRowReader {
	return &sheetRowReader{dec: xml.NewDecoder(bytes.NewReader(data)), shared: shared}
}

// Next returns the next <row>. Cells without an r attribute take the next column.
func (r *sheetRowReader) Next() ([]string, bool) {
	var cur []string
	inRow := false
	next := 0
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.err = err
			}
			return nil, false
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "row" {
				inRow = true
				cur = nil
				next = 0
				continue
			}
			if inRow && se.Name.Local == "c" {
				var rAttr, tAttr string
				for _, a := range se.Attr {
					switch a.Name.Local {
					case "r":
						rAttr = a.Value
					case "t":
						tAttr = a.Value
					}
				}
				col := next
				if rAttr != "" {
					if idx := colIndexFromRef(rAttr); idx >= 0 {
						col = idx
					}
				}
				val, err := r.readCellValue(tAttr)
				if err != nil {
					r.err = err
					return nil, false
				}
				if len(cur) <= col {
					tmp := make([]string, col+1)
					copy(tmp, cur)
					cur = tmp
				}
				cur[col] = val
				next = col + 1
			}
		case xml.EndElement:
			if se.Name.Local == "row" && inRow {
				if cur == nil {
					cur = []string{}
				}
				return cur, true
			}
		}
	}
}

func (r *sheetRowReader) readCellValue(tAttr string) (string, error) {
	var val string
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return "", err
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "v" || se.Name.Local == "t" {
				var sb strings.Builder
				for {
					tk, er := r.dec.Token()
					if er != nil {
						return "", er
					}
					if ed, ok := tk.(xml.EndElement); ok && (ed.Name.Local == "v" || ed.Name.Local == "t") {
						break
					}
					if ch, ok := tk.(xml.CharData); ok {
						sb.Write(ch)
					}
				}
				val += sb.String()
			}
		case xml.EndElement:
			if se.Name.Local == "c" {
				switch tAttr {
				case "s":
					idx := atoiSafe(val)
					if idx >= 0 && idx < len(r.shared) {
						return r.shared[idx], nil
					}
					return "", nil
				case "b":
					if val == "1" {
						return "TRUE", nil
					}
					return "FALSE", nil
				case "e":
					// #N/A, #DIV/0! and friends are missing values.
					return "", nil
				}
				return val, nil
			}
		}
	}
}

// colIndexFromRef maps refs like "C12" to a 0-based column index, -1 if no letters.
func colIndexFromRef(ref string) int {
	i := 0
	for i < len(ref) {
		c := ref[i]
		if c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' {
			i++
			continue
		}
		break
	}
	s := strings.ToUpper(ref[:i])
	idx := 0
	for j := 0; j < len(s); j++ {
		idx = idx*26 + int(s[j]-'A'+1)
	}
	return idx - 1
}

func atoiSafe(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// normalizeRelPath converts relationship Target paths to ZIP entry names.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}

func allEmpty(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
