package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/segmenta/internal/apperr"
	"github.com/KaramelBytes/segmenta/internal/dataset"
	"github.com/KaramelBytes/segmenta/internal/parser"
)

func TestLoadCSV_InfersKinds(t *testing.T) {
	content := []byte("respondent,gender,age,score\n" +
		"1,F,34,4.5\n" +
		"2,M,,3.0\n" +
		"3,F,51,NA\n")
	ds, sheets, err := parser.Load(content, "survey.csv", "")
	require.NoError(t, err)
	assert.Empty(t, sheets)
	assert.Equal(t, "survey.csv", ds.Name)
	assert.Equal(t, 3, ds.Rows())
	assert.Equal(t, []string{"respondent", "gender", "age", "score"}, ds.Names())

	kinds := map[string]dataset.Kind{}
	for _, c := range ds.Columns {
		kinds[c.Name] = c.Kind
	}
	assert.Equal(t, dataset.KindNumeric, kinds["respondent"])
	assert.Equal(t, dataset.KindCategorical, kinds["gender"])
	assert.Equal(t, dataset.KindNumeric, kinds["age"])
	assert.Equal(t, dataset.KindNumeric, kinds["score"])

	age, _ := ds.Column("age")
	assert.True(t, age.IsMissing(1))
	v, ok := age.Float(2)
	require.True(t, ok)
	assert.Equal(t, 51.0, v)
}

func TestLoadCSV_SniffsSemicolon(t *testing.T) {
	content := []byte("a;b\n1,5;x\n2,5;y\n")
	ds, _, err := parser.Load(content, "eu.csv", "")
	require.NoError(t, err)
	a, ok := ds.Column("a")
	require.True(t, ok)
	v, ok := a.Float(0)
	require.True(t, ok)
	assert.InDelta(t, 1.5, v, 1e-12)
}

func TestLoadTSV(t *testing.T) {
	ds, _, err := parser.Load([]byte("x\ty\n1\t2\n"), "data.TSV", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, ds.Names())

	// Commas and semicolons inside a tab-separated header are not delimiters.
	ds, _, err = parser.Load([]byte("a,b,c\td;e\n1,2\t3\n"), "data.tsv", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a,b,c", "d;e"}, ds.Names())
	col, ok := ds.Column("a,b,c")
	require.True(t, ok)
	assert.Equal(t, []string{"1,2"}, col.Values)
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name     string
		content  string
		filename string
	}{
		{"unsupported extension", "a,b\n1,2\n", "notes.txt"},
		{"empty csv", "", "empty.csv"},
		{"bare quote", "a,b\n1,x\"y\n", "bad.csv"},
		{"row wider than header", "a,b\n1,2,3\n", "wide.csv"},
		{"not a zip", "definitely not a workbook", "book.xlsx"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ds, sheets, err := parser.Load([]byte(tc.content), tc.filename, "")
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrFormat)
			assert.Nil(t, ds)
			assert.Nil(t, sheets)
		})
	}
}

func TestLoadXLSX_SheetSelection(t *testing.T) {
	content := buildXLSX(t,
		fixtureSheet{name: "Wave1", rows: [][]string{{"id", "region", "income"}, {"1", "north", "1200"}, {"2", "south", "900"}}},
		fixtureSheet{name: "Wave2", rows: [][]string{{"id", "rating"}, {"1", "5"}, {"2", "3"}, {"3", "4"}}},
	)

	ds, sheets, err := parser.Load(content, "waves.xlsx", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Wave1", "Wave2"}, sheets)
	assert.Equal(t, "Wave1", ds.Sheet)
	assert.Equal(t, []string{"id", "region", "income"}, ds.Names())
	region, _ := ds.Column("region")
	assert.Equal(t, dataset.KindCategorical, region.Kind)
	assert.Equal(t, []string{"north", "south"}, region.Values)

	ds, sheets, err = parser.Load(content, "waves.xlsx", "Wave2")
	require.NoError(t, err)
	assert.Equal(t, []string{"Wave1", "Wave2"}, sheets)
	assert.Equal(t, 3, ds.Rows())
	assert.Equal(t, "Wave2", ds.Sheet)

	ds, sheets, err = parser.Load(content, "waves.xlsx", "Missing")
	require.NoError(t, err)
	assert.Len(t, sheets, 2)
	assert.Equal(t, "Wave1", ds.Sheet)
}

func TestLoadXLSX_SparseCellsAreMissing(t *testing.T) {
	content := buildXLSX(t, fixtureSheet{name: "S", rows: [][]string{
		{"a", "b", "c"},
		{"1", "", "x"},
		{"2", "7", ""},
	}})
	ds, _, err := parser.Load(content, "sparse.xlsx", "")
	require.NoError(t, err)
	b, _ := ds.Column("b")
	c, _ := ds.Column("c")
	assert.True(t, b.IsMissing(0))
	assert.True(t, c.IsMissing(1))
	assert.Equal(t, dataset.KindNumeric, b.Kind)
}

func TestSheetsInfo(t *testing.T) {
	content := buildXLSX(t,
		fixtureSheet{name: "A", rows: [][]string{{"c1", "c2", "c3", "c4", "c5", "c6"}, {"1", "2", "3", "4", "5", "6"}}},
		fixtureSheet{name: "B", rows: [][]string{{"only"}, {"1"}, {"2"}}},
	)
	infos, err := parser.SheetsInfo(content, "book.xlsx")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, parser.SheetInfo{Name: "A", Rows: 1, Columns: 6, ColumnNames: []string{"c1", "c2", "c3", "c4", "c5"}}, infos[0])
	assert.Equal(t, 2, infos[1].Rows)

	none, err := parser.SheetsInfo([]byte("a\n1\n"), "flat.csv")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSupported(t *testing.T) {
	assert.True(t, parser.Supported("A.CSV"))
	assert.True(t, parser.Supported("b.xlsx"))
	assert.False(t, parser.Supported("c.xls"))
}
