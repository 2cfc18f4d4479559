package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listing struct {
	Names []string `json:"names" yaml:"names"`
}

func (l listing) Headers() []string { return []string{"Name"} }

func (l listing) Rows() [][]string {
	rows := make([][]string, len(l.Names))
	for i, n := range l.Names {
		rows[i] = []string{n}
	}
	return rows
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "", want: FormatTable},
		{input: "table", want: FormatTable},
		{input: "JSON", want: FormatJSON},
		{input: " yml ", want: FormatYAML},
		{input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestPrinterFormats(t *testing.T) {
	data := listing{Names: []string{"docs", "uploads"}}

	var table bytes.Buffer
	require.NoError(t, NewPrinter(&table, FormatTable).Print(data))
	assert.Contains(t, table.String(), "NAME")
	assert.Contains(t, table.String(), "uploads")

	var js bytes.Buffer
	require.NoError(t, NewPrinter(&js, FormatJSON).Print(data))
	assert.JSONEq(t, `{"names":["docs","uploads"]}`, js.String())

	var y bytes.Buffer
	require.NoError(t, NewPrinter(&y, FormatYAML).Print(data))
	assert.Contains(t, y.String(), "names:")
	assert.Contains(t, y.String(), "- uploads")
}

func TestTableFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatTable).Print(map[string]int{"a": 1}))
	assert.JSONEq(t, `{"a":1}`, buf.String())
}

type record struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

func (r record) KeyValues() [][2]string {
	return [][2]string{{"Name", r.Name}, {"Size", "3 bytes"}}
}

func TestPrinterKeyValues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatTable).Print(record{Name: "a.txt", Size: 3}))
	assert.Contains(t, buf.String(), "a.txt")
	assert.Contains(t, buf.String(), "3 bytes")

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, FormatJSON).Print(record{Name: "a.txt", Size: 3}))
	assert.JSONEq(t, `{"name":"a.txt","size":3}`, buf.String())
}
