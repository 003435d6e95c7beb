package jsonpath

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestFilterOnWrappedItem(t *testing.T) {
	item := decode(t, `{"id": "LC08_1", "properties": {"s2:processing_baseline": "04.00", "eo:cloud_cover": 12.5}}`)
	doc := []any{item}

	cases := []struct {
		expr string
		want int
	}{
		{`$[?(@.id =~ 'LC08.*')]`, 1},
		{`$[?(@.id =~ '^S2')]`, 0},
		{`$[?(@.id == 'LC08_1')]`, 1},
		{`$[?(@.id = 'LC08_1')]`, 1},
		{`$[?(@.id != 'LC08_1')]`, 0},
		{`$[?(@.properties.['s2:processing_baseline'] >= '05.00')]`, 0},
		{`$[?(@.properties['s2:processing_baseline'] =~ '^04')]`, 1},
		{`$[?(@.properties.eo:cloud_cover < 20)]`, -1},
		{`$[?(@.properties['eo:cloud_cover'] < 20)]`, 1},
		{`$[?(@.properties['eo:cloud_cover'] > 20.5)]`, 0},
		{`$[?(@.missing == 'x')]`, 0},
		{`$[?(@.properties)]`, 1},
		{`$[?(!@.missing)]`, 1},
		{`$[?(@.id =~ 'LC08' && @.properties['eo:cloud_cover'] <= 12.5)]`, 1},
		{`$[?(@.id =~ 'S2' || @.id =~ 'LC')]`, 1},
		{`$[?(@.id =~ 'S2' or (@.id =~ 'LC' and not @.missing))]`, 1},
		{`$[0].id`, 1},
		{`$.id`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			p, err := Compile(tc.expr)
			if tc.want < 0 {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, p.Find(doc), tc.want)
		})
	}
}

func TestIntLiteralCoercesNumericStrings(t *testing.T) {
	doc := []any{decode(t, `{"properties": {"path": "42", "row": 7, "name": "abc"}}`)}

	assert.Len(t, MustCompile(`$[?(@.properties.path == 42)]`).Find(doc), 1)
	assert.Len(t, MustCompile(`$[?(@.properties.row == 7)]`).Find(doc), 1)
	assert.Len(t, MustCompile(`$[?(@.properties.name == 1)]`).Find(doc), 0)
	assert.Len(t, MustCompile(`$[?(@.properties.path == '42')]`).Find(doc), 1)
}

func TestFilterOnJSONNumbers(t *testing.T) {
	doc := []any{map[string]any{"properties": map[string]any{
		"eo:cloud_cover": json.Number("12.5"),
		"big":            json.Number("9007199254740993"),
	}}}

	assert.Len(t, MustCompile(`$[?(@.properties['eo:cloud_cover'] < 20)]`).Find(doc), 1)
	assert.Len(t, MustCompile(`$[?(@.properties['eo:cloud_cover'] == 12.5)]`).Find(doc), 1)
	assert.Len(t, MustCompile(`$[?(@.properties.big > 1)]`).Find(doc), 1)
	assert.Len(t, MustCompile(`$[?(@.properties['eo:cloud_cover'] == '12.5')]`).Find(doc), 0)
}

func TestRegexIsUnanchoredAndCaseSensitive(t *testing.T) {
	doc := []any{decode(t, `{"id": "xx_LC08_yy"}`)}

	assert.Len(t, MustCompile(`$[?(@.id =~ 'LC08')]`).Find(doc), 1)
	assert.Len(t, MustCompile(`$[?(@.id =~ '^LC08')]`).Find(doc), 0)
	assert.Len(t, MustCompile(`$[?(@.id =~ 'lc08')]`).Find(doc), 0)
	assert.Len(t, MustCompile(`$[?(@.id =~ '(?i)lc08')]`).Find(doc), 1)
}

func TestNavigation(t *testing.T) {
	doc := decode(t, `{"a": {"b": [1, 2, 3, 4], "c": {"b": "x"}}, "list": [{"n": 1}, {"n": 2}, {"n": 3}]}`)

	assert.Equal(t, []any{float64(2)}, MustCompile(`$.a.b[1]`).Find(doc))
	assert.Equal(t, []any{float64(4)}, MustCompile(`$.a.b[-1]`).Find(doc))
	assert.Equal(t, []any{float64(1), float64(3)}, MustCompile(`$.a.b[0,2]`).Find(doc))
	assert.Equal(t, []any{float64(2), float64(3)}, MustCompile(`$.a.b[1:3]`).Find(doc))
	assert.Equal(t, []any{float64(1), float64(3)}, MustCompile(`$.a.b[::2]`).Find(doc))
	assert.Equal(t, []any{float64(4), float64(3), float64(2), float64(1)}, MustCompile(`$.a.b[::-1]`).Find(doc))
	assert.Len(t, MustCompile(`$.a.b[*]`).Find(doc), 4)
	assert.Len(t, MustCompile(`$..b`).Find(doc), 2)
	assert.Equal(t, []any{float64(2), float64(3)}, MustCompile(`$.list[?(@.n > 1)].n`).Find(doc))
	assert.Equal(t, []any{"x"}, MustCompile(`a.c.b`).Find(doc))
	assert.Equal(t, []any{"x"}, MustCompile(`$["a"]["c"]["b"]`).Find(doc))
	assert.Nil(t, MustCompile(`$.nope.deeper`).Find(doc))
}

func TestRootReferenceInsideFilter(t *testing.T) {
	doc := decode(t, `{"limit": 2, "list": [{"n": 1}, {"n": 2}, {"n": 3}]}`)
	assert.Equal(t, []any{map[string]any{"n": float64(3)}}, MustCompile(`$.list[?(@.n > $.limit)]`).Find(doc))
}

func TestCompileErrors(t *testing.T) {
	bad := []string{
		``,
		`$[?(@.id =~ 'LC08.*')`,
		`$[?(@.id == 'unterminated)]`,
		`$[?(@.id =~ '[')]`,
		`$[?(@.id =~ @.other)]`,
		`$[?(id == 'x')]`,
		`$..`,
		`$[1 2]`,
		`$ garbage`,
		`$[?(@.a ~ 1)]`,
	}
	for _, expr := range bad {
		t.Run(expr, func(t *testing.T) {
			_, err := Compile(expr)
			require.Error(t, err)
			var syn *SyntaxError
			assert.ErrorAs(t, err, &syn)
		})
	}
}

func TestPathIsReusable(t *testing.T) {
	p := MustCompile(`$[?(@.id =~ '^S2')]`)
	a := []any{map[string]any{"id": "S2A"}}
	b := []any{map[string]any{"id": "LC08"}}
	assert.Len(t, p.Find(a), 1)
	assert.Len(t, p.Find(b), 0)
	assert.Len(t, p.Find(a), 1)
	assert.Equal(t, `$[?(@.id =~ '^S2')]`, p.String())
}
