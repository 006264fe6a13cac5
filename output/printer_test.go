package output

import (
	"bytes"
	"testing"

	"github.com/ethpandaops/conduit-client/types"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func articlesResponse() *types.Response {
	return &types.Response{
		Type: "getArticlesList",
		Data: map[string]interface{}{
			"articles": []map[string]interface{}{
				{"slug": "dragons-1", "title": "Dragons"},
				{"slug": "owls-2", "title": "Owls"},
			},
			"articlesCount": 2,
		},
	}
}

func TestPrintWholeResponse(t *testing.T) {
	var buf bytes.Buffer

	printer, err := NewPrinter(&buf, "")
	require.NoError(t, err)

	require.NoError(t, printer.Print(&types.Response{Data: map[string]interface{}{"tags": []string{"go"}}}))
	assert.Equal(t, "{\n  \"tags\": [\n    \"go\"\n  ]\n}\n", buf.String())
}

func TestPrintWithQuery(t *testing.T) {
	var buf bytes.Buffer

	printer, err := NewPrinter(&buf, ".articles[].title")
	require.NoError(t, err)

	require.NoError(t, printer.Print(articlesResponse()))
	assert.Equal(t, "\"Dragons\"\n\"Owls\"\n", buf.String())
}

func TestPrintQueryWithoutResults(t *testing.T) {
	var buf bytes.Buffer

	printer, err := NewPrinter(&buf, ".articles[] | select(.slug == \"none\")")
	require.NoError(t, err)

	require.NoError(t, printer.Print(articlesResponse()))
	assert.Empty(t, buf.String())
}

func TestInvalidQuery(t *testing.T) {
	_, err := NewPrinter(&bytes.Buffer{}, ".articles[")
	require.Error(t, err)
}

func TestQueryRuntimeError(t *testing.T) {
	printer, err := NewPrinter(&bytes.Buffer{}, ".articlesCount.foo")
	require.NoError(t, err)

	require.Error(t, printer.Print(articlesResponse()))
}

func TestPrintNilResponse(t *testing.T) {
	var buf bytes.Buffer

	printer, err := NewPrinter(&buf, "")
	require.NoError(t, err)

	require.NoError(t, printer.Print(nil))
	assert.Empty(t, buf.String())
}

func TestHasError(t *testing.T) {
	assert.True(t, hasError(map[string]interface{}{"error": "not found"}))
	assert.False(t, hasError(map[string]interface{}{"ok": true}))
	assert.False(t, hasError("text"))
}
