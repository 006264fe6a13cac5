package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ethpandaops/conduit-client/types"
	"github.com/fatih/color"
	"github.com/itchyny/gojq"
)

// Printer renders responses as indented JSON, optionally reduced by a jq
// expression first.
type Printer struct {
	out   io.Writer
	query *gojq.Query
}

func NewPrinter(out io.Writer, query string) (*Printer, error) {
	printer := &Printer{out: out}

	if query != "" {
		parsed, err := gojq.Parse(query)
		if err != nil {
			return nil, fmt.Errorf("invalid query %q: %w", query, err)
		}

		printer.query = parsed
	}

	return printer, nil
}

// Print writes the data of rsp. QEWD answers carrying an error are printed
// in red so they stand out from successful results.
func (p *Printer) Print(rsp *types.Response) error {
	if rsp == nil {
		return nil
	}

	data, err := normalize(rsp.Data)
	if err != nil {
		return err
	}

	results, err := p.apply(data)
	if err != nil {
		return err
	}

	paint := color.New(color.FgHiWhite)
	if hasError(data) {
		paint = color.New(color.FgRed)
	}

	for _, result := range results {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}

		if _, err := paint.Fprintln(p.out, string(encoded)); err != nil {
			return err
		}
	}

	return nil
}

func (p *Printer) apply(data interface{}) ([]interface{}, error) {
	if p.query == nil {
		return []interface{}{data}, nil
	}

	results := []interface{}{}

	iter := p.query.Run(data)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}

		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("query failed: %w", err)
		}

		results = append(results, v)
	}

	return results, nil
}

// normalize round-trips data through JSON so gojq only sees the plain value
// types it understands.
func normalize(data interface{}) (interface{}, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}

	var result interface{}
	if err := json.Unmarshal(encoded, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result, nil
}

func hasError(data interface{}) bool {
	obj, ok := data.(map[string]interface{})
	if !ok {
		return false
	}

	_, found := obj["error"]

	return found
}
