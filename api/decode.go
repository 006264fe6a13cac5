package api

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

const acceptEncoding = "br, gzip"

func decodeBody(contentEncoding string, body io.Reader) ([]byte, error) {
	var reader io.Reader

	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "br":
		reader = brotli.NewReader(body)
	case "gzip":
		gzipReader, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("failed opening gzip body: %w", err)
		}
		defer gzipReader.Close()

		reader = gzipReader
	default:
		reader = body
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed reading response body: %w", err)
	}

	return data, nil
}

// parseData turns a response body into a JSON value. Non-JSON bodies are
// handed back as a string.
func parseData(contentType string, body []byte) interface{} {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}

	if strings.Contains(contentType, "json") || trimmed[0] == '{' || trimmed[0] == '[' {
		var data interface{}
		if err := json.Unmarshal(trimmed, &data); err == nil {
			return data
		}
	}

	return string(body)
}
