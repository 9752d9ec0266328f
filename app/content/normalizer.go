package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Normalize classifies raw content by its declared content type and extracts
// the representation the enrichment step works with. It has no side effects.
func Normalize(raw json.RawMessage, contentType string) (Input, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Input{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}

	switch Kind(strings.ToLower(strings.TrimSpace(contentType))) {
	case KindURL:
		return normalizeURL(trimmed)
	case KindImage:
		return normalizeImage(trimmed)
	default:
		return normalizeText(trimmed)
	}
}

func normalizeURL(raw []byte) (Input, error) {
	var candidate string

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		candidate = s
	} else {
		var obj struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return Input{}, fmt.Errorf("%w: url content must be a string or an object with a url field", ErrInvalidInput)
		}
		candidate = obj.URL
	}

	parsed, err := ParseURL(candidate)
	if err != nil {
		return Input{}, err
	}

	return Input{Kind: KindURL, URL: parsed.String()}, nil
}

// ParseURL accepts absolute http(s) URLs with a host.
func ParseURL(candidate string) (*url.URL, error) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return nil, fmt.Errorf("%w: url is empty", ErrInvalidInput)
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot parse url: %v", ErrInvalidInput, err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported url scheme %q", ErrInvalidInput, parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("%w: url has no host", ErrInvalidInput)
	}

	return parsed, nil
}

func normalizeImage(raw []byte) (Input, error) {
	var data string
	if err := json.Unmarshal(raw, &data); err != nil {
		return Input{}, fmt.Errorf("%w: image content must be an encoded string", ErrInvalidInput)
	}
	if strings.TrimSpace(data) == "" {
		return Input{}, fmt.Errorf("%w: image content is empty", ErrInvalidInput)
	}

	return Input{Kind: KindImage, ImageData: data}, nil
}

func normalizeText(raw []byte) (Input, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		// Non-string JSON is kept as its compact text form
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return Input{}, fmt.Errorf("%w: content is not valid JSON", ErrInvalidInput)
		}
		text = buf.String()
	}

	if strings.TrimSpace(text) == "" {
		return Input{}, fmt.Errorf("%w: text content is empty", ErrInvalidInput)
	}

	return Input{Kind: KindText, Title: text, Description: text}, nil
}
