package normalize

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

// RawEntry is one key/value pair of an AI response, before any typing.
type RawEntry struct {
	Key   string
	Value any
}

// RawResult is the untyped AI answer in document order. Values are string,
// float64, bool, nil or []any, exactly as JSON decodes them.
type RawResult []RawEntry

// ErrNotObject is returned when the AI payload is not a JSON object.
var ErrNotObject = errors.New("ai response is not a JSON object")

// ParseRawResult decodes an AI response body. Markdown code fences around the
// JSON are tolerated since models add them even when asked not to.
func ParseRawResult(data []byte) (RawResult, error) {
	body := StripCodeFences(string(data))
	if !gjson.Valid(body) {
		return nil, ErrNotObject
	}
	parsed := gjson.Parse(body)
	if !parsed.IsObject() {
		return nil, ErrNotObject
	}

	var out RawResult
	parsed.ForEach(func(key, value gjson.Result) bool {
		out = append(out, RawEntry{Key: key.String(), Value: value.Value()})
		return true
	})
	return out, nil
}

// StripCodeFences removes a surrounding ```json ... ``` block.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
