package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"
)

// matches reports whether every filter field equals the document field.
func matches(doc Document, filter Filter) bool {
	for field, want := range filter {
		got, ok := doc[field]
		if !ok {
			return false
		}
		if canonical(got) != canonical(want) {
			return false
		}
	}
	return true
}

// canonical renders scalar values so that values of different numeric types
// (int64 written, json.Number read back) compare equal.
func canonical(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return normalizeNumber(t.String())
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	case int:
		return strconv.FormatInt(int64(t), 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func normalizeNumber(s string) string {
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return formatFloat(f)
	}
	return s
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e18 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// identity renders filter as a stable key: sorted field=canonical(value)
// pairs, so 8 and "8" name the same document.
func identity(filter Filter) string {
	vals := make(url.Values, len(filter))
	for field, v := range filter {
		vals.Set(field, canonical(v))
	}
	return vals.Encode()
}

// withFilter returns a copy of doc carrying the filter fields, so an inserted
// document is always found again by the filter that created it.
func withFilter(doc Document, filter Filter) Document {
	out := make(Document, len(doc)+len(filter))
	for k, v := range doc {
		out[k] = v
	}
	for k, v := range filter {
		out[k] = v
	}
	return out
}

// collectDistinct appends the canonical value of field from each document,
// skipping documents without the field and values already collected.
func collectDistinct(out []string, seen map[string]struct{}, doc Document, field string) []string {
	v, ok := doc[field]
	if !ok || v == nil {
		return out
	}
	key := canonical(v)
	if _, dup := seen[key]; dup {
		return out
	}
	seen[key] = struct{}{}
	return append(out, key)
}

func encodeDocument(doc Document) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return raw, nil
}

func decodeDocument(raw []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
