package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// TimeFormat is the timestamp layout used both for time.Time fields
// (via Hook) and for the logger's own timestamp.
const TimeFormat = time.RFC3339Nano

// Format formats v as compact JSON, without indentation or HTML
// escaping, logging (rather than returning) a warning if encoding
// fails. Intended for call sites building a single log field out of a
// struct, mirroring the teacher's internal/log.Format helper.
func Format(ctx context.Context, v interface{}) string {
	b, err := encode(v)
	if err != nil {
		G(ctx).WithError(err).Warning("could not format value")
		return ""
	}
	return string(b)
}

func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("could not marshal %T to JSON for logging: %w", v, err)
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}
