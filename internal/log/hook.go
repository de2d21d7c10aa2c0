package log

import (
	"bytes"
	"reflect"
	"time"

	"github.com/sirupsen/logrus"
)

const nullString = "null"

// Hook intercepts and formats a logrus.Entry before it is logged, adapted
// from the teacher's internal/log.Hook: struct/map/slice fields are JSON
// encoded so operators tailing plain-text logs still get readable
// key=value pairs instead of Go's default %+v dump.
type Hook struct {
	// EncodeAsJSON formats structs, maps, arrays, slices, and
	// bytes.Buffer fields as JSON. Default true.
	EncodeAsJSON bool

	// TimeFormat is passed to time.Time.Format for time.Time fields. An
	// empty string disables formatting.
	TimeFormat string

	// EncodeError controls whether error fields are also JSON encoded
	// rather than left as their native Error() string.
	EncodeError bool
}

var _ logrus.Hook = &Hook{}

func NewHook() *Hook {
	return &Hook{
		EncodeAsJSON: true,
		TimeFormat:   TimeFormat,
	}
}

func (h *Hook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *Hook) Fire(e *logrus.Entry) error {
	h.encode(e)
	return nil
}

func (h *Hook) encode(e *logrus.Entry) {
	d := e.Data
	formatTime := h.TimeFormat != ""
	if !(h.EncodeAsJSON || formatTime) {
		return
	}

	for k, v := range d {
		if !h.EncodeError {
			if _, ok := v.(error); k == logrus.ErrorKey || ok {
				continue
			}
		}

		if t, ok := v.(time.Time); formatTime && ok {
			d[k] = t.Format(h.TimeFormat)
			continue
		}

		if !h.EncodeAsJSON {
			continue
		}

		switch vv := v.(type) {
		case bool, string, error, uintptr,
			int8, int16, int32, int64, int,
			uint8, uint32, uint64, uint,
			float32, float64, time.Duration:
			continue
		case bytes.Buffer:
			v = vv.Bytes()
		case *bytes.Buffer:
			v = vv.Bytes()
		}

		rv := reflect.Indirect(reflect.ValueOf(v))
		if !rv.IsValid() {
			d[k] = nullString
			continue
		}

		switch rv.Kind() {
		case reflect.Map, reflect.Struct, reflect.Array, reflect.Slice:
		default:
			continue
		}

		b, err := encode(v)
		if err != nil {
			d[k+"-"+logrus.ErrorKey] = err.Error()
			continue
		}
		d[k] = string(b)
	}
}
