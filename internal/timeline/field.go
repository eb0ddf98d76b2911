package timeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goodtune/daybook/internal/storage"
	"github.com/goodtune/daybook/internal/timeofday"
)

// Field names one user-visible attribute of a segment.
type Field int

const (
	FieldStart Field = iota
	FieldEnd
	FieldDuration
	FieldLabel
)

// Fields lists all fields in display order.
var Fields = []Field{FieldStart, FieldEnd, FieldDuration, FieldLabel}

var errUnknownField = errors.New("unknown field, expected start, end, duration or label")

var fieldNames = map[Field]string{
	FieldStart:    "start",
	FieldEnd:      "end",
	FieldDuration: "duration",
	FieldLabel:    "label",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// ParseField accepts a field name case-insensitively.
func ParseField(s string) (Field, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for f, n := range fieldNames {
		if n == name {
			return f, nil
		}
	}
	return 0, &ValidationError{Field: "field", Value: s, Err: errUnknownField}
}

func (f Field) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Field) UnmarshalText(data []byte) error {
	parsed, err := ParseField(string(data))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Value formats the field of seg for display. Open segments have no end
// and no duration yet.
func (f Field) Value(seg storage.Segment) string {
	switch f {
	case FieldStart:
		return seg.Start.String()
	case FieldEnd:
		if seg.Closed() {
			return seg.End.String()
		}
	case FieldDuration:
		if seg.Closed() {
			return timeofday.FormatDuration(seg.Duration())
		}
	case FieldLabel:
		return seg.Label
	}
	return ""
}

// Editable reports whether a user may change field f of seg. Duration is
// always derived. A running segment only takes a new label, and a closed
// day takes nothing.
func Editable(seg storage.Segment, f Field, dayClosed bool) bool {
	if dayClosed {
		return false
	}
	switch f {
	case FieldLabel:
		return true
	case FieldStart, FieldEnd:
		return seg.Closed()
	default:
		return false
	}
}

// Deletable reports whether seg may be removed.
func Deletable(seg storage.Segment, dayClosed bool) bool {
	return !dayClosed && seg.Closed()
}
