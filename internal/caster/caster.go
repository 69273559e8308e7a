// Package caster converts raw CSV field text into typed values.
//
// An empty or whitespace-only field is null and never an error. Anything else must parse
// as the requested kind or the cast fails with a parse error. No locale handling is done:
// the decimal separator is always '.'.
package caster

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tigerroll/greentaxi/pkg/batch/support/util/exception"
)

const moduleName = "caster"

var errRequired = errors.New("value is required")

// TimestampLayout is the layout of pickup and drop-off timestamps in the TLC files.
const TimestampLayout = "2006-01-02 15:04:05"

// Kind is the target type of a cast.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTimestamp:
		return "timestamp"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k >= KindInt && k <= KindTimestamp
}

// IsNull reports whether raw represents a missing value.
func IsNull(raw string) bool {
	return strings.TrimSpace(raw) == ""
}

// Int parses raw as a base-10 integer. It returns nil for a null field.
func Int(field, raw string) (*int64, error) {
	if IsNull(raw) {
		return nil, nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil, exception.NewParseError(moduleName, field, raw, err)
	}
	return &v, nil
}

// Float parses raw as a decimal number. It returns nil for a null field.
func Float(field, raw string) (*float64, error) {
	if IsNull(raw) {
		return nil, nil
	}
	s := strings.TrimSpace(raw)
	// ParseFloat also accepts hexadecimal mantissas, which never occur in the source files.
	if strings.ContainsAny(s, "xXpP_") {
		return nil, exception.NewParseError(moduleName, field, raw, strconv.ErrSyntax)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, exception.NewParseError(moduleName, field, raw, err)
	}
	return &v, nil
}

// String returns raw unchanged, or nil for a null field.
func String(raw string) *string {
	if IsNull(raw) {
		return nil
	}
	return &raw
}

// Timestamp parses raw with TimestampLayout in loc. It returns nil for a null field.
func Timestamp(field, raw string, loc *time.Location) (*time.Time, error) {
	if IsNull(raw) {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return nil, exception.NewParseError(moduleName, field, raw, err)
	}
	return &t, nil
}

// Cast converts raw to kind. The result is nil for a null field, otherwise one of
// int64, float64, string or time.Time. Timestamps are read in UTC.
func Cast(raw string, kind Kind) (interface{}, error) {
	return castNamed("value", raw, kind, time.UTC)
}

func castNamed(field, raw string, kind Kind, loc *time.Location) (interface{}, error) {
	switch kind {
	case KindInt:
		v, err := Int(field, raw)
		if v == nil || err != nil {
			return nil, err
		}
		return *v, nil
	case KindFloat:
		v, err := Float(field, raw)
		if v == nil || err != nil {
			return nil, err
		}
		return *v, nil
	case KindString:
		v := String(raw)
		if v == nil {
			return nil, nil
		}
		return *v, nil
	case KindTimestamp:
		v, err := Timestamp(field, raw, loc)
		if v == nil || err != nil {
			return nil, err
		}
		return *v, nil
	}
	return nil, exception.NewBatchError(moduleName, fmt.Sprintf("unknown kind %v for field '%s'", kind, field), nil, false, false)
}

// Format renders a value produced by Cast back to field text.
// Format(nil) is the empty string.
func Format(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	case time.Time:
		return x.Format(TimestampLayout)
	}
	return fmt.Sprint(v)
}

// CastField is Cast with a field name for error reporting and an explicit timestamp location.
func CastField(field, raw string, kind Kind, loc *time.Location) (interface{}, error) {
	return castNamed(field, raw, kind, loc)
}

// NullError reports a missing value in a non-nullable field.
func NullError(field string) error {
	return exception.NewParseError(moduleName, field, "", errRequired)
}
