package observability

import (
	"time"

	"go.uber.org/zap"
)

const redactKeep = 4

// String constructs a string field.
func String(key, value string) zap.Field { return zap.String(key, value) }

// Int constructs an int field.
func Int(key string, value int) zap.Field { return zap.Int(key, value) }

// Bool constructs a bool field.
func Bool(key string, value bool) zap.Field { return zap.Bool(key, value) }

// Float64 constructs a float64 field.
func Float64(key string, value float64) zap.Field { return zap.Float64(key, value) }

// Duration constructs a duration field.
func Duration(key string, value time.Duration) zap.Field { return zap.Duration(key, value) }

// Any constructs a field from an arbitrary value.
func Any(key string, value interface{}) zap.Field { return zap.Any(key, value) }

// Error constructs an error field under the "error" key.
func Error(err error) zap.Field { return zap.Error(err) }

// Secret constructs a field that shows only the first characters of a credential.
func Secret(key, value string) zap.Field { return zap.String(key, Redact(value)) }

// Redact masks all but the leading characters of a credential.
func Redact(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= redactKeep {
		return "***"
	}
	return value[:redactKeep] + "***"
}
