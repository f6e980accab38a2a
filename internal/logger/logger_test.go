package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{"cos_secret_key", "abc", "bucket", "photos", "dangling"})
	assert.Equal(t, []interface{}{"cos_secret_key", "[REDACTED]", "bucket", "photos", "dangling"}, out)
}

func TestNopDoesNotPanic(t *testing.T) {
	l := Nop().With("component", "test")
	l.Info("hello", "k", "v")
	l.Sync()
}
