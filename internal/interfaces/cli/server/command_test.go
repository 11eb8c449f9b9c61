package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestServerWriteTimeout(t *testing.T) {
	t.Run("exceeds the polling window so long waits can still answer", func(t *testing.T) {
		pollWindow := 5 * time.Minute
		assert.Greater(t, serverWriteTimeout(pollWindow), pollWindow)
	})

	t.Run("keeps the short default for tiny windows", func(t *testing.T) {
		assert.Equal(t, 15*time.Second, serverWriteTimeout(0))
		assert.Equal(t, 15*time.Second, serverWriteTimeout(-time.Second))
	})

	t.Run("scales with the configured window", func(t *testing.T) {
		pollWindow := time.Hour
		assert.Equal(t, pollWindow+waitDeadlineSlack, serverWriteTimeout(pollWindow))
	})
}

func TestMapEnvToGinMode(t *testing.T) {
	cases := map[string]string{
		"production":  "release",
		"prod":        "release",
		"development": "debug",
		"dev":         "debug",
		"test":        "test",
		"release":     "release",
		"unknown":     "debug",
	}
	for env, want := range cases {
		assert.Equal(t, want, mapEnvToGinMode(env), env)
	}
}
