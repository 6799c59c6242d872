package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"debug":   zerolog.DebugLevel,
		"warn":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestNewJSONWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "debug", Format: "json", Service: "download", Writer: &buf})

	ctx := WithRequest(context.Background(), "req-1")
	C(ctx, &l).Info().Str("key", "projects/a.pdf").Msg("issued")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "download", line["service"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "issued", line["message"])
}

func TestCWithoutRequestIDReturnsSameLogger(t *testing.T) {
	l := New(Options{Writer: &bytes.Buffer{}})
	assert.Same(t, &l, C(context.Background(), &l))
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "info", Writer: &buf})
	l.Debug().Msg("hidden")
	assert.Empty(t, buf.String())
}
