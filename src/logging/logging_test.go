package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	color "github.com/opsportal/portal/src/ansicolor"
	"github.com/opsportal/portal/src/oops"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestPrettyWriter(t *testing.T) {
	color.Disable()

	var buf bytes.Buffer
	logger := zerolog.New(NewPrettyZerologWriter(&buf))

	logger.Info().Stack().Str("channel", "general").Err(oops.New(errors.New("boom"), "failed to list threads")).Msg("request failed")

	out := buf.String()
	assert.Contains(t, out, "INFO: request failed")
	assert.Contains(t, out, "ERROR: failed to list threads: boom")
	assert.Contains(t, out, `channel: "general"`)
	assert.Contains(t, out, "Stack trace:")
	assert.Contains(t, out, "TestPrettyWriter")
}

func TestPrettyWriterPassesThroughNonJson(t *testing.T) {
	var buf bytes.Buffer
	w := NewPrettyZerologWriter(&buf)
	n, err := w.Write([]byte("plain text\n"))
	assert.NoError(t, err)
	assert.Equal(t, len("plain text\n"), n)
	assert.Equal(t, "plain text\n", buf.String())
}

func TestContextLogger(t *testing.T) {
	assert.Same(t, GlobalLogger(), ExtractLogger(context.Background()))

	logger := zerolog.Nop()
	ctx := AttachLoggerToContext(&logger, context.Background())
	assert.Same(t, &logger, ExtractLogger(ctx))
}
