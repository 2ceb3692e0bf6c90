package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestInitWriter_SetsLevelAndTagsComponents(t *testing.T) {
	var buf bytes.Buffer

	InitWriter(&buf, true)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	assert.True(t, DebugEnabled())
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	logger := Component("patch")
	logger.Debug().Msg("applied")

	out := buf.String()
	assert.Contains(t, out, "applied")
	assert.Contains(t, out, "component=")
	assert.Contains(t, out, "patch")
}
