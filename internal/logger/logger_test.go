package logger

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLogger_Setup(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	Logger{Level: "debug", Format: "json"}.Setup()
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	Logger{Level: "bogus"}.Setup()
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestLogger_Writer(t *testing.T) {
	assert.Equal(t, os.Stdout, Logger{Format: "json", Output: "stdout"}.writer())
	assert.Equal(t, os.Stderr, Logger{Format: "json"}.writer())

	cw, ok := Logger{Format: "text"}.writer().(zerolog.ConsoleWriter)
	assert.True(t, ok)
	assert.Equal(t, os.Stderr, cw.Out)
}
