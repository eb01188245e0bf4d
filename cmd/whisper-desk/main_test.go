package main

import (
	"errors"
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlagsDefaults(t *testing.T) {
	opts, err := parseFlags(nil)
	require.NoError(t, err)
	assert.False(t, opts.headless())
	assert.Equal(t, noDevice, opts.device)
}

func TestParseFlagsHeadless(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"list devices", []string{"-list-devices"}},
		{"file", []string{"-file", "clip.wav", "-model", "base"}},
		{"record", []string{"-record", "5", "-device", "2"}},
		{"record only", []string{"-record", "3", "-no-transcribe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseFlags(tt.args)
			require.NoError(t, err)
			assert.True(t, opts.headless())
		})
	}
}

func TestParseFlagsValues(t *testing.T) {
	opts, err := parseFlags([]string{"-record", "4", "-device", "-1", "-model", "small", "-config", "/tmp/c.json"})
	require.NoError(t, err)
	assert.Equal(t, 4, opts.record)
	assert.Equal(t, -1, opts.device)
	assert.Equal(t, "small", opts.model)
	assert.Equal(t, "/tmp/c.json", opts.configPath)
}

func TestParseFlagsErrors(t *testing.T) {
	_, err := parseFlags([]string{"-record", "-3"})
	assert.Error(t, err)

	_, err = parseFlags([]string{"-no-transcribe"})
	assert.Error(t, err)

	_, err = parseFlags([]string{"-bogus"})
	assert.Error(t, err)

	_, err = parseFlags([]string{"-h"})
	assert.True(t, errors.Is(err, flag.ErrHelp))
}
