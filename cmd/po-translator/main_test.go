package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BemoBit/po-translator/internal/config"
)

func TestRootCmd_FlagsOverrideConfig(t *testing.T) {
	cfg := config.NewFromEnv()
	root := newRootCmd(cfg)
	root.SetArgs([]string{"--target", "de", "-w", "2", "--no-cache", "--list-languages"})
	root.SetOut(new(bytes.Buffer))

	require.NoError(t, root.Execute())
	assert.Equal(t, "de", cfg.TargetLang)
	assert.Equal(t, 2, cfg.Workers)
	assert.True(t, cfg.NoCache)
}

func TestRootCmd_ListLanguages(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd(config.NewFromEnv())
	root.SetArgs([]string{"--list-languages"})
	root.SetOut(&out)

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "fa")
	assert.Contains(t, out.String(), "Persian")
	assert.Greater(t, len(strings.Split(strings.TrimSpace(out.String()), "\n")), 10)
}

func TestRootCmd_MissingInputFails(t *testing.T) {
	root := newRootCmd(config.NewFromEnv())
	root.SetArgs([]string{})
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input PO file is required")
}
