package clonecmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCloneCommand(t *testing.T) {
	cmd := NewCloneCommand()

	require.NotNil(t, cmd)

	assert.Equal(t, "clone <source-guild-id> <target-guild-id>", cmd.Use)
	assert.Equal(t, "Clone roles, categories, and channels between servers", cmd.Short)

	assert.Nil(t, cmd.Run)
	assert.NotNil(t, cmd.RunE)

	assert.Error(t, cmd.Args(cmd, []string{"123"}))
	assert.Error(t, cmd.Args(cmd, []string{"123", "456", "789"}))
	assert.NoError(t, cmd.Args(cmd, []string{"123", "456"}))
}

func TestParseGuildID(t *testing.T) {
	id, err := parseGuildID("123456789012345678")
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678", id)

	_, err = parseGuildID("my-server")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"my-server"`)

	_, err = parseGuildID("-5")
	assert.Error(t, err)
}
