package cli

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "rosterly", root.Name)

	for _, name := range []string{"login", "logout", "whoami", "orgs", "nav", "can", "notifications"} {
		assert.Contains(t, root.Subcommands, name)
	}
}

func TestExecuteUnknownCommand(t *testing.T) {
	root := NewRootCommand()

	oldArgs := os.Args
	os.Args = []string{"rosterly", "frobnicate"}
	defer func() { os.Args = oldArgs }()

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestExecuteNoArgsShowsUsage(t *testing.T) {
	root := NewRootCommand()

	oldArgs := os.Args
	os.Args = []string{"rosterly"}
	defer func() { os.Args = oldArgs }()

	assert.NoError(t, root.Execute())
}
