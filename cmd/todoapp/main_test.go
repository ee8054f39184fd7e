package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()

	for _, path := range [][]string{{"serve"}, {"remind"}, {"migrate"}, {"user", "create"}, {"user", "list"}, {"token", "issue"}} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestTokenIssueRequiresUserID(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"token", "issue"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user-id")
}

func run(t *testing.T, args ...string) string {
	t.Helper()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute(), out.String())
	return out.String()
}

func TestUserCreateAndList(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	for _, key := range []string{"JWT_SECRET_KEY", "SMTP_HOST", "REDIS_URL", "TELEGRAM_TOKEN"} {
		t.Setenv(key, "")
	}
	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := "db:\n  dsn: " + filepath.Join(dir, "todo.db") + "\nstorage:\n  dir: " + filepath.Join(dir, "public") + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o600))

	assert.Equal(t, "User #1 Bob <bob@example.com>\n", run(t, "--config", cfgPath, "user", "create", "--name", "Bob", "--email", "bob@example.com"))
	run(t, "--config", cfgPath, "user", "create", "--name", "Alice", "--email", "alice@example.com")

	assert.Equal(t,
		"User #1 Bob <bob@example.com>\nUser #2 Alice <alice@example.com>\n",
		run(t, "--config", cfgPath, "user", "list"))
}
