package command

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/inbox-triage/internal/inbox"
)

func executeCommand(cmd *cobra.Command, args ...string) (string, string, error) {
	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// writeConfig creates a config file pointing at a fresh store in a
// temporary directory and returns its path.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := `actor:
  email: me@fieldco.com
  name: Mia
  all_mailboxes: true
team:
  - email: ops@fieldco.com
store:
  path: ` + filepath.Join(dir, "inbox.db") + `
bulk:
  chunk_size: 2
  pause_ms: 0
log:
  level: error
`
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

const fixture = `[
  {"id": "t1", "subject": "Can you quote the pump?", "last_message_date": "2024-06-01T11:00:00Z",
   "from_address": "client@example.com", "to_addresses": ["ops@fieldco.com"]},
  {"id": "t2", "subject": "Invoice 2291", "last_message_date": "2024-06-01T10:00:00Z",
   "from_address": "billing@supplier.com", "to_addresses": ["ops@fieldco.com"],
   "next_action_status": "fyi"},
  {"id": "t3", "subject": "Following up", "last_message_date": "2024-06-01T09:00:00Z",
   "from_address": "me@fieldco.com", "to_addresses": ["client@example.com"],
   "next_action_status": "waiting"}
]`

func importFixture(t *testing.T, cfgPath string) {
	t.Helper()
	file := filepath.Join(t.TempDir(), "threads.json")
	require.NoError(t, os.WriteFile(file, []byte(fixture), 0o644))

	out, _, err := executeCommand(NewRootCmd("test"), "--config", cfgPath, "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 3 threads.")
}

func TestRootCommandVersion(t *testing.T) {
	out, _, err := executeCommand(NewRootCmd("test"), "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "inbox version test")
}

func TestListCommand_WorkflowViews(t *testing.T) {
	cfg := writeConfig(t)
	importFixture(t, cfg)

	out, _, err := executeCommand(NewRootCmd("test"), "--config", cfg, "list", "--view", "unassigned")
	require.NoError(t, err)
	assert.Contains(t, out, "t1")
	assert.NotContains(t, out, "t2")

	out, _, err = executeCommand(NewRootCmd("test"), "--config", cfg, "--json", "list", "--view", "waiting")
	require.NoError(t, err)
	var items []inbox.Item
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "t3", items[0].Thread.ID)
}

func TestListCommand_RejectsUnknownView(t *testing.T) {
	cfg := writeConfig(t)

	_, errOut, err := executeCommand(NewRootCmd("test"), "--config", cfg, "list", "--view", "later")
	require.Error(t, err)
	assert.Contains(t, errOut, "Error:")
}

func TestListCommand_SimpleFilter(t *testing.T) {
	cfg := writeConfig(t)
	importFixture(t, cfg)

	out, _, err := executeCommand(NewRootCmd("test"), "--config", cfg, "--json", "list", "--filter", "sent")
	require.NoError(t, err)
	var items []inbox.Item
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "t3", items[0].Thread.ID)
}

func TestCountsCommand(t *testing.T) {
	cfg := writeConfig(t)
	importFixture(t, cfg)

	out, _, err := executeCommand(NewRootCmd("test"), "--config", cfg, "--json", "counts")
	require.NoError(t, err)
	var counts map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &counts))
	assert.Equal(t, 1, counts["unassigned"])
	assert.Equal(t, 1, counts["fyi"])
	assert.Equal(t, 1, counts["waiting"])
	assert.Equal(t, 0, counts["done"])
}

func TestBulkCommand_ClosesThreads(t *testing.T) {
	cfg := writeConfig(t)
	importFixture(t, cfg)

	out, _, err := executeCommand(NewRootCmd("test"), "--config", cfg, "bulk", "close", "t1", "t2", "t3")
	require.NoError(t, err)
	assert.Contains(t, out, "3 threads closed.")

	out, _, err = executeCommand(NewRootCmd("test"), "--config", cfg, "--json", "counts")
	require.NoError(t, err)
	var counts map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &counts))
	assert.Equal(t, 3, counts["done"])
}

func TestBulkCommand_UnknownAction(t *testing.T) {
	cfg := writeConfig(t)

	_, _, err := executeCommand(NewRootCmd("test"), "--config", cfg, "bulk", "explode", "t1")
	require.Error(t, err)
}

func TestSyncCommand_RequiresFunctionURL(t *testing.T) {
	cfg := writeConfig(t)

	_, errOut, err := executeCommand(NewRootCmd("test"), "--config", cfg, "sync")
	require.Error(t, err)
	assert.Contains(t, errOut, "function_url")
}

func TestImportCommand_RejectsMissingID(t *testing.T) {
	cfg := writeConfig(t)
	file := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(file, []byte(`[{"subject": "no id"}]`), 0o644))

	_, _, err := executeCommand(NewRootCmd("test"), "--config", cfg, "import", file)
	require.Error(t, err)
}

func TestThreadCommands(t *testing.T) {
	cfg := writeConfig(t)
	importFixture(t, cfg)

	out, _, err := executeCommand(NewRootCmd("test"), "--config", cfg, "thread", "assign", "t1", "ops@fieldco.com", "--name", "Ops")
	require.NoError(t, err)
	assert.Contains(t, out, "Assigned.")

	_, _, err = executeCommand(NewRootCmd("test"), "--config", cfg, "thread", "note", "t1", "called back")
	require.NoError(t, err)

	out, _, err = executeCommand(NewRootCmd("test"), "--config", cfg, "thread", "show", "t1")
	require.NoError(t, err)
	assert.Contains(t, out, "assigned:  ops@fieldco.com")
	assert.Contains(t, out, "Assigned to Ops")
	assert.Contains(t, out, "called back")

	_, _, err = executeCommand(NewRootCmd("test"), "--config", cfg, "thread", "status", "t1", "later")
	require.Error(t, err)

	_, _, err = executeCommand(NewRootCmd("test"), "--config", cfg, "thread", "delete", "t2")
	require.NoError(t, err)
	out, _, err = executeCommand(NewRootCmd("test"), "--config", cfg, "--json", "counts")
	require.NoError(t, err)
	var counts map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &counts))
	assert.Equal(t, 0, counts["fyi"])
	assert.Equal(t, 0, counts["unassigned"])
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	out, _, err := executeCommand(NewRootCmd("test"), "--config", path, "config", "init", "--email", "Me@FieldCo.com")
	require.NoError(t, err)
	assert.Contains(t, out, path)

	_, _, err = executeCommand(NewRootCmd("test"), "--config", path, "config", "init")
	require.Error(t, err)

	out, _, err = executeCommand(NewRootCmd("test"), "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)
}
