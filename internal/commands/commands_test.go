package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/postsync/internal/board"
	"github.com/hay-kot/postsync/internal/core/config"
	"github.com/hay-kot/postsync/internal/core/post"
	"github.com/hay-kot/postsync/internal/printer"
)

type harness struct {
	flags *Flags
	app   *board.App
}

func newHarness(t *testing.T, backend config.Backend) harness {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Store.Backend = backend
	cfg.Store.Seed = false
	cfg.Relay.Enabled = false

	app, err := board.NewApp(context.Background(), &cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	return harness{
		flags: &Flags{Config: &cfg, DataDir: cfg.DataDir},
		app:   app,
	}
}

// run executes args against a root command with every command registered
// and returns what was written to stdout.
func (h harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	root := &cli.Command{
		Name:           "postsync",
		Writer:         &out,
		ErrWriter:      &errOut,
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}

	root = NewLsCmd(h.flags, h.app).Register(root)
	root = NewNewCmd(h.flags, h.app).Register(root)
	root = NewEditCmd(h.flags, h.app).Register(root)
	root = NewRmCmd(h.flags, h.app).Register(root)
	root = NewShowCmd(h.flags, h.app).Register(root)
	root = NewAuthorsCmd(h.flags, h.app).Register(root)
	root = NewNotificationsCmd(h.flags, h.app).Register(root)
	root = NewConfigValidateCmd(h.flags).Register(root)

	ctx := printer.NewContext(context.Background(), printer.New(&out, &errOut))
	err := root.Run(ctx, append([]string{"postsync"}, args...))
	return out.String(), err
}

func (h harness) create(t *testing.T, title, author, status string) string {
	t.Helper()

	out, err := h.run(t, "new",
		"--title", title,
		"--content", "Content that is long enough",
		"--author", author,
		"--status", status,
	)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func decodeLines[T any](t *testing.T, out string) []T {
	t.Helper()

	var items []T
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var v T
		require.NoError(t, json.Unmarshal([]byte(line), &v))
		items = append(items, v)
	}
	return items
}

func TestLs_Empty(t *testing.T) {
	h := newHarness(t, config.BackendJSON)

	out, err := h.run(t, "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "No posts yet")
}

func TestNew_ThenList(t *testing.T) {
	h := newHarness(t, config.BackendJSON)

	id := h.create(t, "First post", "Ada", "published")
	h.create(t, "Second post", "Ada", "draft")
	h.create(t, "Third post", "Bob", "published")

	out, err := h.run(t, "ls", "--json")
	require.NoError(t, err)

	posts := decodeLines[post.Post](t, out)
	require.Len(t, posts, 3)
	assert.Equal(t, id, posts[0].ID)
	assert.Equal(t, "First post", posts[0].Title)

	out, err = h.run(t, "ls", "--json", "--author", "Ada", "--status", "published")
	require.NoError(t, err)
	filtered := decodeLines[post.Post](t, out)
	require.Len(t, filtered, 1)
	assert.Equal(t, id, filtered[0].ID)

	out, err = h.run(t, "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "TITLE")
	assert.Contains(t, out, "Third post")
}

func TestLs_InvalidStatus(t *testing.T) {
	h := newHarness(t, config.BackendJSON)

	_, err := h.run(t, "ls", "--status", "pending")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--status")
}

func TestNew_InvalidInput(t *testing.T) {
	h := newHarness(t, config.BackendJSON)

	_, err := h.run(t, "new", "--title", "x", "--content", "short", "--author", "A")
	require.Error(t, err)

	out, err := h.run(t, "ls", "--json")
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(out))
}

func TestNew_MissingFieldsWithoutTerminal(t *testing.T) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		t.Skip("stdin is a terminal")
	}
	h := newHarness(t, config.BackendJSON)

	_, err := h.run(t, "new", "--title", "Only a title")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

func TestNew_FromFile(t *testing.T) {
	h := newHarness(t, config.BackendJSON)

	path := filepath.Join(t.TempDir(), "post.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"title": "From a file",
		"content": "Content read from JSON",
		"author": "Grace",
		"status": "published"
	}`), 0o644))

	_, err := h.run(t, "new", "--file", path, "--status", "archived")
	require.NoError(t, err)

	out, err := h.run(t, "ls", "--json")
	require.NoError(t, err)
	posts := decodeLines[post.Post](t, out)
	require.Len(t, posts, 1)
	assert.Equal(t, "From a file", posts[0].Title)
	assert.Equal(t, post.StatusArchived, posts[0].Status, "flags override the file")
}

func TestNew_DefaultAuthorAndStatus(t *testing.T) {
	h := newHarness(t, config.BackendJSON)
	h.flags.Config.Defaults.Author = "Default Author"

	_, err := h.run(t, "new", "--title", "Defaults", "--content", "Content that is long enough")
	require.NoError(t, err)

	out, err := h.run(t, "ls", "--json")
	require.NoError(t, err)
	posts := decodeLines[post.Post](t, out)
	require.Len(t, posts, 1)
	assert.Equal(t, "Default Author", posts[0].Author)
	assert.Equal(t, post.StatusDraft, posts[0].Status)
}

func TestEdit_ByPrefix(t *testing.T) {
	h := newHarness(t, config.BackendJSON)
	id := h.create(t, "Editable", "Ada", "draft")

	_, err := h.run(t, "edit", id[:8], "--status", "published", "--title", "Edited title")
	require.NoError(t, err)

	out, err := h.run(t, "show", "--json", id)
	require.NoError(t, err)

	var got post.Post
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Edited title", got.Title)
	assert.Equal(t, post.StatusPublished, got.Status)
	assert.Equal(t, "Ada", got.Author)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestEdit_Errors(t *testing.T) {
	h := newHarness(t, config.BackendJSON)
	id := h.create(t, "Editable", "Ada", "draft")

	_, err := h.run(t, "edit")
	require.Error(t, err)

	_, err = h.run(t, "edit", "missing", "--title", "Whatever")
	require.ErrorIs(t, err, post.ErrNotFound)

	_, err = h.run(t, "edit", id, "--title", "x")
	require.Error(t, err)
}

func TestRm(t *testing.T) {
	h := newHarness(t, config.BackendJSON)
	id := h.create(t, "Doomed", "Ada", "draft")
	keep := h.create(t, "Survivor", "Ada", "draft")

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		_, err := h.run(t, "rm", id)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--yes")
	}

	_, err := h.run(t, "rm", "--yes", id)
	require.NoError(t, err)

	out, err := h.run(t, "ls", "--json")
	require.NoError(t, err)
	posts := decodeLines[post.Post](t, out)
	require.Len(t, posts, 1)
	assert.Equal(t, keep, posts[0].ID)

	_, err = h.run(t, "rm", "--yes", id)
	require.ErrorIs(t, err, post.ErrNotFound)
}

func TestShow(t *testing.T) {
	h := newHarness(t, config.BackendJSON)
	id := h.create(t, "Shown post", "Ada", "published")

	out, err := h.run(t, "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Shown post")
	assert.Contains(t, out, "published")
	assert.Contains(t, out, "Content that is long enough")

	_, err = h.run(t, "show", "nope")
	require.ErrorIs(t, err, post.ErrNotFound)
}

func TestAuthors(t *testing.T) {
	h := newHarness(t, config.BackendJSON)
	h.create(t, "One post", "Bob", "draft")
	h.create(t, "Two post", "Ada", "draft")
	h.create(t, "Six post", "Bob", "draft")

	out, err := h.run(t, "authors")
	require.NoError(t, err)
	assert.Equal(t, "Bob\nAda\n", out)

	out, err = h.run(t, "authors", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `["Bob","Ada"]`, out)
}

func TestNotifications(t *testing.T) {
	t.Run("json backend has no history", func(t *testing.T) {
		h := newHarness(t, config.BackendJSON)

		_, err := h.run(t, "notifications")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sqlite")
	})

	t.Run("sqlite backend records notifications", func(t *testing.T) {
		h := newHarness(t, config.BackendSQLite)
		h.create(t, "Recorded", "Ada", "draft")

		out, err := h.run(t, "notifications", "--json")
		require.NoError(t, err)

		type line struct {
			Level string `json:"level"`
			Title string `json:"title"`
		}
		items := decodeLines[line](t, out)
		require.Len(t, items, 1)
		assert.Equal(t, "success", items[0].Level)
		assert.Equal(t, "Post created", items[0].Title)

		out, err = h.run(t, "notifications", "--clear")
		require.NoError(t, err)
		assert.Contains(t, out, "Cleared 1")

		out, err = h.run(t, "notifications")
		require.NoError(t, err)
		assert.Contains(t, out, "No notifications")
	})
}

func TestConfigValidate(t *testing.T) {
	h := newHarness(t, config.BackendJSON)

	out, err := h.run(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")

	out, err = h.run(t, "config", "validate", "--format", "json")
	require.NoError(t, err)
	var result struct {
		Valid bool `json:"valid"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Valid)
}

func TestConfigValidate_Invalid(t *testing.T) {
	h := newHarness(t, config.BackendJSON)
	h.flags.Config.Relay.Enabled = true
	h.flags.Config.Relay.Channel = "bad/name"

	out, err := h.run(t, "config", "validate", "--format", "json")
	require.Error(t, err)

	var result struct {
		Valid  bool              `json:"valid"`
		Errors []validationError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, "relay.channel", result.Errors[0].Field)
}
