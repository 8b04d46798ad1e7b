package msgcat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Render(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)

	got, err := c.Render("status.turn", map[string]string{"Seat": "Player 2", "Mark": "O"})
	require.NoError(t, err)
	assert.Equal(t, "Player 2's turn (O)", got)

	got, err = c.Render("status.waiting", nil)
	require.NoError(t, err)
	assert.Equal(t, "Waiting for players…", got)

	_, err = c.Render("status.nope", nil)
	require.Error(t, err)

	_, err = c.Render("status.turn", map[string]string{"Seat": "Player 1"})
	require.Error(t, err, "missing template fields are errors")
}

func TestCatalog_Text(t *testing.T) {
	c := Default()

	assert.Equal(t, "It's a draw!", c.Text("status.draw", nil, "fallback"))
	assert.Equal(t, "fallback", c.Text("does.not.exist", nil, "fallback"))

	var nilCat *Catalog
	assert.Equal(t, "fallback", nilCat.Text("status.draw", nil, "fallback"))
}

func TestCatalog_Overrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("status:\n  draw: \"Tie game\"\n"), 0o644))

	c, err := New(dir)
	require.NoError(t, err)

	assert.Equal(t, "Tie game", c.Text("status.draw", nil, ""))
	assert.Equal(t, "Waiting for players…", c.Text("status.waiting", nil, ""), "keys without override keep defaults")
}

func TestCatalog_DuplicateOverrideKeys(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("status:\n  draw: \"A\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte("status:\n  draw: \"B\"\n"), 0o644))

	_, err := New(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate override key")
}
