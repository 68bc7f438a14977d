package pathfinder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozontech/seq-registry/consts"
)

func TestNew(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	base, err := os.UserConfigDir()
	require.NoError(t, err)

	pf, err := New("node1")
	require.NoError(t, err)

	dir := filepath.Join(base, "nym", "mixnodes", "node1")
	assert.Equal(t, dir, pf.ConfigDir)
	assert.Equal(t, filepath.Join(dir, "private.pem"), pf.PrivateSphinxKey)
	assert.Equal(t, filepath.Join(dir, "public.pem"), pf.PublicSphinxKey)

	assert.Equal(t, pf.PrivateSphinxKey, pf.PrivateIdentityKey())
	assert.Equal(t, pf.PublicSphinxKey, pf.PublicIdentityKey())
	enc, ok := pf.PublicEncryptionKey()
	assert.True(t, ok)
	assert.Equal(t, pf.PublicSphinxKey, enc)
}

func TestNewRejectsBadID(t *testing.T) {
	for _, id := range []string{"", ".", "..", "a/b", "../escape"} {
		_, err := New(id)
		require.ErrorIs(t, err, consts.ErrInvalidArgument, id)
	}
}

func TestNewFromConfig(t *testing.T) {
	dir := t.TempDir()

	pf, err := NewFromConfig(Config{ConfigDir: dir, PublicSphinxKey: "/keys/pub.pem"})
	require.NoError(t, err)
	assert.Equal(t, dir, pf.ConfigDir)
	assert.Equal(t, filepath.Join(dir, "private.pem"), pf.PrivateSphinxKey)
	assert.Equal(t, "/keys/pub.pem", pf.PublicSphinxKey)

	_, err = NewFromConfig(Config{})
	require.ErrorIs(t, err, consts.ErrInvalidArgument)
}
