package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pribylovaa/research-gateway/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestStorage_SaveLoadDelete(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "nested", "session.cred")
	st, err := New(p)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = st.Load(ctx)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, st.Save(ctx, []byte("v1")))
	require.NoError(t, st.Save(ctx, []byte("v2")))

	got, err := st.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "v2", string(got))

	fi, err := os.Stat(p)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	// Временных файлов не остаётся.
	entries, err := os.ReadDir(filepath.Dir(p))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, st.Delete(ctx))
	require.NoError(t, st.Delete(ctx))

	_, err = st.Load(ctx)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStorage_CanceledContext(t *testing.T) {
	t.Parallel()

	st, err := New(filepath.Join(t.TempDir(), "s"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, st.Save(ctx, []byte("x")), context.Canceled)
	_, err = st.Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, st.Delete(ctx), context.Canceled)
}

func TestNew_EmptyPath(t *testing.T) {
	t.Parallel()

	_, err := New("")
	require.Error(t, err)
}
