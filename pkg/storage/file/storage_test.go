// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-ovpnpki.
//
// go-ovpnpki is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-ovpnpki/pkg/storage"
)

// newTestStorage returns a FileStorage on an in-memory filesystem.
func newTestStorage(t *testing.T) (storage.Backend, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	store, err := New(fsys, "/cache/ovpnpki")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, fsys
}

func TestNew(t *testing.T) {
	t.Run("creates root directory", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		_, err := New(fsys, "/var/cache/ovpnpki/nested")
		require.NoError(t, err)

		ok, err := afero.DirExists(fsys, "/var/cache/ovpnpki/nested")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("empty root", func(t *testing.T) {
		_, err := New(afero.NewMemMapFs(), "")
		assert.Error(t, err)
	})

	t.Run("nil filesystem", func(t *testing.T) {
		_, err := New(nil, "/cache")
		assert.Error(t, err)
	})
}

func TestFileStorage_PutGet(t *testing.T) {
	store, fsys := newTestStorage(t)

	require.NoError(t, store.Put("alice/req.sha256", []byte("deadbeef"), nil))

	got, err := store.Get("alice/req.sha256")
	require.NoError(t, err)
	assert.Equal(t, []byte("deadbeef"), got)

	// The key maps one-to-one onto a file below the root
	raw, err := afero.ReadFile(fsys, "/cache/ovpnpki/alice/req.sha256")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", string(raw))
}

func TestFileStorage_Permissions(t *testing.T) {
	store, fsys := newTestStorage(t)

	require.NoError(t, store.Put("default", []byte("x"), nil))
	require.NoError(t, store.Put("custom", []byte("x"), &storage.Options{Permissions: 0640}))

	info, err := fsys.Stat("/cache/ovpnpki/default")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	info, err = fsys.Stat("/cache/ovpnpki/custom")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())
}

func TestFileStorage_NotFound(t *testing.T) {
	store, _ := newTestStorage(t)

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.Delete("missing"), storage.ErrNotFound)

	exists, err := store.Exists("missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileStorage_DeleteAndExists(t *testing.T) {
	store, _ := newTestStorage(t)

	require.NoError(t, store.Put("bob/crt.sha256", []byte("x"), nil))

	exists, err := store.Exists("bob/crt.sha256")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete("bob/crt.sha256"))

	exists, err = store.Exists("bob/crt.sha256")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileStorage_List(t *testing.T) {
	store, _ := newTestStorage(t)

	for _, k := range []string{"bob/key.sha256", "alice/req.sha256", "alice/crt.sha256", ".alice.ovpn.sha256"} {
		require.NoError(t, store.Put(k, []byte("x"), nil))
	}

	keys, err := store.List("alice/")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice/crt.sha256", "alice/req.sha256"}, keys)

	all, err := store.List("")
	require.NoError(t, err)
	assert.Equal(t, []string{".alice.ovpn.sha256", "alice/crt.sha256", "alice/req.sha256", "bob/key.sha256"}, all)
}

func TestFileStorage_InvalidKeys(t *testing.T) {
	store, _ := newTestStorage(t)

	for _, key := range []string{"", "/etc/passwd", "../secret", "foo/../../etc/passwd", "a\x00b", "."} {
		t.Run(key, func(t *testing.T) {
			err := store.Put(key, []byte("x"), nil)
			assert.ErrorIs(t, err, storage.ErrInvalidKey)

			_, err = store.Get(key)
			assert.ErrorIs(t, err, storage.ErrInvalidKey)
		})
	}
}

func TestValidateStorageKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr string
	}{
		{"", "cannot be empty"},
		{"test\x00key", "null byte"},
		{"/etc/passwd", "absolute path"},
		{"../secret", "path traversal"},
		{"foo/../../../etc/passwd", "path traversal"},
		{"foo/bar/..", ""},
		{"alice/req.sha256", ""},
		{".alice.ovpn.sha256", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := validateStorageKey(tt.key)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewOS(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")

	store, err := NewOS(dir)
	require.NoError(t, err)

	require.NoError(t, store.Put("alice/key.sha256", []byte("abc"), nil))

	raw, err := os.ReadFile(filepath.Join(dir, "alice", "key.sha256"))
	require.NoError(t, err)
	assert.Equal(t, "abc", string(raw))

	keys, err := store.List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice/key.sha256"}, keys)
}
