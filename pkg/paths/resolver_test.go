package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testRoots() map[string]string {
	return map[string]string{
		"alice":   "/data/alice/fetalEnv",
		"bob":     "/mnt/bob/fetalEnv",
		"default": "/srv/fetalEnv",
	}
}

func TestResolve(t *testing.T) {
	r, err := NewResolver(testRoots(), "default")
	require.NoError(t, err)

	tests := []struct {
		identity string
		want     string
	}{
		{"alice", filepath.Join("/data/alice/fetalEnv", "MRscans")},
		{"bob", filepath.Join("/mnt/bob/fetalEnv", "MRscans")},
		{"mallory", filepath.Join("/srv/fetalEnv", "MRscans")},
		{"", filepath.Join("/srv/fetalEnv", "MRscans")},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, r.Resolve(tt.identity, "MRscans"), "Resolve(%q)", tt.identity)
	}

	require.True(t, r.Known("alice"))
	require.False(t, r.Known("mallory"))
	require.Equal(t, []string{"alice", "bob", "default"}, r.Identities())
}

func TestResolverCopiesTable(t *testing.T) {
	roots := testRoots()
	r, err := NewResolver(roots, "default")
	require.NoError(t, err)

	roots["alice"] = "/elsewhere"
	require.Equal(t, "/data/alice/fetalEnv", r.Root("alice"))
}

func TestUnknownFallback(t *testing.T) {
	_, err := NewResolver(testRoots(), "nobody")
	require.ErrorIs(t, err, ErrUnknownFallback)
}

func TestIdentity(t *testing.T) {
	t.Setenv("SEGEVAL_TEST_IDENTITY", "alice")
	require.Equal(t, "alice", Identity("SEGEVAL_TEST_IDENTITY"))

	t.Setenv(DefaultIdentityEnv, "bob")
	require.Equal(t, "bob", Identity(""))
}
