// Package paths maps a machine identity, usually the login name, to the root
// folder of the fetal MRI dataset on that machine.
package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// DefaultIdentityEnv is the environment variable holding the machine identity
const DefaultIdentityEnv = "username"

// ErrUnknownFallback is returned when the fallback identity has no root
var ErrUnknownFallback = errors.New("fallback identity is not in the root table")

// Resolver looks up dataset roots in a fixed table
type Resolver struct {
	roots    map[string]string
	fallback string
}

// NewResolver builds a resolver over roots. The fallback identity must be one
// of the table's keys so that every identity resolves.
func NewResolver(roots map[string]string, fallback string) (*Resolver, error) {
	if _, ok := roots[fallback]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFallback, fallback)
	}
	table := make(map[string]string, len(roots))
	for k, v := range roots {
		table[k] = v
	}
	return &Resolver{roots: table, fallback: fallback}, nil
}

// Root returns the dataset root for identity, or the fallback root
func (r *Resolver) Root(identity string) string {
	if root, ok := r.roots[identity]; ok {
		return root
	}
	return r.roots[r.fallback]
}

// Resolve joins the identity's root with folder
func (r *Resolver) Resolve(identity, folder string) string {
	return filepath.Join(r.Root(identity), folder)
}

// Known reports whether identity has its own entry
func (r *Resolver) Known(identity string) bool {
	_, ok := r.roots[identity]
	return ok
}

// Identities returns the table's identities, sorted
func (r *Resolver) Identities() []string {
	out := make([]string, 0, len(r.roots))
	for k := range r.roots {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Identity reads the machine identity from envVar, or DefaultIdentityEnv when
// envVar is empty. An unset variable yields "".
func Identity(envVar string) string {
	if envVar == "" {
		envVar = DefaultIdentityEnv
	}
	return os.Getenv(envVar)
}
