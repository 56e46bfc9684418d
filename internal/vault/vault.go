// Package vault resolves named vaults and authorizes users against their
// static membership lists. Vaults are read-only at runtime; changing them
// requires a config reload via restart.
package vault

import (
	"strings"

	"github.com/kaysting/vaults/internal/config"
	"github.com/kaysting/vaults/internal/fsutil"
)

// Vault is a named, access-controlled root directory.
type Vault struct {
	Name  string
	Root  string
	Users []string
}

// HasMember reports whether username is on the vault's member list.
// Comparison is case-insensitive.
func (v Vault) HasMember(username string) bool {
	lower := strings.ToLower(username)
	for _, u := range v.Users {
		if strings.ToLower(u) == lower {
			return true
		}
	}
	return false
}

// Resolve maps a user-supplied path into this vault's sandbox.
func (v Vault) Resolve(userPath string) (fsutil.Resolved, error) {
	return fsutil.Resolve(v.Root, userPath)
}

// Disk returns live capacity statistics for the vault's filesystem.
func (v Vault) Disk() fsutil.DiskStats {
	return fsutil.Disk(v.Root)
}

// Registry holds the configured vaults.
type Registry struct {
	vaults []Vault
}

// NewRegistry builds a Registry from configuration.
func NewRegistry(cfgs []config.Vault) *Registry {
	vs := make([]Vault, 0, len(cfgs))
	for _, c := range cfgs {
		vs = append(vs, Vault{Name: c.Name, Root: c.Path, Users: c.Users})
	}
	return &Registry{vaults: vs}
}

// Find looks up a vault by exact name.
func (r *Registry) Find(name string) (Vault, bool) {
	for _, v := range r.vaults {
		if v.Name == name {
			return v, true
		}
	}
	return Vault{}, false
}

// ForUser returns all vaults the given username may access.
func (r *Registry) ForUser(username string) []Vault {
	var out []Vault
	for _, v := range r.vaults {
		if v.HasMember(username) {
			out = append(out, v)
		}
	}
	return out
}
