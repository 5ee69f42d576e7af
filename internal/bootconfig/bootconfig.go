// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package bootconfig loads the engine's own startup configuration: where
// its state directory lives, which packet-filter binaries to invoke, and
// whether to run in dry-run mode. This is distinct from the firewall
// package's defaults file (internal/firewall/defaults.go), which keeps
// its fixed shell-sourceable KEY="VALUE" wire format because external
// tooling parses it; this file is ufwgo's own and is free to use a
// richer format.
package bootconfig

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"grimm.is/ufwgo/internal/firewall"
)

// Config is the root of the HCL bootstrap file, conventionally
// /etc/ufwgo/ufwgo.hcl.
type Config struct {
	StateDir    string        `hcl:"state_dir,optional"`
	DryRun      bool          `hcl:"dry_run,optional"`
	DefaultPolicy string      `hcl:"default_policy,optional"`
	Binaries    *BinariesBlock `hcl:"binaries,block"`
	HTTP        *HTTPBlock     `hcl:"http,block"`
}

// BinariesBlock overrides the conventional binary names/paths, e.g. for a
// distribution shipping iptables-legacy alongside iptables-nft.
type BinariesBlock struct {
	IPTables         string `hcl:"iptables,optional"`
	IP6Tables        string `hcl:"ip6tables,optional"`
	IPTablesRestore  string `hcl:"iptables_restore,optional"`
	IP6TablesRestore string `hcl:"ip6tables_restore,optional"`
}

// HTTPBlock configures the read-only status surface.
type HTTPBlock struct {
	Listen  string `hcl:"listen,optional"`
	Enabled bool   `hcl:"enabled,optional"`
}

// Default returns the built-in configuration used when no bootstrap file
// is present: state under /etc/ufwgo, live (non-dry-run) execution, a
// deny default policy, conventional binary names, and the HTTP surface
// disabled.
func Default() Config {
	return Config{
		StateDir:      "/etc/ufwgo",
		DryRun:        false,
		DefaultPolicy: "deny",
		Binaries:      &BinariesBlock{},
		HTTP:          &HTTPBlock{Listen: "127.0.0.1:8763", Enabled: false},
	}
}

// Load reads and decodes the HCL bootstrap file at path, layering its
// values over Default(). A missing file is not an error — Default() is
// returned as-is, matching the "works out of the box" expectation of a
// fresh install.
func Load(path string) (Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading bootstrap config %s: %w", path, err)
	}

	var file Config
	if err := hclsimple.DecodeFile(path, nil, &file); err != nil {
		return cfg, fmt.Errorf("decoding bootstrap config %s: %w", path, err)
	}

	if file.StateDir != "" {
		cfg.StateDir = file.StateDir
	}
	cfg.DryRun = file.DryRun
	if file.DefaultPolicy != "" {
		cfg.DefaultPolicy = file.DefaultPolicy
	}
	if file.Binaries != nil {
		cfg.Binaries = file.Binaries
	}
	if file.HTTP != nil {
		cfg.HTTP = file.HTTP
	}
	return cfg, nil
}

// ResolveBinaries resolves the effective binary set: overrides from the
// bootstrap file layered over the conventional defaults.
func (c Config) ResolveBinaries() firewall.Binaries {
	b := firewall.DefaultBinaries()
	if c.Binaries == nil {
		return b
	}
	if c.Binaries.IPTables != "" {
		b.IPTables = c.Binaries.IPTables
	}
	if c.Binaries.IP6Tables != "" {
		b.IP6Tables = c.Binaries.IP6Tables
	}
	if c.Binaries.IPTablesRestore != "" {
		b.IPTablesRestore = c.Binaries.IPTablesRestore
	}
	if c.Binaries.IP6TablesRestore != "" {
		b.IP6TablesRestore = c.Binaries.IP6TablesRestore
	}
	return b
}

// ResolvePaths builds the conventional file layout rooted at the
// configured state directory.
func (c Config) ResolvePaths() firewall.Paths {
	return firewall.DefaultPaths(c.StateDir)
}

