// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package firewall

import "path/filepath"

// ChainPrefix is "ufw" for IPv4, "ufw6" for IPv6.
func ChainPrefix(v6 bool) string {
	if v6 {
		return "ufw6"
	}
	return "ufw"
}

// UserChains returns the fixed user chain names for one address family, in
// the order they're declared in the rule file header. IPv6 has no
// user-limit chain — rate limiting is IPv4-only.
func UserChains(v6 bool) []string {
	p := ChainPrefix(v6)
	chains := []string{p + "-user-input", p + "-user-output", p + "-user-forward"}
	if !v6 {
		chains = append(chains, p+"-user-limit")
	}
	return chains
}

// InputChain is the chain user rules are appended into.
func InputChain(v6 bool) string {
	return ChainPrefix(v6) + "-user-input"
}

// Binaries names the external packet-filter executables the process
// runner invokes. Deployment-configurable via internal/bootconfig so a
// distribution can point at e.g. /usr/sbin/iptables-legacy.
type Binaries struct {
	IPTables        string
	IP6Tables       string
	IPTablesRestore string
	IP6TablesRestore string
	InitScript      string
}

// DefaultBinaries returns the conventional binary names, resolved via PATH.
func DefaultBinaries() Binaries {
	return Binaries{
		IPTables:         "iptables",
		IP6Tables:        "ip6tables",
		IPTablesRestore:  "iptables-restore",
		IP6TablesRestore: "ip6tables-restore",
		InitScript:       "/etc/init.d/ufwgo",
	}
}

// Paths is the explicit set of persistent file locations the engine reads
// and writes. It is carried as a value on Engine rather than read from a
// process-wide global, per spec.md §9's "no process-wide mutable
// singletons" note.
type Paths struct {
	Rules   string // user.rules
	Rules6  string // user6.rules
	Before  string // before.rules (opaque, scanned only for the log marker)
	Before6 string // before6.rules
	After   string // after.rules
	After6  string // after6.rules
	Defaults string // KEY="VALUE" defaults file
}

// DefaultPaths returns the conventional file layout rooted at dir (e.g.
// "/etc/ufwgo" in production, a temp dir in tests).
func DefaultPaths(dir string) Paths {
	return Paths{
		Rules:    filepath.Join(dir, "user.rules"),
		Rules6:   filepath.Join(dir, "user6.rules"),
		Before:   filepath.Join(dir, "before.rules"),
		Before6:  filepath.Join(dir, "before6.rules"),
		After:    filepath.Join(dir, "after.rules"),
		After6:   filepath.Join(dir, "after6.rules"),
		Defaults: filepath.Join(dir, "defaults"),
	}
}

// LogScannedFiles is every file set_loglevel/get_loglevel scans for the
// logging-off comment marker.
func (p Paths) LogScannedFiles() []string {
	return []string{p.Rules, p.Rules6, p.Before, p.Before6, p.After, p.After6}
}

// RulesFile returns the rule file path for the given address family.
func (p Paths) RulesFile(v6 bool) string {
	if v6 {
		return p.Rules6
	}
	return p.Rules
}

// programName is the short program name ("ufwgo") that CommentMarker,
// the literal string prepended to LOG lines to disable them, embeds.
const programName = "ufwgo"

// CommentMarker is the literal marker spec.md §6 fixes as
// "# <program>_comment #". Its presence in any scanned file is the sole
// signal that logging is administratively off.
var CommentMarker = "# " + programName + "_comment #"
