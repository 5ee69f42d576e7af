// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package firewall

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"grimm.is/ufwgo/internal/audit"
	ufwerrors "grimm.is/ufwgo/internal/errors"
	"grimm.is/ufwgo/internal/logging"
)

// Engine is the rule state machine: it owns the persistent rule files for
// both address families and the single entry point (SetRule) that keeps
// them coherent with the kernel's user chains. One
// Engine serves one administrator session at a time; mu serializes
// mutations so a concurrent status read never observes a half-applied
// change.
type Engine struct {
	mu sync.Mutex

	Paths    Paths
	Binaries Binaries
	Runner   Runner
	Metrics  *Metrics
	Audit    *audit.Logger
	Log      *logging.Logger

	DryRun bool
	Writer dryRunSink // collects dry-run output when DryRun is set
}

// dryRunSink is the subset of io.Writer the engine needs for dry-run
// output; kept as a named type so nil is a valid, no-op zero value.
type dryRunSink interface {
	Write(p []byte) (int, error)
}

// NewEngine builds an Engine ready to serve requests against paths, using
// runner to reach the kernel. Metrics and Audit may be nil.
func NewEngine(paths Paths, binaries Binaries, runner Runner, metrics *Metrics, auditLog *audit.Logger) *Engine {
	return &Engine{
		Paths:    paths,
		Binaries: binaries,
		Runner:   runner,
		Metrics:  metrics,
		Audit:    auditLog,
		Log:      logging.Default().With("component", "engine"),
	}
}

func (e *Engine) logWarnings(warnings []ufwerrors.ParseWarning) {
	for _, w := range warnings {
		e.Log.Warn("discarding unparsable entry", "source", w.Source, "reason", w.Reason)
	}
}

// SetRule is the engine's single mutation entry point, covering both
// add and remove intents (candidate.Remove distinguishes them) for
// whichever address family candidate targets.
//
// The existing rule list is walked once against candidate using Match:
//   - MatchEqual (same tuple, same action): candidate already exists. On
//     an add this is a no-op; on a remove the entry is dropped.
//   - MatchSameTupleDifferentAction: the administrator is re-issuing a
//     tuple with a new disposition. On an add this substitutes the new
//     action in place; a remove for this tuple has nothing exact to
//     delete (the live rule has a different action) and is reported as
//     ineffective, exactly like a remove that matches nothing at all.
//   - MatchDifferent: the entry is unrelated and carried over unchanged.
//
// A brand-new tuple (no match of any kind) is appended when adding, or
// reported as "nothing to delete" when removing.
func (e *Engine) SetRule(ctx context.Context, candidate Rule) (string, error) {
	if candidate.Action == ActionLimit && candidate.V6 {
		return "", ufwerrors.New(ufwerrors.KindUnsupported, "limit action is not supported for ipv6")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	path := e.Paths.RulesFile(candidate.V6)
	existing, warnings, err := ReadRules(path, candidate.V6)
	if err != nil {
		return "", err
	}
	e.logWarnings(warnings)

	var out RuleList
	found := false
	substituted := false
	for _, r := range existing {
		switch Match(r, candidate) {
		case MatchEqual:
			found = true
			if candidate.Remove {
				continue
			}
			out = append(out, r)
		case MatchSameTupleDifferentAction:
			if candidate.Remove {
				out = append(out, r)
				continue
			}
			found = true
			substituted = true
			out = append(out, candidate)
		default:
			out = append(out, r)
		}
	}

	var message string
	var kernelOp func(context.Context) error

	switch {
	case candidate.Remove && !found:
		message = "Could not delete non-existent rule"
	case !candidate.Remove && found && !substituted:
		message = "Skipping added rule (rule already exists)"
	case !candidate.Remove && !found:
		out = append(out, candidate)
		message = "Rule added"
		kernelOp = func(ctx context.Context) error { return e.appendIncremental(ctx, candidate) }
	case candidate.Remove && found && !substituted:
		message = "Rule deleted"
		kernelOp = func(ctx context.Context) error { return e.deleteIncremental(ctx, candidate) }
	case substituted:
		message = "Rule updated"
		kernelOp = func(ctx context.Context) error { return e.reload(ctx, candidate.V6, out) }
	}

	if kernelOp == nil {
		e.recordAudit(candidate, message, nil)
		return message, nil
	}

	if err := WriteRules(path, candidate.V6, out, e.DryRun, e.Writer); err != nil {
		e.recordAudit(candidate, "failed writing rule file", err)
		return "", err
	}

	needsReload, rerr := e.needReload(ctx, candidate.V6)
	if rerr != nil {
		e.recordAudit(candidate, "failed probing kernel chains", rerr)
		return "", rerr
	}
	if needsReload {
		if err := e.reload(ctx, candidate.V6, out); err != nil {
			e.recordAudit(candidate, "failed reloading rules", err)
			return "", err
		}
	} else if err := kernelOp(ctx); err != nil {
		e.recordAudit(candidate, "failed applying rule to kernel", err)
		return "", err
	}

	e.Metrics.observeRuleCount(candidate.V6, len(out))
	e.recordAudit(candidate, message, nil)
	return message, nil
}

func (e *Engine) recordAudit(candidate Rule, message string, err error) {
	if e.Audit == nil {
		return
	}
	typ := audit.EventRuleSkipped
	switch {
	case err != nil:
		typ = audit.EventCommandFailed
	case candidate.Remove && message == "Rule deleted":
		typ = audit.EventRuleRemoved
	case message == "Rule added":
		typ = audit.EventRuleAdded
	case message == "Rule updated":
		typ = audit.EventRuleReplaced
	}
	fields := map[string]any{
		"family": familyLabel(candidate.V6),
		"tuple":  candidate.TupleLine(),
	}
	if err != nil {
		e.Audit.Failure(typ, message, fields, err)
	} else {
		e.Audit.Info(typ, message, fields)
	}
}

// appendIncremental applies a single new rule to the live kernel chains
// without touching any other rule, via -A, per spec.md §4.5.1's
// incremental-apply path.
//
// The input chain always ends with an unconditional "-j RETURN" (laid
// down by the last reload), so a plain -A of a new rule lands after it,
// where it can never match. Every append is followed by removing and
// re-adding that trailing RETURN so it stays last, the same dance
// backend_iptables.py does after each -A fragment.
func (e *Engine) appendIncremental(ctx context.Context, r Rule) error {
	binary := e.iptablesBinary(r.V6)
	for _, line := range ExpandRule(r) {
		if err := e.runIptablesLine(ctx, binary, line); err != nil {
			return err
		}
	}
	if err := e.reanchorReturn(ctx, binary, InputChain(r.V6)); err != nil {
		return err
	}
	e.Metrics.observeIncremental(r.V6, "append")
	return nil
}

// reanchorReturn removes chain's trailing "-j RETURN" jump and re-adds
// it, restoring it to last position after an -A has landed a new rule
// ahead of it. The delete is best-effort: a chain that doesn't have the
// RETURN yet (shouldn't happen once Start has reloaded it once, but
// costs nothing to tolerate) fails harmlessly and the re-add still runs.
func (e *Engine) reanchorReturn(ctx context.Context, binary, chain string) error {
	_, _, _ = e.Runner.Run(ctx, append([]string{binary}, strings.Fields("-D "+chain+" -j RETURN")...))
	return e.runIptablesLine(ctx, binary, "-A "+chain+" -j RETURN")
}

// deleteIncremental removes a single existing rule from the live kernel
// chains via -D, leaving every other rule untouched.
func (e *Engine) deleteIncremental(ctx context.Context, r Rule) error {
	binary := e.iptablesBinary(r.V6)
	for _, line := range ExpandRule(r) {
		delLine := strings.Replace(line, "-A ", "-D ", 1)
		if err := e.runIptablesLine(ctx, binary, delLine); err != nil {
			return err
		}
	}
	e.Metrics.observeIncremental(r.V6, "delete")
	return nil
}

func (e *Engine) runIptablesLine(ctx context.Context, binary, line string) error {
	argv := append([]string{binary}, strings.Fields(line)...)
	code, out, err := e.Runner.Run(ctx, argv)
	if err != nil || code != 0 {
		e.Metrics.observeCommandFailure(binary)
		return ufwerrors.WithStderr(ufwerrors.Wrapf(err, ufwerrors.KindExternalCommand, "%s exited %d", binary, code), out)
	}
	return nil
}

func (e *Engine) iptablesBinary(v6 bool) string {
	if v6 {
		return e.Binaries.IP6Tables
	}
	return e.Binaries.IPTables
}

func (e *Engine) restoreBinary(v6 bool) string {
	if v6 {
		return e.Binaries.IP6TablesRestore
	}
	return e.Binaries.IPTablesRestore
}

// reload replaces every user-chain rule for one address family in a
// single pass by piping a freshly-built restore script into
// iptables-restore, per spec.md §4.5.1's full-reload path (used whenever
// an incremental -A/-D can't express the change, or the kernel's chains
// don't yet match what's on disk).
func (e *Engine) reload(ctx context.Context, v6 bool, rules RuleList) error {
	script := BuildRestoreScript(rules, v6)
	binary := e.restoreBinary(v6)

	if e.DryRun {
		if e.Writer != nil {
			fmt.Fprintf(e.Writer, "> %s <<EOF\n%s\nEOF\n", binary, script)
		}
		return nil
	}

	code, out, err := e.Runner.Pipe(ctx, []string{"printf", "%s", script}, []string{binary})
	if err != nil || code != 0 {
		e.Metrics.observeCommandFailure(binary)
		return ufwerrors.WithStderr(ufwerrors.Wrapf(err, ufwerrors.KindExternalCommand, "%s exited %d", binary, code), out)
	}
	e.Metrics.observeReload(v6)
	return nil
}

// needReload reports whether the kernel's live chains for one address
// family are missing any of the expected user chains, per spec.md
// §4.5.2. A missing chain means the kernel hasn't been initialized (or
// was flushed out from under the engine) and only a full reload can
// bring it back in sync; an incremental -A/-D against a chain that
// doesn't exist would simply fail.
func (e *Engine) needReload(ctx context.Context, v6 bool) (bool, error) {
	binary := e.iptablesBinary(v6)
	for _, chain := range UserChains(v6) {
		code, _, err := e.Runner.Run(ctx, []string{binary, "-L", chain, "-n"})
		if err != nil || code != 0 {
			return true, nil
		}
	}
	return false, nil
}

// Start brings the firewall up for both address families: it (re)loads
// each family's persistent rule file into the kernel. It does not apply
// the recorded default policy; SetDefaultPolicy does that. IPv6 support is probed via the presence of
// /proc/sys/net/ipv6; a host with that path missing (commonly a
// loopback-only v6 stack or v6 disabled at boot) skips the v6 reload
// entirely rather than failing the whole start.
func (e *Engine) Start(ctx context.Context, ipv6Available bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rules, warnings, err := ReadRules(e.Paths.Rules, false)
	if err != nil {
		return err
	}
	e.logWarnings(warnings)
	if err := e.reload(ctx, false, rules); err != nil {
		e.Audit.Failure(audit.EventStarted, "failed to load ipv4 rules", nil, err)
		return err
	}
	e.Metrics.observeRuleCount(false, len(rules))

	if ipv6Available {
		rules6, warnings6, err := ReadRules(e.Paths.Rules6, true)
		if err != nil {
			return err
		}
		e.logWarnings(warnings6)
		if err := e.reload(ctx, true, rules6); err != nil {
			e.Audit.Failure(audit.EventStarted, "failed to load ipv6 rules", nil, err)
			return err
		}
		e.Metrics.observeRuleCount(true, len(rules6))
	} else {
		e.Log.Info("ipv6 unavailable, skipping ipv6 chain load")
	}

	e.Audit.Info(audit.EventStarted, "firewall started", nil)
	return nil
}

// Stop tears the firewall down by applying a permissive (ACCEPT)
// top-level policy to both address families, mirroring Start's IPv6
// probe: a family that was never loaded (no v6 stack present) has no
// policy to relax.
func (e *Engine) Stop(ctx context.Context, ipv6Available bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	families := []bool{false}
	if ipv6Available {
		families = append(families, true)
	}

	for _, v6 := range families {
		binary := e.iptablesBinary(v6)
		for _, chain := range []string{"INPUT", "OUTPUT", "FORWARD"} {
			if err := e.runIptablesLine(ctx, binary, "-P "+chain+" ACCEPT"); err != nil {
				e.Audit.Failure(audit.EventStopped, "failed to set permissive policy", map[string]any{"family": familyLabel(v6)}, err)
				return err
			}
		}
	}

	e.Audit.Info(audit.EventStopped, "firewall stopped", nil)
	return nil
}

// GetStatus renders the full administrator-facing status report, per
// spec.md §4.5.4: logging state, the default input policy, and the
// decoded rule tables for both families, read back from the kernel's own
// chain listing rather than from disk, so status always reflects what's
// actually enforced.
func (e *Engine) GetStatus(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, logMsg, err := GetLogLevel(e.Paths.LogScannedFiles())
	if err != nil {
		return "", err
	}

	policy, err := e.GetDefaultPolicyLocked()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Status: active\n%s\nDefault: %s (incoming)\n", logMsg, policy)

	for _, v6 := range []bool{false, true} {
		chain := InputChain(v6)
		binary := e.iptablesBinary(v6)
		_, listing, err := e.Runner.Run(ctx, []string{binary, "-L", chain, "-n"})
		if err != nil {
			return "", ufwerrors.Wrapf(err, ufwerrors.KindExternalCommand, "listing %s", chain)
		}
		rules, warnings, err := ParseChainListing(listing, chain, v6)
		if err != nil {
			return "", err
		}
		e.logWarnings(warnings)
		b.WriteString(FormatStatusTable(rules))
	}

	return b.String(), nil
}

// SetDefaultPolicy records policy ("allow", "deny", or "reject") as the
// default input policy and applies it as the kernel's INPUT chain policy
// for both address families.
func (e *Engine) SetDefaultPolicy(ctx context.Context, policy string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	target, err := defaultPolicyTarget(policy)
	if err != nil {
		return "", err
	}

	if err := SetDefault(e.Paths.Defaults, DefaultInputPolicyKey, policy, e.DryRun, e.Writer); err != nil {
		return "", err
	}

	for _, v6 := range []bool{false, true} {
		if err := e.runIptablesLine(ctx, e.iptablesBinary(v6), "-P INPUT "+target); err != nil {
			return "", err
		}
	}

	if e.Audit != nil {
		e.Audit.Info(audit.EventPolicyChanged, "default input policy changed", map[string]any{"policy": policy})
	}
	return fmt.Sprintf("Default incoming policy changed to %q", policy), nil
}

// GetDefaultPolicy returns the recorded default input policy, defaulting
// to "deny" if none has been recorded yet.
func (e *Engine) GetDefaultPolicy() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.GetDefaultPolicyLocked()
}

// GetDefaultPolicyLocked is GetDefaultPolicy for callers already holding
// e.mu (GetStatus composes it into a larger report under the same lock).
func (e *Engine) GetDefaultPolicyLocked() (string, error) {
	policy, err := ReadDefault(e.Paths.Defaults, DefaultInputPolicyKey)
	if err != nil {
		return "", err
	}
	if policy == "" {
		return "deny", nil
	}
	return policy, nil
}

func defaultPolicyTarget(policy string) (string, error) {
	switch policy {
	case "allow":
		return "ACCEPT", nil
	case "deny":
		return "DROP", nil
	case "reject":
		return "REJECT", nil
	default:
		return "", ufwerrors.Errorf(ufwerrors.KindConfig, "unknown default policy %q", policy)
	}
}

// SetLogLevel toggles logging on/off across every rule and rules-fragment
// file and records the change.
func (e *Engine) SetLogLevel(level string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	msg, err := SetLogLevel(e.Paths.LogScannedFiles(), level, e.DryRun, e.Writer)
	if err != nil {
		return "", err
	}
	if e.Audit != nil {
		e.Audit.Info(audit.EventLogToggled, msg, map[string]any{"level": level})
	}
	return msg, nil
}

// GetLogLevel reports whether logging is currently on (1) or off (0),
// along with the human-readable status line.
func (e *Engine) GetLogLevel() (level int, message string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return GetLogLevel(e.Paths.LogScannedFiles())
}
