// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package firewall implements the rule state machine and packet-filter
// backend: the persistent rule list, the iptables-restore script
// generator, kernel/disk reconciliation, and status reporting.
package firewall

import "fmt"

// Action is a firewall rule's disposition for matching traffic.
type Action string

const (
	ActionAllow Action = "allow"
	ActionDeny  Action = "deny"
	ActionLimit Action = "limit" // IPv4-only
)

// Protocol is the transport a rule matches against. ProtocolAny means
// "match both tcp and udp" for port rules.
type Protocol string

const (
	ProtocolAny Protocol = "any"
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
)

// AnywhereV4 and AnywhereV6 are the CIDR spellings of "no address
// restriction" for each address family.
const (
	AnywhereV4 = "0.0.0.0/0"
	AnywhereV6 = "::/0"
)

// AnyPort is the port specifier meaning "no port restriction".
const AnyPort = "any"

// Rule is a single firewall intent: an action applied to a
// protocol/port/address six-tuple, scoped to one address family.
//
// Remove is a transient request flag carried on an intent passed to
// Engine.SetRule; it is never part of a stored rule's identity and is
// never persisted.
type Rule struct {
	Action   Action
	Protocol Protocol
	DPort    string
	Dst      string
	SPort    string
	Src      string
	V6       bool
	Remove   bool
}

// anywhere returns the "match any address" CIDR for the rule's family.
func (r Rule) anywhere() string {
	if r.V6 {
		return AnywhereV6
	}
	return AnywhereV4
}

// sameTupleFields reports whether a and b agree on protocol, dport, sport,
// dst, src and v6 — everything that identifies a tuple independent of
// action.
func sameTupleFields(a, b Rule) bool {
	return a.Protocol == b.Protocol &&
		a.DPort == b.DPort &&
		a.SPort == b.SPort &&
		a.Dst == b.Dst &&
		a.Src == b.Src &&
		a.V6 == b.V6
}

// Equals reports whether a and b are identical rules: same tuple and same
// action.
func Equals(a, b Rule) bool {
	return sameTupleFields(a, b) && a.Action == b.Action
}

// SameTuple reports whether a and b describe the same six-tuple,
// regardless of action.
func SameTuple(a, b Rule) bool {
	return sameTupleFields(a, b)
}

// MatchResult is the outcome of comparing two rules, driving the engine's
// insert/replace/delete decision in Engine.SetRule.
type MatchResult int

const (
	// MatchEqual means a and b are the same rule (same tuple, same action).
	MatchEqual MatchResult = 0
	// MatchSameTupleDifferentAction means a and b share a tuple but differ
	// in action — the administrator re-issued the tuple expecting
	// replacement, not duplication.
	MatchSameTupleDifferentAction MatchResult = -1
	// MatchDifferent means a and b are unrelated rules.
	MatchDifferent MatchResult = 1
)

// Match compares a (an existing rule) against b (a candidate/target rule)
// and reports which of the three relations holds.
func Match(a, b Rule) MatchResult {
	switch {
	case Equals(a, b):
		return MatchEqual
	case SameTuple(a, b):
		return MatchSameTupleDifferentAction
	default:
		return MatchDifferent
	}
}

var actionTarget = map[Action]string{
	ActionAllow: "ACCEPT",
	ActionDeny:  "DROP",
	ActionLimit: "LIMIT", // expanded by the restore-script generator
}

// Target returns the iptables jump target for the rule's action.
func (r Rule) Target() string {
	t, ok := actionTarget[r.Action]
	if !ok {
		return "DROP"
	}
	return t
}

// protocolArg returns the -p argument for the rule: "all" for ProtocolAny
// (later expanded or stripped by the restore-script generator), else the
// protocol name itself.
func (r Rule) protocolArg() string {
	if r.Protocol == ProtocolAny {
		return "all"
	}
	return string(r.Protocol)
}

// FormatRule renders the packet-filter argument fragment for one rule,
// without chain or jump-action expansion (that belongs to the
// restore-script generator). Source/destination/port clauses carrying the
// family's default "anywhere" value are omitted, matching the original
// implementation's format_rule and spec scenario 2
// (`-p tcp --dport 22 -j ACCEPT` for a 0.0.0.0/0-scoped rule).
func (r Rule) FormatRule() string {
	s := "-p " + r.protocolArg() + " "
	if r.DPort != AnyPort {
		s += "--dport " + r.DPort + " "
	}
	if r.Src != r.anywhere() {
		s += "-s " + r.Src + " "
	}
	if r.SPort != AnyPort {
		s += "--sport " + r.SPort + " "
	}
	if r.Dst != r.anywhere() {
		s += "-d " + r.Dst + " "
	}
	s += "-j " + r.Target()
	return s
}

// TupleFields returns the six canonical persistence fields in fixed order:
// action protocol dport dst sport src.
func (r Rule) TupleFields() [6]string {
	return [6]string{
		string(r.Action), string(r.Protocol), r.DPort, r.Dst, r.SPort, r.Src,
	}
}

// TupleLine renders the six-field tuple line body (without the
// "### tuple ###" marker prefix).
func (r Rule) TupleLine() string {
	f := r.TupleFields()
	return fmt.Sprintf("%s %s %s %s %s %s", f[0], f[1], f[2], f[3], f[4], f[5])
}

// RuleList is an ordered sequence of rules for one address family. Order
// is significant: it is first-match semantics in the kernel chain.
type RuleList []Rule

// Clone returns an independent copy of the list; Rule is a value type so a
// slice copy suffices.
func (rl RuleList) Clone() RuleList {
	out := make(RuleList, len(rl))
	copy(out, rl)
	return out
}

// ParseAction parses one of the six-tuple's action field values.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionAllow, ActionDeny, ActionLimit:
		return Action(s), nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// ParseProtocol parses one of the six-tuple's protocol field values.
func ParseProtocol(s string) (Protocol, error) {
	switch Protocol(s) {
	case ProtocolAny, ProtocolTCP, ProtocolUDP:
		return Protocol(s), nil
	default:
		return "", fmt.Errorf("unknown protocol %q", s)
	}
}

// RuleFromTuple builds a Rule from the six canonical persistence fields
// (action protocol dport dst sport src), validating the enumerated fields.
// Used by the rule file codec when reading a tuple line back.
func RuleFromTuple(fields [6]string, v6 bool) (Rule, error) {
	action, err := ParseAction(fields[0])
	if err != nil {
		return Rule{}, err
	}
	proto, err := ParseProtocol(fields[1])
	if err != nil {
		return Rule{}, err
	}
	if action == ActionLimit && v6 {
		return Rule{}, fmt.Errorf("limit action is not valid for ipv6")
	}
	return Rule{
		Action:   action,
		Protocol: proto,
		DPort:    fields[2],
		Dst:      fields[3],
		SPort:    fields[4],
		Src:      fields[5],
		V6:       v6,
	}, nil
}
