// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package firewall

import (
	"fmt"
	"strings"

	ufwerrors "grimm.is/ufwgo/internal/errors"
)

// ParseChainListing parses the output of an `iptables -L -n`/`ip6tables -L
// -n` chain listing for one address family's user-input chain back into
// rule summaries, per spec.md §4.4.
//
// Lines outside the named chain's block (a preceding or following "Chain
// ..." header) are ignored, as is the "target prot opt source
// destination" column header row. LOG and RETURN lines are valid entries
// in the chain but aren't rules the administrator added — they're
// silently skipped, not warned about.
func ParseChainListing(listing string, chain string, v6 bool) (RuleList, []ufwerrors.ParseWarning, error) {
	var rules RuleList
	var warnings []ufwerrors.ParseWarning

	inChain := false
	for _, line := range strings.Split(listing, "\n") {
		switch {
		case strings.HasPrefix(line, "Chain "+chain):
			inChain = true
			continue
		case strings.HasPrefix(line, "Chain "):
			inChain = false
			continue
		case strings.HasPrefix(line, "target"):
			continue
		case !inChain:
			continue
		case strings.TrimSpace(line) == "":
			continue
		}

		rule, warn, skip := parseStatusLine(line, v6)
		if skip {
			continue
		}
		if warn != nil {
			warnings = append(warnings, *warn)
			continue
		}
		rules = append(rules, rule)
	}
	return rules, warnings, nil
}

// parseStatusLine decodes a single rule line. skip is true for lines that
// are valid but not rules (LOG, RETURN, unrecognized targets) and carry no
// warning. warn is non-nil for lines that looked like a rule but couldn't
// be decoded.
func parseStatusLine(line string, v6 bool) (rule Rule, warn *ufwerrors.ParseWarning, skip bool) {
	fields := strings.Fields(line)

	if v6 {
		// ip6tables' opt column is blank, unlike iptables': insert a
		// synthetic placeholder so downstream field indices line up with
		// the iptables layout spec.md §4.4 assumes.
		if len(fields) >= 2 {
			withOpt := make([]string, 0, len(fields)+1)
			withOpt = append(withOpt, fields[:2]...)
			withOpt = append(withOpt, "--")
			withOpt = append(withOpt, fields[2:]...)
			fields = withOpt
		}
	}

	if len(fields) < 5 {
		return Rule{}, &ufwerrors.ParseWarning{Source: "<status>", Line: line, Reason: "too few fields"}, false
	}

	if v6 && len(fields[4]) > 3 {
		// ip6tables kernel-version workaround (Debian bug #464244): a long
		// destination CIDR can run directly into the following protocol
		// token with no separating space. Guarded to v6 listings only,
		// since IPv4 CIDRs never reach the width where this collision
		// occurs.
		tail := fields[4][len(fields[4])-3:]
		if tail == "tcp" || tail == "udp" {
			rest := append([]string{tail}, fields[5:]...)
			fields = append(fields[:5:5], rest...)
			fields[4] = fields[4][:len(fields[4])-3]
		}
	}

	r := Rule{V6: v6, DPort: AnyPort, SPort: AnyPort}
	switch fields[0] {
	case "ACCEPT":
		r.Action = ActionAllow
	case "DROP":
		r.Action = ActionDeny
	case "ufw-user-limit":
		r.Action = ActionLimit
	default:
		return Rule{}, nil, true // LOG, RETURN, or anything else we don't surface
	}

	switch fields[1] {
	case "tcp":
		r.Protocol = ProtocolTCP
	case "udp":
		r.Protocol = ProtocolUDP
	case "0", "all":
		r.Protocol = ProtocolAny
	default:
		r.Protocol = Protocol("UNKNOWN")
	}

	r.Src = fields[3]
	r.Dst = fields[4]

	if len(fields) > 6 {
		for _, f := range fields[6:min(8, len(fields))] {
			switch {
			case strings.HasPrefix(f, "dpt:"):
				r.DPort = strings.TrimPrefix(f, "dpt:")
			case strings.HasPrefix(f, "spt:"):
				r.SPort = strings.TrimPrefix(f, "spt:")
			}
		}
	}

	return r, nil, false
}

// location renders one side (src or dst) of a status table row: the bare
// address, the bare port, "addr port:proto", or the collapsed "Anywhere" /
// "Anywhere (v6)" form when there's no restriction at all.
func location(addr, port string, proto Protocol, v6 bool) string {
	anywhere := AnywhereV4
	anywhereLabel := "Anywhere"
	if v6 {
		anywhere = AnywhereV6
		anywhereLabel = "Anywhere (v6)"
	}

	if port == AnyPort && addr == anywhere {
		return anywhereLabel
	}

	s := ""
	if addr != anywhere {
		s = addr
	}
	if port != AnyPort {
		if s == "" {
			s = port
		} else {
			s += " " + port
		}
		if proto != ProtocolAny {
			s += ":" + string(proto)
		}
	}
	return s
}

// FormatStatusTable renders the decoded rule table the way spec.md §4.4
// describes: a "To  Action  From" header followed by one fixed-width row
// per rule, or an empty string if there are no rules to show.
func FormatStatusTable(rules RuleList) string {
	if len(rules) == 0 {
		return ""
	}
	var b strings.Builder
	for _, r := range rules {
		to := location(r.Dst, r.DPort, r.Protocol, r.V6)
		from := location(r.Src, r.SPort, r.Protocol, r.V6)
		b.WriteString(fmt.Sprintf("%-26s %-8s%s\n", to, strings.ToUpper(string(r.Action)), from))
	}

	header := fmt.Sprintf("\n\n%-26s %-8s%s\n", "To", "Action", "From")
	header += fmt.Sprintf("%-26s %-8s%s\n", "--", "------", "----")
	return header + b.String()
}
