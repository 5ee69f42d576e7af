// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package firewall

import "strings"

// ExpandFormattedRule expands one "-A <chain> <rule-fragment>" line into
// one or more concrete packet-filter lines, per spec.md §4.3:
//
//  1. A rule carrying "-p all " together with a port clause applies to
//     both transports: it is duplicated once per transport (tcp, udp).
//  2. A rule carrying "-p all " with no port clause has no way to express
//     "any transport" as a single iptables match, so "-p all " is
//     stripped entirely.
//  3. A line carrying "-j LIMIT" (a placeholder jump, never a real
//     iptables target) is replaced by two lines that implement ufw's
//     fixed "6 connections in 30 seconds" rate-limit policy: a recent-list
//     "--set" line followed by a "--update" line that jumps to
//     ufw-user-limit when the threshold is exceeded.
//
// This is a structured transformer over the formatted line rather than
// the original implementation's regex rewriting (spec.md §9); the two
// transformations are independent and are applied in the order above.
func ExpandFormattedRule(line string) []string {
	var snippets []string
	switch {
	case strings.Contains(line, "-p all ") && strings.Contains(line, "port "):
		snippets = []string{
			strings.Replace(line, "-p all ", "-p tcp ", 1),
			strings.Replace(line, "-p all ", "-p udp ", 1),
		}
	case strings.Contains(line, "-p all "):
		snippets = []string{strings.Replace(line, "-p all ", "", 1)}
	default:
		snippets = []string{line}
	}

	var out []string
	for _, s := range snippets {
		if strings.Contains(s, " -j LIMIT") {
			setLine := strings.Replace(s, " -j LIMIT", " -m state --state NEW -m recent --set", 1)
			updateLine := strings.Replace(s, " -j LIMIT",
				" -m state --state NEW -m recent --update --seconds 30 --hitcount 6 -j ufw-user-limit", 1)
			out = append(out, setLine, updateLine)
		} else {
			out = append(out, s)
		}
	}
	return out
}

// ExpandRule renders rule as its "-A <prefix>-user-input ..." line(s),
// fully expanded. This is the unit the rule engine uses for both
// incremental apply/delete commands (spec.md §4.5.1) and for assembling a
// full restore script (below).
func ExpandRule(r Rule) []string {
	base := "-A " + InputChain(r.V6) + " " + r.FormatRule()
	return ExpandFormattedRule(base)
}

// BuildRestoreScript assembles the complete packet-filter restore script
// for one address family, per the file layout in spec.md §4.2: the fixed
// chain skeleton, each stored rule (preceded by its tuple comment, so the
// same file doubles as the persistent rule store), the trailing RETURN
// jumps, the rate-limit chain body (IPv4 only), and a final COMMIT.
func BuildRestoreScript(rules RuleList, v6 bool) string {
	prefix := ChainPrefix(v6)
	var b strings.Builder

	b.WriteString("*filter\n")
	for _, chain := range UserChains(v6) {
		b.WriteString(":" + chain + " - [0:0]\n")
	}
	b.WriteString("### RULES ###\n")

	for _, r := range rules {
		b.WriteString("\n### tuple ### " + r.TupleLine() + "\n")
		for _, line := range ExpandRule(r) {
			b.WriteString(line + "\n")
		}
	}

	b.WriteString("\n### END RULES ###\n")
	b.WriteString("-A " + prefix + "-user-input -j RETURN\n")
	b.WriteString("-A " + prefix + "-user-output -j RETURN\n")
	b.WriteString("-A " + prefix + "-user-forward -j RETURN\n")

	if !v6 {
		b.WriteString("-A " + prefix + "-user-limit -m limit --limit 3/minute -j LOG --log-prefix \"[UFW LIMIT]: \"\n")
		b.WriteString("-A " + prefix + "-user-limit -j DROP\n")
	}

	b.WriteString("COMMIT\n")
	return b.String()
}
