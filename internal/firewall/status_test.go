package firewall

import (
	"strings"
	"testing"
)

const sampleV4Listing = `Chain ufw-user-input (1 references)
target     prot opt source               destination
ACCEPT     tcp  --  0.0.0.0/0            0.0.0.0/0            tcp dpt:22
DROP       udp  --  10.0.0.0/8           0.0.0.0/0            udp dpt:53
LOG        all  --  0.0.0.0/0            0.0.0.0/0            limit: avg 3/min burst 5
RETURN     all  --  0.0.0.0/0            0.0.0.0/0

Chain ufw-user-output (1 references)
target     prot opt source               destination
RETURN     all  --  0.0.0.0/0            0.0.0.0/0
`

func TestParseChainListing(t *testing.T) {
	rules, warnings, err := ParseChainListing(sampleV4Listing, "ufw-user-input", false)
	if err != nil {
		t.Fatalf("ParseChainListing() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2 (LOG/RETURN/out-of-chain lines excluded): %+v", len(rules), rules)
	}

	if rules[0].Action != ActionAllow || rules[0].Protocol != ProtocolTCP || rules[0].DPort != "22" {
		t.Errorf("rules[0] = %+v", rules[0])
	}
	if rules[1].Action != ActionDeny || rules[1].Protocol != ProtocolUDP || rules[1].Src != "10.0.0.0/8" {
		t.Errorf("rules[1] = %+v", rules[1])
	}
}

func TestFormatStatusTableCollapsesAnywhere(t *testing.T) {
	rules := RuleList{
		{Action: ActionAllow, Protocol: ProtocolTCP, DPort: "22", SPort: AnyPort, Src: AnywhereV4, Dst: AnywhereV4},
	}
	table := FormatStatusTable(rules)
	if table == "" {
		t.Fatal("FormatStatusTable() = \"\", want a rendered table")
	}
	if !strings.Contains(table, "ALLOW") {
		t.Errorf("table missing ALLOW action:\n%s", table)
	}
	if !strings.Contains(table, "Anywhere") {
		t.Errorf("table missing collapsed Anywhere source:\n%s", table)
	}
}

func TestFormatStatusTableEmpty(t *testing.T) {
	if got := FormatStatusTable(nil); got != "" {
		t.Errorf("FormatStatusTable(nil) = %q, want \"\"", got)
	}
}

