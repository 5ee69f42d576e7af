package firewall

import (
	"strings"
	"testing"
)

func TestFormatRuleOmitsDefaultClauses(t *testing.T) {
	t.Run("PortOnlyRuleHasNoAddressClauses", func(t *testing.T) {
		r := Rule{
			Action:   ActionAllow,
			Protocol: ProtocolTCP,
			DPort:    "22",
			SPort:    AnyPort,
			Src:      AnywhereV4,
			Dst:      AnywhereV4,
		}
		got := r.FormatRule()
		want := "-p tcp --dport 22 -j ACCEPT"
		if got != want {
			t.Errorf("FormatRule() = %q, want %q", got, want)
		}
	})

	t.Run("RestrictedSourceKeepsSClause", func(t *testing.T) {
		r := Rule{
			Action:   ActionDeny,
			Protocol: ProtocolTCP,
			DPort:    "80",
			SPort:    AnyPort,
			Src:      "192.168.1.0/24",
			Dst:      AnywhereV4,
		}
		got := r.FormatRule()
		if !strings.Contains(got, "-s 192.168.1.0/24") {
			t.Errorf("FormatRule() = %q, want it to contain -s clause", got)
		}
		if strings.Contains(got, "-d ") {
			t.Errorf("FormatRule() = %q, want no -d clause for anywhere dst", got)
		}
	})

	t.Run("V6AnywhereUsesV6Default", func(t *testing.T) {
		r := Rule{
			Action:   ActionAllow,
			Protocol: ProtocolTCP,
			DPort:    "443",
			SPort:    AnyPort,
			Src:      AnywhereV6,
			Dst:      AnywhereV6,
			V6:       true,
		}
		got := r.FormatRule()
		want := "-p tcp --dport 443 -j ACCEPT"
		if got != want {
			t.Errorf("FormatRule() = %q, want %q", got, want)
		}
	})

	t.Run("AnyProtocolRendersAsAll", func(t *testing.T) {
		r := Rule{Action: ActionDeny, Protocol: ProtocolAny, DPort: AnyPort, SPort: AnyPort, Src: AnywhereV4, Dst: AnywhereV4}
		got := r.FormatRule()
		want := "-p all -j DROP"
		if got != want {
			t.Errorf("FormatRule() = %q, want %q", got, want)
		}
	})
}

func TestMatch(t *testing.T) {
	base := Rule{Action: ActionAllow, Protocol: ProtocolTCP, DPort: "22", SPort: AnyPort, Src: AnywhereV4, Dst: AnywhereV4}

	t.Run("EqualRules", func(t *testing.T) {
		if got := Match(base, base); got != MatchEqual {
			t.Errorf("Match() = %v, want MatchEqual", got)
		}
	})

	t.Run("SameTupleDifferentAction", func(t *testing.T) {
		other := base
		other.Action = ActionDeny
		if got := Match(base, other); got != MatchSameTupleDifferentAction {
			t.Errorf("Match() = %v, want MatchSameTupleDifferentAction", got)
		}
	})

	t.Run("DifferentTuple", func(t *testing.T) {
		other := base
		other.DPort = "80"
		if got := Match(base, other); got != MatchDifferent {
			t.Errorf("Match() = %v, want MatchDifferent", got)
		}
	})
}

func TestRuleFromTupleRejectsV6Limit(t *testing.T) {
	fields := [6]string{"limit", "tcp", "22", AnywhereV6, AnyPort, AnywhereV6}
	if _, err := RuleFromTuple(fields, true); err == nil {
		t.Error("RuleFromTuple() with limit action on v6 = nil error, want error")
	}
}

func TestRuleFromTupleRoundTrip(t *testing.T) {
	r := Rule{Action: ActionAllow, Protocol: ProtocolUDP, DPort: "53", SPort: AnyPort, Src: "10.0.0.0/8", Dst: AnywhereV4}
	back, err := RuleFromTuple(r.TupleFields(), false)
	if err != nil {
		t.Fatalf("RuleFromTuple() error = %v", err)
	}
	if !Equals(r, back) {
		t.Errorf("round trip = %+v, want %+v", back, r)
	}
}
