package firewall

import (
	"strings"
	"testing"
)

func TestExpandFormattedRule(t *testing.T) {
	t.Run("PortRuleWithAllSplitsIntoTcpAndUdp", func(t *testing.T) {
		out := ExpandFormattedRule("-A ufw-user-input -p all --dport 53 -j ACCEPT")
		if len(out) != 2 {
			t.Fatalf("got %d lines, want 2: %v", len(out), out)
		}
		if out[0] != "-A ufw-user-input -p tcp --dport 53 -j ACCEPT" {
			t.Errorf("out[0] = %q", out[0])
		}
		if out[1] != "-A ufw-user-input -p udp --dport 53 -j ACCEPT" {
			t.Errorf("out[1] = %q", out[1])
		}
	})

	t.Run("AllWithNoPortStripsProtocol", func(t *testing.T) {
		out := ExpandFormattedRule("-A ufw-user-input -p all -s 10.0.0.0/8 -j DROP")
		if len(out) != 1 {
			t.Fatalf("got %d lines, want 1: %v", len(out), out)
		}
		want := "-A ufw-user-input -s 10.0.0.0/8 -j DROP"
		if out[0] != want {
			t.Errorf("out[0] = %q, want %q", out[0], want)
		}
	})

	t.Run("LimitExpandsToSetAndUpdatePair", func(t *testing.T) {
		out := ExpandFormattedRule("-A ufw-user-input -p tcp --dport 22 -j LIMIT")
		if len(out) != 2 {
			t.Fatalf("got %d lines, want 2: %v", len(out), out)
		}
		if out[0] != "-A ufw-user-input -p tcp --dport 22 -m state --state NEW -m recent --set" {
			t.Errorf("out[0] = %q", out[0])
		}
		want1 := "-A ufw-user-input -p tcp --dport 22 -m state --state NEW -m recent --update --seconds 30 --hitcount 6 -j ufw-user-limit"
		if out[1] != want1 {
			t.Errorf("out[1] = %q, want %q", out[1], want1)
		}
	})

	t.Run("OrdinaryRulePassesThroughUnchanged", func(t *testing.T) {
		line := "-A ufw-user-input -p tcp --dport 22 -j ACCEPT"
		out := ExpandFormattedRule(line)
		if len(out) != 1 || out[0] != line {
			t.Errorf("got %v, want [%q]", out, line)
		}
	})
}

func TestBuildRestoreScriptLayout(t *testing.T) {
	rules := RuleList{
		{Action: ActionAllow, Protocol: ProtocolTCP, DPort: "22", SPort: AnyPort, Src: AnywhereV4, Dst: AnywhereV4},
	}
	script := BuildRestoreScript(rules, false)

	wantChains := []string{":ufw-user-input - [0:0]", ":ufw-user-output - [0:0]", ":ufw-user-forward - [0:0]", ":ufw-user-limit - [0:0]"}
	for _, w := range wantChains {
		if !strings.Contains(script, w) {
			t.Errorf("script missing chain declaration %q:\n%s", w, script)
		}
	}
	if !strings.Contains(script, "### tuple ### allow tcp 22 "+AnywhereV4+" any "+AnywhereV4) {
		t.Errorf("script missing tuple comment:\n%s", script)
	}
	if !strings.Contains(script, "-A ufw-user-input -p tcp --dport 22 -j ACCEPT") {
		t.Errorf("script missing expanded rule line:\n%s", script)
	}
	if !strings.Contains(script, "COMMIT") {
		t.Errorf("script missing COMMIT:\n%s", script)
	}
}

func TestBuildRestoreScriptV6HasNoLimitChain(t *testing.T) {
	script := BuildRestoreScript(RuleList{}, true)
	if strings.Contains(script, "ufw6-user-limit") {
		t.Errorf("v6 script should not declare a limit chain:\n%s", script)
	}
}

