// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package main

import (
	"context"
	"fmt"
	"strings"

	"grimm.is/ufwgo/internal/firewall"
)

// parseRuleSpec accepts the two rule-spec shapes the CLI supports:
//
//   - a bare port, optionally with /proto: "22", "22/tcp", "53/udp"
//   - a keyword form: "[from <addr>] [to <addr>] [port <port>] [proto <tcp|udp>]"
//
// Either form may be prefixed with "v6" to target the IPv6 table; the
// default is IPv4. Omitted fields take the engine's "any"/"anywhere"
// defaults.
func parseRuleSpec(action firewall.Action, fields []string) (firewall.Rule, error) {
	r := firewall.Rule{
		Action:   action,
		Protocol: firewall.ProtocolAny,
		DPort:    firewall.AnyPort,
		SPort:    firewall.AnyPort,
		Dst:      firewall.AnywhereV4,
		Src:      firewall.AnywhereV4,
	}

	if len(fields) > 0 && fields[0] == "v6" {
		r.V6 = true
		r.Dst = firewall.AnywhereV6
		r.Src = firewall.AnywhereV6
		fields = fields[1:]
	}

	if len(fields) == 0 {
		return firewall.Rule{}, fmt.Errorf("empty rule spec")
	}

	if !isKeyword(fields[0]) {
		if len(fields) != 1 {
			return firewall.Rule{}, fmt.Errorf("unexpected trailing tokens after port shorthand: %v", fields[1:])
		}
		port, proto, ok := strings.Cut(fields[0], "/")
		r.DPort = port
		if ok {
			p, err := firewall.ParseProtocol(proto)
			if err != nil {
				return firewall.Rule{}, err
			}
			r.Protocol = p
		}
		return r, finishRule(r)
	}

	for i := 0; i < len(fields); {
		switch fields[i] {
		case "from":
			if i+1 >= len(fields) {
				return firewall.Rule{}, fmt.Errorf("'from' requires an address")
			}
			r.Src = fields[i+1]
			i += 2
		case "to":
			if i+1 >= len(fields) {
				return firewall.Rule{}, fmt.Errorf("'to' requires an address")
			}
			r.Dst = fields[i+1]
			i += 2
		case "port":
			if i+1 >= len(fields) {
				return firewall.Rule{}, fmt.Errorf("'port' requires a value")
			}
			r.DPort = fields[i+1]
			i += 2
		case "proto":
			if i+1 >= len(fields) {
				return firewall.Rule{}, fmt.Errorf("'proto' requires a value")
			}
			p, err := firewall.ParseProtocol(fields[i+1])
			if err != nil {
				return firewall.Rule{}, err
			}
			r.Protocol = p
			i += 2
		default:
			return firewall.Rule{}, fmt.Errorf("unrecognized rule-spec keyword %q", fields[i])
		}
	}
	return r, finishRule(r)
}

func isKeyword(s string) bool {
	switch s {
	case "from", "to", "port", "proto":
		return true
	default:
		return false
	}
}

func finishRule(r firewall.Rule) error {
	if r.Action == firewall.ActionLimit && r.V6 {
		return fmt.Errorf("limit is not supported for ipv6")
	}
	return nil
}

func runRuleCommand(ctx context.Context, engine *firewall.Engine, args []string) error {
	action := firewall.Action(args[0])
	r, err := parseRuleSpec(action, args[1:])
	if err != nil {
		return err
	}
	msg, err := engine.SetRule(ctx, r)
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func runDeleteCommand(ctx context.Context, engine *firewall.Engine, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: delete allow|deny|limit <rule-spec>")
	}
	action := firewall.Action(args[0])
	r, err := parseRuleSpec(action, args[1:])
	if err != nil {
		return err
	}
	r.Remove = true
	msg, err := engine.SetRule(ctx, r)
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func runDefaultCommand(ctx context.Context, engine *firewall.Engine, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: default allow|deny|reject")
	}
	msg, err := engine.SetDefaultPolicy(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func runLoggingCommand(engine *firewall.Engine, args []string) error {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		return fmt.Errorf("usage: logging on|off")
	}
	msg, err := engine.SetLogLevel(args[0])
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}
