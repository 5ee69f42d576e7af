// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command ufwgoctl is the administrator-facing CLI: it translates
// allow/deny/limit/status/enable/disable requests into rule-engine calls
// against the local iptables/ip6tables state.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"grimm.is/ufwgo/internal/audit"
	"grimm.is/ufwgo/internal/bootconfig"
	"grimm.is/ufwgo/internal/firewall"
	"grimm.is/ufwgo/internal/httpapi"
	"grimm.is/ufwgo/internal/logging"
)

func main() {
	configPath := flag.String("config", "/etc/ufwgo/ufwgo.hcl", "path to the bootstrap config file")
	dryRun := flag.Bool("dry-run", false, "print the packet-filter commands instead of running them")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := bootconfig.Load(*configPath)
	if err != nil {
		logging.Error("loading bootstrap config", "err", err)
		os.Exit(1)
	}
	if *dryRun {
		cfg.DryRun = true
	}

	auditPath := cfg.StateDir + "/audit.log"
	auditFile, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		logging.Warn("could not open audit log, continuing without one", "path", auditPath, "err", err)
	}
	var auditLog *audit.Logger
	if auditFile != nil {
		defer auditFile.Close()
		auditLog = audit.New(auditFile)
	}

	var runner firewall.Runner = firewall.ExecRunner{}
	if cfg.DryRun {
		runner = firewall.DryRunRunner{W: os.Stdout}
	}
	engine := firewall.NewEngine(cfg.ResolvePaths(), cfg.ResolveBinaries(), runner, firewall.NewMetrics(prometheus.DefaultRegisterer), auditLog)
	if cfg.DryRun {
		engine.DryRun = true
		engine.Writer = os.Stdout
	}

	ctx := context.Background()
	if err := dispatch(ctx, engine, cfg, args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, engine *firewall.Engine, cfg bootconfig.Config, args []string) error {
	switch args[0] {
	case "enable":
		return engine.Start(ctx, ipv6Available())
	case "disable":
		return engine.Stop(ctx, ipv6Available())
	case "status":
		report, err := engine.GetStatus(ctx)
		if err != nil {
			return err
		}
		fmt.Println(report)
		return nil
	case "allow", "deny", "limit":
		return runRuleCommand(ctx, engine, args)
	case "delete":
		return runDeleteCommand(ctx, engine, args[1:])
	case "default":
		return runDefaultCommand(ctx, engine, args[1:])
	case "logging":
		return runLoggingCommand(engine, args[1:])
	case "serve":
		return serveHTTP(engine, cfg)
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: ufwgoctl [-config path] [-dry-run] <command> [args]

commands:
  enable                         load rules and start enforcing
  disable                        set permissive policy and stop enforcing
  status                         print the current rule set and policy
  allow|deny|limit <rule-spec>   add a rule, e.g. "allow 22/tcp" or "deny from 10.0.0.0/8"
  delete allow|deny|limit <rule-spec>
  default allow|deny|reject
  logging on|off
  serve                          run the read-only HTTP status surface`)
}

func serveHTTP(engine *firewall.Engine, cfg bootconfig.Config) error {
	if !cfg.HTTP.Enabled {
		return fmt.Errorf("http surface is disabled in config (set http { enabled = true })")
	}
	router := mux.NewRouter()
	httpapi.New(engine).RegisterRoutes(router)
	logging.Info("http status surface listening", "addr", cfg.HTTP.Listen)
	return http.ListenAndServe(cfg.HTTP.Listen, router)
}

// ipv6Available reports whether the kernel exposes an IPv6 stack at all,
// per spec.md's IPv6-loopback-only fallback: a host with /proc/sys/net/ipv6
// absent has no v6 chains to load.
func ipv6Available() bool {
	_, err := os.Stat("/proc/sys/net/ipv6")
	return err == nil
}
