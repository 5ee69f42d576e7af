// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package httpapi exposes a read-only status surface over HTTP, for
// monitoring systems that would rather poll an endpoint than shell out to
// the CLI. It never accepts a mutation: every rule/policy/log change
// still goes through internal/firewall.Engine from the CLI only.
// Grounded on the teacher's internal/api/ebpf_handlers.go
// RegisterRoutes(router *mux.Router) convention.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grimm.is/ufwgo/internal/firewall"
	"grimm.is/ufwgo/internal/logging"
)

// Server holds the dependencies the status handlers need.
type Server struct {
	Engine *firewall.Engine
	Log    *logging.Logger
}

// New builds a Server backed by engine.
func New(engine *firewall.Engine) *Server {
	return &Server{Engine: engine, Log: logging.Default().With("component", "httpapi")}
}

// RegisterRoutes attaches the status surface to router, matching the
// teacher's pattern of a single method call wiring every route for one
// subsystem.
func (s *Server) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/rules/{family}", s.handleRules).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	report, err := s.Engine.GetStatus(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(report))
}

type ruleResponse struct {
	Family string        `json:"family"`
	Rules  []ruleSummary `json:"rules"`
}

type ruleSummary struct {
	Action   string `json:"action"`
	Protocol string `json:"protocol"`
	DPort    string `json:"dport"`
	Dst      string `json:"dst"`
	SPort    string `json:"sport"`
	Src      string `json:"src"`
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	family := mux.Vars(r)["family"]
	var v6 bool
	switch family {
	case "v4":
		v6 = false
	case "v6":
		v6 = true
	default:
		s.writeError(w, http.StatusNotFound, errUnknownFamily(family))
		return
	}

	rules, warnings, err := firewall.ReadRules(s.Engine.Paths.RulesFile(v6), v6)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	for _, warn := range warnings {
		s.Log.Warn("discarding unparsable entry while serving status", "source", warn.Source, "reason", warn.Reason)
	}

	resp := ruleResponse{Family: family}
	for _, rule := range rules {
		resp.Rules = append(resp.Rules, ruleSummary{
			Action:   string(rule.Action),
			Protocol: string(rule.Protocol),
			DPort:    rule.DPort,
			Dst:      rule.Dst,
			SPort:    rule.SPort,
			Src:      rule.Src,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

type errUnknownFamily string

func (e errUnknownFamily) Error() string { return "unknown address family: " + string(e) }
