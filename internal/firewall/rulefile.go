// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package firewall

import (
	"bufio"
	"io"
	"os"
	"strings"

	ufwerrors "grimm.is/ufwgo/internal/errors"
	"grimm.is/ufwgo/internal/logging"
)

const tupleMarker = "### tuple ###"

// ReadRules reads the persistent rule file for one address family, per
// spec.md §4.2: every line matching the tuple marker is decoded into a
// Rule; every other line is ignored (it is regenerated on write). A
// missing file is treated as an empty, freshly-installed rule list rather
// than an error — there is nothing to round-trip yet.
//
// Malformed tuple lines never abort the read: they are collected as
// ParseWarnings and skipped, per spec.md §7's "never fatal" rule for
// parse warnings.
func ReadRules(path string, v6 bool) (RuleList, []ufwerrors.ParseWarning, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RuleList{}, nil, nil
		}
		return nil, nil, ufwerrors.Wrapf(err, ufwerrors.KindIO, "reading rule file %s", path)
	}
	defer f.Close()

	return parseRules(f, path, v6)
}

func parseRules(r io.Reader, source string, v6 bool) (RuleList, []ufwerrors.ParseWarning, error) {
	var rules RuleList
	var warnings []ufwerrors.ParseWarning

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(strings.TrimSpace(line), tupleMarker) {
			continue
		}
		body := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), tupleMarker))
		fields := strings.Fields(body)
		if len(fields) != 6 {
			w := ufwerrors.ParseWarning{Source: source, Line: line, Reason: "malformed tuple (bad field count)"}
			warnings = append(warnings, w)
			logging.Warn(w.String())
			continue
		}

		var tuple [6]string
		copy(tuple[:], fields)
		rule, err := RuleFromTuple(tuple, v6)
		if err != nil {
			w := ufwerrors.ParseWarning{Source: source, Line: line, Reason: err.Error()}
			warnings = append(warnings, w)
			logging.Warn(w.String())
			continue
		}
		rules = append(rules, rule)
	}
	if err := scanner.Err(); err != nil {
		return nil, warnings, ufwerrors.Wrapf(err, ufwerrors.KindIO, "reading rule file %s", source)
	}
	return rules, warnings, nil
}

// WriteRules atomically replaces the rule file for one address family with
// the fully-rendered restore script for rules, per spec.md §4.2/§4.6. In
// dry-run mode the rendered content is written to w instead of the file.
func WriteRules(path string, v6 bool, rules RuleList, dryrun bool, w io.Writer) error {
	content := BuildRestoreScript(rules, v6)

	if dryrun {
		if w != nil {
			_, _ = io.WriteString(w, content)
		}
		return nil
	}

	tf, err := OpenForWrite(path)
	if err != nil {
		return ufwerrors.Wrapf(err, ufwerrors.KindIO, "opening %s for write", path)
	}
	if _, err := io.WriteString(tf, content); err != nil {
		_ = tf.Abort()
		return ufwerrors.Wrapf(err, ufwerrors.KindIO, "writing %s", path)
	}
	if err := tf.Commit(); err != nil {
		return ufwerrors.Wrapf(err, ufwerrors.KindIO, "committing %s", path)
	}
	return nil
}
