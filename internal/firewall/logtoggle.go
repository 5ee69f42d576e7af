// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package firewall

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"

	ufwerrors "grimm.is/ufwgo/internal/errors"
)

var (
	logLinePattern        = regexp.MustCompile(`^-.*\sLOG\s`)
	commentedLogLinePattern = regexp.MustCompile(`^#.*\sLOG\s`)
)

// GetLogLevel scans every rule and rules-fragment file for the logging-off
// comment marker, per spec.md §4.5.5: the marker's presence in *any*
// scanned file is the sole signal that logging is off.
func GetLogLevel(files []string) (level int, message string, err error) {
	for _, f := range files {
		present, rerr := fileContainsMarker(f)
		if rerr != nil {
			return 1, "", rerr
		}
		if present {
			return 0, "Logging: off", nil
		}
	}
	return 1, "Logging: on", nil
}

func fileContainsMarker(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, ufwerrors.Wrapf(err, ufwerrors.KindIO, "reading %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), CommentMarker) {
			return true, nil
		}
	}
	return false, scanner.Err()
}

// SetLogLevel toggles `-j LOG` lines across every rule and rules-fragment
// file by prepending ("off") or stripping ("on") the fixed comment marker,
// per spec.md §4.5.5. LOG lines are preserved byte-for-byte under the
// marker so toggling back restores them exactly; this is why the toggle
// rewrites the marker rather than deleting/re-synthesizing the line.
//
// A file that doesn't exist yet (e.g. a minimal test fixture missing
// before6.rules) is silently skipped rather than treated as an error.
func SetLogLevel(files []string, level string, dryrun bool, w io.Writer) (string, error) {
	for _, path := range files {
		if err := toggleLoggingInFile(path, level, dryrun, w); err != nil {
			return "", err
		}
	}
	if level == "off" {
		return "Logging disabled", nil
	}
	return "Logging enabled", nil
}

func toggleLoggingInFile(path, level string, dryrun bool, w io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return ufwerrors.Wrapf(err, ufwerrors.KindIO, "reading %s", path)
	}

	var out strings.Builder
	for _, line := range strings.SplitAfter(string(data), "\n") {
		if line == "" {
			continue
		}
		switch {
		case level == "off" && logLinePattern.MatchString(line):
			out.WriteString(CommentMarker + " " + line)
		case level == "on" && commentedLogLinePattern.MatchString(line):
			out.WriteString(strings.TrimPrefix(line, CommentMarker+" "))
		default:
			out.WriteString(line)
		}
	}

	if dryrun {
		if w != nil {
			_, _ = io.WriteString(w, out.String())
		}
		return nil
	}

	tf, terr := OpenForWrite(path)
	if terr != nil {
		return ufwerrors.Wrapf(terr, ufwerrors.KindIO, "opening %s for write", path)
	}
	if _, werr := io.WriteString(tf, out.String()); werr != nil {
		_ = tf.Abort()
		return ufwerrors.Wrapf(werr, ufwerrors.KindIO, "writing %s", path)
	}
	return tf.Commit()
}
