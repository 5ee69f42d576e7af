// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package firewall

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	ufwerrors "grimm.is/ufwgo/internal/errors"
)

// DefaultInputPolicyKey is the only key the core reads/writes in the
// defaults file, per spec.md §6. Other keys in that file are preserved
// verbatim but otherwise opaque to the engine.
const DefaultInputPolicyKey = "DEFAULT_INPUT_POLICY"

// ReadDefault reads the value of key from a shell-sourceable
// `KEY="VALUE"` defaults file. A missing file or missing key both return
// ("", nil) — the caller decides what that means (e.g. "deny" as the
// conservative default).
func ReadDefault(path, key string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", ufwerrors.Wrapf(err, ufwerrors.KindIO, "reading defaults file %s", path)
	}
	defer f.Close()

	prefix := key + "="
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		return strings.Trim(strings.TrimPrefix(line, prefix), `"`), nil
	}
	if err := scanner.Err(); err != nil {
		return "", ufwerrors.Wrapf(err, ufwerrors.KindIO, "reading defaults file %s", path)
	}
	return "", nil
}

// SetDefault rewrites key's value in the defaults file, preserving every
// other line verbatim and appending a new KEY="VALUE" line if key wasn't
// already present. The replacement is atomic (spec.md §4.6); in dry-run
// mode the would-be content is written to w instead of the file.
func SetDefault(path, key, value string, dryrun bool, w io.Writer) error {
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return ufwerrors.Wrapf(err, ufwerrors.KindIO, "reading defaults file %s", path)
	}

	prefix := key + "="
	replacement := fmt.Sprintf(`%s="%s"`, key, value)
	found := false

	var lines []string
	if len(existing) > 0 {
		lines = strings.Split(strings.TrimRight(string(existing), "\n"), "\n")
	}
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), prefix) {
			lines[i] = replacement
			found = true
		}
	}
	if !found {
		lines = append(lines, replacement)
	}
	content := strings.Join(lines, "\n") + "\n"

	if dryrun {
		if w != nil {
			_, _ = io.WriteString(w, content)
		}
		return nil
	}

	tf, err := OpenForWrite(path)
	if err != nil {
		return ufwerrors.Wrapf(err, ufwerrors.KindIO, "opening defaults file %s", path)
	}
	if _, err := io.WriteString(tf, content); err != nil {
		_ = tf.Abort()
		return ufwerrors.Wrapf(err, ufwerrors.KindIO, "writing defaults file %s", path)
	}
	return tf.Commit()
}
