package firewall

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRulesThenReadRulesRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "user.rules")

	rules := RuleList{
		{Action: ActionAllow, Protocol: ProtocolTCP, DPort: "22", SPort: AnyPort, Src: AnywhereV4, Dst: AnywhereV4},
		{Action: ActionDeny, Protocol: ProtocolUDP, DPort: AnyPort, SPort: AnyPort, Src: "203.0.113.0/24", Dst: AnywhereV4},
	}

	require.NoError(t, WriteRules(path, false, rules, false, nil))

	got, warnings, err := ReadRules(path, false)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, got, len(rules))
	for i := range rules {
		assert.True(t, Equals(got[i], rules[i]), "rule %d = %+v, want %+v", i, got[i], rules[i])
	}
}

func TestReadRulesMissingFileIsEmptyNotError(t *testing.T) {
	rules, warnings, err := ReadRules(filepath.Join(t.TempDir(), "does-not-exist.rules"), false)
	require.NoError(t, err)
	assert.Empty(t, rules)
	assert.Empty(t, warnings)
}

func TestReadRulesCollectsWarningsForMalformedTuple(t *testing.T) {
	r := strings.NewReader("### tuple ### allow tcp 22\n### tuple ### allow tcp 22 " + AnywhereV4 + " any " + AnywhereV4 + "\n")
	rules, warnings, err := parseRules(r, "<test>", false)
	require.NoError(t, err)
	require.Len(t, rules, 1, "one malformed line skipped")
	assert.Len(t, warnings, 1)
}

func TestSetAndReadDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defaults")

	require.NoError(t, SetDefault(path, DefaultInputPolicyKey, "deny", false, nil))
	got, err := ReadDefault(path, DefaultInputPolicyKey)
	require.NoError(t, err)
	assert.Equal(t, "deny", got)

	require.NoError(t, SetDefault(path, DefaultInputPolicyKey, "allow", false, nil))
	got, err = ReadDefault(path, DefaultInputPolicyKey)
	require.NoError(t, err)
	assert.Equal(t, "allow", got)
}

func TestReadDefaultMissingKeyOrFile(t *testing.T) {
	dir := t.TempDir()

	got, err := ReadDefault(filepath.Join(dir, "absent"), DefaultInputPolicyKey)
	require.NoError(t, err)
	assert.Empty(t, got)

	path := filepath.Join(dir, "defaults")
	require.NoError(t, SetDefault(path, "OTHER_KEY", "x", false, nil))
	got, err = ReadDefault(path, DefaultInputPolicyKey)
	require.NoError(t, err)
	assert.Empty(t, got)
}
