package firewall

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/ufwgo/internal/logging"
)

// fakeRunner simulates kernel chains that already exist (so SetRule takes
// the incremental path) and records every invocation for assertions.
type fakeRunner struct {
	calls       []string
	chainsReady bool
}

func (f *fakeRunner) Run(_ context.Context, argv []string) (int, string, error) {
	f.calls = append(f.calls, strings.Join(argv, " "))
	if len(argv) >= 2 && argv[1] == "-L" {
		if f.chainsReady {
			return 0, "Chain ufw-user-input (1 references)\n", nil
		}
		return 1, "", nil
	}
	return 0, "", nil
}

func (f *fakeRunner) Pipe(_ context.Context, producer, consumer []string) (int, string, error) {
	f.calls = append(f.calls, strings.Join(producer, " ")+" | "+strings.Join(consumer, " "))
	return 0, "", nil
}

func newTestEngine(t *testing.T, runner Runner) *Engine {
	t.Helper()
	paths := DefaultPaths(t.TempDir())
	return &Engine{
		Paths:    paths,
		Binaries: DefaultBinaries(),
		Runner:   runner,
		Log:      logging.Default(),
	}
}

func TestSetRuleAppendsNewRule(t *testing.T) {
	runner := &fakeRunner{chainsReady: true}
	e := newTestEngine(t, runner)

	r := Rule{Action: ActionAllow, Protocol: ProtocolTCP, DPort: "22", SPort: AnyPort, Src: AnywhereV4, Dst: AnywhereV4}
	msg, err := e.SetRule(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "Rule added", msg)

	stored, _, err := ReadRules(e.Paths.Rules, false)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, Equals(stored[0], r), "stored rules = %+v, want [%+v]", stored, r)

	foundAppend := false
	returnDeleteIdx, returnAddIdx := -1, -1
	for i, c := range runner.calls {
		if strings.Contains(c, "-A ufw-user-input") && !strings.Contains(c, "RETURN") {
			foundAppend = true
		}
		if strings.Contains(c, "-D ufw-user-input -j RETURN") {
			returnDeleteIdx = i
		}
		if strings.Contains(c, "-A ufw-user-input -j RETURN") {
			returnAddIdx = i
		}
	}
	assert.True(t, foundAppend, "expected an incremental -A call, calls = %v", runner.calls)
	require.NotEqual(t, -1, returnDeleteIdx, "expected the trailing RETURN to be removed, calls = %v", runner.calls)
	require.NotEqual(t, -1, returnAddIdx, "expected the trailing RETURN to be re-added, calls = %v", runner.calls)
	assert.Greater(t, returnAddIdx, returnDeleteIdx, "RETURN re-add must come after its delete, calls = %v", runner.calls)
}

func TestSetRuleSkipsDuplicateAdd(t *testing.T) {
	runner := &fakeRunner{chainsReady: true}
	e := newTestEngine(t, runner)
	r := Rule{Action: ActionAllow, Protocol: ProtocolTCP, DPort: "22", SPort: AnyPort, Src: AnywhereV4, Dst: AnywhereV4}

	_, err := e.SetRule(context.Background(), r)
	require.NoError(t, err)
	runner.calls = nil

	msg, err := e.SetRule(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "Skipping added rule (rule already exists)", msg)
	assert.Empty(t, runner.calls, "expected no kernel calls for a no-op")
}

func TestSetRuleSubstitutesOnActionChange(t *testing.T) {
	runner := &fakeRunner{chainsReady: true}
	e := newTestEngine(t, runner)
	allow := Rule{Action: ActionAllow, Protocol: ProtocolTCP, DPort: "22", SPort: AnyPort, Src: AnywhereV4, Dst: AnywhereV4}
	deny := allow
	deny.Action = ActionDeny

	_, err := e.SetRule(context.Background(), allow)
	require.NoError(t, err)
	runner.calls = nil

	msg, err := e.SetRule(context.Background(), deny)
	require.NoError(t, err)
	assert.Equal(t, "Rule updated", msg)

	stored, _, err := ReadRules(e.Paths.Rules, false)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, ActionDeny, stored[0].Action)

	foundReload := false
	for _, c := range runner.calls {
		if strings.Contains(c, "iptables-restore") {
			foundReload = true
		}
	}
	assert.True(t, foundReload, "expected a reload (iptables-restore) call for a substitution, calls = %v", runner.calls)
}

func TestSetRuleDeleteNonexistentReportsNoOp(t *testing.T) {
	runner := &fakeRunner{chainsReady: true}
	e := newTestEngine(t, runner)
	r := Rule{Action: ActionAllow, Protocol: ProtocolTCP, DPort: "22", SPort: AnyPort, Src: AnywhereV4, Dst: AnywhereV4, Remove: true}

	msg, err := e.SetRule(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "Could not delete non-existent rule", msg)
}

func TestSetRuleRejectsIPv6Limit(t *testing.T) {
	e := newTestEngine(t, &fakeRunner{chainsReady: true})
	r := Rule{Action: ActionLimit, Protocol: ProtocolTCP, DPort: "22", SPort: AnyPort, Src: AnywhereV6, Dst: AnywhereV6, V6: true}

	_, err := e.SetRule(context.Background(), r)
	assert.Error(t, err)
}

func TestSetRuleReloadsWhenChainsMissing(t *testing.T) {
	runner := &fakeRunner{chainsReady: false}
	e := newTestEngine(t, runner)
	r := Rule{Action: ActionAllow, Protocol: ProtocolTCP, DPort: "22", SPort: AnyPort, Src: AnywhereV4, Dst: AnywhereV4}

	_, err := e.SetRule(context.Background(), r)
	require.NoError(t, err)

	foundReload := false
	for _, c := range runner.calls {
		if strings.Contains(c, "iptables-restore") {
			foundReload = true
		}
	}
	assert.True(t, foundReload, "expected a reload when chains are missing, calls = %v", runner.calls)
}

func TestDefaultPolicyRoundTrip(t *testing.T) {
	runner := &fakeRunner{chainsReady: true}
	e := newTestEngine(t, runner)

	got, err := e.GetDefaultPolicy()
	require.NoError(t, err)
	assert.Equal(t, "deny", got)

	_, err = e.SetDefaultPolicy(context.Background(), "allow")
	require.NoError(t, err)

	got, err = e.GetDefaultPolicy()
	require.NoError(t, err)
	assert.Equal(t, "allow", got)
}
