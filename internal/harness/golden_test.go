package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Scenarios(t *testing.T) {
	for _, name := range []string{
		"pooled_release",
		"refund_after_cancel",
		"unauthorized_release",
		"pause_and_fees",
	} {
		t.Run(name, func(t *testing.T) {
			sc, err := LoadScenario(filepath.Join("../../testdata/scenarios", name+".yaml"))
			require.NoError(t, err)
			require.Equal(t, name, sc.Name)

			result, err := RunWithGolden(t, sc)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestMarshalTrace_Deterministic(t *testing.T) {
	sc, err := LoadScenario("../../testdata/scenarios/pooled_release.yaml")
	require.NoError(t, err)

	first, err := Run(sc)
	require.NoError(t, err)
	second, err := Run(sc)
	require.NoError(t, err)

	a, err := MarshalTrace(sc.Name, first)
	require.NoError(t, err)
	b, err := MarshalTrace(sc.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.NotContains(t, string(a), "account-hash-")
}
