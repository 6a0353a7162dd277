package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.Get("ionMiningFleet")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put("ionMiningFleet", `{"miners":[]}`))
	body, ok, err := s.Get("ionMiningFleet")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"miners":[]}`, body)

	// Overwrite is wholesale.
	require.NoError(t, s.Put("ionMiningFleet", `{"miners":[{"id":"m1"}]}`))
	body, _, err = s.Get("ionMiningFleet")
	require.NoError(t, err)
	assert.Equal(t, `{"miners":[{"id":"m1"}]}`, body)
}

func TestGetRecordTracksWriteTime(t *testing.T) {
	s := openTestStore(t)

	_, _, ok, err := s.GetRecord("ionMiningWallet")
	require.NoError(t, err)
	assert.False(t, ok)

	before := time.Now().UTC().Add(-time.Second)
	require.NoError(t, s.Put("ionMiningWallet", `{"addresses":[]}`))

	body, updatedAt, ok, err := s.GetRecord("ionMiningWallet")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"addresses":[]}`, body)
	assert.True(t, updatedAt.After(before))
}

func TestJSONRoundTrip(t *testing.T) {
	s := openTestStore(t)

	type doc struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}

	var out doc
	ok, err := s.GetJSON("ionMiningSettings", &out)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.PutJSON("ionMiningSettings", doc{Name: "rate", Value: 0.12}))
	ok, err = s.GetJSON("ionMiningSettings", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, doc{Name: "rate", Value: 0.12}, out)
}

func TestGetJSONReturnsDecodeError(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put("ionMiningSettings", `not json`))

	var out map[string]interface{}
	ok, err := s.GetJSON("ionMiningSettings", &out)
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestNamespaces(t *testing.T) {
	s := openTestStore(t)

	namespaces, err := s.Namespaces()
	require.NoError(t, err)
	assert.Empty(t, namespaces)

	require.NoError(t, s.Put("ionMiningAlerts", `{}`))
	require.NoError(t, s.Put("ionMiningFleet", `{}`))

	namespaces, err = s.Namespaces()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ionMiningAlerts", "ionMiningFleet"}, namespaces)
}

func TestMetricsSaveAndLoad(t *testing.T) {
	s := openTestStore(t)

	// Missing metric reads as zero.
	value, err := s.GetMetric("check_cycles_total")
	require.NoError(t, err)
	assert.Zero(t, value)

	require.NoError(t, s.SaveMetric("check_cycles_total", "", "", 42))
	value, err = s.GetMetric("check_cycles_total")
	require.NoError(t, err)
	assert.Equal(t, float64(42), value)

	// INSERT OR REPLACE semantics.
	require.NoError(t, s.SaveMetric("check_cycles_total", "", "", 43))
	value, err = s.GetMetric("check_cycles_total")
	require.NoError(t, err)
	assert.Equal(t, float64(43), value)
}

func TestLabeledMetrics(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveMetric("alerts_fired_total", "type", "miner_offline", 3))
	require.NoError(t, s.SaveMetric("alerts_fired_total", "type", "price_high", 1))

	labeled, err := s.GetMetricsWithLabels("alerts_fired_total")
	require.NoError(t, err)
	require.Contains(t, labeled, "type")
	assert.Equal(t, float64(3), labeled["type"]["miner_offline"])
	assert.Equal(t, float64(1), labeled["type"]["price_high"])
}
