package fleet

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ion-mining-dashboard/internal/store"
)

func newModule(t *testing.T) *Module {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewModule(db)
}

func TestLoadDefaultsOnEmptyStore(t *testing.T) {
	m := newModule(t)
	data := m.Load()
	assert.Equal(t, 1, data.Version)
	assert.NotNil(t, data.Miners)
	assert.Empty(t, data.Miners)
}

func TestAddAndRemoveMiner(t *testing.T) {
	m := newModule(t)

	added, err := m.AddMiner(Miner{Model: "Antminer S21", Count: 3, Hashrate: 200, Power: 3.5})
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)

	assert.Equal(t, float64(600), m.TotalHashrate())

	require.NoError(t, m.RemoveMiner(added.ID))
	assert.Zero(t, m.TotalHashrate())
}

func TestAddMinerFillsSpecsFromCatalog(t *testing.T) {
	m := newModule(t)

	// Model-only entry gets hashrate and power from the catalog.
	added, err := m.AddMiner(Miner{Model: "Antminer S21 Pro", Count: 2})
	require.NoError(t, err)
	assert.Equal(t, float64(234), added.Hashrate)
	assert.Equal(t, 3.51, added.Power)

	// Explicit values always win over the catalog.
	added, err = m.AddMiner(Miner{Model: "Antminer S21 Pro", Count: 1, Hashrate: 220, Power: 3.4})
	require.NoError(t, err)
	assert.Equal(t, float64(220), added.Hashrate)
	assert.Equal(t, 3.4, added.Power)

	// Unknown models stay as entered.
	added, err = m.AddMiner(Miner{Model: "Homebrew Rig", Count: 1})
	require.NoError(t, err)
	assert.Zero(t, added.Hashrate)
}

func TestSettingsRoundTrip(t *testing.T) {
	m := newModule(t)

	require.NoError(t, m.UpdateSettings(Settings{F2Pool: PoolSettings{
		Enabled:   true,
		WorkerURL: "https://api.f2pool.com/bitcoin",
		Username:  "ionmining",
	}}))

	settings := m.GetSettings()
	assert.True(t, settings.F2Pool.Enabled)
	assert.Equal(t, "ionmining", settings.F2Pool.Username)

	// Settings updates must not disturb the miner list.
	_, err := m.AddMiner(Miner{Model: "Antminer T21", Count: 1, Hashrate: 190})
	require.NoError(t, err)
	require.NoError(t, m.UpdateSettings(Settings{}))
	assert.Len(t, m.Load().Miners, 1)
}
