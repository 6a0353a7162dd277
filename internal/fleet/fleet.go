package fleet

import (
	"github.com/google/uuid"

	"ion-mining-dashboard/internal/minerdb"
	"ion-mining-dashboard/internal/store"
)

// Namespace is the local store document for fleet configuration.
const Namespace = "ionMiningFleet"

// PoolSettings configures the F2Pool worker endpoint for the fleet.
type PoolSettings struct {
	Enabled   bool   `json:"enabled"`
	WorkerURL string `json:"workerUrl"`
	Username  string `json:"username"`
}

// Settings holds pool credentials and fleet-wide options.
type Settings struct {
	F2Pool PoolSettings `json:"f2pool"`
}

// Miner is one hardware entry in the fleet.
type Miner struct {
	ID       string  `json:"id"`
	Model    string  `json:"model"`
	Count    int     `json:"count"`
	Hashrate float64 `json:"hashrate"` // TH/s per unit
	Power    float64 `json:"power"`    // kW per unit
}

// Data is the persisted fleet document.
type Data struct {
	Version  int      `json:"_v"`
	Miners   []Miner  `json:"miners"`
	Settings Settings `json:"settings"`
}

// Module owns the fleet document in the local store.
type Module struct {
	store *store.Store
}

func NewModule(s *store.Store) *Module {
	return &Module{store: s}
}

func defaultData() Data {
	return Data{Version: 1, Miners: []Miner{}}
}

// Load reads the fleet document, falling back to defaults when it is
// missing or malformed.
func (m *Module) Load() Data {
	var data Data
	ok, err := m.store.GetJSON(Namespace, &data)
	if err != nil || !ok {
		return defaultData()
	}
	if data.Miners == nil {
		data.Miners = []Miner{}
	}
	return data
}

func (m *Module) Save(data Data) error {
	return m.store.PutJSON(Namespace, data)
}

// GetSettings returns the fleet settings; the alert engine's miner
// check reads the pool credentials from here.
func (m *Module) GetSettings() Settings {
	return m.Load().Settings
}

func (m *Module) UpdateSettings(settings Settings) error {
	data := m.Load()
	data.Settings = settings
	return m.Save(data)
}

// AddMiner stores a new fleet entry. Hashrate and power left at zero
// are filled from the hardware catalog when the model is known.
func (m *Module) AddMiner(miner Miner) (Miner, error) {
	miner.ID = uuid.NewString()
	if spec, ok := minerdb.FindByModel(miner.Model); ok {
		if miner.Hashrate == 0 {
			miner.Hashrate = spec.Hashrate
		}
		if miner.Power == 0 {
			miner.Power = spec.Power
		}
	}
	data := m.Load()
	data.Miners = append(data.Miners, miner)
	return miner, m.Save(data)
}

func (m *Module) RemoveMiner(id string) error {
	data := m.Load()
	filtered := data.Miners[:0]
	for _, miner := range data.Miners {
		if miner.ID != id {
			filtered = append(filtered, miner)
		}
	}
	data.Miners = filtered
	return m.Save(data)
}

// TotalHashrate is the nominal fleet hashrate in TH/s.
func (m *Module) TotalHashrate() float64 {
	var total float64
	for _, miner := range m.Load().Miners {
		total += miner.Hashrate * float64(miner.Count)
	}
	return total
}
