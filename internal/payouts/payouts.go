package payouts

import (
	"math"
	"time"

	"github.com/google/uuid"

	"ion-mining-dashboard/internal/fleet"
	"ion-mining-dashboard/internal/pool"
	"ion-mining-dashboard/internal/store"
)

// Namespace is the local store document for the payout ledger.
const Namespace = "ionMiningPayouts"

// Payout is one received payout, imported from the pool or entered by
// hand.
type Payout struct {
	ID        string  `json:"id"`
	Date      string  `json:"date"` // YYYY-MM-DD
	BTCAmount float64 `json:"btcAmount"`
	BTCPrice  float64 `json:"btcPrice"`
	USDValue  float64 `json:"usdValue"`
	TxHash    string  `json:"txHash,omitempty"`
	Notes     string  `json:"notes,omitempty"`
}

// Snapshot is one daily earnings sample.
type Snapshot struct {
	Date        string  `json:"date"`
	BTCEarned   float64 `json:"btcEarned"`
	BTCPrice    float64 `json:"btcPrice"`
	Balance     float64 `json:"balance"`
	TotalIncome float64 `json:"totalIncome"`
}

// Data is the persisted payout document.
type Data struct {
	Version          int        `json:"_v"`
	Snapshots        []Snapshot `json:"snapshots"`
	Payouts          []Payout   `json:"payouts"`
	LastSnapshotDate string     `json:"lastSnapshotDate,omitempty"`
}

// Module owns the payout ledger.
type Module struct {
	store *store.Store
	pool  *pool.Client
	fleet *fleet.Module
}

func NewModule(s *store.Store, poolClient *pool.Client, fleetModule *fleet.Module) *Module {
	return &Module{store: s, pool: poolClient, fleet: fleetModule}
}

func defaultData() Data {
	return Data{Version: 1, Snapshots: []Snapshot{}, Payouts: []Payout{}}
}

func (m *Module) Load() Data {
	var data Data
	ok, err := m.store.GetJSON(Namespace, &data)
	if err != nil || !ok || data.Payouts == nil {
		return defaultData()
	}
	return data
}

func (m *Module) Save(data Data) error {
	return m.store.PutJSON(Namespace, data)
}

// AddSnapshot appends a daily sample and records its date so the next
// snapshot check can skip days already logged.
func (m *Module) AddSnapshot(snapshot Snapshot) error {
	data := m.Load()
	data.Snapshots = append(data.Snapshots, snapshot)
	data.LastSnapshotDate = snapshot.Date
	return m.Save(data)
}

// CheckDailySnapshot logs at most one earnings sample per UTC day,
// summing the ledger and today's payouts at the current price. Returns
// whether a snapshot was written.
func (m *Module) CheckDailySnapshot(btcPrice float64) (bool, error) {
	today := time.Now().UTC().Format("2006-01-02")
	data := m.Load()
	if data.LastSnapshotDate == today {
		return false, nil
	}

	var earnedToday, total float64
	for _, p := range data.Payouts {
		total += p.BTCAmount
		if p.Date == today {
			earnedToday += p.BTCAmount
		}
	}

	return true, m.AddSnapshot(Snapshot{
		Date:        today,
		BTCEarned:   earnedToday,
		BTCPrice:    btcPrice,
		Balance:     total,
		TotalIncome: total * btcPrice,
	})
}

func (m *Module) AddPayout(payout Payout) (Payout, error) {
	payout.ID = "payout_" + uuid.NewString()
	data := m.Load()
	data.Payouts = append(data.Payouts, payout)
	return payout, m.Save(data)
}

func (m *Module) RemovePayout(id string) error {
	data := m.Load()
	filtered := data.Payouts[:0]
	for _, p := range data.Payouts {
		if p.ID != id {
			filtered = append(filtered, p)
		}
	}
	data.Payouts = filtered
	return m.Save(data)
}

func (m *Module) HasPayoutWithTxHash(txHash string) bool {
	if txHash == "" {
		return false
	}
	for _, p := range m.Load().Payouts {
		if p.TxHash == txHash {
			return true
		}
	}
	return false
}

// SyncPoolPayouts imports new payout transactions from the pool,
// deduplicated by transaction hash. Returns the number added.
func (m *Module) SyncPoolPayouts(btcPrice float64) (int, error) {
	settings := m.fleet.GetSettings()
	if !settings.F2Pool.Enabled {
		return 0, nil
	}

	transactions, err := m.pool.Payouts(settings.F2Pool.WorkerURL, settings.F2Pool.Username)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, tx := range transactions {
		if tx.PayoutExtra == nil || tx.PayoutExtra.TxID == "" {
			continue
		}
		if m.HasPayoutWithTxHash(tx.PayoutExtra.TxID) {
			continue
		}

		ts := tx.PayoutExtra.PaidTime
		if ts == 0 {
			ts = tx.CreatedAt
		}

		amount := float64(tx.PayoutExtra.Value)
		if amount == 0 {
			amount = math.Abs(float64(tx.ChangedBalance))
		}
		if amount <= 0 {
			continue
		}

		if _, err := m.AddPayout(Payout{
			Date:      time.Unix(ts, 0).UTC().Format("2006-01-02"),
			BTCAmount: amount,
			BTCPrice:  btcPrice,
			USDValue:  amount * btcPrice,
			TxHash:    tx.PayoutExtra.TxID,
			Notes:     "F2Pool auto-sync",
		}); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// TotalBTC sums the ledger.
func (m *Module) TotalBTC() float64 {
	var total float64
	for _, p := range m.Load().Payouts {
		total += p.BTCAmount
	}
	return total
}
