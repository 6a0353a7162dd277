package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"ion-mining-dashboard/internal/mempool"
	"ion-mining-dashboard/internal/store"
)

// ErrUnknownAddress marks a lookup for an address id not in the wallet.
var ErrUnknownAddress = errors.New("unknown address")

// Namespace is the local store document for watched addresses.
const Namespace = "ionMiningWallet"

// Address is one watched BTC address with its last fetched stats.
type Address struct {
	ID          string  `json:"id"`
	Address     string  `json:"address"`
	Label       string  `json:"label"`
	DateAdded   string  `json:"dateAdded"`
	LastBalance float64 `json:"lastBalance"`
	LastTxCount int     `json:"lastTxCount"`
	LastFetched string  `json:"lastFetched,omitempty"`
}

// Data is the persisted wallet document.
type Data struct {
	Version   int       `json:"_v"`
	Addresses []Address `json:"addresses"`
}

// Module owns the wallet document and refreshes balances through the
// mempool client.
type Module struct {
	store  *store.Store
	client *mempool.Client
}

func NewModule(s *store.Store, client *mempool.Client) *Module {
	return &Module{store: s, client: client}
}

func defaultData() Data {
	return Data{Version: 1, Addresses: []Address{}}
}

func (m *Module) Load() Data {
	var data Data
	ok, err := m.store.GetJSON(Namespace, &data)
	if err != nil || !ok || data.Addresses == nil {
		return defaultData()
	}
	return data
}

func (m *Module) Save(data Data) error {
	return m.store.PutJSON(Namespace, data)
}

func (m *Module) AddAddress(address, label string) (Address, error) {
	if label == "" {
		if len(address) > 12 {
			label = address[:12] + "..."
		} else {
			label = address
		}
	}
	entry := Address{
		ID:        "addr_" + uuid.NewString(),
		Address:   address,
		Label:     label,
		DateAdded: time.Now().UTC().Format(time.RFC3339),
	}
	data := m.Load()
	data.Addresses = append(data.Addresses, entry)
	return entry, m.Save(data)
}

func (m *Module) RemoveAddress(id string) error {
	data := m.Load()
	filtered := data.Addresses[:0]
	for _, a := range data.Addresses {
		if a.ID != id {
			filtered = append(filtered, a)
		}
	}
	data.Addresses = filtered
	return m.Save(data)
}

// Refresh fetches current stats for every watched address. A failed
// address keeps its last known values.
func (m *Module) Refresh() error {
	data := m.Load()
	now := time.Now().UTC().Format(time.RFC3339)

	for i := range data.Addresses {
		stats, err := m.client.Address(data.Addresses[i].Address)
		if err != nil {
			continue
		}
		data.Addresses[i].LastBalance = stats.Balance
		data.Addresses[i].LastTxCount = stats.TxCount
		data.Addresses[i].LastFetched = now
	}
	return m.Save(data)
}

// Transaction is one address history entry, trimmed for the dashboard.
type Transaction struct {
	TxID      string  `json:"txId"`
	Amount    float64 `json:"amount"` // BTC received at this address
	Confirmed bool    `json:"confirmed"`
	Timestamp int64   `json:"timestamp,omitempty"` // unix millis
}

// Transactions fetches recent history for one watched address, capped
// at limit. Amounts sum the outputs paying the address itself.
func (m *Module) Transactions(id string, limit int) ([]Transaction, error) {
	var addr string
	for _, a := range m.Load().Addresses {
		if a.ID == id {
			addr = a.Address
			break
		}
	}
	if addr == "" {
		return nil, ErrUnknownAddress
	}

	txs, err := m.client.AddressTxs(addr)
	if err != nil {
		return nil, err
	}

	history := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		var received float64
		for _, out := range tx.Vout {
			if out.ScriptPubKeyAddress == addr {
				received += float64(out.Value) / 1e8
			}
		}
		entry := Transaction{TxID: tx.TxID, Amount: received, Confirmed: tx.Status.Confirmed}
		if tx.Status.BlockTime > 0 {
			entry.Timestamp = tx.Status.BlockTime * 1000
		}
		history = append(history, entry)
		if len(history) == limit {
			break
		}
	}
	return history, nil
}

// TotalBalance sums the last known balances across addresses.
func (m *Module) TotalBalance() float64 {
	var total float64
	for _, a := range m.Load().Addresses {
		total += a.LastBalance
	}
	return total
}
