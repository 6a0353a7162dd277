package electricity

import (
	"github.com/google/uuid"

	"ion-mining-dashboard/internal/store"
)

// Namespace is the local store document for electricity bills.
const Namespace = "ionMiningElectricity"

// Bill is one recorded electricity bill.
type Bill struct {
	ID         string  `json:"id"`
	Month      string  `json:"month"` // YYYY-MM
	KWh        float64 `json:"kwh"`
	CostUSD    float64 `json:"costUsd"`
	RatePerKWh float64 `json:"ratePerKwh,omitempty"`
	Notes      string  `json:"notes,omitempty"`
}

// Data is the persisted electricity document.
type Data struct {
	Version int    `json:"_v"`
	Bills   []Bill `json:"bills"`
}

// Module owns the electricity document.
type Module struct {
	store *store.Store
}

func NewModule(s *store.Store) *Module {
	return &Module{store: s}
}

func defaultData() Data {
	return Data{Version: 1, Bills: []Bill{}}
}

func (m *Module) Load() Data {
	var data Data
	ok, err := m.store.GetJSON(Namespace, &data)
	if err != nil || !ok || data.Bills == nil {
		return defaultData()
	}
	return data
}

func (m *Module) Save(data Data) error {
	return m.store.PutJSON(Namespace, data)
}

func (m *Module) AddBill(bill Bill) (Bill, error) {
	bill.ID = "bill_" + uuid.NewString()
	if bill.RatePerKWh == 0 && bill.KWh > 0 {
		bill.RatePerKWh = bill.CostUSD / bill.KWh
	}
	data := m.Load()
	data.Bills = append(data.Bills, bill)
	return bill, m.Save(data)
}

func (m *Module) RemoveBill(id string) error {
	data := m.Load()
	filtered := data.Bills[:0]
	for _, b := range data.Bills {
		if b.ID != id {
			filtered = append(filtered, b)
		}
	}
	data.Bills = filtered
	return m.Save(data)
}

// TotalCost sums the recorded bills in USD.
func (m *Module) TotalCost() float64 {
	var total float64
	for _, b := range m.Load().Bills {
		total += b.CostUSD
	}
	return total
}

// AverageRate is the kWh-weighted average electricity rate.
func (m *Module) AverageRate() float64 {
	var cost, kwh float64
	for _, b := range m.Load().Bills {
		cost += b.CostUSD
		kwh += b.KWh
	}
	if kwh == 0 {
		return 0
	}
	return cost / kwh
}
