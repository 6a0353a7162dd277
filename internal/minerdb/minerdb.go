package minerdb

import "strings"

// Spec is one catalog entry: hashrate in TH/s, power in kW, cost in
// USD, efficiency in J/TH.
type Spec struct {
	Model      string  `json:"model"`
	Hashrate   float64 `json:"hashrate"`
	Power      float64 `json:"power"`
	Cost       float64 `json:"cost"`
	Efficiency float64 `json:"efficiency"`
}

var database = []Spec{
	// Bitmain Antminer S21 series
	{Model: "Antminer S21 XP Hyd.", Hashrate: 473, Power: 5.676, Cost: 13500, Efficiency: 12.0},
	{Model: "Antminer S21+ Hyd.", Hashrate: 395, Power: 5.925, Cost: 2649, Efficiency: 15.0},
	{Model: "Antminer S21 Hyd.", Hashrate: 335, Power: 5.360, Cost: 9000, Efficiency: 16.0},
	{Model: "Antminer S21e Hyd.", Hashrate: 332, Power: 5.644, Cost: 2070, Efficiency: 17.0},
	{Model: "Antminer S21 XP", Hashrate: 270, Power: 3.645, Cost: 3010, Efficiency: 13.5},
	{Model: "Antminer S21 Pro", Hashrate: 234, Power: 3.510, Cost: 4260, Efficiency: 15.0},
	{Model: "Antminer S21+", Hashrate: 216, Power: 3.564, Cost: 2204, Efficiency: 16.5},
	{Model: "Antminer S21", Hashrate: 200, Power: 3.500, Cost: 3200, Efficiency: 17.5},

	// Bitmain Antminer T21 series
	{Model: "Antminer T21", Hashrate: 190, Power: 3.610, Cost: 2394, Efficiency: 19.0},

	// Bitmain Antminer S19 series
	{Model: "Antminer S19 XP Hyd.", Hashrate: 257, Power: 5.345, Cost: 6000, Efficiency: 20.8},
	{Model: "Antminer S19 XP", Hashrate: 140, Power: 3.010, Cost: 2500, Efficiency: 21.5},
	{Model: "Antminer S19k Pro", Hashrate: 120, Power: 2.760, Cost: 3000, Efficiency: 23.0},
	{Model: "Antminer S19j Pro+", Hashrate: 120, Power: 3.300, Cost: 2400, Efficiency: 27.5},
	{Model: "Antminer S19 Pro", Hashrate: 110, Power: 3.250, Cost: 2200, Efficiency: 29.5},

	// MicroBT Whatsminer M60/M66 series
	{Model: "Whatsminer M66S++", Hashrate: 348, Power: 5.394, Cost: 12500, Efficiency: 15.5},
	{Model: "Whatsminer M66S+", Hashrate: 318, Power: 5.406, Cost: 11500, Efficiency: 17.0},
	{Model: "Whatsminer M66S", Hashrate: 298, Power: 5.513, Cost: 10500, Efficiency: 18.5},
	{Model: "Whatsminer M60S++", Hashrate: 220, Power: 3.410, Cost: 6500, Efficiency: 15.5},
	{Model: "Whatsminer M60S", Hashrate: 186, Power: 3.441, Cost: 5250, Efficiency: 18.5},
	{Model: "Whatsminer M60", Hashrate: 172, Power: 3.422, Cost: 4650, Efficiency: 19.9},

	// MicroBT Whatsminer M50 series
	{Model: "Whatsminer M56S++", Hashrate: 254, Power: 5.588, Cost: 8000, Efficiency: 22.0},
	{Model: "Whatsminer M50S++", Hashrate: 160, Power: 3.520, Cost: 4000, Efficiency: 22.0},
	{Model: "Whatsminer M50S", Hashrate: 128, Power: 3.328, Cost: 3150, Efficiency: 26.0},

	// Canaan Avalon series
	{Model: "Avalon A1566I", Hashrate: 261, Power: 4.500, Cost: 4385, Efficiency: 17.2},
	{Model: "Avalon A15 Pro", Hashrate: 221, Power: 3.662, Cost: 3403, Efficiency: 16.6},
	{Model: "Avalon A1566", Hashrate: 185, Power: 3.420, Cost: 2276, Efficiency: 18.5},
	{Model: "Avalon A1466", Hashrate: 150, Power: 3.230, Cost: 2750, Efficiency: 21.5},
	{Model: "Avalon A1446", Hashrate: 135, Power: 3.310, Cost: 2450, Efficiency: 24.5},
}

// Search returns catalog entries whose model contains the query,
// case-insensitive. An empty query matches nothing.
func Search(query string) []Spec {
	if query == "" {
		return nil
	}
	q := strings.ToLower(query)
	var matches []Spec
	for _, spec := range database {
		if strings.Contains(strings.ToLower(spec.Model), q) {
			matches = append(matches, spec)
		}
	}
	return matches
}

// GetAll returns a copy of the whole catalog.
func GetAll() []Spec {
	return append([]Spec(nil), database...)
}

// FindByModel returns the entry with the exact model name.
func FindByModel(model string) (Spec, bool) {
	for _, spec := range database {
		if spec.Model == model {
			return spec, true
		}
	}
	return Spec{}, false
}
