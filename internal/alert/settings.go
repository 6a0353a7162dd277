package alert

import (
	"ion-mining-dashboard/internal/types"
)

// currentVersion is the persisted document schema version.
const currentVersion = 1

// DefaultSettings are applied on first run and whenever the persisted
// document fails validation. Price alerts stay off until the user sets
// thresholds.
func DefaultSettings() types.AlertSettings {
	return types.AlertSettings{
		Enabled:                   true,
		NotificationsEnabled:      false,
		MinerOfflineEnabled:       true,
		HashrateDropEnabled:       true,
		HashrateDropThreshold:     15,
		PriceAlertsEnabled:        false,
		PriceAlertHigh:            0,
		PriceAlertLow:             0,
		DifficultyAlertsEnabled:   true,
		DifficultyChangeThreshold: 3,
	}
}

func defaultData() types.AlertData {
	return types.AlertData{
		Version:  currentVersion,
		Settings: DefaultSettings(),
		Alerts:   []types.Alert{},
	}
}

// persistedAlertData mirrors types.AlertData with optional fields so a
// partially-shaped or older document can be validated and migrated at
// the load boundary instead of failing outright.
type persistedAlertData struct {
	Version       int                  `json:"_v"`
	Settings      *types.AlertSettings `json:"settings"`
	Alerts        []types.Alert        `json:"alerts"`
	PreviousState *types.PreviousState `json:"previousState"`
	LastCheck     int64                `json:"lastCheck"`
}

func (p *persistedAlertData) migrate() types.AlertData {
	data := types.AlertData{
		Version:   currentVersion,
		LastCheck: p.LastCheck,
	}
	if p.Settings != nil {
		data.Settings = *p.Settings
	} else {
		data.Settings = DefaultSettings()
	}
	if p.Alerts != nil {
		data.Alerts = p.Alerts
	} else {
		data.Alerts = []types.Alert{}
	}
	if p.PreviousState != nil {
		data.PreviousState = *p.PreviousState
	}
	return data
}
