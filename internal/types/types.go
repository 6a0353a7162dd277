package types

// Severity of an alert entry.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Alert type identifiers, stable across the persisted log.
const (
	AlertMinerOffline     = "miner_offline"
	AlertHashrateDrop     = "hashrate_drop"
	AlertPriceHigh        = "price_high"
	AlertPriceLow         = "price_low"
	AlertDifficultyChange = "difficulty_change"
)

// Alert is one entry in the persisted alert log. Timestamps are unix
// milliseconds so documents round-trip with the web dashboard.
type Alert struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Severity  Severity               `json:"severity"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Timestamp int64                  `json:"timestamp"`
	Dismissed bool                   `json:"dismissed"`
	Read      bool                   `json:"read"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// AlertSettings holds the per-category enable flags and thresholds.
type AlertSettings struct {
	Enabled                   bool    `json:"enabled"`
	NotificationsEnabled      bool    `json:"notificationsEnabled"`
	MinerOfflineEnabled       bool    `json:"minerOfflineEnabled"`
	HashrateDropEnabled       bool    `json:"hashrateDropEnabled"`
	HashrateDropThreshold     float64 `json:"hashrateDropThreshold"`
	PriceAlertsEnabled        bool    `json:"priceAlertsEnabled"`
	PriceAlertHigh            float64 `json:"priceAlertHigh"`
	PriceAlertLow             float64 `json:"priceAlertLow"`
	DifficultyAlertsEnabled   bool    `json:"difficultyAlertsEnabled"`
	DifficultyChangeThreshold float64 `json:"difficultyChangeThreshold"`
}

// WorkerSample is the last observed status of one pool worker.
type WorkerSample struct {
	Status   string  `json:"status"` // "online" or "offline"
	Hashrate float64 `json:"hashrate"`
}

// PreviousState is the last-observed external signal snapshot. It is
// overwritten wholesale after each successful check of a signal family.
type PreviousState struct {
	Workers    map[string]WorkerSample `json:"workers,omitempty"`
	Price      float64                 `json:"price,omitempty"`
	Difficulty float64                 `json:"difficulty,omitempty"`
}

// AlertData is the aggregate persisted under the alerts namespace.
type AlertData struct {
	Version       int           `json:"_v"`
	Settings      AlertSettings `json:"settings"`
	Alerts        []Alert       `json:"alerts"`
	PreviousState PreviousState `json:"previousState"`
	LastCheck     int64         `json:"lastCheck"`
}
