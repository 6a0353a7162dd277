package alert

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"ion-mining-dashboard/internal/fleet"
	"ion-mining-dashboard/internal/pool"
	"ion-mining-dashboard/internal/store"
	"ion-mining-dashboard/internal/types"
	"ion-mining-dashboard/lib/helpers"
)

const (
	// Namespace is the local store document holding the alert aggregate.
	Namespace = "ionMiningAlerts"

	// MaxAlerts caps the retained alert log, oldest evicted first.
	MaxAlerts = 50

	// dedupWindow suppresses identical (type, message) alerts.
	dedupWindow = 10 * time.Minute
)

// MinerSource supplies worker status from the pool.
type MinerSource interface {
	Workers(workerURL, user string) ([]pool.Worker, error)
}

// PriceSource supplies the current BTC/USD price.
type PriceSource interface {
	Current() (float64, error)
}

// DifficultySource supplies the latest network difficulty in T.
type DifficultySource interface {
	Difficulty() (float64, error)
}

// FleetSettings exposes the pool credentials the miner check needs.
type FleetSettings interface {
	GetSettings() fleet.Settings
}

// Notifier delivers a freshly created alert to the user.
type Notifier interface {
	Notify(alert types.Alert, settings types.AlertSettings)
}

// Engine owns the alert aggregate: settings, the alert log, and the
// previous-observation snapshot. All state flows through the explicit
// store handle; there are no package-level singletons.
type Engine struct {
	mu sync.Mutex

	store      *store.Store
	miners     MinerSource
	price      PriceSource
	difficulty DifficultySource
	fleet      FleetSettings
	notifier   Notifier
	metrics    *Metrics

	data     types.AlertData
	onChange func()

	// pendingNotify collects alerts created during a check cycle so they
	// can be delivered after the lock is released; a slow notification
	// send must not block engine reads.
	pendingNotify []types.Alert
}

func NewEngine(s *store.Store, miners MinerSource, price PriceSource, difficulty DifficultySource, fleetSettings FleetSettings) *Engine {
	e := &Engine{
		store:      s,
		miners:     miners,
		price:      price,
		difficulty: difficulty,
		fleet:      fleetSettings,
	}
	e.data = e.loadData()
	return e
}

// SetNotifier wires the notification sink. Optional.
func (e *Engine) SetNotifier(n Notifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifier = n
}

// SetMetrics wires the prometheus collectors. Optional.
func (e *Engine) SetMetrics(m *Metrics) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = m
}

// SetOnChange registers a hook invoked after every persisted mutation,
// used to mirror the alerts document to the cloud.
func (e *Engine) SetOnChange(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = fn
}

// loadData reads the persisted aggregate, migrating partial documents
// and falling back to defaults on any decode error. Never fails.
func (e *Engine) loadData() types.AlertData {
	var persisted persistedAlertData
	ok, err := e.store.GetJSON(Namespace, &persisted)
	if err != nil {
		log.Printf("⚠️ Alert data malformed, resetting to defaults: %v\n", err)
		return defaultData()
	}
	if !ok {
		return defaultData()
	}
	return persisted.migrate()
}

// Reload re-reads the aggregate from the store, used after a remote
// sync overwrites the local alerts document.
func (e *Engine) Reload() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.data = e.loadData()
}

// persist trims the log to the cap and writes the aggregate. Failures
// are logged; state stays in memory until a later write succeeds.
func (e *Engine) persist() {
	if len(e.data.Alerts) > MaxAlerts {
		e.data.Alerts = e.data.Alerts[:MaxAlerts]
	}
	if err := e.store.PutJSON(Namespace, e.data); err != nil {
		log.Printf("❌ Failed to persist alert data: %v\n", err)
		return
	}
	if e.onChange != nil {
		e.onChange()
	}
}

// Settings returns a copy of the current alert settings.
func (e *Engine) Settings() types.AlertSettings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data.Settings
}

// UpdateSettings replaces the settings and persists immediately.
func (e *Engine) UpdateSettings(settings types.AlertSettings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.data.Settings = settings
	e.persist()
}

// Data returns a snapshot copy of the whole aggregate.
func (e *Engine) Data() types.AlertData {
	e.mu.Lock()
	defer e.mu.Unlock()
	data := e.data
	data.Alerts = append([]types.Alert(nil), e.data.Alerts...)
	return data
}

// ActiveAlerts returns the non-dismissed alerts, newest first.
func (e *Engine) ActiveAlerts() []types.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	active := make([]types.Alert, 0, len(e.data.Alerts))
	for _, a := range e.data.Alerts {
		if !a.Dismissed {
			active = append(active, a)
		}
	}
	return active
}

// UnreadCount counts alerts that are neither dismissed nor read.
func (e *Engine) UnreadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	count := 0
	for _, a := range e.data.Alerts {
		if !a.Dismissed && !a.Read {
			count++
		}
	}
	return count
}

// DismissAlert marks one alert dismissed. Dismissed alerts stay in the
// log for audit until evicted by the cap.
func (e *Engine) DismissAlert(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.data.Alerts {
		if e.data.Alerts[i].ID == id {
			e.data.Alerts[i].Dismissed = true
			e.persist()
			return true
		}
	}
	return false
}

// ClearAll dismisses every alert in the log.
func (e *Engine) ClearAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.data.Alerts {
		e.data.Alerts[i].Dismissed = true
	}
	e.persist()
}

// MarkAllRead flags every alert as read.
func (e *Engine) MarkAllRead() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.data.Alerts {
		e.data.Alerts[i].Read = true
	}
	e.persist()
}

// RunCheckCycle pulls every enabled signal source, diffs against the
// previous snapshot, and emits alerts. A failing sub-check degrades to
// a no-op for this cycle; nothing propagates out.
//
// Signal fetches run before the lock is taken and notifications are
// delivered after it is released, so a hung fetch or send stalls only
// this cycle, never concurrent engine reads and mutations.
func (e *Engine) RunCheckCycle() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("🔥 Panic recovered in alert checker: %v\n", r)
		}
	}()

	e.mu.Lock()
	s := e.data.Settings
	e.mu.Unlock()

	var (
		workers       []pool.Worker
		workersErr    error
		minerChecked  bool
		price         float64
		priceErr      error
		priceChecked  bool
		difficulty    float64
		difficultyErr error
		diffChecked   bool
	)

	if s.MinerOfflineEnabled || s.HashrateDropEnabled {
		fleetSettings := e.fleet.GetSettings()
		if fleetSettings.F2Pool.Enabled {
			minerChecked = true
			workers, workersErr = e.miners.Workers(fleetSettings.F2Pool.WorkerURL, fleetSettings.F2Pool.Username)
		}
	}
	if s.PriceAlertsEnabled && (s.PriceAlertHigh > 0 || s.PriceAlertLow > 0) {
		priceChecked = true
		price, priceErr = e.price.Current()
	}
	if s.DifficultyAlertsEnabled {
		diffChecked = true
		difficulty, difficultyErr = e.difficulty.Difficulty()
	}

	e.mu.Lock()
	if minerChecked {
		e.applyMiners(workers, workersErr)
	}
	if priceChecked {
		e.applyPrice(price, priceErr)
	}
	if diffChecked {
		e.applyDifficulty(difficulty, difficultyErr)
	}

	// Advance the snapshot even when nothing fired so trend comparisons
	// always move forward.
	e.data.LastCheck = time.Now().UnixMilli()
	e.persist()

	fired := e.pendingNotify
	e.pendingNotify = nil
	settings := e.data.Settings
	notifier := e.notifier
	if e.metrics != nil {
		e.metrics.CheckCycles.Inc()
	}
	e.mu.Unlock()

	if notifier != nil {
		for _, a := range fired {
			notifier.Notify(a, settings)
		}
	}
}

func (e *Engine) applyMiners(workers []pool.Worker, err error) {
	if err != nil {
		log.Printf("⚠️ Miner check skipped: %v\n", err)
		e.countCheckError("miner")
		return
	}

	prev := e.data.PreviousState.Workers
	current := make(map[string]types.WorkerSample, len(workers))

	for _, w := range workers {
		status := "offline"
		if w.Online {
			status = "online"
		}
		current[w.Name] = types.WorkerSample{Status: status, Hashrate: w.Hashrate}

		before, seen := prev[w.Name]
		if !seen {
			continue // first observation never triggers
		}

		if e.data.Settings.MinerOfflineEnabled && before.Status == "online" && status == "offline" {
			e.createAlert(types.AlertMinerOffline, types.SeverityHigh,
				"Miner Offline",
				fmt.Sprintf("%s went offline", w.Name),
				map[string]interface{}{"worker": w.Name})
		}

		if e.data.Settings.HashrateDropEnabled && before.Hashrate > 0 && w.Hashrate > 0 {
			dropPct := (before.Hashrate - w.Hashrate) / before.Hashrate * 100
			if dropPct >= e.data.Settings.HashrateDropThreshold {
				e.createAlert(types.AlertHashrateDrop, types.SeverityMedium,
					"Hashrate Drop",
					fmt.Sprintf("%s dropped %.0f%% (%.1f → %.1f TH/s)", w.Name, dropPct, before.Hashrate, w.Hashrate),
					map[string]interface{}{"worker": w.Name, "from": before.Hashrate, "to": w.Hashrate})
			}
		}
	}

	e.data.PreviousState.Workers = current
}

func (e *Engine) applyPrice(price float64, err error) {
	if err != nil || price <= 0 {
		log.Printf("⚠️ Price check skipped: %v\n", err)
		e.countCheckError("price")
		return
	}

	prev := e.data.PreviousState.Price
	s := e.data.Settings

	// Edge-triggered: fire only on the crossing, not while the price
	// stays past the threshold.
	if s.PriceAlertHigh > 0 && price >= s.PriceAlertHigh && prev < s.PriceAlertHigh {
		e.createAlert(types.AlertPriceHigh, types.SeverityMedium,
			"Price Alert — High",
			fmt.Sprintf("BTC crossed above $%s (now $%s)",
				helpers.FormatPriceUS(s.PriceAlertHigh, false), helpers.FormatPriceUS(price, false)),
			map[string]interface{}{"price": price, "threshold": s.PriceAlertHigh})
	}

	if s.PriceAlertLow > 0 && price <= s.PriceAlertLow && prev > s.PriceAlertLow {
		e.createAlert(types.AlertPriceLow, types.SeverityMedium,
			"Price Alert — Low",
			fmt.Sprintf("BTC dropped below $%s (now $%s)",
				helpers.FormatPriceUS(s.PriceAlertLow, false), helpers.FormatPriceUS(price, false)),
			map[string]interface{}{"price": price, "threshold": s.PriceAlertLow})
	}

	e.data.PreviousState.Price = price
}

func (e *Engine) applyDifficulty(current float64, err error) {
	if err != nil {
		log.Printf("⚠️ Difficulty check skipped: %v\n", err)
		e.countCheckError("difficulty")
		return
	}

	prev := e.data.PreviousState.Difficulty
	if prev > 0 && current > 0 {
		changePct := math.Abs((current - prev) / prev * 100)
		if changePct >= e.data.Settings.DifficultyChangeThreshold {
			direction := "decreased"
			if current > prev {
				direction = "increased"
			}
			e.createAlert(types.AlertDifficultyChange, types.SeverityLow,
				"Difficulty Adjustment",
				fmt.Sprintf("Network difficulty %s by %.1f%% (%.1fT → %.1fT)", direction, changePct, prev, current),
				map[string]interface{}{"from": prev, "to": current})
		}
	}

	e.data.PreviousState.Difficulty = current
}

// createAlert prepends a new alert unless an identical non-dismissed
// (type, message) pair already exists inside the dedup window. The
// alert is queued for notification delivery at the end of the cycle.
// Caller must hold e.mu.
func (e *Engine) createAlert(alertType string, severity types.Severity, title, message string, details map[string]interface{}) {
	now := time.Now().UnixMilli()

	for _, existing := range e.data.Alerts {
		if existing.Type == alertType && existing.Message == message && !existing.Dismissed {
			if now-existing.Timestamp < dedupWindow.Milliseconds() {
				return
			}
		}
	}

	a := types.Alert{
		ID:        "alert_" + uuid.NewString(),
		Type:      alertType,
		Severity:  severity,
		Title:     title,
		Message:   message,
		Timestamp: now,
		Details:   details,
	}

	e.data.Alerts = append([]types.Alert{a}, e.data.Alerts...)
	e.persist()
	e.pendingNotify = append(e.pendingNotify, a)

	if e.metrics != nil {
		e.metrics.AlertsFired.WithLabelValues(alertType).Inc()
	}
}

func (e *Engine) countCheckError(signal string) {
	if e.metrics != nil {
		e.metrics.CheckErrors.WithLabelValues(signal).Inc()
	}
}
