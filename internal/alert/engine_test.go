package alert

import (
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ion-mining-dashboard/internal/fleet"
	"ion-mining-dashboard/internal/pool"
	"ion-mining-dashboard/internal/store"
	"ion-mining-dashboard/internal/types"
)

type fakeMiners struct {
	workers []pool.Worker
	err     error
}

func (f *fakeMiners) Workers(workerURL, user string) ([]pool.Worker, error) {
	return f.workers, f.err
}

type fakePrice struct {
	price float64
	err   error
}

func (f *fakePrice) Current() (float64, error) {
	return f.price, f.err
}

type fakeDifficulty struct {
	difficulty float64
	err        error
}

func (f *fakeDifficulty) Difficulty() (float64, error) {
	return f.difficulty, f.err
}

type fakeFleet struct {
	enabled bool
}

func (f *fakeFleet) GetSettings() fleet.Settings {
	return fleet.Settings{F2Pool: fleet.PoolSettings{
		Enabled:   f.enabled,
		WorkerURL: "http://pool.test",
		Username:  "ionmining",
	}}
}

type recordingNotifier struct {
	alerts []types.Alert
}

func (n *recordingNotifier) Notify(a types.Alert, _ types.AlertSettings) {
	n.alerts = append(n.alerts, a)
}

type testHarness struct {
	engine     *Engine
	store      *store.Store
	miners     *fakeMiners
	price      *fakePrice
	difficulty *fakeDifficulty
	notified   *recordingNotifier
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := &testHarness{
		store:      db,
		miners:     &fakeMiners{},
		price:      &fakePrice{},
		difficulty: &fakeDifficulty{},
		notified:   &recordingNotifier{},
	}
	h.engine = NewEngine(db, h.miners, h.price, h.difficulty, &fakeFleet{enabled: true})
	h.engine.SetNotifier(h.notified)
	return h
}

func worker(name string, online bool, hashrate float64) pool.Worker {
	return pool.Worker{Name: name, Online: online, Hashrate: hashrate}
}

func alertsOfType(engine *Engine, alertType string) []types.Alert {
	var matched []types.Alert
	for _, a := range engine.Data().Alerts {
		if a.Type == alertType {
			matched = append(matched, a)
		}
	}
	return matched
}

func TestMinerOfflineFiresOnTransitionOnly(t *testing.T) {
	h := newHarness(t)

	// First sighting: no prior observation, nothing may fire.
	h.miners.workers = []pool.Worker{worker("rig01", true, 100)}
	h.engine.RunCheckCycle()
	assert.Empty(t, alertsOfType(h.engine, types.AlertMinerOffline))

	// online -> offline fires high severity.
	h.miners.workers = []pool.Worker{worker("rig01", false, 0)}
	h.engine.RunCheckCycle()
	fired := alertsOfType(h.engine, types.AlertMinerOffline)
	require.Len(t, fired, 1)
	assert.Equal(t, types.SeverityHigh, fired[0].Severity)
	assert.Contains(t, fired[0].Message, "rig01")

	// Still offline: no transition, no second alert.
	h.engine.RunCheckCycle()
	assert.Len(t, alertsOfType(h.engine, types.AlertMinerOffline), 1)
}

func TestMinerOfflineNeverFiresForFirstSeenWorker(t *testing.T) {
	h := newHarness(t)

	h.miners.workers = []pool.Worker{worker("rig01", true, 100)}
	h.engine.RunCheckCycle()

	// rig02 appears already offline; it has no prior observation.
	h.miners.workers = []pool.Worker{
		worker("rig01", true, 100),
		worker("rig02", false, 0),
	}
	h.engine.RunCheckCycle()
	assert.Empty(t, alertsOfType(h.engine, types.AlertMinerOffline))
}

func TestHashrateDropThreshold(t *testing.T) {
	h := newHarness(t)

	h.miners.workers = []pool.Worker{worker("rig01", true, 100)}
	h.engine.RunCheckCycle()

	// 10% drop stays below the 15% default threshold.
	h.miners.workers = []pool.Worker{worker("rig01", true, 90)}
	h.engine.RunCheckCycle()
	assert.Empty(t, alertsOfType(h.engine, types.AlertHashrateDrop))

	// Reset the baseline, then drop 20%.
	h.miners.workers = []pool.Worker{worker("rig01", true, 100)}
	h.engine.RunCheckCycle()
	h.miners.workers = []pool.Worker{worker("rig01", true, 80)}
	h.engine.RunCheckCycle()

	fired := alertsOfType(h.engine, types.AlertHashrateDrop)
	require.Len(t, fired, 1)
	assert.Equal(t, types.SeverityMedium, fired[0].Severity)
	assert.Contains(t, fired[0].Message, "20%")
}

func TestHashrateDropIgnoresWorkerComingOnlineFromZero(t *testing.T) {
	h := newHarness(t)

	h.miners.workers = []pool.Worker{worker("rig01", false, 0)}
	h.engine.RunCheckCycle()

	h.miners.workers = []pool.Worker{worker("rig01", true, 100)}
	h.engine.RunCheckCycle()
	assert.Empty(t, alertsOfType(h.engine, types.AlertHashrateDrop))
}

func TestPriceHighIsEdgeTriggered(t *testing.T) {
	h := newHarness(t)
	settings := h.engine.Settings()
	settings.PriceAlertsEnabled = true
	settings.PriceAlertHigh = 100000
	h.engine.UpdateSettings(settings)

	h.price.price = 95000
	h.engine.RunCheckCycle()
	assert.Empty(t, alertsOfType(h.engine, types.AlertPriceHigh))

	// Upward crossing fires, with localized thousand separators.
	h.price.price = 101000
	h.engine.RunCheckCycle()
	fired := alertsOfType(h.engine, types.AlertPriceHigh)
	require.Len(t, fired, 1)
	assert.Equal(t, "BTC crossed above $100,000 (now $101,000)", fired[0].Message)

	// Price stays above: level, not edge. No refire.
	h.price.price = 104000
	h.engine.RunCheckCycle()
	assert.Len(t, alertsOfType(h.engine, types.AlertPriceHigh), 1)

	// Dip below and cross again: second alert.
	h.price.price = 95000
	h.engine.RunCheckCycle()
	h.price.price = 102000
	h.engine.RunCheckCycle()
	assert.Len(t, alertsOfType(h.engine, types.AlertPriceHigh), 2)
}

func TestPriceLowCrossingAndZeroThresholdDisabled(t *testing.T) {
	h := newHarness(t)
	settings := h.engine.Settings()
	settings.PriceAlertsEnabled = true
	settings.PriceAlertLow = 80000
	h.engine.UpdateSettings(settings)

	h.price.price = 85000
	h.engine.RunCheckCycle()
	h.price.price = 78000
	h.engine.RunCheckCycle()
	require.Len(t, alertsOfType(h.engine, types.AlertPriceLow), 1)

	// High threshold of 0 means disabled; no high alert ever fired.
	assert.Empty(t, alertsOfType(h.engine, types.AlertPriceHigh))
}

func TestDifficultyChangeThreshold(t *testing.T) {
	h := newHarness(t)

	h.difficulty.difficulty = 100
	h.engine.RunCheckCycle()
	assert.Empty(t, alertsOfType(h.engine, types.AlertDifficultyChange))

	// 2% move stays below the 3% default threshold.
	h.difficulty.difficulty = 102
	h.engine.RunCheckCycle()
	assert.Empty(t, alertsOfType(h.engine, types.AlertDifficultyChange))

	// 102 -> 106 is a 3.9% move.
	h.difficulty.difficulty = 106
	h.engine.RunCheckCycle()
	fired := alertsOfType(h.engine, types.AlertDifficultyChange)
	require.Len(t, fired, 1)
	assert.Contains(t, fired[0].Message, "increased")

	// Downward move labeled accordingly.
	h.difficulty.difficulty = 95
	h.engine.RunCheckCycle()
	fired = alertsOfType(h.engine, types.AlertDifficultyChange)
	require.Len(t, fired, 2)
	assert.Contains(t, fired[0].Message, "decreased")
}

func TestFailedSubCheckDoesNotBlockOthers(t *testing.T) {
	h := newHarness(t)
	settings := h.engine.Settings()
	settings.PriceAlertsEnabled = true
	settings.PriceAlertHigh = 100000
	h.engine.UpdateSettings(settings)

	h.miners.err = assert.AnError
	h.difficulty.difficulty = 100
	h.price.price = 101000
	h.engine.RunCheckCycle()

	// Miner check degraded, price check still ran.
	assert.Len(t, alertsOfType(h.engine, types.AlertPriceHigh), 1)
	assert.NotZero(t, h.engine.Data().LastCheck)
}

func TestSnapshotAdvancesEvenWithoutAlerts(t *testing.T) {
	h := newHarness(t)

	h.difficulty.difficulty = 100
	h.engine.RunCheckCycle()
	first := h.engine.Data()
	assert.Equal(t, float64(100), first.PreviousState.Difficulty)
	assert.NotZero(t, first.LastCheck)

	h.difficulty.difficulty = 101
	h.engine.RunCheckCycle()
	assert.Equal(t, float64(101), h.engine.Data().PreviousState.Difficulty)
	assert.Empty(t, h.engine.Data().Alerts)
}

func TestCreateAlertDedupWindow(t *testing.T) {
	h := newHarness(t)

	h.engine.mu.Lock()
	h.engine.createAlert(types.AlertMinerOffline, types.SeverityHigh, "Miner Offline", "rig01 went offline", nil)
	h.engine.createAlert(types.AlertMinerOffline, types.SeverityHigh, "Miner Offline", "rig01 went offline", nil)
	h.engine.mu.Unlock()
	assert.Len(t, h.engine.Data().Alerts, 1)

	// Backdate the existing alert past the window; the same pair fires
	// again.
	h.engine.mu.Lock()
	h.engine.data.Alerts[0].Timestamp = time.Now().Add(-11 * time.Minute).UnixMilli()
	h.engine.createAlert(types.AlertMinerOffline, types.SeverityHigh, "Miner Offline", "rig01 went offline", nil)
	h.engine.mu.Unlock()
	assert.Len(t, h.engine.Data().Alerts, 2)
}

func TestDismissedAlertsLeaveDedupWindow(t *testing.T) {
	h := newHarness(t)

	h.engine.mu.Lock()
	h.engine.createAlert(types.AlertMinerOffline, types.SeverityHigh, "Miner Offline", "rig01 went offline", nil)
	h.engine.mu.Unlock()

	id := h.engine.Data().Alerts[0].ID
	require.True(t, h.engine.DismissAlert(id))

	h.engine.mu.Lock()
	h.engine.createAlert(types.AlertMinerOffline, types.SeverityHigh, "Miner Offline", "rig01 went offline", nil)
	h.engine.mu.Unlock()
	assert.Len(t, h.engine.Data().Alerts, 2)
}

func TestAlertLogCapEvictsOldestFirst(t *testing.T) {
	h := newHarness(t)

	h.engine.mu.Lock()
	for i := 0; i < MaxAlerts+10; i++ {
		h.engine.createAlert(types.AlertMinerOffline, types.SeverityHigh,
			"Miner Offline", "rig"+strconv.Itoa(i)+" went offline", nil)
	}
	h.engine.mu.Unlock()

	data := h.engine.Data()
	require.Len(t, data.Alerts, MaxAlerts)
	// Newest first: the last created alert heads the log, the earliest
	// ten were evicted.
	assert.Contains(t, data.Alerts[0].Message, "rig59")
	assert.Contains(t, data.Alerts[MaxAlerts-1].Message, "rig10")
}

func TestNotifierReceivesCreatedAlerts(t *testing.T) {
	h := newHarness(t)

	h.miners.workers = []pool.Worker{worker("rig01", true, 100)}
	h.engine.RunCheckCycle()
	h.miners.workers = []pool.Worker{worker("rig01", false, 0)}
	h.engine.RunCheckCycle()

	require.Len(t, h.notified.alerts, 1)
	assert.Equal(t, types.AlertMinerOffline, h.notified.alerts[0].Type)
}

func TestMutationsPersistAcrossReload(t *testing.T) {
	h := newHarness(t)

	h.engine.mu.Lock()
	h.engine.createAlert(types.AlertPriceHigh, types.SeverityMedium, "Price Alert — High", "BTC crossed above $100000 (now $101000)", nil)
	h.engine.createAlert(types.AlertPriceLow, types.SeverityMedium, "Price Alert — Low", "BTC dropped below $80000 (now $79000)", nil)
	h.engine.mu.Unlock()

	h.engine.MarkAllRead()
	h.engine.DismissAlert(h.engine.Data().Alerts[0].ID)

	reloaded := NewEngine(h.store, h.miners, h.price, h.difficulty, &fakeFleet{enabled: true})
	data := reloaded.Data()
	require.Len(t, data.Alerts, 2)
	assert.True(t, data.Alerts[0].Read)
	assert.True(t, data.Alerts[0].Dismissed)
	assert.False(t, data.Alerts[1].Dismissed)
	assert.Equal(t, 1, len(reloaded.ActiveAlerts()))
	assert.Equal(t, 0, reloaded.UnreadCount())
}

func TestClearAllDismissesEverything(t *testing.T) {
	h := newHarness(t)

	h.engine.mu.Lock()
	h.engine.createAlert(types.AlertPriceHigh, types.SeverityMedium, "Price Alert — High", "msg one", nil)
	h.engine.createAlert(types.AlertPriceLow, types.SeverityMedium, "Price Alert — Low", "msg two", nil)
	h.engine.mu.Unlock()

	h.engine.ClearAll()
	assert.Empty(t, h.engine.ActiveAlerts())
	assert.Len(t, h.engine.Data().Alerts, 2)
}

func TestLoadFallsBackToDefaultsOnMalformedDocument(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put(Namespace, `{"_v": not json`))

	engine := NewEngine(db, &fakeMiners{}, &fakePrice{}, &fakeDifficulty{}, &fakeFleet{})
	assert.Equal(t, DefaultSettings(), engine.Settings())
	assert.Empty(t, engine.Data().Alerts)
}

func TestLoadMigratesPartialDocument(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	// A legacy document with settings only.
	require.NoError(t, db.Put(Namespace, `{"_v":1,"settings":{"enabled":true,"hashrateDropThreshold":25}}`))

	engine := NewEngine(db, &fakeMiners{}, &fakePrice{}, &fakeDifficulty{}, &fakeFleet{})
	assert.Equal(t, float64(25), engine.Settings().HashrateDropThreshold)
	assert.Empty(t, engine.Data().Alerts)
}

type blockingMiners struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingMiners) Workers(string, string) ([]pool.Worker, error) {
	close(b.started)
	<-b.release
	return nil, nil
}

func TestCheckCycleDoesNotBlockEngineReads(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	miners := &blockingMiners{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	engine := NewEngine(db, miners, &fakePrice{}, &fakeDifficulty{}, &fakeFleet{enabled: true})

	cycleDone := make(chan struct{})
	go func() {
		engine.RunCheckCycle()
		close(cycleDone)
	}()
	<-miners.started

	// Reads and mutations must not wait on the in-flight fetch.
	read := make(chan types.AlertSettings, 1)
	go func() { read <- engine.Settings() }()
	select {
	case <-read:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Settings blocked while a signal fetch was in flight")
	}

	dismissed := make(chan bool, 1)
	go func() { dismissed <- engine.DismissAlert("alert_nope") }()
	select {
	case ok := <-dismissed:
		assert.False(t, ok)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("DismissAlert blocked while a signal fetch was in flight")
	}

	close(miners.release)
	<-cycleDone
	assert.NotZero(t, engine.Data().LastCheck)
}

func TestDisabledCategoriesNeverFire(t *testing.T) {
	h := newHarness(t)
	settings := h.engine.Settings()
	settings.MinerOfflineEnabled = false
	settings.HashrateDropEnabled = false
	settings.DifficultyAlertsEnabled = false
	h.engine.UpdateSettings(settings)

	h.miners.workers = []pool.Worker{worker("rig01", true, 100)}
	h.difficulty.difficulty = 100
	h.engine.RunCheckCycle()
	h.miners.workers = []pool.Worker{worker("rig01", false, 10)}
	h.difficulty.difficulty = 200
	h.engine.RunCheckCycle()

	assert.Empty(t, h.engine.Data().Alerts)
}
