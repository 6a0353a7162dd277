package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/leonelquinteros/gotext"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"

	"ion-mining-dashboard/config"
	"ion-mining-dashboard/internal/alert"
	"ion-mining-dashboard/internal/api"
	"ion-mining-dashboard/internal/cloudsync"
	"ion-mining-dashboard/internal/electricity"
	"ion-mining-dashboard/internal/fleet"
	"ion-mining-dashboard/internal/mempool"
	"ion-mining-dashboard/internal/notify"
	"ion-mining-dashboard/internal/payouts"
	"ion-mining-dashboard/internal/pool"
	"ion-mining-dashboard/internal/price"
	"ion-mining-dashboard/internal/store"
	"ion-mining-dashboard/internal/wallet"
	"ion-mining-dashboard/lib/translation"
)

func init() {
	config.InitConfig()
	setupLogging()
}

func main() {
	gotext.Configure("locales", strings.ToLower(config.GetString("lang")), "default")
	log.Debugf("Notification language: %s", translation.GetLanguage())

	db, err := store.Open(config.GetString("db_path"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	metrics := alert.NewMetrics()
	loadMetricsFromDB(db, metrics)

	fleetMod := fleet.NewModule(db)
	mempoolClient := mempool.NewClient(config.GetString("mempool_api_url"))
	walletMod := wallet.NewModule(db, mempoolClient)
	poolClient := pool.NewClient()
	payoutsMod := payouts.NewModule(db, poolClient, fleetMod)
	electricityMod := electricity.NewModule(db)
	priceSource := price.NewSource()

	engine := alert.NewEngine(db, poolClient, priceSource, mempoolClient, fleetMod)
	engine.SetMetrics(metrics)

	scheduler := alert.NewScheduler(engine)
	presence := api.NewPresence(scheduler.SetForeground)

	if token := config.GetString("telegram_bot_token"); token != "" {
		sink, err := notify.NewSink(notify.SinkConfig{
			Token:  token,
			ChatID: config.GetInt64("telegram_chat_id"),
			Debug:  config.GetBool("debug"),
		}, func() bool { return !presence.Foreground() })
		if err != nil {
			log.Fatalf("Failed to create notification sink: %v", err)
		}
		engine.SetNotifier(sink)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	syncEngine := startCloudSync(ctx, db, engine)

	scheduler.Start()
	defer scheduler.Stop()

	go func() {
		for {
			time.Sleep(10 * time.Minute)
			if err := walletMod.Refresh(); err != nil {
				log.Debugf("Wallet refresh failed: %v", err)
				continue
			}
			mirrorNamespace(syncEngine, db, "wallet", wallet.Namespace)
		}
	}()

	go func() {
		for {
			time.Sleep(1 * time.Hour)
			btcPrice, err := priceSource.Current()
			if err != nil {
				continue
			}
			synced := false
			if added, err := payoutsMod.SyncPoolPayouts(btcPrice); err == nil && added > 0 {
				log.Infof("Synced %d new payouts from pool", added)
				synced = true
			}
			if logged, err := payoutsMod.CheckDailySnapshot(btcPrice); err == nil && logged {
				log.Debug("Daily earnings snapshot logged")
				synced = true
			}
			if synced {
				mirrorNamespace(syncEngine, db, "payouts", payouts.Namespace)
			}
		}
	}()

	go func() {
		for {
			time.Sleep(5 * time.Minute)
			saveMetricsToDB(db, metrics)
		}
	}()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		saveMetricsToDB(db, metrics)
		log.Println("Metrics saved, shutting down...")
		os.Exit(0)
	}()

	server := &api.Server{
		Engine:      engine,
		Presence:    presence,
		Fleet:       fleetMod,
		Wallet:      walletMod,
		Payouts:     payoutsMod,
		Electricity: electricityMod,
	}
	if err := server.ListenAndServe(config.GetInt("metrics_port")); err != nil {
		log.Fatalf("Failed to start dashboard API server: %v", err)
	}
}

func setupLogging() {
	log.SetLevel(log.ErrorLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting mining dashboard...")
}

// startCloudSync wires the remote mirror when a Firebase project is
// configured. Returns nil when the dashboard stays fully local.
func startCloudSync(ctx context.Context, db *store.Store, engine *alert.Engine) *cloudsync.Engine {
	projectID := config.GetString("firebase_project_id")
	if projectID == "" {
		log.Debug("No Firebase project configured, cloud sync disabled")
		return nil
	}

	credentials := config.GetString("firebase_credentials")

	auth, err := cloudsync.NewAuthenticator(ctx, projectID, credentials, config.GetString("dashboard_user_id"))
	if err != nil {
		log.Errorf("Cloud sync disabled: %v", err)
		return nil
	}

	remote, err := cloudsync.NewFirestoreStore(ctx, projectID, credentials)
	if err != nil {
		log.Errorf("Cloud sync disabled: %v", err)
		return nil
	}

	syncEngine := cloudsync.NewEngine(ctx, db, remote, auth)

	// Mirror every alert mutation to the cloud.
	engine.SetOnChange(func() {
		body, ok, err := db.Get(alert.Namespace)
		if err == nil && ok {
			syncEngine.Save("alerts", body)
		}
	})

	auth.OnAuthChange(func(uid string) {
		if uid == "" {
			syncEngine.StopAll()
			return
		}

		syncEngine.PullAll(func(pulled int) {
			if pulled == 0 {
				// Fresh cloud account: seed it from local data.
				syncEngine.PushAll()
			} else {
				engine.Reload()
			}
			log.Infof("Cloud sync ready, pulled %d documents", pulled)

			for key := range cloudsync.SyncKeys {
				key := key
				syncEngine.Listen(key, func(string) {
					if key == "alerts" {
						engine.Reload()
					}
					log.Debugf("Remote change applied for %s", key)
				})
			}
		})
	})

	auth.SignIn()
	return syncEngine
}

// mirrorNamespace pushes the current local document for one sync key to
// the cloud. No-op when sync is disabled or the document is missing.
func mirrorNamespace(syncEngine *cloudsync.Engine, db *store.Store, key, namespace string) {
	if syncEngine == nil {
		return
	}
	if body, ok, err := db.Get(namespace); err == nil && ok {
		syncEngine.Save(key, body)
	}
}

func loadMetricsFromDB(db *store.Store, metrics *alert.Metrics) {
	checkCycles, _ := db.GetMetric("check_cycles_total")
	metrics.CheckCycles.Add(checkCycles)

	fired, _ := db.GetMetricsWithLabels("alerts_fired_total")
	for _, byValue := range fired {
		for alertType, value := range byValue {
			metrics.AlertsFired.WithLabelValues(alertType).Add(value)
		}
	}

	errored, _ := db.GetMetricsWithLabels("check_errors_total")
	for _, byValue := range errored {
		for signal, value := range byValue {
			metrics.CheckErrors.WithLabelValues(signal).Add(value)
		}
	}

	log.Println("Metrics loaded from database.")
}

func saveMetricsToDB(db *store.Store, metrics *alert.Metrics) {
	db.SaveMetric("check_cycles_total", "", "", getMetricValue(metrics.CheckCycles))
	saveLabeledMetrics(db, "alerts_fired_total", "type", metrics.AlertsFired)
	saveLabeledMetrics(db, "check_errors_total", "signal", metrics.CheckErrors)
	log.Println("Metrics saved to database.")
}

func saveLabeledMetrics(db *store.Store, metricName, labelName string, vec *prometheus.CounterVec) {
	metricChan := make(chan prometheus.Metric, 16)
	go func() {
		vec.Collect(metricChan)
		close(metricChan)
	}()

	for metric := range metricChan {
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			log.Printf("Failed to read %s metric: %v", metricName, err)
			continue
		}
		var labelValue string
		for _, label := range metricProto.Label {
			if label.GetName() == labelName {
				labelValue = label.GetValue()
			}
		}
		db.SaveMetric(metricName, labelName, labelValue, metricProto.Counter.GetValue())
	}
}

func getMetricValue(metric prometheus.Collector) float64 {
	var metricValue float64
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Printf("Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		metricValue = metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		metricValue = metricProto.Gauge.GetValue()
	}
	return metricValue
}
