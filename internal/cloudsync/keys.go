package cloudsync

// SyncKeys is the fixed namespace set mirrored to the cloud. Each sync
// key maps to the local store namespace it shadows; the names match the
// web dashboard's localStorage keys so documents round-trip.
var SyncKeys = map[string]string{
	"fleet":       "ionMiningFleet",
	"wallet":      "ionMiningWallet",
	"payouts":     "ionMiningPayouts",
	"electricity": "ionMiningElectricity",
	"calculator":  "btcMinerCalcSettings",
	"settings":    "ionMiningSettings",
	"alerts":      "ionMiningAlerts",
	"currency":    "ionMiningCurrency",
}
