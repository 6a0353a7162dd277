package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"ion-mining-dashboard/internal/alert"
	"ion-mining-dashboard/internal/electricity"
	"ion-mining-dashboard/internal/fleet"
	"ion-mining-dashboard/internal/minerdb"
	"ion-mining-dashboard/internal/payouts"
	"ion-mining-dashboard/internal/types"
	"ion-mining-dashboard/internal/wallet"
	"ion-mining-dashboard/lib/helpers"
)

// Server is the JSON surface the dashboard front end polls, plus the
// metrics and health endpoints.
type Server struct {
	Engine      *alert.Engine
	Presence    *Presence
	Fleet       *fleet.Module
	Wallet      *wallet.Module
	Payouts     *payouts.Module
	Electricity *electricity.Module
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/alerts", s.seen(s.handleAlerts))
	mux.HandleFunc("/api/alerts/dismiss", s.seen(s.handleDismiss))
	mux.HandleFunc("/api/alerts/clear", s.seen(s.handleClear))
	mux.HandleFunc("/api/alerts/read", s.seen(s.handleMarkRead))
	mux.HandleFunc("/api/alerts/settings", s.seen(s.handleSettings))
	mux.HandleFunc("/api/miners", s.seen(s.handleMiners))
	mux.HandleFunc("/api/status", s.seen(s.handleStatus))
	mux.HandleFunc("/api/wallet/transactions", s.seen(s.handleWalletTransactions))

	return mux
}

// ListenAndServe blocks serving the API on the given port.
func (s *Server) ListenAndServe(port int) error {
	log.Infof("Launching dashboard API and metrics endpoint on :%d", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), s.Handler())
}

// seen marks dashboard presence on every API hit.
func (s *Server) seen(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Presence != nil {
			s.Presence.Touch()
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	data := s.Engine.Data()
	writeJSON(w, map[string]interface{}{
		"alerts":       s.Engine.ActiveAlerts(),
		"unread":       s.Engine.UnreadCount(),
		"lastCheck":    data.LastCheck,
		"lastCheckAgo": helpers.TimeAgo(data.LastCheck),
	})
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" || !s.Engine.DismissAlert(id) {
		http.Error(w, "unknown alert id", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]string{"status": "dismissed"})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.Engine.ClearAll()
	writeJSON(w, map[string]string{"status": "cleared"})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.Engine.MarkAllRead()
	writeJSON(w, map[string]string{"status": "read"})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.Engine.Settings())
	case http.MethodPut, http.MethodPost:
		var settings types.AlertSettings
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			http.Error(w, "invalid settings payload", http.StatusBadRequest)
			return
		}
		s.Engine.UpdateSettings(settings)
		writeJSON(w, settings)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleMiners serves the hardware catalog, filtered by model query.
func (s *Server) handleMiners(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.Query().Get("q"); q != "" {
		writeJSON(w, minerdb.Search(q))
		return
	}
	writeJSON(w, minerdb.GetAll())
}

func (s *Server) handleWalletTransactions(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "missing address id", http.StatusBadRequest)
		return
	}
	txs, err := s.Wallet.Transactions(id, 25)
	if err != nil {
		if errors.Is(err, wallet.ErrUnknownAddress) {
			http.Error(w, "unknown address id", http.StatusNotFound)
			return
		}
		http.Error(w, "address history unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, txs)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"fleetHashrate":    helpers.FormatHashrate(s.Fleet.TotalHashrate()),
		"walletBalanceBTC": s.Wallet.TotalBalance(),
		"payoutsTotalBTC":  s.Payouts.TotalBTC(),
		"electricityUSD":   s.Electricity.TotalCost(),
		"powerRatePerKWh":  s.Electricity.AverageRate(),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}
