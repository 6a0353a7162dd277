package pool

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Worker is one mining worker as reported by the pool.
type Worker struct {
	Name     string
	Online   bool
	Hashrate float64 // TH/s
}

// Client fetches worker status from an F2Pool-style worker endpoint.
// The endpoint and account come from the fleet settings document, so a
// fleet without pool credentials simply yields no miner signal.
type Client struct {
	HTTP *http.Client
}

func NewClient() *Client {
	return &Client{HTTP: &http.Client{Timeout: 30 * time.Second}}
}

type workerPayload struct {
	WorkerName      string  `json:"worker_name"`
	Status          string  `json:"status"`
	Hashrate        float64 `json:"hashrate"`
	HashrateCurrent float64 `json:"hashrate_current"`
}

type workersResponse struct {
	Workers []workerPayload `json:"workers"`
	Data    []workerPayload `json:"data"`
}

// Workers fetches the current worker list for the given account.
func (c *Client) Workers(workerURL, user string) ([]Worker, error) {
	if workerURL == "" || user == "" {
		return nil, errors.New("pool not configured")
	}

	resp, err := c.HTTP.Get(workerURL + "/workers?user=" + url.QueryEscape(user))
	if err != nil {
		return nil, errors.Wrap(err, "pool workers request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("pool workers request: HTTP %d", resp.StatusCode)
	}

	var payload workersResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "pool workers decode")
	}

	raw := payload.Workers
	if len(raw) == 0 {
		raw = payload.Data
	}

	workers := make([]Worker, 0, len(raw))
	for i, w := range raw {
		name := w.WorkerName
		if name == "" {
			name = "Worker " + strconv.Itoa(i+1)
		}
		hashrate := w.Hashrate
		if hashrate == 0 {
			hashrate = w.HashrateCurrent
		}
		workers = append(workers, Worker{
			Name:     name,
			Online:   strings.EqualFold(w.Status, "online"),
			Hashrate: hashrate / 1e12, // pool reports H/s
		})
	}
	return workers, nil
}

// FlexFloat tolerates amounts arriving as JSON numbers or as quoted
// strings, which varies across pool API versions.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexFloat(v)
	return nil
}

// PayoutTx is one payout transaction from the pool's payout history.
type PayoutTx struct {
	CreatedAt      int64     `json:"created_at"`
	ChangedBalance FlexFloat `json:"changed_balance"`
	PayoutExtra    *struct {
		TxID     string    `json:"tx_id"`
		PaidTime int64     `json:"paid_time"`
		Value    FlexFloat `json:"value"`
	} `json:"payout_extra"`
}

type payoutsResponse struct {
	Data *struct {
		Transactions []PayoutTx `json:"transactions"`
	} `json:"data"`
	Transactions []PayoutTx `json:"transactions"`
}

// Payouts fetches the payout transaction history for the account.
func (c *Client) Payouts(workerURL, user string) ([]PayoutTx, error) {
	if workerURL == "" || user == "" {
		return nil, errors.New("pool not configured")
	}

	resp, err := c.HTTP.Get(workerURL + "/payouts?user=" + url.QueryEscape(user))
	if err != nil {
		return nil, errors.Wrap(err, "pool payouts request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("pool payouts request: HTTP %d", resp.StatusCode)
	}

	var payload payoutsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "pool payouts decode")
	}

	if payload.Data != nil && len(payload.Data.Transactions) > 0 {
		return payload.Data.Transactions, nil
	}
	return payload.Transactions, nil
}
