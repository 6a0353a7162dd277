package mempool

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Client talks to a mempool.space compatible API. It supplies the
// network difficulty signal and wallet address lookups.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// AddressStats summarizes one BTC address.
type AddressStats struct {
	Balance float64 // BTC, confirmed plus mempool
	TxCount int
}

type addressResponse struct {
	ChainStats   txoStats `json:"chain_stats"`
	MempoolStats txoStats `json:"mempool_stats"`
}

type txoStats struct {
	FundedTxoSum int64 `json:"funded_txo_sum"`
	SpentTxoSum  int64 `json:"spent_txo_sum"`
	TxCount      int   `json:"tx_count"`
}

func (c *Client) getJSON(path string, v interface{}) error {
	resp, err := c.HTTP.Get(c.BaseURL + path)
	if err != nil {
		return errors.Wrapf(err, "mempool request %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("mempool request %s: HTTP %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrapf(err, "mempool decode %s", path)
	}
	return nil
}

// Difficulty returns the most recent network difficulty sample in
// terahashes (the raw value divided by 1e12).
func (c *Client) Difficulty() (float64, error) {
	var payload struct {
		Difficulty []struct {
			Difficulty float64 `json:"difficulty"`
		} `json:"difficulty"`
	}
	if err := c.getJSON("/v1/mining/hashrate/1d", &payload); err != nil {
		return 0, err
	}
	if len(payload.Difficulty) == 0 {
		return 0, errors.New("mempool difficulty: empty series")
	}
	return payload.Difficulty[len(payload.Difficulty)-1].Difficulty / 1e12, nil
}

// Address fetches balance and transaction count for one address.
func (c *Client) Address(address string) (AddressStats, error) {
	var payload addressResponse
	if err := c.getJSON("/address/"+address, &payload); err != nil {
		return AddressStats{}, err
	}

	sats := payload.ChainStats.FundedTxoSum - payload.ChainStats.SpentTxoSum +
		payload.MempoolStats.FundedTxoSum - payload.MempoolStats.SpentTxoSum

	return AddressStats{
		Balance: float64(sats) / 1e8,
		TxCount: payload.ChainStats.TxCount + payload.MempoolStats.TxCount,
	}, nil
}

// Tx is a trimmed address transaction, enough for payout import.
type Tx struct {
	TxID   string `json:"txid"`
	Status struct {
		Confirmed bool  `json:"confirmed"`
		BlockTime int64 `json:"block_time"`
	} `json:"status"`
	Vout []struct {
		ScriptPubKeyAddress string `json:"scriptpubkey_address"`
		Value               int64  `json:"value"`
	} `json:"vout"`
}

// AddressTxs fetches recent transactions for one address.
func (c *Client) AddressTxs(address string) ([]Tx, error) {
	var txs []Tx
	if err := c.getJSON(fmt.Sprintf("/address/%s/txs", address), &txs); err != nil {
		return nil, err
	}
	return txs, nil
}
