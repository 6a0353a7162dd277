package price

import (
	"net/http"
	"time"

	"github.com/coinpaprika/coinpaprika-api-go-client/v2/coinpaprika"
	"github.com/pkg/errors"

	"ion-mining-dashboard/config"
)

const bitcoinTickerID = "btc-bitcoin"

// Source supplies the current BTC price in USD from CoinPaprika.
type Source struct {
	client *coinpaprika.Client
}

func NewSource() *Source {
	return &Source{client: getClient()}
}

// Current fetches the latest BTC/USD price.
func (s *Source) Current() (float64, error) {
	tickerOpts := &coinpaprika.TickersOptions{Quotes: "USD"}
	ticker, err := s.client.Tickers.GetByID(bitcoinTickerID, tickerOpts)
	if err != nil {
		return 0, errors.Wrap(err, "unable to fetch BTC ticker")
	}

	quote, ok := ticker.Quotes["USD"]
	if !ok || quote.Price == nil {
		return 0, errors.New("BTC ticker has no USD quote")
	}
	return *quote.Price, nil
}

func getClient() *coinpaprika.Client {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	apiProKey := config.GetString("api_pro_key")
	if apiProKey != "" {
		return coinpaprika.NewClient(httpClient, coinpaprika.WithAPIKey(apiProKey))
	}
	return coinpaprika.NewClient(httpClient)
}
