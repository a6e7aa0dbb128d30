package exchange

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"spreadmaster/internal/domain/model"
)

// mexcClient MEXC 现货行情，REST 表面与 Binance v3 同形
type mexcClient struct {
	rest *restClient
}

func NewMEXC(baseURL string, rps float64) Client {
	if baseURL == "" {
		baseURL = "https://api.mexc.com"
	}
	return &mexcClient{rest: newRESTClient(MEXC, baseURL, rps)}
}

func (c *mexcClient) Name() string         { return MEXC }
func (c *mexcClient) HasCredentials() bool { return false }

func (c *mexcClient) BookTicker(ctx context.Context, pair string) (model.Ticker, error) {
	var resp struct {
		BidPrice string `json:"bidPrice"`
		AskPrice string `json:"askPrice"`
	}
	q := url.Values{"symbol": {VenueSymbol(MEXC, pair)}}
	if err := c.rest.getJSON(ctx, "/api/v3/ticker/bookTicker", q, &resp); err != nil {
		return model.Ticker{}, err
	}
	return model.Ticker{
		Exchange:  MEXC,
		Pair:      pair,
		Bid:       parseF(resp.BidPrice),
		Ask:       parseF(resp.AskPrice),
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

func (c *mexcClient) Candles(ctx context.Context, pair, interval string, limit int) ([]model.Candle, error) {
	q := url.Values{
		"symbol":   {VenueSymbol(MEXC, pair)},
		"interval": {VenueInterval(MEXC, interval)},
		"limit":    {strconv.Itoa(limit)},
	}
	var raw [][]json.RawMessage
	if err := c.rest.getJSON(ctx, "/api/v3/klines", q, &raw); err != nil {
		return nil, err
	}

	candles := make([]model.Candle, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			continue
		}
		var ts int64
		var o, h, l, cl, v string
		if err := json.Unmarshal(k[0], &ts); err != nil {
			continue
		}
		for i, dst := range []*string{&o, &h, &l, &cl, &v} {
			_ = json.Unmarshal(k[i+1], dst)
		}
		candles = append(candles, model.Candle{
			Timestamp: ts,
			Open:      parseF(o),
			High:      parseF(h),
			Low:       parseF(l),
			Close:     parseF(cl),
			Volume:    parseF(v),
		})
	}
	return candles, nil
}

func (c *mexcClient) Ping(ctx context.Context) error {
	return c.rest.getJSON(ctx, "/api/v3/ping", nil, nil)
}

func (c *mexcClient) Balances(ctx context.Context, assets []string) (map[string]float64, error) {
	return nil, ErrNotSupported
}

var _ Client = (*mexcClient)(nil)
