package exchange

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"spreadmaster/internal/domain/model"
)

type bybitClient struct {
	rest *restClient
}

func NewBybit(baseURL string, rps float64) Client {
	if baseURL == "" {
		baseURL = "https://api.bybit.com"
	}
	return &bybitClient{rest: newRESTClient(Bybit, baseURL, rps)}
}

func (c *bybitClient) Name() string         { return Bybit }
func (c *bybitClient) HasCredentials() bool { return false }

func (c *bybitClient) BookTicker(ctx context.Context, pair string) (model.Ticker, error) {
	var resp struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
		Result  struct {
			List []struct {
				Bid1Price string `json:"bid1Price"`
				Ask1Price string `json:"ask1Price"`
				LastPrice string `json:"lastPrice"`
			} `json:"list"`
		} `json:"result"`
	}
	q := url.Values{
		"category": {"spot"},
		"symbol":   {VenueSymbol(Bybit, pair)},
	}
	if err := c.rest.getJSON(ctx, "/v5/market/tickers", q, &resp); err != nil {
		return model.Ticker{}, err
	}
	if resp.RetCode != 0 || len(resp.Result.List) == 0 {
		return model.Ticker{}, fmt.Errorf("bybit tickers: ret=%d %s", resp.RetCode, resp.RetMsg)
	}

	t := resp.Result.List[0]
	return model.Ticker{
		Exchange:  Bybit,
		Pair:      pair,
		Bid:       parseF(t.Bid1Price),
		Ask:       parseF(t.Ask1Price),
		Last:      parseF(t.LastPrice),
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

func (c *bybitClient) Candles(ctx context.Context, pair, interval string, limit int) ([]model.Candle, error) {
	var resp struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
		Result  struct {
			List [][]string `json:"list"`
		} `json:"result"`
	}
	q := url.Values{
		"category": {"spot"},
		"symbol":   {VenueSymbol(Bybit, pair)},
		"interval": {VenueInterval(Bybit, interval)},
		"limit":    {strconv.Itoa(limit)},
	}
	if err := c.rest.getJSON(ctx, "/v5/market/kline", q, &resp); err != nil {
		return nil, err
	}
	if resp.RetCode != 0 {
		return nil, fmt.Errorf("bybit kline: ret=%d %s", resp.RetCode, resp.RetMsg)
	}

	// bybit 返回最新在前，转成时间升序
	list := resp.Result.List
	candles := make([]model.Candle, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		k := list[i]
		if len(k) < 6 {
			continue
		}
		ts, _ := strconv.ParseInt(k[0], 10, 64)
		candles = append(candles, model.Candle{
			Timestamp: ts,
			Open:      parseF(k[1]),
			High:      parseF(k[2]),
			Low:       parseF(k[3]),
			Close:     parseF(k[4]),
			Volume:    parseF(k[5]),
		})
	}
	return candles, nil
}

func (c *bybitClient) Ping(ctx context.Context) error {
	return c.rest.getJSON(ctx, "/v5/market/time", nil, nil)
}

func (c *bybitClient) Balances(ctx context.Context, assets []string) (map[string]float64, error) {
	return nil, ErrNotSupported
}

var _ Client = (*bybitClient)(nil)
