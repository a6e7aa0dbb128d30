package exchange

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"spreadmaster/internal/domain/model"
)

type bitgetClient struct {
	rest *restClient
}

func NewBitget(baseURL string, rps float64) Client {
	if baseURL == "" {
		baseURL = "https://api.bitget.com"
	}
	return &bitgetClient{rest: newRESTClient(Bitget, baseURL, rps)}
}

func (c *bitgetClient) Name() string         { return Bitget }
func (c *bitgetClient) HasCredentials() bool { return false }

func (c *bitgetClient) BookTicker(ctx context.Context, pair string) (model.Ticker, error) {
	var resp struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
		Data []struct {
			BidPr  string `json:"bidPr"`
			AskPr  string `json:"askPr"`
			LastPr string `json:"lastPr"`
		} `json:"data"`
	}
	q := url.Values{"symbol": {VenueSymbol(Bitget, pair)}}
	if err := c.rest.getJSON(ctx, "/api/v2/spot/market/tickers", q, &resp); err != nil {
		return model.Ticker{}, err
	}
	if resp.Code != "00000" || len(resp.Data) == 0 {
		return model.Ticker{}, fmt.Errorf("bitget tickers: code=%s %s", resp.Code, resp.Msg)
	}

	t := resp.Data[0]
	return model.Ticker{
		Exchange:  Bitget,
		Pair:      pair,
		Bid:       parseF(t.BidPr),
		Ask:       parseF(t.AskPr),
		Last:      parseF(t.LastPr),
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

func (c *bitgetClient) Candles(ctx context.Context, pair, interval string, limit int) ([]model.Candle, error) {
	var resp struct {
		Code string     `json:"code"`
		Msg  string     `json:"msg"`
		Data [][]string `json:"data"`
	}
	q := url.Values{
		"symbol":      {VenueSymbol(Bitget, pair)},
		"granularity": {VenueInterval(Bitget, interval)},
		"limit":       {strconv.Itoa(limit)},
	}
	if err := c.rest.getJSON(ctx, "/api/v2/spot/market/candles", q, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "00000" {
		return nil, fmt.Errorf("bitget candles: code=%s %s", resp.Code, resp.Msg)
	}

	candles := make([]model.Candle, 0, len(resp.Data))
	for _, k := range resp.Data {
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

func (c *bitgetClient) Ping(ctx context.Context) error {
	return c.rest.getJSON(ctx, "/api/v2/public/time", nil, nil)
}

func (c *bitgetClient) Balances(ctx context.Context, assets []string) (map[string]float64, error) {
	return nil, ErrNotSupported
}

var _ Client = (*bitgetClient)(nil)
