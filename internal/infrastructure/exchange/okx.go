package exchange

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"spreadmaster/internal/domain/model"
)

type okxClient struct {
	rest *restClient
}

func NewOKX(baseURL string, rps float64) Client {
	if baseURL == "" {
		baseURL = "https://www.okx.com"
	}
	return &okxClient{rest: newRESTClient(OKX, baseURL, rps)}
}

func (c *okxClient) Name() string         { return OKX }
func (c *okxClient) HasCredentials() bool { return false }

func (c *okxClient) BookTicker(ctx context.Context, pair string) (model.Ticker, error) {
	var resp struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
		Data []struct {
			BidPx string `json:"bidPx"`
			AskPx string `json:"askPx"`
			Last  string `json:"last"`
		} `json:"data"`
	}
	q := url.Values{"instId": {VenueSymbol(OKX, pair)}}
	if err := c.rest.getJSON(ctx, "/api/v5/market/ticker", q, &resp); err != nil {
		return model.Ticker{}, err
	}
	if resp.Code != "0" || len(resp.Data) == 0 {
		return model.Ticker{}, fmt.Errorf("okx ticker: code=%s %s", resp.Code, resp.Msg)
	}

	t := resp.Data[0]
	return model.Ticker{
		Exchange:  OKX,
		Pair:      pair,
		Bid:       parseF(t.BidPx),
		Ask:       parseF(t.AskPx),
		Last:      parseF(t.Last),
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

func (c *okxClient) Candles(ctx context.Context, pair, interval string, limit int) ([]model.Candle, error) {
	var resp struct {
		Code string     `json:"code"`
		Msg  string     `json:"msg"`
		Data [][]string `json:"data"`
	}
	q := url.Values{
		"instId": {VenueSymbol(OKX, pair)},
		"bar":    {VenueInterval(OKX, interval)},
		"limit":  {strconv.Itoa(limit)},
	}
	if err := c.rest.getJSON(ctx, "/api/v5/market/candles", q, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "0" {
		return nil, fmt.Errorf("okx candles: code=%s %s", resp.Code, resp.Msg)
	}

	// okx 返回最新在前，转成时间升序
	candles := make([]model.Candle, 0, len(resp.Data))
	for i := len(resp.Data) - 1; i >= 0; i-- {
		k := resp.Data[i]
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

func (c *okxClient) Ping(ctx context.Context) error {
	return c.rest.getJSON(ctx, "/api/v5/public/time", nil, nil)
}

func (c *okxClient) Balances(ctx context.Context, assets []string) (map[string]float64, error) {
	return nil, ErrNotSupported
}

var _ Client = (*okxClient)(nil)
