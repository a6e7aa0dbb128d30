package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"spreadmaster/internal/domain/model"
)

type binanceClient struct {
	rest      *restClient
	apiKey    string
	apiSecret string
}

// NewBinance Binance 现货公共行情 + 签名余额查询
func NewBinance(baseURL string, rps float64, apiKey, apiSecret string) Client {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &binanceClient{
		rest:      newRESTClient(Binance, baseURL, rps),
		apiKey:    apiKey,
		apiSecret: apiSecret,
	}
}

func (c *binanceClient) Name() string         { return Binance }
func (c *binanceClient) HasCredentials() bool { return c.apiKey != "" && c.apiSecret != "" }

func (c *binanceClient) BookTicker(ctx context.Context, pair string) (model.Ticker, error) {
	var resp struct {
		Symbol   string `json:"symbol"`
		BidPrice string `json:"bidPrice"`
		AskPrice string `json:"askPrice"`
	}
	q := url.Values{"symbol": {VenueSymbol(Binance, pair)}}
	if err := c.rest.getJSON(ctx, "/api/v3/ticker/bookTicker", q, &resp); err != nil {
		return model.Ticker{}, err
	}
	return model.Ticker{
		Exchange:  Binance,
		Pair:      pair,
		Bid:       parseF(resp.BidPrice),
		Ask:       parseF(resp.AskPrice),
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

func (c *binanceClient) Candles(ctx context.Context, pair, interval string, limit int) ([]model.Candle, error) {
	q := url.Values{
		"symbol":   {VenueSymbol(Binance, pair)},
		"interval": {VenueInterval(Binance, interval)},
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

func (c *binanceClient) Ping(ctx context.Context) error {
	return c.rest.getJSON(ctx, "/api/v3/ping", nil, nil)
}

// Balances 签名查询现货账户，只返回请求的资产的可用余额
func (c *binanceClient) Balances(ctx context.Context, assets []string) (map[string]float64, error) {
	if !c.HasCredentials() {
		return nil, ErrNotSupported
	}

	params := url.Values{}
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("recvWindow", "5000")
	query := params.Encode()

	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(query))
	signature := hex.EncodeToString(mac.Sum(nil))
	endpoint := fmt.Sprintf("%s/api/v3/account?%s&signature=%s", c.rest.baseURL, query, signature)

	var resp struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	headers := map[string]string{
		"X-MBX-APIKEY": c.apiKey,
		"Content-Type": "application/x-www-form-urlencoded",
	}
	if err := c.rest.doSigned(ctx, http.MethodGet, endpoint, headers, &resp); err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(assets))
	for _, a := range assets {
		wanted[a] = true
	}
	out := make(map[string]float64)
	for _, b := range resp.Balances {
		if wanted[b.Asset] {
			out[b.Asset] = parseF(b.Free)
		}
	}
	return out, nil
}

var _ Client = (*binanceClient)(nil)
