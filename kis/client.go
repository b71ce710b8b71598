// Package kis is a client for the Korea Investment & Securities open
// trading API: token issue, quote retrieval, account balance, and cash
// market orders for domestic equities.
package kis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hanulsoft/kistrader/broker"
)

const (
	pathToken         = "/oauth2/tokenP"
	pathHashKey       = "/uapi/hashkey"
	pathPrice         = "/uapi/domestic-stock/v1/quotations/inquire-price"
	pathDailyPrice    = "/uapi/domestic-stock/v1/quotations/inquire-daily-price"
	pathBalance       = "/uapi/domestic-stock/v1/trading/inquire-balance"
	pathOrderableCash = "/uapi/domestic-stock/v1/trading/inquire-psbl-order"
	pathOrderCash     = "/uapi/domestic-stock/v1/trading/order-cash"
)

// Transaction IDs the API dispatches on.
const (
	trPrice         = "FHKST01010100"
	trDailyPrice    = "FHKST01010400"
	trBalance       = "TTTC8434R"
	trOrderableCash = "TTTC8908R"
	trBuy           = "TTTC0802U"
	trSell          = "TTTC0801U"
)

// KOSPI/KOSDAQ market division code for quote lookups.
const marketDivision = "J"

// The orderable-cash endpoint prices a probe order; the figures below
// mirror the sample the upstream API documents and do not affect the
// returned cash amount.
const (
	cashProbeSymbol = "005930"
	cashProbePrice  = "50000"
)

// Config carries everything the client needs to talk to one account.
type Config struct {
	BaseURL     string
	AppKey      string
	AppSecret   string
	Account     string // CANO
	ProductCode string // ACNT_PRDT_CD
}

// Client implements broker.Broker against the KIS REST API.
type Client struct {
	cfg        Config
	token      string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

var _ broker.Broker = (*Client)(nil)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Authenticate issues a client-credentials access token. Every other
// call requires it.
func (c *Client) Authenticate(ctx context.Context) error {
	body := map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.cfg.AppKey,
		"appsecret":  c.cfg.AppSecret,
	}

	var resp tokenResponse
	if err := c.post(ctx, pathToken, "", nil, body, &resp); err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	if resp.AccessToken == "" {
		return fmt.Errorf("issue token: empty access_token in response")
	}

	c.token = resp.AccessToken
	return nil
}

type priceResponse struct {
	Output struct {
		Price string `json:"stck_prpr"`
	} `json:"output"`
}

// CurrentPrice returns the latest traded price for a symbol.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (int64, error) {
	params := url.Values{}
	params.Set("fid_cond_mrkt_div_code", marketDivision)
	params.Set("fid_input_iscd", symbol)

	var resp priceResponse
	if err := c.get(ctx, pathPrice, trPrice, params, nil, &resp); err != nil {
		return 0, fmt.Errorf("current price %s: %w", symbol, err)
	}
	if resp.Output.Price == "" {
		return 0, fmt.Errorf("current price %s: %w", symbol, broker.ErrNoMarketData)
	}

	price, err := parseWon(resp.Output.Price)
	if err != nil {
		return 0, fmt.Errorf("current price %s: %w", symbol, err)
	}
	return price, nil
}

type dailyPriceResponse struct {
	Output []struct {
		Open string `json:"stck_oprc"`
		High string `json:"stck_hgpr"`
		Low  string `json:"stck_lwpr"`
	} `json:"output"`
}

// DailyRange returns today's open and the prior trading day's high/low.
// A symbol with fewer than two daily rows has no usable history and maps
// to broker.ErrNoMarketData.
func (c *Client) DailyRange(ctx context.Context, symbol string) (broker.DailyRange, error) {
	params := url.Values{}
	params.Set("fid_cond_mrkt_div_code", marketDivision)
	params.Set("fid_input_iscd", symbol)
	params.Set("fid_org_adj_prc", "1")
	params.Set("fid_period_div_code", "D")

	var resp dailyPriceResponse
	if err := c.get(ctx, pathDailyPrice, trDailyPrice, params, nil, &resp); err != nil {
		return broker.DailyRange{}, fmt.Errorf("daily range %s: %w", symbol, err)
	}
	if len(resp.Output) < 2 || resp.Output[0].Open == "" {
		return broker.DailyRange{}, fmt.Errorf("daily range %s: %w", symbol, broker.ErrNoMarketData)
	}

	open, err := parseWon(resp.Output[0].Open)
	if err != nil {
		return broker.DailyRange{}, fmt.Errorf("daily range %s open: %w", symbol, err)
	}
	high, err := parseWon(resp.Output[1].High)
	if err != nil {
		return broker.DailyRange{}, fmt.Errorf("daily range %s prev high: %w", symbol, err)
	}
	low, err := parseWon(resp.Output[1].Low)
	if err != nil {
		return broker.DailyRange{}, fmt.Errorf("daily range %s prev low: %w", symbol, err)
	}

	return broker.DailyRange{TodayOpen: open, PrevHigh: high, PrevLow: low}, nil
}

type balanceResponse struct {
	Output1 []struct {
		Symbol   string `json:"pdno"`
		Name     string `json:"prdt_name"`
		Quantity string `json:"hldg_qty"`
	} `json:"output1"`
	Output2 []struct {
		SecuritiesEval string `json:"scts_evlu_amt"`
		TotalPL        string `json:"evlu_pfls_smtl_amt"`
		TotalEval      string `json:"tot_evlu_amt"`
	} `json:"output2"`
}

// Balance returns every held position with the account's evaluation
// figures. Zero-quantity rows are dropped.
func (c *Client) Balance(ctx context.Context) (broker.Balance, error) {
	params := url.Values{}
	params.Set("CANO", c.cfg.Account)
	params.Set("ACNT_PRDT_CD", c.cfg.ProductCode)
	params.Set("AFHR_FLPR_YN", "N")
	params.Set("OFL_YN", "")
	params.Set("INQR_DVSN", "02")
	params.Set("UNPR_DVSN", "01")
	params.Set("FUND_STTL_ICLD_YN", "N")
	params.Set("FNCG_AMT_AUTO_RDPT_YN", "N")
	params.Set("PRCS_DVSN", "01")
	params.Set("CTX_AREA_FK100", "")
	params.Set("CTX_AREA_NK100", "")

	var resp balanceResponse
	if err := c.get(ctx, pathBalance, trBalance, params, personalHeaders(), &resp); err != nil {
		return broker.Balance{}, fmt.Errorf("balance: %w", err)
	}

	var bal broker.Balance
	for _, row := range resp.Output1 {
		qty, err := parseWon(row.Quantity)
		if err != nil {
			return broker.Balance{}, fmt.Errorf("balance %s quantity: %w", row.Symbol, err)
		}
		if qty <= 0 {
			continue
		}
		bal.Positions = append(bal.Positions, broker.Position{
			Symbol:   row.Symbol,
			Name:     row.Name,
			Quantity: qty,
		})
	}

	if len(resp.Output2) > 0 {
		eval := resp.Output2[0]
		var err error
		if bal.SecuritiesEval, err = parseWon(eval.SecuritiesEval); err != nil {
			return broker.Balance{}, fmt.Errorf("balance securities eval: %w", err)
		}
		if bal.TotalPL, err = parseWon(eval.TotalPL); err != nil {
			return broker.Balance{}, fmt.Errorf("balance total p/l: %w", err)
		}
		if bal.TotalEval, err = parseWon(eval.TotalEval); err != nil {
			return broker.Balance{}, fmt.Errorf("balance total eval: %w", err)
		}
	}

	return bal, nil
}

type orderableCashResponse struct {
	Output1 []struct {
		Cash string `json:"dnca_tot_amt"`
	} `json:"output1"`
}

// AvailableCash returns the orderable cash deposit.
func (c *Client) AvailableCash(ctx context.Context) (int64, error) {
	params := url.Values{}
	params.Set("CANO", c.cfg.Account)
	params.Set("ACNT_PRDT_CD", c.cfg.ProductCode)
	params.Set("PDNO", cashProbeSymbol)
	params.Set("ORD_UNPR", cashProbePrice)
	params.Set("ORD_DVSN", "01")
	params.Set("CMA_EVLU_AMT_ICLD_YN", "Y")
	params.Set("OVRS_ICLD_YN", "Y")

	var resp orderableCashResponse
	if err := c.get(ctx, pathOrderableCash, trOrderableCash, params, personalHeaders(), &resp); err != nil {
		return 0, fmt.Errorf("available cash: %w", err)
	}
	if len(resp.Output1) == 0 {
		return 0, fmt.Errorf("available cash: empty output1 in response")
	}

	cash, err := parseWon(resp.Output1[0].Cash)
	if err != nil {
		return 0, fmt.Errorf("available cash: %w", err)
	}
	return cash, nil
}

type orderResponse struct {
	ReturnCode string `json:"rt_cd"`
	Code       string `json:"msg_cd"`
	Message    string `json:"msg1"`
}

// SubmitOrder places a full-quantity market order. A non-"0" rt_cd is a
// business rejection reported through OrderResult, not an error; only
// transport problems return an error.
func (c *Client) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	trID := trBuy
	if req.Side == broker.Sell {
		trID = trSell
	}

	// ORD_DVSN 01 with unit price 0 is a market order.
	body := map[string]string{
		"CANO":         c.cfg.Account,
		"ACNT_PRDT_CD": c.cfg.ProductCode,
		"PDNO":         req.Symbol,
		"ORD_DVSN":     "01",
		"ORD_QTY":      strconv.FormatInt(req.Quantity, 10),
		"ORD_UNPR":     "0",
	}

	hash, err := c.hashKey(ctx, body)
	if err != nil {
		return broker.OrderResult{}, fmt.Errorf("submit %s %s: %w", req.Side, req.Symbol, err)
	}

	headers := personalHeaders()
	headers["hashkey"] = hash

	raw, err := c.postRaw(ctx, pathOrderCash, trID, headers, body)
	if err != nil {
		return broker.OrderResult{}, fmt.Errorf("submit %s %s: %w", req.Side, req.Symbol, err)
	}

	var resp orderResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return broker.OrderResult{}, fmt.Errorf("submit %s %s: decode response: %w", req.Side, req.Symbol, err)
	}

	return broker.OrderResult{
		Success: resp.ReturnCode == "0",
		Code:    resp.Code,
		Message: resp.Message,
		Raw:     string(raw),
	}, nil
}

type hashKeyResponse struct {
	Hash string `json:"HASH"`
}

// hashKey obtains the body hash the order endpoint requires.
func (c *Client) hashKey(ctx context.Context, body map[string]string) (string, error) {
	var resp hashKeyResponse
	if err := c.post(ctx, pathHashKey, "", nil, body, &resp); err != nil {
		return "", fmt.Errorf("hashkey: %w", err)
	}
	if resp.Hash == "" {
		return "", fmt.Errorf("hashkey: empty HASH in response")
	}
	return resp.Hash, nil
}

func personalHeaders() map[string]string {
	return map[string]string{"custtype": "P"}
}

func (c *Client) get(ctx context.Context, path, trID string, params url.Values, extra map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, trID, extra)
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path, trID string, extra map[string]string, body map[string]string, out any) error {
	raw, err := c.postRaw(ctx, path, trID, extra, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) postRaw(ctx context.Context, path, trID string, extra map[string]string, body map[string]string) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, trID, extra)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, trID string, extra map[string]string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("appKey", c.cfg.AppKey)
	req.Header.Set("appSecret", c.cfg.AppSecret)
	if c.token != "" {
		req.Header.Set("authorization", "Bearer "+c.token)
	}
	if trID != "" {
		req.Header.Set("tr_id", trID)
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}
}

func parseWon(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return v, nil
}
