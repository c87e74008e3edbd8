package prices

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/raine/relic-reward-prices/internal/catalog"
)

const (
	ApiBaseUrl = "https://api.warframestat.us"

	pricesPath        = "/wfinfo/prices"
	filteredItemsPath = "/wfinfo/filtered_items"
)

type ClientOpts struct {
	BaseURL   string
	UserAgent string
}

// Client fetches price and item data from the warframestat wfinfo API.
type Client struct {
	httpClient *resty.Client
	baseURL    string
}

func NewClient(opts ClientOpts) *Client {
	c := Client{baseURL: ApiBaseUrl}
	if opts.BaseURL != "" {
		c.baseURL = opts.BaseURL
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "relic-reward-prices"
	}
	c.httpClient = resty.New().
		SetDebug(false).
		SetBaseURL(c.baseURL).
		SetHeaders(
			map[string]string{
				"Accept":     "application/json",
				"User-Agent": ua,
			},
		)

	return &c
}

func (c *Client) req(ctx context.Context, result any) *resty.Request {
	request := c.httpClient.
		NewRequest().
		SetContext(ctx)

	if result != nil {
		request.SetResult(result)
	}

	return request
}

// FetchPrices downloads the price list.
func (c *Client) FetchPrices(ctx context.Context) (PriceTable, error) {
	var result PriceTable
	_, err := handleError(c.req(ctx, &result).Get(pricesPath))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FetchFilteredItems downloads the raw filtered_items document. It doubles as
// the catalog resource.
func (c *Client) FetchFilteredItems(ctx context.Context) ([]byte, error) {
	res, err := handleError(c.req(ctx, nil).Get(filteredItemsPath))
	if err != nil {
		return nil, err
	}
	return res.Body(), nil
}

// FetchDucatValues derives the ducat table from filtered_items.
func (c *Client) FetchDucatValues(ctx context.Context) (DucatTable, error) {
	data, err := c.FetchFilteredItems(ctx)
	if err != nil {
		return nil, err
	}
	items, err := catalog.DecodeFilteredItems(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	dt := make(DucatTable, len(items))
	for _, it := range items {
		if it.Ducats > 0 {
			dt[catalog.Key(it.Name)] = it.Ducats
		}
	}
	return dt, nil
}

// handleError is a generic error handler for failing response (>399 status
// code). Without this, failing responses would have nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		return res, fmt.Errorf("request failed: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode())
	}

	return res, nil
}
