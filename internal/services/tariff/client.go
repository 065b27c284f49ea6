// Package tariff provides the HTTP client for the Octopus-style tariff API.
package tariff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/j-veylop/agile-dashboard-tui/internal/logger"
	"github.com/j-veylop/agile-dashboard-tui/internal/models"
)

const (
	// DefaultRegion is the grid-supply-point group used when the postcode
	// is missing or region lookup fails. Lookup degrades to this rather
	// than erroring so the dashboard keeps working with plausible prices.
	DefaultRegion = "H"

	defaultBaseURL     = "https://api.octopus.energy/v1"
	defaultProductCode = "AGILE-24-10-01"
	defaultTimeout     = 30 * time.Second

	// Region lookup retries cancelled requests with linearly increasing
	// backoff (1s, 2s, 3s) before giving up and using DefaultRegion.
	regionLookupRetries = 3
	regionRetryStep     = time.Second
)

var (
	// ErrTransport indicates a network-level failure or an unexpected
	// HTTP status from the tariff API.
	ErrTransport = errors.New("tariff: transport error")

	// ErrDecode indicates a malformed API payload. A single unparseable
	// record fails the whole fetch; partially applied price data is worse
	// than none.
	ErrDecode = errors.New("tariff: decode error")
)

// Config holds configuration for the tariff API client.
type Config struct {
	BaseURL     string
	ProductCode string
	Timeout     time.Duration

	// RetryStep overrides the backoff unit for region lookup retries.
	// Zero means the default one second step; tests shrink it.
	RetryStep time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:     defaultBaseURL,
		ProductCode: defaultProductCode,
		Timeout:     defaultTimeout,
		RetryStep:   regionRetryStep,
	}
}

// Client fetches tariff rates and region codes from the remote API.
type Client struct {
	config     Config
	httpClient *http.Client
}

// New creates a new tariff API client.
func New(config Config) *Client {
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.ProductCode == "" {
		config.ProductCode = defaults.ProductCode
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.RetryStep == 0 {
		config.RetryStep = defaults.RetryStep
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// gspResponse is the grid-supply-point lookup payload.
type gspResponse struct {
	Count   int `json:"count"`
	Results []struct {
		GroupID string `json:"group_id"`
	} `json:"results"`
}

// ratesResponse is the standard-unit-rates payload. Next carries the
// pagination cursor for series longer than one page.
type ratesResponse struct {
	Next    *string `json:"next"`
	Results []struct {
		ValidFrom   string          `json:"valid_from"`
		ValidTo     string          `json:"valid_to"`
		ValueExcVAT decimal.Decimal `json:"value_exc_vat"`
		ValueIncVAT decimal.Decimal `json:"value_inc_vat"`
	} `json:"results"`
}

// ResolveRegion turns a postcode into a grid-supply-point region code.
// An empty postcode returns DefaultRegion without a network call. Any
// lookup failure also returns DefaultRegion; only cancelled requests are
// retried first, up to regionLookupRetries times with retry*RetryStep
// backoff. This never returns an error: a wrong-but-plausible region is
// the chosen degraded mode for lookup, unlike rate fetching.
func (c *Client) ResolveRegion(ctx context.Context, postcode string) string {
	postcode = strings.TrimSpace(postcode)
	if postcode == "" {
		return DefaultRegion
	}

	for attempt := 0; attempt <= regionLookupRetries; attempt++ {
		region, err := c.lookupRegion(ctx, postcode)
		if err == nil {
			return region
		}

		if !errors.Is(err, context.Canceled) {
			logger.Warn("region lookup failed, using default region",
				"postcode", postcode, "region", DefaultRegion, "error", err)
			return DefaultRegion
		}

		logger.Warn("region lookup cancelled, retrying",
			"postcode", postcode, "attempt", attempt)
		if attempt < regionLookupRetries {
			time.Sleep(time.Duration(attempt+1) * c.config.RetryStep)
		}
	}

	logger.Warn("region lookup retries exhausted, using default region",
		"postcode", postcode, "region", DefaultRegion)
	return DefaultRegion
}

func (c *Client) lookupRegion(ctx context.Context, postcode string) (string, error) {
	endpoint := fmt.Sprintf("%s/industry/grid-supply-points/?postcode=%s",
		c.config.BaseURL, url.QueryEscape(postcode))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return "", err
	}

	var payload gspResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: parsing grid-supply-point response: %v", ErrDecode, err)
	}

	if payload.Count < 1 || len(payload.Results) == 0 {
		return "", fmt.Errorf("%w: no grid-supply-point for postcode", ErrDecode)
	}

	region := strings.ReplaceAll(payload.Results[0].GroupID, "_", "")
	if region == "" {
		return "", fmt.Errorf("%w: empty group_id in grid-supply-point response", ErrDecode)
	}

	return region, nil
}

// FetchRates returns the tariff's half-hourly unit rates for a region,
// ordered ascending by ValidFrom. Timestamps are parsed as strict
// ISO-8601; any record that fails to parse fails the whole fetch.
func (c *Client) FetchRates(ctx context.Context, region string) ([]models.RateRecord, error) {
	endpoint := fmt.Sprintf("%s/products/%s/electricity-tariffs/E-1R-%s-%s/standard-unit-rates/",
		c.config.BaseURL, c.config.ProductCode, c.config.ProductCode, region)

	var records []models.RateRecord
	for endpoint != "" {
		body, err := c.get(ctx, endpoint)
		if err != nil {
			return nil, err
		}

		var payload ratesResponse
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("%w: parsing unit-rates response: %v", ErrDecode, err)
		}

		for _, result := range payload.Results {
			rec, err := parseRate(result.ValidFrom, result.ValidTo, result.ValueExcVAT, result.ValueIncVAT)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}

		endpoint = ""
		if payload.Next != nil {
			endpoint = *payload.Next
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ValidFrom.Before(records[j].ValidFrom)
	})

	return records, nil
}

func parseRate(validFrom, validTo string, excVAT, incVAT decimal.Decimal) (models.RateRecord, error) {
	var rec models.RateRecord

	from, err := time.Parse(time.RFC3339, validFrom)
	if err != nil {
		return rec, fmt.Errorf("%w: parsing valid_from %q: %v", ErrDecode, validFrom, err)
	}
	to, err := time.Parse(time.RFC3339, validTo)
	if err != nil {
		return rec, fmt.Errorf("%w: parsing valid_to %q: %v", ErrDecode, validTo, err)
	}

	rec = models.RateRecord{
		ValidFrom:   from.UTC(),
		ValidTo:     to.UTC(),
		ValueExcVAT: excVAT,
		ValueIncVAT: incVAT,
	}
	if !rec.Valid() {
		return rec, fmt.Errorf("%w: rate interval %q - %q is not ascending", ErrDecode, validFrom, validTo)
	}

	return rec, nil
}

// get issues a GET request and returns the response body, classifying
// network and status failures as ErrTransport.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", ErrTransport, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("request cancelled: %w", context.Canceled)
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d from %s", ErrTransport, resp.StatusCode, endpoint)
	}

	return body, nil
}
