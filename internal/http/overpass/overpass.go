// Package overpass fetches points of interest from an Overpass API interpreter.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwise1/geofence_reminders/internal/model"
	"github.com/google/go-querystring/query"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const (
	DefaultInterpreterURL = "https://overpass-api.de/api/interpreter"

	fallbackName     = "Unknown"
	fallbackCategory = "Attraction"
)

// Client handles communication with an Overpass interpreter.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates an Overpass client. ratePerSec <= 0 disables rate limiting.
func NewClient(baseURL string, timeout time.Duration, ratePerSec float64) *Client {
	if baseURL == "" {
		baseURL = DefaultInterpreterURL
	}
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Query selects nodes carrying TagKey=TagValue within RadiusMeters of the center.
type Query struct {
	TagKey       string
	TagValue     string
	Latitude     float64
	Longitude    float64
	RadiusMeters int
}

// QL renders the query in Overpass QL.
func (q Query) QL() string {
	return fmt.Sprintf("[out:json];\nnode[%q=%q](around:%d,%s,%s);\nout body;",
		q.TagKey, q.TagValue, q.RadiusMeters,
		strconv.FormatFloat(q.Latitude, 'f', -1, 64),
		strconv.FormatFloat(q.Longitude, 'f', -1, 64))
}

type interpreterForm struct {
	Data string `url:"data"`
}

// Response is the subset of the interpreter JSON output we read.
type Response struct {
	Elements []Element `json:"elements"`
}

type Element struct {
	ID   int64             `json:"id"`
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
}

// FetchLocations runs q and maps every returned node to a Location.
// Any transport, status or decode failure is returned as an error and no
// partial result is kept.
func (c *Client) FetchLocations(ctx context.Context, q Query) ([]model.Location, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "wait for overpass rate limit")
	}

	form, err := query.Values(interpreterForm{Data: q.QL()})
	if err != nil {
		return nil, errors.Wrap(err, "encode overpass query")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "create overpass request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var result Response
	if err := c.do(req, &result); err != nil {
		return nil, errors.Wrap(err, "execute overpass request")
	}

	locations := make([]model.Location, 0, len(result.Elements))
	for _, el := range result.Elements {
		locations = append(locations, el.toLocation(q.TagKey))
	}
	return locations, nil
}

func (el Element) toLocation(categoryKey string) model.Location {
	name := el.Tags["name"]
	if name == "" {
		name = fallbackName
	}
	category := el.Tags[categoryKey]
	if category == "" {
		category = fallbackCategory
	}
	return model.Location{
		ID:        strconv.FormatInt(el.ID, 10),
		Name:      name,
		Latitude:  el.Lat,
		Longitude: el.Lon,
		Category:  category,
	}
}

func (c *Client) do(req *http.Request, v interface{}) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "execute HTTP request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
