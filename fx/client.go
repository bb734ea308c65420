package fx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/folio/date"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// DefaultEndpoint serves historical reference rates keyed by day.
const DefaultEndpoint = "https://api.frankfurter.dev/v1"

// Client fetches exchange rates from a remote quote service. Responses
// are cached per (pair, day) and requests are rate limited, so a
// revaluation over many positions does not hammer the service.
type Client struct {
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
	cache    *cache.Cache
	log      zerolog.Logger
}

// NewClient creates a rate client against the given endpoint. An empty
// endpoint selects DefaultEndpoint.
func NewClient(endpoint string, log zerolog.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 15 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(5), 5),
		cache:    cache.New(24*time.Hour, time.Hour),
		log:      log.With().Str("component", "fx").Logger(),
	}
}

// Rate implements the book's rate source against the remote service.
// Historical rates never change, so the cache TTL is generous.
func (c *Client) Rate(from, to string, on date.Date) (decimal.Decimal, error) {
	return c.RateContext(context.Background(), from, to, on)
}

// RateContext is Rate with cancellation.
func (c *Client) RateContext(ctx context.Context, from, to string, on date.Date) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	key := fmt.Sprintf("%s/%s@%s", from, to, on)
	if v, ok := c.cache.Get(key); ok {
		return v.(decimal.Decimal), nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Decimal{}, err
	}
	addr := fmt.Sprintf("%s/%s?base=%s&symbols=%s", c.endpoint, on, from, to)
	var jobj any
	if err := c.jwget(ctx, addr, &jobj); err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s/%s on %s: %v", ErrRateNotFound, from, to, on, err)
	}

	jval, err := jsonpath.Get("$.rates."+to, jobj)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s/%s on %s: %v", ErrRateNotFound, from, to, on, err)
	}
	// jsonpath is never clear about whether it returns a list of one
	// answer or a single answer; keep the first one if any.
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	val, ok := jval.(float64)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s/%s on %s: rate is not a number (%v)", ErrRateNotFound, from, to, on, jval)
	}

	r := decimal.NewFromFloat(val)
	c.cache.Set(key, r, cache.DefaultExpiration)
	c.log.Debug().Str("pair", from+"/"+to).Stringer("on", on).Stringer("rate", r).Msg("fetched rate")
	return r, nil
}

// jwget performs an HTTP GET request and unmarshals the JSON response into
// the provided data structure.
func (c *Client) jwget(ctx context.Context, addr string, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot http GET %v/%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return err
	}
	return json.Unmarshal(buf.Bytes(), data)
}
