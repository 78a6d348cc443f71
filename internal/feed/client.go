// Package feed is the client for the external showtime feed. It speaks the
// feed's {success,data,error,details} envelope and translates every failure
// mode into a typed FetchError so callers never see a raw transport error.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"showtime-booking/internal/data/entity"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
)

// envelope is the response wrapper shared by both feed endpoints.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Details string          `json:"details"`
}

type Client struct {
	baseURL  string
	http     *http.Client
	attempts uint
	log      *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, attempts int, log *zap.Logger) *Client {
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		attempts: uint(attempts),
		log:      log.With(zap.String("client", "showtime-feed")),
	}
}

// FetchCities returns the distinct city names that currently have shows for
// a movie, sorted ascending.
func (c *Client) FetchCities(ctx context.Context, moviePID string) ([]string, error) {
	if moviePID == "" {
		return nil, ErrMissingMovieID
	}

	raw, err := c.get(ctx, "cities", url.Values{"moviepid": {moviePID}})
	if err != nil {
		return nil, err
	}

	var cities []string
	if err := json.Unmarshal(raw, &cities); err != nil {
		return nil, &FetchError{Op: "cities", Message: "unexpected payload shape", Err: err}
	}

	sort.Strings(cities)
	return cities, nil
}

// FetchShows returns the raw show records for a movie, optionally narrowed
// to one city. Records come back exactly as the feed sent them; grouping and
// temporal filtering happen downstream.
func (c *Client) FetchShows(ctx context.Context, moviePID, city string) ([]entity.Show, error) {
	if moviePID == "" {
		return nil, ErrMissingMovieID
	}

	query := url.Values{"moviepid": {moviePID}}
	if city != "" {
		query.Set("city", city)
	}

	raw, err := c.get(ctx, "shows", query)
	if err != nil {
		return nil, err
	}

	var shows []entity.Show
	if err := json.Unmarshal(raw, &shows); err != nil {
		return nil, &FetchError{Op: "shows", Message: "unexpected payload shape", Err: err}
	}

	return shows, nil
}

func (c *Client) get(ctx context.Context, op string, query url.Values) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/api/movieshows?%s", c.baseURL, query.Encode())

	var body []byte
	var status int

	// Only transport-level failures are retried. A response that arrived,
	// whatever its status, is final.
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			resp, err := c.http.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			status = resp.StatusCode
			body, err = io.ReadAll(resp.Body)
			return err
		},
		retry.Attempts(c.attempts),
		retry.Delay(200*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		c.log.Error("Feed request failed",
			zap.String("op", op),
			zap.String("url", endpoint),
			zap.Error(err),
		)
		return nil, &FetchError{Op: op, Err: err}
	}

	if status < 200 || status > 299 {
		msg := upstreamMessage(body)
		c.log.Warn("Feed returned non-success status",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("message", msg),
		)
		return nil, &FetchError{Op: op, StatusCode: status, Message: msg}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &FetchError{Op: op, StatusCode: status, Message: "undecodable response body", Err: err}
	}

	if !env.Success {
		msg := env.Details
		if msg == "" {
			msg = env.Error
		}
		if msg == "" {
			msg = "feed reported failure"
		}
		return nil, &FetchError{Op: op, StatusCode: status, Message: msg}
	}

	return env.Data, nil
}

// upstreamMessage pulls the details/error field out of an error body, when
// the feed bothered to send one.
func upstreamMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if env.Details != "" {
		return env.Details
	}
	return env.Error
}
