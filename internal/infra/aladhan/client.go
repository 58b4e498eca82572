// Package aladhan is a small client for the AlAdhan prayer times API.
package aladhan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"mawakit/internal/domain/prayer"
)

var (
	// ErrUnexpectedStatus means the HTTP response was not 2xx.
	ErrUnexpectedStatus = errors.New("aladhan: unexpected HTTP status")
	// ErrUnexpectedCode means the body carried a code other than 200.
	ErrUnexpectedCode = errors.New("aladhan: unexpected response code")
)

// TimingsResult is the payload of a timingsByCity call.
type TimingsResult struct {
	Timings prayer.Timings `json:"timings"`
	Date    struct {
		Hijri     prayer.HijriDate     `json:"hijri"`
		Gregorian prayer.GregorianDate `json:"gregorian"`
	} `json:"date"`
}

type timingsResponse struct {
	Code int           `json:"code"`
	Data TimingsResult `json:"data"`
}

type calendarResponse struct {
	Code int                  `json:"code"`
	Data []prayer.CalendarDay `json:"data"`
}

// Client talks to the upstream API for one country and calculation method.
type Client struct {
	httpClient *http.Client
	baseURL    string
	country    string
	method     int
}

func NewClient(baseURL, country string, method int, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		country:    country,
		method:     method,
	}
}

// TimingsByCity fetches today's timings for city.
func (c *Client) TimingsByCity(ctx context.Context, city string) (*TimingsResult, error) {
	q := c.query(city)
	var resp timingsResponse
	if err := c.get(ctx, "/timingsByCity", q, &resp); err != nil {
		return nil, err
	}
	if resp.Code != http.StatusOK {
		return nil, fmt.Errorf("timingsByCity %s: %w (%d)", city, ErrUnexpectedCode, resp.Code)
	}
	return &resp.Data, nil
}

// CalendarByCity fetches the schedule of every day of month/year for city.
func (c *Client) CalendarByCity(ctx context.Context, city string, month, year int) ([]prayer.CalendarDay, error) {
	q := c.query(city)
	q.Set("month", strconv.Itoa(month))
	q.Set("year", strconv.Itoa(year))
	var resp calendarResponse
	if err := c.get(ctx, "/calendarByCity", q, &resp); err != nil {
		return nil, err
	}
	if resp.Code != http.StatusOK {
		return nil, fmt.Errorf("calendarByCity %s %d/%d: %w (%d)", city, month, year, ErrUnexpectedCode, resp.Code)
	}
	return resp.Data, nil
}

func (c *Client) query(city string) url.Values {
	q := url.Values{}
	q.Set("city", city)
	q.Set("country", c.country)
	q.Set("method", strconv.Itoa(c.method))
	return q
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("%s: %w (%d)", path, ErrUnexpectedStatus, res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
