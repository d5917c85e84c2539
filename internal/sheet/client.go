package sheet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const fetchTimeout = 10 * time.Second

// Client fetches the current task table from the spreadsheet web endpoint.
// A failed fetch is an error, never an empty table: callers must treat it as
// data-unavailable and skip whatever they were about to do. The client does
// not retry; the next scheduled pass is the retry.
type Client struct {
	url        string
	secret     []byte
	httpClient *http.Client
}

// NewClient creates a sheet client for the given endpoint URL. If secret is
// non-empty, each request carries a short-lived HS256 bearer token for
// deployments that put a verifying proxy in front of the sheet webapp.
func NewClient(url, secret string) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: fetchTimeout},
	}
	if secret != "" {
		c.secret = []byte(secret)
	}
	return c
}

// Fetch retrieves all task rows. Elements of the response array that are not
// row objects are skipped, and a valid JSON body of any other top-level shape
// counts as zero usable rows. Only transport problems, non-2xx statuses, and
// bodies that are not JSON at all are errors.
func (c *Client) Fetch(ctx context.Context) ([]Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build sheet request: %w", err)
	}

	if c.secret != nil {
		token, err := c.bearerToken()
		if err != nil {
			return nil, fmt.Errorf("sign sheet token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Sheet] Fetch failed: %v", err)
		return nil, fmt.Errorf("fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		log.Printf("[Sheet] Fetch failed: status %d", resp.StatusCode)
		return nil, fmt.Errorf("fetch sheet: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[Sheet] Fetch failed: %v", err)
		return nil, fmt.Errorf("read sheet response: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		if json.Valid(body) {
			// A JSON object or scalar instead of an array: zero usable rows.
			log.Printf("[Sheet] Response is not an array, treating as zero rows")
			return []Row{}, nil
		}
		log.Printf("[Sheet] Fetch failed: %v", err)
		return nil, fmt.Errorf("decode sheet response: %w", err)
	}

	rows := make([]Row, 0, len(raw))
	for _, elem := range raw {
		var row Row
		if err := json.Unmarshal(elem, &row); err != nil {
			// Non-object array element; skip it like any other bad row.
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (c *Client) bearerToken() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": "chartkeeper",
		"iat": now.Unix(),
		"exp": now.Add(time.Minute).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}
