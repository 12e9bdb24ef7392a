package influxdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// maxResponseSize caps how much of a query response is read into memory.
const maxResponseSize = 10 << 20 // 10 MB

// Query is an InfluxQL statement with bound parameters.
//
// Placeholders in Command are written $key and are substituted by the
// server from Params, so values never become part of the statement text.
type Query struct {
	Command string
	Params  map[string]any
}

// String renders the query with every placeholder replaced by its quoted
// value. It is meant for logs and tests; Execute never sends this form.
func (q Query) String() string {
	if len(q.Params) == 0 {
		return q.Command
	}

	// Longest keys first so $name never clobbers $name_suffix.
	keys := make([]string, 0, len(q.Params))
	for k := range q.Params {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	out := q.Command
	for _, k := range keys {
		out = strings.ReplaceAll(out, "$"+k, quoteLiteral(q.Params[k]))
	}
	return out
}

// quoteLiteral renders a parameter value as an InfluxQL literal.
func quoteLiteral(v any) string {
	switch val := v.(type) {
	case string:
		s := strings.ReplaceAll(val, `\`, `\\`)
		s = strings.ReplaceAll(s, `'`, `\'`)
		return "'" + s + "'"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// queryResponse is the subset of the /query envelope inspected for errors.
type queryResponse struct {
	Error   string `json:"error"`
	Results []struct {
		Error string `json:"error"`
	} `json:"results"`
}

// Query executes q against the client's database through the /query endpoint.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - q: Statement and bound parameters
//
// Returns:
//   - json.RawMessage: The server's JSON response, unmodified
//   - error: ErrQueryFailed on transport errors, non-200 statuses, or
//     errors reported inside the response envelope
func (c *Client) Query(ctx context.Context, q Query) (json.RawMessage, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	if strings.TrimSpace(q.Command) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrQueryFailed)
	}

	params := url.Values{}
	params.Set("db", c.params.Database)
	params.Set("q", q.Command)
	if len(q.Params) > 0 {
		bound, err := json.Marshal(q.Params)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding params: %w", ErrQueryFailed, err)
		}
		params.Set("params", string(bound))
	}

	return c.doQuery(ctx, params)
}

// doQuery executes a query request and returns the raw response body.
func (c *Client) doQuery(ctx context.Context, params url.Values) (json.RawMessage, error) {
	endpoint := c.params.BaseURL() + "/query?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", ErrQueryFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.params.Username != "" {
		req.SetBasicAuth(c.params.Username, c.params.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: executing query: %w", ErrQueryFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrQueryFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrQueryFailed, resp.StatusCode)
	}

	var envelope queryResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrQueryFailed, err)
	}
	if envelope.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrQueryFailed, envelope.Error)
	}
	for _, r := range envelope.Results {
		if r.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrQueryFailed, r.Error)
		}
	}

	return json.RawMessage(body), nil
}
