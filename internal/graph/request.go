package graph

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip, deflate, br"
)

// listResponse is the envelope Graph wraps around collection endpoints.
type listResponse struct {
	Value    json.RawMessage `json:"value"`
	NextLink string          `json:"@odata.nextLink"`
}

// list makes GET requests against a Graph collection endpoint and decodes
// items from all pages into target, following @odata.nextLink.
func (c *Client) list(ctx context.Context, listURL string, q url.Values, target any) error {
	var pages []json.RawMessage

	next := listURL
	query := q
	for next != "" {
		var response listResponse
		if err := c.getJSON(ctx, next, query, &response); err != nil {
			return err
		}

		pages = append(pages, response.Value)

		if response.NextLink != "" {
			c.logger.Debug("additional request needed", zap.String("reason", "response carries @odata.nextLink"))
		}

		// nextLink already encodes the query parameters.
		next = response.NextLink
		query = nil
	}

	return mergePages(pages, target)
}

// mergePages concatenates per-page JSON arrays and decodes them into target.
func mergePages(pages []json.RawMessage, target any) error {
	merged := make([]json.RawMessage, 0)
	for _, page := range pages {
		if len(page) == 0 {
			continue
		}

		var items []json.RawMessage
		if err := json.Unmarshal(page, &items); err != nil {
			return fmt.Errorf("decode collection page: %w", err)
		}
		merged = append(merged, items...)
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, target)
}

func (c *Client) getJSON(ctx context.Context, reqURL string, q url.Values, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	var gzipReader *gzip.Reader
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err = gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	if target == nil {
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return err
	}

	return nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}
