package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Source downloads one file with a Client.
type Source struct {
	client *Client
	url    string
}

// NewSource returns a Source that fetches url with client.
func NewSource(client *Client, url string) *Source {
	return &Source{client: client, url: url}
}

// Name returns the URL.
func (s *Source) Name() string { return s.url }

// Open fetches the file and returns its body. Any status outside 2xx is an
// error carrying the start of the response body.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("httpds: GET %s: %s: %s",
			s.url, http.StatusText(resp.StatusCode), strings.TrimSpace(string(snippet)))
	}
	return resp.Body, nil
}
