package sandbox

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"

	"golang.org/x/net/publicsuffix"
)

// MaxFetchBody caps how much of a response body fetch() will read.
var MaxFetchBody = int64(1 << 20)

// Fetcher backs the fetch() function exposed to tenant code: plain GETs
// with a shared cookie jar.  Requests ride the invocation's context, so
// a hanging remote can't outlive the execution budget.
type Fetcher struct {
	client *http.Client
}

// FetchResponse is what tenant code sees.
type FetchResponse struct {
	StatusCode int
	Body       string
}

// NewFetcher makes a Fetcher with a cookie jar.
func NewFetcher() (*Fetcher, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &Fetcher{
		client: &http.Client{Jar: jar},
	}, nil
}

// Get performs the request.
func (f *Fetcher) Get(ctx context.Context, rawurl string) (*FetchResponse, error) {
	req, err := http.NewRequest("GET", rawurl, nil)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxFetchBody))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %s", rawurl, err)
	}

	return &FetchResponse{
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}, nil
}
