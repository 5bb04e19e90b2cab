package chesscom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURLString         = "https://api.chess.com/pub"
	archiveListPathFormat        = "/player/%s/games/archives"
	profilePathFormat            = "/player/%s"
	archivePGNSuffix             = "/pgn"
	userAgentHeaderName          = "User-Agent"
	defaultUserAgentValue        = "chess-archive-parser/1.0"
	errMessageEmptyUsername      = "username cannot be empty"
	errMessageEmptyArchiveURL    = "archive url cannot be empty"
	errMessageUnexpectedStatus   = "unexpected status code"
	errMessageDecodeArchiveList  = "decode archive list"
	errMessageReadArchiveBody    = "read archive body"
	maxErrorBodyDrainBytes       = 1024
	defaultDialTimeout           = 5 * time.Second
	defaultTLSHandshakeTimeout   = 5 * time.Second
	defaultResponseHeaderTimeout = 10 * time.Second
	defaultHTTPTimeout           = 30 * time.Second
)

var (
	errEmptyUsername   = errors.New(errMessageEmptyUsername)
	errEmptyArchiveURL = errors.New(errMessageEmptyArchiveURL)
)

// Config customizes a Client instance.
type Config struct {
	BaseURL   string
	Client    *http.Client
	UserAgent string
}

// Client talks to the chess.com published-data API.
type Client struct {
	httpClient   *http.Client
	baseURL      *url.URL
	userAgent    string
	profileCache profileCache
}

type archiveListResponse struct {
	Archives []string `json:"archives"`
}

// NewClient constructs a Client with sensible defaults for HTTP timeouts.
func NewClient(configuration Config) (*Client, error) {
	baseURLString := configuration.BaseURL
	if strings.TrimSpace(baseURLString) == "" {
		baseURLString = defaultBaseURLString
	}
	parsedBaseURL, err := url.Parse(baseURLString)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	httpClient := configuration.Client
	if httpClient == nil {
		httpClient = newHTTPClient()
	}
	if httpClient.Timeout == 0 {
		httpClient.Timeout = defaultHTTPTimeout
	}

	userAgent := strings.TrimSpace(configuration.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgentValue
	}

	client := &Client{
		httpClient:   httpClient,
		baseURL:      parsedBaseURL,
		userAgent:    userAgent,
		profileCache: newProfileCache(),
	}
	return client, nil
}

// ListArchives returns the archive URLs published for the supplied username.
// An account with no completed games yields an empty list.
func (client *Client) ListArchives(ctx context.Context, username string) ([]string, error) {
	trimmedUsername := strings.TrimSpace(username)
	if trimmedUsername == "" {
		return nil, errEmptyUsername
	}

	requestURL := client.resolvePath(fmt.Sprintf(archiveListPathFormat, url.PathEscape(trimmedUsername)))
	httpResponse, err := client.get(ctx, requestURL)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(httpResponse.Body)

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: %d", errMessageUnexpectedStatus, httpResponse.StatusCode)
	}

	var listResponse archiveListResponse
	if decodeErr := json.NewDecoder(httpResponse.Body).Decode(&listResponse); decodeErr != nil {
		return nil, fmt.Errorf("%s: %w", errMessageDecodeArchiveList, decodeErr)
	}
	return listResponse.Archives, nil
}

// FetchArchivePGN downloads the PGN rendition of one monthly archive and
// returns the response body verbatim.
func (client *Client) FetchArchivePGN(ctx context.Context, archiveURL string) (string, error) {
	trimmedArchiveURL := strings.TrimSpace(archiveURL)
	if trimmedArchiveURL == "" {
		return "", errEmptyArchiveURL
	}

	httpResponse, err := client.get(ctx, trimmedArchiveURL+archivePGNSuffix)
	if err != nil {
		return "", err
	}
	defer drainAndClose(httpResponse.Body)

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return "", fmt.Errorf("%s: %d", errMessageUnexpectedStatus, httpResponse.StatusCode)
	}

	bodyBytes, readErr := io.ReadAll(httpResponse.Body)
	if readErr != nil {
		return "", fmt.Errorf("%s: %w", errMessageReadArchiveBody, readErr)
	}
	return string(bodyBytes), nil
}

func (client *Client) get(ctx context.Context, requestURL string) (*http.Response, error) {
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	httpRequest.Header.Set(userAgentHeaderName, client.userAgent)
	return client.httpClient.Do(httpRequest)
}

func (client *Client) resolvePath(path string) string {
	return strings.TrimRight(client.baseURL.String(), "/") + path
}

func drainAndClose(body io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(body, maxErrorBodyDrainBytes))
	body.Close()
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   defaultHTTPTimeout,
		Transport: defaultTransport(),
	}
}

func defaultTransport() http.RoundTripper {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   defaultTLSHandshakeTimeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxConnsPerHost:       100,
		ResponseHeaderTimeout: defaultResponseHeaderTimeout,
	}
}
