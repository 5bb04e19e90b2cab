package chesscom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

const (
	memberURLFormat           = "https://www.chess.com/member/%s"
	errMessageProfileNotFound = "profile not found"
	errMessageDecodeProfile   = "decode profile"
	maxProfileBodyBytes       = 256 * 1024
)

// ErrProfileNotFound reports that the profile endpoint returned HTTP 404.
// A vanished account is an expected outcome, not a transport failure.
var ErrProfileNotFound = errors.New(errMessageProfileNotFound)

// AccountInfo is the fixed-shape profile record written to the report tables.
// Fields absent from the upstream response stay at their zero values.
type AccountInfo struct {
	PlayerID    int64
	APIURL      string
	UserURL     string
	Username    string
	Title       string
	Followers   int64
	CountryCode string
	LastOnline  int64
	Joined      int64
	Status      string
	League      string
}

type profileResponse struct {
	PlayerID   int64  `json:"player_id"`
	APIURL     string `json:"@id"`
	Username   string `json:"username"`
	Title      string `json:"title"`
	Followers  int64  `json:"followers"`
	CountryURL string `json:"country"`
	LastOnline int64  `json:"last_online"`
	Joined     int64  `json:"joined"`
	Status     string `json:"status"`
	League     string `json:"league"`
}

type profileCache struct {
	entries     map[string]profileCacheEntry
	entriesLock sync.RWMutex
	flightGroup singleflight.Group
}

type profileCacheEntry struct {
	info AccountInfo
	err  error
}

func newProfileCache() profileCache {
	return profileCache{entries: make(map[string]profileCacheEntry)}
}

// FetchProfile retrieves account metadata for one username. HTTP 404 yields
// ErrProfileNotFound; other transport or status failures yield a descriptive
// error. Results are memoized for the lifetime of the client, so each
// username costs at most one request per run.
func (client *Client) FetchProfile(ctx context.Context, username string) (AccountInfo, error) {
	trimmedUsername := strings.TrimSpace(username)
	if trimmedUsername == "" {
		return AccountInfo{}, errEmptyUsername
	}

	client.profileCache.entriesLock.RLock()
	if entry, found := client.profileCache.entries[trimmedUsername]; found {
		client.profileCache.entriesLock.RUnlock()
		return entry.info, entry.err
	}
	client.profileCache.entriesLock.RUnlock()

	resultChannel := client.profileCache.flightGroup.DoChan(trimmedUsername, func() (interface{}, error) {
		info, fetchErr := client.fetchProfile(ctx, trimmedUsername)
		client.profileCache.entriesLock.Lock()
		client.profileCache.entries[trimmedUsername] = profileCacheEntry{info: info, err: fetchErr}
		client.profileCache.entriesLock.Unlock()
		return info, fetchErr
	})

	select {
	case <-ctx.Done():
		return AccountInfo{}, ctx.Err()
	case result := <-resultChannel:
		if result.Err != nil {
			return AccountInfo{}, result.Err
		}
		info, _ := result.Val.(AccountInfo)
		return info, nil
	}
}

func (client *Client) fetchProfile(ctx context.Context, username string) (AccountInfo, error) {
	requestURL := client.resolvePath(fmt.Sprintf(profilePathFormat, url.PathEscape(username)))
	httpResponse, err := client.get(ctx, requestURL)
	if err != nil {
		return AccountInfo{}, err
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode == http.StatusNotFound {
		drainBody(httpResponse.Body)
		return AccountInfo{}, ErrProfileNotFound
	}
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		drainBody(httpResponse.Body)
		return AccountInfo{}, fmt.Errorf("%s: %d", errMessageUnexpectedStatus, httpResponse.StatusCode)
	}

	var wireProfile profileResponse
	limitedReader := io.LimitReader(httpResponse.Body, maxProfileBodyBytes)
	if decodeErr := json.NewDecoder(limitedReader).Decode(&wireProfile); decodeErr != nil {
		return AccountInfo{}, fmt.Errorf("%s: %w", errMessageDecodeProfile, decodeErr)
	}
	return buildAccountInfo(wireProfile, username), nil
}

func buildAccountInfo(wireProfile profileResponse, requestedUsername string) AccountInfo {
	canonicalUsername := strings.TrimSpace(wireProfile.Username)
	if canonicalUsername == "" {
		canonicalUsername = requestedUsername
	}

	return AccountInfo{
		PlayerID:    wireProfile.PlayerID,
		APIURL:      wireProfile.APIURL,
		UserURL:     fmt.Sprintf(memberURLFormat, canonicalUsername),
		Username:    canonicalUsername,
		Title:       wireProfile.Title,
		Followers:   wireProfile.Followers,
		CountryCode: countryCodeFromURL(wireProfile.CountryURL),
		LastOnline:  wireProfile.LastOnline,
		Joined:      wireProfile.Joined,
		Status:      wireProfile.Status,
		League:      wireProfile.League,
	}
}

func countryCodeFromURL(countryURL string) string {
	cleanedPath := strings.Trim(strings.TrimSpace(countryURL), "/")
	if cleanedPath == "" {
		return ""
	}
	segments := strings.Split(cleanedPath, "/")
	return segments[len(segments)-1]
}

func drainBody(body io.Reader) {
	io.Copy(io.Discard, io.LimitReader(body, maxErrorBodyDrainBytes))
}
