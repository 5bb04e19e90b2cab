// Package archive persists monthly game archives to the local cache
// directory, skipping any archive whose file already exists.
package archive

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const (
	archiveFileExtension      = ".pgn"
	fileNameSegmentSeparator  = "-"
	archiveFilePermissions    = 0o644
	errMessageEmptyUsername   = "username cannot be empty"
	errMessageUnusableURL     = "archive url has no usable path segments"
	errMessageStatFileFormat  = "stat archive file %s: %w"
	errMessageWriteFileFormat = "write archive file %s: %w"
)

var (
	errEmptyUsername = errors.New(errMessageEmptyUsername)
	errUnusableURL   = errors.New(errMessageUnusableURL)
)

// PGNFetcher downloads the plain-text game content of one archive.
type PGNFetcher interface {
	FetchArchivePGN(ctx context.Context, archiveURL string) (string, error)
}

// FileNameFor derives the deterministic local filename for one archive: the
// username joined with the archive URL's last two path segments, hyphen
// separated. A chess.com monthly archive ends in .../games/<year>/<month>,
// so magnus + .../games/2023/01 becomes magnus-2023-01.pgn.
func FileNameFor(username string, archiveURL string) (string, error) {
	trimmedUsername := strings.TrimSpace(username)
	if trimmedUsername == "" {
		return "", errEmptyUsername
	}

	parsedURL, parseErr := url.Parse(strings.TrimSpace(archiveURL))
	if parseErr != nil {
		return "", fmt.Errorf("parse archive url: %w", parseErr)
	}
	segments := splitPathSegments(parsedURL.Path)
	if len(segments) < 2 {
		return "", fmt.Errorf("%w: %s", errUnusableURL, archiveURL)
	}

	nameParts := []string{trimmedUsername, segments[len(segments)-2], segments[len(segments)-1]}
	return strings.Join(nameParts, fileNameSegmentSeparator) + archiveFileExtension, nil
}

// Download ensures the archive at archiveURL is present in the destination
// directory and returns its path. When the derived file already exists the
// network is never touched and the existing path is returned with downloaded
// set to false. Content is written verbatim, with no freshness check against
// the remote.
func Download(ctx context.Context, fetcher PGNFetcher, username string, archiveURL string, destinationDirectory string) (path string, downloaded bool, err error) {
	fileName, nameErr := FileNameFor(username, archiveURL)
	if nameErr != nil {
		return "", false, nameErr
	}
	filePath := filepath.Join(destinationDirectory, fileName)

	if _, statErr := os.Stat(filePath); statErr == nil {
		return filePath, false, nil
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return "", false, fmt.Errorf(errMessageStatFileFormat, filePath, statErr)
	}

	pgnContent, fetchErr := fetcher.FetchArchivePGN(ctx, archiveURL)
	if fetchErr != nil {
		return "", false, fetchErr
	}

	if writeErr := os.WriteFile(filePath, []byte(pgnContent), archiveFilePermissions); writeErr != nil {
		return "", false, fmt.Errorf(errMessageWriteFileFormat, filePath, writeErr)
	}
	return filePath, true, nil
}

func splitPathSegments(urlPath string) []string {
	cleanedPath := strings.Trim(urlPath, "/")
	if cleanedPath == "" {
		return nil
	}
	return strings.Split(cleanedPath, "/")
}
