// Package opponents derives the set of opponents a tracked player has faced
// from a directory of downloaded PGN archives.
package opponents

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Mouselip/chess-archive-parser/internal/pgn"
)

const (
	archiveFileExtension        = ".pgn"
	errMessageEmptyUsername     = "tracked username cannot be empty"
	errMessageReadArchiveFormat = "read archive directory %s: %w"
	errMessageOpenFileFormat    = "open archive file %s: %w"
	errMessageReadGamesFormat   = "read games from %s: %w"
)

var errEmptyTrackedUsername = errors.New(errMessageEmptyUsername)

// CollectFromDirectory scans every .pgn file in the supplied directory and
// returns the distinct opponents of the tracked username as a sorted list of
// lowercase names. Games where the tracked player occupies neither or both
// sides contribute nothing, so self-play never records the player as its own
// opponent. Files with other extensions are ignored.
func CollectFromDirectory(trackedUsername string, archiveDirectory string) ([]string, error) {
	foldedTrackedUsername := strings.ToLower(strings.TrimSpace(trackedUsername))
	if foldedTrackedUsername == "" {
		return nil, errEmptyTrackedUsername
	}

	directoryEntries, readErr := os.ReadDir(archiveDirectory)
	if readErr != nil {
		return nil, fmt.Errorf(errMessageReadArchiveFormat, archiveDirectory, readErr)
	}

	opponentSet := make(map[string]struct{})
	for _, entry := range directoryEntries {
		if entry.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), archiveFileExtension) {
			continue
		}
		filePath := filepath.Join(archiveDirectory, entry.Name())
		if err := collectFromFile(foldedTrackedUsername, filePath, opponentSet); err != nil {
			return nil, err
		}
	}

	return sortedSetMembers(opponentSet), nil
}

func collectFromFile(foldedTrackedUsername string, filePath string, opponentSet map[string]struct{}) error {
	fileHandle, openErr := os.Open(filePath)
	if openErr != nil {
		return fmt.Errorf(errMessageOpenFileFormat, filePath, openErr)
	}
	defer fileHandle.Close()

	gameReader := pgn.NewReader(fileHandle)
	for {
		game, readErr := gameReader.NextGame()
		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf(errMessageReadGamesFormat, filePath, readErr)
		}
		if opponent, found := opponentOf(foldedTrackedUsername, game); found {
			opponentSet[opponent] = struct{}{}
		}
	}
}

// opponentOf returns the folded name on the other side of the board when
// exactly one side is the tracked player.
func opponentOf(foldedTrackedUsername string, game pgn.Game) (string, bool) {
	whitePlayer := strings.ToLower(strings.TrimSpace(game.White()))
	blackPlayer := strings.ToLower(strings.TrimSpace(game.Black()))

	whiteIsTracked := whitePlayer == foldedTrackedUsername
	blackIsTracked := blackPlayer == foldedTrackedUsername
	if whiteIsTracked == blackIsTracked {
		return "", false
	}
	if whiteIsTracked {
		return blackPlayer, blackPlayer != ""
	}
	return whitePlayer, whitePlayer != ""
}

func sortedSetMembers(memberSet map[string]struct{}) []string {
	members := make([]string, 0, len(memberSet))
	for member := range memberSet {
		members = append(members, member)
	}
	sort.Strings(members)
	return members
}
