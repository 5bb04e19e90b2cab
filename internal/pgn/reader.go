// Package pgn reads games out of Portable Game Notation streams. Only the
// tag-pair headers are interpreted; movetext is consumed and discarded.
package pgn

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

const (
	tagNameWhite = "white"
	tagNameBlack = "black"

	tagPairPattern    = `^\[([A-Za-z0-9_]+)\s+"(.*)"\]\s*$`
	scannerBufferSize = 1024 * 1024
)

var tagPairExpression = regexp.MustCompile(tagPairPattern)

// Game is one parsed game record. Tag names are matched case-insensitively.
type Game struct {
	tags map[string]string
}

// Tag returns the value of the named tag pair, or "" when absent.
func (game Game) Tag(name string) string {
	return game.tags[strings.ToLower(name)]
}

// White returns the White player's username from the game headers.
func (game Game) White() string {
	return game.Tag(tagNameWhite)
}

// Black returns the Black player's username from the game headers.
func (game Game) Black() string {
	return game.Tag(tagNameBlack)
}

// Reader yields games from a PGN stream one at a time.
type Reader struct {
	scanner     *bufio.Scanner
	pendingLine string
	hasPending  bool
}

// NewReader wraps the supplied stream in a sequential game reader.
func NewReader(source io.Reader) *Reader {
	scanner := bufio.NewScanner(source)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), scannerBufferSize)
	return &Reader{scanner: scanner}
}

// NextGame returns the next game in the stream. io.EOF signals a clean end
// of stream. Structurally unusable trailing content is treated as end of
// stream rather than an error.
func (reader *Reader) NextGame() (Game, error) {
	game := Game{tags: make(map[string]string)}
	sawContent := false

	// Header section: tag pairs, possibly preceded by blank lines.
	for {
		line, ok := reader.nextLine()
		if !ok {
			break
		}
		trimmedLine := strings.TrimSpace(line)
		if trimmedLine == "" {
			if len(game.tags) > 0 {
				break
			}
			continue
		}
		match := tagPairExpression.FindStringSubmatch(trimmedLine)
		if match == nil {
			reader.pushBack(line)
			break
		}
		game.tags[strings.ToLower(match[1])] = match[2]
		sawContent = true
	}

	// Movetext section: consume until a blank line or the next tag pair.
	for {
		line, ok := reader.nextLine()
		if !ok {
			break
		}
		trimmedLine := strings.TrimSpace(line)
		if trimmedLine == "" {
			break
		}
		if tagPairExpression.MatchString(trimmedLine) {
			reader.pushBack(line)
			break
		}
		sawContent = true
	}

	if !sawContent && len(game.tags) == 0 {
		if scanErr := reader.scanner.Err(); scanErr != nil {
			return Game{}, scanErr
		}
		return Game{}, io.EOF
	}
	return game, nil
}

func (reader *Reader) nextLine() (string, bool) {
	if reader.hasPending {
		reader.hasPending = false
		return reader.pendingLine, true
	}
	if reader.scanner.Scan() {
		return reader.scanner.Text(), true
	}
	return "", false
}

func (reader *Reader) pushBack(line string) {
	reader.pendingLine = line
	reader.hasPending = true
}
