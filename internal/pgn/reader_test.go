package pgn_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/Mouselip/chess-archive-parser/internal/pgn"
)

const (
	readerTestSingleGame = `[Event "Live Chess"]
[White "Magnus"]
[Black "hikaru"]
[Result "1-0"]

1. e4 e5 2. Nf3 Nc6 1-0
`

	readerTestTwoGames = `[Event "Live Chess"]
[White "alpha"]
[Black "beta"]

1. d4 d5 1/2-1/2

[Event "Live Chess"]
[White "gamma"]
[Black "delta"]

1. c4 e5 0-1
`

	readerTestNoSeparatorBetweenGames = `[White "one"]
[Black "two"]
1. e4 e5 1-0
[White "three"]
[Black "four"]
1. d4 d5 0-1
`

	readerTestTrailingGarbage = `[White "solo"]
[Black "partner"]

1. e4 e5 1-0

this line is not a game
`
)

func TestReaderNextGame(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name           string
		input          string
		expectedWhites []string
		expectedBlacks []string
	}{
		{
			name:           "single game",
			input:          readerTestSingleGame,
			expectedWhites: []string{"Magnus"},
			expectedBlacks: []string{"hikaru"},
		},
		{
			name:           "two games separated by blank lines",
			input:          readerTestTwoGames,
			expectedWhites: []string{"alpha", "gamma"},
			expectedBlacks: []string{"beta", "delta"},
		},
		{
			name:           "games without separating blank lines",
			input:          readerTestNoSeparatorBetweenGames,
			expectedWhites: []string{"one", "three"},
			expectedBlacks: []string{"two", "four"},
		},
		{
			name:           "empty stream",
			input:          "",
			expectedWhites: nil,
			expectedBlacks: nil,
		},
		{
			name:           "only blank lines",
			input:          "\n\n\n",
			expectedWhites: nil,
			expectedBlacks: nil,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			reader := pgn.NewReader(strings.NewReader(testCase.input))
			var whites []string
			var blacks []string
			for {
				game, readErr := reader.NextGame()
				if errors.Is(readErr, io.EOF) {
					break
				}
				if readErr != nil {
					t.Fatalf("unexpected read error: %v", readErr)
				}
				if game.White() == "" && game.Black() == "" {
					continue
				}
				whites = append(whites, game.White())
				blacks = append(blacks, game.Black())
			}

			if len(whites) != len(testCase.expectedWhites) {
				t.Fatalf("expected %d games, got %d", len(testCase.expectedWhites), len(whites))
			}
			for gameIndex := range whites {
				if whites[gameIndex] != testCase.expectedWhites[gameIndex] {
					t.Errorf("game %d: expected white %q, got %q", gameIndex, testCase.expectedWhites[gameIndex], whites[gameIndex])
				}
				if blacks[gameIndex] != testCase.expectedBlacks[gameIndex] {
					t.Errorf("game %d: expected black %q, got %q", gameIndex, testCase.expectedBlacks[gameIndex], blacks[gameIndex])
				}
			}
		})
	}
}

func TestReaderStopsCleanlyOnTrailingGarbage(t *testing.T) {
	t.Parallel()

	reader := pgn.NewReader(strings.NewReader(readerTestTrailingGarbage))

	firstGame, firstErr := reader.NextGame()
	if firstErr != nil {
		t.Fatalf("unexpected error reading first game: %v", firstErr)
	}
	if firstGame.White() != "solo" || firstGame.Black() != "partner" {
		t.Fatalf("unexpected headers: white=%q black=%q", firstGame.White(), firstGame.Black())
	}

	for {
		game, readErr := reader.NextGame()
		if errors.Is(readErr, io.EOF) {
			return
		}
		if readErr != nil {
			t.Fatalf("expected clean end of stream, got %v", readErr)
		}
		if game.White() != "" || game.Black() != "" {
			t.Fatalf("garbage content produced player headers: white=%q black=%q", game.White(), game.Black())
		}
	}
}

func TestGameTagLookupIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	reader := pgn.NewReader(strings.NewReader(readerTestSingleGame))
	game, readErr := reader.NextGame()
	if readErr != nil {
		t.Fatalf("unexpected read error: %v", readErr)
	}
	if game.Tag("WHITE") != "Magnus" {
		t.Errorf("expected case-insensitive tag lookup, got %q", game.Tag("WHITE"))
	}
	if game.Tag("result") != "1-0" {
		t.Errorf("expected result tag, got %q", game.Tag("result"))
	}
	if game.Tag("missing") != "" {
		t.Errorf("expected empty value for absent tag, got %q", game.Tag("missing"))
	}
}
