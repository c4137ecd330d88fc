package uci

import (
	"testing"
	"time"

	"github.com/corvidchess/chesscore/internal/board"
	"github.com/corvidchess/chesscore/internal/config"
	"github.com/corvidchess/chesscore/internal/driver"
	"github.com/corvidchess/chesscore/internal/position"
)

func newTestUCI() *UCI {
	return New(driver.New(config.Default()), config.Default())
}

func TestParseMoveValidCoordinateMove(t *testing.T) {
	u := newTestUCI()
	m := u.parseMove("e2e4")
	if m == board.NoMove {
		t.Fatal("parseMove(\"e2e4\") returned NoMove from the starting position")
	}
	if m.From() != board.E2 || m.To() != board.E4 {
		t.Errorf("parseMove(\"e2e4\") = from %v to %v, want e2-e4", m.From(), m.To())
	}
}

func TestParseMoveRejectsIllegalMove(t *testing.T) {
	u := newTestUCI()
	if m := u.parseMove("e2e5"); m != board.NoMove {
		t.Errorf("parseMove(\"e2e5\") = %v, want NoMove (two-square pawn hop to e5 is illegal)", m)
	}
}

func TestParseMoveRejectsMalformedInput(t *testing.T) {
	u := newTestUCI()
	for _, s := range []string{"", "e2", "z9z9"} {
		if m := u.parseMove(s); m != board.NoMove {
			t.Errorf("parseMove(%q) = %v, want NoMove", s, m)
		}
	}
}

func TestParseMoveDisambiguatesPromotion(t *testing.T) {
	u := newTestUCI()

	p, err := position.NewFromFEN("8/P7/8/8/8/8/8/k6K w - - 0 1")
	if err != nil {
		t.Fatalf("NewFromFEN: %v", err)
	}
	u.pos = p

	m := u.parseMove("a7a8q")
	if m == board.NoMove {
		t.Fatal("parseMove(\"a7a8q\") returned NoMove for a legal promotion")
	}
	if !m.IsPromotion() || m.Promotion() != board.Queen {
		t.Errorf("parseMove(\"a7a8q\") promotion = %v, want Queen", m.Promotion())
	}
}

func TestHandlePositionStartposWithMoves(t *testing.T) {
	u := newTestUCI()
	u.handlePosition([]string{"startpos", "moves", "e2e4", "e7e5"})

	if got, want := u.pos.FEN(), "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2"; got != want {
		t.Errorf("FEN after startpos+moves = %q, want %q", got, want)
	}
	if len(u.positionHashes) != 3 {
		t.Errorf("positionHashes length = %d, want 3 (root + two plies)", len(u.positionHashes))
	}
}

func TestHandlePositionFEN(t *testing.T) {
	u := newTestUCI()
	u.handlePosition([]string{"fen", "8/8/8/8/8/8/8/k6K", "w", "-", "-", "0", "1"})

	if got, want := u.pos.FEN(), "8/8/8/8/8/8/8/k6K w - - 0 1"; got != want {
		t.Errorf("FEN after position fen = %q, want %q", got, want)
	}
}

func TestFindMovesKeyword(t *testing.T) {
	args := []string{"startpos", "moves", "e2e4"}
	if got := findMovesKeyword(args, 0); got != 2 {
		t.Errorf("findMovesKeyword = %d, want 2", got)
	}

	noMoves := []string{"startpos"}
	if got := findMovesKeyword(noMoves, 0); got != len(noMoves) {
		t.Errorf("findMovesKeyword with no keyword = %d, want %d", got, len(noMoves))
	}
}

func TestCalculateTimeForMoveStaysWithinBudget(t *testing.T) {
	u := newTestUCI()
	opts := GoOptions{WTime: 10 * time.Second, WInc: 100 * time.Millisecond}

	got := u.calculateTimeForMove(opts)
	if got <= 0 {
		t.Fatal("calculateTimeForMove returned a non-positive duration")
	}
	if got > 9*time.Second {
		t.Errorf("calculateTimeForMove = %v, should stay well under the full clock", got)
	}
}

func TestCalculateTimeForMoveHasAFloor(t *testing.T) {
	u := newTestUCI()
	opts := GoOptions{WTime: time.Millisecond}

	if got := u.calculateTimeForMove(opts); got < 10*time.Millisecond {
		t.Errorf("calculateTimeForMove = %v, want >= 10ms floor", got)
	}
}

func TestPerftStartingPositionDepth3(t *testing.T) {
	pos := board.NewPosition()
	if got, want := perft(pos, 3), uint64(8902); got != want {
		t.Errorf("perft(3) = %d, want %d", got, want)
	}
}
