package driver

import (
	"testing"
	"time"

	"github.com/corvidchess/chesscore/internal/board"
	"github.com/corvidchess/chesscore/internal/config"
	"github.com/corvidchess/chesscore/internal/position"
)

func TestNewWithNoBookOrTablebaseConfiguredDisablesBoth(t *testing.T) {
	d := New(config.Default())
	if d.HasBook() {
		t.Error("HasBook() should be false with no configured book path")
	}
	if d.HasTablebase() {
		t.Error("HasTablebase() should be false with no configured tablebase path")
	}
}

func TestFindBestMoveReportsNoLegalMoves(t *testing.T) {
	d := New(config.Default())
	pos, err := position.NewFromFEN("R6k/6pp/8/8/8/8/8/K7 b - - 0 1")
	if err != nil {
		t.Fatalf("NewFromFEN: %v", err)
	}

	result := d.FindBestMove(pos, 5, time.Second)
	if !result.NoLegalMoves {
		t.Error("FindBestMove on a checkmated position should report NoLegalMoves")
	}
}

func TestFindBestMoveReturnsLegalMoveFromStartingPosition(t *testing.T) {
	d := New(config.Default())
	pos, err := position.NewFromFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	if err != nil {
		t.Fatalf("NewFromFEN: %v", err)
	}

	result := d.FindBestMove(pos, 3, 2*time.Second)
	if result.NoLegalMoves {
		t.Fatal("starting position should have legal moves")
	}
	if !pos.IsLegal(result.Move) {
		t.Errorf("FindBestMove returned illegal move %v", result.Move)
	}
}

func TestFindBestMoveAtDepthOneCompletesOneIteration(t *testing.T) {
	// maxDepth of 1 with a generous time budget should always complete at
	// least one iteration and never fall through to the random-move escape
	// hatch reserved for a deadline blown before depth 1 finishes.
	d := New(config.Default())
	pos, err := position.NewFromFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	if err != nil {
		t.Fatalf("NewFromFEN: %v", err)
	}

	result := d.FindBestMove(pos, 1, 2*time.Second)
	if result.Depth != 1 {
		t.Errorf("Depth = %d, want 1", result.Depth)
	}
}

func TestOnDepthCalledDuringIterativeDeepening(t *testing.T) {
	d := New(config.Default())
	pos, err := position.NewFromFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	if err != nil {
		t.Fatalf("NewFromFEN: %v", err)
	}

	var depthsSeen []int
	d.OnDepth = func(depth, score int, nodes uint64, elapsed time.Duration, pv []board.Move) {
		depthsSeen = append(depthsSeen, depth)
	}

	d.FindBestMove(pos, 3, 2*time.Second)
	if len(depthsSeen) == 0 {
		t.Fatal("expected OnDepth to be called at least once")
	}
	if depthsSeen[0] != 1 {
		t.Errorf("first OnDepth call reported depth %d, want 1", depthsSeen[0])
	}
}

func TestNewGameClearsTranspositionTable(t *testing.T) {
	d := New(config.Default())
	pos, err := position.NewFromFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	if err != nil {
		t.Fatalf("NewFromFEN: %v", err)
	}

	d.FindBestMove(pos, 2, time.Second)
	d.NewGame()
	if d.HashFull() != 0 {
		t.Errorf("HashFull() after NewGame = %d, want 0", d.HashFull())
	}
}

func TestSetBookPathWithEmptyPathDisablesBook(t *testing.T) {
	d := New(config.Default())
	d.SetBookPath("")
	if d.HasBook() {
		t.Error("SetBookPath(\"\") should leave the book disabled")
	}
}

func TestSetTablebasePathWithEmptyPathDisablesTablebase(t *testing.T) {
	d := New(config.Default())
	d.SetTablebasePath("")
	if d.HasTablebase() {
		t.Error("SetTablebasePath(\"\") should leave the tablebase disabled")
	}
}
