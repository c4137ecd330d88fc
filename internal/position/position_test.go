package position

import (
	"testing"

	"github.com/corvidchess/chesscore/internal/board"
)

func mustMove(t *testing.T, a *Adapter, uci string) board.Move {
	t.Helper()
	m, err := board.ParseMove(uci, a.Raw())
	if err != nil {
		t.Fatalf("ParseMove(%q): %v", uci, err)
	}
	return m
}

func TestPushPopRoundTrip(t *testing.T) {
	a := New(board.NewPosition())
	fenBefore := a.FEN()
	hashBefore := a.ZobristHash()

	m := mustMove(t, a, "e2e4")
	a.Push(m)
	if a.FEN() == fenBefore {
		t.Fatal("FEN unchanged after Push")
	}

	a.Pop()
	if a.FEN() != fenBefore {
		t.Errorf("FEN after Pop = %q, want %q", a.FEN(), fenBefore)
	}
	if a.ZobristHash() != hashBefore {
		t.Errorf("hash after Pop = %d, want %d", a.ZobristHash(), hashBefore)
	}
}

func TestPushPopNested(t *testing.T) {
	a := New(board.NewPosition())
	fenBefore := a.FEN()

	a.Push(mustMove(t, a, "e2e4"))
	a.Push(mustMove(t, a, "e7e5"))
	a.Push(mustMove(t, a, "g1f3"))
	a.Pop()
	a.Pop()
	a.Pop()

	if a.FEN() != fenBefore {
		t.Errorf("FEN after nested push/pop = %q, want %q", a.FEN(), fenBefore)
	}
}

func TestIsZeroingCaptureAndPawnMove(t *testing.T) {
	a := New(board.NewPosition())

	if a.IsZeroing(mustMove(t, a, "g1f3")) {
		t.Error("knight development should not be zeroing")
	}
	if !a.IsZeroing(mustMove(t, a, "e2e4")) {
		t.Error("pawn push should be zeroing")
	}

	pos, err := NewFromFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	if err != nil {
		t.Fatalf("NewFromFEN: %v", err)
	}
	if !pos.IsZeroing(mustMove(t, pos, "a1a8")) {
		t.Error("rook capture should be zeroing")
	}
}

func TestGivesCheckLeavesPositionUntouched(t *testing.T) {
	pos, err := NewFromFEN("6k1/8/8/8/8/8/8/R5K1 w - - 0 1")
	if err != nil {
		t.Fatalf("NewFromFEN: %v", err)
	}
	fenBefore := pos.FEN()

	m := mustMove(t, pos, "a1a8")
	if !pos.GivesCheck(m) {
		t.Error("Ra8 should give check")
	}
	if pos.FEN() != fenBefore {
		t.Errorf("GivesCheck mutated position: got %q, want %q", pos.FEN(), fenBefore)
	}
}

func TestIsInsufficientMaterial(t *testing.T) {
	pos, err := NewFromFEN("8/8/4k3/8/8/4K3/8/8 w - - 0 1")
	if err != nil {
		t.Fatalf("NewFromFEN: %v", err)
	}
	if !pos.IsInsufficientMaterial() {
		t.Error("bare kings should be insufficient material")
	}

	full := New(board.NewPosition())
	if full.IsInsufficientMaterial() {
		t.Error("starting position should not be insufficient material")
	}
}

func TestFiftyMoveRuleClaimable(t *testing.T) {
	pos, err := NewFromFEN("8/8/4k3/8/8/4K3/8/8 w - - 99 60")
	if err != nil {
		t.Fatalf("NewFromFEN: %v", err)
	}
	if pos.IsFiftyMoveRuleClaimable() {
		t.Error("halfmove clock 99 should not yet be claimable")
	}

	m := mustMove(t, pos, "e3d3")
	pos.Push(m)
	if !pos.IsFiftyMoveRuleClaimable() {
		t.Error("halfmove clock 100 should be claimable")
	}
}

func TestThreefoldRepetitionClaimable(t *testing.T) {
	a := New(board.NewPosition())
	startHash := a.ZobristHash()

	// Shuffle knights out and back once, returning to the start position.
	// The seeded history lists the start position twice, so the current
	// position is its third occurrence.
	history := []uint64{}
	play := func(uci string) {
		history = append(history, a.ZobristHash())
		a.Push(mustMove(t, a, uci))
	}
	play("g1f3")
	play("g8f6")
	play("f3g1")
	play("f6g8")
	a.SetHistory(append([]uint64{startHash}, history...))
	if !a.IsThreefoldRepetitionClaimable() {
		t.Fatal("expected first repetition of the start position to be claimable under the seeded history")
	}

	fresh := New(board.NewPosition())
	if fresh.IsThreefoldRepetitionClaimable() {
		t.Error("a fresh position with no prior history should never claim repetition")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	a := New(board.NewPosition())
	a.Push(mustMove(t, a, "e2e4"))

	clone := a.Clone()
	clone.Push(mustMove(t, clone, "e7e5"))

	if a.FEN() == clone.FEN() {
		t.Error("clone mutation should not affect the original adapter")
	}
}

func TestPieceCountAndSideToMove(t *testing.T) {
	a := New(board.NewPosition())
	if got := a.PieceCount(); got != 32 {
		t.Errorf("PieceCount() = %d, want 32", got)
	}
	if a.SideToMove() != board.White {
		t.Errorf("SideToMove() = %v, want White", a.SideToMove())
	}

	a.Push(mustMove(t, a, "e2e4"))
	if a.SideToMove() != board.Black {
		t.Errorf("SideToMove() after one ply = %v, want Black", a.SideToMove())
	}
}

func TestIsGameOverCheckmate(t *testing.T) {
	pos, err := NewFromFEN("R6k/6pp/8/8/8/8/8/K7 b - - 0 1")
	if err != nil {
		t.Fatalf("NewFromFEN: %v", err)
	}
	if !pos.IsGameOver() {
		t.Error("checkmate position should report game over")
	}
	if !pos.IsCheckmate() {
		t.Error("expected IsCheckmate true")
	}
}
