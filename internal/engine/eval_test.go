package engine

import (
	"testing"

	"github.com/corvidchess/chesscore/internal/board"
)

func TestEvaluateStartingPositionIsTempoOnly(t *testing.T) {
	pos := board.NewPosition()
	got := Evaluate(pos)
	if got != tempoBonus {
		t.Errorf("Evaluate(starting position) = %d, want %d (material and PSTs are symmetric, only tempo differs)", got, tempoBonus)
	}
}

func TestEvaluateIsSideToMoveRelative(t *testing.T) {
	// Same physical position, only the side to move differs: the
	// side-to-move-relative score must negate exactly, tempo bonus included.
	white, err := board.ParseFEN("4k3/8/8/8/8/8/4P3/4K3 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	black, err := board.ParseFEN("4k3/8/8/8/8/8/4P3/4K3 b - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}

	if Evaluate(white) != -Evaluate(black) {
		t.Errorf("Evaluate should negate under a side-to-move flip: white=%d black=%d", Evaluate(white), Evaluate(black))
	}
}

func TestEvaluateCheckmateScore(t *testing.T) {
	pos, err := board.ParseFEN("R6k/6pp/8/8/8/8/8/K7 b - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	if got := Evaluate(pos); got != CheckmateEvalScore {
		t.Errorf("Evaluate(checkmated position) = %d, want %d", got, CheckmateEvalScore)
	}
}

func TestEvaluateMaterialImbalance(t *testing.T) {
	pos, err := board.ParseFEN("4k3/8/8/8/8/8/8/4KQ2 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	if got := EvaluateMaterial(pos); got <= 0 {
		t.Errorf("EvaluateMaterial(extra queen) = %d, want > 0", got)
	}
}

func TestIsEndgame(t *testing.T) {
	if IsEndgame(board.NewPosition()) {
		t.Error("starting position should not be an endgame")
	}

	pos, err := board.ParseFEN("4k3/8/8/8/8/8/4P3/4K3 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	if !IsEndgame(pos) {
		t.Error("king and pawn position should be an endgame")
	}
}

func TestEvaluateWithPawnTableMatchesUncached(t *testing.T) {
	pos, err := board.ParseFEN("r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}

	pt := NewPawnTable(1)
	first := EvaluateWithPawnTable(pos, pt)
	second := EvaluateWithPawnTable(pos, pt) // exercises the cache hit path
	if first != second {
		t.Errorf("cached evaluation changed between calls: %d then %d", first, second)
	}
	if first != Evaluate(pos) {
		t.Errorf("EvaluateWithPawnTable = %d, want %d (matching uncached Evaluate)", first, Evaluate(pos))
	}
}

func TestSEEWinningCapture(t *testing.T) {
	pos, err := board.ParseFEN("4k3/8/8/8/3q4/2P5/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	capture, err := board.ParseMove("c3d4", pos)
	if err != nil {
		t.Fatalf("ParseMove: %v", err)
	}
	if got := SEE(pos, capture); got <= 0 {
		t.Errorf("SEE(pawn takes undefended queen) = %d, want > 0", got)
	}
}

func TestSEELosingCapture(t *testing.T) {
	pos, err := board.ParseFEN("4k3/8/3q4/4P3/8/4R3/8/4K3 b - - 0 1")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	capture, err := board.ParseMove("d6e5", pos)
	if err != nil {
		t.Fatalf("ParseMove: %v", err)
	}
	if got := SEE(pos, capture); got >= 0 {
		t.Errorf("SEE(queen takes pawn defended by rook) = %d, want < 0", got)
	}
}
