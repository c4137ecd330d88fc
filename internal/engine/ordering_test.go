package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corvidchess/chesscore/internal/board"
)

func TestScoreMovesTTMoveFirst(t *testing.T) {
	pos := board.NewPosition()
	moves := pos.GenerateLegalMoves()

	ttMove, err := board.ParseMove("e2e4", pos)
	if err != nil {
		t.Fatalf("ParseMove: %v", err)
	}

	mo := NewMoveOrderer()
	scores := mo.ScoreMoves(pos, moves, 0, ttMove, board.NoMove)
	SortMoves(moves, scores)

	if moves.Get(0) != ttMove {
		t.Errorf("after sorting, move 0 = %v, want TT move %v", moves.Get(0), ttMove)
	}
}

func TestScoreMovesPVBelowTT(t *testing.T) {
	pos := board.NewPosition()
	moves := pos.GenerateLegalMoves()

	ttMove, err := board.ParseMove("e2e4", pos)
	if err != nil {
		t.Fatalf("ParseMove: %v", err)
	}
	pvMove, err := board.ParseMove("d2d4", pos)
	if err != nil {
		t.Fatalf("ParseMove: %v", err)
	}

	mo := NewMoveOrderer()
	scores := mo.ScoreMoves(pos, moves, 0, ttMove, pvMove)
	SortMoves(moves, scores)

	if moves.Get(0) != ttMove {
		t.Fatalf("move 0 = %v, want TT move %v", moves.Get(0), ttMove)
	}
	if moves.Get(1) != pvMove {
		t.Errorf("move 1 = %v, want PV move %v", moves.Get(1), pvMove)
	}
}

func TestMVVLVAOrdersCapturesByVictimValue(t *testing.T) {
	pos, err := board.ParseFEN("4k3/8/8/2q1r3/3P4/8/8/4K3 w - - 0 1")
	assert.NoError(t, err)

	takeQueen, err := board.ParseMove("d4c5", pos)
	assert.NoError(t, err)
	takeRook, err := board.ParseMove("d4e5", pos)
	assert.NoError(t, err)

	mo := NewMoveOrderer()
	qScore := mo.scoreMove(pos, takeQueen, 0, board.NoMove, board.NoMove)
	rScore := mo.scoreMove(pos, takeRook, 0, board.NoMove, board.NoMove)
	assert.Greater(t, qScore, rScore, "PxQ should outrank PxR under MVV-LVA")
	assert.Greater(t, qScore, GoodCaptureBase, "a capture score should clear the good-capture base")
}

func TestPromotionOutranksQuietMove(t *testing.T) {
	pos, err := board.ParseFEN("8/P7/8/8/8/8/8/k6K w - - 0 1")
	assert.NoError(t, err)

	promo, err := board.ParseMove("a7a8q", pos)
	assert.NoError(t, err)
	quiet, err := board.ParseMove("h1h2", pos)
	assert.NoError(t, err)

	mo := NewMoveOrderer()
	promoScore := mo.scoreMove(pos, promo, 0, board.NoMove, board.NoMove)
	quietScore := mo.scoreMove(pos, quiet, 0, board.NoMove, board.NoMove)
	assert.Greater(t, promoScore, quietScore, "a queen promotion should outrank a quiet king move")
}

func TestUpdateKillersShiftsSlots(t *testing.T) {
	mo := NewMoveOrderer()
	a := board.NewMove(board.E2, board.E4)
	b := board.NewMove(board.D2, board.D4)

	mo.UpdateKillers(a, 3)
	mo.UpdateKillers(b, 3)

	if mo.killers[3][0] != b {
		t.Errorf("killers[3][0] = %v, want most recent %v", mo.killers[3][0], b)
	}
	if mo.killers[3][1] != a {
		t.Errorf("killers[3][1] = %v, want previous %v", mo.killers[3][1], a)
	}

	// Re-adding the current first killer must not duplicate it into slot 1.
	mo.UpdateKillers(b, 3)
	if mo.killers[3][1] != a {
		t.Errorf("re-inserting the first killer should leave slot 1 untouched: got %v, want %v", mo.killers[3][1], a)
	}
}

func TestHistoryHeuristicAccumulatesAndClamps(t *testing.T) {
	mo := NewMoveOrderer()
	m := board.NewMove(board.G1, board.F3)

	mo.UpdateHistory(m, 4, true)
	if got := mo.GetHistoryScore(m); got != 16 {
		t.Errorf("GetHistoryScore after one good update at depth 4 = %d, want 16", got)
	}

	mo.UpdateHistory(m, 4, false)
	if got := mo.GetHistoryScore(m); got != 0 {
		t.Errorf("GetHistoryScore after equal good/bad updates = %d, want 0", got)
	}
}

func TestClearAgesHistoryAndDropsKillers(t *testing.T) {
	mo := NewMoveOrderer()
	m := board.NewMove(board.G1, board.F3)
	mo.UpdateHistory(m, 10, true)
	mo.UpdateKillers(m, 0)

	mo.Clear()

	if got := mo.GetHistoryScore(m); got != 50 {
		t.Errorf("GetHistoryScore after Clear (aged by half) = %d, want 50", got)
	}
	if mo.killers[0][0] != board.NoMove {
		t.Errorf("killers[0][0] after Clear = %v, want NoMove", mo.killers[0][0])
	}
}

func TestCounterMoveRoundTrip(t *testing.T) {
	pos := board.NewPosition()
	mo := NewMoveOrderer()

	prev := board.NewMove(board.E2, board.E4)
	counter := board.NewMove(board.E7, board.E5)

	if mo.GetCounterMove(prev, pos) != board.NoMove {
		t.Fatal("expected no counter move before any update")
	}

	// UpdateCounterMove keys off the piece now sitting on prev's destination
	// square, so prev must already be on the board, as it is at the call site
	// in negamax (the position reflects prevMove having been played to reach
	// the current node).
	pos.MakeMove(prev)
	mo.UpdateCounterMove(prev, counter, pos)

	if got := mo.GetCounterMove(prev, pos); got != counter {
		t.Errorf("GetCounterMove = %v, want %v", got, counter)
	}
}
