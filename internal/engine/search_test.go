package engine

import (
	"testing"
	"time"

	"github.com/corvidchess/chesscore/internal/board"
	"github.com/corvidchess/chesscore/internal/position"
)

func newTestSearcher() *Searcher {
	tt := NewTranspositionTable(1)
	pawns := NewPawnTable(1)
	return NewSearcher(tt, pawns)
}

func TestSearchFindsMateInOne(t *testing.T) {
	// White to move: Ra1-a8 is back-rank mate, the black king boxed in by
	// its own pawns on f7/g7/h7.
	pos, err := position.NewFromFEN("6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1")
	if err != nil {
		t.Fatalf("NewFromFEN: %v", err)
	}

	s := newTestSearcher()
	move, score := s.Search(pos, 3, time.Time{})

	want, err := board.ParseMove("a1a8", pos.Raw())
	if err != nil {
		t.Fatalf("ParseMove: %v", err)
	}
	if move != want {
		t.Errorf("Search found move %v, want mating move %v", move, want)
	}
	if score < MateScore-10 {
		t.Errorf("Search score = %d, want a mate score close to %d", score, MateScore)
	}
}

func TestSearchPicksWinningCaptureOverQuietMove(t *testing.T) {
	pos, err := position.NewFromFEN("4k3/8/8/8/3q4/2P5/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatalf("NewFromFEN: %v", err)
	}

	s := newTestSearcher()
	move, _ := s.Search(pos, 2, time.Time{})

	want, err := board.ParseMove("c3d4", pos.Raw())
	if err != nil {
		t.Fatalf("ParseMove: %v", err)
	}
	if move != want {
		t.Errorf("Search found move %v, want the winning capture %v", move, want)
	}
}

func TestSearchRespectsDeadline(t *testing.T) {
	pos := position.New(board.NewPosition())
	s := newTestSearcher()

	deadline := time.Now().Add(-time.Second) // already elapsed
	s.Search(pos, 20, deadline)

	if !s.TimedOut() {
		t.Error("Search with an already-past deadline should report TimedOut")
	}
}

func TestSearchWindowFailLowReturnsBelowAlpha(t *testing.T) {
	pos := position.New(board.NewPosition())
	s := newTestSearcher()

	// An absurdly high floor no starting-position search can clear forces a
	// fail-low; the aspiration-window driver relies on detecting this via
	// the returned score, not a special sentinel.
	_, score := s.SearchWindow(pos, 3, Infinity-1, Infinity, time.Time{})
	if score >= Infinity-1 {
		t.Errorf("expected a fail-low score below the alpha floor, got %d", score)
	}
}

func TestGetPVNonEmptyAfterSearch(t *testing.T) {
	pos := position.New(board.NewPosition())
	s := newTestSearcher()

	s.Search(pos, 3, time.Time{})
	pv := s.GetPV()
	if len(pv) == 0 {
		t.Fatal("expected a non-empty principal variation after a completed search")
	}
	if !pos.IsLegal(pv[0]) {
		t.Errorf("PV root move %v is not legal in the root position", pv[0])
	}
}

func TestResetClearsNodeCountAndStopFlag(t *testing.T) {
	pos := position.New(board.NewPosition())
	s := newTestSearcher()

	s.Search(pos, 3, time.Time{})
	if s.Nodes() == 0 {
		t.Fatal("expected nonzero node count after a search")
	}

	s.Stop()
	s.Reset()
	if s.TimedOut() {
		t.Error("Reset should clear the stopped flag")
	}
}

func TestQuiescenceStandPatBoundsScore(t *testing.T) {
	pos, err := position.NewFromFEN("4k3/8/8/8/8/8/8/4K2Q w - - 0 1")
	if err != nil {
		t.Fatalf("NewFromFEN: %v", err)
	}

	s := newTestSearcher()
	s.pos = pos
	score := s.quiescence(0, 0, -Infinity, Infinity)

	standPat := Evaluate(pos.Raw())
	if score < standPat {
		t.Errorf("quiescence score %d should never fall below the stand-pat evaluation %d", score, standPat)
	}
}
