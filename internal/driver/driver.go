// Package driver owns the mutable state shared across a root search —
// transposition table, pawn hash, move-ordering tables — and sequences the
// book probe, tablebase probe, and iterative-deepening loop that together
// pick a move for a position.
package driver

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/corvidchess/chesscore/internal/board"
	"github.com/corvidchess/chesscore/internal/book"
	"github.com/corvidchess/chesscore/internal/config"
	"github.com/corvidchess/chesscore/internal/engine"
	"github.com/corvidchess/chesscore/internal/position"
	"github.com/corvidchess/chesscore/internal/tablebase"
)

// Result is the outcome of FindBestMove. NoLegalMoves is the sentinel for a
// checkmated or stalemated root position; callers must check it before
// trusting Move.
type Result struct {
	Move         board.Move
	Score        int
	Depth        int
	NoLegalMoves bool
}

// Driver runs the search pipeline described by the configuration contract:
// book shortcut, tablebase shortcut, then iterative deepening with
// aspiration windows. It owns the transposition table, pawn hash, and
// searcher across calls so repeated searches from the same process keep
// benefiting from earlier work.
type Driver struct {
	cfg       config.Config
	tt        *engine.TranspositionTable
	pawns     *engine.PawnTable
	searcher  *engine.Searcher
	book      *book.Book
	tablebase tablebase.Prober

	// OnDepth, if set, is called after each iterative-deepening depth
	// completes, before the next depth starts. Used by the UCI front end
	// to emit "info depth ..." lines; unused in tests and headless callers.
	OnDepth func(depth, score int, nodes uint64, elapsed time.Duration, pv []board.Move)
}

// New builds a Driver from cfg, loading the opening book and tablebase if
// paths are configured. A load failure for either degrades that feature to
// disabled and logs once, per the driver's error-handling contract; it
// never prevents the driver from searching.
func New(cfg config.Config) *Driver {
	tt := engine.NewTranspositionTable(cfg.TTSizeMB())
	pawns := engine.NewPawnTable(8)
	searcher := engine.NewSearcher(tt, pawns)
	searcher.SetParams(cfg.SearchParams())

	d := &Driver{
		cfg:       cfg,
		tt:        tt,
		pawns:     pawns,
		searcher:  searcher,
		tablebase: tablebase.NoopProber{},
	}

	d.loadBook()
	d.loadTablebase()

	return d
}

func (d *Driver) loadBook() {
	if d.cfg.BookPath == "" {
		return
	}
	b, err := book.LoadPolyglot(d.cfg.BookPath)
	if err != nil {
		log.Warn().Err(err).Str("path", d.cfg.BookPath).Msg("opening book load failed, disabling book probe")
		return
	}
	d.book = b
	log.Info().Str("path", d.cfg.BookPath).Int("positions", b.Size()).Msg("opening book loaded")
}

func (d *Driver) loadTablebase() {
	if d.cfg.TablebasePath == "" {
		return
	}
	sp := tablebase.NewSyzygyProber(d.cfg.TablebasePath)
	if !sp.Available() {
		log.Warn().Str("path", d.cfg.TablebasePath).Msg("tablebase load failed, disabling tablebase probe")
		return
	}
	d.tablebase = sp
	log.Info().Str("path", d.cfg.TablebasePath).Int("max_pieces", sp.MaxPieces()).Msg("tablebase loaded")
}

// NewGame clears the transposition table and pawn hash and resets the
// move-ordering tables (killers and counter-moves cleared, history scores
// halved); the searcher's correction history is kept. Call between games,
// not between moves of the same game, so the TT keeps paying off across the
// driver's lifetime.
func (d *Driver) NewGame() {
	d.tt.Clear()
	d.pawns.Clear()
	d.searcher.Reset()
}

// Stop requests that an in-flight FindBestMove halt at its next deadline
// checkpoint.
func (d *Driver) Stop() { d.searcher.Stop() }

// Nodes returns the node count from the most recent search.
func (d *Driver) Nodes() uint64 { return d.searcher.Nodes() }

// HashFull returns the transposition table's permille fullness.
func (d *Driver) HashFull() int { return d.tt.HashFull() }

// SetBookPath reconfigures and reloads the opening book, or disables it if
// path is empty.
func (d *Driver) SetBookPath(path string) {
	d.cfg.BookPath = path
	d.book = nil
	d.loadBook()
}

// SetTablebasePath reconfigures and reloads the tablebase prober, or
// disables it if path is empty.
func (d *Driver) SetTablebasePath(path string) {
	d.cfg.TablebasePath = path
	d.tablebase = tablebase.NoopProber{}
	d.loadTablebase()
}

// HasBook reports whether an opening book is currently loaded.
func (d *Driver) HasBook() bool { return d.book != nil }

// HasTablebase reports whether a tablebase is currently loaded.
func (d *Driver) HasTablebase() bool { return d.tablebase.Available() }

// GetPV returns the principal variation from the most recently completed
// search depth.
func (d *Driver) GetPV() []board.Move { return d.searcher.GetPV() }

// FindBestMove runs the book → tablebase → iterative-deepening pipeline
// against pos and returns the chosen move. A zero timeBudget means search
// until maxDepth completes with no wall-clock limit.
func (d *Driver) FindBestMove(pos *position.Adapter, maxDepth int, timeBudget time.Duration) Result {
	legal := pos.LegalMoves()
	if legal.Len() == 0 {
		return Result{NoLegalMoves: true}
	}

	if d.book != nil {
		if mv, ok := d.book.Probe(pos.Raw()); ok {
			return Result{Move: mv}
		}
	}

	if d.tablebase.Available() && pos.PieceCount() <= tablebaseProbePieces {
		if mv, ok := d.probeTablebaseRoot(pos, legal); ok {
			return Result{Move: mv}
		}
	}

	return d.iterativeDeepen(pos, maxDepth, timeBudget, legal)
}

// tablebaseProbePieces mirrors the driver's piece_count<=5 tablebase gate.
const tablebaseProbePieces = 5

// probeTablebaseRoot implements the selection rule: prefer a winning
// zeroing move with the largest DTZ, else any winning move with the
// largest DTZ; failing a win, prefer a draw; failing a draw, prefer the
// losing move with the largest DTZ (the slowest loss). DTZ and WDL are read
// from the child position, so a loss recorded there means the opponent
//(now to move) is losing — i.e. our move just played is winning.
type tbCandidate struct {
	move    board.Move
	zeroing bool
	dtz     int
}

func (d *Driver) probeTablebaseRoot(pos *position.Adapter, legal *board.MoveList) (board.Move, bool) {
	var winning, drawing, losing []tbCandidate

	for i := 0; i < legal.Len(); i++ {
		move := legal.Get(i)
		zeroing := pos.IsZeroing(move)

		pos.Push(move)
		res := d.tablebase.Probe(pos.Raw())
		pos.Pop()

		if !res.Found {
			continue
		}

		c := tbCandidate{move: move, zeroing: zeroing, dtz: res.DTZ}
		switch res.WDL {
		case tablebase.WDLLoss, tablebase.WDLBlessedLoss:
			winning = append(winning, c)
		case tablebase.WDLDraw:
			drawing = append(drawing, c)
		case tablebase.WDLWin, tablebase.WDLCursedWin:
			losing = append(losing, c)
		}
	}

	if len(winning) > 0 {
		pool := filterZeroing(winning)
		if len(pool) == 0 {
			pool = winning
		}
		return largestDTZ(pool), true
	}
	if len(drawing) > 0 {
		return drawing[0].move, true
	}
	if len(losing) > 0 {
		return largestDTZ(losing), true
	}
	return board.NoMove, false
}

func filterZeroing(cands []tbCandidate) []tbCandidate {
	var out []tbCandidate
	for _, c := range cands {
		if c.zeroing {
			out = append(out, c)
		}
	}
	return out
}

func largestDTZ(cands []tbCandidate) board.Move {
	best := cands[0]
	for _, c := range cands[1:] {
		if c.dtz > best.dtz {
			best = c
		}
	}
	return best.move
}

// iterativeDeepen runs depth 1..maxDepth with aspiration windows, widening
// on a fail-low/fail-high per the configured widening schedule, and falls
// back to a random legal move if no depth completes before the deadline.
func (d *Driver) iterativeDeepen(pos *position.Adapter, maxDepth int, budget time.Duration, legal *board.MoveList) Result {
	var deadline time.Time
	if budget > 0 {
		deadline = time.Now().Add(budget)
	}

	var bestMove board.Move
	var bestScore int
	completedDepth := 0
	var prevPV []board.Move
	searchStart := time.Now()

	for depth := 1; depth <= maxDepth; depth++ {
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}

		d.searcher.SetPreviousPV(prevPV)

		alpha, beta := -engine.Infinity, engine.Infinity
		if depth > 1 {
			alpha = bestScore - d.cfg.AspirationInitialDelta
			beta = bestScore + d.cfg.AspirationInitialDelta
		}

		move, score, ok := d.searchAspirated(pos, depth, alpha, beta, deadline)
		if !ok {
			break
		}

		bestMove, bestScore = move, score
		completedDepth = depth
		prevPV = d.searcher.GetPV()

		log.Info().Int("depth", depth).Str("move", bestMove.String()).Int("value", bestScore).
			Msg("depth completed")

		if d.OnDepth != nil {
			d.OnDepth(depth, bestScore, d.searcher.Nodes(), time.Since(searchStart), prevPV)
		}
	}

	if completedDepth == 0 {
		idx := rand.Intn(legal.Len())
		return Result{Move: legal.Get(idx)}
	}

	return Result{Move: bestMove, Score: bestScore, Depth: completedDepth}
}

// searchAspirated runs one depth's aspiration-window search, widening per
// the configured schedule on a fail-low or fail-high and re-searching at
// the same depth. ok is false only when the deadline was exceeded, in
// which case the caller must discard the entire depth's result.
func (d *Driver) searchAspirated(pos *position.Adapter, depth, alpha, beta int, deadline time.Time) (board.Move, int, bool) {
	move, score := d.searcher.SearchWindow(pos, depth, alpha, beta, deadline)
	if d.searcher.TimedOut() {
		return board.NoMove, 0, false
	}

	for _, widen := range d.cfg.AspirationWidening {
		if score > alpha && score < beta {
			return move, score, true
		}

		if widen >= infiniteWidening {
			alpha, beta = -engine.Infinity, engine.Infinity
		} else {
			alpha, beta = score-widen, score+widen
		}

		move, score = d.searcher.SearchWindow(pos, depth, alpha, beta, deadline)
		if d.searcher.TimedOut() {
			return board.NoMove, 0, false
		}
	}

	return move, score, true
}

// infiniteWidening matches config.widenInfinite; duplicated here since that
// sentinel is private to the config package.
const infiniteWidening = 1<<31 - 1
