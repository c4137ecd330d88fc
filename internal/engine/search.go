package engine

import (
	"time"

	"github.com/corvidchess/chesscore/internal/board"
	"github.com/corvidchess/chesscore/internal/position"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
)

// nmrPhaseFloor gates null-move pruning to positions with at least 20% of
// the game's non-pawn material still on the board, per the phase>0.2
// invariant; unlike the other pruning knobs this one is not exposed as a
// tunable, since it protects against zugzwang-prone late endgames rather
// than trading search speed for accuracy.
const nmrPhaseFloor = maxPhase / 5

// SearchParams holds the tunable pruning and reduction knobs a Searcher
// applies during negamax. Defaults mirror the driver's configuration
// contract; a driver loading operator-supplied configuration overrides
// them via SetParams before the first Search call.
type SearchParams struct {
	NMRMinDepth     int
	NMRReduction    int
	LMREnabled      bool
	FutilityMargins []int
	QSMaxDepth      int
}

// DefaultSearchParams returns the configuration contract's stated defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		NMRMinDepth:     3,
		NMRReduction:    2,
		LMREnabled:      true,
		FutilityMargins: []int{0, 200, 300},
		QSMaxDepth:      3,
	}
}

// PVTable stores the principal variation.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

// Searcher performs a single-threaded alpha-beta search from a root
// position, using a deadline rather than a node-count poll so it always
// respects its time budget regardless of how deep a branch runs.
type Searcher struct {
	pos     *position.Adapter
	tt      *TranspositionTable
	orderer *MoveOrderer
	pawns   *PawnTable
	corrHist *CorrectionHistory
	params  SearchParams

	nodes    uint64
	deadline time.Time
	stopped  bool

	// prevPV is the principal variation from the previous completed
	// iterative-deepening depth, used to prioritize the PV move distinct
	// from the TT move during move ordering.
	prevPV []board.Move

	// lastMove[ply] is the move played to reach ply, used for the
	// counter-move and countermove-history heuristics. Index 0 is always
	// NoMove (the root has no preceding move within this search).
	lastMove [MaxPly]board.Move

	pv PVTable
}

// NewSearcher creates a new searcher sharing the given transposition and
// pawn-hash tables across searches.
func NewSearcher(tt *TranspositionTable, pawns *PawnTable) *Searcher {
	return &Searcher{
		tt:       tt,
		pawns:    pawns,
		orderer:  NewMoveOrderer(),
		corrHist: NewCorrectionHistory(),
		params:   DefaultSearchParams(),
	}
}

// SetParams overrides the pruning and reduction knobs. Must be called
// before Search; taking effect mid-search would break the determinism
// guarantee that move ordering is a pure function of fixed parameters.
func (s *Searcher) SetParams(p SearchParams) { s.params = p }

// Stop requests the search halt at the next checkpoint.
func (s *Searcher) Stop() {
	s.stopped = true
}

// Reset prepares the searcher for a fresh iterative-deepening pass. Killer
// and counter-move tables are cleared and history tables are aged (halved);
// the transposition table is left untouched so deeper iterations keep
// benefiting from shallower ones.
func (s *Searcher) Reset() {
	s.stopped = false
	s.nodes = 0
	s.orderer.Clear()
	for i := range s.lastMove {
		s.lastMove[i] = board.NoMove
	}
}

// Nodes returns the number of nodes searched in the most recent call to Search.
func (s *Searcher) Nodes() uint64 { return s.nodes }

// SetPreviousPV seeds the PV-move ordering hint from the last completed
// iteration. Pass nil at the start of a new search.
func (s *Searcher) SetPreviousPV(pv []board.Move) { s.prevPV = pv }

// Search performs a fixed-depth, full-window search against pos, stopping
// early if deadline passes. It returns the best move found and its score
// from the side-to-move's perspective. A zero deadline means unlimited time.
func (s *Searcher) Search(pos *position.Adapter, depth int, deadline time.Time) (board.Move, int) {
	return s.SearchWindow(pos, depth, -Infinity, Infinity, deadline)
}

// SearchWindow searches pos to depth within the given aspiration window,
// letting an iterative-deepening driver re-search a narrow window that
// failed high or low without paying for a full Reset of killer/history
// state beyond what a fresh window attempt already implies. Callers check
// TimedOut after return to tell a genuine result from a deadline overrun.
func (s *Searcher) SearchWindow(pos *position.Adapter, depth, alpha, beta int, deadline time.Time) (board.Move, int) {
	s.pos = pos
	s.deadline = deadline
	s.Reset()

	score := s.negamax(depth, 0, alpha, beta)

	var bestMove board.Move
	if s.pv.length[0] > 0 {
		bestMove = s.pv.moves[0][0]
	}

	return bestMove, score
}

// TimedOut reports whether the most recent Search/SearchWindow call was cut
// off by its deadline (or an explicit Stop) before completing.
func (s *Searcher) TimedOut() bool { return s.stopped }

// timeUp reports whether the search deadline has passed. A zero deadline
// means no limit.
func (s *Searcher) timeUp() bool {
	if s.stopped {
		return true
	}
	if s.deadline.IsZero() {
		return false
	}
	if time.Now().After(s.deadline) {
		s.stopped = true
		return true
	}
	return false
}

func (s *Searcher) pvMoveAt(ply int) board.Move {
	if ply < len(s.prevPV) {
		return s.prevPV[ply]
	}
	return board.NoMove
}

// negamax implements the negamax algorithm with alpha-beta pruning, null
// move reduction, futility pruning and late move reductions.
func (s *Searcher) negamax(depth, ply int, alpha, beta int) int {
	if s.timeUp() {
		return 0
	}

	s.nodes++
	s.pv.length[ply] = ply

	if ply > 0 {
		if s.pos.IsFiftyMoveRuleClaimable() || s.pos.IsInsufficientMaterial() || s.pos.IsThreefoldRepetitionClaimable() {
			return 0
		}
	}

	isPV := beta-alpha > 1

	var ttMove board.Move
	ttEntry, found := s.tt.Probe(s.pos.ZobristHash())
	if found {
		ttMove = ttEntry.BestMove
		if !isPV && int(ttEntry.Depth) >= depth {
			score := AdjustScoreFromTT(int(ttEntry.Score), ply)
			switch ttEntry.Flag {
			case TTExact:
				return score
			case TTLowerBound:
				if score > alpha {
					alpha = score
				}
			case TTUpperBound:
				if score < beta {
					beta = score
				}
			}
			if alpha >= beta {
				return score
			}
		}
	}

	if depth <= 0 {
		return s.quiescence(ply, 0, alpha, beta)
	}

	inCheck := s.pos.IsCheck()
	staticEval := 0
	if !inCheck {
		staticEval = EvaluateWithPawnTable(s.pos.Raw(), s.pawns) + s.corrHist.Get(s.pos.Raw())
	}

	// Null move reduction: skip our move entirely and see if the opponent
	// still can't beat beta even with a free tempo.
	if !isPV && !inCheck && depth >= s.params.NMRMinDepth && phaseOf(s.pos.Raw()) > nmrPhaseFloor {
		reduction := s.params.NMRReduction
		if reduction < 1 {
			reduction = 1
		}
		if depth-1-reduction >= 0 {
			undo := s.pos.MakeNullMove()
			score := -s.negamax(depth-1-reduction, ply+1, -beta, -beta+1)
			s.pos.UnmakeNullMove(undo)

			if s.timeUp() {
				return 0
			}
			if score >= beta {
				return beta
			}
		}
	}

	// Futility pruning: near the leaves, if we're hopelessly behind even
	// after a generous margin, skip quiet moves that can't check or capture.
	futile := false
	if !isPV && !inCheck && depth >= 0 && depth < len(s.params.FutilityMargins) {
		if staticEval+s.params.FutilityMargins[depth] <= alpha {
			futile = true
		}
	}

	moves := s.pos.LegalMoves()

	if moves.Len() == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	pvMove := s.pvMoveAt(ply)
	prevMove := s.lastMove[ply]
	scores := s.orderer.ScoreMovesWithCounter(s.pos.Raw(), moves, ply, ttMove, pvMove, prevMove)

	var prevPiece board.Piece = board.NoPiece
	if prevMove != board.NoMove {
		prevPiece = s.pos.PieceAt(prevMove.To())
	}

	bestScore := -Infinity
	bestMove := board.NoMove
	flag := TTUpperBound
	movesSearched := 0

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)

		isCapture := move.IsCapture(s.pos.Raw())
		isPromotion := move.IsPromotion()
		givesCheck := s.pos.GivesCheck(move)
		isQuiet := !isCapture && !isPromotion && !givesCheck
		movePiece := s.pos.PieceAt(move.From())
		var capturedType board.PieceType
		if isCapture {
			if move.IsEnPassant() {
				capturedType = board.Pawn
			} else {
				capturedType = s.pos.PieceAt(move.To()).Type()
			}
		}

		if futile && isQuiet && movesSearched > 0 {
			movesSearched++
			continue
		}

		s.lastMove[ply+1] = move
		s.pos.Push(move)

		reduction := 0
		if s.params.LMREnabled && isQuiet && !inCheck && !givesCheck {
			reduction = lmrReduction(depth, movesSearched)
			if depth-1-reduction < 0 {
				reduction = depth - 1
			}
		}

		var score int
		if movesSearched == 0 {
			score = -s.negamax(depth-1, ply+1, -beta, -alpha)
		} else {
			score = -s.negamax(depth-1-reduction, ply+1, -alpha-1, -alpha)
			if score > alpha && (reduction > 0 || score < beta) {
				score = -s.negamax(depth-1, ply+1, -beta, -alpha)
			}
		}

		s.pos.Pop()
		movesSearched++

		if s.timeUp() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = move

			if score > alpha {
				alpha = score
				flag = TTExact

				s.pv.moves[ply][ply] = move
				for j := ply + 1; j < s.pv.length[ply+1]; j++ {
					s.pv.moves[ply][j] = s.pv.moves[ply+1][j]
				}
				s.pv.length[ply] = s.pv.length[ply+1]
			}
		}

		if score >= beta {
			flag = TTLowerBound
			if isQuiet {
				s.orderer.UpdateKillers(move, ply)
				s.orderer.UpdateHistory(move, depth, true)
				s.orderer.UpdateCounterMove(prevMove, move, s.pos.Raw())
				s.orderer.UpdateCountermoveHistory(prevMove, move, prevPiece, movePiece, depth, true)
			} else if isCapture {
				s.orderer.UpdateCaptureHistory(movePiece, move.To(), capturedType, depth, true)
			}
			break
		}
	}

	s.tt.Store(s.pos.ZobristHash(), depth, AdjustScoreToTT(bestScore, ply), flag, bestMove)

	if !inCheck && flag == TTExact {
		s.corrHist.Update(s.pos.Raw(), bestScore, staticEval, depth)
	}

	return bestScore
}

// lmrReduction returns the late-move-reduction amount for the i-th move
// (0-indexed) searched at depth.
func lmrReduction(depth, i int) int {
	switch {
	case depth >= 8 && i >= 15:
		return 4
	case depth >= 6 && i >= 10:
		return 3
	case depth >= 4 && i >= 5:
		return 2
	case depth >= 3 && i >= 3:
		return 1
	default:
		return 0
	}
}

// phaseOf recomputes the tapered-eval game phase for a position; used by
// null move pruning to avoid reducing in the late endgame where zugzwang
// makes null moves unreliable.
func phaseOf(pos *board.Position) int {
	phase := 0
	for c := board.White; c <= board.Black; c++ {
		phase += pos.Pieces[c][board.Knight].PopCount()
		phase += pos.Pieces[c][board.Bishop].PopCount()
		phase += pos.Pieces[c][board.Rook].PopCount() * 2
		phase += pos.Pieces[c][board.Queen].PopCount() * 4
	}
	if phase > maxPhase {
		phase = maxPhase
	}
	return phase
}

// quiescence searches captures and checks to avoid the horizon effect,
// bounded to params.QSMaxDepth plies past the point quiescence was entered.
func (s *Searcher) quiescence(ply, qsDepth, alpha, beta int) int {
	if ply >= MaxPly {
		return Evaluate(s.pos.Raw())
	}
	if s.timeUp() {
		return 0
	}

	s.nodes++

	standPat := EvaluateWithPawnTable(s.pos.Raw(), s.pawns)

	if standPat >= beta {
		return beta
	}
	if standPat > alpha {
		alpha = standPat
	}

	bigDelta := QueenValue
	if standPat+bigDelta < alpha {
		return alpha
	}

	if qsDepth >= s.params.QSMaxDepth {
		return alpha
	}

	inCheck := s.pos.IsCheck()
	moves := s.pos.Captures()
	scores := s.orderer.ScoreMoves(s.pos.Raw(), moves, ply, board.NoMove, board.NoMove)

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)

		if !inCheck {
			var captureValue int
			if move.IsEnPassant() {
				captureValue = PawnValue
			} else if captured := s.pos.PieceAt(move.To()); captured != board.NoPiece {
				captureValue = pieceValues[captured.Type()]
			}
			if move.IsPromotion() {
				captureValue += QueenValue - PawnValue
			}
			if standPat+captureValue+200 < alpha {
				continue
			}
		}

		s.pos.Push(move)
		score := -s.quiescence(ply+1, qsDepth+1, -beta, -alpha)
		s.pos.Pop()

		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}

	// Checking moves: included only one extra ply deep, since every reply
	// to a check must be considered and the tree otherwise explodes.
	if qsDepth == 0 {
		quietChecks := s.pos.LegalMoves()
		qscores := s.orderer.ScoreMoves(s.pos.Raw(), quietChecks, ply, board.NoMove, board.NoMove)
		for i := 0; i < quietChecks.Len(); i++ {
			PickMove(quietChecks, qscores, i)
			move := quietChecks.Get(i)
			if move.IsCapture(s.pos.Raw()) || move.IsPromotion() {
				continue
			}
			if !s.pos.GivesCheck(move) {
				continue
			}

			s.pos.Push(move)
			score := -s.quiescence(ply+1, qsDepth+1, -beta, -alpha)
			s.pos.Pop()

			if score >= beta {
				return beta
			}
			if score > alpha {
				alpha = score
			}
		}
	}

	return alpha
}

// GetPV returns the principal variation from the last search.
func (s *Searcher) GetPV() []board.Move {
	pv := make([]board.Move, s.pv.length[0])
	for i := 0; i < s.pv.length[0]; i++ {
		pv[i] = s.pv.moves[0][i]
	}
	return pv
}
