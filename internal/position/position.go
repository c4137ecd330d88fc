// Package position adapts the bitboard rules engine in internal/board to the
// narrow surface the search core needs: push/pop with a LIFO history stack,
// repetition and fifty-move claims, null-move toggling, and the attack
// queries move ordering and evaluation rely on. It never exposes board's
// internal bitboard layout to callers outside this package's own helpers.
package position

import (
	"github.com/corvidchess/chesscore/internal/board"
)

// frame captures everything needed to undo one push, plus the hash recorded
// before the move so repetition checks can walk history without recomputing.
type frame struct {
	move board.Move
	undo board.UndoInfo
}

// Adapter wraps a *board.Position with a push/pop move stack and the game's
// position-history list used for threefold-repetition claims. A fresh Adapter
// is only valid for the position it was built from; callers that need an
// independent root copy should call Clone.
type Adapter struct {
	pos     *board.Position
	stack   []frame
	history []uint64 // Zobrist hashes since the game started, oldest first
}

// New wraps an existing board position. The adapter takes ownership of pos;
// callers must not mutate it directly afterward.
func New(pos *board.Position) *Adapter {
	return &Adapter{
		pos:     pos,
		history: []uint64{pos.Hash},
	}
}

// NewFromFEN parses a FEN string into a fresh adapter.
func NewFromFEN(fen string) (*Adapter, error) {
	pos, err := board.ParseFEN(fen)
	if err != nil {
		return nil, err
	}
	return New(pos), nil
}

// Clone returns an independent adapter over a copy of the current position.
// The returned adapter starts with a fresh history containing only the
// current position; callers that need repetition detection against prior
// game moves should use SetHistory.
func (a *Adapter) Clone() *Adapter {
	return New(a.pos.Copy())
}

// SetHistory seeds the repetition-history list with hashes from earlier in
// the game (oldest first), followed by the current position's hash. Used by
// the driver when starting a search mid-game.
func (a *Adapter) SetHistory(gameHashes []uint64) {
	a.history = make([]uint64, 0, len(gameHashes)+1)
	a.history = append(a.history, gameHashes...)
	a.history = append(a.history, a.pos.Hash)
}

// Raw exposes the underlying board position for packages that need direct
// bitboard access (evaluation, move ordering). It must not be retained past
// the next Push/Pop.
func (a *Adapter) Raw() *board.Position { return a.pos }

// LegalMoves returns all legal moves of the side to move.
func (a *Adapter) LegalMoves() *board.MoveList { return a.pos.GenerateLegalMoves() }

// Captures returns capturing (and promoting-capture) moves only.
func (a *Adapter) Captures() *board.MoveList { return a.pos.GenerateCaptures() }

// IsLegal reports whether m is a legal move in the current position. Used to
// defend against illegal TT/killer moves surfacing from hash collisions.
func (a *Adapter) IsLegal(m board.Move) bool { return a.pos.IsLegal(m) }

// IsCapture reports whether m captures a piece (including en passant).
func (a *Adapter) IsCapture(m board.Move) bool { return m.IsCapture(a.pos) }

// IsZeroing reports whether m resets the fifty-move clock: a capture or a
// pawn move.
func (a *Adapter) IsZeroing(m board.Move) bool {
	if m.IsCapture(a.pos) {
		return true
	}
	piece := a.pos.PieceAt(m.From())
	return piece != board.NoPiece && piece.Type() == board.Pawn
}

// GivesCheck reports whether making m would leave the opponent in check. It
// makes and immediately unmakes the move, leaving the position untouched.
func (a *Adapter) GivesCheck(m board.Move) bool {
	undo := a.pos.MakeMove(m)
	if !undo.Valid {
		a.pos.UnmakeMove(m, undo)
		return false
	}
	inCheck := a.pos.InCheck()
	a.pos.UnmakeMove(m, undo)
	return inCheck
}

// PieceAt returns the piece occupying sq, or board.NoPiece.
func (a *Adapter) PieceAt(sq board.Square) board.Piece { return a.pos.PieceAt(sq) }

// PieceTypeAt returns the piece type occupying sq, or board.NoPieceType.
func (a *Adapter) PieceTypeAt(sq board.Square) board.PieceType {
	p := a.pos.PieceAt(sq)
	if p == board.NoPiece {
		return board.NoPieceType
	}
	return p.Type()
}

// Attackers returns the bitboard of pieces of color c attacking sq.
func (a *Adapter) Attackers(c board.Color, sq board.Square) board.Bitboard {
	return a.pos.AttackersByColor(sq, c, a.pos.AllOccupied)
}

// Attacks returns the bitboard of squares attacked by whatever piece (if any)
// stands on sq, treating the board as currently occupied.
func (a *Adapter) Attacks(sq board.Square) board.Bitboard {
	piece := a.pos.PieceAt(sq)
	if piece == board.NoPiece {
		return 0
	}
	occ := a.pos.AllOccupied
	switch piece.Type() {
	case board.Pawn:
		return board.PawnAttacks(sq, piece.Color())
	case board.Knight:
		return board.KnightAttacks(sq)
	case board.Bishop:
		return board.BishopAttacks(sq, occ)
	case board.Rook:
		return board.RookAttacks(sq, occ)
	case board.Queen:
		return board.QueenAttacks(sq, occ)
	case board.King:
		return board.KingAttacks(sq)
	}
	return 0
}

// Push makes m and records an undo frame. The caller must later call Pop
// exactly once per Push, in LIFO order.
func (a *Adapter) Push(m board.Move) {
	undo := a.pos.MakeMove(m)
	a.stack = append(a.stack, frame{move: m, undo: undo})
	a.history = append(a.history, a.pos.Hash)
}

// Pop undoes the most recent Push.
func (a *Adapter) Pop() {
	n := len(a.stack)
	f := a.stack[n-1]
	a.stack = a.stack[:n-1]
	a.history = a.history[:len(a.history)-1]
	a.pos.UnmakeMove(f.move, f.undo)
}

// MakeNullMove passes the turn without moving a piece; only legal when the
// side to move is not in check.
func (a *Adapter) MakeNullMove() board.NullMoveUndo {
	a.history = append(a.history, 0) // placeholder, popped in UnmakeNullMove
	return a.pos.MakeNullMove()
}

// UnmakeNullMove restores the position exactly as it was before MakeNullMove.
func (a *Adapter) UnmakeNullMove(undo board.NullMoveUndo) {
	a.pos.UnmakeNullMove(undo)
	a.history = a.history[:len(a.history)-1]
}

// IsCheck reports whether the side to move is in check.
func (a *Adapter) IsCheck() bool { return a.pos.InCheck() }

// IsCheckmate reports checkmate of the side to move.
func (a *Adapter) IsCheckmate() bool { return a.pos.IsCheckmate() }

// IsStalemate reports stalemate of the side to move.
func (a *Adapter) IsStalemate() bool { return a.pos.IsStalemate() }

// IsInsufficientMaterial reports a dead position by material starvation.
func (a *Adapter) IsInsufficientMaterial() bool { return a.pos.IsInsufficientMaterial() }

// IsFiftyMoveRuleClaimable reports that the halfmove clock has reached 100
// plies (fifty full moves) without a capture or pawn push.
func (a *Adapter) IsFiftyMoveRuleClaimable() bool { return a.pos.HalfMoveClock >= 100 }

// IsSeventyFiveMoveRule reports the stricter 75-move automatic draw used as
// a game-over shortcut in evaluation, distinct from the claimable 50-move
// rule exposed to callers.
func (a *Adapter) IsSeventyFiveMoveRule() bool { return a.pos.HalfMoveClock >= 150 }

// IsThreefoldRepetitionClaimable reports whether the current position's hash
// has occurred at least twice before in recorded history (three occurrences
// total), per FIDE rules. Requires SetHistory (or an unbroken Push chain) to
// have populated prior-game hashes; a fresh root position with no history
// never claims.
func (a *Adapter) IsThreefoldRepetitionClaimable() bool {
	current := a.pos.Hash
	count := 0
	for _, h := range a.history {
		if h == current {
			count++
			if count >= 3 {
				return true
			}
		}
	}
	return false
}

// IsGameOver reports any terminal condition: checkmate, stalemate,
// insufficient material, the fifty-move rule, or threefold repetition.
func (a *Adapter) IsGameOver() bool {
	if a.pos.IsCheckmate() || a.pos.IsStalemate() {
		return true
	}
	if a.pos.IsInsufficientMaterial() {
		return true
	}
	if a.IsFiftyMoveRuleClaimable() {
		return true
	}
	return a.IsThreefoldRepetitionClaimable()
}

// ZobristHash returns the position's 64-bit Zobrist key.
func (a *Adapter) ZobristHash() uint64 { return a.pos.Hash }

// PolyglotHash returns the position's Polyglot-compatible key, used for book
// lookups.
func (a *Adapter) PolyglotHash() uint64 { return a.pos.PolyglotHash() }

// PieceCount returns the total number of pieces of both colors on the board,
// used to gate tablebase probing.
func (a *Adapter) PieceCount() int { return a.pos.AllOccupied.PopCount() }

// SideToMove returns the color to move.
func (a *Adapter) SideToMove() board.Color { return a.pos.SideToMove }

// FEN renders the position as a FEN string, for debugging and logging only.
func (a *Adapter) FEN() string { return a.pos.ToFEN() }
