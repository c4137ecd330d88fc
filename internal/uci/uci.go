// Package uci implements enough of the Universal Chess Interface protocol
// to drive the search core from a GUI or test harness: position setup,
// depth/time-limited search, and info/bestmove reporting.
package uci

import (
	"bufio"
	"fmt"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/corvidchess/chesscore/internal/board"
	"github.com/corvidchess/chesscore/internal/config"
	"github.com/corvidchess/chesscore/internal/driver"
	"github.com/corvidchess/chesscore/internal/engine"
	"github.com/corvidchess/chesscore/internal/position"
)

// UCI implements the Universal Chess Interface protocol over stdin/stdout.
type UCI struct {
	drv *driver.Driver
	cfg config.Config
	pos *position.Adapter

	positionHashes []uint64

	searching     bool
	searchDone    chan struct{}
	stopRequested atomic.Bool

	debug bool

	profileFile *os.File
}

// New creates a UCI protocol handler wrapping drv, using cfg for default
// search limits when a "go" command doesn't specify its own.
func New(drv *driver.Driver, cfg config.Config) *UCI {
	return &UCI{
		drv: drv,
		cfg: cfg,
		pos: position.New(board.NewPosition()),
	}
}

// Run starts the UCI main loop, blocking until "quit" or EOF on stdin.
func (u *UCI) Run() {
	scanner := bufio.NewScanner(os.Stdin)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			fmt.Println("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "quit":
			u.handleQuit()
		case "setoption":
			u.handleSetOption(args)
		case "d":
			fmt.Println(u.pos.FEN())
		case "perft":
			u.handlePerft(args)
		}
	}
}

func (u *UCI) handleUCI() {
	fmt.Println("id name ChessCore")
	fmt.Println("id author ChessCore Team")
	fmt.Println()
	fmt.Println("option name Hash type spin default 64 min 1 max 4096")
	fmt.Println("option name SyzygyPath type string default <empty>")
	fmt.Println("option name BookPath type string default <empty>")
	fmt.Println("uciok")
}

func (u *UCI) handleNewGame() {
	u.drv.NewGame()
	u.pos = position.New(board.NewPosition())
	u.positionHashes = []uint64{u.pos.ZobristHash()}
}

// handlePosition parses and sets up a position.
//
//	position startpos
//	position startpos moves e2e4 e7e5
//	position fen <fen>
//	position fen <fen> moves e2e4
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	var moveStart int

	switch args[0] {
	case "startpos":
		u.pos = position.New(board.NewPosition())
		moveStart = findMovesKeyword(args, 1)
	case "fen":
		fenEnd := len(args)
		for i, arg := range args[1:] {
			if arg == "moves" {
				fenEnd = i + 1
				break
			}
		}
		fenStr := strings.Join(args[1:fenEnd], " ")
		p, err := position.NewFromFEN(fenStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "info string invalid FEN: %v\n", err)
			return
		}
		u.pos = p
		moveStart = findMovesKeyword(args, 0)
	default:
		return
	}

	u.positionHashes = []uint64{u.pos.ZobristHash()}

	for _, moveStr := range args[moveStart:] {
		move := u.parseMove(moveStr)
		if move == board.NoMove {
			fmt.Fprintf(os.Stderr, "info string invalid move: %s\n", moveStr)
			return
		}
		u.pos.Push(move)
		u.positionHashes = append(u.positionHashes, u.pos.ZobristHash())
	}
}

func findMovesKeyword(args []string, from int) int {
	for i := from; i < len(args); i++ {
		if args[i] == "moves" {
			return i + 1
		}
	}
	return len(args)
}

// parseMove converts a UCI coordinate move string to a board.Move.
func (u *UCI) parseMove(moveStr string) board.Move {
	if len(moveStr) < 4 {
		return board.NoMove
	}

	fromFile := int(moveStr[0] - 'a')
	fromRank := int(moveStr[1] - '1')
	toFile := int(moveStr[2] - 'a')
	toRank := int(moveStr[3] - '1')

	if fromFile < 0 || fromFile > 7 || fromRank < 0 || fromRank > 7 ||
		toFile < 0 || toFile > 7 || toRank < 0 || toRank > 7 {
		return board.NoMove
	}

	from := board.NewSquare(fromFile, fromRank)
	to := board.NewSquare(toFile, toRank)

	var promo board.PieceType
	if len(moveStr) == 5 {
		switch moveStr[4] {
		case 'q':
			promo = board.Queen
		case 'r':
			promo = board.Rook
		case 'b':
			promo = board.Bishop
		case 'n':
			promo = board.Knight
		}
	}

	moves := u.pos.LegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.From() != from || m.To() != to {
			continue
		}
		if promo != 0 {
			if m.IsPromotion() && m.Promotion() == promo {
				return m
			}
			continue
		}
		if !m.IsPromotion() {
			return m
		}
	}

	return board.NoMove
}

// GoOptions holds parsed "go" command options.
type GoOptions struct {
	Depth     int
	MoveTime  time.Duration
	Infinite  bool
	WTime     time.Duration
	BTime     time.Duration
	WInc      time.Duration
	BInc      time.Duration
	MovesToGo int
}

func (u *UCI) handleGo(args []string) {
	opts := u.parseGoOptions(args)

	maxDepth := u.cfg.MaxDepth
	if opts.Depth > 0 {
		maxDepth = opts.Depth
	}

	var budget time.Duration
	switch {
	case opts.Infinite:
		budget = 0
	case opts.MoveTime > 0:
		budget = opts.MoveTime
	case opts.WTime > 0 || opts.BTime > 0:
		budget = u.calculateTimeForMove(opts)
	default:
		budget = u.cfg.TimeBudget()
	}

	u.drv.OnDepth = func(depth, score int, nodes uint64, elapsed time.Duration, pv []board.Move) {
		u.sendInfo(depth, score, nodes, elapsed, pv)
	}

	u.searching = true
	u.stopRequested.Store(false)
	u.searchDone = make(chan struct{})

	rootHashes := append([]uint64(nil), u.positionHashes...)
	searchPos := u.pos.Clone()
	searchPos.SetHistory(rootHashes)

	go func() {
		defer close(u.searchDone)

		result := u.drv.FindBestMove(searchPos, maxDepth, budget)
		u.searching = false

		if result.NoLegalMoves {
			fmt.Println("bestmove 0000")
			return
		}

		fmt.Printf("bestmove %s\n", result.Move.String())
	}()
}

func (u *UCI) parseGoOptions(args []string) GoOptions {
	opts := GoOptions{}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			if i+1 < len(args) {
				opts.Depth, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "movetime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.MoveTime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "infinite":
			opts.Infinite = true
		case "wtime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.WTime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "btime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.BTime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "winc":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.WInc = time.Duration(ms) * time.Millisecond
				i++
			}
		case "binc":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.BInc = time.Duration(ms) * time.Millisecond
				i++
			}
		case "movestogo":
			if i+1 < len(args) {
				opts.MovesToGo, _ = strconv.Atoi(args[i+1])
				i++
			}
		}
	}

	return opts
}

// calculateTimeForMove determines how much time to spend on this move.
func (u *UCI) calculateTimeForMove(opts GoOptions) time.Duration {
	var ourTime, ourInc time.Duration

	if u.pos.SideToMove() == board.White {
		ourTime, ourInc = opts.WTime, opts.WInc
	} else {
		ourTime, ourInc = opts.BTime, opts.BInc
	}

	movesRemaining := opts.MovesToGo
	if movesRemaining == 0 {
		movesRemaining = u.estimateMovesRemaining()
	}

	baseTime := ourTime / time.Duration(movesRemaining)
	moveTime := baseTime + (ourInc * 90 / 100)

	maxTime := ourTime * 90 / 100
	if moveTime > maxTime {
		moveTime = maxTime
	}
	if moveTime < 10*time.Millisecond {
		moveTime = 10 * time.Millisecond
	}

	return moveTime
}

func (u *UCI) estimateMovesRemaining() int {
	totalPieces := u.pos.PieceCount()
	switch {
	case totalPieces > 24:
		return 40
	case totalPieces > 12:
		return 30
	default:
		return 20
	}
}

// sendInfo outputs one "info depth ..." line in UCI format.
func (u *UCI) sendInfo(depth, score int, nodes uint64, elapsed time.Duration, pv []board.Move) {
	var parts []string
	parts = append(parts, fmt.Sprintf("depth %d", depth))

	switch {
	case score > engine.MateScore-100:
		mateIn := (engine.MateScore - score + 1) / 2
		parts = append(parts, fmt.Sprintf("score mate %d", mateIn))
	case score < -engine.MateScore+100:
		mateIn := -(engine.MateScore + score + 1) / 2
		parts = append(parts, fmt.Sprintf("score mate %d", mateIn))
	default:
		parts = append(parts, fmt.Sprintf("score cp %d", score))
	}

	parts = append(parts, fmt.Sprintf("nodes %d", nodes))
	parts = append(parts, fmt.Sprintf("time %d", elapsed.Milliseconds()))

	if elapsed > 0 {
		nps := uint64(float64(nodes) / elapsed.Seconds())
		parts = append(parts, fmt.Sprintf("nps %d", nps))
	}

	parts = append(parts, fmt.Sprintf("hashfull %d", u.drv.HashFull()))

	if len(pv) > 0 {
		strs := make([]string, len(pv))
		for i, m := range pv {
			strs[i] = m.String()
		}
		parts = append(parts, "pv "+strings.Join(strs, " "))
	}

	fmt.Printf("info %s\n", strings.Join(parts, " "))
}

func (u *UCI) handleStop() {
	if u.searching {
		u.stopRequested.Store(true)
		u.drv.Stop()
		<-u.searchDone
	}
}

func (u *UCI) handleQuit() {
	u.handleStop()
	if u.profileFile != nil {
		pprof.StopCPUProfile()
		u.profileFile.Close()
		fmt.Fprintf(os.Stderr, "info string CPU profile saved\n")
	}
	os.Exit(0)
}

func (u *UCI) handleSetOption(args []string) {
	var name, value string
	readingName, readingValue := false, false

	for _, arg := range args {
		switch arg {
		case "name":
			readingName, readingValue = true, false
		case "value":
			readingName, readingValue = false, true
		default:
			if readingName {
				if name != "" {
					name += " "
				}
				name += arg
			} else if readingValue {
				if value != "" {
					value += " "
				}
				value += arg
			}
		}
	}

	switch strings.ToLower(name) {
	case "hash":
		// Resizing the transposition table mid-game would discard it;
		// honored only at driver construction.
	case "syzygypath":
		u.drv.SetTablebasePath(value)
	case "bookpath":
		u.drv.SetBookPath(value)
	case "debug":
		u.debug = strings.ToLower(value) == "true"
	case "cpuprofile":
		if u.profileFile != nil {
			pprof.StopCPUProfile()
			u.profileFile.Close()
			u.profileFile = nil
			fmt.Fprintf(os.Stderr, "info string CPU profile stopped\n")
		}
		if value != "" && value != "stop" {
			f, err := os.Create(value)
			if err != nil {
				fmt.Fprintf(os.Stderr, "info string failed to create profile: %v\n", err)
				return
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				f.Close()
				fmt.Fprintf(os.Stderr, "info string failed to start profile: %v\n", err)
				return
			}
			u.profileFile = f
			fmt.Fprintf(os.Stderr, "info string CPU profiling to %s\n", value)
		}
	}
}

func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		depth, _ = strconv.Atoi(args[0])
	}

	start := time.Now()
	nodes := perft(u.pos.Raw(), depth)
	elapsed := time.Since(start)

	fmt.Printf("Nodes: %d\n", nodes)
	fmt.Printf("Time: %v\n", elapsed)
	if elapsed > 0 {
		fmt.Printf("NPS: %.0f\n", float64(nodes)/elapsed.Seconds())
	}
}

// perft counts the leaf nodes of the legal-move tree to depth plies,
// the standard move-generator correctness and speed benchmark.
func perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}

	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}

	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		move := moves.Get(i)
		undo := pos.MakeMove(move)
		nodes += perft(pos, depth-1)
		pos.UnmakeMove(move, undo)
	}
	return nodes
}
