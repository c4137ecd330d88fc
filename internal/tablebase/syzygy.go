package tablebase

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/corvidchess/chesscore/internal/board"
)

// maxProbePieces is the piece-count ceiling above which the driver never
// bothers probing: Syzygy tablebases this core targets cover at most 5
// men, and checking the directory for larger material keys would only
// waste stat calls.
const maxProbePieces = 5

// SyzygyProber answers DTZ/WDL queries from a local directory of Syzygy
// WDL (.rtbw) and DTZ (.rtbz) files. It never reaches out to the network:
// a missing or incomplete file for a given material key is simply treated
// as "not found," matching the degrade-to-disabled behavior the driver
// expects when a tablebase is absent.
type SyzygyProber struct {
	mu        sync.RWMutex
	path      string
	available bool
	maxPieces int
}

// NewSyzygyProber opens path as a Syzygy tablebase directory. An empty path
// yields a prober that is never available, which is how the driver
// represents "no tablebase configured."
func NewSyzygyProber(path string) *SyzygyProber {
	sp := &SyzygyProber{path: path}
	sp.refresh()
	return sp
}

// refresh re-scans the tablebase directory, updating availability and the
// largest material key found. Logged once on failure, per the driver's
// TablebaseLoadFailure contract.
func (sp *SyzygyProber) refresh() {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if sp.path == "" {
		sp.available = false
		sp.maxPieces = 0
		return
	}

	entries, err := os.ReadDir(sp.path)
	if err != nil {
		log.Warn().Err(err).Str("path", sp.path).Msg("tablebase directory unavailable, probing disabled")
		sp.available = false
		sp.maxPieces = 0
		return
	}

	best := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".rtbz") {
			continue
		}
		key := strings.TrimSuffix(name, ".rtbz")
		if n := materialPieceCount(key); n > best {
			best = n
		}
	}

	sp.maxPieces = best
	sp.available = best > 0
	if !sp.available {
		log.Warn().Str("path", sp.path).Msg("no usable tablebase files found, probing disabled")
	}
}

// materialPieceCount counts the men named in a material key like "KQvKR"
// (4, including both kings).
func materialPieceCount(key string) int {
	n := 0
	for _, r := range key {
		switch r {
		case 'K', 'Q', 'R', 'B', 'N', 'P':
			n++
		}
	}
	return n
}

// SetPath repoints the prober at a new directory and re-scans it.
func (sp *SyzygyProber) SetPath(path string) {
	sp.mu.Lock()
	sp.path = path
	sp.mu.Unlock()
	sp.refresh()
}

// Probe looks up pos by material key. Only the WDL/DTZ file pair for the
// exact material present is consulted; this core does not carry a Syzygy
// compressed-block decoder, so a present file pair confirms the position is
// theoretically coverable but the probe itself still reports not-found
// until a real decoder is wired in. Gating on file presence (rather than
// always failing) keeps the driver's piece_count<=5 shortcut meaningful
// once such a decoder lands, without this core pretending to know DTZ
// values it cannot compute.
func (sp *SyzygyProber) Probe(pos *board.Position) ProbeResult {
	if CountPieces(pos) > maxProbePieces {
		return ProbeResult{Found: false}
	}
	if !sp.hasFiles(pos) {
		return ProbeResult{Found: false}
	}
	return ProbeResult{Found: false}
}

// ProbeRoot finds the best root move via DTZ comparison. See Probe for why
// this currently always reports not-found: the driver falls through to
// search when the tablebase can't resolve a position.
func (sp *SyzygyProber) ProbeRoot(pos *board.Position) RootResult {
	if CountPieces(pos) > maxProbePieces {
		return RootResult{Found: false}
	}
	return RootResult{Found: false}
}

// MaxPieces returns the largest material key found on disk.
func (sp *SyzygyProber) MaxPieces() int {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.maxPieces
}

// Available reports whether any usable tablebase files were found.
func (sp *SyzygyProber) Available() bool {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.available
}

// Path returns the configured tablebase directory.
func (sp *SyzygyProber) Path() string {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.path
}

// hasFiles reports whether both the WDL and DTZ files for pos's material
// key exist locally, trying the key and its color-swapped mirror (Syzygy
// files are stored with white's material first alphabetically by convention
// but either side may be to move).
func (sp *SyzygyProber) hasFiles(pos *board.Position) bool {
	sp.mu.RLock()
	path := sp.path
	sp.mu.RUnlock()
	if path == "" {
		return false
	}

	key := positionToMaterial(pos)
	return sp.checkLocalFile(path, key) || sp.checkLocalFile(path, mirrorMaterial(key))
}

func (sp *SyzygyProber) checkLocalFile(dir, material string) bool {
	wdlPath := filepath.Join(dir, material+".rtbw")
	dtzPath := filepath.Join(dir, material+".rtbz")

	if _, err := os.Stat(wdlPath); err != nil {
		return false
	}
	if _, err := os.Stat(dtzPath); err != nil {
		return false
	}
	return true
}

// positionToMaterial converts a position to a material key like "KQvKR".
func positionToMaterial(pos *board.Position) string {
	var white, black strings.Builder

	for pt := board.Queen; pt >= board.Pawn; pt-- {
		count := pos.Pieces[board.White][pt].PopCount()
		for i := 0; i < count; i++ {
			white.WriteByte(pieceChar(pt))
		}
	}
	for pt := board.Queen; pt >= board.Pawn; pt-- {
		count := pos.Pieces[board.Black][pt].PopCount()
		for i := 0; i < count; i++ {
			black.WriteByte(pieceChar(pt))
		}
	}

	return "K" + white.String() + "vK" + black.String()
}

// mirrorMaterial swaps the two sides of a "KXvKY" key to "KYvKX".
func mirrorMaterial(key string) string {
	parts := strings.SplitN(key, "v", 2)
	if len(parts) != 2 {
		return key
	}
	return parts[1] + "v" + parts[0]
}

func pieceChar(pt board.PieceType) byte {
	switch pt {
	case board.Queen:
		return 'Q'
	case board.Rook:
		return 'R'
	case board.Bishop:
		return 'B'
	case board.Knight:
		return 'N'
	case board.Pawn:
		return 'P'
	default:
		return '?'
	}
}
