// Command chessplay-uci runs the search core behind a UCI front end,
// reading configuration from flags, environment variables, and an
// optional config file before handing off to the protocol loop.
package main

import (
	"os"
	"runtime/pprof"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/corvidchess/chesscore/internal/config"
	"github.com/corvidchess/chesscore/internal/driver"
	"github.com/corvidchess/chesscore/internal/uci"
)

func main() {
	var configFile string
	var cpuProfile string
	var verbose bool

	fs := pflag.NewFlagSet("chessplay-uci", pflag.ExitOnError)
	fs.StringVar(&configFile, "config", "", "path to a YAML/TOML/JSON config file")
	fs.StringVar(&cpuProfile, "cpuprofile", "", "write a CPU profile to this path")
	fs.BoolVar(&verbose, "verbose", false, "enable debug-level logging")
	config.RegisterFlags(fs)
	fs.Parse(os.Args[1:])

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg, err := config.Load(fs, configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if cpuProfile != "" {
		f, err := os.Create(cpuProfile)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
	}

	drv := driver.New(cfg)
	protocol := uci.New(drv, cfg)
	protocol.Run()
}
