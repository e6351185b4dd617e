package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/quicksapp/quicks/internal/config"
	"github.com/quicksapp/quicks/internal/daemon"
	"go.uber.org/fx"
)

func main() {
	dataDirFlag := flag.String("data-dir", "", "data directory (default ~/.quicks)")
	baseURLFlag := flag.String("base-url", "", "remote source base URL (overrides config)")
	flag.Parse()

	dataDir := *dataDirFlag
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}

	cfg, err := config.Load(config.ConfigPath(dataDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *baseURLFlag != "" {
		cfg.BaseURL = *baseURLFlag
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{DataDir: dataDir, Config: cfg}),
	)

	app.Run()
}
