package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/garnizeh/interventions/internal/config"
	"github.com/garnizeh/interventions/internal/db"
)

func main() {
	configPath := flag.String("config", "", "Path to config YAML file")
	out := flag.String("out", "", "Backup file (default <database>.<timestamp>.bak)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	dst := *out
	if dst == "" {
		dst = fmt.Sprintf("%s.%s.bak", cfg.DatabasePath, time.Now().UTC().Format("20060102T150405Z"))
	}

	ctx := context.Background()
	database, err := db.New(ctx, cfg.DatabasePath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	// VACUUM INTO gives a consistent copy even while the server is writing
	if err := database.Snapshot(ctx, dst); err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Database backup written to %s\n", dst)
}
