package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/garnizeh/interventions/internal/config"
	"github.com/garnizeh/interventions/internal/db"
	"github.com/garnizeh/interventions/internal/repository/sqlite"
)

// Restores a backup made by db_backup over the configured database. Stop the
// server first.
func main() {
	configPath := flag.String("config", "", "Path to config YAML file")
	from := flag.String("from", "", "Backup file to restore")
	flag.Parse()

	if *from == "" {
		fmt.Fprintln(os.Stderr, "Restore error: -from is required")
		os.Exit(1)
	}
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := checkBackup(*from); err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %s is not a usable backup: %v\n", *from, err)
		os.Exit(1)
	}
	if err := copyFile(*from, cfg.DatabasePath); err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Database %s restored from %s\n", cfg.DatabasePath, *from)
}

// checkBackup opens the backup and reads the users table.
func checkBackup(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	ctx := context.Background()
	database, err := db.New(ctx, path, nil)
	if err != nil {
		return err
	}
	defer database.Close()

	n, err := sqlite.New(database, nil).CountUsers(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no users")
	}
	return nil
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return err
	}
	return dstFile.Close()
}
