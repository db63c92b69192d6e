package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	dbfs "github.com/garnizeh/interventions/db"
	"github.com/garnizeh/interventions/internal/config"
	"github.com/garnizeh/interventions/internal/db"
	"github.com/garnizeh/interventions/internal/repository/sqlite"
	"github.com/garnizeh/interventions/pkg/models"
)

func main() {
	configPath := flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	database, err := db.New(ctx, cfg.DatabasePath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DB init error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	// run migrations and seed using internal/db.Migrate
	if err := db.Migrate(ctx, database, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		fmt.Fprintf(os.Stderr, "Migration runner error: %v\n", err)
		os.Exit(1)
	}

	repo := sqlite.New(database, nil)
	fmt.Printf("Database %s initialized.\n", cfg.DatabasePath)
	for _, role := range []models.Role{models.RoleAdmin, models.RoleTechnician} {
		users, err := repo.ListUsersByRole(ctx, role)
		if err != nil {
			fmt.Fprintf(os.Stderr, "List users error: %v\n", err)
			os.Exit(1)
		}
		for _, u := range users {
			fmt.Printf("  %-4d %-20s %s\n", u.ID, u.Username, u.Role)
		}
	}
}
