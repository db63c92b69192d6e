package jobs_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	dbfs "github.com/garnizeh/interventions/db"
	"github.com/garnizeh/interventions/internal/auth"
	dbpkg "github.com/garnizeh/interventions/internal/db"
	"github.com/garnizeh/interventions/internal/jobs"
	sqlite "github.com/garnizeh/interventions/internal/repository/sqlite"
	"github.com/garnizeh/interventions/pkg/models"
)

func TestSessionSweep_SQLite(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))

	ctx := context.Background()
	d, err := dbpkg.New(ctx, ":memory:", quiet)
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	defer d.Close()
	if err := dbpkg.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := sqlite.New(d, quiet)
	past := time.Now().Add(-time.Hour).UnixMilli()
	if err := repo.CreateSession(ctx, &models.SessionRecord{ID: "stale", UserID: 2, Expires: past}); err != nil {
		t.Fatalf("create session: %v", err)
	}

	m := auth.NewManager(repo, repo, "s3cr3t", time.Hour, quiet)
	s := jobs.NewScheduler(quiet, jobs.SessionSweep(m, time.Hour))
	s.Start(ctx)
	defer s.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for {
		rec, err := repo.GetSession(ctx, "stale")
		if err != nil {
			t.Fatalf("get session: %v", err)
		}
		if rec == nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("stale session was not swept")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
