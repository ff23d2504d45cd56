package river_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	goriver "github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"go.uber.org/zap/zaptest"

	_ "modernc.org/sqlite"

	riveradapter "github.com/neomorfeo/central/internal/adapter/river"
	"github.com/neomorfeo/central/internal/domain"
	"github.com/neomorfeo/central/internal/event"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := t.TempDir() + "/river_test.db"
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		t.Fatalf("setting WAL: %v", err)
	}

	return db
}

func startClient(t *testing.T, db *sql.DB) *riveradapter.Client {
	t.Helper()

	client, err := riveradapter.Setup(context.Background(), db, 2, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("river setup: %v", err)
	}
	return client
}

func runClient(t *testing.T, client *riveradapter.Client) {
	t.Helper()
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("river start: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Stop(stopCtx); err != nil {
			t.Errorf("river stop: %v", err)
		}
	})
}

func created(id string) domain.TenantCreated {
	return domain.TenantCreated{
		EventMeta:  domain.EventMeta{ID: "evt-" + id, OccurredOn: time.Now().UTC()},
		TenantID:   id,
		TenantName: "Acme",
		Email:      "ops@acme.test",
	}
}

func TestEnqueuer_TenantCreated_RunsProvisioningJob(t *testing.T) {
	db := setupTestDB(t)
	client := startClient(t, db)

	// Subscribe to job completions before starting so we don't miss events.
	completed, cancel := client.Subscribe(goriver.EventKindJobCompleted)
	defer cancel()
	runClient(t, client)

	if err := riveradapter.NewEnqueuer(client).TenantCreated(context.Background(), created("t-42")); err != nil {
		t.Fatalf("TenantCreated failed: %v", err)
	}

	select {
	case ev := <-completed:
		if ev.Job.Kind != "tenant.provision" {
			t.Errorf("job kind = %q, want %q", ev.Job.Kind, "tenant.provision")
		}
		args := string(ev.Job.EncodedArgs)
		for _, want := range []string{`"tenant_id":"t-42"`, `"tenant_name":"Acme"`, `"event_id":"evt-t-42"`} {
			if !strings.Contains(args, want) {
				t.Errorf("encoded args missing %s, got: %s", want, args)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job completion")
	}
}

func TestEnqueuer_ThroughDispatcher_RunsDeprovisioningJob(t *testing.T) {
	db := setupTestDB(t)
	client := startClient(t, db)

	completed, cancel := client.Subscribe(goriver.EventKindJobCompleted)
	defer cancel()
	runClient(t, client)

	registry := event.NewRegistry()
	riveradapter.NewEnqueuer(client).Register(registry)
	dispatcher := event.NewDispatcher(registry, zaptest.NewLogger(t))

	deleted := domain.TenantDeleted{
		EventMeta:  domain.EventMeta{ID: "evt-1", OccurredOn: time.Now().UTC()},
		TenantID:   "t-7",
		TenantName: "Globex",
	}
	if err := dispatcher.Dispatch(context.Background(), deleted); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	select {
	case ev := <-completed:
		if ev.Job.Kind != "tenant.deprovision" {
			t.Errorf("job kind = %q, want %q", ev.Job.Kind, "tenant.deprovision")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job completion")
	}
}

type failingInserter struct{}

func (failingInserter) Insert(context.Context, goriver.JobArgs, *goriver.InsertOpts) (*rivertype.JobInsertResult, error) {
	return nil, errors.New("queue unavailable")
}

func TestEnqueuer_InsertFailure(t *testing.T) {
	err := riveradapter.NewEnqueuer(failingInserter{}).TenantCreated(context.Background(), created("t-1"))
	if err == nil || !strings.Contains(err.Error(), "enqueuing provisioning job") {
		t.Errorf("expected wrapped insert error, got %v", err)
	}
}

func TestEnqueuer_Register(t *testing.T) {
	registry := event.NewRegistry()
	riveradapter.NewEnqueuer(failingInserter{}).Register(registry)

	if n := registry.Len(domain.KindTenantCreated); n != 1 {
		t.Errorf("handlers for %s = %d, want 1", domain.KindTenantCreated, n)
	}
	if n := registry.Len(domain.KindTenantDeleted); n != 1 {
		t.Errorf("handlers for %s = %d, want 1", domain.KindTenantDeleted, n)
	}
}
