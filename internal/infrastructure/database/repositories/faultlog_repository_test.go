package repositories

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/uselessvevo/fuse-sheets/internal/core/domain"
	"github.com/uselessvevo/fuse-sheets/internal/core/schema"
	"github.com/uselessvevo/fuse-sheets/internal/core/tasks"
)

// setupTestDB creates a PostgreSQL testcontainer for testing
func setupTestDB(t *testing.T) *gorm.DB {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate postgres container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(pgdriver.Open(connStr), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"")

	if err := db.AutoMigrate(&domain.IngestRun{}, &domain.RowFault{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleEntries(t *testing.T) []*tasks.Entry {
	t.Helper()

	s := schema.Schema{
		schema.NewField("firstname", "Firstname", nil),
		schema.NewField("age", "Age", nil),
	}

	clean := schema.NewRecord(s, 1)
	clean.Slot(0).Set("Jane", "Jane")
	clean.Slot(1).Set("30", int64(30))

	broken := schema.NewRecord(s, 2)
	broken.Slot(0).Set("John", "John")
	broken.Slot(1).MarkFailed("thirty", `"thirty" is not an integer`)

	return []*tasks.Entry{tasks.NewEntry(clean), tasks.NewEntry(broken)}
}

func TestFaultLogRepository_SaveAndQuery(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFaultLogRepository(db, testLogger())
	ctx := context.Background()

	run := &domain.IngestRun{
		FileName:   "contacts.xlsx",
		SchemaName: "contacts",
		Status:     domain.RunStatusRunning,
	}
	require.NoError(t, repo.CreateRun(ctx, run))
	require.NotEqual(t, uuid.Nil, run.ID)

	require.NoError(t, repo.SaveEntries(ctx, run.ID, sampleEntries(t)))

	stored, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.TotalRows)
	assert.Equal(t, 1, stored.BrokenRows)

	faults, err := repo.GetRunFaults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, faults, 4)

	// Row and field ordered: row1(age, firstname), row2(age, firstname).
	assert.Equal(t, 1, faults[0].RowIndex)
	assert.Equal(t, "age", faults[0].FieldName)
	assert.Equal(t, "ok", faults[0].State)
	assert.False(t, faults[0].Broken)

	broken, err := repo.GetBrokenFaults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, broken, 1)
	assert.Equal(t, 2, broken[0].RowIndex)
	assert.Equal(t, "age", broken[0].FieldName)
	assert.Equal(t, "thirty", broken[0].Value)
	assert.Equal(t, "error", broken[0].State)
	assert.NotEmpty(t, broken[0].Comment)
	assert.Equal(t, "Age", broken[0].VerboseName)
}

func TestFaultLogRepository_SetRunStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFaultLogRepository(db, testLogger())
	ctx := context.Background()

	run := &domain.IngestRun{FileName: "contacts.csv", SchemaName: "contacts"}
	require.NoError(t, repo.CreateRun(ctx, run))

	require.NoError(t, repo.SetRunStatus(ctx, run.ID, domain.RunStatusCompleted))

	stored, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)

	assert.Error(t, repo.SetRunStatus(ctx, run.ID, "bogus"))
}

func TestFaultLogRepository_AsSaveFunc(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFaultLogRepository(db, testLogger())
	ctx := context.Background()

	runID := uuid.New()
	save := repo.AsSaveFunc(runID, "contacts")

	require.NoError(t, save(ctx, "contacts.xlsx", sampleEntries(t)))

	stored, err := repo.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, "contacts.xlsx", stored.FileName)
	assert.Equal(t, "contacts", stored.SchemaName)
	assert.Equal(t, domain.RunStatusCompleted, stored.Status)
	assert.Equal(t, 2, stored.TotalRows)

	faults, err := repo.GetRunFaults(ctx, runID)
	require.NoError(t, err)
	assert.Len(t, faults, 4)
}

func TestIngestRun_BeforeCreate(t *testing.T) {
	db := setupTestDB(t)

	run := &domain.IngestRun{FileName: "a.csv", SchemaName: "contacts"}
	assert.Equal(t, uuid.Nil, run.ID)
	require.NoError(t, db.Create(run).Error)
	assert.NotEqual(t, uuid.Nil, run.ID)
}

func TestRowFault_UniqueRunRowField(t *testing.T) {
	db := setupTestDB(t)

	run := &domain.IngestRun{FileName: "a.csv", SchemaName: "contacts"}
	require.NoError(t, db.Create(run).Error)

	first := &domain.RowFault{RunID: run.ID, RowIndex: 1, FieldName: "age", State: "ok"}
	require.NoError(t, db.Create(first).Error)

	duplicate := &domain.RowFault{RunID: run.ID, RowIndex: 1, FieldName: "age", State: "ok"}
	assert.Error(t, db.Create(duplicate).Error)
}
