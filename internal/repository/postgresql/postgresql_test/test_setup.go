package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/migrations"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// TestDatabaseSetup holds a migrated database with empty tables.
type TestDatabaseSetup struct {
	DB *database.DB
}

// NewTestDatabase connects to TEST_DATABASE_URL and applies the migrations. The test is
// skipped when the variable is not set.
func NewTestDatabase(t *testing.T) *TestDatabaseSetup {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.NewPostgreSQLDB(dsn, database.PoolConfig{MaxConns: 8, MinConns: 1})
	require.NoError(t, err, "failed to connect to test database")

	ctx := context.Background()
	require.NoError(t, migrations.Up(ctx, db))

	setup := &TestDatabaseSetup{DB: db}
	require.NoError(t, setup.TruncateAllTables(ctx))
	t.Cleanup(setup.Close)
	return setup
}

// TruncateAllTables empties every table of the schema
func (s *TestDatabaseSetup) TruncateAllTables(ctx context.Context) error {
	tx, err := s.DB.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"time_entry_approval_audits",
		"weekly_aggregates",
		"overdue_reminders",
		"time_entry_breaks",
		"time_entries",
		"assignments",
		"employees",
		"dealerships",
	}

	for _, table := range tables {
		_, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		if err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *TestDatabaseSetup) Close() {
	s.DB.Close()
}

type seeded struct {
	DealershipID string
	EmployeeID   string
	AssignmentID string
}

// Seed inserts one dealership, one employee and an active assignment with the given
// schedule template JSON.
func (s *TestDatabaseSetup) Seed(t *testing.T, timezone, template string) seeded {
	t.Helper()
	ctx := context.Background()
	out := seeded{
		DealershipID: uuid.NewString(),
		EmployeeID:   uuid.NewString(),
		AssignmentID: uuid.NewString(),
	}

	_, err := s.DB.Exec(ctx, `INSERT INTO dealerships (id, name, timezone) VALUES ($1, 'Valley Toyota', $2)`, out.DealershipID, timezone)
	require.NoError(t, err)
	_, err = s.DB.Exec(ctx, `INSERT INTO employees (id, full_name, phone) VALUES ($1, 'Dana Reyes', '+15550100')`, out.EmployeeID)
	require.NoError(t, err)
	_, err = s.DB.Exec(ctx, `
		INSERT INTO assignments (id, employee_id, dealership_id, status, schedule_template)
		VALUES ($1, $2, $3, 'active', $4::jsonb)
	`, out.AssignmentID, out.EmployeeID, out.DealershipID, template)
	require.NoError(t, err)
	return out
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}
