package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/sakif/graduate-showcase/internal/apperror"
	"github.com/sakif/graduate-showcase/internal/model"
)

// TESTING WITH IN-MEMORY SQLITE:
// ":memory:" gives every test a fresh, isolated database that disappears when
// the connection closes. t.Helper() makes failures point at the caller's line.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newGraduate(name string) *model.Graduate {
	return &model.Graduate{
		Name:      name,
		GitHubURL: "https://github.com/" + name,
		Role:      "Backend Engineer",
		CVLink:    "https://cv.example/" + name + ".pdf",
	}
}

// createTestGraduate inserts a graduate and fails the test if it errors.
func createTestGraduate(t *testing.T, db *DB, name string) *model.Graduate {
	t.Helper()
	g := newGraduate(name)
	if err := db.Insert(context.Background(), g); err != nil {
		t.Fatalf("failed to insert test graduate: %v", err)
	}
	return g
}

// =========================================================================
// INSERT TESTS
// =========================================================================

func TestInsert(t *testing.T) {
	db := newTestDB(t)

	g := newGraduate("ada")
	if err := db.Insert(context.Background(), g); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if g.ID <= 0 {
		t.Errorf("Insert() set ID = %d, want a positive id", g.ID)
	}
}

func TestInsert_IDsIncrease(t *testing.T) {
	db := newTestDB(t)

	first := createTestGraduate(t, db, "ada")
	second := createTestGraduate(t, db, "grace")

	if second.ID <= first.ID {
		t.Errorf("second ID = %d, want > %d", second.ID, first.ID)
	}
}

func TestInsert_DuplicateName(t *testing.T) {
	db := newTestDB(t)
	createTestGraduate(t, db, "ada")

	dup := newGraduate("ada")
	dup.Role = "Frontend Engineer"
	err := db.Insert(context.Background(), dup)

	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Insert() error = %v, want ErrConflict", err)
	}
	if err.Error() != "Graduate ada already exists" {
		t.Errorf("Insert() message = %q", err.Error())
	}
	if dup.ID != 0 {
		t.Errorf("duplicate got ID %d, want 0", dup.ID)
	}

	graduates, err := db.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(graduates) != 1 {
		t.Errorf("List() returned %d rows, want 1", len(graduates))
	}
}

func TestInsert_ConcurrentDuplicates(t *testing.T) {
	db := newTestDB(t)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Insert(context.Background(), newGraduate("race"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, apperror.ErrConflict):
				conflicts++
			default:
				t.Errorf("Insert() unexpected error = %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 {
		t.Errorf("successful inserts = %d, want 1", ok)
	}
	if conflicts != workers-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, workers-1)
	}
}

// TestInsert_ConcurrentFileDB runs against a file database, where the pool
// opens several connections and writers really contend for the lock.
// Distinct names must all succeed; a shared name succeeds once and every other
// attempt must be a conflict, never "database is locked".
func TestInsert_ConcurrentFileDB(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "graduates.db"))
	if err != nil {
		t.Fatalf("failed to create file db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		distinct  int
		raceOK    int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		name := "race"
		if i%2 == 0 {
			name = fmt.Sprintf("distinct-%d", i)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Insert(context.Background(), newGraduate(name))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && name == "race":
				raceOK++
			case err == nil:
				distinct++
			case name == "race" && errors.Is(err, apperror.ErrConflict):
				conflicts++
			default:
				t.Errorf("Insert(%q) unexpected error = %v", name, err)
			}
		}()
	}
	wg.Wait()

	if distinct != workers/2 {
		t.Errorf("distinct inserts succeeded = %d, want %d", distinct, workers/2)
	}
	if raceOK != 1 {
		t.Errorf("shared-name inserts succeeded = %d, want 1", raceOK)
	}
	if conflicts != workers/2-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, workers/2-1)
	}

	graduates, err := db.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(graduates) != workers/2+1 {
		t.Errorf("List() returned %d rows, want %d", len(graduates), workers/2+1)
	}
}

// TestNew_EveryConnectionGetsPragmas holds two pooled connections at once and
// checks that both carry the busy timeout and WAL mode.
func TestNew_EveryConnectionGetsPragmas(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "graduates.db"))
	if err != nil {
		t.Fatalf("failed to create file db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		c, err := db.conn.Conn(ctx)
		if err != nil {
			t.Fatalf("Conn() error = %v", err)
		}
		defer c.Close()

		var timeout int
		if err := c.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
			t.Fatalf("reading busy_timeout: %v", err)
		}
		if timeout != 5000 {
			t.Errorf("connection %d busy_timeout = %d, want 5000", i, timeout)
		}

		var mode string
		if err := c.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
			t.Fatalf("reading journal_mode: %v", err)
		}
		if mode != "wal" {
			t.Errorf("connection %d journal_mode = %q, want wal", i, mode)
		}
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"data/graduates.db", "data/graduates.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"},
		{"file:g.db?cache=shared", "file:g.db?cache=shared&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"},
	}
	for _, tt := range tests {
		if got := dsn(tt.path); got != tt.want {
			t.Errorf("dsn(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

// =========================================================================
// EXISTS / LIST / ID LOOKUP TESTS
// =========================================================================

func TestExistsByName(t *testing.T) {
	db := newTestDB(t)
	createTestGraduate(t, db, "ada")

	tests := []struct {
		name string
		want bool
	}{
		{"ada", true},
		{"Ada", false}, // names are compared exactly
		{"grace", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ExistsByName(context.Background(), tt.name)
			if err != nil {
				t.Fatalf("ExistsByName() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ExistsByName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestList_Empty(t *testing.T) {
	db := newTestDB(t)

	graduates, err := db.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if graduates == nil {
		t.Error("List() returned nil, want an empty slice")
	}
	if len(graduates) != 0 {
		t.Errorf("List() returned %d rows, want 0", len(graduates))
	}
}

func TestList_ReturnsAllInIDOrder(t *testing.T) {
	db := newTestDB(t)
	a := createTestGraduate(t, db, "ada")
	g := createTestGraduate(t, db, "grace")

	graduates, err := db.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(graduates) != 2 {
		t.Fatalf("List() returned %d rows, want 2", len(graduates))
	}
	if graduates[0] != *a {
		t.Errorf("graduates[0] = %+v, want %+v", graduates[0], *a)
	}
	if graduates[1] != *g {
		t.Errorf("graduates[1] = %+v, want %+v", graduates[1], *g)
	}
}

func TestList_NullColumnsReadAsEmpty(t *testing.T) {
	db := newTestDB(t)

	// Rows written by older versions of the service may have NULL columns.
	if _, err := db.conn.Exec(`INSERT INTO graduates_data (name) VALUES ('legacy')`); err != nil {
		t.Fatalf("seeding legacy row: %v", err)
	}

	graduates, err := db.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(graduates) != 1 {
		t.Fatalf("List() returned %d rows, want 1", len(graduates))
	}
	if graduates[0].GitHubURL != "" || graduates[0].Role != "" || graduates[0].CVLink != "" {
		t.Errorf("legacy row = %+v, want empty text columns", graduates[0])
	}
}

func TestIDByName(t *testing.T) {
	db := newTestDB(t)
	created := createTestGraduate(t, db, "ada")

	id, err := db.IDByName(context.Background(), "ada")
	if err != nil {
		t.Fatalf("IDByName() error = %v", err)
	}
	if id != created.ID {
		t.Errorf("IDByName() = %d, want %d", id, created.ID)
	}
}

func TestIDByName_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.IDByName(context.Background(), "nobody")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("IDByName() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// FAILURE PATHS (sqlmock)
// =========================================================================
//
// sqlmock stands in for the driver so we can make individual statements fail
// and check that the transaction is rolled back rather than committed.

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &DB{conn: conn}, mock
}

func TestInsert_RollsBackWhenInsertFails(t *testing.T) {
	db, mock := newMockDB(t)
	g := newGraduate("ada")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(graduateNameExists)).
		WithArgs("ada").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectQuery(regexp.QuoteMeta(insertGraduateReturnID)).
		WithArgs(g.Name, g.GitHubURL, g.Role, g.CVLink).
		WillReturnError(fmt.Errorf("disk I/O error"))
	mock.ExpectRollback()

	err := db.Insert(context.Background(), g)
	if err == nil {
		t.Fatal("Insert() should fail when the INSERT fails")
	}
	if g.ID != 0 {
		t.Errorf("ID = %d after failed insert, want 0", g.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestInsert_RollsBackOnConflict(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(graduateNameExists)).
		WithArgs("ada").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectRollback()

	err := db.Insert(context.Background(), newGraduate("ada"))
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Insert() error = %v, want ErrConflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestInsert_CommitFailure(t *testing.T) {
	db, mock := newMockDB(t)
	g := newGraduate("ada")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(graduateNameExists)).
		WithArgs("ada").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectQuery(regexp.QuoteMeta(insertGraduateReturnID)).
		WithArgs(g.Name, g.GitHubURL, g.Role, g.CVLink).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit().WillReturnError(fmt.Errorf("database is locked"))

	err := db.Insert(context.Background(), g)
	if err == nil {
		t.Fatal("Insert() should fail when COMMIT fails")
	}
	if g.ID != 0 {
		t.Errorf("ID = %d after failed commit, want 0", g.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestInsert_BeginFailure(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin().WillReturnError(fmt.Errorf("connection refused"))

	if err := db.Insert(context.Background(), newGraduate("ada")); err == nil {
		t.Fatal("Insert() should fail when BEGIN fails")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestList_QueryFailure(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(listGraduates)).
		WillReturnError(fmt.Errorf("no such table: graduates_data"))

	if _, err := db.List(context.Background()); err == nil {
		t.Fatal("List() should fail when the query fails")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
