package sqlstore

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/dayboard/pkg/apperr"
	"github.com/harrisonrobin/dayboard/pkg/model"
	"github.com/harrisonrobin/dayboard/pkg/store"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func openSQLite(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "dayboard.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrateExecutesAllStatements(t *testing.T) {
	s, mock := newMock(t)
	stmts := Statements("sqlmock")
	require.NotEmpty(t, stmts)
	for range stmts {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatementsUseDriverTimestampType(t *testing.T) {
	for _, stmt := range Statements(DriverPostgres) {
		assert.NotContains(t, stmt, "{{ts}}")
	}
	assert.Contains(t, Statements(DriverPostgres)[0], "TIMESTAMPTZ")
	assert.NotContains(t, Statements(DriverSQLite)[0], "TIMESTAMPTZ")
}

func TestGetTaskNotFound(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("SELECT .* FROM tasks WHERE user_id").
		WithArgs("u1", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetTask(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTaskNoRows(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec("UPDATE tasks SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateTask(context.Background(), &model.Task{ID: "t1", UserID: "u1", Title: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBadConnIsUnavailable(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("SELECT COALESCE").WillReturnError(driver.ErrBadConn)

	_, err := s.EnergyTotal(context.Background(), "u1")
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestOtherErrorsAreWrapped(t *testing.T) {
	s, mock := newMock(t)
	boom := errors.New("syntax error")
	mock.ExpectExec("DELETE FROM goals").WillReturnError(boom)

	err := s.DeleteGoal(context.Background(), "u1", "g1")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestListTasksBuildsFilter(t *testing.T) {
	s, mock := newMock(t)
	due := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`WHERE user_id = \? AND status = \? AND \(',' \|\| tags \|\| ','\) LIKE \? AND due IS NOT NULL AND due < \?`).
		WithArgs("u1", model.StatusTodo, "%,work,%", due, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "tags"}).
			AddRow("t1", "u1", "Write report", "work,writing"))

	tasks, err := s.ListTasks(context.Background(), store.TaskFilter{
		UserID: "u1", Status: model.StatusTodo, Tag: "work", DueBefore: &due, Limit: 5,
	})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, model.Tags{"work", "writing"}, tasks[0].Tags)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteTaskRoundTrip(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	due := now.Add(48 * time.Hour)

	task := &model.Task{
		ID: "t1", UserID: "u1", Title: "Write report", Priority: model.PriorityHigh, Status: model.StatusTodo,
		Due: &due, EstimateMinutes: 45, Tags: model.Tags{"work"}, Source: model.SourceTaskwarrior,
		ExternalID: "tw-1", CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.CreateTask(ctx, task))

	dup := *task
	dup.ID = "t2"
	err := s.CreateTask(ctx, &dup)
	assert.ErrorIs(t, err, store.ErrConflict)

	got, err := s.GetTask(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "Write report", got.Title)
	assert.Equal(t, model.Tags{"work"}, got.Tags)
	require.NotNil(t, got.Due)
	assert.True(t, got.Due.Equal(due))
	assert.Nil(t, got.CompletedAt)

	_, err = s.GetTask(ctx, "someone-else", "t1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	found, err := s.FindTaskByExternalID(ctx, "u1", model.SourceTaskwarrior, "tw-1")
	require.NoError(t, err)
	assert.Equal(t, "t1", found.ID)

	completed := now.Add(time.Hour)
	got.Status = model.StatusCompleted
	got.CompletedAt = &completed
	got.UpdatedAt = completed
	require.NoError(t, s.UpdateTask(ctx, got))

	open, err := s.ListTasks(ctx, store.TaskFilter{UserID: "u1", Status: model.StatusTodo})
	require.NoError(t, err)
	assert.Empty(t, open)

	tagged, err := s.ListTasks(ctx, store.TaskFilter{UserID: "u1", Tag: "work"})
	require.NoError(t, err)
	assert.Len(t, tagged, 1)

	require.NoError(t, s.DeleteTask(ctx, "u1", "t1"))
	assert.ErrorIs(t, s.DeleteTask(ctx, "u1", "t1"), store.ErrNotFound)
}

func TestSQLiteListTasksUnbounded(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < store.DefaultLimit+50; i++ {
		at := now.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.CreateTask(ctx, &model.Task{
			ID: fmt.Sprintf("t%03d", i), UserID: "u1", Title: "Task", Priority: model.PriorityLow,
			Status: model.StatusTodo, Source: model.SourceAPI, CreatedAt: at, UpdatedAt: at,
		}))
	}

	all, err := s.ListTasks(ctx, store.TaskFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, all, store.DefaultLimit+50)
	assert.Equal(t, "t249", all[len(all)-1].ID)

	page, err := s.ListTasks(ctx, store.TaskFilter{UserID: "u1", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page, 10)
}

func TestSQLiteEnergy(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	total, err := s.EnergyTotal(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	require.NoError(t, s.AddEnergy(ctx, &model.EnergyEntry{ID: "e1", UserID: "u1", Points: 30, Source: model.EnergySourceTask, ReferenceID: "t1", CreatedAt: now}))
	require.NoError(t, s.AddEnergy(ctx, &model.EnergyEntry{ID: "e2", UserID: "u1", Points: 15, Source: model.EnergySourceManual, CreatedAt: now.Add(time.Minute)}))
	require.NoError(t, s.AddEnergy(ctx, &model.EnergyEntry{ID: "e3", UserID: "u1", Points: 5, Source: model.EnergySourceManual, CreatedAt: now.Add(2 * time.Minute)}))

	err = s.AddEnergy(ctx, &model.EnergyEntry{ID: "e4", UserID: "u1", Points: 30, Source: model.EnergySourceTask, ReferenceID: "t1", CreatedAt: now})
	assert.ErrorIs(t, err, store.ErrConflict)

	total, err = s.EnergyTotal(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 50, total)

	has, err := s.HasEnergyReference(ctx, "u1", model.EnergySourceTask, "t1")
	require.NoError(t, err)
	assert.True(t, has)

	entries, err := s.ListEnergy(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "e3", entries[0].ID)
}

func TestSQLiteInbox(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	email := &model.Email{
		ID: "m1", FromEmail: "ana@example.com", Subject: "Refund", Body: "I was charged twice",
		Category: model.CategoryBilling, Sentiment: model.SentimentNegative, Priority: model.PriorityHigh,
		Status: model.EmailNew, ReceivedAt: now,
	}
	require.NoError(t, s.CreateEmail(ctx, email))

	email.Status = model.EmailReplied
	email.Reply = "Refunded."
	replied := now.Add(time.Hour)
	email.RepliedAt = &replied
	require.NoError(t, s.UpdateEmail(ctx, email))

	list, err := s.ListEmails(ctx, store.EmailFilter{Status: model.EmailReplied})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Refunded.", list[0].Reply)

	c := &model.CustomerProfile{Email: "ana@example.com", Name: "Ana", TicketCount: 1, SentimentScore: -2, LastContact: now}
	require.NoError(t, s.UpsertCustomer(ctx, c))
	c.TicketCount = 2
	require.NoError(t, s.UpsertCustomer(ctx, c))

	got, err := s.GetCustomer(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, got.TicketCount)
	assert.Equal(t, -2, got.SentimentScore)

	customers, err := s.ListCustomers(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, customers, 1)

	require.NoError(t, s.DeleteEmail(ctx, "m1"))
	_, err = s.GetEmail(ctx, "m1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
