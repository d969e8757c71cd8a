// Package store defines the persistence interfaces shared by the SQL and
// Supabase implementations, and the fallback wrapper that serves from a
// local database when the hosted backend cannot be reached.
package store

import (
	"context"
	"time"

	"github.com/harrisonrobin/dayboard/pkg/apperr"
	"github.com/harrisonrobin/dayboard/pkg/model"
)

var (
	ErrNotFound    = apperr.ErrNotFound
	ErrConflict    = apperr.ErrConflict
	ErrUnavailable = apperr.ErrUnavailable
)

// TaskFilter selects a user's tasks. A zero Limit returns every match;
// request handlers clamp it with Limit before listing.
type TaskFilter struct {
	UserID    string
	Status    model.TaskStatus
	GoalID    string
	Tag       string
	DueBefore *time.Time
	Limit     int
}

type EmailFilter struct {
	Status   model.EmailStatus
	Category model.Category
	From     string
	Limit    int
}

type TaskStore interface {
	CreateTask(ctx context.Context, t *model.Task) error
	GetTask(ctx context.Context, userID, id string) (*model.Task, error)
	ListTasks(ctx context.Context, f TaskFilter) ([]model.Task, error)
	UpdateTask(ctx context.Context, t *model.Task) error
	DeleteTask(ctx context.Context, userID, id string) error
	FindTaskByExternalID(ctx context.Context, userID, source, externalID string) (*model.Task, error)
}

type GoalStore interface {
	CreateGoal(ctx context.Context, g *model.Goal) error
	GetGoal(ctx context.Context, userID, id string) (*model.Goal, error)
	ListGoals(ctx context.Context, userID string, status model.GoalStatus) ([]model.Goal, error)
	UpdateGoal(ctx context.Context, g *model.Goal) error
	DeleteGoal(ctx context.Context, userID, id string) error
}

type EnergyStore interface {
	AddEnergy(ctx context.Context, e *model.EnergyEntry) error
	ListEnergy(ctx context.Context, userID string, limit int) ([]model.EnergyEntry, error)
	EnergyTotal(ctx context.Context, userID string) (int, error)
	HasEnergyReference(ctx context.Context, userID, source, referenceID string) (bool, error)
}

type EmailStore interface {
	CreateEmail(ctx context.Context, e *model.Email) error
	GetEmail(ctx context.Context, id string) (*model.Email, error)
	ListEmails(ctx context.Context, f EmailFilter) ([]model.Email, error)
	UpdateEmail(ctx context.Context, e *model.Email) error
	DeleteEmail(ctx context.Context, id string) error
}

type CustomerStore interface {
	UpsertCustomer(ctx context.Context, c *model.CustomerProfile) error
	GetCustomer(ctx context.Context, email string) (*model.CustomerProfile, error)
	ListCustomers(ctx context.Context, limit int) ([]model.CustomerProfile, error)
}

// Store is the full persistence surface.
type Store interface {
	TaskStore
	GoalStore
	EnergyStore
	EmailStore
	CustomerStore
	Close() error
}

const DefaultLimit = 200

// Limit clamps n into (0, DefaultLimit].
func Limit(n int) int {
	if n <= 0 || n > DefaultLimit {
		return DefaultLimit
	}
	return n
}
