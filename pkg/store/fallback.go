package store

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/harrisonrobin/dayboard/pkg/metrics"
	"github.com/harrisonrobin/dayboard/pkg/model"
)

// Fallback serves every call from primary and retries it once on local when
// primary reports ErrUnavailable. Other errors (not found, conflicts,
// validation) are returned as is.
type Fallback struct {
	primary Store
	local   Store
	log     *logrus.Logger
}

func NewFallback(primary, local Store, log *logrus.Logger) *Fallback {
	return &Fallback{primary: primary, local: local, log: log}
}

func call[T any](ctx context.Context, f *Fallback, op string, fn func(Store) (T, error)) (T, error) {
	v, err := fn(f.primary)
	if err == nil || !errors.Is(err, ErrUnavailable) {
		return v, err
	}
	f.log.WithContext(ctx).WithError(err).WithField("op", op).Warn("primary store unavailable, using local store")
	metrics.RecordStoreFallback(op)
	return fn(f.local)
}

func exec(ctx context.Context, f *Fallback, op string, fn func(Store) error) error {
	_, err := call(ctx, f, op, func(s Store) (struct{}, error) {
		return struct{}{}, fn(s)
	})
	return err
}

func (f *Fallback) Close() error {
	return errors.Join(f.primary.Close(), f.local.Close())
}

func (f *Fallback) CreateTask(ctx context.Context, t *model.Task) error {
	return exec(ctx, f, "CreateTask", func(s Store) error { return s.CreateTask(ctx, t) })
}

func (f *Fallback) GetTask(ctx context.Context, userID, id string) (*model.Task, error) {
	return call(ctx, f, "GetTask", func(s Store) (*model.Task, error) { return s.GetTask(ctx, userID, id) })
}

func (f *Fallback) ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	return call(ctx, f, "ListTasks", func(s Store) ([]model.Task, error) { return s.ListTasks(ctx, filter) })
}

func (f *Fallback) UpdateTask(ctx context.Context, t *model.Task) error {
	return exec(ctx, f, "UpdateTask", func(s Store) error { return s.UpdateTask(ctx, t) })
}

func (f *Fallback) DeleteTask(ctx context.Context, userID, id string) error {
	return exec(ctx, f, "DeleteTask", func(s Store) error { return s.DeleteTask(ctx, userID, id) })
}

func (f *Fallback) FindTaskByExternalID(ctx context.Context, userID, source, externalID string) (*model.Task, error) {
	return call(ctx, f, "FindTaskByExternalID", func(s Store) (*model.Task, error) {
		return s.FindTaskByExternalID(ctx, userID, source, externalID)
	})
}

func (f *Fallback) CreateGoal(ctx context.Context, g *model.Goal) error {
	return exec(ctx, f, "CreateGoal", func(s Store) error { return s.CreateGoal(ctx, g) })
}

func (f *Fallback) GetGoal(ctx context.Context, userID, id string) (*model.Goal, error) {
	return call(ctx, f, "GetGoal", func(s Store) (*model.Goal, error) { return s.GetGoal(ctx, userID, id) })
}

func (f *Fallback) ListGoals(ctx context.Context, userID string, status model.GoalStatus) ([]model.Goal, error) {
	return call(ctx, f, "ListGoals", func(s Store) ([]model.Goal, error) { return s.ListGoals(ctx, userID, status) })
}

func (f *Fallback) UpdateGoal(ctx context.Context, g *model.Goal) error {
	return exec(ctx, f, "UpdateGoal", func(s Store) error { return s.UpdateGoal(ctx, g) })
}

func (f *Fallback) DeleteGoal(ctx context.Context, userID, id string) error {
	return exec(ctx, f, "DeleteGoal", func(s Store) error { return s.DeleteGoal(ctx, userID, id) })
}

func (f *Fallback) AddEnergy(ctx context.Context, e *model.EnergyEntry) error {
	return exec(ctx, f, "AddEnergy", func(s Store) error { return s.AddEnergy(ctx, e) })
}

func (f *Fallback) ListEnergy(ctx context.Context, userID string, limit int) ([]model.EnergyEntry, error) {
	return call(ctx, f, "ListEnergy", func(s Store) ([]model.EnergyEntry, error) { return s.ListEnergy(ctx, userID, limit) })
}

func (f *Fallback) EnergyTotal(ctx context.Context, userID string) (int, error) {
	return call(ctx, f, "EnergyTotal", func(s Store) (int, error) { return s.EnergyTotal(ctx, userID) })
}

func (f *Fallback) HasEnergyReference(ctx context.Context, userID, source, referenceID string) (bool, error) {
	return call(ctx, f, "HasEnergyReference", func(s Store) (bool, error) {
		return s.HasEnergyReference(ctx, userID, source, referenceID)
	})
}

func (f *Fallback) CreateEmail(ctx context.Context, e *model.Email) error {
	return exec(ctx, f, "CreateEmail", func(s Store) error { return s.CreateEmail(ctx, e) })
}

func (f *Fallback) GetEmail(ctx context.Context, id string) (*model.Email, error) {
	return call(ctx, f, "GetEmail", func(s Store) (*model.Email, error) { return s.GetEmail(ctx, id) })
}

func (f *Fallback) ListEmails(ctx context.Context, filter EmailFilter) ([]model.Email, error) {
	return call(ctx, f, "ListEmails", func(s Store) ([]model.Email, error) { return s.ListEmails(ctx, filter) })
}

func (f *Fallback) UpdateEmail(ctx context.Context, e *model.Email) error {
	return exec(ctx, f, "UpdateEmail", func(s Store) error { return s.UpdateEmail(ctx, e) })
}

func (f *Fallback) DeleteEmail(ctx context.Context, id string) error {
	return exec(ctx, f, "DeleteEmail", func(s Store) error { return s.DeleteEmail(ctx, id) })
}

func (f *Fallback) UpsertCustomer(ctx context.Context, c *model.CustomerProfile) error {
	return exec(ctx, f, "UpsertCustomer", func(s Store) error { return s.UpsertCustomer(ctx, c) })
}

func (f *Fallback) GetCustomer(ctx context.Context, email string) (*model.CustomerProfile, error) {
	return call(ctx, f, "GetCustomer", func(s Store) (*model.CustomerProfile, error) { return s.GetCustomer(ctx, email) })
}

func (f *Fallback) ListCustomers(ctx context.Context, limit int) ([]model.CustomerProfile, error) {
	return call(ctx, f, "ListCustomers", func(s Store) ([]model.CustomerProfile, error) { return s.ListCustomers(ctx, limit) })
}
