package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/dayboard/pkg/apperr"
	"github.com/harrisonrobin/dayboard/pkg/logger"
	"github.com/harrisonrobin/dayboard/pkg/model"
)

// stubStore implements only what the tests call; anything else panics.
type stubStore struct {
	Store
	name   string
	err    error
	calls  int
	closed bool
}

func (s *stubStore) GetTask(ctx context.Context, userID, id string) (*model.Task, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &model.Task{ID: id, UserID: userID, Title: s.name}, nil
}

func (s *stubStore) CreateTask(ctx context.Context, t *model.Task) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	t.ID = s.name
	return nil
}

func (s *stubStore) Close() error {
	s.closed = true
	return nil
}

func TestFallbackUsesPrimary(t *testing.T) {
	primary := &stubStore{name: "primary"}
	local := &stubStore{name: "local"}
	f := NewFallback(primary, local, logger.Discard())

	task, err := f.GetTask(context.Background(), "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "primary", task.Title)
	assert.Equal(t, 0, local.calls)
}

func TestFallbackOnUnavailable(t *testing.T) {
	primary := &stubStore{name: "primary", err: apperr.Unavailable("supabase unreachable", errors.New("dial tcp: refused"))}
	local := &stubStore{name: "local"}
	f := NewFallback(primary, local, logger.Discard())

	task, err := f.GetTask(context.Background(), "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "local", task.Title)

	var created model.Task
	require.NoError(t, f.CreateTask(context.Background(), &created))
	assert.Equal(t, "local", created.ID)
	assert.Equal(t, 2, primary.calls)
	assert.Equal(t, 2, local.calls)
}

func TestFallbackKeepsOtherErrors(t *testing.T) {
	primary := &stubStore{name: "primary", err: apperr.NotFound("task")}
	local := &stubStore{name: "local"}
	f := NewFallback(primary, local, logger.Discard())

	_, err := f.GetTask(context.Background(), "u1", "t1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, local.calls)
}

func TestFallbackCloseClosesBoth(t *testing.T) {
	primary := &stubStore{}
	local := &stubStore{}
	require.NoError(t, NewFallback(primary, local, logger.Discard()).Close())
	assert.True(t, primary.closed)
	assert.True(t, local.closed)
}

func TestLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, Limit(0))
	assert.Equal(t, DefaultLimit, Limit(-3))
	assert.Equal(t, 10, Limit(10))
	assert.Equal(t, DefaultLimit, Limit(DefaultLimit+1))
}
