package taskboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	exists     bool
	tasks      []Task
	members    []Member
	updates    []TaskUpdate
	placements []Placement
	moveErr    error
}

func (s *stubRepo) GroupExists(context.Context, int64) (bool, error) { return s.exists, nil }

func (s *stubRepo) ListGroupTasks(context.Context, int64) ([]Task, error) { return s.tasks, nil }

func (s *stubRepo) ListGroupMembers(context.Context, int64) ([]Member, error) {
	return s.members, nil
}

func (s *stubRepo) ApplyMove(_ context.Context, _ int64, updates []TaskUpdate, placements []Placement) error {
	if s.moveErr != nil {
		return s.moveErr
	}
	s.updates = updates
	s.placements = placements
	return nil
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		exists:  true,
		members: []Member{{UserID: 7, Name: "Ana"}},
		tasks: []Task{
			{ID: 1, Status: StatusPending},
			{ID: 2, Status: StatusPending},
			{ID: 3, Status: StatusInProgress, AssignedUserID: ptr(7)},
		},
	}
}

func TestServiceBoardUnknownGroup(t *testing.T) {
	svc := NewService(&stubRepo{}, nil)
	_, err := svc.Board(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceMoveTaskPersists(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil)

	board, err := svc.MoveTask(context.Background(), 1, MoveRequest{
		TaskID: 2,
		From:   Cell{Column: ColumnPending, Row: 1},
		To:     Cell{Column: "user:7", Row: 0},
	})
	require.NoError(t, err)

	assert.Equal(t, [][]int64{{2}, {3}}, ids(board.Columns["user:7"]))
	assert.Equal(t, [][]int64{{1}}, ids(board.Columns[ColumnPending]))

	require.Len(t, repo.updates, 1)
	assert.Equal(t, int64(2), repo.updates[0].TaskID)
	assert.Equal(t, StatusPending, repo.updates[0].Status)
	assert.Equal(t, ptr(7), repo.updates[0].AssignedUserID)
	assert.Equal(t, []Placement{
		{TaskID: 2, Position: 0},
		{TaskID: 3, Position: 1},
		{TaskID: 1, Position: 0},
	}, repo.placements)
}

func TestServiceMoveTaskStale(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil)

	_, err := svc.MoveTask(context.Background(), 1, MoveRequest{
		TaskID: 3,
		From:   Cell{Column: ColumnPending, Row: 0},
		To:     Cell{Column: ColumnCompleted, Row: 0},
	})
	assert.ErrorIs(t, err, ErrStaleBoard)
	assert.Nil(t, repo.updates)
}

func TestServiceMoveTaskPersistFailure(t *testing.T) {
	repo := newStubRepo()
	repo.moveErr = errors.New("db down")
	svc := NewService(repo, nil)

	_, err := svc.MoveTask(context.Background(), 1, MoveRequest{
		TaskID: 1,
		From:   Cell{Column: ColumnPending, Row: 0},
		To:     Cell{Column: ColumnCompleted, Row: 0},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, repo.moveErr)
}

func TestServiceMoveTaskClampsDestinationRow(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil)

	board, err := svc.MoveTask(context.Background(), 1, MoveRequest{
		TaskID: 1,
		From:   Cell{Column: ColumnPending, Row: 0},
		To:     Cell{Column: ColumnCompleted, Row: 1_000_000_000},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{1}}, ids(board.Columns[ColumnCompleted]))
	assert.Equal(t, []Placement{{TaskID: 1, Position: 0}, {TaskID: 2, Position: 0}}, repo.placements)

	board, err = svc.MoveTask(context.Background(), 1, MoveRequest{
		TaskID: 1,
		From:   Cell{Column: ColumnPending, Row: 0},
		To:     Cell{Column: ColumnPending, Row: 50},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{2}, {1}}, ids(board.Columns[ColumnPending]))
}
