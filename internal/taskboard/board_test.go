package taskboard

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func ids(rows [][]Card) [][]int64 {
	out := make([][]int64, 0, len(rows))
	for _, row := range rows {
		ids := []int64{}
		for _, c := range row {
			ids = append(ids, c.ID)
		}
		out = append(out, ids)
	}
	return out
}

func sampleBoard() Board {
	members := []Member{{UserID: 7, Name: "Ana"}, {UserID: 9, Name: "Budi"}}
	tasks := []Task{
		{ID: 1, Status: StatusPending},
		{ID: 2, Status: StatusInProgress, AssignedUserID: ptr(7)},
		{ID: 3, Status: StatusOnHold, AssignedUserID: ptr(7)},
		{ID: 4, Status: StatusPending, AssignedUserID: ptr(42)},
		{ID: 5, Status: StatusCompleted},
		{ID: 6, Status: StatusCanceled},
		{ID: 7, Status: StatusPending, AssignedUserID: ptr(7)},
		{ID: 8, Status: StatusPending},
	}
	return Build(members, tasks)
}

func TestHeadersOrder(t *testing.T) {
	headers := Headers([]Member{{UserID: 7, Name: "Ana"}})
	keys := make([]string, 0, len(headers))
	for _, h := range headers {
		keys = append(keys, h.Key)
	}
	assert.Equal(t, []string{"on_hold", "pending", "user:7", "completed", "canceled"}, keys)
	assert.Equal(t, "Ana", headers[2].Label)
}

func TestBuildBuckets(t *testing.T) {
	board := sampleBoard()

	assert.Equal(t, [][]int64{{3}}, ids(board.Columns[ColumnOnHold]))
	assert.Equal(t, [][]int64{{1}, {4}, {8}}, ids(board.Columns[ColumnPending]))
	assert.Equal(t, [][]int64{{2}, {7}}, ids(board.Columns["user:7"]))
	assert.Empty(t, board.Columns["user:9"])
	assert.Equal(t, [][]int64{{5}}, ids(board.Columns[ColumnCompleted]))
	assert.Equal(t, [][]int64{{6}}, ids(board.Columns[ColumnCanceled]))
}

func TestBuildDecoratesCards(t *testing.T) {
	board := Build(nil, []Task{{ID: 1, Status: StatusPending, EstimatedTime: "1:00", SumTime: "0:30"}})
	card := board.Columns[ColumnPending][0][0]
	assert.InDelta(t, 50, card.Progress, 1e-9)
	assert.Equal(t, BandSuccess, card.Band)
}

func TestBuildEncodesWithBadDurations(t *testing.T) {
	board := Build(nil, []Task{
		{ID: 1, Status: StatusPending, EstimatedTime: "NaN", SumTime: "0:30"},
		{ID: 2, Status: StatusPending, EstimatedTime: "1:00", SumTime: "nan"},
	})
	for _, row := range board.Columns[ColumnPending] {
		assert.Zero(t, row[0].Progress)
		assert.Equal(t, BandSuccess, row[0].Band)
	}
	_, err := json.Marshal(board)
	require.NoError(t, err)
}

func TestMoveAcrossColumns(t *testing.T) {
	board := sampleBoard()

	moved, err := board.Move(Cell{Column: ColumnPending, Row: 0}, Cell{Column: "user:9", Row: 0})
	require.NoError(t, err)
	require.Len(t, moved, 1)
	assert.Equal(t, int64(1), moved[0].ID)
	assert.Equal(t, [][]int64{{4}, {8}}, ids(board.Columns[ColumnPending]))
	assert.Equal(t, [][]int64{{1}}, ids(board.Columns["user:9"]))
}

func TestMoveWithinColumn(t *testing.T) {
	board := sampleBoard()

	_, err := board.Move(Cell{Column: ColumnPending, Row: 0}, Cell{Column: ColumnPending, Row: 2})
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{4}, {8}, {1}}, ids(board.Columns[ColumnPending]))

	_, err = board.Move(Cell{Column: ColumnPending, Row: 2}, Cell{Column: ColumnPending, Row: 0})
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{1}, {4}, {8}}, ids(board.Columns[ColumnPending]))
}

func TestMovePadsPastEnd(t *testing.T) {
	board := sampleBoard()

	_, err := board.Move(Cell{Column: ColumnPending, Row: 1}, Cell{Column: ColumnCompleted, Row: 3})
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{5}, {}, {}, {4}}, ids(board.Columns[ColumnCompleted]))
	assert.Equal(t, []Placement{{TaskID: 5, Position: 0}, {TaskID: 4, Position: 1}}, board.Placements(ColumnCompleted))
}

func TestMoveRejectsInvalidCells(t *testing.T) {
	board := sampleBoard()

	_, err := board.Move(Cell{Column: "nope", Row: 0}, Cell{Column: ColumnPending, Row: 0})
	assert.ErrorIs(t, err, ErrInvalidCell)
	_, err = board.Move(Cell{Column: ColumnPending, Row: 9}, Cell{Column: ColumnPending, Row: 0})
	assert.ErrorIs(t, err, ErrInvalidCell)
	_, err = board.Move(Cell{Column: ColumnPending, Row: 0}, Cell{Column: ColumnPending, Row: -1})
	assert.ErrorIs(t, err, ErrInvalidCell)
	assert.Equal(t, [][]int64{{1}, {4}, {8}}, ids(board.Columns[ColumnPending]))
}

func TestRetarget(t *testing.T) {
	task := Task{ID: 3, Status: StatusOnHold, AssignedUserID: ptr(7)}

	u := Retarget(task, Header{Key: "user:9", UserID: 9})
	assert.Equal(t, StatusInProgress, u.Status)
	require.NotNil(t, u.AssignedUserID)
	assert.Equal(t, int64(9), *u.AssignedUserID)

	u = Retarget(task, Header{Key: ColumnPending, Status: StatusPending})
	assert.Equal(t, StatusPending, u.Status)
	assert.Nil(t, u.AssignedUserID)

	u = Retarget(task, Header{Key: ColumnCompleted, Status: StatusCompleted})
	assert.Equal(t, StatusCompleted, u.Status)
	assert.Equal(t, ptr(7), u.AssignedUserID)

	pending := Task{ID: 1, Status: StatusPending}
	u = Retarget(pending, Header{Key: "user:7", UserID: 7})
	assert.Equal(t, StatusPending, u.Status)
}

func TestMoveRejectsFarDestination(t *testing.T) {
	board := sampleBoard()

	_, err := board.Move(Cell{Column: ColumnPending, Row: 0}, Cell{Column: ColumnCompleted, Row: 10_000_000})
	assert.ErrorIs(t, err, ErrInvalidCell)
	assert.Equal(t, [][]int64{{5}}, ids(board.Columns[ColumnCompleted]))
	assert.Equal(t, [][]int64{{1}, {4}, {8}}, ids(board.Columns[ColumnPending]), "source untouched")

	_, err = board.Move(Cell{Column: ColumnPending, Row: 0}, Cell{Column: ColumnCompleted, Row: 1 + MaxRowGap})
	require.NoError(t, err)
	assert.Len(t, board.Columns[ColumnCompleted], 2+MaxRowGap)
}
