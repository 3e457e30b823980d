package taskboard

import "fmt"

// MaxRowGap bounds how many empty rows a move may pad past the end of a column.
const MaxRowGap = 32

// Move relocates the row at from to to. The source row is removed; when source and
// destination share a column the destination index applies to the shortened column. A
// destination past the end pads the column with empty rows, at most MaxRowGap of them.
// It returns the moved cards.
func (b *Board) Move(from, to Cell) ([]Card, error) {
	src, ok := b.Columns[from.Column]
	if !ok || from.Row < 0 || from.Row >= len(src) {
		return nil, fmt.Errorf("%w: source %s[%d]", ErrInvalidCell, from.Column, from.Row)
	}
	if _, ok := b.Columns[to.Column]; !ok || to.Row < 0 {
		return nil, fmt.Errorf("%w: destination %s[%d]", ErrInvalidCell, to.Column, to.Row)
	}

	dstLen := len(b.Columns[to.Column])
	if from.Column == to.Column {
		dstLen--
	}
	if to.Row > dstLen+MaxRowGap {
		return nil, fmt.Errorf("%w: destination %s[%d]", ErrInvalidCell, to.Column, to.Row)
	}

	moved := src[from.Row]
	remaining := make([][]Card, 0, len(src)-1)
	remaining = append(remaining, src[:from.Row]...)
	remaining = append(remaining, src[from.Row+1:]...)
	b.Columns[from.Column] = remaining

	dst := b.Columns[to.Column]
	for len(dst) < to.Row {
		dst = append(dst, []Card{})
	}
	out := make([][]Card, 0, len(dst)+1)
	out = append(out, dst[:to.Row]...)
	out = append(out, moved)
	out = append(out, dst[to.Row:]...)
	b.Columns[to.Column] = out
	return moved, nil
}

// Placements numbers the tasks of column in row order.
func (b Board) Placements(column string) []Placement {
	var out []Placement
	pos := 0
	for _, row := range b.Columns[column] {
		for _, card := range row {
			out = append(out, Placement{TaskID: card.ID, Position: pos})
			pos++
		}
	}
	return out
}

// Retarget returns the change a drop into header implies for t. Fixed columns set the
// status and Pending also clears the assignee; member columns assign the member and
// reopen closed or held tasks as in progress.
func Retarget(t Task, header Header) TaskUpdate {
	update := TaskUpdate{TaskID: t.ID, Status: t.Status, AssignedUserID: t.AssignedUserID}
	if header.UserID > 0 {
		uid := header.UserID
		update.AssignedUserID = &uid
		if t.Status != StatusPending && t.Status != StatusInProgress {
			update.Status = StatusInProgress
		}
		return update
	}
	update.Status = header.Status
	if header.Key == ColumnPending {
		update.AssignedUserID = nil
	}
	return update
}
