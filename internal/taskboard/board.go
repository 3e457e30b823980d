package taskboard

import "strconv"

// Fixed column keys. Member columns use memberKey.
const (
	ColumnOnHold    = "on_hold"
	ColumnPending   = "pending"
	ColumnCompleted = "completed"
	ColumnCanceled  = "canceled"
)

func memberKey(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// Headers returns the column order: On Hold, Pending, one column per member, Completed, Canceled.
func Headers(members []Member) []Header {
	headers := make([]Header, 0, len(members)+4)
	headers = append(headers,
		Header{Key: ColumnOnHold, Label: "On Hold", Status: StatusOnHold},
		Header{Key: ColumnPending, Label: "Pending", Status: StatusPending},
	)
	for _, m := range members {
		headers = append(headers, Header{Key: memberKey(m.UserID), Label: m.Name, UserID: m.UserID})
	}
	return append(headers,
		Header{Key: ColumnCompleted, Label: "Completed", Status: StatusCompleted},
		Header{Key: ColumnCanceled, Label: "Canceled", Status: StatusCanceled},
	)
}

// Build buckets tasks into columns, one row per task, keeping input order within a column.
// Open tasks go to their assignee's column when the assignee is a member and to Pending
// otherwise.
func Build(members []Member, tasks []Task) Board {
	headers := Headers(members)
	board := Board{Headers: headers, Columns: make(map[string][][]Card, len(headers))}
	for _, h := range headers {
		board.Columns[h.Key] = [][]Card{}
	}
	for _, t := range tasks {
		key := columnFor(board, t)
		board.Columns[key] = append(board.Columns[key], []Card{NewCard(t)})
	}
	return board
}

func columnFor(board Board, t Task) string {
	switch t.Status {
	case StatusOnHold:
		return ColumnOnHold
	case StatusCompleted:
		return ColumnCompleted
	case StatusCanceled:
		return ColumnCanceled
	}
	if t.AssignedUserID != nil {
		if _, ok := board.Columns[memberKey(*t.AssignedUserID)]; ok {
			return memberKey(*t.AssignedUserID)
		}
	}
	return ColumnPending
}

// Header returns the header with key.
func (b Board) Header(key string) (Header, bool) {
	for _, h := range b.Headers {
		if h.Key == key {
			return h, true
		}
	}
	return Header{}, false
}

// At returns the cards at cell.
func (b Board) At(c Cell) ([]Card, bool) {
	rows, ok := b.Columns[c.Column]
	if !ok || c.Row < 0 || c.Row >= len(rows) {
		return nil, false
	}
	return rows[c.Row], true
}
