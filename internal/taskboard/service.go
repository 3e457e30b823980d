package taskboard

import (
	"context"
	"fmt"
	"log/slog"
)

// Repository provides persistence for the board.
type Repository interface {
	GroupExists(ctx context.Context, groupID int64) (bool, error)
	ListGroupTasks(ctx context.Context, groupID int64) ([]Task, error)
	ListGroupMembers(ctx context.Context, groupID int64) ([]Member, error)
	ApplyMove(ctx context.Context, groupID int64, updates []TaskUpdate, placements []Placement) error
}

// Service builds boards and applies drag-and-drop moves.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a taskboard service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Board loads the group's members and tasks and buckets them.
func (s *Service) Board(ctx context.Context, groupID int64) (Board, error) {
	ok, err := s.repo.GroupExists(ctx, groupID)
	if err != nil {
		return Board{}, fmt.Errorf("lookup group: %w", err)
	}
	if !ok {
		return Board{}, ErrNotFound
	}
	members, err := s.repo.ListGroupMembers(ctx, groupID)
	if err != nil {
		return Board{}, fmt.Errorf("list members: %w", err)
	}
	tasks, err := s.repo.ListGroupTasks(ctx, groupID)
	if err != nil {
		return Board{}, fmt.Errorf("list tasks: %w", err)
	}
	return Build(members, tasks), nil
}

// MoveRequest describes a card dropped from one cell to another. TaskID must match the
// first card at From so moves made against an outdated board are refused.
type MoveRequest struct {
	TaskID int64 `json:"task_id" validate:"required,gt=0"`
	From   Cell  `json:"from"`
	To     Cell  `json:"to"`
}

// MoveTask applies the move to a freshly loaded board and persists the moved row's
// column change together with the new positions of both affected columns.
func (s *Service) MoveTask(ctx context.Context, groupID int64, req MoveRequest) (Board, error) {
	board, err := s.Board(ctx, groupID)
	if err != nil {
		return Board{}, err
	}
	cards, ok := board.At(req.From)
	if !ok {
		return Board{}, fmt.Errorf("%w: source %s[%d]", ErrInvalidCell, req.From.Column, req.From.Row)
	}
	if len(cards) == 0 || cards[0].ID != req.TaskID {
		return Board{}, ErrStaleBoard
	}
	header, ok := board.Header(req.To.Column)
	if !ok {
		return Board{}, fmt.Errorf("%w: destination %s", ErrInvalidCell, req.To.Column)
	}
	// Empty padding rows are not persisted, so a drop past the end lands at the end.
	end := len(board.Columns[req.To.Column])
	if req.From.Column == req.To.Column {
		end--
	}
	if req.To.Row > end {
		req.To.Row = end
	}
	if _, err := board.Move(req.From, req.To); err != nil {
		return Board{}, err
	}

	updates := make([]TaskUpdate, 0, len(cards))
	for i := range cards {
		u := Retarget(cards[i].Task, header)
		cards[i].Status = u.Status
		cards[i].AssignedUserID = u.AssignedUserID
		updates = append(updates, u)
	}
	placements := board.Placements(req.To.Column)
	if req.From.Column != req.To.Column {
		placements = append(placements, board.Placements(req.From.Column)...)
	}
	if err := s.repo.ApplyMove(ctx, groupID, updates, placements); err != nil {
		return Board{}, fmt.Errorf("persist move: %w", err)
	}
	s.logger.Info("task moved",
		slog.Int64("group_id", groupID),
		slog.Int64("task_id", req.TaskID),
		slog.String("from", req.From.Column),
		slog.String("to", req.To.Column),
		slog.Int("row", req.To.Row))
	return board, nil
}
