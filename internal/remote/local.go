// Package remote provides the authoritative-store collaborators the
// reconcile engine persists through: an in-process adapter over the SQLite
// store and an HTTP client for a wrkboardd server.
package remote

import (
	"context"

	"github.com/lherron/wrkboard/internal/domain"
	"github.com/lherron/wrkboard/internal/selectors"
	"github.com/lherron/wrkboard/internal/store"
)

// Local persists straight into a Store, acting as a fixed user.
type Local struct {
	store  *store.Store
	userID string
}

// NewLocal returns a Local acting as userID.
func NewLocal(s *store.Store, userID string) *Local {
	return &Local{store: s, userID: userID}
}

func (l *Local) FetchBoard(ctx context.Context, boardUUID string) (*domain.Board, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.store.Boards.Get(boardUUID)
}

// ResolveBoard returns the board a selector (friendly ID, UUID or name) names.
func (l *Local) ResolveBoard(ctx context.Context, selector string) (*domain.Board, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := selectors.ResolveBoard(l.store.DB(), selector)
	if err != nil {
		return nil, err
	}
	return l.store.Boards.Get(r.UUID)
}

func (l *Local) FetchColumns(ctx context.Context, boardUUID string) ([]domain.Column, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.store.Columns.ListByBoard(boardUUID)
}

func (l *Local) FetchColumn(ctx context.Context, columnUUID string) (*domain.Column, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.store.Columns.Get(columnUUID)
}

func (l *Local) FetchTask(ctx context.Context, taskUUID string) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.store.Tasks.Get(taskUUID)
}

func (l *Local) UpdateColumnPosition(ctx context.Context, columnUUID string, position int) (*domain.Column, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.store.Columns.UpdatePosition(l.userID, columnUUID, position)
}

func (l *Local) UpdateTask(ctx context.Context, taskUUID string, patch domain.TaskPatch) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.store.Tasks.Update(l.userID, taskUUID, patch, 0)
}
