package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lherron/wrkboard/internal/domain"
	"github.com/lherron/wrkboard/internal/events"
)

// BoardStore handles board persistence operations.
type BoardStore struct {
	store *Store
}

// CreateBoardParams contains the parameters for creating a board.
type CreateBoardParams struct {
	Name        string
	Description string
	OwnerUserID string
}

// BoardPatch is a partial board update. Nil fields are left untouched.
type BoardPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

const boardColumns = `uuid, id, name, description, owner_user_id, etag, created_at, updated_at`

// Create creates a board and makes its owner an owner member.
func (bs *BoardStore) Create(userID string, params CreateBoardParams) (*domain.Board, error) {
	if err := domain.ValidateBoardName(params.Name); err != nil {
		return nil, err
	}
	owner := strings.TrimSpace(params.OwnerUserID)
	if owner == "" {
		owner = userID
	}
	if owner == "" {
		return nil, &domain.ValidationError{Field: "owner", Message: "is required"}
	}

	var board *domain.Board
	err := bs.store.withTx(func(tx *sql.Tx, ew *events.Writer) error {
		boardUUID := uuid.NewString()
		_, err := tx.Exec(`
			INSERT INTO boards (uuid, name, description, owner_user_id)
			VALUES (?, ?, ?, ?)
		`, boardUUID, strings.TrimSpace(params.Name), params.Description, owner)
		if err != nil {
			return fmt.Errorf("failed to create board: %w", err)
		}

		member, err := insertMember(tx, boardUUID, owner, domain.MemberRoleOwner)
		if err != nil {
			return err
		}

		board, err = getBoard(tx, boardUUID)
		if err != nil {
			return err
		}

		if err := ew.LogBoardCreated(tx, userID, board); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		if err := ew.LogMemberAdded(tx, userID, member); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return board, nil
}

// Get retrieves a board by UUID.
func (bs *BoardStore) Get(boardUUID string) (*domain.Board, error) {
	return getBoard(bs.store.db, boardUUID)
}

// List returns boards ordered by creation. When userID is set only boards
// the user is a member of are returned.
func (bs *BoardStore) List(userID string) ([]domain.Board, error) {
	query := `SELECT ` + boardColumns + ` FROM boards`
	var args []any
	if userID != "" {
		query += ` WHERE uuid IN (SELECT board_uuid FROM members WHERE user_id = ?)`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := bs.store.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	defer rows.Close()

	boards := []domain.Board{}
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan board: %w", err)
		}
		boards = append(boards, *b)
	}
	return boards, rows.Err()
}

// Update applies a partial update to a board.
func (bs *BoardStore) Update(userID, boardUUID string, patch BoardPatch, ifMatch int64) (*domain.Board, error) {
	if patch.Name != nil {
		if err := domain.ValidateBoardName(*patch.Name); err != nil {
			return nil, err
		}
	}

	var board *domain.Board
	err := bs.store.withTx(func(tx *sql.Tx, ew *events.Writer) error {
		current, err := getBoard(tx, boardUUID)
		if err != nil {
			return err
		}
		if err := requireOwner(current, userID, "edit board"); err != nil {
			return err
		}
		if err := checkETag(current.ETag, ifMatch); err != nil {
			return err
		}

		changes := map[string]any{}
		sets := []string{}
		args := []any{}
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			sets = append(sets, "name = ?")
			args = append(args, name)
			changes["name"] = name
		}
		if patch.Description != nil {
			sets = append(sets, "description = ?")
			args = append(args, *patch.Description)
			changes["description"] = *patch.Description
		}
		if len(sets) == 0 {
			board = current
			return nil
		}

		sets = append(sets, "etag = etag + 1", "updated_at = "+nowSQL)
		args = append(args, boardUUID)
		if _, err := tx.Exec("UPDATE boards SET "+strings.Join(sets, ", ")+" WHERE uuid = ?", args...); err != nil {
			return fmt.Errorf("failed to update board: %w", err)
		}

		board, err = getBoard(tx, boardUUID)
		if err != nil {
			return err
		}
		if err := ew.LogBoardUpdated(tx, userID, board, changes); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return board, nil
}

// Delete removes a board with its columns, tasks and members.
func (bs *BoardStore) Delete(userID, boardUUID string, ifMatch int64) error {
	return bs.store.withTx(func(tx *sql.Tx, ew *events.Writer) error {
		current, err := getBoard(tx, boardUUID)
		if err != nil {
			return err
		}
		if err := requireOwner(current, userID, "delete board"); err != nil {
			return err
		}
		if err := checkETag(current.ETag, ifMatch); err != nil {
			return err
		}

		if err := ew.LogBoardDeleted(tx, userID, boardUUID); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM boards WHERE uuid = ?", boardUUID); err != nil {
			return fmt.Errorf("failed to delete board: %w", err)
		}
		return nil
	})
}

// requireOwner fails unless userID owns the board.
func requireOwner(board *domain.Board, userID, action string) error {
	if board.OwnerUserID != userID {
		return &domain.ForbiddenError{UserID: userID, Action: action}
	}
	return nil
}

func getBoard(q queryer, boardUUID string) (*domain.Board, error) {
	b, err := scanBoard(q.QueryRow(`SELECT `+boardColumns+` FROM boards WHERE uuid = ?`, boardUUID))
	if err != nil {
		return nil, notFound(err, "board", boardUUID)
	}
	return b, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBoard(row scanner) (*domain.Board, error) {
	b := &domain.Board{}
	var createdAt, updatedAt string
	if err := row.Scan(&b.UUID, &b.ID, &b.Name, &b.Description, &b.OwnerUserID, &b.ETag, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return b, nil
}
