package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lherron/wrkboard/internal/domain"
	"github.com/lherron/wrkboard/internal/events"
)

// MemberStore handles board membership.
type MemberStore struct {
	store *Store
}

const memberColumns = `uuid, id, board_uuid, user_id, role, created_at`

// Add grants a user access to a board. Only the board owner may add
// members. An empty role means member.
func (ms *MemberStore) Add(userID, boardUUID, memberUserID string, role domain.MemberRole) (*domain.Member, error) {
	memberUserID = strings.TrimSpace(memberUserID)
	if memberUserID == "" {
		return nil, &domain.ValidationError{Field: "user_id", Message: "is required"}
	}
	if role == "" {
		role = domain.MemberRoleMember
	}
	if err := domain.ValidateMemberRole(role); err != nil {
		return nil, err
	}

	var member *domain.Member
	err := ms.store.withTx(func(tx *sql.Tx, ew *events.Writer) error {
		board, err := getBoard(tx, boardUUID)
		if err != nil {
			return err
		}
		if err := requireOwner(board, userID, "add member"); err != nil {
			return err
		}

		var exists int
		err = tx.QueryRow("SELECT COUNT(*) FROM members WHERE board_uuid = ? AND user_id = ?", boardUUID, memberUserID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check membership: %w", err)
		}
		if exists > 0 {
			return &domain.ValidationError{Field: "user_id", Message: fmt.Sprintf("%s is already a member", memberUserID)}
		}

		member, err = insertMember(tx, boardUUID, memberUserID, role)
		if err != nil {
			return err
		}
		if err := ew.LogMemberAdded(tx, userID, member); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// Remove revokes a user's access. Only the board owner may remove members,
// and the owner cannot be removed.
func (ms *MemberStore) Remove(userID, boardUUID, memberUserID string) error {
	return ms.store.withTx(func(tx *sql.Tx, ew *events.Writer) error {
		board, err := getBoard(tx, boardUUID)
		if err != nil {
			return err
		}
		if err := requireOwner(board, userID, "remove member"); err != nil {
			return err
		}

		member, err := scanMember(tx.QueryRow(
			`SELECT `+memberColumns+` FROM members WHERE board_uuid = ? AND user_id = ?`, boardUUID, memberUserID))
		if err != nil {
			return notFound(err, "member", memberUserID)
		}
		if member.Role == domain.MemberRoleOwner {
			return &domain.ValidationError{Field: "user_id", Message: "the board owner cannot be removed"}
		}

		if _, err := tx.Exec("DELETE FROM members WHERE uuid = ?", member.UUID); err != nil {
			return fmt.Errorf("failed to remove member: %w", err)
		}
		if err := ew.LogMemberRemoved(tx, userID, member); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		return nil
	})
}

// List returns a board's members, owner first.
func (ms *MemberStore) List(boardUUID string) ([]domain.Member, error) {
	if _, err := getBoard(ms.store.db, boardUUID); err != nil {
		return nil, err
	}

	rows, err := ms.store.db.Query(`
		SELECT `+memberColumns+` FROM members WHERE board_uuid = ?
		ORDER BY CASE role WHEN 'owner' THEN 0 ELSE 1 END, id
	`, boardUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []domain.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func insertMember(tx *sql.Tx, boardUUID, userID string, role domain.MemberRole) (*domain.Member, error) {
	memberUUID := uuid.NewString()
	_, err := tx.Exec(`
		INSERT INTO members (uuid, board_uuid, user_id, role)
		VALUES (?, ?, ?, ?)
	`, memberUUID, boardUUID, userID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	m, err := scanMember(tx.QueryRow(`SELECT `+memberColumns+` FROM members WHERE uuid = ?`, memberUUID))
	if err != nil {
		return nil, fmt.Errorf("failed to read member: %w", err)
	}
	return m, nil
}

func scanMember(row scanner) (*domain.Member, error) {
	m := &domain.Member{}
	var role, createdAt string
	if err := row.Scan(&m.UUID, &m.ID, &m.BoardUUID, &m.UserID, &role, &createdAt); err != nil {
		return nil, err
	}
	m.Role = domain.MemberRole(role)
	m.CreatedAt = parseTime(createdAt)
	return m, nil
}
