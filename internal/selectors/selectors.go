// Package selectors resolves user-supplied references to boards, columns and
// tasks. A reference is a friendly ID (B-00001), a UUID, or a name, with an
// optional typed prefix (b:, c:, t:).
package selectors

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lherron/wrkboard/internal/domain"
	"github.com/lherron/wrkboard/internal/id"
)

// Type represents the type of resource being selected
type Type string

const (
	TypeBoard  Type = "board"
	TypeColumn Type = "column"
	TypeTask   Type = "task"
	TypeAuto   Type = "auto" // Auto-detect based on selector
)

// Selector represents a parsed typed selector
type Selector struct {
	Type  Type
	Token string // The part after the prefix (e.g., "T-00123" from "t:T-00123")
}

// Querier is satisfied by *sql.DB, *db.DB and *sql.Tx.
type Querier interface {
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
}

var typedPrefixes = map[string]Type{
	"b:": TypeBoard,
	"c:": TypeColumn,
	"t:": TypeTask,
}

// Parse parses a selector string and returns the type and token
func Parse(selector string) Selector {
	selector = strings.TrimSpace(selector)
	for prefix, typ := range typedPrefixes {
		if strings.HasPrefix(selector, prefix) {
			return Selector{Type: typ, Token: strings.TrimPrefix(selector, prefix)}
		}
	}
	return Selector{Type: TypeAuto, Token: selector}
}

// Resolved is the outcome of resolving a selector
type Resolved struct {
	UUID       string
	FriendlyID string
}

// ResolveBoard resolves a board by friendly ID, UUID or exact name.
func ResolveBoard(q Querier, selector string) (Resolved, error) {
	token, err := expect(selector, TypeBoard)
	if err != nil {
		return Resolved{}, err
	}
	if r, ok, err := byIdentity(q, "boards", token, id.TypeBoard); ok || err != nil {
		return r, notFoundIfEmpty(r, err, "board", token)
	}
	return byName(q, "board", `SELECT uuid, id FROM boards WHERE name = ?`, token)
}

// ResolveColumn resolves a column by friendly ID, UUID or, when boardUUID is
// set, by exact title within that board.
func ResolveColumn(q Querier, boardUUID, selector string) (Resolved, error) {
	token, err := expect(selector, TypeColumn)
	if err != nil {
		return Resolved{}, err
	}
	if r, ok, err := byIdentity(q, "columns", token, id.TypeColumn); ok || err != nil {
		return r, notFoundIfEmpty(r, err, "column", token)
	}
	if boardUUID == "" {
		return Resolved{}, domain.NotFound("column", token)
	}
	return byName(q, "column", `SELECT uuid, id FROM columns WHERE board_uuid = ? AND title = ?`, boardUUID, token)
}

// ResolveTask resolves a task by friendly ID or UUID.
func ResolveTask(q Querier, selector string) (Resolved, error) {
	token, err := expect(selector, TypeTask)
	if err != nil {
		return Resolved{}, err
	}
	r, ok, err := byIdentity(q, "tasks", token, id.TypeTask)
	if !ok && err == nil {
		return Resolved{}, domain.NotFound("task", token)
	}
	return r, notFoundIfEmpty(r, err, "task", token)
}

func expect(selector string, want Type) (string, error) {
	parsed := Parse(selector)
	if parsed.Type != want && parsed.Type != TypeAuto {
		return "", fmt.Errorf("expected %s selector, got %s selector", want, parsed.Type)
	}
	if parsed.Token == "" {
		return "", &domain.ValidationError{Field: string(want), Message: "selector is empty"}
	}
	return parsed.Token, nil
}

// byIdentity looks a token up as a friendly ID or UUID. ok is false when the
// token is neither, so the caller can fall back to a name lookup.
func byIdentity(q Querier, table, token string, typ id.Type) (Resolved, bool, error) {
	var column string
	switch {
	case id.IsFriendlyIDOf(token, typ):
		column = "id"
	case id.IsUUID(token):
		column = "uuid"
		token = strings.ToLower(token)
	default:
		return Resolved{}, false, nil
	}

	var r Resolved
	err := q.QueryRow("SELECT uuid, id FROM "+table+" WHERE "+column+" = ?", token).Scan(&r.UUID, &r.FriendlyID)
	if err == sql.ErrNoRows {
		return Resolved{}, true, nil
	}
	if err != nil {
		return Resolved{}, true, fmt.Errorf("database error: %w", err)
	}
	return r, true, nil
}

func byName(q Querier, resource, query string, args ...any) (Resolved, error) {
	rows, err := q.Query(query+" LIMIT 2", args...)
	if err != nil {
		return Resolved{}, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	var found []Resolved
	for rows.Next() {
		var r Resolved
		if err := rows.Scan(&r.UUID, &r.FriendlyID); err != nil {
			return Resolved{}, fmt.Errorf("database error: %w", err)
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return Resolved{}, fmt.Errorf("database error: %w", err)
	}

	name := fmt.Sprint(args[len(args)-1])
	switch len(found) {
	case 0:
		return Resolved{}, domain.NotFound(resource, name)
	case 1:
		return found[0], nil
	default:
		return Resolved{}, fmt.Errorf("%s name %q is ambiguous; use its ID", resource, name)
	}
}

func notFoundIfEmpty(r Resolved, err error, resource, token string) error {
	if err != nil {
		return err
	}
	if r.UUID == "" {
		return domain.NotFound(resource, token)
	}
	return nil
}
