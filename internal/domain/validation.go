package domain

import (
	"regexp"
	"strings"
)

// UUIDv4Regex validates lowercase UUIDv4 format
var UUIDv4Regex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

const (
	maxNameLength  = 200
	maxTitleLength = 500
)

// ValidateUUID validates a UUID v4 format (lowercase with hyphens)
func ValidateUUID(uuid string) error {
	if !UUIDv4Regex.MatchString(uuid) {
		return &ValidationError{Field: "uuid", Message: "must be lowercase UUIDv4 format (e.g., 550e8400-e29b-41d4-a716-446655440000)"}
	}
	return nil
}

// ValidateBoardName validates a board name
func ValidateBoardName(name string) error {
	return validateText("name", name, maxNameLength)
}

// ValidateTitle validates a column or task title
func ValidateTitle(title string) error {
	return validateText("title", title, maxTitleLength)
}

func validateText(field, value string, max int) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return &ValidationError{Field: field, Message: "must not be empty"}
	}
	if len(trimmed) > max {
		return &ValidationError{Field: field, Message: "is too long"}
	}
	return nil
}

// ValidateTaskStatus validates a task status
func ValidateTaskStatus(status TaskStatus) error {
	switch status {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return nil
	default:
		return &ValidationError{Field: "status", Message: "must be one of: todo, in_progress, done"}
	}
}

// ValidateTaskPriority validates a task priority
func ValidateTaskPriority(priority TaskPriority) error {
	switch priority {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return nil
	default:
		return &ValidationError{Field: "priority", Message: "must be one of: low, medium, high"}
	}
}

// ValidateMemberRole validates a member role
func ValidateMemberRole(role MemberRole) error {
	switch role {
	case MemberRoleOwner, MemberRoleMember:
		return nil
	default:
		return &ValidationError{Field: "role", Message: "must be one of: owner, member"}
	}
}

// ValidateItemKind validates the kind carried by a move event
func ValidateItemKind(kind ItemKind) error {
	switch kind {
	case ItemKindColumn, ItemKindTask:
		return nil
	default:
		return &ValidationError{Field: "kind", Message: "must be one of: column, task"}
	}
}

// ValidatePosition validates a requested position
func ValidatePosition(position int) error {
	if position < 0 {
		return &ValidationError{Field: "position", Message: "must not be negative"}
	}
	return nil
}
