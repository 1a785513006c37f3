// Package id formats and recognises friendly IDs and UUIDs.
package id

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	friendlyPattern = regexp.MustCompile(`^([BCTM])-(\d{5,})$`)
	uuidPattern     = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

// Type represents the type of resource
type Type string

const (
	TypeBoard  Type = "board"
	TypeColumn Type = "column"
	TypeTask   Type = "task"
	TypeMember Type = "member"
)

var prefixes = map[string]Type{
	"B": TypeBoard,
	"C": TypeColumn,
	"T": TypeTask,
	"M": TypeMember,
}

// Prefix returns the friendly-ID prefix for a resource type
func Prefix(t Type) string {
	for p, pt := range prefixes {
		if pt == t {
			return p + "-"
		}
	}
	return ""
}

// Format formats a friendly ID for a resource type
func Format(t Type, seq int) string {
	return fmt.Sprintf("%s%05d", Prefix(t), seq)
}

// Parse parses an ID string and returns the type and sequence number
func Parse(id string) (Type, int, error) {
	m := friendlyPattern.FindStringSubmatch(strings.TrimSpace(id))
	if m == nil {
		return "", 0, fmt.Errorf("invalid friendly ID format: %s", id)
	}
	seq, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, fmt.Errorf("invalid friendly ID sequence: %s", id)
	}
	return prefixes[m[1]], seq, nil
}

// IsUUID checks if a string is a valid UUID
func IsUUID(s string) bool {
	return uuidPattern.MatchString(strings.ToLower(s))
}

// IsFriendlyID checks if a string is a valid friendly ID
func IsFriendlyID(s string) bool {
	_, _, err := Parse(s)
	return err == nil
}

// IsFriendlyIDOf checks if a string is a friendly ID of the given type
func IsFriendlyIDOf(s string, t Type) bool {
	pt, _, err := Parse(s)
	return err == nil && pt == t
}
