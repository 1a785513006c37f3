// Package order implements the ordered-collection model behind a board:
// columns ordered within a board and tasks ordered within each column, every
// item carrying a position equal to its index in its container.
package order

import (
	"github.com/lherron/wrkboard/internal/domain"
)

// Positioned is an element of an ordered list whose rank can be rewritten.
type Positioned[T any] interface {
	WithPosition(position int) T
}

// Relocatable is a Positioned element that also carries a container reference.
type Relocatable[T any] interface {
	Positioned[T]
	WithContainer(containerUUID string) T
}

// Renumber returns a new list where every element's position equals its index.
func Renumber[T Positioned[T]](list []T) []T {
	out := make([]T, len(list))
	for i, item := range list {
		out[i] = item.WithPosition(i)
	}
	return out
}

// MoveWithinList removes the element at from and reinserts it at to, where to
// indexes the list with the element already removed. The result is renumbered.
// When from == to the input is returned unchanged.
func MoveWithinList[T Positioned[T]](list []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(list) {
		return nil, domain.InvalidMove("source index %d out of range [0,%d)", from, len(list))
	}
	if to < 0 || to > len(list)-1 {
		return nil, domain.InvalidMove("destination index %d out of range [0,%d]", to, len(list)-1)
	}
	if from == to {
		return list, nil
	}

	moved := list[from]
	rest := make([]T, 0, len(list))
	rest = append(rest, list[:from]...)
	rest = append(rest, list[from+1:]...)

	return Renumber(insertAt(rest, to, moved)), nil
}

// MoveAcrossLists removes the element at from in src, points it at
// destContainerUUID and inserts it at to in dst. to == len(dst) appends.
// Both resulting lists are renumbered independently.
func MoveAcrossLists[T Relocatable[T]](src, dst []T, from, to int, destContainerUUID string) ([]T, []T, error) {
	if from < 0 || from >= len(src) {
		return nil, nil, domain.InvalidMove("source index %d out of range [0,%d)", from, len(src))
	}
	if to < 0 || to > len(dst) {
		return nil, nil, domain.InvalidMove("destination index %d out of range [0,%d]", to, len(dst))
	}
	if destContainerUUID == "" {
		return nil, nil, domain.InvalidMove("missing destination container")
	}

	moved := src[from].WithContainer(destContainerUUID)

	newSrc := make([]T, 0, len(src)-1)
	newSrc = append(newSrc, src[:from]...)
	newSrc = append(newSrc, src[from+1:]...)

	newDst := make([]T, 0, len(dst)+1)
	newDst = append(newDst, dst...)

	return Renumber(newSrc), Renumber(insertAt(newDst, to, moved)), nil
}

func insertAt[T any](list []T, idx int, item T) []T {
	var zero T
	list = append(list, zero)
	copy(list[idx+1:], list[idx:])
	list[idx] = item
	return list
}
