package design

import (
	"github.com/chazu/tenon/pkg/service"
)

// errStale builds the stale-reference error raised when an operation
// targets an entity whose backing object was deleted.
func errStale(kind string, id EntityID) error {
	return service.Semanticf(service.ReasonStaleReference, "%s %s is no longer alive", kind, id.Short())
}

// errNotSurface is raised by surface-only metadata operations applied to
// solid bodies.
func errNotSurface(op string, id EntityID) error {
	return service.Semanticf(service.ReasonNotSurface, "%s requires a surface body, %s is solid", op, id.Short())
}

// IsStaleReference reports whether err is the stale-reference error kind.
func IsStaleReference(err error) bool {
	return service.IsStale(err)
}
