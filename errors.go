package steward

import "errors"

var (
	// ErrStoreUnavailable is returned when the tuple store cannot be
	// reached. Write paths surface it; the check path fails closed instead.
	ErrStoreUnavailable = errors.New("steward: store unavailable")

	// ErrNotInitialized is returned when the engine is used before a
	// successful Initialize.
	ErrNotInitialized = errors.New("steward: engine not initialized")

	// ErrInvalidRole is returned when a role is not part of the target
	// type's role set, or a relation is not defined for the type.
	ErrInvalidRole = errors.New("steward: invalid role for object type")

	// ErrRoleInconsistent is returned when post-assignment verification
	// finds a role state other than the one just written.
	ErrRoleInconsistent = errors.New("steward: role assignment left inconsistent state")

	// ErrUnknownObjectType is returned when an object type is not defined
	// in the authorization model.
	ErrUnknownObjectType = errors.New("steward: unknown object type")

	// ErrMaxDepthExceeded is returned when parent-link traversal exceeds
	// the configured depth limit.
	ErrMaxDepthExceeded = errors.New("steward: parent traversal depth exceeded")

	// ErrNoTrustSource is returned when a trust sync is requested without
	// a configured trust score source.
	ErrNoTrustSource = errors.New("steward: trust score source not configured")
)
