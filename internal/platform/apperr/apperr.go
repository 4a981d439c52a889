// Package apperr defines the error taxonomy of the matching engine. Errors
// are accumulated at scene and batch level, never raised to abort siblings.
package apperr

import "fmt"

// ValidationError marks a malformed match request. Request-scoped; the rest
// of the batch proceeds.
type ValidationError struct {
	SceneID string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.SceneID == "" {
		return "invalid request: " + e.Reason
	}
	return fmt.Sprintf("invalid request for scene %s: %s", e.SceneID, e.Reason)
}

// ServiceError marks a failed or inconsistent Visual Analysis Service call.
// Job-scoped.
type ServiceError struct {
	SceneID string
	VideoID string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("analysis failed for scene %s video %s: %v", e.SceneID, e.VideoID, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// PreparationError marks a media resource that could not be readied. It fails
// every job referencing that video.
type PreparationError struct {
	Locator string
	Err     error
}

func (e *PreparationError) Error() string {
	return fmt.Sprintf("prepare media %s: %v", e.Locator, e.Err)
}

func (e *PreparationError) Unwrap() error { return e.Err }

// NotFoundError marks a lookup miss: unknown video id, candidate id, or
// history entry.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// InvalidStateError marks a state-machine operation issued against a scene
// that is not in the required state.
type InvalidStateError struct {
	SceneID string
	Reason  string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("scene %s: %s", e.SceneID, e.Reason)
}
