// Package notifications reports run results through ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers notify unconditionally.
package notifications
