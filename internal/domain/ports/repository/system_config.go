package repository

import "context"

// SystemConfigRepository stores mutable configuration values, notably the
// AI system instruction. GetInstruction is read fresh on every job; callers
// must not cache the value across jobs.
type SystemConfigRepository interface {
	// GetInstruction returns the configured instruction, or
	// domain.ErrNotFound when none is set.
	GetInstruction(ctx context.Context) (string, error)
	SetInstruction(ctx context.Context, value string) error
}
