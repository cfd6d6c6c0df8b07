package model

import "errors"

// ErrInvalidConfig marks configuration problems that must stop a run before
// any work starts: a non-positive chunk size, an unsupported language, an
// unknown provider, a missing credential. Callers wrap it with context via
// fmt.Errorf("...: %w", ErrInvalidConfig) and test with errors.Is.
var ErrInvalidConfig = errors.New("invalid configuration")
