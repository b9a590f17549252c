// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"errors"
	"fmt"

	"github.com/pdiddy/company-research/pkg/types"
)

// ErrInvalidRequest matches every run-level configuration error returned by
// Run. Such errors are returned before any agent is invoked.
var ErrInvalidRequest = errors.New("invalid research request")

// ConfigError describes one invalid Request field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid research request: %s %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidRequest) true for any ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// InvocationError is one topic's failed agent call in one round. It is
// absorbed by the run: the topic's record stays unchanged for that round and
// the error is reported to observers and the log, never to the caller of Run.
type InvocationError struct {
	Topic types.Topic
	Round int

	// Timeout is set when the per-call timeout or the run deadline expired.
	Timeout bool

	Err error
}

func (e *InvocationError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("round %d %s: timed out: %v", e.Round, e.Topic, e.Err)
	}
	return fmt.Sprintf("round %d %s: %v", e.Round, e.Topic, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// errMalformedResult wraps results the orchestrator refuses to merge.
var errMalformedResult = errors.New("malformed agent result")
