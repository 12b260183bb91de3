package sentinel

import (
	"errors"

	"github.com/agentboard/sentinel/session"
)

var (
	// ErrRuntimeClosed is an exported constant or variable used by the security runtime.
	ErrRuntimeClosed = errors.New("runtime closed")
	// ErrSessionIDCollision is an exported constant or variable used by the security runtime.
	ErrSessionIDCollision = session.ErrIDCollision
	// ErrTokenGeneration is an exported constant or variable used by the security runtime.
	ErrTokenGeneration = session.ErrTokenGeneration
)
