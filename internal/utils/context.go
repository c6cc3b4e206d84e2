package utils

import (
	"github.com/google/uuid"
)

// CallContext carries the request-scoped facts the engine and the
// activity logger need, threaded explicitly through the call path
// instead of living in ambient request state.
type CallContext struct {
	CorrelationID string // unique id for tracing one request end to end
	ActorID       uint64 // authenticated member id, 0 when anonymous
	ActorLoginID  string // authenticated login id, empty when anonymous
	ActorGrade    string // grade claim from the token
	RemoteAddr    string // client IP (X-Forwarded-For aware)
	UserAgent     string // raw User-Agent header
	RequestURI    string // request path
	HTTPMethod    string // request method
}

// NewCallContext creates a CallContext with a fresh correlation id.
func NewCallContext() CallContext {
	return CallContext{CorrelationID: uuid.NewString()}
}

// IsAdmin reports whether the actor's grade claim carries
// administrator rights.
func (c CallContext) IsAdmin() bool { return c.ActorGrade == "ROOSTER" }
