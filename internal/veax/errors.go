package veax

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrPoolNotFound is returned when the listing has no pool for the target pair.
var ErrPoolNotFound = errors.New("pool not found")

// RPCError is a JSON-RPC error object returned by the endpoint.
type RPCError struct {
	Code    int64
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Code, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}
