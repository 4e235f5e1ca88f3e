// Package errstack defines the typed error taxonomy for restfs and a
// process-wide diagnostic error stack.
//
// Every failure that crosses a component boundary is recorded as a
// *Record appended to the stack before control returns to the caller.
// Callers receive an opaque failure (the returned error) and can walk
// the stack for the full causal chain, similar to how protocol handlers
// in a file server translate domain errors to status codes at the
// boundary while keeping diagnostics available.
//
// The stack has an explicit lifecycle: Init establishes it, Term tears
// it down. Pushing outside the Init/Term window fails loudly rather
// than silently dropping diagnostics.
package errstack

import (
	"errors"
	"fmt"
	"sync"
)

// Major is the top-level error category.
type Major int

const (
	// ObjectError covers failures involving a remote object: transport
	// faults, server faults, missing objects, malformed responses.
	ObjectError Major = iota

	// ArgumentError covers failures detected before any network call:
	// bad paths, released handles, unsupported selections.
	ArgumentError
)

// Minor refines a Major into a specific failure class.
type Minor int

const (
	// ParseError indicates malformed JSON, an unparseable identifier,
	// or a response that violates the wire contract.
	ParseError Minor = iota

	// NotFound indicates no object or link exists at the given location.
	NotFound

	// TransportFailure indicates a connection, TLS, or timeout failure
	// before a response was received.
	TransportFailure

	// ServerFault indicates the server reported an internal failure (5xx).
	ServerFault

	// AuthFailure indicates the server rejected the credential pair (401/403).
	AuthFailure

	// AlreadyExists indicates a create collided with an existing object
	// or link (409).
	AlreadyExists

	// CantBuildLinkTable indicates a link enumeration request failed or
	// returned malformed data while building a link table.
	CantBuildLinkTable

	// CantIterate indicates a visitor aborted iteration or a fetch
	// failed mid-iteration.
	CantIterate

	// TooManyLinkHops indicates path resolution followed more soft
	// links than the fixed hop bound allows. A soft-link cycle
	// surfaces as this failure; there is no cycle detection.
	TooManyLinkHops

	// Unsupported indicates an operation outside the remote backend's
	// supported surface (point selections, filters, user-defined links).
	Unsupported

	// InvalidHandle indicates an operation on a released or otherwise
	// unusable handle.
	InvalidHandle
)

func (m Major) String() string {
	switch m {
	case ObjectError:
		return "ObjectError"
	case ArgumentError:
		return "ArgumentError"
	default:
		return fmt.Sprintf("Major(%d)", int(m))
	}
}

func (m Minor) String() string {
	switch m {
	case ParseError:
		return "ParseError"
	case NotFound:
		return "NotFound"
	case TransportFailure:
		return "TransportFailure"
	case ServerFault:
		return "ServerFault"
	case AuthFailure:
		return "AuthFailure"
	case AlreadyExists:
		return "AlreadyExists"
	case CantBuildLinkTable:
		return "CantBuildLinkTable"
	case CantIterate:
		return "CantIterate"
	case TooManyLinkHops:
		return "TooManyLinkHops"
	case Unsupported:
		return "Unsupported"
	case InvalidHandle:
		return "InvalidHandle"
	default:
		return fmt.Sprintf("Minor(%d)", int(m))
	}
}

// Record is one entry on the diagnostic stack. It doubles as the error
// value returned from failing operations so callers can match on the
// category with errors.As.
type Record struct {
	// Major is the top-level category.
	Major Major

	// Minor is the specific failure class.
	Minor Minor

	// Op names the operation that failed (e.g. "objects.OpenGroup").
	Op string

	// Message is a human-readable description.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (r *Record) Error() string {
	if r.Cause != nil {
		return fmt.Sprintf("%s/%s: %s: %s: %v", r.Major, r.Minor, r.Op, r.Message, r.Cause)
	}
	return fmt.Sprintf("%s/%s: %s: %s", r.Major, r.Minor, r.Op, r.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (r *Record) Unwrap() error {
	return r.Cause
}

// Is reports category equality so callers can test against sentinel
// records built with only Major/Minor set.
func (r *Record) Is(target error) bool {
	var other *Record
	if !errors.As(target, &other) {
		return false
	}
	return r.Major == other.Major && r.Minor == other.Minor
}

// IsMinor reports whether err carries the given minor category.
func IsMinor(err error, minor Minor) bool {
	var rec *Record
	if !errors.As(err, &rec) {
		return false
	}
	return rec.Minor == minor
}

// ErrNotInitialized is returned when the stack is used outside the
// Init/Term lifecycle window.
var ErrNotInitialized = errors.New("errstack: not initialized (call errstack.Init)")

// stack is the process-wide diagnostic stack. The surrounding object
// model is single-threaded per open domain, but Init/Term and pushes
// may race across domains, so access is mutex-guarded.
type stack struct {
	mu      sync.Mutex
	records []*Record
	alive   bool
}

var global stack

// Init establishes the process-wide error stack. Calling Init twice is
// harmless; the stack is cleared either way.
func Init() {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.records = global.records[:0]
	global.alive = true
}

// Term tears down the process-wide stack and returns the number of
// records still outstanding. A non-zero count is a signal that some
// failure was recorded but never inspected; it is diagnostic, not fatal.
func Term() int {
	global.mu.Lock()
	defer global.mu.Unlock()
	n := len(global.records)
	global.records = nil
	global.alive = false
	return n
}

// Push appends a record to the stack and returns it as an error, so
// failure sites can record and return in one step:
//
//	return errstack.Push(&errstack.Record{...})
//
// Pushing outside the Init/Term window returns ErrNotInitialized
// wrapped around the record so the failure still surfaces.
func Push(r *Record) error {
	global.mu.Lock()
	defer global.mu.Unlock()
	if !global.alive {
		return fmt.Errorf("%w (dropped: %v)", ErrNotInitialized, r)
	}
	global.records = append(global.records, r)
	return r
}

// Walk invokes fn on every record from most recent to oldest. Walking
// stops early if fn returns false.
func Walk(fn func(*Record) bool) {
	global.mu.Lock()
	defer global.mu.Unlock()
	for i := len(global.records) - 1; i >= 0; i-- {
		if !fn(global.records[i]) {
			return
		}
	}
}

// Depth returns the number of records currently on the stack.
func Depth() int {
	global.mu.Lock()
	defer global.mu.Unlock()
	return len(global.records)
}

// Clear discards all records without tearing down the stack. Callers
// typically clear after inspecting a failure they have recovered from.
func Clear() {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.records = global.records[:0]
}
