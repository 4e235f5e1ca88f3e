package errstack

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/h5works/restfs/internal/transport"
)

// serverErrorBody is the JSON error payload some servers attach to 4xx
// responses. Only the fields the translator inspects are decoded.
type serverErrorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// Translate maps a failed exchange into a typed Record, appends it to
// the process-wide stack, and returns it. op names the failing
// operation for diagnostics. err is the error returned by
// Session.Exchange (a *transport.Error or *transport.StatusError).
func Translate(op string, err error) error {
	var terr *transport.Error
	if errors.As(err, &terr) {
		return Push(&Record{
			Major:   ObjectError,
			Minor:   TransportFailure,
			Op:      op,
			Message: "request failed before a response was received",
			Cause:   err,
		})
	}

	var serr *transport.StatusError
	if errors.As(err, &serr) {
		return Push(translateStatus(op, serr))
	}

	// Anything else is a local failure surfaced by the codec or the
	// object model; record it verbatim under ParseError so it is never
	// silently dropped.
	return Push(&Record{
		Major:   ObjectError,
		Minor:   ParseError,
		Op:      op,
		Message: "unclassified failure",
		Cause:   err,
	})
}

func translateStatus(op string, serr *transport.StatusError) *Record {
	rec := &Record{Major: ObjectError, Op: op, Cause: serr}

	switch {
	case serr.StatusCode == http.StatusUnauthorized || serr.StatusCode == http.StatusForbidden:
		rec.Minor = AuthFailure
		rec.Message = "server rejected credentials"
	case serr.StatusCode == http.StatusNotFound || serr.StatusCode == http.StatusGone:
		rec.Minor = NotFound
		rec.Message = "no object at the requested location"
	case serr.StatusCode == http.StatusConflict:
		rec.Minor = AlreadyExists
		rec.Message = "object or link already exists"
	case serr.StatusCode >= 500:
		rec.Minor = ServerFault
		rec.Message = fmt.Sprintf("server fault (status %d)", serr.StatusCode)
	default:
		// Remaining 4xx: the body, when decodable, names the reason;
		// an undecodable body is itself the failure.
		var body serverErrorBody
		if len(serr.Body) > 0 && json.Unmarshal(serr.Body, &body) == nil && (body.Error != "" || body.Reason != "") {
			rec.Minor = ParseError
			if body.Reason != "" {
				rec.Message = body.Reason
			} else {
				rec.Message = body.Error
			}
		} else {
			rec.Minor = ParseError
			rec.Message = fmt.Sprintf("request rejected (status %d)", serr.StatusCode)
		}
	}
	return rec
}

// BadResponse records a ParseError for a malformed body on an
// otherwise-successful response.
func BadResponse(op string, cause error) error {
	return Push(&Record{
		Major:   ObjectError,
		Minor:   ParseError,
		Op:      op,
		Message: "malformed response body",
		Cause:   cause,
	})
}
