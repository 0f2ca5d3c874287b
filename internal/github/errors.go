package github

import (
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v68/github"
)

// ErrorKind classifies a failed code host call.
type ErrorKind int

const (
	// Transient covers network failures and server errors; retrying may help.
	Transient ErrorKind = iota
	NotFound
	PermissionDenied
	RateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case PermissionDenied:
		return "permission denied"
	case RateLimited:
		return "rate limited"
	default:
		return "transient"
	}
}

// Error is returned by every Operations method on failure.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var opErr *Error
	return errors.As(err, &opErr) && opErr.Kind == kind
}

// IsNotFound reports whether err is a NotFound failure.
func IsNotFound(err error) bool {
	return IsKind(err, NotFound)
}

// classify wraps a go-github failure into an *Error. A nil err returns nil.
func classify(op string, resp *gh.Response, err error) error {
	if err == nil {
		return nil
	}

	var (
		rateErr  *gh.RateLimitError
		abuseErr *gh.AbuseRateLimitError
	)
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return &Error{Kind: RateLimited, Op: op, Err: err}
	}

	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	}
	var respErr *gh.ErrorResponse
	if status == 0 && errors.As(err, &respErr) && respErr.Response != nil {
		status = respErr.Response.StatusCode
	}

	switch status {
	case http.StatusNotFound:
		return &Error{Kind: NotFound, Op: op, Err: err}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &Error{Kind: PermissionDenied, Op: op, Err: err}
	case http.StatusTooManyRequests:
		return &Error{Kind: RateLimited, Op: op, Err: err}
	default:
		return &Error{Kind: Transient, Op: op, Err: err}
	}
}
