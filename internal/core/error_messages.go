package core

// error_messages.go maps fetch and parse failures to user-friendly messages
// with codes for support reference.
//
// # Feed Transport Errors (NET001-NET099)
//
//	NET001 - Bad status: The feed server answered with a non-2xx status
//	         Action: Check that the sheet is still published, then refresh
//
//	NET002 - Not CSV: The feed URL did not return text/csv
//	         Action: Publish the sheet as CSV and check the feed URL
//
//	NET003 - Unreachable: The feed could not be downloaded
//	         Action: Check your connection and refresh
//
//	NET004 - Too large: The feed exceeds the configured size limit
//	         Action: Raise FEED_MAX_BYTES or trim the sheet
//
// # Feed Content Errors (FEED001-FEED099)
//
//	FEED001 - Empty table: The feed contained no rows
//	          Action: Check that the published sheet has data
//
//	FEED002 - Header not found: No row holds the PartNumber, Brand and price columns
//	          Action: Restore the header columns in the sheet
//
// # Request Errors (CTX001-CTX099)
//
//	CTX001 - Cancelled: The request was cancelled
//	CTX002 - Timeout: The feed took longer than FEED_TIMEOUT
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Rate limited: Too many requests
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//
// Typed errors are matched first with errors.Is and errors.As. Anything else
// falls back to case-insensitive substring patterns, first match wins.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/catalog/internal/feed"
)

var (
	// ErrBadStatus is wrapped by a NetworkError for a non-2xx response.
	ErrBadStatus = errors.New("unexpected status")

	// ErrNotCSV is wrapped by a NetworkError when the content type is not text/csv.
	ErrNotCSV = errors.New("not csv")

	// ErrFeedTooLarge is returned when the body exceeds the configured limit.
	ErrFeedTooLarge = errors.New("feed too large")
)

// NetworkError is a fetch-level failure: transport, status or content type.
type NetworkError struct {
	URL         string
	StatusCode  int
	ContentType string
	Err         error
}

func (e *NetworkError) Error() string {
	switch {
	case errors.Is(e.Err, ErrBadStatus):
		return fmt.Sprintf("fetch %s: status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	case errors.Is(e.Err, ErrNotCSV):
		return fmt.Sprintf("fetch %s: not csv: content type %q", e.URL, e.ContentType)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Kind classifies a failed fetch attempt.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindEmptyTable
	KindHeaderNotFound
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindEmptyTable:
		return "empty_table"
	case KindHeaderNotFound:
		return "header_not_found"
	}
	return "unknown"
}

// Classify returns the Kind of err. A nil error is KindUnknown.
func Classify(err error) Kind {
	var netErr *NetworkError
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &netErr):
		return KindNetwork
	case errors.Is(err, feed.ErrEmptyTable):
		return KindEmptyTable
	case errors.Is(err, feed.ErrHeaderNotFound):
		return KindHeaderNotFound
	}
	return KindUnknown
}

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

var (
	msgCancelled = UserMessage{
		Message: "The request was cancelled",
		Action:  "Please try again",
		Code:    "CTX001",
	}
	msgTimeout = UserMessage{
		Message: "Loading the catalog timed out",
		Action:  "Check your connection and refresh",
		Code:    "CTX002",
	}
	msgBadStatus = UserMessage{
		Message: "The catalog feed could not be loaded",
		Action:  "Check that the sheet is still published, then refresh",
		Code:    "NET001",
	}
	msgNotCSV = UserMessage{
		Message: "The catalog feed is not a CSV file",
		Action:  "Publish the sheet as CSV and check the feed URL",
		Code:    "NET002",
	}
	msgUnreachable = UserMessage{
		Message: "The catalog feed could not be reached",
		Action:  "Check your connection and refresh",
		Code:    "NET003",
	}
	msgTooLarge = UserMessage{
		Message: "The catalog feed is larger than allowed",
		Action:  "Raise FEED_MAX_BYTES or trim the sheet",
		Code:    "NET004",
	}
	msgEmptyTable = UserMessage{
		Message: "The catalog is empty or has an unexpected format",
		Action:  "Check that the published sheet has data",
		Code:    "FEED001",
	}
	msgHeaderNotFound = UserMessage{
		Message: "Could not find the header row (PartNumber, Brand, Pret client in lei/buc)",
		Action:  "Restore the header columns in the sheet",
		Code:    "FEED002",
	}
)

// typedErrors are checked in order before the string patterns. The first
// match wins, so context errors take precedence over the NetworkError that
// wraps them.
var typedErrors = []struct {
	match func(error) bool
	msg   UserMessage
}{
	{func(err error) bool { return errors.Is(err, context.DeadlineExceeded) }, msgTimeout},
	{func(err error) bool { return errors.Is(err, context.Canceled) }, msgCancelled},
	{func(err error) bool { return errors.Is(err, ErrFeedTooLarge) }, msgTooLarge},
	{func(err error) bool { return errors.Is(err, ErrNotCSV) }, msgNotCSV},
	{func(err error) bool { return errors.Is(err, ErrBadStatus) }, msgBadStatus},
	{func(err error) bool { return Classify(err) == KindNetwork }, msgUnreachable},
	{func(err error) bool { return errors.Is(err, feed.ErrEmptyTable) }, msgEmptyTable},
	{func(err error) bool { return errors.Is(err, feed.ErrHeaderNotFound) }, msgHeaderNotFound},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catch errors that lost their type on the way, such as
// messages relayed from another process.
var errorPatterns = []errorPattern{
	{pattern: "context deadline exceeded", msg: msgTimeout},
	{pattern: "context canceled", msg: msgCancelled},
	{pattern: "feed too large", msg: msgTooLarge},
	{pattern: "not csv", msg: msgNotCSV},
	{pattern: "connection refused", msg: msgUnreachable},
	{pattern: "no such host", msg: msgUnreachable},
	{pattern: "empty table", msg: msgEmptyTable},
	{pattern: "header not found", msg: msgHeaderNotFound},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000). Support staff
// should check the logs for the technical error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	err := &NetworkError{URL: u, StatusCode: 404, Err: ErrBadStatus}
//	msg := MapError(err)
//	// msg.Code == "NET001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, te := range typedErrors {
		if te.match(err) {
			return te.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
