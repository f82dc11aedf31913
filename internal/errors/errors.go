package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Sentinels that callers match with errors.Is. A UserError reports Is(...)
// for the sentinel matching its Kind.
var (
	ErrNotFound   = stderrors.New("not found")
	ErrValidation = stderrors.New("validation failed")
	ErrHTTP       = stderrors.New("http error")
	ErrConnection = stderrors.New("connection error")
	ErrConfig     = stderrors.New("config error")
)

// Kind classifies a UserError into the failure families the UI reacts to.
type Kind int

const (
	KindGeneric Kind = iota
	KindHTTP
	KindConnection
	KindValidation
	KindNotFound
	KindConfig
)

// UserError represents an error with user-friendly messaging and remediation hints
type UserError struct {
	Kind        Kind
	Title       string // Brief title of the error
	Message     string // Detailed error message
	Remediation string // What the user can do to fix it
	StatusCode  int    // HTTP status, when Kind == KindHTTP
	Cause       error  // Underlying error, if any
}

func (e *UserError) Error() string {
	var parts []string

	if e.Title != "" {
		parts = append(parts, e.Title)
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	if e.Remediation != "" {
		parts = append(parts, fmt.Sprintf("💡 %s", e.Remediation))
	}

	return strings.Join(parts, "\n")
}

func (e *UserError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match the package sentinels by Kind.
func (e *UserError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound || (e.Kind == KindHTTP && e.StatusCode == 404)
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrHTTP:
		return e.Kind == KindHTTP
	case ErrConnection:
		return e.Kind == KindConnection
	case ErrConfig:
		return e.Kind == KindConfig
	}
	return false
}

// Short is the one-line message shown inline in the TUI status bar.
func (e *UserError) Short() string {
	if e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(strings.TrimPrefix(e.Title, "❌"))
}

// Common error constructors with built-in remediation

func NewHttpError(statusCode int, body string) *UserError {
	var title, remediation string

	switch {
	case statusCode == 400 || statusCode == 422:
		title = "❌ Request Rejected"
		remediation = "The server rejected the request. Check the values you entered"
	case statusCode == 404:
		title = "❌ Resource Not Found"
		remediation = "The board, group or item may have been deleted. Refresh with r"
	case statusCode == 409:
		title = "❌ Conflict"
		remediation = "The resource changed on the server. Refresh and try again"
	case statusCode >= 500:
		title = "❌ Server Error"
		remediation = "The board API is experiencing issues. Try again later"
	default:
		title = "❌ HTTP Error"
		remediation = "An unexpected HTTP error occurred. Run with --verbose to see detailed logs"
	}

	body = strings.TrimSpace(body)
	message := fmt.Sprintf("HTTP %d", statusCode)
	if body != "" {
		message = fmt.Sprintf("HTTP %d: %s", statusCode, body)
	}

	return &UserError{
		Kind:        KindHTTP,
		Title:       title,
		Message:     message,
		Remediation: remediation,
		StatusCode:  statusCode,
	}
}

func NewAPIConnectionError(err error) *UserError {
	errStr := err.Error()
	var remediation string

	switch {
	case strings.Contains(errStr, "connection refused"):
		remediation = "Is the board API running? Check api_url with: tablero config get api_url"
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded"):
		remediation = "The API did not answer in time. Raise http_timeout_seconds or retry"
	case strings.Contains(errStr, "no such host"):
		remediation = "Check the api_url host name. Run: tablero config doctor"
	default:
		remediation = "Run: tablero config doctor to diagnose the issue"
	}

	return &UserError{
		Kind:        KindConnection,
		Title:       "❌ API Connection Error",
		Message:     "Failed to reach the board API. " + errStr,
		Remediation: remediation,
		Cause:       err,
	}
}

func NewValidationError(field, problem string) *UserError {
	return &UserError{
		Kind:    KindValidation,
		Title:   "❌ Invalid Input",
		Message: fmt.Sprintf("%s %s.", field, problem),
	}
}

func NewNotFoundError(kind, id string) *UserError {
	return &UserError{
		Kind:    KindNotFound,
		Title:   "❌ Not Found",
		Message: fmt.Sprintf("%s with id %s not found", kind, id),
	}
}

func NewBoardLoadError(boardID string, err error) *UserError {
	return &UserError{
		Kind:        kindOf(err),
		Title:       "❌ Board Load Error",
		Message:     "Ocurrió un error al obtener los datos.",
		Remediation: fmt.Sprintf("Press r to retry loading board %s", boardID),
		StatusCode:  statusOf(err),
		Cause:       err,
	}
}

func NewGroupLoadError(groupID string, err error) *UserError {
	return &UserError{
		Kind:        kindOf(err),
		Title:       "❌ Group Load Error",
		Message:     "Ocurrió un error al obtener los datos del grupo",
		Remediation: fmt.Sprintf("Press r to retry loading group %s", groupID),
		StatusCode:  statusOf(err),
		Cause:       err,
	}
}

func NewConfigError(operation string, err error) *UserError {
	var remediation string
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "permission denied"):
		remediation = "Check file permissions. Run: chmod 644 ~/.config/tablero/config.toml"
	case strings.Contains(errStr, "no such file"):
		remediation = "Run: tablero config set api_url <url> to create a configuration file"
	case strings.Contains(errStr, "decode") || strings.Contains(errStr, "parse"):
		remediation = "Configuration file format is invalid. Run: tablero config doctor"
	default:
		remediation = "Run: tablero config doctor to diagnose configuration issues"
	}

	return &UserError{
		Kind:        KindConfig,
		Title:       "❌ Configuration Error",
		Message:     fmt.Sprintf("Failed to %s configuration: %s", operation, errStr),
		Remediation: remediation,
		Cause:       err,
	}
}

// WrapWithContext wraps an arbitrary error with a user-facing shape.
func WrapWithContext(err error, context string) error {
	var userErr *UserError
	if stderrors.As(err, &userErr) {
		return err
	}

	switch context {
	case "api_connection":
		return NewAPIConnectionError(err)
	case "config_load", "config_save":
		return NewConfigError(context, err)
	default:
		return &UserError{
			Title:       "❌ Error",
			Message:     err.Error(),
			Remediation: "Run with --verbose flag for more details",
			Cause:       err,
		}
	}
}

// Message returns the human-readable one-liner for any error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var userErr *UserError
	if stderrors.As(err, &userErr) {
		return userErr.Short()
	}
	return err.Error()
}

func kindOf(err error) Kind {
	var userErr *UserError
	if stderrors.As(err, &userErr) {
		return userErr.Kind
	}
	return KindGeneric
}

func statusOf(err error) int {
	var userErr *UserError
	if stderrors.As(err, &userErr) {
		return userErr.StatusCode
	}
	return 0
}
