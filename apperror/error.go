package apperror

import "net/http"

type Apperror struct {
	kind    string
	status  int
	message string
	err     error
}

var (
	ServiceUnavailable = Apperror{kind: "unavailable", status: http.StatusServiceUnavailable, message: "Console Not Ready To Process This Request"}
	ServerError        = Apperror{kind: "server", status: http.StatusInternalServerError, message: "Internal Server Error"}
	InvalidRequest     = Apperror{kind: "invalid_request", status: http.StatusBadRequest, message: "Invalid Request Body Received"}
	NotFound           = Apperror{kind: "not_found", status: http.StatusNotFound, message: "Resource Not Found On This Server"}

	// ValidationError is raised before any request leaves the console.
	ValidationError = Apperror{kind: "validation", status: http.StatusBadRequest, message: "Please select a file first"}
	// RemoteError covers non-success statuses, error payloads and transport failures
	// of the detection service.
	RemoteError      = Apperror{kind: "remote", status: http.StatusBadGateway, message: "An error occurred during processing"}
	PermissionError  = Apperror{kind: "permission", status: http.StatusForbidden, message: "Permission denied for camera access"}
	UnsupportedError = Apperror{kind: "unsupported", status: http.StatusNotImplemented, message: "Camera access is not supported on this device"}
)

func (e Apperror) Error() string {
	if e.err != nil {
		return e.message + ": " + e.err.Error()
	}
	return e.message
}

func (e Apperror) SetMessage(message string) Apperror {
	e.message = message
	return e
}

// Wrap attaches the underlying cause without changing the user-facing message.
func (e Apperror) Wrap(err error) Apperror {
	e.err = err
	return e
}

func (e Apperror) Unwrap() error {
	return e.err
}

func (e Apperror) Is(target error) bool {
	t, ok := target.(Apperror)

	if !ok {
		return false
	}

	return t.kind == e.kind
}

func (e Apperror) Message() string {
	return e.message
}

func (e Apperror) Kind() string {
	return e.kind
}

func (e Apperror) StatusAndMessage() (int, string) {
	return e.status, e.message
}
