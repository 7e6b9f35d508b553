package apperror

import "net/http"

type Apperror struct {
	status  int
	code    string
	message string
	err     error
}

var (
	ServiceUnavailable = Apperror{status: http.StatusServiceUnavailable, code: "service_unavailable", message: "Server Not Ready To Process This Request"}
	ServerError        = Apperror{status: http.StatusInternalServerError, code: "server_error", message: "Internal Server Error"}
	InvalidRequest     = Apperror{status: http.StatusBadRequest, code: "invalid_request", message: "Invalid Request Body Received"}
	NotFound           = Apperror{status: http.StatusNotFound, code: "not_found", message: "Resource Not Found On This Server"}

	InvalidCamera     = Apperror{status: http.StatusBadRequest, code: "invalid_camera", message: "Invalid camera number"}
	EmptyFrame        = Apperror{status: http.StatusBadRequest, code: "empty_frame", message: "Frame body is empty"}
	FrameTooLarge     = Apperror{status: http.StatusRequestEntityTooLarge, code: "frame_too_large", message: "Frame exceeds the maximum allowed size"}
	CameraUnavailable = Apperror{status: http.StatusServiceUnavailable, code: "camera_unavailable", message: "Camera not available"}
)

func (e Apperror) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return e.message
}

func (e Apperror) SetMessage(message string) Apperror {
	e.message = message
	return e
}

// Wrap attaches the underlying cause while keeping the public status and message.
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

	return t.code == e.code
}

func (e Apperror) StatusAndMessage() (int, string) {
	return e.status, e.message
}
