package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"cui-prefs/internal/jsonstore"
	"cui-prefs/internal/preferences"
)

// errorResponse is the body of every error reply.
type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps an error returned by a handler to its HTTP status.
func statusFor(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, preferences.ErrInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the client-facing message for err. Store failures get
// a fixed message; their cause is only logged.
func messageFor(err error) string {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return fmt.Sprint(he.Message)
	case errors.Is(err, preferences.ErrInvalid):
		return err.Error()
	case errors.Is(err, jsonstore.ErrCorrupt):
		return "preferences file is corrupt"
	case errors.Is(err, jsonstore.ErrWrite):
		return "failed to save preferences"
	default:
		return http.StatusText(http.StatusInternalServerError)
	}
}

// errorHandler is the echo.HTTPErrorHandler. It is the only place errors
// are turned into responses.
func (s *Server) errorHandler(err error, c echo.Context) {
	code := statusFor(err)
	msg := messageFor(err)

	if code >= http.StatusInternalServerError {
		cause := err
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Internal != nil {
			cause = fmt.Errorf("%v, %v", err, he.Internal)
		}
		s.logger.Errorw("Internal server error", "error", cause, "path", c.Request().URL.Path)
	}

	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorResponse{Error: msg})
	}
	if err != nil {
		s.logger.Errorw("Error sending response", "error", err)
	}
}
