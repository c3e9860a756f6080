package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"cui-prefs/internal/logger"
	"cui-prefs/internal/preferences"
)

// preferencesHandler serves /api/preferences.
type preferencesHandler struct {
	prefs  *preferences.Service
	logger *logger.Logger
}

// get returns the stored preferences. Read failures are already logged by
// the service, which substitutes the defaults.
func (h *preferencesHandler) get(c echo.Context) error {
	res := h.prefs.Get(c.Request().Context())
	return c.JSON(http.StatusOK, res.Preferences)
}

// update merges the request body into the stored preferences and returns
// the result.
func (h *preferencesHandler) update(c echo.Context) error {
	partial, err := bindPreferences(c)
	if err != nil {
		return err
	}
	if partial == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request body must be a JSON object")
	}

	updated, err := h.prefs.Update(c.Request().Context(), partial)
	if err != nil {
		h.logger.Errorw("Failed to update preferences", "error", err)
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

// bindPreferences decodes the request body. A request without a Content-Type
// is read as JSON; anything else goes through echo's binder.
func bindPreferences(c echo.Context) (preferences.Preferences, error) {
	var partial preferences.Preferences
	req := c.Request()
	if req.Header.Get(echo.HeaderContentType) != "" {
		if err := (&echo.DefaultBinder{}).BindBody(c, &partial); err != nil {
			return nil, err
		}
		return partial, nil
	}

	if req.Body == nil {
		return nil, nil
	}
	if err := json.NewDecoder(req.Body).Decode(&partial); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return partial, nil
}
