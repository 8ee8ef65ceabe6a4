package api

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// errorHandler writes every error that leaves a handler or middleware as a
// statusResponse, so router 404/405 answers look like handler errors.
func errorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := http.StatusInternalServerError, "internal server error"
		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
			code = he.Code
			switch m := he.Message.(type) {
			case string:
				msg = m
			case error:
				msg = m.Error()
			default:
				msg = fmt.Sprint(m)
			}
		case errors.Is(err, gzip.ErrHeader), errors.Is(err, gzip.ErrChecksum), errors.Is(err, io.ErrUnexpectedEOF):
			// raised by middleware.Decompress before the handler runs
			code, msg = http.StatusBadRequest, "invalid gzip body"
		}
		if code >= http.StatusInternalServerError {
			logger.WithError(err).WithField("path", c.Request().URL.Path).Error("request failed")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(code)
		} else {
			werr = c.JSON(code, statusResponse{Error: msg})
		}
		if werr != nil {
			logger.WithError(werr).Warn("write error response")
		}
	}
}

// outcome reports the status a request ends with once errorHandler has
// turned err into a response. Client errors are not reported as failures.
func outcome(c echo.Context, err error) (int, error) {
	var he *echo.HTTPError
	switch {
	case err == nil || c.Response().Committed:
		return c.Response().Status, err
	case errors.As(err, &he) && he.Code < http.StatusInternalServerError:
		return he.Code, nil
	case errors.As(err, &he):
		return he.Code, err
	default:
		return http.StatusInternalServerError, err
	}
}
