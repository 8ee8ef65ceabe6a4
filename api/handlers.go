package api

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"mock-server/domain"
)

const (
	tasksRoute = "/tasks"
	taskRoute  = "/tasks/:id"
)

// Register wires the task routes on the provided Echo instance.
func Register(e *echo.Echo, store Store, cfg Config, logger *log.Logger) {
	if logger == nil {
		panic("api.Register: logger is nil")
	}
	e.JSONSerializer = sonicSerializer{}
	e.HTTPErrorHandler = errorHandler(logger)
	e.Use(middleware.Decompress())

	e.GET(tasksRoute, listTasks(store, logger))
	e.POST(tasksRoute, upsertTask(store, cfg.maxBodyBytes(), logger))
	e.DELETE(taskRoute, deleteTask(store, logger))
}

func listTasks(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := newRequestMetrics(c.Request().Context(), logger, http.MethodGet, tasksRoute)
		c.SetRequest(c.Request().WithContext(ctx))
		defer func() {
			metrics.Log(outcome(c, err))
		}()

		storeStart := time.Now()
		tasks := store.List()
		metrics.ObserveStore(time.Since(storeStart))
		metrics.SetTasksReturned(len(tasks))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, tasks)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func upsertTask(store Store, maxBody int64, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := newRequestMetrics(c.Request().Context(), logger, http.MethodPost, tasksRoute)
		c.SetRequest(c.Request().WithContext(ctx))
		defer func() {
			metrics.Log(outcome(c, err))
		}()

		decodeStart := time.Now()
		limit := maxBody
		if limit < math.MaxInt64 {
			limit++
		}
		body, readErr := io.ReadAll(io.LimitReader(c.Request().Body, limit))
		if readErr != nil {
			metrics.SetErrorStage("read_body")
			err = c.JSON(http.StatusBadRequest, statusResponse{Error: "invalid body"})
			return err
		}
		if int64(len(body)) > maxBody {
			metrics.SetErrorStage("body_too_large")
			err = c.JSON(http.StatusRequestEntityTooLarge, statusResponse{Error: "body too large"})
			return err
		}
		task, parseErr := domain.ParseTask(body)
		metrics.ObserveDecode(time.Since(decodeStart))
		if parseErr != nil {
			metrics.SetErrorStage("validation")
			err = c.JSON(http.StatusBadRequest, statusResponse{Error: parseErr.Error()})
			return err
		}
		metrics.SetTaskID(task.ID)

		storeStart := time.Now()
		res, upsertErr := store.Upsert(task)
		metrics.ObserveStore(time.Since(storeStart))
		if upsertErr != nil {
			var verr *domain.ValidationError
			if errors.As(upsertErr, &verr) {
				metrics.SetErrorStage("validation")
				err = c.JSON(http.StatusBadRequest, statusResponse{Error: verr.Error()})
				return err
			}
			metrics.SetErrorStage("store")
			logger.WithError(upsertErr).WithField("task_id", task.ID).Error("upsert task")
			err = c.JSON(http.StatusInternalServerError, statusResponse{Error: "failed to store task"})
			return err
		}
		metrics.SetCreated(res.Created)

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, statusResponse{Status: "ok"})
		metrics.ObserveEncode(time.Since(encodeStart))
		return err
	}
}

func deleteTask(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := newRequestMetrics(c.Request().Context(), logger, http.MethodDelete, taskRoute)
		c.SetRequest(c.Request().WithContext(ctx))
		defer func() {
			metrics.Log(outcome(c, err))
		}()

		raw := c.Param("id")
		if raw == "" || strings.Contains(raw, "/") {
			// a trailing param also swallows "/tasks/1/extra"
			metrics.SetErrorStage("route")
			err = echo.ErrNotFound
			return err
		}
		id, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			metrics.SetErrorStage("invalid_id")
			err = c.JSON(http.StatusBadRequest, statusResponse{Error: "invalid task id"})
			return err
		}
		metrics.SetTaskID(id)

		storeStart := time.Now()
		res := store.Delete(id)
		metrics.ObserveStore(time.Since(storeStart))
		metrics.SetRemoved(res.Removed)

		err = c.JSON(http.StatusOK, statusResponse{Status: "deleted"})
		return err
	}
}
