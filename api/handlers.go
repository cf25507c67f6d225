package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/Sheulydsp/kanban-dashboard/domain"
)

const (
	requestMaxSize       = 64 << 10
	idempotencyKeyHeader = "Idempotency-Key"
)

// Register wires up all API routes on the provided Echo instance. deduper
// may be nil, in which case Idempotency-Key headers are ignored.
func Register(e *echo.Echo, store BoardStore, deduper Deduper, broker *Broker, logger *log.Logger) {
	g := e.Group("/api", RequestMetricsMiddleware(logger))
	g.GET("/tasks", listTasks(store))
	g.POST("/tasks", createTask(store, deduper, logger))
	g.PUT("/tasks/:id", updateTask(store, logger))
	g.POST("/tasks/reorder", reorderTasks(store, logger))
	g.POST("/tasks/move", moveTask(store, logger))
	g.GET("/board", getBoard(store))
	g.GET("/stream", streamTasks(store, broker))
	e.GET("/healthz", healthz(store))
}

func healthz(store BoardStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"status": "ok", "revision": store.Revision()})
	}
}

func listTasks(store BoardStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		tasks := store.Tasks()
		if raw := c.QueryParam("status"); raw != "" {
			status := domain.Status(raw)
			if !status.Valid() {
				metricsFrom(c).SetErrorStage("invalid_status")
				return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid status"})
			}
			filtered := make([]domain.Task, 0, len(tasks))
			for _, t := range tasks {
				if t.Status == status {
					filtered = append(filtered, t)
				}
			}
			tasks = filtered
		}
		metricsFrom(c).SetTasksReturned(len(tasks))
		return c.JSON(http.StatusOK, tasksResponse{Tasks: tasks})
	}
}

func getBoard(store BoardStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		rev := store.Revision()
		cols := store.Columns()
		var n int
		for _, col := range cols {
			n += col.Count
		}
		metricsFrom(c).SetTasksReturned(n)
		return c.JSON(http.StatusOK, boardResponse{Revision: rev, Columns: cols})
	}
}

func createTask(store BoardStore, deduper Deduper, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		metrics := metricsFrom(c)

		var in domain.TaskInput
		if err := decodeBody(c, &in); err != nil {
			metrics.SetErrorStage("decode")
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		task, err := domain.NewTask(uuid.NewString(), in)
		if err != nil {
			metrics.SetErrorStage("validate")
			return validationFailed(c, err)
		}

		key := c.Request().Header.Get(idempotencyKeyHeader)
		claimed := false
		if key != "" && deduper != nil {
			existingID, ok, err := deduper.Claim(ctx, key, task.ID)
			switch {
			case err != nil:
				logger.WithError(err).WithField("key", key).Warn("idempotency check failed, creating without it")
			case !ok:
				metrics.SetTaskID(existingID)
				if prev, found := store.Get(existingID); found {
					return c.JSON(http.StatusOK, prev)
				}
				metrics.SetErrorStage("idempotency")
				return c.JSON(http.StatusConflict, errorResponse{Error: "request with this idempotency key is still being processed"})
			default:
				claimed = true
			}
		}

		metrics.SetTaskID(task.ID)
		start := time.Now()
		err = store.Add(ctx, task)
		metrics.ObserveStore(time.Since(start))
		if err != nil {
			if claimed {
				if rerr := deduper.Remove(ctx, key); rerr != nil {
					logger.WithError(rerr).WithField("key", key).Error("idempotency rollback failed")
				}
			}
			return storeFailure(c, logger, err)
		}
		return c.JSON(http.StatusCreated, task)
	}
}

func updateTask(store BoardStore, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		metrics := metricsFrom(c)
		id := c.Param("id")
		metrics.SetTaskID(id)

		var in domain.TaskInput
		if err := decodeBody(c, &in); err != nil {
			metrics.SetErrorStage("decode")
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		existing, ok := store.Get(id)
		if !ok {
			metrics.SetErrorStage("lookup")
			return c.JSON(http.StatusNotFound, errorResponse{Error: domain.ErrTaskNotFound.Error()})
		}
		task, err := in.ApplyTo(existing)
		if err != nil {
			metrics.SetErrorStage("validate")
			return validationFailed(c, err)
		}

		start := time.Now()
		err = store.Update(c.Request().Context(), task)
		metrics.ObserveStore(time.Since(start))
		if err != nil {
			return storeFailure(c, logger, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func reorderTasks(store BoardStore, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		metrics := metricsFrom(c)

		var req reorderRequest
		if err := decodeBody(c, &req); err != nil {
			metrics.SetErrorStage("decode")
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		var verrs domain.ValidationErrors
		if !req.Status.Valid() {
			verrs = append(verrs, domain.ValidationError{Field: "status", Message: "status must be a board column"})
		}
		if req.SourceID == "" {
			verrs = append(verrs, domain.ValidationError{Field: "sourceId", Message: "sourceId is required"})
		}
		if req.TargetID == "" {
			verrs = append(verrs, domain.ValidationError{Field: "targetId", Message: "targetId is required"})
		}
		if len(verrs) > 0 {
			metrics.SetErrorStage("validate")
			return validationFailed(c, verrs)
		}

		metrics.SetTaskID(req.SourceID)
		start := time.Now()
		err := store.Reorder(c.Request().Context(), req.Status, req.SourceID, req.TargetID)
		metrics.ObserveStore(time.Since(start))
		if err != nil {
			return storeFailure(c, logger, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func moveTask(store BoardStore, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		metrics := metricsFrom(c)

		var req moveRequest
		if err := decodeBody(c, &req); err != nil {
			metrics.SetErrorStage("decode")
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if req.ActiveID == "" || req.OverID == "" {
			metrics.SetErrorStage("validate")
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "activeId and overId are required"})
		}

		metrics.SetTaskID(req.ActiveID)
		start := time.Now()
		err := store.Move(c.Request().Context(), req.ActiveID, req.OverID)
		metrics.ObserveStore(time.Since(start))
		if err != nil {
			return storeFailure(c, logger, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, requestMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func validationFailed(c echo.Context, err error) error {
	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: verrs})
	}
	return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func storeFailure(c echo.Context, logger *log.Logger, err error) error {
	switch {
	case errors.Is(err, domain.ErrTaskNotFound), errors.Is(err, domain.ErrNotInColumn):
		metricsFrom(c).SetErrorStage("lookup")
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrDuplicateTask):
		metricsFrom(c).SetErrorStage("conflict")
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		metricsFrom(c).SetErrorStage("storage")
		logger.WithError(err).WithField("route", c.Path()).Error("failed to save tasks")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to save tasks"})
	}
}
