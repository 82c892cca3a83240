package handlers

import (
	"errors"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"

	"github.com/mkorchagin/product-catalog/internal/tasks"
)

type TaskHandler struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
	Queue     string
}

// StartTask enqueues the placeholder job and returns its id without
// waiting for the worker.
func (h *TaskHandler) StartTask(c echo.Context) error {
	info, err := h.Client.Enqueue(
		tasks.NewLongRunningTask(),
		asynq.Queue(h.Queue),
		asynq.MaxRetry(0),
		asynq.Retention(tasks.ResultRetention),
	)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"task_id": info.ID,
		"status":  "Task Started",
	})
}

func (h *TaskHandler) TaskStatus(c echo.Context) error {
	id := c.Param("id")

	info, err := h.Inspector.GetTaskInfo(h.Queue, id)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "task not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var result interface{}
	status := tasks.StateName(info.State)
	if status == "succeeded" && len(info.Result) > 0 {
		result = string(info.Result)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"task_id": id,
		"status":  status,
		"result":  result,
	})
}
