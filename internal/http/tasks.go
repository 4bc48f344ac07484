package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/kobosync/internal/tasks"
)

// ErrUnknownTask is returned for a task kind that is not registered.
var ErrUnknownTask = errors.New("unknown task type")

// TaskQueue enqueues maintenance tasks and reports their status.
type TaskQueue interface {
	Enqueue(ctx context.Context, kind string, d tasks.Defaults) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// TasksController exposes manual triggers for the maintenance queues.
type TasksController struct {
	queue    TaskQueue
	defaults tasks.Defaults
}

func NewTasksController(queue TaskQueue, defaults tasks.Defaults) *TasksController {
	return &TasksController{queue: queue, defaults: defaults}
}

// TaskTypeInfo describes a task that can be triggered.
type TaskTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

var taskDescriptions = map[string]string{
	tasks.KindPurgeBookTokens: "Delete expired book download tokens",
	tasks.KindCleanupAudit:    "Delete audit events past the retention period",
	tasks.KindPruneCovers:     "Evict resized covers from the cache",
}

// ListTaskTypes handles GET /tasks/types
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	types := make([]TaskTypeInfo, 0, len(tasks.Kinds))
	for _, kind := range tasks.Kinds {
		types = append(types, TaskTypeInfo{Type: kind, Description: taskDescriptions[kind]})
	}
	c.JSON(http.StatusOK, gin.H{"task_types": types})
}

// GetTaskStatus handles GET /tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.queue.Status(ctx, taskID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

// RunTask handles POST /tasks/:type/run
func (tc *TasksController) RunTask(c *gin.Context) {
	kind := c.Param("type")

	id, err := tc.queue.Enqueue(c.Request.Context(), kind, tc.defaults)
	if errors.Is(err, tasks.ErrUnknownKind) {
		abortWithError(c, ErrUnknownTask)
		return
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id": id,
		"type":    kind,
	})
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
