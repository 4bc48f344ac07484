package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/kobosync/internal/tasks"
)

type fakeTaskQueue struct {
	enqueued []string
	defaults tasks.Defaults
	status   backlite.TaskStatus
	err      error
}

func (q *fakeTaskQueue) Enqueue(ctx context.Context, kind string, d tasks.Defaults) (string, error) {
	if _, err := tasks.NewTask(kind, d); err != nil {
		return "", err
	}
	if q.err != nil {
		return "", q.err
	}
	q.enqueued = append(q.enqueued, kind)
	q.defaults = d
	return "task-1", nil
}

func (q *fakeTaskQueue) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return q.status, q.err
}

func setupTasksRouter(queue TaskQueue) *gin.Engine {
	gin.SetMode(gin.TestMode)
	controller := NewTasksController(queue, tasks.Defaults{AuditRetentionDays: 7, CoverMaxAge: 48 * time.Hour})

	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/tasks/types", controller.ListTaskTypes)
	router.GET("/tasks/:id", controller.GetTaskStatus)
	router.POST("/tasks/:type/run", controller.RunTask)
	return router
}

func serve(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestTasksController_ListTaskTypes(t *testing.T) {
	w := serve(setupTasksRouter(&fakeTaskQueue{}), "GET", "/tasks/types")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		TaskTypes []TaskTypeInfo `json:"task_types"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.TaskTypes, len(tasks.Kinds))
	for i, info := range resp.TaskTypes {
		assert.Equal(t, tasks.Kinds[i], info.Type)
		assert.NotEmpty(t, info.Description)
	}
}

func TestTasksController_RunTask(t *testing.T) {
	t.Run("enqueues a known kind with the configured defaults", func(t *testing.T) {
		queue := &fakeTaskQueue{}
		w := serve(setupTasksRouter(queue), "POST", "/tasks/prune_covers/run")

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.JSONEq(t, `{"task_id":"task-1","type":"prune_covers"}`, w.Body.String())
		assert.Equal(t, []string{tasks.KindPruneCovers}, queue.enqueued)
		assert.Equal(t, 48*time.Hour, queue.defaults.CoverMaxAge)
	})

	t.Run("unknown kind is not found", func(t *testing.T) {
		queue := &fakeTaskQueue{}
		w := serve(setupTasksRouter(queue), "POST", "/tasks/enrich_books/run")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, queue.enqueued)
	})

	t.Run("queue failure is internal", func(t *testing.T) {
		w := serve(setupTasksRouter(&fakeTaskQueue{err: errors.New("database is locked")}), "POST", "/tasks/cleanup_audit/run")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestTasksController_GetTaskStatus(t *testing.T) {
	tests := []struct {
		status backlite.TaskStatus
		want   string
	}{
		{backlite.TaskStatusPending, "pending"},
		{backlite.TaskStatusRunning, "running"},
		{backlite.TaskStatusSuccess, "success"},
		{backlite.TaskStatusFailure, "failure"},
		{backlite.TaskStatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			w := serve(setupTasksRouter(&fakeTaskQueue{status: tt.status}), "GET", "/tasks/abc")
			require.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"id":"abc","status":"`+tt.want+`"}`, w.Body.String())
		})
	}
}
