package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kobosync/internal/annotations"
)

// AnnotationsController serves highlights and notes of a book.
type AnnotationsController struct {
	annotations AnnotationStore
}

func NewAnnotationsController(store AnnotationStore) *AnnotationsController {
	return &AnnotationsController{annotations: store}
}

// List returns the annotations of a book with its ETag.
// GET /api/v3/content/:id/annotations
func (ac *AnnotationsController) List(c *gin.Context) {
	id, ok := authorized(c)
	if !ok {
		return
	}

	resp, etag, err := ac.annotations.List(c.Request.Context(), id.APIKey, c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Header("ETag", etag)
	c.JSON(http.StatusOK, resp)
}

// Patch applies a batch of upserts and deletions.
// PATCH /api/v3/content/:id/annotations
func (ac *AnnotationsController) Patch(c *gin.Context) {
	var req annotations.PatchRequest
	if !bindJSON(c, &req) {
		return
	}
	id, ok := authorized(c)
	if !ok {
		return
	}

	if err := ac.annotations.Patch(c.Request.Context(), id.APIKey, c.Param("id"), req); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CheckForChanges returns the books whose ETag differs from the device's.
// POST /api/v3/content/checkforchanges
func (ac *AnnotationsController) CheckForChanges(c *gin.Context) {
	var checks []annotations.ContentCheck
	if !bindJSON(c, &checks) {
		return
	}

	changed, err := ac.annotations.CheckForChanges(checks)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, changed)
}
