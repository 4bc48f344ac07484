package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kobosync/internal/shelves"
)

// TagsController maps device tags onto shelves.
type TagsController struct {
	shelves ShelfStore
}

func NewTagsController(store ShelfStore) *TagsController {
	return &TagsController{shelves: store}
}

// CreateTag creates a shelf and responds with its id.
// POST /v1/library/tags
func (tc *TagsController) CreateTag(c *gin.Context) {
	var req shelves.CreateRequest
	if !bindJSON(c, &req) {
		return
	}
	id, ok := authorized(c)
	if !ok {
		return
	}

	shelfID, err := tc.shelves.Create(c.Request.Context(), id.APIKey, req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.String(http.StatusCreated, shelfID)
}

// RenameTag renames a shelf.
// PUT /v1/library/tags/:id
func (tc *TagsController) RenameTag(c *gin.Context) {
	var req shelves.RenameRequest
	if !bindJSON(c, &req) {
		return
	}
	id, ok := authorized(c)
	if !ok {
		return
	}

	if err := tc.shelves.Rename(c.Request.Context(), id.APIKey, c.Param("id"), req); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// DeleteTag deletes a shelf.
// DELETE /v1/library/tags/:id
func (tc *TagsController) DeleteTag(c *gin.Context) {
	id, ok := authorized(c)
	if !ok {
		return
	}

	if err := tc.shelves.Delete(c.Request.Context(), id.APIKey, c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// AddItems puts books on a shelf and lists the added ids.
// POST /v1/library/tags/:id/items
func (tc *TagsController) AddItems(c *gin.Context) {
	var req shelves.ItemsRequest
	if !bindJSON(c, &req) {
		return
	}
	id, ok := authorized(c)
	if !ok {
		return
	}

	added, err := tc.shelves.AddItems(c.Request.Context(), id.APIKey, c.Param("id"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, added)
}

// RemoveItems takes books off a shelf.
// POST /v1/library/tags/:id/items/delete
func (tc *TagsController) RemoveItems(c *gin.Context) {
	var req shelves.ItemsRequest
	if !bindJSON(c, &req) {
		return
	}
	id, ok := authorized(c)
	if !ok {
		return
	}

	if err := tc.shelves.RemoveItems(c.Request.Context(), id.APIKey, c.Param("id"), req); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
