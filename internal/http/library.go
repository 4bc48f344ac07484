package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kobosync/internal/changelog"
	"github.com/mrlokans/kobosync/internal/kobo"
	"github.com/mrlokans/kobosync/internal/library"
)

// LibraryController serves library sync, book metadata and removal.
type LibraryController struct {
	sync       Syncer
	library    LibraryStore
	publicHost string
}

func NewLibraryController(sync Syncer, store LibraryStore, publicHost string) *LibraryController {
	return &LibraryController{sync: sync, library: store, publicHost: publicHost}
}

// Sync returns the changes since the token in the X-Kobo-Synctoken header.
// GET /v1/library/sync
func (lc *LibraryController) Sync(c *gin.Context) {
	id, ok := authorized(c)
	if !ok {
		return
	}

	result, err := lc.sync.Sync(c.Request.Context(), changelog.Request{
		APIKey:    id.APIKey,
		DeviceID:  id.DeviceID,
		Since:     c.GetHeader(kobo.SyncTokenHeader),
		ServerURL: serverURL(c, lc.publicHost),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Header(kobo.SyncTokenHeader, result.Token)
	c.JSON(http.StatusOK, result.Events)
}

// Metadata returns the metadata of one book.
// GET /v1/library/:id/metadata
func (lc *LibraryController) Metadata(c *gin.Context) {
	id, ok := authorized(c)
	if !ok {
		return
	}

	meta, err := lc.library.Metadata(c.Request.Context(), id.APIKey, id.DeviceID, c.Param("id"), serverURL(c, lc.publicHost))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, []library.BookMetadata{*meta})
}

// Delete removes a book from the account.
// DELETE /v1/library/:id
func (lc *LibraryController) Delete(c *gin.Context) {
	id, ok := authorized(c)
	if !ok {
		return
	}

	if err := lc.library.Delete(c.Request.Context(), id.APIKey, id.DeviceID, c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
