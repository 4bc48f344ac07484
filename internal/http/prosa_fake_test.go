package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kobosync/internal/prosa"
)

type fakeShelf struct {
	name  string
	books []string
}

// fakeProsa is an in-memory content backend. Keys in readOnly get 403 on
// every mutating request.
type fakeProsa struct {
	mu          sync.Mutex
	changes     prosa.SyncResponse
	lastSince   string
	metadata    map[string]prosa.Metadata
	states      map[string]prosa.State
	annotations map[string]map[string]prosa.Annotation
	shelves     map[string]*fakeShelf
	readOnly    map[string]bool
	nextID      int
}

func newFakeProsa(t *testing.T) (*fakeProsa, *httptest.Server) {
	t.Helper()

	f := &fakeProsa{
		metadata:    map[string]prosa.Metadata{},
		states:      map[string]prosa.State{},
		annotations: map[string]map[string]prosa.Annotation{},
		shelves:     map[string]*fakeShelf{},
		readOnly:    map[string]bool{},
	}

	server := httptest.NewServer(f.router())
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeProsa) addBook(bookID, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metadata[bookID] = prosa.Metadata{Title: &title}
}

func (f *fakeProsa) setChanges(changes prosa.SyncResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = changes
}

func (f *fakeProsa) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%d", prefix, f.nextID)
}

func (f *fakeProsa) router() *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		key := c.GetHeader("api-key")
		if key == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		readOnly := f.readOnly[key]
		f.mu.Unlock()
		if readOnly && c.Request.Method != http.MethodGet {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		c.Next()
	})

	r.GET("/sync", func(c *gin.Context) {
		f.lastSince = c.Query("since")
		c.JSON(http.StatusOK, f.changes)
	})

	r.GET("/books/:id", func(c *gin.Context) {
		if _, ok := f.metadata[c.Param("id")]; !ok {
			c.Status(http.StatusNotFound)
			return
		}
		c.Data(http.StatusOK, "application/octet-stream", []byte("EPUB-"+c.Param("id")))
	})
	r.DELETE("/books/:id", func(c *gin.Context) {
		if _, ok := f.metadata[c.Param("id")]; !ok {
			c.Status(http.StatusNotFound)
			return
		}
		delete(f.metadata, c.Param("id"))
		c.Status(http.StatusNoContent)
	})
	r.GET("/books/:id/file-metadata", func(c *gin.Context) {
		if _, ok := f.metadata[c.Param("id")]; !ok {
			c.Status(http.StatusNotFound)
			return
		}
		c.JSON(http.StatusOK, prosa.FileMetadata{OwnerID: "owner", FileSize: 2048})
	})
	r.GET("/books/:id/metadata", func(c *gin.Context) {
		meta, ok := f.metadata[c.Param("id")]
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		c.JSON(http.StatusOK, meta)
	})
	r.GET("/books/:id/cover", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	r.GET("/books/:id/state", func(c *gin.Context) {
		state, ok := f.states[c.Param("id")]
		if !ok {
			state = prosa.State{Statistics: prosa.Statistics{ReadingStatus: "Unread"}}
		}
		c.JSON(http.StatusOK, state)
	})
	r.PATCH("/books/:id/state", func(c *gin.Context) {
		var state prosa.State
		if err := c.ShouldBindJSON(&state); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		state.Statistics.Rating = f.states[c.Param("id")].Statistics.Rating
		f.states[c.Param("id")] = state
		c.Status(http.StatusNoContent)
	})
	r.POST("/books/:id/rating", func(c *gin.Context) {
		var body struct {
			Rating float64 `json:"rating"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		state := f.states[c.Param("id")]
		state.Statistics.Rating = &body.Rating
		f.states[c.Param("id")] = state
		c.Status(http.StatusNoContent)
	})

	r.GET("/books/:id/annotations", func(c *gin.Context) {
		ids := []string{}
		for id := range f.annotations[c.Param("id")] {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		c.JSON(http.StatusOK, ids)
	})
	r.GET("/books/:id/annotations/:aid", func(c *gin.Context) {
		annotation, ok := f.annotations[c.Param("id")][c.Param("aid")]
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		c.JSON(http.StatusOK, annotation)
	})
	r.POST("/books/:id/annotations", func(c *gin.Context) {
		var body prosa.NewAnnotation
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		book := f.annotations[c.Param("id")]
		if book == nil {
			book = map[string]prosa.Annotation{}
			f.annotations[c.Param("id")] = book
		}
		for _, existing := range book {
			if existing.Source == body.Source && existing.StartTag == body.StartTag && existing.StartChar == body.StartChar {
				c.Status(http.StatusConflict)
				return
			}
		}
		id := f.id("a")
		book[id] = prosa.Annotation{
			AnnotationID: id,
			Source:       body.Source,
			StartTag:     body.StartTag,
			EndTag:       body.EndTag,
			StartChar:    body.StartChar,
			EndChar:      body.EndChar,
			Note:         body.Note,
		}
		c.String(http.StatusCreated, id)
	})
	r.PATCH("/books/:id/annotations/:aid", func(c *gin.Context) {
		annotation, ok := f.annotations[c.Param("id")][c.Param("aid")]
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		var body struct {
			Note string `json:"note"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		annotation.Note = &body.Note
		f.annotations[c.Param("id")][c.Param("aid")] = annotation
		c.Status(http.StatusNoContent)
	})
	r.DELETE("/books/:id/annotations/:aid", func(c *gin.Context) {
		if _, ok := f.annotations[c.Param("id")][c.Param("aid")]; !ok {
			c.Status(http.StatusNotFound)
			return
		}
		delete(f.annotations[c.Param("id")], c.Param("aid"))
		c.Status(http.StatusNoContent)
	})

	r.POST("/shelves", func(c *gin.Context) {
		var body struct {
			Name string `json:"name"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		id := f.id("s")
		f.shelves[id] = &fakeShelf{name: body.Name}
		c.String(http.StatusCreated, id)
	})
	r.GET("/shelves/:id", func(c *gin.Context) {
		shelf, ok := f.shelves[c.Param("id")]
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		c.JSON(http.StatusOK, prosa.ShelfMetadata{Name: shelf.name, OwnerID: "owner", BookCount: len(shelf.books)})
	})
	r.PUT("/shelves/:id", func(c *gin.Context) {
		shelf, ok := f.shelves[c.Param("id")]
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		var body struct {
			Name string `json:"name"`
		}
		_ = c.ShouldBindJSON(&body)
		shelf.name = body.Name
		c.Status(http.StatusNoContent)
	})
	r.DELETE("/shelves/:id", func(c *gin.Context) {
		if _, ok := f.shelves[c.Param("id")]; !ok {
			c.Status(http.StatusNotFound)
			return
		}
		delete(f.shelves, c.Param("id"))
		c.Status(http.StatusNoContent)
	})
	r.GET("/shelves/:id/books", func(c *gin.Context) {
		shelf, ok := f.shelves[c.Param("id")]
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		c.JSON(http.StatusOK, append([]string{}, shelf.books...))
	})
	r.POST("/shelves/:id/books", func(c *gin.Context) {
		shelf, ok := f.shelves[c.Param("id")]
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		var body struct {
			BookID string `json:"book_id"`
		}
		_ = c.ShouldBindJSON(&body)
		if slices.Contains(shelf.books, body.BookID) {
			c.Status(http.StatusConflict)
			return
		}
		shelf.books = append(shelf.books, body.BookID)
		c.Status(http.StatusNoContent)
	})
	r.DELETE("/shelves/:id/books/:book", func(c *gin.Context) {
		shelf, ok := f.shelves[c.Param("id")]
		if !ok || !slices.Contains(shelf.books, c.Param("book")) {
			c.Status(http.StatusNotFound)
			return
		}
		shelf.books = slices.DeleteFunc(shelf.books, func(id string) bool { return id == c.Param("book") })
		c.Status(http.StatusNoContent)
	})

	return r
}
