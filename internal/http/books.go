package http

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kobosync/internal/auth"
	"github.com/mrlokans/kobosync/internal/tokens"
)

const epubContentType = "application/epub+zip"

// BooksController streams book files to holders of a book token.
type BooksController struct {
	tokens TokenValidator
	links  auth.KeyLookup
	books  BookSource
}

func NewBooksController(validator TokenValidator, links auth.KeyLookup, books BookSource) *BooksController {
	return &BooksController{tokens: validator, links: links, books: books}
}

// Download streams a book file.
// GET /books/:id?token=
func (bc *BooksController) Download(c *gin.Context) {
	bookID := c.Param("id")

	apiKey, err := resolveTokenKey(bc.links, func() (string, error) {
		return bc.tokens.ValidateBookToken(bookID, c.Query("token"))
	}, ErrInvalidBookToken)
	if err != nil {
		abortWithError(c, err)
		return
	}

	content, err := bc.books.DownloadBook(c.Request.Context(), apiKey, bookID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	defer content.Body.Close()

	c.Header("Content-Type", epubContentType)
	if content.ContentLength >= 0 {
		c.Header("Content-Length", strconv.FormatInt(content.ContentLength, 10))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, content.Body); err != nil {
		log.Printf("Failed to stream book %s: %v", bookID, err)
	}
}

// resolveTokenKey validates a download token and returns the current API
// key of the device it was issued to. Any failure, including a device that
// was unlinked since, is reported as invalidErr.
func resolveTokenKey(links auth.KeyLookup, validate func() (string, error), invalidErr error) (string, error) {
	deviceID, err := validate()
	if errors.Is(err, tokens.ErrInvalid) {
		return "", invalidErr
	}
	if err != nil {
		return "", err
	}

	apiKey, err := links.LinkedKey(deviceID)
	if errors.Is(err, auth.ErrNotLinked) {
		return "", invalidErr
	}
	if err != nil {
		return "", err
	}
	return apiKey, nil
}
