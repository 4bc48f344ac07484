package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kobosync/internal/auth"
	"github.com/mrlokans/kobosync/internal/covers"
)

// CoversController serves cover images to holders of a cover token.
type CoversController struct {
	tokens TokenValidator
	links  auth.KeyLookup
	covers CoverSource
}

func NewCoversController(validator TokenValidator, links auth.KeyLookup, source CoverSource) *CoversController {
	return &CoversController{tokens: validator, links: links, covers: source}
}

// GetCover serves a cover sized by query parameters.
// GET /images/:id?token=&width=&height=&isGreyscale=
func (cc *CoversController) GetCover(c *gin.Context) {
	token, size := parseCoverQuery(c.Query("token"))
	if w, h := c.Query("width"), c.Query("height"); w != "" || h != "" {
		size.Width, size.Height = atoi(w), atoi(h)
	}
	if grey := c.Query("isGreyscale"); grey != "" {
		size.Greyscale = parseBool(grey)
	}

	cc.serve(c, token, size)
}

// GetSizedCover serves a cover sized by path segments.
// GET /images/:id/:width/:height/:greyscale/image.jpg?token=
func (cc *CoversController) GetSizedCover(c *gin.Context) {
	size := covers.Size{
		Width:     atoi(c.Param("width")),
		Height:    atoi(c.Param("height")),
		Greyscale: parseBool(c.Param("greyscale")),
	}
	cc.serve(c, c.Query("token"), size)
}

func (cc *CoversController) serve(c *gin.Context, token string, size covers.Size) {
	bookID := coverBookID(c.Param("id"))

	apiKey, err := resolveTokenKey(cc.links, func() (string, error) {
		return cc.tokens.ValidateCoverToken(bookID, token)
	}, ErrInvalidCoverToken)
	if err != nil {
		abortWithError(c, err)
		return
	}

	image, err := cc.covers.GetCover(c.Request.Context(), apiKey, bookID, size)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Header("Cache-Control", "private, max-age=86400")
	c.Data(http.StatusOK, image.ContentType, image.Data)
}

// coverBookID strips the "[[...]]" cache buster from an image id.
func coverBookID(imageID string) string {
	bookID, _, _ := strings.Cut(imageID, "[[")
	return bookID
}

// parseCoverQuery handles devices that append the stock
// "/{width}/{height}/{greyscale}/image.jpg" suffix to an image id that
// already carries "?token=", which lands the suffix inside the token.
func parseCoverQuery(raw string) (string, covers.Size) {
	token, rest, found := strings.Cut(raw, "/")
	if !found {
		return raw, covers.Size{}
	}

	parts := strings.Split(rest, "/")
	var size covers.Size
	if len(parts) >= 2 {
		size.Width, size.Height = atoi(parts[0]), atoi(parts[1])
	}
	if len(parts) >= 3 {
		size.Greyscale = parseBool(parts[2])
	}
	return token, size
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}
