package http

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/kobosync/internal/readingstate"
)

// StateController serves reading state, ratings and analytics events.
type StateController struct {
	states StateStore
}

func NewStateController(store StateStore) *StateController {
	return &StateController{states: store}
}

// GetState returns the reading state of a book.
// GET /v1/library/:id/state
func (sc *StateController) GetState(c *gin.Context) {
	id, ok := authorized(c)
	if !ok {
		return
	}

	state, err := sc.states.Get(c.Request.Context(), id.APIKey, c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, []readingstate.ReadingState{*state})
}

// PutState stores the reading state sent by the device.
// PUT /v1/library/:id/state
func (sc *StateController) PutState(c *gin.Context) {
	var req readingstate.UpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	if len(req.ReadingStates) == 0 {
		abortWithError(c, readingstate.ErrMissingState)
		return
	}
	id, ok := authorized(c)
	if !ok {
		return
	}

	resp, err := sc.states.Put(c.Request.Context(), id.APIKey, c.Param("id"), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Ratings returns the rating of the book in ProductIds.
// GET /v1/user/reviews?ProductIds=
func (sc *StateController) Ratings(c *gin.Context) {
	bookID := c.Query("ProductIds")
	if bookID == "" {
		abortWithError(c, ErrMissingBookID)
		return
	}
	id, ok := authorized(c)
	if !ok {
		return
	}

	resp, err := sc.states.Ratings(c.Request.Context(), id.APIKey, bookID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Rate stores a rating.
// POST /v1/products/:id/rating/:rating
func (sc *StateController) Rate(c *gin.Context) {
	rating, err := strconv.ParseFloat(c.Param("rating"), 64)
	if err != nil || math.IsNaN(rating) || math.IsInf(rating, 0) {
		abortWithError(c, ErrBadRequest)
		return
	}
	id, ok := authorized(c)
	if !ok {
		return
	}

	if err := sc.states.Rate(c.Request.Context(), id.APIKey, c.Param("id"), rating); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// Reviews returns an empty page of reviews.
// GET /v1/products/:id/reviews
func (sc *StateController) Reviews(c *gin.Context) {
	if _, ok := authorized(c); !ok {
		return
	}
	c.JSON(http.StatusOK, readingstate.Reviews())
}

// AnalyticsEvent accepts device analytics; rating events are stored.
// POST /v1/analytics/event
func (sc *StateController) AnalyticsEvent(c *gin.Context) {
	var req readingstate.EventsRequest
	if !bindJSON(c, &req) {
		return
	}
	id, ok := authorized(c)
	if !ok {
		return
	}

	resp, err := sc.states.Events(c.Request.Context(), id.APIKey, req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
