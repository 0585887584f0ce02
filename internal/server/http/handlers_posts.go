package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"

	"github.com/citywatch-app/citywatch/internal/errs"
	"github.com/citywatch-app/citywatch/internal/model"
	"github.com/citywatch-app/citywatch/internal/service"
)

type createPostRequest struct {
	Lat          float64          `json:"lat"`
	Lng          float64          `json:"lng"`
	City         string           `json:"city"`
	State        string           `json:"state"`
	CrossStreet  string           `json:"cross_street"`
	Summary      string           `json:"summary"`
	IncidentType string           `json:"incident_type"`
	Links        []model.PostLink `json:"links"`
	MediaIDs     []uuid.UUID      `json:"media_ids"`
}

func (s *Server) handleCreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: %s", errs.ErrValidation, "malformed request body"))
		return
	}
	post, err := s.posts.Create(c.Request.Context(), callerFingerprint(c), service.CreatePostInput{
		Location:     model.Location{Lat: req.Lat, Lng: req.Lng},
		City:         req.City,
		State:        req.State,
		CrossStreet:  req.CrossStreet,
		Summary:      req.Summary,
		IncidentType: model.IncidentType(req.IncidentType),
		Links:        req.Links,
		MediaIDs:     req.MediaIDs,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (s *Server) handlePostsInBounds(c *gin.Context) {
	var box model.BoundingBox
	for _, p := range []struct {
		key string
		dst *float64
	}{
		{"south", &box.SouthLat},
		{"west", &box.WestLng},
		{"north", &box.NorthLat},
		{"east", &box.EastLng},
	} {
		f, err := strconv.ParseFloat(c.Query(p.key), 64)
		if err != nil {
			s.writeError(c, fmt.Errorf("%w: missing or invalid %s", errs.ErrValidation, p.key))
			return
		}
		*p.dst = f
	}
	results, err := s.posts.InBounds(c.Request.Context(), box)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": emptyIfNil(results)})
}

func (s *Server) handleRecentPosts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	posts, err := s.posts.Recent(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": emptyIfNil(posts)})
}

func (s *Server) handleNearbyPosts(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil {
		s.writeError(c, fmt.Errorf("%w: lat and lng are required", errs.ErrValidation))
		return
	}
	center := model.Location{Lat: lat, Lng: lng}
	radius, _ := strconv.ParseFloat(c.Query("radius"), 64)
	limit, _ := strconv.Atoi(c.Query("limit"))

	var excludeID *uuid.UUID
	if raw := c.Query("exclude"); raw != "" {
		id, err := uuid.FromString(raw)
		if err != nil {
			s.writeError(c, fmt.Errorf("%w: invalid exclude id", errs.ErrValidation))
			return
		}
		excludeID = &id
	}

	results, err := s.posts.Nearby(c.Request.Context(), center, radius, excludeID, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": emptyIfNil(results)})
}

func (s *Server) handlePostDetail(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	detail, err := s.posts.Detail(c.Request.Context(), id, callerFingerprint(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// pathID parses the :id path segment. A malformed id can never name a
// post, so it reads as not found rather than a validation failure.
func pathID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		return uuid.Nil, errs.ErrNotFound
	}
	return id, nil
}

// emptyIfNil keeps list responses as [] instead of null.
func emptyIfNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
