package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/citywatch-app/citywatch/internal/errs"
	"github.com/citywatch-app/citywatch/internal/fingerprint"
)

func (s *Server) handleVote(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	var req struct {
		VoteType *int `json:"vote_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.VoteType == nil {
		s.writeError(c, fmt.Errorf("%w: vote_type is required", errs.ErrValidation))
		return
	}
	count, err := s.interactions.Vote(c.Request.Context(), callerFingerprint(c), id, *req.VoteType)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vote_count": count})
}

func (s *Server) handleAddFavorite(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.interactions.AddFavorite(c.Request.Context(), callerFingerprint(c), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorited": true})
}

func (s *Server) handleRemoveFavorite(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.interactions.RemoveFavorite(c.Request.Context(), callerFingerprint(c), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorited": false})
}

func (s *Server) handleListFavorites(c *gin.Context) {
	entries, err := s.interactions.ListFavorites(c.Request.Context(), callerFingerprint(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": emptyIfNil(entries)})
}

func (s *Server) handleReport(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: malformed request body", errs.ErrValidation))
		return
	}
	if err := s.interactions.Report(c.Request.Context(), callerFingerprint(c), id, req.Reason); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reported": true})
}

func (s *Server) handleListComments(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	comments, err := s.interactions.ListComments(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": emptyIfNil(comments)})
}

func (s *Server) handleCreateComment(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: malformed request body", errs.ErrValidation))
		return
	}
	comment, err := s.interactions.Comment(c.Request.Context(), callerFingerprint(c), id, req.Content)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// handleMe is display-only: when the alias store is down it degrades to
// a fingerprint-derived placeholder instead of failing, so the UI always
// has something to show. Writes that must persist the alias (comments)
// still fail on resolver errors.
func (s *Server) handleMe(c *gin.Context) {
	fp := callerFingerprint(c)
	alias, err := s.identity.Resolve(c.Request.Context(), fp)
	if err != nil {
		s.logger.Warn("alias resolve failed, degrading", zap.Error(err))
		alias = "anon-" + fingerprint.Short(fp)
	}
	c.JSON(http.StatusOK, gin.H{"anonymous_id": alias})
}
