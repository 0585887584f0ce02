package http

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/citywatch-app/citywatch/internal/errs"
	"github.com/citywatch-app/citywatch/internal/model"
	"github.com/citywatch-app/citywatch/internal/payments"
	"github.com/citywatch-app/citywatch/internal/webhook"
)

const maxWebhookBody = 1 << 20

func (s *Server) handleMediaUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		s.writeError(c, fmt.Errorf("%w: file field is required", errs.ErrValidation))
		return
	}
	f, err := file.Open()
	if err != nil {
		s.writeError(c, err)
		return
	}
	defer f.Close()

	asset, url, err := s.pipeline.Ingest(c.Request.Context(), f, file.Size,
		file.Header.Get("Content-Type"), file.Filename)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":         asset.ID,
		"url":        url,
		"media_type": asset.MediaType,
	})
}

// handleServeMedia streams objects for the local-disk backend; an S3
// deployment points MEDIA_BASE_URL at the bucket instead.
func (s *Server) handleServeMedia(c *gin.Context) {
	p := strings.TrimPrefix(c.Param("path"), "/")
	rc, err := s.store.Get(c.Request.Context(), p)
	if err != nil {
		s.writeError(c, errs.ErrNotFound)
		return
	}
	defer rc.Close()

	ct := mime.TypeByExtension(path.Ext(p))
	if ct == "" {
		ct = "application/octet-stream"
	}
	c.Header("Content-Type", ct)
	c.Header("Cache-Control", "public, max-age=86400, immutable")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}

type subscribeRequest struct {
	SWLat        *float64 `json:"sw_lat"`
	SWLng        *float64 `json:"sw_lng"`
	NELat        *float64 `json:"ne_lat"`
	NELng        *float64 `json:"ne_lng"`
	PushEndpoint string   `json:"push_endpoint"`
	PushP256DH   string   `json:"push_p256dh"`
	PushAuth     string   `json:"push_auth"`
}

func (s *Server) handleSubscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil ||
		req.SWLat == nil || req.SWLng == nil || req.NELat == nil || req.NELng == nil {
		s.writeError(c, fmt.Errorf("%w: sw_lat, sw_lng, ne_lat and ne_lng are required", errs.ErrValidation))
		return
	}
	sub, err := s.subscriptions.Subscribe(c.Request.Context(), callerFingerprint(c),
		model.BoundingBox{SouthLat: *req.SWLat, WestLng: *req.SWLng, NorthLat: *req.NELat, EastLng: *req.NELng},
		req.PushEndpoint, req.PushP256DH, req.PushAuth)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (s *Server) handleListSubscriptions(c *gin.Context) {
	subs, err := s.subscriptions.List(c.Request.Context(), callerFingerprint(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": emptyIfNil(subs)})
}

func (s *Server) handleUnsubscribe(c *gin.Context) {
	var id *uuid.UUID
	if raw := c.Query("id"); raw != "" {
		parsed, err := uuid.FromString(raw)
		if err != nil {
			s.writeError(c, fmt.Errorf("%w: invalid subscription id", errs.ErrValidation))
			return
		}
		id = &parsed
	}
	if err := s.subscriptions.Unsubscribe(c.Request.Context(), callerFingerprint(c), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) handleContact(c *gin.Context) {
	var req struct {
		Email   string `json:"email"`
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: malformed request body", errs.ErrValidation))
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		s.writeError(c, fmt.Errorf("%w: message is required", errs.ErrValidation))
		return
	}
	if len(req.Message) > 2000 {
		s.writeError(c, fmt.Errorf("%w: message must be 2000 characters or less", errs.ErrValidation))
		return
	}

	body := req.Message
	if req.Email != "" {
		body = "From: " + req.Email + "\n\n" + body
	}
	if err := s.mail.Send("Contact form message", body); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true})
}

func (s *Server) handleDonateCreate(c *gin.Context) {
	if !s.payments.Configured() {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable,
			gin.H{"error": "payments are not configured", "code": "payments_unavailable"})
		return
	}
	var req struct {
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
		Message  string  `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: malformed request body", errs.ErrValidation))
		return
	}
	session, err := s.payments.CreateSession(c.Request.Context(), req.Amount, req.Currency, req.Message)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// handleDonateCoins proxies the provider's supported-currency list. A
// provider failure is its problem, not ours, so it maps to 502.
func (s *Server) handleDonateCoins(c *gin.Context) {
	if !s.payments.Configured() {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable,
			gin.H{"error": "payments are not configured", "code": "payments_unavailable"})
		return
	}
	coins, err := s.payments.SupportedCoins(c.Request.Context())
	if err != nil {
		s.logger.Warn("supported coins fetch failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadGateway,
			gin.H{"error": "failed to fetch supported coins", "code": "provider_unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"coins": coins})
}

// handleAuthMe reports the caller's admin session, if any. An absent or
// invalid token is not an error here; the UI just gets no user.
func (s *Server) handleAuthMe(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || token == "" {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}
	adminID, err := s.admin.VerifyToken(token)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": gin.H{"id": adminID, "is_admin": true}})
}

func (s *Server) handleDonateStatus(c *gin.Context) {
	paymentID := c.Query("payment_id")
	if paymentID == "" {
		s.writeError(c, fmt.Errorf("%w: payment_id is required", errs.ErrValidation))
		return
	}
	status, err := s.payments.GetStatus(c.Request.Context(), paymentID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// handlePaymentWebhook verifies the provider's signature over the raw
// body before anything is parsed. Unknown event types are still 200:
// the provider retries on non-2xx and new types are not an error.
func (s *Server) handlePaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		s.writeError(c, err)
		return
	}
	sig := c.GetHeader("X-Webhook-Signature")
	if err := webhook.Verify(body, sig, s.opts.WebhookSecret, time.Now()); err != nil {
		s.writeError(c, err)
		return
	}
	ev, err := payments.ParseEvent(body)
	if err != nil {
		s.writeError(c, fmt.Errorf("%w: malformed event", errs.ErrValidation))
		return
	}
	payments.HandleEvent(ev, s.logger)
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (s *Server) handleAdminLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: malformed request body", errs.ErrValidation))
		return
	}
	token, err := s.admin.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) handleAdminDeletePost(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.admin.DeletePost(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
