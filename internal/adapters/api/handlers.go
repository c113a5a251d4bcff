package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikey/email-guardian/internal/core"
	"go.uber.org/zap"
)

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Email Guardian API",
		"description": "Spam and phishing detection service",
		"endpoints": gin.H{
			"/scan":       "POST - Analyze email content",
			"/history":    "GET - Retrieve scan history",
			"/create-key": "POST - Generate API key",
			"/health":     "GET - Health check",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"timestamp":   s.clock.Now(),
		"ai_provider": s.opts.AIProvider,
		"ai_enabled":  s.scans.AIEnabled(),
		"store":       s.opts.StoreType,
	}

	if err := s.scans.Ping(c.Request.Context()); err != nil {
		s.logger.Error("Health check failed", zap.Error(err))
		body["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}

	body["status"] = "healthy"
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	res, err := s.scans.Scan(c.Request.Context(), core.ScanRequest{
		Text:          req.text(),
		RequesterID:   req.requester(),
		SourceAddress: c.ClientIP(),
	})
	if err != nil && !core.IsPersistence(err) {
		status, msg := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("Scan failed", zap.Error(err))
		}
		c.JSON(status, errorResponse{Error: msg})
		return
	}

	c.JSON(http.StatusOK, newScanResponse(res))
}

func (s *Server) handleHistory(c *gin.Context) {
	limit, err := intQuery(c, "limit", core.DefaultHistoryLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	requester := c.Query("requester_id")
	if requester == "" {
		requester = c.Query("user_id")
	}

	page, err := s.scans.History(c.Request.Context(), core.HistoryQuery{
		RequesterID: requester,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		status, msg := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("History query failed", zap.Error(err))
		}
		c.JSON(status, errorResponse{Error: msg})
		return
	}

	c.JSON(http.StatusOK, newHistoryResponse(page))
}

func (s *Server) handleCreateKey(c *gin.Context) {
	var req createKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	secret, cred, err := s.credentials.Issue(c.Request.Context(), req.label(), req.Description)
	if err != nil {
		status, msg := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("Credential issue failed", zap.Error(err))
		}
		c.JSON(status, errorResponse{Error: msg})
		return
	}

	c.JSON(http.StatusOK, createKeyResponse{
		Secret:       secret,
		CredentialID: cred.CredentialID,
		Label:        cred.Label,
		CreatedAt:    cred.CreatedAt,
		Message:      "Store this key securely - it won't be shown again",
	})
}

func intQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &core.ValidationError{Field: key, Reason: "must be an integer"}
	}
	return n, nil
}
