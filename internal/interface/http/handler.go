package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/knowledgebase/internal/domain/audit"
	"github.com/yanqian/knowledgebase/internal/domain/question"
)

// Handler wires the HTTP transport to domain services.
type Handler struct {
	questionSvc question.Service
	auditSvc    audit.Service
	logger      *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(questionSvc question.Service, auditSvc audit.Service, logger *slog.Logger) *Handler {
	return &Handler{
		questionSvc: questionSvc,
		auditSvc:    auditSvc,
		logger:      logger.With("component", "http.handler"),
	}
}

type pageQuery struct {
	Limit  *int `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int  `form:"offset" binding:"min=0"`
}

func (q pageQuery) limitOr(def int) int {
	if q.Limit == nil {
		return def
	}
	return *q.Limit
}

// ListQuestions returns one page of questions without embeddings.
func (h *Handler) ListQuestions(c *gin.Context) {
	var query pageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		abortWithError(c, bindError(err))
		return
	}
	result, err := h.questionSvc.List(c.Request.Context(), question.Page{
		Limit:  query.limitOr(question.DefaultListLimit),
		Offset: query.Offset,
	})
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetQuestion returns a full record including its embedding.
func (h *Handler) GetQuestion(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	rec, found, err := h.questionSvc.Get(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	if !found {
		abortWithError(c, notFound("question not found"))
		return
	}
	c.JSON(http.StatusOK, rec)
}

// CreateQuestion embeds and stores a single question.
func (h *Handler) CreateQuestion(c *gin.Context) {
	var req question.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, bindError(err))
		return
	}
	created, err := h.questionSvc.Create(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.JSON(http.StatusCreated, created)
}

// BulkCreateQuestions stores every question or none of them.
func (h *Handler) BulkCreateQuestions(c *gin.Context) {
	var req question.BulkCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, bindError(err))
		return
	}
	created, err := h.questionSvc.BulkCreate(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.JSON(http.StatusOK, created)
}

// UpdateQuestion applies a partial update.
func (h *Handler) UpdateQuestion(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	var req question.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, bindError(err))
		return
	}
	updated, found, err := h.questionSvc.Update(c.Request.Context(), id, req)
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	if !found {
		abortWithError(c, notFound("question not found"))
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteQuestion removes a question.
func (h *Handler) DeleteQuestion(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	deleted, err := h.questionSvc.Delete(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	if !deleted {
		abortWithError(c, notFound("question not found"))
		return
	}
	c.Status(http.StatusNoContent)
}

// SearchQuestions runs a similarity search.
func (h *Handler) SearchQuestions(c *gin.Context) {
	var req question.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, bindError(err))
		return
	}
	results, err := h.questionSvc.Search(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.JSON(http.StatusOK, results)
}

// ListLogs returns audit entries, newest first.
func (h *Handler) ListLogs(c *gin.Context) {
	var query pageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		abortWithError(c, bindError(err))
		return
	}
	result, err := h.auditSvc.List(c.Request.Context(), audit.Page{
		Limit:  query.limitOr(audit.DefaultListLimit),
		Offset: query.Offset,
	})
	if err != nil {
		abortWithError(c, fromAppError(err))
		return
	}
	c.JSON(http.StatusOK, result)
}

// Health is a liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func questionID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		abortWithError(c, invalidInput("id must be an integer", err))
		return 0, false
	}
	return id, true
}
