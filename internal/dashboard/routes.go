package dashboard

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/drmeng/vds/internal/digest"
	"github.com/drmeng/vds/internal/document"
	"github.com/drmeng/vds/internal/metrics"
	"github.com/drmeng/vds/internal/models"
	"github.com/drmeng/vds/internal/notify"
	"github.com/drmeng/vds/internal/project"
	"github.com/drmeng/vds/internal/revision"
	"github.com/drmeng/vds/internal/transmittal"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"
)

// api holds what the handlers share.
type api struct {
	db       *gorm.DB
	log      hclog.Logger
	notifier *notify.Notifier
	now      func() time.Time
}

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, a *api, poll time.Duration) {
	router.GET("/healthz", a.handleHealth)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	r := router.Group("/api")
	r.GET("/projects", a.handleProjectList)
	r.GET("/projects/:id", a.handleProjectDetail)
	r.GET("/projects/:id/documents", a.handleDocumentList)
	r.POST("/projects/:id/issue", a.handleIssue)
	r.GET("/projects/:id/transmittals", a.handleTransmittalList)
	r.POST("/projects/:id/transmittals", a.handleTransmittalCreate)

	r.GET("/transmittals/recent", a.handleTransmittalRecent)
	r.GET("/transmittals/:id", a.handleTransmittalDetail)
	r.DELETE("/transmittals/:id", a.handleTransmittalDelete)

	r.GET("/documents/:id/revisions", a.handleRevisionList)
	r.GET("/revisions/:id", a.handleRevisionDetail)
	r.GET("/digest", a.handleDigest)

	r.GET("/events", handleEvents(a.db, poll, 15*time.Second, a.log))
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, models.ErrInvalid):
		status = http.StatusBadRequest
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

// idParam parses a numeric path parameter, answering 400 when it is not one.
func idParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		writeError(c, fmt.Errorf("%s %q: %w", name, c.Param(name), models.ErrInvalid))
		return 0, false
	}
	return uint(v), true
}

// limitQuery parses ?limit=, returning 0 when it is absent.
func limitQuery(c *gin.Context) (int, bool) {
	s := c.Query("limit")
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		writeError(c, fmt.Errorf("limit %q: %w", s, models.ErrInvalid))
		return 0, false
	}
	return n, true
}

func (a *api) handleHealth(c *gin.Context) {
	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *api) handleProjectList(c *gin.Context) {
	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	projects, err := project.List(a.db, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (a *api) handleProjectDetail(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	p, err := project.Get(a.db, id)
	if err != nil {
		writeError(c, err)
		return
	}
	summary, err := Summarize(a.db, p.ID, a.now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p, "summary": summary})
}

func (a *api) handleDocumentList(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if _, err := project.Get(a.db, id); err != nil {
		writeError(c, err)
		return
	}
	rows, err := DocumentRows(a.db, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

type issueRequest struct {
	DocumentIDs []uint `json:"document_ids" binding:"required,min=1"`
	Source      string `json:"source"`
	Notes       string `json:"notes"`
}

type issueFailure struct {
	DocumentID uint   `json:"document_id"`
	Error      string `json:"error"`
}

func (a *api) handleIssue(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("issue request: %w: %w", models.ErrInvalid, err))
		return
	}
	p, err := project.Get(a.db, id)
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := revision.IssueBatch(a.db, revision.BatchOpts{
		ProjectID:   p.ID,
		Source:      req.Source,
		Notes:       req.Notes,
		DocumentIDs: req.DocumentIDs,
		Now:         a.now,
		Logger:      a.log,
	})
	if res == nil {
		writeError(c, err)
		return
	}

	numbers, nerr := document.Numbers(a.db, req.DocumentIDs)
	if nerr != nil {
		a.log.Warn("issue: document numbers for notification", "error", nerr)
	}
	a.notifier.Batch(c.Request.Context(), p.WANumber, res, numbers)

	failures := make([]issueFailure, 0, len(res.Failures))
	for _, f := range res.Failures {
		failures = append(failures, issueFailure{DocumentID: f.DocumentID, Error: f.Err.Error()})
	}
	status := http.StatusCreated
	if len(failures) > 0 {
		status = http.StatusMultiStatus
	}
	revisions := res.Revisions
	if revisions == nil {
		revisions = []models.Revision{}
	}
	c.JSON(status, gin.H{
		"transmittal": res.Transmittal,
		"revisions":   revisions,
		"failures":    failures,
	})
}

func (a *api) handleTransmittalList(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if _, err := project.Get(a.db, id); err != nil {
		writeError(c, err)
		return
	}
	trs, err := transmittal.List(a.db, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trs)
}

type transmittalRequest struct {
	Source string `json:"source"`
	Notes  string `json:"notes"`
}

func (a *api) handleTransmittalCreate(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req transmittalRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, fmt.Errorf("transmittal request: %w: %w", models.ErrInvalid, err))
			return
		}
	}
	tr, err := transmittal.Create(a.db, transmittal.CreateOpts{
		ProjectID: id,
		Source:    req.Source,
		Notes:     req.Notes,
		Now:       a.now,
		Logger:    a.log,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tr)
}

func (a *api) handleTransmittalRecent(c *gin.Context) {
	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	trs, err := transmittal.Recent(a.db, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trs)
}

func (a *api) handleTransmittalDetail(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	details, err := transmittal.GetDetails(a.db, id)
	if err != nil {
		writeError(c, err)
		return
	}
	if details.Lines == nil {
		details.Lines = []transmittal.Line{}
	}
	c.JSON(http.StatusOK, details)
}

func (a *api) handleTransmittalDelete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := transmittal.Delete(a.db, id); err != nil {
		writeError(c, err)
		return
	}
	a.log.Info("transmittal deleted", "transmittal", id)
	c.Status(http.StatusNoContent)
}

func (a *api) handleRevisionList(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	revs, err := revision.ListForDocument(a.db, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, revs)
}

func (a *api) handleRevisionDetail(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	rev, err := revision.Get(a.db, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rev)
}

func (a *api) handleDigest(c *gin.Context) {
	r, err := digest.Build(a.db, a.now())
	if err != nil {
		writeError(c, err)
		return
	}
	entries := r.Entries
	if entries == nil {
		entries = []digest.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"date": r.Date.Format("2006-01-02"), "entries": entries})
}
