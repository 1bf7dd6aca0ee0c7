package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fileforge/fileforge/internal/convert"
	"github.com/fileforge/fileforge/internal/export"
	"github.com/fileforge/fileforge/internal/format"
	"github.com/fileforge/fileforge/internal/job"
	"github.com/fileforge/fileforge/internal/store"
)

// Server exposes the job queue over HTTP. It renders job snapshots and
// forwards user intents to the manager; conversions run in the background so
// the queue stays responsive.
type Server struct {
	Router *gin.Engine
	mgr    *job.Manager
	hist   *store.Store
	log    *zap.Logger
}

// NewServer wires routes. hist may be nil when history persistence is
// disabled; log may be nil.
func NewServer(mgr *job.Manager, hist *store.Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	g := gin.Default()
	s := &Server{Router: g, mgr: mgr, hist: hist, log: log}

	api := g.Group("/api")
	api.GET("/formats", s.listFormats)
	api.POST("/files", s.addFiles)
	api.GET("/files", s.listFiles)
	api.GET("/files/:id", s.getFile)
	api.PUT("/files/:id/target", s.setTarget)
	api.POST("/files/:id/convert", s.convertFile)
	api.POST("/convert-all", s.convertAll)
	api.GET("/files/:id/download", s.download)
	api.DELETE("/files/:id", s.removeFile)
	api.DELETE("/files", s.clearFiles)
	api.GET("/stats", s.getStats)
	api.GET("/export", s.exportHistory)

	return s
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	return s.Router.Run(addr)
}

type formatInfo struct {
	Category format.Category `json:"category"`
	Inputs   []string        `json:"inputs"`
	Outputs  []string        `json:"outputs"`
	Default  string          `json:"default"`
}

func (s *Server) listFormats(c *gin.Context) {
	infos := make([]formatInfo, 0, 4)
	for _, cat := range format.Categories() {
		infos = append(infos, formatInfo{
			Category: cat,
			Inputs:   format.InputsFor(cat),
			Outputs:  format.OutputsFor(cat),
			Default:  format.DefaultOutputFor(cat),
		})
	}
	c.JSON(http.StatusOK, infos)
}

type rejectedFile struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// addFiles accepts one or more uploads under the "files" field. A file the
// registry cannot classify is rejected without aborting its siblings.
func (s *Server) addFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid multipart form: %v", err)})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	var added []job.Job
	var rejected []rejectedFile
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			rejected = append(rejected, rejectedFile{Name: fh.Filename, Error: err.Error()})
			continue
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			rejected = append(rejected, rejectedFile{Name: fh.Filename, Error: err.Error()})
			continue
		}
		j, err := s.mgr.Add(fh.Filename, int64(len(data)), data)
		if err != nil {
			rejected = append(rejected, rejectedFile{Name: fh.Filename, Error: err.Error()})
			continue
		}
		added = append(added, j)
	}

	c.JSON(http.StatusOK, gin.H{"added": added, "rejected": rejected})
}

func (s *Server) listFiles(c *gin.Context) {
	c.JSON(http.StatusOK, s.mgr.List())
}

func (s *Server) getFile(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	j, found := s.mgr.Get(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, j)
}

func (s *Server) setTarget(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req struct {
		Target string `json:"target"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := s.mgr.SetTarget(id, req.Target); err != nil {
		status := http.StatusConflict
		if convert.IsUnsupportedTarget(err) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	j, _ := s.mgr.Get(id)
	c.JSON(http.StatusOK, j)
}

func (s *Server) convertFile(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	j, found := s.mgr.Get(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if j.Status == job.StatusConverting {
		c.JSON(http.StatusConflict, gin.H{"error": "already converting"})
		return
	}
	go func() {
		// Detached from the request context: removing the job or closing the
		// connection does not interrupt the strategy.
		_ = s.mgr.Convert(context.Background(), id)
	}()
	c.JSON(http.StatusAccepted, gin.H{"id": id, "status": job.StatusConverting})
}

func (s *Server) convertAll(c *gin.Context) {
	go s.mgr.ConvertAll(context.Background())
	c.JSON(http.StatusAccepted, gin.H{"started": true})
}

func (s *Server) download(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	j, found := s.mgr.Get(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if !j.HasArtifact() {
		c.JSON(http.StatusConflict, gin.H{"error": "no artifact available"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", j.OutputName()))
	c.Data(http.StatusOK, j.Artifact.MIME, j.Artifact.Data)
}

func (s *Server) removeFile(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	s.mgr.Remove(id)
	c.JSON(http.StatusOK, gin.H{"removed": id})
}

func (s *Server) clearFiles(c *gin.Context) {
	s.mgr.Clear()
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

func (s *Server) getStats(c *gin.Context) {
	resp := gin.H{"queue": s.mgr.Summary()}
	if s.hist != nil {
		if hs, err := s.hist.Summary(); err == nil {
			resp["history"] = hs
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) exportHistory(c *gin.Context) {
	if s.hist == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history persistence disabled"})
		return
	}
	records, err := s.hist.Recent(1000)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	data, err := export.Workbook(records)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	name := fmt.Sprintf("conversions-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return uuid.Nil, false
	}
	return id, true
}
