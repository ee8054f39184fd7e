// Package api exposes the task and category HTTP endpoints.
package api

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"todo-planner/internal/auth"
	"todo-planner/internal/service"
	"todo-planner/internal/storage"
)

// Pinger reports whether the database answers.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators the handlers need.
type Deps struct {
	Tasks      *service.TaskService
	Categories *service.CategoryService
	Files      *storage.AttachmentStore
	Verifier   *auth.Verifier
	DB         Pinger
	Log        *log.Logger
	// AuthRequired rejects task requests without a bearer token.
	AuthRequired bool
	// Timeout bounds each request's context; zero disables it.
	Timeout time.Duration
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = storage.MaxAttachmentSize + 1<<20
	r.Use(recovery(d.Log), requestLogger(d.Log), cors.New(corsConfig()))
	if d.Timeout > 0 {
		r.Use(requestTimeout(d.Timeout))
	}

	h := &handlers{deps: d}

	r.GET("/healthz", h.health)
	r.StaticFS("/storage", filesOnly{afero.NewHttpFs(d.Files.FS())})

	api := r.Group("/api")

	tasks := api.Group("/tasks", auth.Middleware(d.Verifier, d.AuthRequired))
	tasks.GET("", h.listTasks)
	tasks.GET("/latest", h.latestTasks)
	tasks.GET("/deleted", h.deletedTasks)
	tasks.GET("/stats", h.taskStats)
	tasks.GET("/calendar", h.calendar)
	tasks.GET("/:id", h.showTask)
	tasks.POST("", h.createTask)
	tasks.PUT("/:id", h.updateTask)
	tasks.DELETE("/:id", h.deleteTask)
	tasks.POST("/:id/restore", h.restoreTask)
	tasks.DELETE("/:id/force", h.purgeTask)

	api.GET("/categories", h.listCategories)
	api.POST("/categories", h.createCategory)
	api.DELETE("/categories/:id", h.deleteCategory)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
	})
	return r
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	return cfg
}

type handlers struct {
	deps Deps
}

func (h *handlers) health(c *gin.Context) {
	if err := h.deps.DB.PingContext(c.Request.Context()); err != nil {
		h.deps.Log.WithError(err).Warn("health check: database unreachable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// filesOnly hides directory listings of the public storage.
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}
