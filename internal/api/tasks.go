package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"todo-planner/internal/auth"
	"todo-planner/internal/errs"
	"todo-planner/internal/model"
	"todo-planner/internal/repository"
	"todo-planner/internal/service"
)

// taskResource is the wire form of a task.
type taskResource struct {
	model.Task
	AttachmentURL *string `json:"attachment_url"`
}

// pageResource mirrors the Laravel paginator fields the frontend reads.
type pageResource struct {
	Data        []taskResource `json:"data"`
	CurrentPage int            `json:"current_page"`
	PerPage     int            `json:"per_page"`
	Total       int64          `json:"total"`
	LastPage    int            `json:"last_page"`
	From        *int           `json:"from"`
	To          *int           `json:"to"`
}

func (h *handlers) resource(t model.Task) taskResource {
	res := taskResource{Task: t}
	if t.AttachmentPath != nil {
		url := h.deps.Files.URL(*t.AttachmentPath)
		res.AttachmentURL = &url
	}
	return res
}

func (h *handlers) resources(tasks []model.Task) []taskResource {
	out := make([]taskResource, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, h.resource(t))
	}
	return out
}

func (h *handlers) page(p repository.TaskPage) pageResource {
	res := pageResource{
		Data:        h.resources(p.Tasks),
		CurrentPage: p.CurrentPage,
		PerPage:     p.PerPage,
		Total:       p.Total,
		LastPage:    p.LastPage,
	}
	if len(p.Tasks) > 0 {
		from, to := p.From(), p.To()
		res.From, res.To = &from, &to
	}
	return res
}

// GET /api/tasks?search=&status=&category=&page=&per_page=
func (h *handlers) listTasks(c *gin.Context) {
	page, err := h.deps.Tasks.List(c.Request.Context(), auth.UserID(c), service.TaskQuery{
		Search:   c.Query("search"),
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Page:     queryInt(c, "page"),
		PerPage:  queryInt(c, "per_page"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.page(page))
}

func (h *handlers) latestTasks(c *gin.Context) {
	tasks, err := h.deps.Tasks.Latest(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.resources(tasks))
}

// GET /api/tasks/deleted?search=&page=&per_page=
func (h *handlers) deletedTasks(c *gin.Context) {
	page, err := h.deps.Tasks.ListTrashed(c.Request.Context(), auth.UserID(c),
		c.Query("search"), queryInt(c, "page"), queryInt(c, "per_page"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.page(page))
}

func (h *handlers) taskStats(c *gin.Context) {
	stats, err := h.deps.Tasks.Stats(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GET /api/tasks/calendar?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *handlers) calendar(c *gin.Context) {
	tasks, err := h.deps.Tasks.Calendar(c.Request.Context(), auth.UserID(c), c.Query("from"), c.Query("to"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.resources(tasks))
}

func (h *handlers) createTask(c *gin.Context) {
	in, closeFile, err := readTaskInput(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer closeFile()

	task, err := h.deps.Tasks.Create(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.resource(*task))
}

func (h *handlers) showTask(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	task, err := h.deps.Tasks.Get(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.resource(*task))
}

func (h *handlers) updateTask(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	in, closeFile, err := readTaskInput(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer closeFile()

	task, err := h.deps.Tasks.Update(c.Request.Context(), auth.UserID(c), id, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.resource(*task))
}

func (h *handlers) deleteTask(c *gin.Context) {
	h.lifecycle(c, h.deps.Tasks.Delete, "Deleted")
}

func (h *handlers) restoreTask(c *gin.Context) {
	h.lifecycle(c, h.deps.Tasks.Restore, "Restored")
}

func (h *handlers) purgeTask(c *gin.Context) {
	h.lifecycle(c, h.deps.Tasks.Purge, "Permanently deleted")
}

func (h *handlers) lifecycle(c *gin.Context, op func(context.Context, *uint, uint) error, done string) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := op(c.Request.Context(), auth.UserID(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": done})
}

// readTaskInput accepts multipart, urlencoded and JSON bodies. Only keys that
// are present end up in the input; a JSON null counts as an empty string.
// The returned func closes an uploaded file.
func readTaskInput(c *gin.Context) (service.TaskInput, func(), error) {
	noop := func() {}
	contentType := c.ContentType()

	switch {
	case contentType == "multipart/form-data":
		form, err := c.MultipartForm()
		if err != nil {
			return service.TaskInput{}, noop, badRequest("invalid multipart body")
		}
		in := formInput(form.Value)
		files := form.File["attachment"]
		if len(files) == 0 || files[0].Filename == "" {
			return in, noop, nil
		}
		att, closeFile, err := openAttachment(files[0])
		if err != nil {
			return service.TaskInput{}, noop, err
		}
		in.Attachment = att
		return in, closeFile, nil

	case contentType == "application/x-www-form-urlencoded":
		if err := c.Request.ParseForm(); err != nil {
			return service.TaskInput{}, noop, badRequest("invalid form body")
		}
		return formInput(c.Request.PostForm), noop, nil

	default:
		var body map[string]*string
		if err := json.NewDecoder(c.Request.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return service.TaskInput{}, noop, badRequest("invalid JSON body")
		}
		field := func(key string) *string {
			v, ok := body[key]
			if !ok {
				return nil
			}
			if v == nil {
				empty := ""
				return &empty
			}
			return v
		}
		return service.TaskInput{
			Title:       field("title"),
			Description: field("description"),
			Status:      field("status"),
			Category:    field("category"),
			DueDate:     field("due_date"),
		}, noop, nil
	}
}

func formInput(values map[string][]string) service.TaskInput {
	field := func(key string) *string {
		v, ok := values[key]
		if !ok {
			return nil
		}
		s := ""
		if len(v) > 0 {
			s = v[0]
		}
		return &s
	}
	return service.TaskInput{
		Title:       field("title"),
		Description: field("description"),
		Status:      field("status"),
		Category:    field("category"),
		DueDate:     field("due_date"),
	}
}

func openAttachment(fh *multipart.FileHeader) (*service.Attachment, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, badRequest("unreadable attachment")
	}
	return &service.Attachment{Name: fh.Filename, Size: fh.Size, Content: f}, func() { _ = f.Close() }, nil
}

func pathID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		return 0, errs.ErrNotFound
	}
	return uint(id), nil
}

// queryInt reads an integer query parameter; anything unparsable is 0.
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return 0
	}
	return n
}
