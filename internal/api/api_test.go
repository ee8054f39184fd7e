package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-planner/internal/auth"
	"todo-planner/internal/repository"
	"todo-planner/internal/service"
	"todo-planner/internal/storage"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	router http.Handler
	tasks  *repository.TaskRepository
}

func newAPI(t *testing.T, authRequired bool) apiFixture {
	t.Helper()

	db, err := repository.NewDB(repository.Options{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "api.db"),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	logger, _ := test.NewNullLogger()
	files := storage.NewAttachmentStore(afero.NewMemMapFs(), "")
	tasks := repository.NewTaskRepository(db)

	router := NewRouter(Deps{
		Tasks:        service.NewTaskService(tasks, files, logger, time.UTC),
		Categories:   service.NewCategoryService(repository.NewCategoryRepository(db)),
		Files:        files,
		Verifier:     auth.NewVerifier(secret),
		DB:           sqlDB,
		Log:          logger,
		AuthRequired: authRequired,
		Timeout:      5 * time.Second,
	})
	return apiFixture{router: router, tasks: tasks}
}

func bearer(t *testing.T, userID uint) string {
	t.Helper()

	token, err := auth.Issue(secret, userID, time.Hour, time.Now())
	require.NoError(t, err)
	return "Bearer " + token
}

type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	token       string
}

func (f apiFixture) do(r request) *httptest.ResponseRecorder {
	req := httptest.NewRequest(r.method, r.path, r.body)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.token != "" {
		req.Header.Set("Authorization", r.token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func jsonBody(v any) io.Reader {
	data, _ := json.Marshal(v)
	return bytes.NewReader(data)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type taskJSON struct {
	ID             uint    `json:"id"`
	UserID         *uint   `json:"user_id"`
	Title          string  `json:"title"`
	Description    *string `json:"description"`
	Status         string  `json:"status"`
	Category       *string `json:"category"`
	DueDate        *string `json:"due_date"`
	AttachmentPath *string `json:"attachment_path"`
	AttachmentName *string `json:"attachment_name"`
	AttachmentURL  *string `json:"attachment_url"`
	DeletedAt      *string `json:"deleted_at"`
}

type pageJSON struct {
	Data        []taskJSON `json:"data"`
	CurrentPage int        `json:"current_page"`
	PerPage     int        `json:"per_page"`
	Total       int64      `json:"total"`
	LastPage    int        `json:"last_page"`
	From        *int       `json:"from"`
	To          *int       `json:"to"`
}

type errorJSON struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func (f apiFixture) createJSON(t *testing.T, token string, body map[string]any) taskJSON {
	t.Helper()

	w := f.do(request{method: http.MethodPost, path: "/api/tasks", body: jsonBody(body), contentType: "application/json", token: token})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[taskJSON](t, w)
}

func TestCreateMultipartWithAttachment(t *testing.T) {
	f := newAPI(t, true)
	token := bearer(t, 1)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"title":       "Scan passport",
		"description": "",
		"status":      "pending",
		"category":    "",
		"due_date":    "2026-10-20",
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("attachment", "passport.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := f.do(request{method: http.MethodPost, path: "/api/tasks", body: &buf, contentType: mw.FormDataContentType(), token: token})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	task := decode[taskJSON](t, w)
	assert.Equal(t, "Scan passport", task.Title)
	assert.Equal(t, "pending", task.Status)
	assert.Nil(t, task.Description)
	assert.Nil(t, task.Category)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, "2026-10-20", *task.DueDate)
	require.NotNil(t, task.UserID)
	assert.Equal(t, uint(1), *task.UserID)
	require.NotNil(t, task.AttachmentURL)
	assert.Equal(t, "/storage/"+*task.AttachmentPath, *task.AttachmentURL)
	assert.Equal(t, "passport.jpg", *task.AttachmentName)

	w = f.do(request{method: http.MethodGet, path: *task.AttachmentURL})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jpeg-bytes", w.Body.String())

	w = f.do(request{method: http.MethodGet, path: "/storage/attachments/"})
	assert.Equal(t, http.StatusNotFound, w.Code, "no directory listing")
}

func TestCreateValidationErrors(t *testing.T) {
	f := newAPI(t, true)

	w := f.do(request{
		method:      http.MethodPost,
		path:        "/api/tasks",
		body:        jsonBody(map[string]any{"status": "archived"}),
		contentType: "application/json",
		token:       bearer(t, 1),
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	body := decode[errorJSON](t, w)
	assert.Equal(t, "The selected status is invalid. (and 1 more error)", body.Message)
	assert.Equal(t, []string{"The title field is required."}, body.Errors["title"])
	assert.Equal(t, []string{"The selected status is invalid."}, body.Errors["status"])

	w = f.do(request{method: http.MethodPost, path: "/api/tasks", body: strings.NewReader("{"), contentType: "application/json", token: bearer(t, 1)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthRequired(t *testing.T) {
	f := newAPI(t, true)

	w := f.do(request{method: http.MethodGet, path: "/api/tasks"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(request{method: http.MethodGet, path: "/api/categories"})
	assert.Equal(t, http.StatusOK, w.Code, "categories are public")
}

func TestListScopedToCaller(t *testing.T) {
	f := newAPI(t, true)
	alice, bob := bearer(t, 1), bearer(t, 2)

	for i := 0; i < 7; i++ {
		f.createJSON(t, alice, map[string]any{"title": fmt.Sprintf("alice %d", i)})
	}
	f.createJSON(t, bob, map[string]any{"title": "bob"})

	w := f.do(request{method: http.MethodGet, path: "/api/tasks?page=2", token: alice})
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[pageJSON](t, w)
	assert.Equal(t, int64(7), page.Total)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, 5, page.PerPage)
	assert.Equal(t, 2, page.LastPage)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "alice 1", page.Data[0].Title)
	assert.Equal(t, 6, *page.From)
	assert.Equal(t, 7, *page.To)

	w = f.do(request{method: http.MethodGet, path: "/api/tasks?search=BOB", token: alice})
	page = decode[pageJSON](t, w)
	assert.Zero(t, page.Total)
	assert.Equal(t, 1, page.LastPage)
	assert.Nil(t, page.From)
	assert.NotNil(t, page.Data)

	w = f.do(request{method: http.MethodGet, path: "/api/tasks/latest", token: alice})
	latest := decode[[]taskJSON](t, w)
	require.Len(t, latest, 5)
	assert.Equal(t, "alice 6", latest[0].Title)
}

func TestAnonymousAccessWhenAuthOptional(t *testing.T) {
	f := newAPI(t, false)

	f.createJSON(t, bearer(t, 1), map[string]any{"title": "owned"})
	anon := f.createJSON(t, "", map[string]any{"title": "anonymous"})
	assert.Nil(t, anon.UserID)

	w := f.do(request{method: http.MethodGet, path: "/api/tasks?status=all&category=all"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), decode[pageJSON](t, w).Total)
}

func TestUpdateAndLifecycle(t *testing.T) {
	f := newAPI(t, true)
	token := bearer(t, 1)
	task := f.createJSON(t, token, map[string]any{"title": "Report", "description": "draft", "category": "Work"})
	path := fmt.Sprintf("/api/tasks/%d", task.ID)

	w := f.do(request{method: http.MethodPut, path: path, body: jsonBody(map[string]any{"status": "done", "description": nil}), contentType: "application/json", token: token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[taskJSON](t, w)
	assert.Equal(t, "done", updated.Status)
	assert.Equal(t, "Report", updated.Title)
	assert.Nil(t, updated.Description)
	require.NotNil(t, updated.Category)
	assert.Equal(t, "Work", *updated.Category)

	w = f.do(request{method: http.MethodGet, path: path, token: token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	shown := decode[taskJSON](t, w)
	assert.Equal(t, task.ID, shown.ID)
	assert.Equal(t, "done", shown.Status)

	w = f.do(request{method: http.MethodGet, path: path, token: bearer(t, 2)})
	assert.Equal(t, http.StatusNotFound, w.Code, "other owners cannot read")

	w = f.do(request{method: http.MethodPut, path: "/api/tasks/999", body: jsonBody(map[string]any{"status": "done"}), contentType: "application/json", token: token})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(request{method: http.MethodPut, path: "/api/tasks/abc", body: jsonBody(map[string]any{}), contentType: "application/json", token: token})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(request{method: http.MethodPost, path: path + "/restore", token: token})
	assert.Equal(t, http.StatusNotFound, w.Code, "active tasks cannot be restored")

	w = f.do(request{method: http.MethodDelete, path: path, token: bearer(t, 2)})
	assert.Equal(t, http.StatusNotFound, w.Code, "other owners cannot delete")

	w = f.do(request{method: http.MethodDelete, path: path, token: token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Deleted"}`, w.Body.String())

	w = f.do(request{method: http.MethodGet, path: path, token: token})
	assert.Equal(t, http.StatusNotFound, w.Code, "trashed tasks are hidden")

	w = f.do(request{method: http.MethodGet, path: "/api/tasks/deleted", token: token})
	trash := decode[pageJSON](t, w)
	require.Len(t, trash.Data, 1)
	assert.NotNil(t, trash.Data[0].DeletedAt)

	w = f.do(request{method: http.MethodPost, path: path + "/restore", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Restored"}`, w.Body.String())

	w = f.do(request{method: http.MethodDelete, path: path + "/force", token: token})
	assert.Equal(t, http.StatusNotFound, w.Code, "purge needs a trashed task")

	f.do(request{method: http.MethodDelete, path: path, token: token})
	w = f.do(request{method: http.MethodDelete, path: path + "/force", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Permanently deleted"}`, w.Body.String())

	w = f.do(request{method: http.MethodPost, path: path + "/restore", token: token})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatsAndCalendar(t *testing.T) {
	f := newAPI(t, true)
	token := bearer(t, 1)
	f.createJSON(t, token, map[string]any{"title": "a", "status": "done", "due_date": "2026-10-20"})
	f.createJSON(t, token, map[string]any{"title": "b", "due_date": "2026-11-02"})

	w := f.do(request{method: http.MethodGet, path: "/api/tasks/stats", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[service.Stats](t, w)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByStatus["done"])
	assert.Equal(t, 1, stats.ByStatus["pending"])
	assert.Equal(t, 0, stats.ByStatus["processing"])

	w = f.do(request{method: http.MethodGet, path: "/api/tasks/calendar?from=2026-10-01&to=2026-10-31", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	tasks := decode[[]taskJSON](t, w)
	require.Len(t, tasks, 1)
	assert.Equal(t, "a", tasks[0].Title)

	w = f.do(request{method: http.MethodGet, path: "/api/tasks/calendar?from=soon", token: token})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCategories(t *testing.T) {
	f := newAPI(t, true)

	w := f.do(request{method: http.MethodPost, path: "/api/categories", body: jsonBody(map[string]string{"name": "Work"}), contentType: "application/json"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Work", created.Name)

	w = f.do(request{method: http.MethodPost, path: "/api/categories", body: jsonBody(map[string]string{"name": "Work"}), contentType: "application/json"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode[errorJSON](t, w)
	assert.Equal(t, []string{"The name has already been taken."}, body.Errors["name"])

	w = f.do(request{method: http.MethodPost, path: "/api/categories", body: strings.NewReader("name=Errands"), contentType: "application/x-www-form-urlencoded"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(request{method: http.MethodPost, path: "/api/categories", contentType: "application/json"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(request{method: http.MethodGet, path: "/api/categories"})
	require.Equal(t, http.StatusOK, w.Code)
	var list []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "Errands", list[0].Name)

	w = f.do(request{method: http.MethodDelete, path: fmt.Sprintf("/api/categories/%d", created.ID)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Deleted"}`, w.Body.String())

	w = f.do(request{method: http.MethodDelete, path: fmt.Sprintf("/api/categories/%d", created.ID)})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthz(t *testing.T) {
	f := newAPI(t, true)

	w := f.do(request{method: http.MethodGet, path: "/healthz"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
