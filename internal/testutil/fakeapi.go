package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

// RecordedRequest is a request seen by FakeAPI.
type RecordedRequest struct {
	Method    string
	Path      string
	CSRFToken string
	Referer   string
	Cookies   map[string]string
	Body      map[string]interface{}
}

// FakeAPI is an in-memory stand-in for the study tracker REST API, served
// over httptest. Task ids are numeric, as issued by the real backend.
type FakeAPI struct {
	Server *httptest.Server

	mu       sync.Mutex
	nextID   int
	tasks    map[string]map[string]interface{}
	order    []string
	goals    map[string]map[string]interface{}
	requests []RecordedRequest
	failures map[string]int
	retry    map[string][]int
	now      time.Time
}

// NewFakeAPI starts a fake API server that is shut down with the test.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		nextID:   1,
		tasks:    make(map[string]map[string]interface{}),
		goals:    make(map[string]map[string]interface{}),
		failures: make(map[string]int),
		retry:    make(map[string][]int),
		now:      time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(f.record, f.inject)

	e.GET("/api/tasks/", f.listTasks)
	e.POST("/api/tasks/", f.createTask)
	e.PATCH("/api/tasks/:id/", f.updateTask)
	e.DELETE("/api/tasks/:id/", f.deleteTask)
	e.GET("/api/goals/", f.listGoals)
	e.POST("/api/goals/", f.createGoal)
	e.PATCH("/api/goals/:id/", f.updateGoal)

	f.Server = httptest.NewServer(e)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the server base URL.
func (f *FakeAPI) URL() string {
	return f.Server.URL
}

// Fail makes every request matching "METHOD /path" answer with status.
// Pass 0 to clear it. The path is the route pattern, e.g. "PATCH /api/tasks/:id/".
func (f *FakeAPI) Fail(route string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.failures, route)
		return
	}
	f.failures[route] = status
}

// QueueStatuses answers the next requests on route with the given statuses
// before falling through to the normal handler.
func (f *FakeAPI) QueueStatuses(route string, statuses ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retry[route] = append(f.retry[route], statuses...)
}

// SeedTask stores a task as if it had been created earlier and returns its id.
func (f *FakeAPI) SeedTask(title, category string, completed bool) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := strconv.Itoa(f.nextID)
	f.nextID++
	f.tasks[id] = f.taskDoc(id, map[string]interface{}{
		"title":     title,
		"category":  category,
		"completed": completed,
	})
	f.order = append([]string{id}, f.order...)
	return id
}

// SeedGoal stores a goal with a server-computed streak.
func (f *FakeAPI) SeedGoal(category string, dailyTarget, weeklyStreak int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := strconv.Itoa(f.nextID)
	f.nextID++
	f.goals[id] = map[string]interface{}{
		"id":                          f.nextID - 1,
		"category":                    category,
		"daily_target":                dailyTarget,
		"weekly_streak":               weeklyStreak,
		"current_week_days_completed": []int{0, 1},
		"last_completed_date":         "2024-03-05",
		"streak_started_at":           nil,
	}
	return id
}

// Requests returns a copy of every request received so far.
func (f *FakeAPI) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// TaskCount returns how many tasks the server holds.
func (f *FakeAPI) TaskCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

func (f *FakeAPI) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		rec := RecordedRequest{
			Method:    req.Method,
			Path:      req.URL.Path,
			CSRFToken: req.Header.Get("X-CSRFToken"),
			Referer:   req.Header.Get("Referer"),
			Cookies:   make(map[string]string),
		}
		for _, cookie := range req.Cookies() {
			rec.Cookies[cookie.Name] = cookie.Value
		}
		if req.Body != nil && req.Method != http.MethodGet {
			body := make(map[string]interface{})
			if err := json.NewDecoder(req.Body).Decode(&body); err == nil {
				rec.Body = body
			}
			c.Set("body", body)
		}

		f.mu.Lock()
		f.requests = append(f.requests, rec)
		f.mu.Unlock()
		return next(c)
	}
}

func (f *FakeAPI) inject(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		route := c.Request().Method + " " + c.Path()

		f.mu.Lock()
		status, failing := f.failures[route]
		var queued int
		if q := f.retry[route]; len(q) > 0 {
			queued, f.retry[route] = q[0], q[1:]
		}
		f.mu.Unlock()

		if queued != 0 {
			if queued == http.StatusTooManyRequests {
				c.Response().Header().Set("Retry-After", "0")
			}
			return c.JSON(queued, map[string]string{"detail": http.StatusText(queued)})
		}
		if failing {
			return c.JSON(status, map[string]string{"detail": "injected failure"})
		}
		return next(c)
	}
}

func body(c echo.Context) map[string]interface{} {
	if b, ok := c.Get("body").(map[string]interface{}); ok {
		return b
	}
	return map[string]interface{}{}
}

func (f *FakeAPI) taskDoc(id string, fields map[string]interface{}) map[string]interface{} {
	n, _ := strconv.Atoi(id)
	doc := map[string]interface{}{
		"id":          n,
		"title":       "",
		"completed":   false,
		"category":    "dsa",
		"description": "",
		"priority":    1,
		"tags":        []string{},
		"progress":    0,
		"created_at":  f.now.Format(time.RFC3339Nano),
		"updated_at":  f.now.Format(time.RFC3339Nano),
		"due_date":    nil,
	}
	for k, v := range fields {
		doc[k] = v
	}
	return doc
}

func (f *FakeAPI) listTasks(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]interface{}, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.tasks[id])
	}
	return c.JSON(http.StatusOK, out)
}

func (f *FakeAPI) createTask(c echo.Context) error {
	b := body(c)
	if title, _ := b["title"].(string); title == "" {
		return c.JSON(http.StatusBadRequest, map[string][]string{"title": {"This field may not be blank."}})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	id := strconv.Itoa(f.nextID)
	f.nextID++
	doc := f.taskDoc(id, b)
	f.tasks[id] = doc
	f.order = append([]string{id}, f.order...)
	return c.JSON(http.StatusCreated, doc)
}

func (f *FakeAPI) updateTask(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.tasks[c.Param("id")]
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"detail": "Not found."})
	}
	for k, v := range body(c) {
		doc[k] = v
	}
	doc["updated_at"] = f.now.Add(time.Minute).Format(time.RFC3339Nano)
	return c.JSON(http.StatusOK, doc)
}

func (f *FakeAPI) deleteTask(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := c.Param("id")
	if _, ok := f.tasks[id]; !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"detail": "Not found."})
	}
	delete(f.tasks, id)
	for i, oid := range f.order {
		if oid == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return c.NoContent(http.StatusNoContent)
}

func (f *FakeAPI) listGoals(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.goals))
	for id := range f.goals {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.goals[id])
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"results": out})
}

func (f *FakeAPI) createGoal(c echo.Context) error {
	b := body(c)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.goals {
		if g["category"] == b["category"] {
			return c.JSON(http.StatusBadRequest, map[string][]string{"category": {"Goal already exists."}})
		}
	}
	id := strconv.Itoa(f.nextID)
	f.nextID++
	doc := map[string]interface{}{
		"id":                          id,
		"category":                    b["category"],
		"daily_target":                b["daily_target"],
		"weekly_streak":               0,
		"current_week_days_completed": []int{},
		"last_completed_date":         nil,
		"streak_started_at":           nil,
	}
	f.goals[id] = doc
	return c.JSON(http.StatusCreated, doc)
}

func (f *FakeAPI) updateGoal(c echo.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.goals[c.Param("id")]
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"detail": "Not found."})
	}
	if target, ok := body(c)["daily_target"]; ok {
		doc["daily_target"] = target
	}
	return c.JSON(http.StatusOK, doc)
}
