package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/nhle/studytrack/internal/model"
)

const tasksPath = "/api/tasks/"

func taskPath(id string) string {
	return tasksPath + url.PathEscape(id) + "/"
}

// ListTasks fetches every task owned by the session user.
func (c *Client) ListTasks(ctx context.Context) ([]model.Task, error) {
	var raw json.RawMessage
	if err := c.get(ctx, tasksPath, &raw); err != nil {
		return nil, err
	}

	items, err := decodeList[Task](raw)
	if err != nil {
		return nil, fmt.Errorf("decoding task list: %w", err)
	}

	tasks := make([]model.Task, 0, len(items))
	for _, item := range items {
		tasks = append(tasks, item.ToModel())
	}
	return tasks, nil
}

// CreateTask creates a task and returns the server's representation.
func (c *Client) CreateTask(ctx context.Context, draft model.TaskDraft) (model.Task, error) {
	var created Task
	if err := c.post(ctx, tasksPath, draft, &created); err != nil {
		return model.Task{}, err
	}
	return created.ToModel(), nil
}

// UpdateTask applies a partial update to task id.
func (c *Client) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	var updated Task
	if err := c.patch(ctx, taskPath(id), patch, &updated); err != nil {
		return model.Task{}, err
	}
	return updated.ToModel(), nil
}

// DeleteTask removes task id.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.delete(ctx, taskPath(id))
}
