package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/nhle/studytrack/internal/model"
)

const goalsPath = "/api/goals/"

// ListGoals fetches every goal owned by the session user.
func (c *Client) ListGoals(ctx context.Context) ([]model.Goal, error) {
	var raw json.RawMessage
	if err := c.get(ctx, goalsPath, &raw); err != nil {
		return nil, err
	}

	items, err := decodeList[Goal](raw)
	if err != nil {
		return nil, fmt.Errorf("decoding goal list: %w", err)
	}

	goals := make([]model.Goal, 0, len(items))
	for _, item := range items {
		goals = append(goals, item.ToModel())
	}
	return goals, nil
}

// CreateGoal creates the goal for category with the given daily target.
func (c *Client) CreateGoal(ctx context.Context, category model.Category, dailyTarget int) (model.Goal, error) {
	var created Goal
	body := goalCreate{Category: category, DailyTarget: dailyTarget}
	if err := c.post(ctx, goalsPath, body, &created); err != nil {
		return model.Goal{}, err
	}
	return created.ToModel(), nil
}

// UpdateGoal changes the daily target of goal id.
func (c *Client) UpdateGoal(ctx context.Context, id string, dailyTarget int) (model.Goal, error) {
	var updated Goal
	path := goalsPath + url.PathEscape(id) + "/"
	if err := c.patch(ctx, path, goalPatch{DailyTarget: dailyTarget}, &updated); err != nil {
		return model.Goal{}, err
	}
	return updated.ToModel(), nil
}
