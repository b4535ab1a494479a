package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nhle/studytrack/internal/model"
)

// flexID decodes identifiers sent either as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*f = flexID(strconv.FormatInt(i, 10))
		return nil
	}
	*f = flexID(n.String())
	return nil
}

// Task is the server representation of a study task.
type Task struct {
	ID          flexID     `json:"id"`
	Title       string     `json:"title"`
	Completed   bool       `json:"completed"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Priority    int        `json:"priority"`
	Tags        []string   `json:"tags"`
	Progress    int        `json:"progress"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DueDate     *time.Time `json:"due_date"`
}

// ToModel converts the server task into the domain type.
func (t Task) ToModel() model.Task {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return model.Task{
		ID:          string(t.ID),
		Title:       t.Title,
		Completed:   t.Completed,
		Category:    model.Category(t.Category),
		Description: t.Description,
		Priority:    t.Priority,
		Tags:        tags,
		Progress:    t.Progress,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		DueDate:     t.DueDate,
	}
}

// Goal is the server representation of a per-category goal.
type Goal struct {
	ID                       flexID      `json:"id"`
	Category                 string      `json:"category"`
	DailyTarget              int         `json:"daily_target"`
	WeeklyStreak             int         `json:"weekly_streak"`
	CurrentWeekDaysCompleted []int       `json:"current_week_days_completed"`
	LastCompletedDate        *model.Date `json:"last_completed_date"`
	StreakStartedAt          *model.Date `json:"streak_started_at"`
}

// ToModel converts the server goal into the domain type.
func (g Goal) ToModel() model.Goal {
	return model.Goal{
		ID:                       string(g.ID),
		Category:                 model.Category(g.Category),
		DailyTarget:              g.DailyTarget,
		WeeklyStreak:             g.WeeklyStreak,
		CurrentWeekDaysCompleted: model.NormalizeWeekdays(g.CurrentWeekDaysCompleted),
		LastCompletedDate:        g.LastCompletedDate,
		StreakStartedAt:          g.StreakStartedAt,
	}
}

// goalCreate is the body of POST /api/goals/.
type goalCreate struct {
	Category    model.Category `json:"category"`
	DailyTarget int            `json:"daily_target"`
}

// goalPatch is the body of PATCH /api/goals/{id}/.
type goalPatch struct {
	DailyTarget int `json:"daily_target"`
}

// listEnvelope matches paginated list responses ({"results": [...]}).
// Plain arrays are accepted too.
type listEnvelope[T any] struct {
	Results []T `json:"results"`
}

func decodeList[T any](data []byte) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []T{}, nil
	}
	if data[0] == '{' {
		var env listEnvelope[T]
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, err
		}
		if env.Results == nil {
			return []T{}, nil
		}
		return env.Results, nil
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
