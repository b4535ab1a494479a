package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/studytrack/internal/cache"
	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/store"
	"github.com/nhle/studytrack/internal/testutil"
)

func newGoalStore(t *testing.T, api *fakeGoalAPI) (*store.GoalStore, *cache.Cache, *recorder) {
	t.Helper()
	c := testutil.NewTestCache(t)
	rec := &recorder{}
	s := store.NewGoalStore(api, c, store.WithNotifier(rec))
	s.Reset("alice")
	return s, c, rec
}

func serverGoal(id string, c model.Category, target, streak int) model.Goal {
	g := model.DefaultGoal(c)
	g.ID = id
	g.DailyTarget = target
	g.WeeklyStreak = streak
	g.CurrentWeekDaysCompleted = []int{0, 2}
	return g
}

func TestGetSynthesizesDefaultGoal(t *testing.T) {
	s, _, _ := newGoalStore(t, &fakeGoalAPI{})

	g := s.Get(model.CategoryDevelopment)
	assert.Equal(t, model.CategoryDevelopment, g.Category)
	assert.Equal(t, 3, g.DailyTarget)
	assert.Equal(t, 0, g.WeeklyStreak)
	assert.Empty(t, g.CurrentWeekDaysCompleted)
	assert.False(t, g.Persisted())

	goals := s.Goals()
	require.Len(t, goals, len(model.Categories))
	for i, c := range model.Categories {
		assert.Equal(t, c, goals[i].Category)
	}
}

func TestUpdateCreatesThenPatches(t *testing.T) {
	api := &fakeGoalAPI{}
	s, _, rec := newGoalStore(t, api)
	ctx := context.Background()
	others := map[model.Category]model.Goal{}
	for _, c := range model.Categories {
		if c != model.CategoryDSA {
			others[c] = s.Get(c)
		}
	}

	g, err := s.Update(ctx, model.CategoryDSA, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, g.DailyTarget)
	assert.Equal(t, 5, s.Get(model.CategoryDSA).DailyTarget)
	for c, before := range others {
		assert.Equal(t, before, s.Get(c))
	}

	n := rec.last()
	assert.Equal(t, "Goal updated", n.Title)
	assert.Equal(t, "DSA daily goal set to 5 tasks", n.Message)

	_, err = s.Update(ctx, model.CategoryDSA, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Get(model.CategoryDSA).DailyTarget)
	assert.Equal(t, []string{"create", "update:g1"}, api.operations())
}

func TestUpdateFailureLeavesStateUnchanged(t *testing.T) {
	api := &fakeGoalAPI{goals: []model.Goal{serverGoal("7", model.CategoryDSA, 4, 2)}}
	s, _, rec := newGoalStore(t, api)
	ctx := context.Background()
	require.NoError(t, s.Refresh(ctx))

	ch, cancel := s.Subscribe()
	defer cancel()
	<-ch

	api.setFail(errNetwork)
	_, err := s.Update(ctx, model.CategoryDSA, 9)
	require.ErrorIs(t, err, errNetwork)
	assert.Equal(t, 4, s.Get(model.CategoryDSA).DailyTarget)
	assert.Equal(t, "Failed to update goal: network down", rec.last().Message)

	select {
	case <-ch:
		t.Fatal("failed update must not publish")
	default:
	}
}

func TestUpdateValidation(t *testing.T) {
	api := &fakeGoalAPI{}
	s, _, _ := newGoalStore(t, api)
	ctx := context.Background()

	_, err := s.Update(ctx, model.CategoryDSA, 0)
	assert.ErrorIs(t, err, store.ErrValidation)
	_, err = s.Update(ctx, model.Category("cooking"), 3)
	assert.ErrorIs(t, err, store.ErrValidation)
	assert.Empty(t, api.operations())
}

func TestLoadFallsBackToCache(t *testing.T) {
	api := &fakeGoalAPI{fail: errNetwork}
	s, c, _ := newGoalStore(t, api)
	ctx := context.Background()
	require.NoError(t, c.SaveGoals(ctx, "alice", []model.Goal{serverGoal("3", model.CategoryJobSearch, 1, 4)}))

	err := s.Load(ctx)
	require.ErrorIs(t, err, errNetwork)
	assert.Equal(t, 1, s.Get(model.CategoryJobSearch).DailyTarget)
	assert.ErrorIs(t, s.State().Err, errNetwork)
	assert.True(t, s.State().Ready)
}

func TestLoadFailureWithoutCacheLeavesDefaults(t *testing.T) {
	s, _, _ := newGoalStore(t, &fakeGoalAPI{fail: errNetwork})

	require.Error(t, s.Load(context.Background()))
	assert.Equal(t, 3, s.Get(model.CategoryDSA).DailyTarget)
	assert.Empty(t, s.State().Goals)
}

func TestLoadIndexesByCategory(t *testing.T) {
	api := &fakeGoalAPI{goals: []model.Goal{
		serverGoal("1", model.CategorySystemDesign, 2, 1),
		serverGoal("2", model.Category("cooking"), 2, 1),
	}}
	s, _, _ := newGoalStore(t, api)

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, "1", s.Get(model.CategorySystemDesign).ID)
	require.Len(t, s.State().Goals, 1)
}

func TestStreakPlaceholderUntilServerValue(t *testing.T) {
	api := &fakeGoalAPI{}
	s, _, _ := newGoalStore(t, api)
	ctx := context.Background()

	// Wednesday 2024-03-06; the previous week was fully satisfied.
	now := time.Date(2024, 3, 6, 18, 0, 0, 0, time.UTC)
	history := map[model.Date]int{}
	for d := model.DateOf(now).WeekStart().AddDays(-7); d.Before(model.DateOf(now).AddDays(1)); d = d.AddDays(1) {
		history[d] = 3
	}

	view := s.Streak(model.CategoryDSA, history, now)
	assert.Equal(t, store.StreakPlaceholder, view.Source)
	assert.Equal(t, 1, view.Value)
	assert.Equal(t, []int{0, 1, 2}, view.DaysCompleted)

	api.goals = []model.Goal{serverGoal("1", model.CategoryDSA, 3, 0)}
	require.NoError(t, s.Refresh(ctx))

	view = s.Streak(model.CategoryDSA, history, now)
	assert.Equal(t, store.StreakServer, view.Source)
	assert.Equal(t, 0, view.Value)
	assert.Equal(t, []int{0, 2}, view.DaysCompleted)

	api.setFail(errNetwork)
	require.Error(t, s.Refresh(ctx))
	view = s.Streak(model.CategoryDSA, history, now)
	assert.Equal(t, store.StreakServer, view.Source, "server value never reverts to placeholder")

	s.Reset("bob")
	view = s.Streak(model.CategoryDSA, history, now)
	assert.Equal(t, store.StreakPlaceholder, view.Source)
}

func TestStreakServerAfterCreate(t *testing.T) {
	s, _, _ := newGoalStore(t, &fakeGoalAPI{})
	_, err := s.Update(context.Background(), model.CategoryDevelopment, 4)
	require.NoError(t, err)

	view := s.Streak(model.CategoryDevelopment, nil, time.Now())
	assert.Equal(t, store.StreakServer, view.Source)
	assert.Equal(t, "server", view.Source.String())
}
