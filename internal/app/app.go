package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/studytrack/internal/keys"
	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/session"
	"github.com/nhle/studytrack/internal/store"
	appsync "github.com/nhle/studytrack/internal/sync"
	"github.com/nhle/studytrack/internal/theme"
	"github.com/nhle/studytrack/internal/ui"
	helpview "github.com/nhle/studytrack/internal/ui/help"
	"github.com/nhle/studytrack/internal/ui/tasklist"
)

// ViewState represents the current interaction mode of the dashboard.
type ViewState int

const (
	ViewList ViewState = iota
	ViewAdd
	ViewEdit
	ViewConfirmDelete
	ViewHelp
)

// noteTTL is how long a notification stays in the status bar.
const noteTTL = 4 * time.Second

// Model is the root Bubble Tea model of the dashboard. It renders the
// snapshots published by the session's stores and turns key presses into
// store actions.
type Model struct {
	currentView ViewState
	layout      ui.Layout
	sess        *session.Session
	poller      *appsync.Poller
	keys        *keys.KeyMap
	taskList    tasklist.Model
	input       textinput.Model
	spinner     spinner.Model
	help        help.Model
	helpView    helpview.Model
	now         func() time.Time

	category int
	tasks    store.TaskState
	goals    store.GoalState

	taskCh  <-chan store.TaskState
	goalCh  <-chan store.GoalState
	noteCh  <-chan model.Notification
	cancels []func()

	note             *model.Notification
	editingID        string
	authErrorMessage string
	ready            bool
}

// New creates the dashboard for sess. The poller should already have the
// session's stores registered.
func New(sess *session.Session, p *appsync.Poller) Model {
	k := keys.DefaultKeyMap()

	in := textinput.New()
	in.CharLimit = 200
	in.Prompt = "> "

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorYellow)

	taskCh, cancelTasks := sess.Tasks.Subscribe()
	goalCh, cancelGoals := sess.Goals.Subscribe()
	noteCh, cancelNotes := sess.Notifications()

	return Model{
		currentView: ViewList,
		layout:      ui.NewLayout(80, 24),
		sess:        sess,
		poller:      p,
		keys:        k,
		taskList:    tasklist.New(k, 80, 20),
		input:       in,
		spinner:     sp,
		help:        help.New(),
		helpView:    helpview.New(k, 80),
		now:         time.Now,
		tasks:       sess.Tasks.State(),
		goals:       sess.Goals.State(),
		taskCh:      taskCh,
		goalCh:      goalCh,
		noteCh:      noteCh,
		cancels:     []func(){cancelTasks, cancelGoals, cancelNotes},
	}
}

// Init starts listening to the store feeds and the poller.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		appsync.WatchTasks(m.taskCh),
		appsync.WatchGoals(m.goalCh),
		appsync.WatchNotifications(m.noteCh),
		m.poller.Start(),
		m.spinner.Tick,
	)
}

// Update handles messages and dispatches to the active mode.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		m.help.Width = msg.Width
		m.helpView.SetWidth(m.layout.ContentWidth())
		m.input.Width = msg.Width - 4
		m.taskList.SetSize(m.layout.ContentWidth(), m.listHeight())
		return m, nil

	case appsync.TasksMsg:
		m.tasks = store.TaskState(msg)
		cmd := m.taskList.SetTasks(m.tasks.ByCategory(m.activeCategory()))
		return m, tea.Batch(cmd, appsync.WatchTasks(m.taskCh))

	case appsync.GoalsMsg:
		m.goals = store.GoalState(msg)
		return m, appsync.WatchGoals(m.goalCh)

	case appsync.NotificationMsg:
		n := model.Notification(msg)
		m.note = &n
		return m, tea.Batch(
			appsync.WatchNotifications(m.noteCh),
			clearNoteAfter(n.ID, noteTTL),
		)

	case clearNoteMsg:
		if m.note != nil && m.note.ID == msg.id {
			m.note = nil
		}
		return m, nil

	case appsync.SyncResultMsg:
		if msg.AuthError != nil {
			m.authErrorMessage = msg.AuthError.Message
		} else if msg.Error == nil {
			m.authErrorMessage = ""
		}
		return m, m.poller.WaitForNextResult()

	case actionDoneMsg:
		// Outcomes arrive as notifications; nothing else to do.
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		switch m.currentView {
		case ViewAdd, ViewEdit:
			return m.updateInput(msg)
		case ViewConfirmDelete:
			return m.updateConfirm(msg)
		case ViewHelp:
			if key.Matches(msg, m.keys.Help, m.keys.Back) {
				m.currentView = ViewList
			}
			return m, nil
		default:
			return m.updateList(msg)
		}
	}

	return m, nil
}

// updateList handles keys while browsing tasks.
func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, m.quit()

	case key.Matches(msg, m.keys.Help):
		m.currentView = ViewHelp
		return m, nil

	case key.Matches(msg, m.keys.NextCategory):
		m.category = (m.category + 1) % len(model.Categories)
		return m, m.taskList.SetTasks(m.tasks.ByCategory(m.activeCategory()))

	case key.Matches(msg, m.keys.PrevCategory):
		m.category = (m.category + len(model.Categories) - 1) % len(model.Categories)
		return m, m.taskList.SetTasks(m.tasks.ByCategory(m.activeCategory()))

	case key.Matches(msg, m.keys.Refresh):
		m.poller.RefreshAll()
		return m, nil

	case key.Matches(msg, m.keys.Add):
		m.currentView = ViewAdd
		m.input.Reset()
		m.input.Placeholder = "New " + m.activeCategory().Label() + " task"
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Edit):
		t, ok := m.taskList.SelectedTask()
		if !ok || t.Provisional() {
			return m, nil
		}
		m.currentView = ViewEdit
		m.editingID = t.ID
		m.input.SetValue(t.Title)
		m.input.CursorEnd()
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Toggle):
		t, ok := m.taskList.SelectedTask()
		if !ok || t.Provisional() {
			return m, nil
		}
		return m, m.toggleTask(t.ID)

	case key.Matches(msg, m.keys.Delete):
		t, ok := m.taskList.SelectedTask()
		if !ok || t.Provisional() {
			return m, nil
		}
		m.editingID = t.ID
		m.currentView = ViewConfirmDelete
		return m, nil

	case key.Matches(msg, m.keys.RaiseTarget):
		g := m.currentGoal()
		return m, m.setTarget(g.Category, g.DailyTarget+1)

	case key.Matches(msg, m.keys.LowerTarget):
		g := m.currentGoal()
		if g.DailyTarget <= 1 {
			return m, nil
		}
		return m, m.setTarget(g.Category, g.DailyTarget-1)
	}

	var cmd tea.Cmd
	m.taskList, cmd = m.taskList.Update(msg)
	return m, cmd
}

// updateInput handles keys while the title input is focused.
func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.currentView = ViewList
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		title := strings.TrimSpace(m.input.Value())
		view := m.currentView
		m.currentView = ViewList
		m.input.Blur()
		if title == "" {
			return m, nil
		}
		if view == ViewAdd {
			return m, m.addTask(title, m.activeCategory())
		}
		return m, m.editTask(m.editingID, title)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// updateConfirm handles the delete confirmation prompt.
func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.currentView = ViewList
	switch msg.String() {
	case "y", "Y", "enter":
		return m, m.deleteTask(m.editingID)
	}
	return m, nil
}

// quit releases the feed subscriptions and stops polling.
func (m Model) quit() tea.Cmd {
	for _, cancel := range m.cancels {
		cancel()
	}
	m.poller.Stop()
	return tea.Quit
}

func (m Model) activeCategory() model.Category {
	return model.Categories[m.category]
}

func (m Model) currentGoal() model.Goal {
	return m.goals.Goal(m.activeCategory())
}

// listHeight is the content height minus the goal panel and input line.
func (m Model) listHeight() int {
	h := m.layout.ContentHeight() - goalPanelHeight - 1
	if h < 1 {
		return 1
	}
	return h
}

// View renders the full dashboard using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.syncStatus())
	tabs := m.layout.RenderTabs(m.activeCategory(), m.tabLabel)
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.statusNote())

	return m.layout.RenderWithFrame(header, tabs, m.renderContent(), statusBar)
}

func (m Model) headerTitle() string {
	if m.tasks.UserID == "" {
		return "Study Tracker"
	}
	return fmt.Sprintf("Study Tracker · %s", m.tasks.UserID)
}

func (m Model) tabLabel(c model.Category) string {
	return fmt.Sprintf("%s %d/%d", c.Label(), m.tasks.CompletedCount(c), m.tasks.TotalCount(c))
}

// renderContent returns the rendered string for the current mode.
func (m Model) renderContent() string {
	if m.currentView == ViewHelp {
		return m.helpView.View()
	}

	panel := m.renderGoalPanel()

	var line string
	switch m.currentView {
	case ViewAdd, ViewEdit:
		line = m.input.View()
	case ViewConfirmDelete:
		title := m.editingID
		if t, ok := m.tasks.Find(m.editingID); ok {
			title = t.Title
		}
		line = lipgloss.NewStyle().Foreground(theme.ColorRed).
			Render(fmt.Sprintf("Delete %q? (y/N)", title))
	case ViewList:
		if m.tasks.Err != nil && !m.tasks.Ready {
			line = theme.NotificationStyle(model.LevelError).
				Render("Could not load tasks: " + m.tasks.Err.Error())
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, panel, m.taskList.View(), line)
}

// syncStatus returns a short string describing the combined sync state.
func (m Model) syncStatus() string {
	if m.tasks.Loading || m.goals.Loading {
		return m.spinner.View() + " syncing"
	}

	var failed []string
	var last time.Time
	for _, s := range m.poller.GetStatuses() {
		switch s.State {
		case appsync.SyncRunning:
			return m.spinner.View() + " syncing"
		case appsync.SyncError:
			failed = append(failed, string(s.Resource))
		}
		if s.LastSync.After(last) {
			last = s.LastSync
		}
	}

	if len(failed) > 0 {
		return "⚠ offline: " + strings.Join(failed, ", ")
	}
	if !last.IsZero() {
		return "synced " + last.Format("15:04")
	}
	if m.tasks.Ready {
		return "up to date"
	}
	return "idle"
}

// statusNote returns the notification shown in the status bar, if any.
func (m Model) statusNote() *model.Notification {
	if m.note != nil {
		return m.note
	}
	if m.authErrorMessage != "" {
		return &model.Notification{Level: model.LevelError, Title: "Session", Message: m.authErrorMessage}
	}
	return nil
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewAdd, ViewEdit:
		return "enter save | esc cancel"
	case ViewConfirmDelete:
		return "y delete | any key cancel"
	default:
		m.help.ShowAll = false
		return m.help.View(m.keys)
	}
}
