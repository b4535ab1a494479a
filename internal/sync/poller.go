package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/studytrack/internal/api"
	"github.com/nhle/studytrack/internal/logger"
)

// Resource names a collection revalidated against the server.
type Resource string

const (
	ResourceTasks Resource = "tasks"
	ResourceGoals Resource = "goals"
)

// SyncState represents the current state of a revalidation.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncRunning:
		return "syncing"
	case SyncError:
		return "error"
	default:
		return "idle"
	}
}

// SyncStatus holds the sync state for a single resource.
type SyncStatus struct {
	Resource Resource
	State    SyncState
	LastSync time.Time
	Error    error
}

// SyncResultMsg is a tea.Msg sent when a revalidation completes.
type SyncResultMsg struct {
	Resource  Resource
	Error     error
	AuthError *AuthErrorMsg
}

// AuthErrorMsg is a tea.Msg sent when the server rejects the session.
type AuthErrorMsg struct {
	Resource Resource
	Message  string
}

// Refresher reloads a collection from the server.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// fetchTimeout is the maximum time allowed for a single refresh.
const fetchTimeout = 30 * time.Second

// defaultInterval applies when the configured interval is not positive.
const defaultInterval = 60 * time.Second

type entry struct {
	resource  Resource
	refresher Refresher
	trigger   chan struct{}
}

// Poller periodically revalidates registered stores against the server.
// The session performs the first load, so polling starts after one interval.
type Poller struct {
	interval time.Duration
	entries  []*entry
	statuses map[Resource]*SyncStatus
	resultCh chan SyncResultMsg
	stopCh   chan struct{}
	wg       gosync.WaitGroup
	mu       gosync.Mutex
	running  bool
}

// New creates a Poller that refreshes every interval.
func New(interval time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Poller{
		interval: interval,
		statuses: make(map[Resource]*SyncStatus),
		resultCh: make(chan SyncResultMsg, 16),
		stopCh:   make(chan struct{}),
	}
}

// Register adds a store to revalidate. It must be called before Start.
func (p *Poller) Register(res Resource, r Refresher) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries = append(p.entries, &entry{
		resource:  res,
		refresher: r,
		trigger:   make(chan struct{}, 1),
	})
	p.statuses[res] = &SyncStatus{Resource: res, State: SyncIdle}
}

// Start launches one polling goroutine per resource and returns a tea.Cmd
// that waits for the first result.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	entries := append([]*entry(nil), p.entries...)
	p.mu.Unlock()

	for _, e := range entries {
		p.wg.Add(1)
		go p.poll(e)
	}

	return p.WaitForNextResult()
}

// Stop halts all polling goroutines and waits for them to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
}

// RefreshAll triggers an immediate refresh of every resource.
func (p *Poller) RefreshAll() {
	p.mu.Lock()
	entries := append([]*entry(nil), p.entries...)
	p.mu.Unlock()

	for _, e := range entries {
		select {
		case e.trigger <- struct{}{}:
		default:
			// A refresh is already queued.
		}
	}
}

// Refresh triggers an immediate refresh of a single resource.
func (p *Poller) Refresh(res Resource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries {
		if e.resource != res {
			continue
		}
		select {
		case e.trigger <- struct{}{}:
		default:
		}
	}
}

// GetStatuses returns the current status of every resource in
// registration order.
func (p *Poller) GetStatuses() []SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	statuses := make([]SyncStatus, 0, len(p.entries))
	for _, e := range p.entries {
		statuses = append(statuses, *p.statuses[e.resource])
	}
	return statuses
}

func (p *Poller) poll(e *entry) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.refresh(e)
		case <-e.trigger:
			p.refresh(e)
		}
	}
}

// refresh runs a single revalidation and reports its outcome.
func (p *Poller) refresh(e *entry) {
	p.setStatus(e.resource, SyncRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	err := e.refresher.Refresh(ctx)
	if err != nil {
		p.setStatus(e.resource, SyncError, err)
		logger.Warn("Revalidation failed",
			logger.F("resource", string(e.resource)),
			logger.F("kind", api.Classify(err).String()),
			logger.F("error", err.Error()))

		if api.IsAuthError(err) {
			p.sendResult(SyncResultMsg{
				Resource: e.resource,
				Error:    err,
				AuthError: &AuthErrorMsg{
					Resource: e.resource,
					Message:  fmt.Sprintf("%s: session expired. Run 'studytrack login' again.", e.resource),
				},
			})
			return
		}

		p.sendResult(SyncResultMsg{Resource: e.resource, Error: err})
		return
	}

	p.setStatus(e.resource, SyncIdle, nil)
	p.sendResult(SyncResultMsg{Resource: e.resource})
}

func (p *Poller) setStatus(res Resource, state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, ok := p.statuses[res]
	if !ok {
		return
	}

	status.State = state
	status.Error = err
	if state == SyncIdle && err == nil {
		status.LastSync = time.Now()
	}
}

// sendResult sends a SyncResultMsg on the result channel without blocking.
func (p *Poller) sendResult(msg SyncResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next result.
// Call it again after handling a SyncResultMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case result := <-p.resultCh:
			return result
		case <-p.stopCh:
			return nil
		}
	}
}
