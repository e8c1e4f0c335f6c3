// Package tui provides the interactive terminal console for the workflow
// platform.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/subnetlabs/console/internal/models"
	"github.com/subnetlabs/console/internal/timeline"
	"github.com/subnetlabs/console/pkg/logger"
)

type view int

const (
	viewDashboard view = iota
	viewWorkflows
	viewActivities
	viewQueues
	viewWorkers
	viewWorkflowDetail
	viewActivityDetail
)

var topViews = []view{viewDashboard, viewWorkflows, viewActivities, viewQueues, viewWorkers}

var viewNames = map[view]string{
	viewDashboard:      "Dashboard",
	viewWorkflows:      "Workflows",
	viewActivities:     "Activities",
	viewQueues:         "Task Queues",
	viewWorkers:        "Workers",
	viewWorkflowDetail: "Workflow",
	viewActivityDetail: "Activity",
}

// crumb is a view to return to on esc, with the detail id it showed.
type crumb struct {
	view view
	id   string
}

func (v view) isDetail() bool {
	return v == viewWorkflowDetail || v == viewActivityDetail
}

var workflowFilters = append([]models.WorkflowStatus{""}, models.WorkflowStatuses...)
var activityFilters = append([]models.ActivityStatus{""}, models.ActivityStatuses...)

// Options configures the console.
type Options struct {
	Timeline       timeline.Config
	SearchDebounce time.Duration
	NowTick        time.Duration
	RefreshEvery   time.Duration
	CellWidthPx    float64
	// SourceLabel is shown in the header, e.g. the API address.
	SourceLabel string
	Logger      *logger.Logger
	// Clock overrides time.Now.
	Clock func() time.Time
}

// DefaultOptions returns the stock console settings.
func DefaultOptions() Options {
	return Options{
		Timeline:       timeline.DefaultConfig(),
		SearchDebounce: 300 * time.Millisecond,
		NowTick:        time.Second,
		RefreshEvery:   2 * time.Second,
		CellWidthPx:    defaultCellWidthPx,
	}
}

type listState struct {
	loading bool
	err     error
	cursor  int
}

// App is the main TUI application model.
type App struct {
	src  Source
	opts Options
	log  *logger.Logger
	now  func() time.Time

	view   view
	stack  []crumb
	width  int
	height int

	lists map[view]*listState

	overview   *models.Overview
	workflows  []models.Workflow
	activities []models.Activity
	queues     []models.TaskQueue
	workers    []models.Worker

	wfFilter  int
	actFilter int
	search    *SearchBar

	detailID      string
	detailLoading bool
	detailErr     error
	workflow      *models.Workflow
	wfActivities  []models.Activity
	activity      *models.Activity
	attempts      []models.Attempt
	detailCursor  int
	tl            *TimelineView
	viewport      viewport.Model
	renderNow     time.Time
	tickGen       int
	zoomRowY      int

	stream       <-chan *models.Overview
	streamCancel context.CancelFunc
	live         bool
	message      string
}

// New creates a new console over src.
func New(src Source, opts Options) *App {
	d := DefaultOptions()
	if opts.SearchDebounce <= 0 {
		opts.SearchDebounce = d.SearchDebounce
	}
	if opts.NowTick <= 0 {
		opts.NowTick = d.NowTick
	}
	if opts.CellWidthPx <= 0 {
		opts.CellWidthPx = d.CellWidthPx
	}
	if opts.Timeline == (timeline.Config{}) {
		opts.Timeline = d.Timeline
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	lists := make(map[view]*listState)
	for _, v := range topViews {
		lists[v] = &listState{}
	}

	return &App{
		src:      src,
		opts:     opts,
		log:      log.WithComponent("tui"),
		now:      now,
		view:     viewDashboard,
		width:    100,
		height:   30,
		lists:    lists,
		search:   NewSearchBar(opts.SearchDebounce),
		tl:       NewTimelineView(opts.Timeline, opts.CellWidthPx),
		viewport: viewport.New(100, 10),
		zoomRowY: -1,
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	defer a.Close()
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

// Close stops the live overview stream.
func (a *App) Close() {
	if a.streamCancel != nil {
		a.streamCancel()
		a.streamCancel = nil
	}
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.load(viewDashboard),
		a.startStream(),
		a.refreshTickCmd(),
	)
}

// load fetches the data of a list view and shows the loading skeleton.
func (a *App) load(v view) tea.Cmd {
	if st, ok := a.lists[v]; ok {
		st.loading = true
		st.err = nil
	}
	return a.fetch(v)
}

func (a *App) fetch(v view) tea.Cmd {
	switch v {
	case viewDashboard:
		return a.fetchOverview()
	case viewWorkflows:
		return a.fetchWorkflows()
	case viewActivities:
		return a.fetchActivities()
	case viewQueues:
		return a.fetchQueues()
	case viewWorkers:
		return a.fetchWorkers()
	case viewWorkflowDetail:
		return a.fetchWorkflowDetail(a.detailID)
	case viewActivityDetail:
		return a.fetchActivityDetail(a.detailID)
	}
	return nil
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := a.update(msg)
	a.syncDetail()
	return a, cmd
}

func (a *App) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.MouseMsg:
		return a.handleMouse(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.search.SetWidth(msg.Width - 8)
		a.viewport.Width = msg.Width

	case searchDebounceMsg:
		if a.search.Settle(msg) && (a.view == viewWorkflows || a.view == viewActivities) {
			a.lists[a.view].cursor = 0
			return a.load(a.view)
		}

	case overviewLoadedMsg:
		st := a.lists[viewDashboard]
		st.loading = false
		st.err = msg.err
		if msg.err == nil {
			a.overview = msg.overview
			a.clampCursor(viewDashboard, len(a.overview.RecentWorkflows))
		}

	case workflowsLoadedMsg:
		st := a.lists[viewWorkflows]
		st.loading = false
		st.err = msg.err
		if msg.err == nil {
			a.workflows = msg.items
			a.clampCursor(viewWorkflows, len(a.workflows))
		}

	case activitiesLoadedMsg:
		st := a.lists[viewActivities]
		st.loading = false
		st.err = msg.err
		if msg.err == nil {
			a.activities = msg.items
			a.clampCursor(viewActivities, len(a.activities))
		}

	case queuesLoadedMsg:
		st := a.lists[viewQueues]
		st.loading = false
		st.err = msg.err
		if msg.err == nil {
			a.queues = msg.items
			a.clampCursor(viewQueues, len(a.queues))
		}

	case workersLoadedMsg:
		st := a.lists[viewWorkers]
		st.loading = false
		st.err = msg.err
		if msg.err == nil {
			a.workers = msg.items
			a.clampCursor(viewWorkers, len(a.workers))
		}

	case workflowDetailMsg:
		if a.view != viewWorkflowDetail || msg.id != a.detailID {
			return nil
		}
		a.detailLoading = false
		a.detailErr = msg.err
		if msg.err == nil {
			a.workflow = msg.workflow
			a.wfActivities = msg.activities
			a.tl.SetEvents(msg.events)
			a.detailCursor = clampIndex(a.detailCursor, len(a.wfActivities))
		}

	case activityDetailMsg:
		if a.view != viewActivityDetail || msg.id != a.detailID {
			return nil
		}
		a.detailLoading = false
		a.detailErr = msg.err
		if msg.err == nil {
			a.activity = msg.activity
			a.attempts = msg.attempts
			a.tl.SetEvents(msg.events)
			a.detailCursor = clampIndex(a.detailCursor, len(a.attempts))
		}

	case nowTickMsg:
		if msg.gen != a.tickGen || !a.view.isDetail() {
			return nil
		}
		a.renderNow = msg.t
		return a.nowTickCmd(a.tickGen)

	case refreshTickMsg:
		cmds := []tea.Cmd{a.refreshTickCmd()}
		if !a.search.Focused() && !(a.view == viewDashboard && a.live) && !a.tl.Dragging() {
			cmds = append(cmds, a.fetch(a.view))
		}
		return tea.Batch(cmds...)

	case streamStartedMsg:
		if msg.err != nil {
			a.log.WithError(msg.err).Debug("overview stream unavailable, polling instead")
			return nil
		}
		a.stream = msg.ch
		a.streamCancel = msg.cancel
		a.live = true
		return waitForSnapshot(a.stream)

	case streamSnapshotMsg:
		if !msg.ok {
			a.Close()
			a.live = false
			a.stream = nil
			a.log.Info("overview stream closed")
			return nil
		}
		st := a.lists[viewDashboard]
		st.loading = false
		st.err = nil
		a.overview = msg.overview
		a.clampCursor(viewDashboard, len(a.overview.RecentWorkflows))
		return waitForSnapshot(a.stream)
	}

	return nil
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}

	if a.search.Focused() {
		switch msg.String() {
		case "enter":
			a.search.Blur()
			return nil
		case "esc":
			if a.search.Clear() {
				return a.load(a.view)
			}
			return nil
		}
		return a.search.Update(msg)
	}

	a.message = ""
	switch {
	case key.Matches(msg, keys.Quit):
		return tea.Quit

	case key.Matches(msg, keys.Back):
		if a.view.isDetail() {
			return a.closeDetail()
		}
		if (a.view == viewWorkflows || a.view == viewActivities) && a.search.Clear() {
			return a.load(a.view)
		}

	case key.Matches(msg, keys.NextView):
		if !a.view.isDetail() {
			next := topViews[(int(a.view)+1)%len(topViews)]
			return a.switchView(next)
		}

	case key.Matches(msg, keys.Num1), key.Matches(msg, keys.Num2), key.Matches(msg, keys.Num3),
		key.Matches(msg, keys.Num4), key.Matches(msg, keys.Num5):
		idx := int(msg.Runes[0] - '1')
		return a.switchView(topViews[idx])

	case key.Matches(msg, keys.Up):
		a.move(-1)

	case key.Matches(msg, keys.Down):
		a.move(1)

	case key.Matches(msg, keys.Open):
		return a.open()

	case key.Matches(msg, keys.Refresh):
		if inv, ok := a.src.(CacheInvalidator); ok {
			inv.InvalidateCache()
		}
		if a.view.isDetail() {
			a.detailLoading = true
			a.detailErr = nil
			return a.fetch(a.view)
		}
		return a.load(a.view)

	case key.Matches(msg, keys.Filter):
		switch a.view {
		case viewWorkflows:
			a.wfFilter = (a.wfFilter + 1) % len(workflowFilters)
			a.lists[viewWorkflows].cursor = 0
			return a.load(viewWorkflows)
		case viewActivities:
			a.actFilter = (a.actFilter + 1) % len(activityFilters)
			a.lists[viewActivities].cursor = 0
			return a.load(viewActivities)
		}

	case key.Matches(msg, keys.Search):
		if a.view == viewWorkflows || a.view == viewActivities {
			return a.search.Focus()
		}

	case key.Matches(msg, keys.Unit):
		if a.view.isDetail() {
			a.tl.CycleUnit()
		}

	case key.Matches(msg, keys.ZoomIn):
		if a.view.isDetail() {
			a.tl.Nudge(-a.tl.cfg.SnapStep)
		}

	case key.Matches(msg, keys.ZoomOut):
		if a.view.isDetail() {
			a.tl.Nudge(a.tl.cfg.SnapStep)
		}

	case key.Matches(msg, keys.Left):
		if a.view.isDetail() {
			a.tl.PanBy(-1, a.width, a.renderNow)
		}

	case key.Matches(msg, keys.Right):
		if a.view.isDetail() {
			a.tl.PanBy(1, a.width, a.renderNow)
		}

	case key.Matches(msg, keys.PageUp):
		if a.view.isDetail() {
			a.viewport.HalfViewUp()
		}

	case key.Matches(msg, keys.PageDown):
		if a.view.isDetail() {
			a.viewport.HalfViewDown()
		}
	}
	return nil
}

// handleMouse drives the zoom control. A press on the zoom row starts a drag;
// while dragging every motion event counts, wherever the pointer is.
func (a *App) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if !a.view.isDetail() {
		return nil
	}
	switch msg.Type {
	case tea.MouseLeft:
		if a.tl.Dragging() {
			return a.tl.Pointer(timeline.PointerMove, msg.X)
		}
		if msg.Y == a.zoomRowY {
			return a.tl.Pointer(timeline.PointerDown, msg.X)
		}
	case tea.MouseMotion:
		if a.tl.Dragging() {
			return a.tl.Pointer(timeline.PointerMove, msg.X)
		}
	case tea.MouseRelease:
		if a.tl.Dragging() {
			return a.tl.Pointer(timeline.PointerUp, msg.X)
		}
	case tea.MouseWheelUp:
		a.tl.Nudge(-a.tl.cfg.SnapStep)
	case tea.MouseWheelDown:
		a.tl.Nudge(a.tl.cfg.SnapStep)
	}
	return nil
}

func (a *App) switchView(v view) tea.Cmd {
	if a.view == v {
		return nil
	}
	a.search.Blur()
	a.view = v
	a.stack = nil
	if v == viewDashboard && a.live && a.overview != nil {
		return nil
	}
	return a.load(v)
}

func (a *App) move(delta int) {
	if a.view.isDetail() {
		n := len(a.wfActivities)
		if a.view == viewActivityDetail {
			n = len(a.attempts)
		}
		a.detailCursor = clampIndex(a.detailCursor+delta, n)
		a.followCursor()
		return
	}
	st := a.lists[a.view]
	st.cursor = clampIndex(st.cursor+delta, a.listLen(a.view))
}

func (a *App) followCursor() {
	if a.viewport.Height <= 0 {
		return
	}
	// The first list line is the column header.
	line := a.detailCursor + 1
	if line-1 < a.viewport.YOffset {
		a.viewport.SetYOffset(line - 1)
	} else if line >= a.viewport.YOffset+a.viewport.Height {
		a.viewport.SetYOffset(line - a.viewport.Height + 1)
	}
}

func (a *App) listLen(v view) int {
	switch v {
	case viewDashboard:
		if a.overview == nil {
			return 0
		}
		return len(a.overview.RecentWorkflows)
	case viewWorkflows:
		return len(a.workflows)
	case viewActivities:
		return len(a.activities)
	case viewQueues:
		return len(a.queues)
	case viewWorkers:
		return len(a.workers)
	}
	return 0
}

func (a *App) clampCursor(v view, n int) {
	st := a.lists[v]
	st.cursor = clampIndex(st.cursor, n)
}

func (a *App) open() tea.Cmd {
	switch a.view {
	case viewDashboard:
		if a.overview != nil && len(a.overview.RecentWorkflows) > 0 {
			return a.openDetail(viewWorkflowDetail, a.overview.RecentWorkflows[a.lists[viewDashboard].cursor].ID)
		}
	case viewWorkflows:
		if len(a.workflows) > 0 {
			return a.openDetail(viewWorkflowDetail, a.workflows[a.lists[viewWorkflows].cursor].ID)
		}
	case viewActivities:
		if len(a.activities) > 0 {
			return a.openDetail(viewActivityDetail, a.activities[a.lists[viewActivities].cursor].ID)
		}
	case viewWorkflowDetail:
		if len(a.wfActivities) > 0 {
			return a.openDetail(viewActivityDetail, a.wfActivities[a.detailCursor].ID)
		}
	}
	return nil
}

// openDetail pushes a detail view, resets the timeline and starts the now
// tick under a fresh generation.
func (a *App) openDetail(v view, id string) tea.Cmd {
	a.search.Blur()
	a.stack = append(a.stack, crumb{view: a.view, id: a.detailID})
	release := a.enterDetail(v, id)
	return tea.Batch(release, a.fetch(v), a.nowTickCmd(a.tickGen))
}

func (a *App) enterDetail(v view, id string) tea.Cmd {
	release := a.tl.Reset()
	a.view = v
	a.detailID = id
	a.detailLoading = true
	a.detailErr = nil
	a.detailCursor = 0
	a.workflow = nil
	a.wfActivities = nil
	a.activity = nil
	a.attempts = nil
	a.viewport.SetYOffset(0)
	a.renderNow = a.now()
	a.tickGen++
	return release
}

// closeDetail pops back to the previous view. Leaving the detail views bumps
// the tick generation so pending ticks are dropped.
func (a *App) closeDetail() tea.Cmd {
	prev := crumb{view: viewDashboard}
	if n := len(a.stack); n > 0 {
		prev = a.stack[n-1]
		a.stack = a.stack[:n-1]
	}
	release := a.tl.Reset()

	if prev.view.isDetail() {
		a.enterDetail(prev.view, prev.id)
		return tea.Batch(release, a.fetch(prev.view), a.nowTickCmd(a.tickGen))
	}

	a.tickGen++
	a.view = prev.view
	a.detailID = ""
	return tea.Batch(release, a.fetch(prev.view))
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(a.renderHeader() + "\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", max(a.width, 1))) + "\n")

	contentHeight := a.contentHeight()

	switch a.view {
	case viewDashboard:
		b.WriteString(a.renderDashboard(contentHeight))
	case viewWorkflows:
		b.WriteString(a.renderWorkflows(contentHeight))
	case viewActivities:
		b.WriteString(a.renderActivities(contentHeight))
	case viewQueues:
		b.WriteString(a.renderQueues(contentHeight))
	case viewWorkers:
		b.WriteString(a.renderWorkers(contentHeight))
	case viewWorkflowDetail, viewActivityDetail:
		a.renderDetail(&b)
	}

	body := fitHeight(b.String(), a.height-2)

	var out strings.Builder
	out.WriteString(body + "\n")
	if a.message != "" {
		out.WriteString(errorStyle.Render(a.message))
	}
	out.WriteString("\n")
	out.WriteString(statusBarStyle.Width(a.width).Render(a.statusLine()))
	return out.String()
}

func (a *App) contentHeight() int {
	return max(a.height-5, 5)
}

func (a *App) renderHeader() string {
	var tabs []string
	for i, v := range topViews {
		label := fmt.Sprintf("%d %s", i+1, viewNames[v])
		active := a.view == v
		if a.view.isDetail() && len(a.stack) > 0 {
			active = a.stack[0].view == v
		}
		if active {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}

	live := offlineStyle.Render("○ POLLING")
	if a.live {
		live = onlineStyle.Render("● LIVE")
	}
	header := titleStyle.Render("SUBNET Console") + " " + strings.Join(tabs, "") + "  " + live
	if a.opts.SourceLabel != "" {
		header += "  " + mutedStyle.Render(a.opts.SourceLabel)
	}
	return header
}

func (a *App) statusLine() string {
	switch a.view {
	case viewDashboard:
		return " ↑↓:nav | Enter:open | Tab/1-5:views | r:refresh | q:quit"
	case viewWorkflows:
		return fmt.Sprintf(" Workflows: %d | f:filter [%s] | /:search | Enter:open | r:refresh | q:quit",
			len(a.workflows), filterLabel(string(workflowFilters[a.wfFilter])))
	case viewActivities:
		return fmt.Sprintf(" Activities: %d | f:filter [%s] | /:search | Enter:open | r:refresh | q:quit",
			len(a.activities), filterLabel(string(activityFilters[a.actFilter])))
	case viewQueues:
		return fmt.Sprintf(" Task queues: %d | Tab:next | r:refresh | q:quit", len(a.queues))
	case viewWorkers:
		return fmt.Sprintf(" Workers: %d | Tab:next | r:refresh | q:quit", len(a.workers))
	case viewWorkflowDetail:
		return " u:unit | +/-:zoom | drag zoom bar | ←→:pan | ↑↓:activities | Enter:open | Esc:back"
	case viewActivityDetail:
		return " u:unit | +/-:zoom | drag zoom bar | ←→:pan | ↑↓:attempts | Esc:back"
	}
	return " Esc:back | Ctrl+C:quit"
}

func filterLabel(s string) string {
	if s == "" {
		return "ALL"
	}
	return strings.ToUpper(s)
}

func clampIndex(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func fitHeight(s string, h int) string {
	s = strings.TrimSuffix(s, "\n")
	if h < 1 {
		h = 1
	}
	lines := strings.Split(s, "\n")
	if len(lines) > h {
		lines = lines[:h]
	}
	return strings.Join(lines, "\n")
}
