package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/voiceweave/voice-weaver/internal/cli/hooks"
	"github.com/voiceweave/voice-weaver/pkg/weaver"
)

// --- Constants ---

const listHeightMargin = 4 // Header, footer, padding.

// --- Model Struct ---

// Model holds the TUI state: the scrolling fragment list, the spinner,
// layout dimensions, the current pipeline phase, and aggregated counts.
type Model struct {
	// list displays the scrollable list of fragments being processed.
	list list.Model
	// spinner indicates background activity in the header.
	spinner spinner.Model
	// width is the current terminal width, updated on WindowSizeMsg.
	width int
	// height is the current terminal height, updated on WindowSizeMsg.
	height int
	// initialized tracks whether the model has received initial dimensions.
	initialized bool
	// appVersion is shown in the header.
	appVersion string
	// fragmentItems holds the internal data for each list entry.
	// Access MUST be protected by listLock.
	fragmentItems []listItem
	// summary tracks the aggregated counts and timing for the current run.
	summary Summary
	// phaseMessage displays the current pipeline stage.
	phaseMessage string
	// fatalError stores a descriptive message if the run was halted.
	fatalError string
	// quitting indicates the user initiated shutdown via 'q' or Ctrl+C.
	quitting bool
	// completed indicates the run finished and the final report arrived.
	completed bool
	// processTime maps fragment paths to their processing start time,
	// used when a status update arrives without a duration.
	processTime map[string]time.Time
	// itemMap maps fragment paths to their index in fragmentItems.
	// Access MUST be protected by listLock.
	itemMap map[string]int
	// listLock synchronizes access to fragmentItems and itemMap; hook
	// messages arrive from the engine's goroutines via Program.Send.
	listLock sync.Mutex
	// debounceTimer coalesces list refreshes during rapid status changes.
	debounceTimer *time.Timer
}

// listItem represents a single fragment in the TUI list.
type listItem struct {
	path     string        // Relative fragment path
	status   weaver.Status // Current processing status
	message  string        // Error or skip detail
	duration time.Duration // Processing duration for this fragment
}

// Summary holds the aggregated statistics displayed in the TUI footer.
type Summary struct {
	FragmentsDiscovered  int
	ParsedCount          int
	SkippedCount         int
	ErrorCount           int
	ConversationsWritten int
	StartTime            time.Time
}

// phaseLabels maps engine phases to header text.
var phaseLabels = map[weaver.Phase]string{
	weaver.PhaseDiscover: "Discovering fragments...",
	weaver.PhaseParse:    "Parsing fragments...",
	weaver.PhaseScan:     "Scanning attachment pool...",
	weaver.PhaseResolve:  "Resolving attachments...",
	weaver.PhaseAssemble: "Assembling conversations...",
	weaver.PhaseRender:   "Rendering output...",
}

// --- Bubble Tea Interface Implementations ---

// Init starts the spinner animation.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages (user input, hook events) and updates
// the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var listCmd tea.Cmd

	switch msg := msg.(type) {
	// --- Internal Bubble Tea Messages ---
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listHeight := m.height - listHeightMargin
		if listHeight < 1 {
			listHeight = 1
		}
		m.list.SetSize(m.width, listHeight)
		m.initialized = true

	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
		// Pass other keys to the list component for navigation.
		m.list, listCmd = m.list.Update(msg)
		cmds = append(cmds, listCmd)

	case spinner.TickMsg:
		if m.quitting || m.completed {
			return m, nil
		}
		var spinnerCmd tea.Cmd
		m.spinner, spinnerCmd = m.spinner.Update(msg)
		cmds = append(cmds, spinnerCmd)

	// --- Messages from Library Hooks ---
	case hooks.FragmentDiscoveredMsg:
		m.listLock.Lock()
		if _, exists := m.itemMap[msg.Path]; !exists {
			newItem := listItem{path: msg.Path, status: weaver.StatusPending}
			m.fragmentItems = append(m.fragmentItems, newItem)
			m.itemMap[msg.Path] = len(m.fragmentItems) - 1
			m.summary.FragmentsDiscovered++
			cmds = append(cmds, m.debounceListUpdate())
		}
		m.listLock.Unlock()

	case hooks.FragmentStatusUpdateMsg:
		m.listLock.Lock()
		if idx, ok := m.itemMap[msg.Path]; ok && idx < len(m.fragmentItems) {
			currentItem := &m.fragmentItems[idx]

			if isFinalStatus(msg.Status) && currentItem.status == weaver.StatusProcessing {
				currentItem.duration = msg.Duration
				if startTime, found := m.processTime[msg.Path]; found {
					if currentItem.duration == 0 {
						currentItem.duration = time.Since(startTime)
					}
					delete(m.processTime, msg.Path)
				}
			} else if msg.Status == weaver.StatusProcessing {
				m.processTime[msg.Path] = time.Now()
				currentItem.duration = 0
			}

			// Update counts only when the status changes to a final state.
			oldStatusIsFinal := isFinalStatus(currentItem.status)
			newStatusIsFinal := isFinalStatus(msg.Status)

			if newStatusIsFinal && !oldStatusIsFinal {
				m.incrementSummaryCount(msg.Status)
			} else if !newStatusIsFinal && oldStatusIsFinal {
				m.decrementSummaryCount(currentItem.status)
			}

			currentItem.status = msg.Status
			currentItem.message = msg.Message

			cmds = append(cmds, m.debounceListUpdate())
		} else {
			// Status update for an unknown item; the discovery message may
			// have been missed or delayed. Add it directly.
			newItem := listItem{path: msg.Path, status: msg.Status, message: msg.Message, duration: msg.Duration}
			m.fragmentItems = append(m.fragmentItems, newItem)
			m.itemMap[msg.Path] = len(m.fragmentItems) - 1
			m.summary.FragmentsDiscovered++
			if isFinalStatus(msg.Status) {
				m.incrementSummaryCount(msg.Status)
			}
			cmds = append(cmds, m.debounceListUpdate())
		}
		m.listLock.Unlock()

	case hooks.PhaseMsg:
		if !m.quitting {
			if label, ok := phaseLabels[msg.Phase]; ok {
				m.phaseMessage = label
			} else {
				m.phaseMessage = string(msg.Phase)
			}
		}

	case hooks.RunCompleteMsg:
		m.completed = true
		m.phaseMessage = "Complete"
		m.summary.ParsedCount = msg.Report.Summary.FragmentsParsed
		m.summary.SkippedCount = msg.Report.Summary.FragmentsSkipped
		m.summary.ErrorCount = msg.Report.Summary.ErrorCount
		m.summary.ConversationsWritten = msg.Report.Summary.ConversationsWritten
		if msg.Report.Summary.FatalErrorOccurred {
			m.fatalError = "Run halted by a fatal error."
			for _, e := range msg.Report.Errors {
				if e.IsFatal {
					m.fatalError = fmt.Sprintf("Fatal error: %s (%s)", e.Error, e.Path)
					break
				}
			}
		}
		// The run is over; exit so the final report can be printed. The
		// last rendered frame keeps the summary visible.
		return m, tea.Quit

	case UpdateListMsg:
		m.listLock.Lock()
		items := make([]list.Item, len(m.fragmentItems))
		for i, item := range m.fragmentItems {
			items[i] = item
		}
		m.listLock.Unlock()
		cmds = append(cmds, m.list.SetItems(items))

	}

	if listCmd != nil {
		cmds = append(cmds, listCmd)
	}

	return m, tea.Batch(cmds...)
}

// View renders the current state of the TUI model to a string.
func (m *Model) View() string {
	if m.quitting {
		return "Exiting...\n"
	}
	if !m.initialized {
		return "Initializing..."
	}

	// --- Header ---
	headerLeft := fmt.Sprintf("voice-weaver v%s", m.appVersion)
	headerRight := m.phaseMessage
	if !m.completed && m.phaseMessage != "Initializing..." {
		headerRight = m.spinner.View() + " " + m.phaseMessage
	}
	headerCenter := ""
	headerWidth := m.width - lipgloss.Width(headerLeft) - lipgloss.Width(headerRight)
	if headerWidth > 0 {
		headerCenter = lipgloss.PlaceHorizontal(headerWidth, lipgloss.Center, " ")
	}
	header := HeaderStyle.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Top, headerLeft, headerCenter, headerRight))

	// --- Footer ---
	elapsed := time.Since(m.summary.StartTime).Round(time.Millisecond)
	summaryText := fmt.Sprintf(
		"Parsed: %d | Skipped: %d | Failed: %d | Discovered: %d | Elapsed: %s",
		m.summary.ParsedCount,
		m.summary.SkippedCount,
		m.summary.ErrorCount,
		m.summary.FragmentsDiscovered,
		elapsed,
	)
	if m.completed {
		summaryText = fmt.Sprintf("%s | Conversations: %d", summaryText, m.summary.ConversationsWritten)
	}
	footerLeft := summaryText
	footerRight := "q: quit"
	footerWidth := m.width - lipgloss.Width(footerLeft) - lipgloss.Width(footerRight)
	footerCenter := ""
	if footerWidth > 0 {
		footerCenter = lipgloss.PlaceHorizontal(footerWidth, lipgloss.Center, " ")
	}
	footer := FooterStyle.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Bottom, footerLeft, footerCenter, footerRight))

	// --- Main Content (List) ---
	listView := m.list.View()

	// --- Fatal Error Display ---
	errorView := ""
	if m.fatalError != "" {
		errorView = StatusStyleFailed.Render(m.fatalError) + "\n"
	}

	// --- Assembly ---
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		listView,
		errorView,
		footer,
	)
}

// --- Helper Methods ---

// NewModel creates the initial model for the TUI.
func NewModel(appVersion string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	delegate.ShowDescription = true
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorSelectedFg).
		Background(ColorSelectedBg).
		Bold(true).
		Padding(0, 0, 0, 1)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorSelectedDescFg).
		Background(ColorSelectedBg).
		Padding(0, 0, 0, 1)
	delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.
		Foreground(ColorNormalFg).Padding(0, 0, 0, 1)
	delegate.Styles.NormalDesc = delegate.Styles.NormalDesc.
		Foreground(ColorNormalDescFg).Padding(0, 0, 0, 1)

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return Model{
		list:          l,
		spinner:       s,
		appVersion:    appVersion,
		summary:       Summary{StartTime: time.Now()},
		phaseMessage:  "Initializing...",
		fragmentItems: make([]listItem, 0, 1024),
		itemMap:       make(map[string]int),
		processTime:   make(map[string]time.Time),
	}
}

// isFinalStatus checks if a status represents a terminal state for a fragment.
func isFinalStatus(status weaver.Status) bool {
	return status == weaver.StatusSuccess ||
		status == weaver.StatusFailed ||
		status == weaver.StatusSkipped
}

// incrementSummaryCount updates summary counts for a new final status.
// MUST be called with listLock held.
func (m *Model) incrementSummaryCount(status weaver.Status) {
	switch status {
	case weaver.StatusSuccess:
		m.summary.ParsedCount++
	case weaver.StatusSkipped:
		m.summary.SkippedCount++
	case weaver.StatusFailed:
		m.summary.ErrorCount++
	}
}

// decrementSummaryCount reverses count updates if a status changes away
// from a final state. MUST be called with listLock held.
func (m *Model) decrementSummaryCount(status weaver.Status) {
	switch status {
	case weaver.StatusSuccess:
		m.summary.ParsedCount--
	case weaver.StatusSkipped:
		m.summary.SkippedCount--
	case weaver.StatusFailed:
		m.summary.ErrorCount--
	}
}

// --- List Item Interface ---

// FilterValue implements the list.Item interface.
func (i listItem) FilterValue() string { return i.path }

// Title implements the list.Item interface.
func (i listItem) Title() string { return i.path }

// Description implements the list.Item interface.
func (i listItem) Description() string {
	var statusStyle lipgloss.Style
	statusIcon := " "
	switch i.status {
	case weaver.StatusSuccess:
		statusStyle = StatusStyleSuccess
		statusIcon = "✓"
	case weaver.StatusFailed:
		statusStyle = StatusStyleFailed
		statusIcon = "✗"
	case weaver.StatusSkipped:
		statusStyle = StatusStyleSkipped
		statusIcon = "S"
	case weaver.StatusProcessing:
		statusStyle = StatusStyleProcessing
		statusIcon = "…"
	case weaver.StatusPending:
		fallthrough
	default:
		statusStyle = StatusStylePending
		statusIcon = " "
	}

	statusStr := statusStyle.Render(fmt.Sprintf("[%s]", statusIcon))
	details := ""

	if i.status == weaver.StatusFailed {
		details = i.message
	} else if i.status == weaver.StatusSkipped {
		// Skip messages follow the "reason: detail" form; show the reason.
		parts := strings.SplitN(i.message, ":", 2)
		if len(parts) > 0 {
			details = strings.TrimSpace(parts[0])
		} else {
			details = i.message
		}
	} else if i.status == weaver.StatusSuccess {
		if i.duration > 0 {
			details = formatDuration(i.duration)
		}
	}
	return fmt.Sprintf("%s %s", statusStr, details)
}

// formatDuration formats a duration for list display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		if d == 0 {
			return ""
		}
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// --- Update Debouncing ---

// UpdateListMsg signals that the list component should refresh its items.
type UpdateListMsg struct{}

const listUpdateDebounceDuration = 50 * time.Millisecond

// debounceListUpdate returns a command that triggers a list refresh after
// a short delay, coalescing bursts of status changes.
// MUST be called with listLock held.
func (m *Model) debounceListUpdate() tea.Cmd {
	if m.debounceTimer != nil {
		m.debounceTimer.Stop()
	}

	m.debounceTimer = time.NewTimer(listUpdateDebounceDuration)

	return func() tea.Msg {
		<-m.debounceTimer.C
		return UpdateListMsg{}
	}
}

// --- Styles ---

const (
	ColorHeaderFg = lipgloss.Color("252") // Light gray
	ColorHeaderBg = lipgloss.Color("62")  // Purple

	ColorFooterFg = lipgloss.Color("252")
	ColorFooterBg = lipgloss.Color("56") // Dark pink/purple

	ColorNormalFg     = lipgloss.Color("250") // Off-white
	ColorNormalDescFg = lipgloss.Color("244") // Dim gray

	ColorSelectedFg     = lipgloss.Color("255") // White
	ColorSelectedBg     = lipgloss.Color("56")  // Dark pink/purple
	ColorSelectedDescFg = lipgloss.Color("248") // Lighter gray

	ColorStatusSuccess    = lipgloss.Color("40")  // Green
	ColorStatusFailed     = lipgloss.Color("196") // Red
	ColorStatusSkipped    = lipgloss.Color("214") // Orange/yellow
	ColorStatusPending    = lipgloss.Color("244") // Dim gray
	ColorStatusProcessing = lipgloss.Color("205") // Pink (matches spinner)
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHeaderFg).
			Background(ColorHeaderBg).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorFooterFg).
			Background(ColorFooterBg).
			Padding(0, 1)

	StatusStyleSuccess    = lipgloss.NewStyle().Foreground(ColorStatusSuccess)
	StatusStyleFailed     = lipgloss.NewStyle().Foreground(ColorStatusFailed)
	StatusStyleSkipped    = lipgloss.NewStyle().Foreground(ColorStatusSkipped)
	StatusStylePending    = lipgloss.NewStyle().Foreground(ColorStatusPending)
	StatusStyleProcessing = lipgloss.NewStyle().Foreground(ColorStatusProcessing)
)
