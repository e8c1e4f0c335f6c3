package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var promptStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("205")).
	Bold(true)

// searchDebounceMsg fires after the debounce window of keystroke seq.
type searchDebounceMsg struct {
	seq int
}

// SearchBar is the debounced search input of the list views. Every edit
// bumps seq and schedules a searchDebounceMsg; only the message carrying the
// latest seq triggers a query.
type SearchBar struct {
	input    textinput.Model
	focused  bool
	debounce time.Duration
	seq      int
	applied  string
}

// NewSearchBar creates a search bar with the given debounce window.
func NewSearchBar(debounce time.Duration) *SearchBar {
	ti := textinput.New()
	ti.Placeholder = "search by id, type or queue"
	ti.CharLimit = 128
	ti.Prompt = ""
	return &SearchBar{
		input:    ti,
		debounce: debounce,
	}
}

// Focus focuses the search bar.
func (s *SearchBar) Focus() tea.Cmd {
	s.focused = true
	return s.input.Focus()
}

// Blur unfocuses the search bar and keeps the query.
func (s *SearchBar) Blur() {
	s.focused = false
	s.input.Blur()
}

// Clear empties the query. It reports whether the applied query changed.
func (s *SearchBar) Clear() bool {
	s.Blur()
	s.input.SetValue("")
	s.seq++
	changed := s.applied != ""
	s.applied = ""
	return changed
}

// Focused reports whether keystrokes go to the search bar.
func (s *SearchBar) Focused() bool {
	return s.focused
}

// Query is the trimmed current input.
func (s *SearchBar) Query() string {
	return strings.TrimSpace(s.input.Value())
}

// Applied is the query of the last search that ran.
func (s *SearchBar) Applied() string {
	return s.applied
}

// SetWidth sets the visible width of the input.
func (s *SearchBar) SetWidth(w int) {
	if w > 10 {
		s.input.Width = w
	}
}

// Update feeds a message to the input. When the value changed, the returned
// command schedules the debounce message.
func (s *SearchBar) Update(msg tea.Msg) tea.Cmd {
	before := s.input.Value()
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	if s.input.Value() == before {
		return cmd
	}
	s.seq++
	return tea.Batch(cmd, s.schedule(s.seq))
}

func (s *SearchBar) schedule(seq int) tea.Cmd {
	return tea.Tick(s.debounce, func(time.Time) tea.Msg {
		return searchDebounceMsg{seq: seq}
	})
}

// Settle reports whether msg is the latest scheduled keystroke, and if so
// marks the current query as applied.
func (s *SearchBar) Settle(msg searchDebounceMsg) bool {
	if msg.seq != s.seq {
		return false
	}
	s.applied = s.Query()
	return true
}

// View renders the search bar.
func (s *SearchBar) View() string {
	prompt := promptStyle.Render("/ ")
	if s.focused {
		return searchBoxStyle.Render(prompt + s.input.View())
	}
	if s.applied != "" {
		return searchBoxStyle.Render(prompt + s.applied)
	}
	return searchBoxStyle.Render(helpStyle.Render("Press / to search"))
}
