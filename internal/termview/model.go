package termview

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"kmarket/internal/dashboard"
	"kmarket/internal/live"
	"kmarket/internal/market"
	"kmarket/internal/view"
)

const (
	headerHeight = 1
	footerHeight = 1
	panelWidth   = 34
	panelMinTerm = 80 // narrower terminals get no detail panel
	panelHeader  = 3
	tickInterval = 16 * time.Millisecond
	panStep      = 4
	wheelLines   = 3
)

// Styles.
var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	gainStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	highlightBG = lipgloss.Color("236")
)

// Messages.
type tickMsg time.Time
type dataMsg live.Update

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitUpdate(ch <-chan live.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return dataMsg(u)
	}
}

// Model is the bubbletea model of the terminal heatmap.
type Model struct {
	ctrl    *view.Controller
	updates <-chan live.Update
	keys    keyMap
	log     zerolog.Logger
	now     func() time.Time

	panel         viewport.Model
	ready         bool
	ticking       bool
	width, height int
	mapCols       int
	mapRows       int
	shownHover    view.Hover
	panelStale    bool
}

// New creates a model for data. When updates is non-nil, datasets received
// on it replace the one on screen.
func New(data market.MarketData, opts view.Options, updates <-chan live.Update, log zerolog.Logger) Model {
	return Model{
		ctrl:    view.NewController(data, LayoutOptions(), opts),
		updates: updates,
		keys:    defaultKeyMap(),
		log:     log,
		now:     time.Now,
	}
}

// Controller exposes the interaction state.
func (m Model) Controller() *view.Controller { return m.ctrl }

func (m Model) Init() tea.Cmd {
	if m.updates != nil {
		return waitUpdate(m.updates)
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cx, cy := float64(m.mapCols)/2, float64(m.mapRows*CellHeight)/2
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Reset):
			m.ctrl.Reset(m.now())
			cmds = append(cmds, m.startTick())
		case key.Matches(msg, m.keys.ZoomIn):
			m.ctrl.ZoomBy(2, cx, cy)
		case key.Matches(msg, m.keys.ZoomOut):
			m.ctrl.ZoomBy(0.5, cx, cy)
		case key.Matches(msg, m.keys.Left):
			m.ctrl.PanBy(panStep, 0)
		case key.Matches(msg, m.keys.Right):
			m.ctrl.PanBy(-panStep, 0)
		case key.Matches(msg, m.keys.Up):
			m.ctrl.PanBy(0, panStep)
		case key.Matches(msg, m.keys.Down):
			m.ctrl.PanBy(0, -panStep)
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.MouseMsg:
		if cmd := m.mouse(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case tickMsg:
		m.ctrl.Tick(time.Time(msg))
		if m.ctrl.Animating() || m.ctrl.Mode() == view.Zooming {
			cmds = append(cmds, tickCmd())
		} else {
			m.ticking = false
		}

	case dataMsg:
		m.ctrl.SetData(msg.Data)
		m.panelStale = true
		m.log.Info().Uint64("version", msg.Version).Msg("dataset updated")
		cmds = append(cmds, waitUpdate(m.updates))
	}

	m.refreshPanel()
	return m, tea.Batch(cmds...)
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.mapCols = width
	if width >= panelMinTerm {
		m.mapCols = width - panelWidth
	}
	m.mapRows = max(height-headerHeight-footerHeight, 1)
	m.ctrl.Resize(float64(m.mapCols), float64(m.mapRows*CellHeight))

	vpHeight := max(m.mapRows-panelHeader, 1)
	if !m.ready {
		m.panel = viewport.New(panelWidth-2, vpHeight)
		m.panel.MouseWheelEnabled = true
		m.ready = true
	} else {
		m.panel.Width = panelWidth - 2
		m.panel.Height = vpHeight
	}
	m.panelStale = true
}

// mouse maps terminal mouse events onto the heatmap. The pointer sits at
// the centre of the cell it is over.
func (m *Model) mouse(msg tea.MouseMsg) tea.Cmd {
	row := msg.Y - headerHeight
	if msg.X >= m.mapCols || row < 0 || row >= m.mapRows {
		if msg.Action == tea.MouseActionMotion {
			m.ctrl.PointerLeave()
		}
		if m.showPanel() {
			var cmd tea.Cmd
			m.panel, cmd = m.panel.Update(msg)
			return cmd
		}
		return nil
	}

	x := float64(msg.X) + 0.5
	y := float64(row*CellHeight) + CellHeight/2.0
	now := m.now()
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.ctrl.Wheel(x, y, -wheelLines, view.WheelLine, msg.Ctrl, now)
		return m.startTick()
	case msg.Button == tea.MouseButtonWheelDown:
		m.ctrl.Wheel(x, y, wheelLines, view.WheelLine, msg.Ctrl, now)
		return m.startTick()
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.ctrl.PointerDown(x, y)
	case msg.Action == tea.MouseActionRelease:
		m.ctrl.PointerUp(x, y)
	case msg.Action == tea.MouseActionMotion:
		m.ctrl.PointerMove(x, y)
	}
	return nil
}

func (m *Model) startTick() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return tickCmd()
}

func (m Model) showPanel() bool {
	return m.ready && m.width >= panelMinTerm
}

// refreshPanel rebuilds the detail list when the hovered sector or stock
// changes, keeping the highlighted row in view.
func (m *Model) refreshPanel() {
	if !m.showPanel() {
		return
	}
	h := m.ctrl.Hover()
	if !m.panelStale && h.SectorID == m.shownHover.SectorID && h.StockID == m.shownHover.StockID {
		return
	}
	m.shownHover, m.panelStale = h, false

	w, ht := m.ctrl.Size()
	p, ok := dashboard.BuildPopover(m.ctrl.Data(), h, w, ht)
	if !ok {
		m.panel.SetContent("")
		return
	}
	m.panel.SetContent(renderRows(p.Rows, m.panel.Width))
	for i, row := range p.Rows {
		if !row.Highlighted {
			continue
		}
		if i < m.panel.YOffset {
			m.panel.SetYOffset(i)
		} else if i >= m.panel.YOffset+m.panel.Height {
			m.panel.SetYOffset(i - m.panel.Height + 1)
		}
	}
}

func renderRows(rows []dashboard.PopoverRow, width int) string {
	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		change := row.ChangeText
		name := padOrTrunc(row.Name, width-lipgloss.Width(change)-1)
		cs := dimStyle
		switch row.Trend {
		case dashboard.Up:
			cs = gainStyle
		case dashboard.Down:
			cs = lossStyle
		}
		ns := lipgloss.NewStyle()
		if row.Highlighted {
			ns = ns.Background(highlightBG).Bold(true)
			cs = cs.Background(highlightBG)
		}
		b.WriteString(ns.Render(name+" ") + cs.Render(change))
	}
	return b.String()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	data := m.ctrl.Data()
	t := m.ctrl.Transform()
	headerText := fmt.Sprintf(" K-Market Heatmap  %s    %s    %s ",
		data.Name, dashboard.FormatZoom(t.K), m.ctrl.Mode())
	header := headerStyle.Render(padOrTrunc(headerText, m.width))

	body := Rasterize(m.ctrl.Layout(), t, m.mapCols, m.mapRows).Render()
	if m.showPanel() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.panelView())
	}

	footerLeft := m.keys.help()
	total := dashboard.ComputeMarketStats(data).Total
	footerRight := fmt.Sprintf("▲%d ▼%d  %s  %s stocks ",
		total.Advancers, total.Decliners, dashboard.FormatCompact(total.TotalValue), dashboard.FormatInt(total.Count))
	gap := max(m.width-lipgloss.Width(footerLeft)-lipgloss.Width(footerRight), 0)
	footer := footerStyle.Render(padOrTrunc(footerLeft+strings.Repeat(" ", gap)+footerRight, m.width))

	return header + "\n" + body + "\n" + footer
}

func (m Model) panelView() string {
	box := lipgloss.NewStyle().Width(panelWidth).Height(m.mapRows).Padding(0, 1)

	h := m.ctrl.Hover()
	w, ht := m.ctrl.Size()
	p, ok := dashboard.BuildPopover(m.ctrl.Data(), h, w, ht)
	if !ok {
		return box.Render(dimStyle.Render("Hover a sector for details"))
	}

	inner := panelWidth - 2
	title := titleStyle.Render(padOrTrunc(p.Title, inner-lipgloss.Width(p.Tag)-1)) + " " + dimStyle.Render(p.Tag)
	stats := dimStyle.Render(padOrTrunc(fmt.Sprintf("▲%d ▼%d  avg %s",
		p.Stats.Advancers, p.Stats.Decliners, dashboard.FormatChange(roundTenth(p.Stats.MeanChange))), inner))
	rule := dimStyle.Render(strings.Repeat("─", inner))
	return box.Render(title + "\n" + stats + "\n" + rule + "\n" + m.panel.View())
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// padOrTrunc pads s with spaces, or cuts it, to exactly width display
// columns.
func padOrTrunc(s string, width int) string {
	if width <= 0 {
		return ""
	}
	n := lipgloss.Width(s)
	if n <= width {
		return s + strings.Repeat(" ", width-n)
	}
	var b strings.Builder
	used := 0
	for _, r := range s {
		w := lipgloss.Width(string(r))
		if used+w > width {
			break
		}
		b.WriteRune(r)
		used += w
	}
	return b.String() + strings.Repeat(" ", width-used)
}
