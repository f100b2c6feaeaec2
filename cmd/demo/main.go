package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/1F47E/geo-track-view/pkg/config"
	"github.com/1F47E/geo-track-view/pkg/engine"
	"github.com/1F47E/geo-track-view/pkg/models"
	"github.com/1F47E/geo-track-view/pkg/synth"
	"github.com/1F47E/geo-track-view/pkg/tile"
	"github.com/1F47E/geo-track-view/pkg/trackio"
	"github.com/1F47E/geo-track-view/pkg/view"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// Size of the simulated map widget in pixels
const (
	mapWidthPx  = 1024
	mapHeightPx = 640
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF79C6")).
			Background(lipgloss.Color("#282A36")).
			Padding(0, 1).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BE9FD"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))

	mapStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#BD93F9")).
			Foreground(lipgloss.Color("#50FA7B"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#BD93F9")).
			Padding(0, 1)

	statStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))
)

// Density ramp for the terminal map
const shades = " .:-=+*#%@"

type keyMap struct {
	North   key.Binding
	South   key.Binding
	West    key.Binding
	East    key.Binding
	ZoomIn  key.Binding
	ZoomOut key.Binding
	Fit     key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ZoomIn, k.ZoomOut, k.Fit, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.North, k.South, k.West, k.East},
		{k.ZoomIn, k.ZoomOut, k.Fit},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	North:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "pan north")),
	South:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "pan south")),
	West:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "pan west")),
	East:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "pan east")),
	ZoomIn:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
	ZoomOut: key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
	Fit:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fit tracks")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type stage int

const (
	stageLoading stage = iota
	stageExplore
	stageFailed
)

type loadedMsg struct {
	tracks   []models.Track
	duration time.Duration
}

type errMsg struct{ err error }

type model struct {
	stage    stage
	spinner  spinner.Model
	progress progress.Model
	help     help.Model

	cfg    config.Config
	engine *engine.Engine
	load   func() ([]models.Track, error)

	tracks   []models.Track
	loadTime time.Duration
	center   models.Coordinate
	zoom     float64
	frame    engine.Frame
	took     time.Duration
	err      error

	width  int
	height int
}

func initialModel(cfg config.Config, e *engine.Engine, load func() ([]models.Track, error)) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return model{
		stage:    stageLoading,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient()),
		help:     help.New(),
		cfg:      cfg,
		engine:   e,
		load:     load,
		center:   cfg.View.DefaultCenter,
		zoom:     engine.DefaultZoom,
		width:    80,
		height:   24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, loadTracks(m.load))
}

func loadTracks(load func() ([]models.Track, error)) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		tracks, err := load()
		if err != nil {
			return errMsg{err}
		}
		return loadedMsg{tracks: tracks, duration: time.Since(start)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = max(10, msg.Width/3)
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		if m.stage != stageExplore {
			return m, nil
		}
		latStep, lonStep := m.spans()
		switch {
		case key.Matches(msg, keys.North):
			m.center.Lat = math.Min(85, m.center.Lat+latStep/4)
		case key.Matches(msg, keys.South):
			m.center.Lat = math.Max(-85, m.center.Lat-latStep/4)
		case key.Matches(msg, keys.West):
			m.center.Lon = wrapLon(m.center.Lon - lonStep/4)
		case key.Matches(msg, keys.East):
			m.center.Lon = wrapLon(m.center.Lon + lonStep/4)
		case key.Matches(msg, keys.ZoomIn):
			m.zoom = math.Min(view.MaxZoom, m.zoom+1)
		case key.Matches(msg, keys.ZoomOut):
			m.zoom = math.Max(0, m.zoom-1)
		case key.Matches(msg, keys.Fit):
			m.fit()
		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		default:
			return m, nil
		}
		return m, m.refresh()

	case loadedMsg:
		m.tracks = msg.tracks
		m.loadTime = msg.duration
		m.engine.SetTracks(m.tracks)
		m.center = view.CenterOr(m.tracks, m.cfg.View.DefaultCenter)
		m.fit()
		m.stage = stageExplore
		return m, m.refresh()

	case errMsg:
		m.err = msg.err
		m.stage = stageFailed
		return m, nil

	case spinner.TickMsg:
		if m.stage != stageLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd
	}

	return m, nil
}

// fit frames all tracks the way the map widget does on first load
func (m *model) fit() {
	b, ok := view.BoundsOf(m.tracks)
	if !ok {
		return
	}
	m.center = models.Coordinate{
		Lat: (b.SouthWest.Lat + b.NorthEast.Lat) / 2,
		Lon: (b.SouthWest.Lon + b.NorthEast.Lon) / 2,
	}
	m.zoom = math.Floor(view.ZoomForBounds(b, mapWidthPx, mapHeightPx, m.cfg.View.FitPadding))
}

// spans returns the viewport height and width in degrees
func (m model) spans() (lat, lon float64) {
	lon = mapWidthPx * 360 / (view.TileSize * math.Exp2(m.zoom))
	lat = lon * mapHeightPx / mapWidthPx * math.Cos(m.center.Lat*math.Pi/180)
	return math.Min(lat, 170), math.Min(lon, 360)
}

func (m model) viewport() models.ViewportBounds {
	lat, lon := m.spans()
	b := models.ViewportBounds{
		North: math.Min(90, m.center.Lat+lat/2),
		South: math.Max(-90, m.center.Lat-lat/2),
		East:  wrapLon(m.center.Lon + lon/2),
		West:  wrapLon(m.center.Lon - lon/2),
		Zoom:  m.zoom,
	}
	// Wrapping a whole turn would make East == West, a single column
	if lon >= 360 {
		b.West = m.center.Lon - 180
		b.East = m.center.Lon + 180
	}
	return b
}

func (m *model) refresh() tea.Cmd {
	start := time.Now()
	m.frame = m.engine.OnViewportChange(m.viewport())
	m.took = time.Since(start)

	share := 0.0
	if m.frame.Stats.DedupedPoints > 0 {
		share = float64(m.frame.Stats.RenderedPoints) / float64(m.frame.Stats.DedupedPoints)
	}
	return m.progress.SetPercent(share)
}

func wrapLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Track Viewport Explorer"))
	b.WriteString("\n")

	switch m.stage {
	case stageLoading:
		b.WriteString(m.spinner.View() + " Loading tracks and building the visibility index...\n")

	case stageFailed:
		b.WriteString(errorStyle.Render("Failed to load tracks: " + m.err.Error()))
		b.WriteString("\n")

	case stageExplore:
		cols := max(20, m.width*2/3-4)
		rows := max(8, m.height-10)
		mapView := mapStyle.Render(renderMap(m.frame, m.viewport(), cols, rows))
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, mapView, " ", m.renderStats()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

func (m model) renderStats() string {
	s := m.frame.Stats
	v := m.viewport()
	row := func(label, value string) string {
		return dimStyle.Render(fmt.Sprintf("%-18s", label)) + statStyle.Render(value) + "\n"
	}

	var b strings.Builder
	b.WriteString(subtitleStyle.Render("Viewport") + "\n")
	b.WriteString(row("Center", fmt.Sprintf("%.4f, %.4f", m.center.Lat, m.center.Lon)))
	b.WriteString(row("N/S", fmt.Sprintf("%.4f / %.4f", v.North, v.South)))
	b.WriteString(row("W/E", fmt.Sprintf("%.4f / %.4f", v.West, v.East)))
	b.WriteString(row("Zoom", fmt.Sprintf("%.0f", s.Zoom)))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("Pipeline") + "\n")
	b.WriteString(row("Tracks", humanize.Comma(int64(len(m.tracks)))))
	b.WriteString(row("Visible tracks", humanize.Comma(int64(s.VisibleTracks))))
	b.WriteString(row("Visible tiles", humanize.Comma(s.VisibleTiles)))
	b.WriteString(row("Raw points", humanize.Comma(int64(s.RawPoints))))
	b.WriteString(row("Simplified", humanize.Comma(int64(s.SimplifiedPoints))))
	b.WriteString(row("Deduped", humanize.Comma(int64(s.DedupedPoints))))
	b.WriteString(row("Rendered", humanize.Comma(int64(s.RenderedPoints))))
	b.WriteString(row("Update", m.took.Round(time.Microsecond).String()))
	b.WriteString(row("Loaded in", m.loadTime.Round(time.Millisecond).String()))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Rendered share") + "\n")
	b.WriteString(m.progress.View())

	return boxStyle.Render(b.String())
}

// renderMap rasterizes the visible points into a density grid
func renderMap(frame engine.Frame, b models.ViewportBounds, cols, rows int) string {
	grid := make([]int, cols*rows)
	peak := 0

	lonSpan := b.East - b.West
	if lonSpan <= 0 {
		lonSpan += 360
	}
	latSpan := b.North - b.South

	for _, seg := range frame.Segments() {
		for _, p := range seg.Points {
			x := int(math.Mod(p.Lon-b.West+360, 360) / lonSpan * float64(cols))
			y := int((b.North - p.Lat) / latSpan * float64(rows))
			if x < 0 || x >= cols || y < 0 || y >= rows {
				continue
			}
			i := y*cols + x
			grid[i]++
			peak = max(peak, grid[i])
		}
	}

	var sb strings.Builder
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			n := grid[y*cols+x]
			if n == 0 || peak == 0 {
				sb.WriteByte(' ')
				continue
			}
			level := 1 + (n-1)*(len(shades)-2)/max(peak-1, 1)
			sb.WriteByte(shades[level])
		}
		if y < rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func newLogger(path string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	zc := zap.NewDevelopmentConfig()
	zc.OutputPaths = []string{path}
	zc.ErrorOutputPaths = []string{path}
	return zc.Build()
}

func main() {
	var (
		configFile = flag.String("config", "", "Config file path")
		logFile    = flag.String("log", "", "Write debug logs to this file")
		numTracks  = flag.Int("tracks", synth.DefaultOptions.Tracks, "Synthetic tracks when no GPX files are given")
		numPoints  = flag.Int("points", synth.DefaultOptions.PointsPerTrack, "Points per synthetic track")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := newLogger(*logFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	files := flag.Args()
	load := func() ([]models.Track, error) {
		if len(files) > 0 {
			return trackio.LoadFiles(files)
		}
		opts := synth.DefaultOptions
		opts.Tracks = *numTracks
		opts.PointsPerTrack = *numPoints
		opts.Center = cfg.View.DefaultCenter
		return synth.Generate(opts), nil
	}

	logger.Debug("starting explorer",
		zap.Strings("files", files),
		zap.Float64("index_cell_deg", float64(tile.ForZoom(cfg.Engine.IndexZoom, cfg.Engine.Subdivisions))),
	)

	program := tea.NewProgram(initialModel(cfg, engine.FromConfig(cfg, logger), load), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
