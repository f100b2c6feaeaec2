package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/1F47E/geo-track-view/pkg/config"
	"github.com/1F47E/geo-track-view/pkg/elevation"
	"github.com/1F47E/geo-track-view/pkg/engine"
	"github.com/1F47E/geo-track-view/pkg/metrics"
	"github.com/1F47E/geo-track-view/pkg/models"
	"github.com/1F47E/geo-track-view/pkg/trackio"
	"github.com/1F47E/geo-track-view/pkg/view"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string
	verbose    bool

	indexZoom   float64
	baseMeters  float64
	dedupeSteps []float64

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "geo-track-view",
	Short: "Simplify, deduplicate and viewport-filter GPS tracks",
	Long: `Runs the track rendering pipeline (zoom-adaptive simplification, cross-track
deduplication and tile-based viewport visibility) over GPX files.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if logger, err = newLogger(verbose); err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		if cfg, err = config.Load(configFile); err != nil {
			return err
		}
		if err := applyOverrides(cmd); err != nil {
			return err
		}
		logger.Debug("config loaded", zap.String("path", configFile), zap.Any("engine", cfg.Engine))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats FILE...",
	Short: "Print per-track metrics",
	Long:  `Load GPX files (or directories of them) and print distance, pace, speed, discovered area and elevation figures for every track.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStats,
}

var viewCmd = &cobra.Command{
	Use:   "view FILE...",
	Short: "Run the pipeline for one viewport",
	Long: `Reduce the tracks for a zoom level and report what is visible in a viewport.
Without bounds flags the viewport is fitted around all tracks.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runView,
}

var centerCmd = &cobra.Command{
	Use:   "center FILE...",
	Short: "Print the mean coordinate of all points",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCenter,
}

var elevationCmd = &cobra.Command{
	Use:   "elevation FILE",
	Short: "Print the denoised elevation profile of a track",
	Args:  cobra.ExactArgs(1),
	RunE:  runElevation,
}

var speedCmd = &cobra.Command{
	Use:   "speed FILE",
	Short: "Print the smoothed speed profile of a track",
	Args:  cobra.ExactArgs(1),
	RunE:  runSpeed,
}

var (
	zoom          float64
	north, south  float64
	east, west    float64
	screenWidth   int
	screenHeight  int
	geojsonFile   string
	trackIndex    int
	profileSample int
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file path (default config.yaml, then config.yaml.example)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().Float64Var(&indexZoom, "index-zoom", 0, "Override engine.index_zoom")
	rootCmd.PersistentFlags().Float64Var(&baseMeters, "base-meters", 0, "Override simplify.base_meters")
	rootCmd.PersistentFlags().Float64SliceVar(&dedupeSteps, "dedupe", nil, "Override engine.dedupe_tolerances, e.g. --dedupe 50,70")

	viewCmd.Flags().Float64VarP(&zoom, "zoom", "z", -1, "Zoom level (default: fit the viewport to the screen)")
	viewCmd.Flags().Float64Var(&north, "north", math.NaN(), "Viewport north latitude")
	viewCmd.Flags().Float64Var(&south, "south", math.NaN(), "Viewport south latitude")
	viewCmd.Flags().Float64Var(&east, "east", math.NaN(), "Viewport east longitude")
	viewCmd.Flags().Float64Var(&west, "west", math.NaN(), "Viewport west longitude")
	viewCmd.Flags().IntVar(&screenWidth, "width", 1280, "Screen width in pixels for zoom fitting")
	viewCmd.Flags().IntVar(&screenHeight, "height", 800, "Screen height in pixels for zoom fitting")
	viewCmd.Flags().StringVarP(&geojsonFile, "geojson", "o", "", "Write visible polylines as GeoJSON to this file")

	elevationCmd.Flags().IntVarP(&trackIndex, "track", "t", 0, "Track index within the file")
	elevationCmd.Flags().IntVarP(&profileSample, "every", "e", 1, "Print every n-th profile sample")
	speedCmd.Flags().IntVarP(&trackIndex, "track", "t", 0, "Track index within the file")
	speedCmd.Flags().IntVarP(&profileSample, "every", "e", 1, "Print every n-th profile sample")

	rootCmd.AddCommand(statsCmd, viewCmd, centerCmd, elevationCmd, speedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	zc.Encoding = "console"
	return zc.Build()
}

// applyOverrides copies explicitly set flags over the loaded config
func applyOverrides(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("index-zoom") {
		cfg.Engine.IndexZoom = indexZoom
	}
	if flags.Changed("base-meters") {
		cfg.Simplify.BaseMeters = baseMeters
	}
	if flags.Changed("dedupe") {
		cfg.Engine.DedupeTolerances = dedupeSteps
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("failed to apply flags: %w", err)
	}
	return nil
}

func loadTracks(paths []string) ([]models.Track, error) {
	start := time.Now()
	tracks, err := trackio.LoadFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("tracks loaded",
		zap.Int("files", len(paths)),
		zap.Int("tracks", len(tracks)),
		zap.Int("points", models.CountPoints(tracks)),
		zap.Duration("took", time.Since(start)),
	)
	return tracks, nil
}

func runStats(cmd *cobra.Command, args []string) error {
	tracks, err := loadTracks(args)
	if err != nil {
		return err
	}
	st := newStyles()
	opts := metrics.Options{DiscoveryMeters: metrics.DefaultOptions.DiscoveryMeters, Denoiser: cfg.Elevation}

	for _, t := range tracks {
		m := metrics.Compute(t, opts)
		title := t.Name
		if !t.Start.IsZero() {
			title += "  " + st.muted.Render(t.Start.Format("Monday, January 2, 2006 at 15:04"))
		}
		fmt.Println(st.title.Render(title))
		for _, row := range m.Rows() {
			fmt.Println(st.row(row[0], row[1]))
		}
		fmt.Println(st.row("Points", humanize.Comma(int64(len(t.Points)))))
		fmt.Println()
	}
	return nil
}

func runView(cmd *cobra.Command, args []string) error {
	tracks, err := loadTracks(args)
	if err != nil {
		return err
	}
	fitted, ok := view.BoundsOf(tracks)
	if !ok {
		return errors.New("no points in input")
	}

	bounds := fitted
	if !math.IsNaN(north) {
		bounds.NorthEast.Lat = north
	}
	if !math.IsNaN(south) {
		bounds.SouthWest.Lat = south
	}
	if !math.IsNaN(east) {
		bounds.NorthEast.Lon = east
	}
	if !math.IsNaN(west) {
		bounds.SouthWest.Lon = west
	}
	z := zoom
	if z < 0 {
		z = math.Floor(view.ZoomForBounds(bounds, screenWidth, screenHeight, cfg.View.FitPadding))
	}
	viewport := bounds.Viewport(z)
	if !viewport.Valid() {
		return fmt.Errorf("invalid viewport: %+v", viewport)
	}

	e := engine.FromConfig(cfg, logger)
	e.SetTracks(tracks)
	frame := e.OnViewportChange(viewport)

	st := newStyles()
	fmt.Println(st.title.Render("Viewport"))
	fmt.Println(st.row("North/South", fmt.Sprintf("%.5f / %.5f", viewport.North, viewport.South)))
	fmt.Println(st.row("West/East", fmt.Sprintf("%.5f / %.5f", viewport.West, viewport.East)))
	fmt.Println()
	printFrameStats(st, frame.Stats)

	if geojsonFile != "" {
		if err := writeGeoJSON(geojsonFile, frame); err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(st.muted.Render("GeoJSON written to " + geojsonFile))
	}
	return nil
}

func printFrameStats(st styles, s engine.Stats) {
	fmt.Println(st.title.Render("Frame"))
	fmt.Println(st.row("Visible tiles", humanize.Comma(s.VisibleTiles)))
	fmt.Println(st.row("Zoom", fmt.Sprintf("%.1f", s.Zoom)))
	fmt.Println(st.row("Visible tracks", humanize.Comma(int64(s.VisibleTracks))))
	fmt.Println(st.row("Raw points", humanize.Comma(int64(s.RawPoints))))
	fmt.Println(st.row("Simplified points", humanize.Comma(int64(s.SimplifiedPoints))))
	for _, p := range s.Passes {
		label := fmt.Sprintf("Dedupe %gm removed", p.ToleranceMeters)
		fmt.Println(st.row(label, humanize.Comma(int64(p.Removed()))))
	}
	fmt.Println(st.row("Deduped points", humanize.Comma(int64(s.DedupedPoints))))
	fmt.Println(st.row("Rendered points", humanize.Comma(int64(s.RenderedPoints))))
}

func writeGeoJSON(path string, frame engine.Frame) error {
	fc := geojson.NewFeatureCollection()
	for _, seg := range frame.Segments() {
		var g orb.Geometry
		if len(seg.Points) == 1 {
			g = orb.Point{seg.Points[0].Lon, seg.Points[0].Lat}
		} else {
			ls := make(orb.LineString, len(seg.Points))
			for i, p := range seg.Points {
				ls[i] = orb.Point{p.Lon, p.Lat}
			}
			g = ls
		}
		f := geojson.NewFeature(g)
		f.Properties["track"] = frame.Tracks[seg.Track].Name
		f.Properties["track_index"] = seg.Track
		f.Properties["start_index"] = seg.Start
		fc.Append(f)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode geojson: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write geojson: %w", err)
	}
	return nil
}

func runCenter(cmd *cobra.Command, args []string) error {
	tracks, err := loadTracks(args)
	if err != nil {
		return err
	}
	c := view.CenterOr(tracks, cfg.View.DefaultCenter)
	fmt.Printf("%.6f,%.6f\n", c.Lat, c.Lon)
	return nil
}

// selectTrack loads the file and picks the --track entry
func selectTrack(args []string) (models.Track, error) {
	tracks, err := loadTracks(args)
	if err != nil {
		return models.Track{}, err
	}
	if trackIndex < 0 || trackIndex >= len(tracks) {
		return models.Track{}, fmt.Errorf("track index %d out of range, file has %d tracks", trackIndex, len(tracks))
	}
	return tracks[trackIndex], nil
}

func runElevation(cmd *cobra.Command, args []string) error {
	track, err := selectTrack(args)
	if err != nil {
		return err
	}
	profile := elevation.Profile(track, cfg.Elevation)
	if len(profile) == 0 {
		return fmt.Errorf("track %q has no elevation data", track.Name)
	}

	st := newStyles()
	fmt.Println(st.title.Render(track.Name))
	fmt.Println(st.header.Render(fmt.Sprintf("%10s %10s %10s", "km", "raw", "smoothed")))
	every := max(profileSample, 1)
	for i, p := range profile {
		if i%every != 0 && i != len(profile)-1 {
			continue
		}
		line := fmt.Sprintf("%10.2f %10.1f %10.1f", p.Distance/1000, p.Elevation, p.Smoothed)
		if math.Abs(p.Elevation-p.Smoothed) > 3*cfg.Elevation.Threshold*cfg.Elevation.MinSpread {
			line = st.warn.Render(line)
		}
		fmt.Println(line)
	}

	lo, hi, _ := elevation.Domain(profile)
	fmt.Println()
	fmt.Println(st.row("Chart domain", fmt.Sprintf("%s .. %s", metrics.FormatElevation(lo), metrics.FormatElevation(hi))))
	return nil
}

func runSpeed(cmd *cobra.Command, args []string) error {
	track, err := selectTrack(args)
	if err != nil {
		return err
	}
	profile := metrics.SpeedProfile(track, cfg.Elevation)
	if len(profile) == 0 {
		return fmt.Errorf("track %q has no timestamps", track.Name)
	}

	st := newStyles()
	fmt.Println(st.title.Render(track.Name))
	fmt.Println(st.header.Render(fmt.Sprintf("%10s %12s %12s", "km", "raw", "smoothed")))
	every := max(profileSample, 1)
	for i, p := range profile {
		if i%every != 0 && i != len(profile)-1 {
			continue
		}
		line := fmt.Sprintf("%10.2f %12s %12s", p.Distance/1000, metrics.FormatSpeed(p.Speed), metrics.FormatSpeed(p.Smoothed))
		if p.Speed > 2*p.Smoothed+1 {
			line = st.warn.Render(line)
		}
		fmt.Println(line)
	}
	return nil
}

type styles struct {
	title  lipgloss.Style
	header lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	muted  lipgloss.Style
	warn   lipgloss.Style
}

func newStyles() styles {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		plain := lipgloss.NewStyle()
		return styles{title: plain, header: plain, label: plain.Width(22), value: plain, muted: plain, warn: plain}
	}
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		header: lipgloss.NewStyle().Bold(true).Underline(true),
		label:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(22),
		value:  lipgloss.NewStyle().Bold(true),
		muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")),
	}
}

func (s styles) row(label, value string) string {
	return s.label.Render(strings.TrimSpace(label)) + s.value.Render(value)
}
