package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"go-tiles/internal/config"
	"go-tiles/internal/game"
	"go-tiles/internal/level"
	"go-tiles/internal/progress"
	"go-tiles/internal/state"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // Hazards and failures
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // Matches and clears
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	boldStyle   = lipgloss.NewStyle().Bold(true)

	tileStyle = lipgloss.NewStyle().
			Width(4).
			Align(lipgloss.Center).
			Border(lipgloss.RoundedBorder())
	hiddenTileStyle  = tileStyle.BorderForeground(lipgloss.Color("8"))
	flippedTileStyle = tileStyle.BorderForeground(lipgloss.Color("11"))
	matchedTileStyle = tileStyle.BorderForeground(lipgloss.Color("10")).Faint(true)
	hazardTileStyle  = tileStyle.BorderForeground(lipgloss.Color("9"))
)

type LocalState struct {
	Session   *game.Session
	scheduler *teaScheduler
	keys      keyMap
	help      help.Model
	cursor    int
	banner    string
}

// resolveMsg carries an elapsed resolution back into Update.
type resolveMsg state.Deferred

// teaScheduler turns scheduled resolutions into tea.Tick commands so they are
// delivered through the program's single Update loop.
type teaScheduler struct {
	cmds []tea.Cmd
}

func (s *teaScheduler) After(delay time.Duration, d state.Deferred) {
	s.cmds = append(s.cmds, tea.Tick(delay, func(time.Time) tea.Msg {
		return resolveMsg(d)
	}))
}

func (s *teaScheduler) Drain() tea.Cmd {
	cmds := s.cmds
	s.cmds = nil
	return tea.Batch(cmds...)
}

// uiNotifier turns round notifications into status messages. Tile faces are
// drawn from the session snapshot.
type uiNotifier struct {
	state.NopNotifier
	m *LocalState
}

func (n uiNotifier) BoardReset(tiles []level.Tile, cfg level.Config) {
	if n.m.cursor >= len(tiles) {
		n.m.cursor = 0
	}
}

func (n uiNotifier) HazardTriggered(position, livesRemaining int) {
	n.m.banner = redStyle.Render(fmt.Sprintf("BOOM! 💥 You lost a life. Lives left: %d", livesRemaining))
}

func (n uiNotifier) LevelCleared(lvl int) {
	n.m.banner = greenStyle.Render(fmt.Sprintf("Well done! Level %d cleared.", lvl))
}

func (n uiNotifier) LevelFailed(lvl int) {
	n.m.banner = redStyle.Render(fmt.Sprintf("Every life is gone! Level %d starts over.", lvl))
}

func (n uiNotifier) AllLevelsCompleted() {
	n.m.banner = greenStyle.Render("Congratulations! You completed every level. Back to level 1.")
}

func initialModel(cfg *config.Config, opts game.Options, logger *log.Logger) (*LocalState, error) {
	m := &LocalState{
		scheduler: &teaScheduler{},
		keys:      defaultKeyMap(),
		help:      help.New(),
	}

	sess, err := game.NewSession(cfg.Levels, cfg.Pool(), opts, uiNotifier{m: m}, m.scheduler, logger)
	if err != nil {
		return nil, err
	}
	m.Session = sess

	if err := sess.Start(); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *LocalState) Init() tea.Cmd {
	// Start may already have scheduled the opening preview.
	return s.scheduler.Drain()
}

func (s *LocalState) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resolveMsg:
		s.Session.Fire(state.Deferred(msg))
	case tea.WindowSizeMsg:
		s.help.Width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, s.keys.Quit):
			return s, tea.Quit
		case key.Matches(msg, s.keys.Up):
			s.moveCursor(0, -1)
		case key.Matches(msg, s.keys.Down):
			s.moveCursor(0, 1)
		case key.Matches(msg, s.keys.Left):
			s.moveCursor(-1, 0)
		case key.Matches(msg, s.keys.Right):
			s.moveCursor(1, 0)
		case key.Matches(msg, s.keys.Flip):
			if s.Session.Flip(s.cursor) {
				s.banner = ""
			}
		case key.Matches(msg, s.keys.Preview):
			s.Session.Preview()
		case key.Matches(msg, s.keys.Restart):
			if err := s.Session.Restart(); err == nil {
				s.banner = ""
			}
		case key.Matches(msg, s.keys.Help):
			s.help.ShowAll = !s.help.ShowAll
		}
	}

	return s, s.scheduler.Drain()
}

func (s *LocalState) moveCursor(dx, dy int) {
	snap := s.Session.Snapshot()
	n := len(snap.Tiles)
	if n == 0 {
		return
	}
	cols := columnsFor(snap.Config)
	row, col := s.cursor/cols, s.cursor%cols
	row += dy
	col += dx
	if col < 0 || col >= cols || row < 0 {
		return
	}
	if next := row*cols + col; next < n {
		s.cursor = next
	}
}

// columnsFor maps the layout hint to a grid width.
func columnsFor(cfg level.Config) int {
	switch cfg.Layout {
	case "board-small":
		return 4
	case "board-medium":
		return 5
	case "board-large":
		return 6
	}
	return int(math.Ceil(math.Sqrt(float64(cfg.TileCount()))))
}

func (s *LocalState) RenderBoard(snap state.Snapshot) string {
	cols := columnsFor(snap.Config)
	var rows []string
	var row []string

	for i, tile := range snap.Tiles {
		face := "?"
		style := hiddenTileStyle
		if snap.Revealed(i) {
			face = string(tile.Symbol)
			switch {
			case tile.IsHazard():
				style = hazardTileStyle
			case tile.State == level.Matched:
				style = matchedTileStyle
			default:
				style = flippedTileStyle
			}
		}
		if i == s.cursor {
			style = style.Reverse(true)
		}
		row = append(row, style.Render(face))

		if len(row) == cols || i == len(snap.Tiles)-1 {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (s *LocalState) View() string {
	snap := s.Session.Snapshot()

	var b strings.Builder
	b.WriteString(boldStyle.Render(fmt.Sprintf("LEVEL %d / %d", snap.Level, s.Session.Table.Len())))
	b.WriteString("\n\n")
	b.WriteString(s.RenderBoard(snap))
	b.WriteString("\n\n")

	status := fmt.Sprintf("PAIRS: %d / %d | LIVES: %s", snap.MatchedPairs, snap.Config.Pairs, livesText(snap))
	if snap.Phase == state.Previewing {
		status += " | MEMORISE THE BOARD!"
	}
	b.WriteString(statusStyle.Render(status))
	b.WriteString("\n")

	if s.banner != "" {
		b.WriteString("\n" + s.banner + "\n")
	}

	b.WriteString("\n" + s.help.View(s.keys))
	return b.String()
}

func livesText(snap state.Snapshot) string {
	maxLives := snap.Config.Hazards
	if maxLives == 0 {
		return "none needed"
	}
	hearts := "💔"
	if snap.Lives > 0 {
		hearts = strings.Repeat("❤️", snap.Lives)
	}
	return fmt.Sprintf("%s (%d/%d)", hearts, snap.Lives, maxLives)
}

var (
	flagConfig          string
	flagLevel           int
	flagSeed            int64
	flagPreview         bool
	flagRestartOnHazard bool
	flagLogFile         string
	flagLogLevel        string
)

var rootCmd = &cobra.Command{
	Use:   "go-tiles",
	Short: "Memory tile game with hazards and levels",
	Long: `go-tiles is a terminal memory game. Flip two tiles at a time to find
matching symbols. Hazard tiles cost a life; lose every life and the level
starts over on a new board. Clear a level to move on to the next one.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Level table YAML (default: ~/.config/go-tiles/levels.yaml, ./configs/levels.yaml, built-in)")
	rootCmd.Flags().IntVarP(&flagLevel, "level", "l", 1, "Level to start on")
	rootCmd.Flags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")
	rootCmd.Flags().BoolVar(&flagPreview, "preview", true, "Show the whole board briefly at the start of every round")
	rootCmd.Flags().BoolVar(&flagRestartOnHazard, "restart-on-hazard", false, "Restart the level on every hazard hit instead of only when out of lives")
	rootCmd.Flags().StringVar(&flagLogFile, "log-file", "", "Write logs to this file")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

// newLogger returns a nil file when logging is disabled.
func newLogger() (*log.Logger, *os.File, error) {
	if flagLogFile == "" {
		return log.New(io.Discard), nil, nil
	}

	lvl, err := log.ParseLevel(flagLogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", flagLogLevel, err)
	}

	f, err := os.OpenFile(flagLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		Prefix:          "go-tiles",
		Level:           lvl,
	})
	return logger, f, nil
}

func run(cmd *cobra.Command, args []string) error {
	logger, logFile, err := newLogger()
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	logger.Info("config loaded", "source", cfg.Source, "levels", cfg.Levels.Len())

	opts := game.Options{
		StartLevel: flagLevel,
		Seed:       flagSeed,
		Preview:    flagPreview,
		Timings:    cfg.Timings,
	}
	if flagRestartOnHazard {
		opts.Policy = state.RestartRound
	}

	model, err := initialModel(cfg, opts, logger)
	if err != nil {
		return fmt.Errorf("error initializing game: %w", err)
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running the program: %w", err)
	}

	fmt.Print(summary(model.Session.Progress))
	return nil
}

// summary is printed once the TUI has exited.
func summary(prog *progress.Tracker) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pairs matched: %d | Hazards hit: %d | Levels cleared: %d | Full runs: %d\n",
		prog.PairsMatched, prog.HazardsHit, prog.LevelsCleared, prog.Completions)
	for _, l := range prog.Levels() {
		fmt.Fprintf(&b, "  Level %d: %d attempts, %d cleared, %d failed\n", l.Level, l.Attempts, l.Clears, l.Failures)
	}
	return b.String()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
