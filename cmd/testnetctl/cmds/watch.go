package cmds

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/testnetctl/pkg/state"
)

var (
	watchTitleStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	watchHelpStyle  = lipgloss.NewStyle().Faint(true).Padding(0, 1)
	watchBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type watchTickMsg time.Time

type watchModel struct {
	nodesDir string
	every    time.Duration
	table    table.Model
	loadErr  string
}

func newWatchModel(nodesDir string, every time.Duration) watchModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "NODE", Width: 14},
			{Title: "PID", Width: 8},
			{Title: "UP", Width: 5},
			{Title: "STATE", Width: 6},
			{Title: "MEM(MB)", Width: 8},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	m := watchModel{nodesDir: nodesDir, every: every, table: t}
	m.refresh()
	return m
}

func (m watchModel) Init() tea.Cmd {
	return m.tick()
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(m.every, func(t time.Time) tea.Msg { return watchTickMsg(t) })
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.KeyMsg:
		switch v.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h := v.Height - 6
		if h < 3 {
			h = 3
		}
		m.table.SetHeight(h)
	case watchTickMsg:
		m.refresh()
		return m, m.tick()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *watchModel) refresh() {
	net, err := state.Load(m.nodesDir)
	if err != nil {
		m.loadErr = fmt.Sprintf("no network record under %s", m.nodesDir)
		m.table.SetRows(nil)
		return
	}
	m.loadErr = ""

	statuses := probeNodes(net)
	rows := make([]table.Row, 0, len(statuses))
	for _, s := range statuses {
		up := "down"
		if s.Alive {
			up = "up"
		}
		rows = append(rows, table.Row{
			s.Name,
			strconv.Itoa(s.PID),
			up,
			s.State,
			strconv.FormatInt(s.MemoryMB, 10),
		})
	}
	m.table.SetRows(rows)
}

func (m watchModel) View() string {
	body := m.table.View()
	if m.loadErr != "" {
		body = m.loadErr
	}
	return watchTitleStyle.Render("testnet nodes") + "\n" +
		watchBoxStyle.Render(body) + "\n" +
		watchHelpStyle.Render("q: quit")
}

func newWatchCmd() *cobra.Command {
	var every time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch node liveness in a live table",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			prog := tea.NewProgram(newWatchModel(opts.NodesDir, every))
			_, err = prog.Run()
			return err
		},
	}

	cmd.Flags().DurationVar(&every, "refresh", time.Second, "How often to re-poll node liveness")
	return cmd
}
