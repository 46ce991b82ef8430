package cmds

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/testnetctl/pkg/proc"
	"github.com/go-go-golems/testnetctl/pkg/state"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	upStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	downStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type nodeStatus struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	PID      int    `json:"pid"`
	Alive    bool   `json:"alive"`
	State    string `json:"state,omitempty"`
	MemoryMB int64  `json:"memory_mb,omitempty"`
	Dir      string `json:"dir"`
}

func newStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show liveness of the nodes launched into the nodes directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			net, err := state.Load(opts.NodesDir)
			if err != nil {
				return errors.Wrapf(err, "no network record under %s", opts.NodesDir)
			}

			statuses := probeNodes(net)

			if asJSON {
				b, err := json.MarshalIndent(map[string]any{"nodes": statuses}, "", "  ")
				if err != nil {
					return errors.Wrap(err, "marshal status")
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, headerStyle.Render(
				fmt.Sprintf("%-14s %7s %-6s %-6s %8s", "NODE", "PID", "UP", "STATE", "MEM(MB)")))
			for _, s := range statuses {
				up := downStyle.Render("down")
				if s.Alive {
					up = upStyle.Render("up")
				}
				_, _ = fmt.Fprintf(out, "%-14s %7d %-6s %-6s %8d\n",
					s.Name, s.PID, up, s.State, s.MemoryMB)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}

// probeNodes checks every recorded node against the live process table.
// Probes are independent and hit /proc, so they run concurrently.
func probeNodes(net *state.Network) []nodeStatus {
	statuses := make([]nodeStatus, len(net.Nodes))
	var g errgroup.Group
	for i, rec := range net.Nodes {
		g.Go(func() error {
			s := nodeStatus{
				Index: rec.Index,
				Name:  rec.Name,
				PID:   rec.PID,
				Alive: state.ProcessAlive(rec.PID),
				Dir:   rec.Dir,
			}
			if s.Alive {
				if st, err := proc.ReadStats(rec.PID); err == nil {
					s.State = st.State
					s.MemoryMB = st.MemoryMB
				}
			}
			statuses[i] = s
			return nil
		})
	}
	_ = g.Wait()
	return statuses
}
