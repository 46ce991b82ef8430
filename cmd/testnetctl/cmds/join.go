package cmds

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/testnetctl/pkg/launch"
	"github.com/go-go-golems/testnetctl/pkg/orchestrator"
	"github.com/go-go-golems/testnetctl/pkg/plan"
)

func newJoinCmd() *cobra.Command {
	var contacts []string
	var maxCapacity uint64
	var localAddr string
	var publicAddr string
	var clearData bool

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Launch one node that joins an already-known network",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}

			b := &plan.ArgBuilder{}
			if cmd.Flags().Changed("max-capacity") {
				b.Pair("--max-capacity", fmt.Sprintf("%d", maxCapacity))
			}
			if localAddr != "" {
				b.Pair("--local-addr", localAddr)
			}
			if publicAddr != "" {
				b.Pair("--public-addr", publicAddr)
			}
			if clearData {
				b.Flag("--clear-data")
			}

			p := buildPlan(opts, nil)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			version, err := launch.Version(ctx, p.NodePath)
			if err != nil {
				return err
			}
			log.Debug().Str("version", version).Str("path", p.NodePath).Msg("using node binary")

			orch, err := orchestrator.New(launch.New(launch.Options{}), orchestrator.Options{Plan: p})
			if err != nil {
				return err
			}
			if err := orch.Join(ctx, contacts, b.Tokens()); err != nil {
				return err
			}

			log.Debug().Str("dir", p.NodesDir).Msg("node logs are stored in the node directory")
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&contacts, "hard-coded-contacts", "c", nil, "Node addresses to bootstrap from (repeatable)")
	cmd.Flags().Uint64VarP(&maxCapacity, "max-capacity", "m", 0, "Max storage for the node, in bytes")
	cmd.Flags().StringVar(&localAddr, "local-addr", "", "Local network address for the node, e.g. 192.168.1.100:12000")
	cmd.Flags().StringVar(&publicAddr, "public-addr", "", "Public address for the node")
	cmd.Flags().BoolVar(&clearData, "clear-data", false, "Clear data from a previous node run")
	return cmd
}
