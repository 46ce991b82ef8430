package cmds

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/go-go-golems/testnetctl/pkg/events"
	"github.com/go-go-golems/testnetctl/pkg/launch"
	"github.com/go-go-golems/testnetctl/pkg/orchestrator"
	"github.com/go-go-golems/testnetctl/pkg/plan"
)

func newLaunchCmd() *cobra.Command {
	var numNodes int
	var addToExisting bool
	var ip string
	var connInfoPath string
	var flame bool

	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Launch a local test network (genesis node plus N joining nodes)",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("nodes") {
				if env := os.Getenv("NODE_COUNT"); env != "" {
					n, err := strconv.Atoi(env)
					if err != nil {
						return errors.Wrapf(err, "invalid NODE_COUNT %q", env)
					}
					numNodes = n
				}
			}

			idleTimeout, err := cmd.Flags().GetString("idle-timeout-msec")
			if err != nil {
				return err
			}
			keepAlive, err := cmd.Flags().GetString("keep-alive-interval-msec")
			if err != nil {
				return err
			}

			b := &plan.ArgBuilder{}
			b.Pair("--idle-timeout-msec", idleTimeout)
			b.Pair("--keep-alive-interval-msec", keepAlive)

			p := buildPlan(opts, b.Tokens())
			p.IP = ip
			if flame {
				p.Wrap = []string{"flamegraph", "--root"}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			version, err := launch.Version(ctx, p.NodePath)
			if err != nil {
				return err
			}
			log.Debug().Str("version", version).Str("path", p.NodePath).Msg("using node binary")
			log.Debug().Int("nodes", numNodes).Msg("requested network size")

			bus, err := events.NewInMemoryBus()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			bus.AddHandler("launch-progress", events.TopicNodes, func(msg *message.Message) error {
				ev, err := events.ParseNode(msg)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "%s %s (pid %d)\n", ev.Type, ev.Name, ev.PID)
				return nil
			})
			go func() { _ = bus.Run(ctx) }()
			<-bus.Router.Running()

			orch, err := orchestrator.New(launch.New(launch.Options{}), orchestrator.Options{
				Plan:         p,
				ConnInfoPath: connInfoPath,
				Publisher:    bus.Publisher,
			})
			if err != nil {
				return err
			}

			if _, err := orch.Run(ctx, numNodes, addToExisting); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, "Done!")
			return nil
		},
	}

	cmd.Flags().IntVarP(&numNodes, "nodes", "n", 11, "Number of joining nodes to spawn (also NODE_COUNT)")
	cmd.Flags().BoolVar(&addToExisting, "add", false, "Add nodes to an already-running network instead of starting fresh")
	cmd.Flags().StringVar(&ip, "ip", "", "IP the genesis node binds to (port chosen by the OS)")
	cmd.Flags().StringVar(&connInfoPath, "conn-info", "", "Path to the genesis connection info file (defaults to the well-known location under $HOME)")
	cmd.Flags().BoolVar(&flame, "flame", false, "Wrap each node in the flamegraph profiling harness")
	addNetworkFlags(cmd.Flags())
	return cmd
}

// addNetworkFlags registers the tuning flags passed through verbatim to the
// worker binary.
func addNetworkFlags(fs *pflag.FlagSet) {
	fs.String("idle-timeout-msec", "5500", "Interval in msec before deeming a peer to have timed out")
	fs.String("keep-alive-interval-msec", "4000", "Interval in msec between keep-alive messages")
}
