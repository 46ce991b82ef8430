package cmds

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/testnetctl/pkg/config"
	"github.com/go-go-golems/testnetctl/pkg/plan"
)

// defaultNodeRelPath is where the worker binary is expected when neither
// the flag nor TESTNET_NODE_PATH is set, relative to $HOME.
const defaultNodeRelPath = ".testnet/node/testnet-node"

const defaultNodeLog = "node=debug"

type rootOptions struct {
	NodePath  string
	NodesDir  string
	Interval  time.Duration
	NodeLog   string
	Verbosity int
}

func AddRootFlags(root *cobra.Command) {
	root.PersistentFlags().StringP("node-path", "p", "", "Path to the worker node binary (also TESTNET_NODE_PATH)")
	root.PersistentFlags().StringP("nodes-dir", "d", "./nodes", "Directory where per-node output directories are written")
	root.PersistentFlags().String("config", "", "Path to config file (defaults to .testnetctl.yaml in the working directory)")
	root.PersistentFlags().DurationP("interval", "i", time.Second, "Interval between launching each node")
	root.PersistentFlags().StringP("node-log", "l", "", "Node log filter passed via NODE_LOG (also NODE_LOG)")
	root.PersistentFlags().CountP("nodes-verbosity", "y", "Verbosity level for node logs")
}

func getRootOptions(cmd *cobra.Command) (rootOptions, error) {
	flags := cmd.Root().PersistentFlags()

	cfgPath, err := flags.GetString("config")
	if err != nil {
		return rootOptions{}, err
	}
	if cfgPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return rootOptions{}, err
		}
		cfgPath = config.DefaultPath(cwd)
	}
	cfg, err := config.LoadOptional(cfgPath)
	if err != nil {
		return rootOptions{}, err
	}

	nodePath, err := flags.GetString("node-path")
	if err != nil {
		return rootOptions{}, err
	}
	if nodePath == "" {
		nodePath = os.Getenv("TESTNET_NODE_PATH")
	}
	if nodePath == "" {
		nodePath = cfg.NodePath
	}
	if nodePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return rootOptions{}, errors.Wrap(err, "resolve home directory")
		}
		nodePath = filepath.Join(home, defaultNodeRelPath)
	}

	nodesDir, err := flags.GetString("nodes-dir")
	if err != nil {
		return rootOptions{}, err
	}
	if !flags.Changed("nodes-dir") && cfg.NodesDir != "" {
		nodesDir = cfg.NodesDir
	}
	nodesDir, err = filepath.Abs(nodesDir)
	if err != nil {
		return rootOptions{}, err
	}

	interval, err := flags.GetDuration("interval")
	if err != nil {
		return rootOptions{}, err
	}
	if !flags.Changed("interval") && cfg.Interval != "" {
		interval, err = time.ParseDuration(cfg.Interval)
		if err != nil {
			return rootOptions{}, errors.Wrap(err, "parse interval from config")
		}
	}
	if interval < 0 {
		return rootOptions{}, errors.New("interval must not be negative")
	}

	nodeLog, err := flags.GetString("node-log")
	if err != nil {
		return rootOptions{}, err
	}
	if nodeLog == "" {
		nodeLog = os.Getenv("NODE_LOG")
	}
	if nodeLog == "" {
		nodeLog = cfg.NodeLog
	}
	if nodeLog == "" {
		nodeLog = defaultNodeLog
	}

	verbosity, err := flags.GetCount("nodes-verbosity")
	if err != nil {
		return rootOptions{}, err
	}

	return rootOptions{
		NodePath:  nodePath,
		NodesDir:  nodesDir,
		Interval:  interval,
		NodeLog:   nodeLog,
		Verbosity: verbosity,
	}, nil
}

// buildPlan turns resolved options and subcommand-specific arguments into
// the immutable plan shared by every spawn of the run.
func buildPlan(opts rootOptions, extraArgs []string) *plan.Plan {
	log.Info().Str("node_log", opts.NodeLog).Msg("using NODE_LOG filter")

	// Nodes need at least INFO-level logs; genesis publishes its contact
	// info there.
	args := []string{"-" + strings.Repeat("v", 2+opts.Verbosity)}
	args = append(args, extraArgs...)

	return &plan.Plan{
		NodePath: opts.NodePath,
		NodesDir: opts.NodesDir,
		Interval: opts.Interval,
		Env:      []plan.EnvVar{{Key: "NODE_LOG", Value: opts.NodeLog}},
		Args:     args,
	}
}
