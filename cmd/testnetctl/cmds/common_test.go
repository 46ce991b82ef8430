package cmds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/testnetctl/pkg/plan"
)

func TestBuildPlan_DefaultVerbosityIsInfoLevel(t *testing.T) {
	p := buildPlan(rootOptions{
		NodePath: "/opt/testnet/testnet-node",
		NodesDir: "/tmp/nodes",
		Interval: time.Second,
		NodeLog:  "node=debug",
	}, nil)

	require.Equal(t, []string{"-vv"}, p.Args)
	require.Equal(t, []plan.EnvVar{{Key: "NODE_LOG", Value: "node=debug"}}, p.Env)
	require.Equal(t, time.Second, p.Interval)
}

func TestBuildPlan_VerbosityAndExtraArgs(t *testing.T) {
	p := buildPlan(rootOptions{
		NodePath:  "/opt/testnet/testnet-node",
		NodesDir:  "/tmp/nodes",
		NodeLog:   "node=trace",
		Verbosity: 2,
	}, []string{"--idle-timeout-msec", "5500"})

	require.Equal(t, []string{"-vvvv", "--idle-timeout-msec", "5500"}, p.Args)
}
