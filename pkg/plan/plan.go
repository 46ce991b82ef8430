package plan

import "time"

// EnvVar is a single environment entry. Order is preserved through
// composition so later entries can override earlier ones at spawn time.
type EnvVar struct {
	Key   string
	Value string
}

// Plan carries everything shared by all node spawns of one orchestration
// run. It is constructed once at startup and never mutated afterwards.
type Plan struct {
	// NodePath is the worker binary to launch.
	NodePath string

	// NodesDir is the directory under which per-node working directories
	// are created.
	NodesDir string

	// Interval is the delay between consecutive node launches.
	Interval time.Duration

	// Env is the base environment appended to the orchestrator's own
	// environment for every node.
	Env []EnvVar

	// Args are the base arguments common to every node (verbosity,
	// network tuning flags). Role-specific arguments are appended by the
	// composer.
	Args []string

	// IP, when set, is the address genesis binds to (port chosen by the
	// OS). Defaults to localhost.
	IP string

	// Wrap, when non-empty, is a profiling harness command the node
	// invocation is nested under (flamegraph mode). The harness writes
	// its output into the node directory.
	Wrap []string
}

// Role distinguishes how a node bootstraps.
type Role int

const (
	// RoleGenesis is the first node of a fresh network. It takes no
	// bootstrap contacts and publishes the connection-info file.
	RoleGenesis Role = iota

	// RoleJoining is a node launched as part of a planned multi-node run,
	// bootstrapping from the genesis connection info.
	RoleJoining

	// RoleExternalJoin is a one-shot node attached to an already-known
	// network with an explicitly supplied contact list.
	RoleExternalJoin
)

func (r Role) String() string {
	switch r {
	case RoleGenesis:
		return "genesis"
	case RoleJoining:
		return "joining"
	case RoleExternalJoin:
		return "external-join"
	default:
		return "unknown"
	}
}

// Node describes a single spawn. Built per node right before launching and
// not retained afterwards.
type Node struct {
	Role  Role
	Index int

	// Dir is the node's working directory; it doubles as the node's data
	// root and log directory.
	Dir string

	// Contacts are the bootstrap addresses for joining roles.
	Contacts []string

	// ExtraArgs are appended after the plan's base arguments, before the
	// role-specific ones.
	ExtraArgs []string
}
