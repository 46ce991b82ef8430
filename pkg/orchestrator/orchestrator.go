// Package orchestrator sequences node launches: genesis first, then the
// requested number of joining nodes, each bootstrapped from the genesis
// connection info and separated by the configured interval. Launched nodes
// are never supervised; a failure stops further dispatching and leaves
// already-running nodes alone.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/testnetctl/pkg/conninfo"
	"github.com/go-go-golems/testnetctl/pkg/events"
	"github.com/go-go-golems/testnetctl/pkg/launch"
	"github.com/go-go-golems/testnetctl/pkg/plan"
	"github.com/go-go-golems/testnetctl/pkg/state"
)

// GenesisDirName is the working directory of the first node, relative to
// the nodes dir. It counts as node index 1.
const GenesisDirName = "node-genesis"

var (
	// ErrNoExistingNetwork means extending was requested but the nodes dir
	// holds no node directories to extend.
	ErrNoExistingNetwork = errors.New("no existing network found")

	// ErrNoContacts means the genesis connection info yielded an empty
	// address set, so joining nodes have nothing to bootstrap from.
	ErrNoContacts = errors.New("no bootstrap contacts available")
)

// Launcher spawns one node process and performs its liveness check.
type Launcher interface {
	Launch(ctx context.Context, bin, dir string, args, env []string) (launch.Handle, error)
}

type Options struct {
	Plan *plan.Plan

	// ConnInfoPath is where the genesis node publishes its contact
	// addresses. Defaults to the well-known location under $HOME.
	ConnInfoPath string

	// ReadContacts overrides the connection-info reader (tests).
	// Defaults to conninfo.Read.
	ReadContacts func(path string) ([]string, error)

	// Publisher, when set, receives node lifecycle events.
	Publisher message.Publisher
}

type Orchestrator struct {
	launcher Launcher
	opts     Options
}

func New(launcher Launcher, opts Options) (*Orchestrator, error) {
	if launcher == nil {
		return nil, errors.New("missing launcher")
	}
	if opts.Plan == nil {
		return nil, errors.New("missing launch plan")
	}
	if opts.ReadContacts == nil {
		opts.ReadContacts = conninfo.Read
	}
	if opts.ConnInfoPath == "" {
		p, err := conninfo.DefaultPath()
		if err != nil {
			return nil, err
		}
		opts.ConnInfoPath = p
	}
	return &Orchestrator{launcher: launcher, opts: opts}, nil
}

// Run launches a network of count joining nodes, plus a genesis node when
// not extending an existing network. It returns the record of nodes it
// launched, including partial progress when a later launch fails.
func (o *Orchestrator) Run(ctx context.Context, count int, extend bool) (*state.Network, error) {
	if count <= 0 {
		return nil, errors.Errorf("node count must be greater than zero (got %d)", count)
	}

	p := o.opts.Plan
	net := state.LoadOrNew(p.NodesDir)
	// Persist whatever progress was made, even when a later step fails:
	// already-launched nodes keep running and status must see them.
	defer o.save(net)

	existing := 0
	if extend {
		existing = countNodeDirs(p.NodesDir)
		if existing == 0 {
			return nil, errors.Wrapf(ErrNoExistingNetwork, "nothing to extend in %s", p.NodesDir)
		}
		log.Info().Int("existing", existing).Msg("extending existing network")
	} else {
		if err := o.launchGenesis(ctx, net); err != nil {
			return net, err
		}
		if err := sleepCtx(ctx, p.Interval); err != nil {
			return net, err
		}
	}

	contacts, err := o.opts.ReadContacts(o.opts.ConnInfoPath)
	if err != nil {
		return net, errors.Wrap(err, "read genesis connection info")
	}
	if len(contacts) == 0 {
		return net, errors.Wrapf(ErrNoContacts, "connection info at %s is empty", o.opts.ConnInfoPath)
	}
	log.Debug().Strs("contacts", contacts).Msg("genesis contact info")

	if !extend {
		existing = countNodeDirs(p.NodesDir)
		if existing == 0 {
			return net, errors.Wrap(ErrNoExistingNetwork, "genesis node directory not found")
		}
	}

	end := existing + count
	for idx := existing + 1; idx <= end; idx++ {
		name := fmt.Sprintf("node-%d", idx)
		log.Debug().Int("node", idx).Msg("launching node")

		node := plan.Node{
			Role:     plan.RoleJoining,
			Index:    idx,
			Dir:      filepath.Join(p.NodesDir, name),
			Contacts: contacts,
		}
		rec, err := o.launchNode(ctx, node, name)
		if err != nil {
			return net, errors.Wrapf(err, "launch node %d", idx)
		}
		net.Nodes = append(net.Nodes, rec)

		_ = events.PublishNode(o.opts.Publisher, events.NodeEvent{
			Type:  events.EventNodeLaunched,
			Index: idx,
			Name:  name,
			PID:   rec.PID,
			Dir:   rec.Dir,
		})

		if err := sleepCtx(ctx, p.Interval); err != nil {
			return net, err
		}
	}

	log.Info().Int("nodes", count).Msg("all nodes dispatched")
	return net, nil
}

// Join launches exactly one node against an explicitly supplied contact
// list. An empty list is "nothing to join": success, no process spawned.
func (o *Orchestrator) Join(ctx context.Context, contacts []string, extraArgs []string) error {
	contacts = conninfo.Dedupe(contacts)
	if len(contacts) == 0 {
		log.Debug().Msg("no contacts provided; nothing to join")
		return nil
	}

	p := o.opts.Plan
	log.Debug().Strs("contacts", contacts).Msg("joining network")

	node := plan.Node{
		Role:      plan.RoleExternalJoin,
		Dir:       p.NodesDir,
		Contacts:  contacts,
		ExtraArgs: extraArgs,
	}
	bin, args := plan.Command(p, node)
	h, err := o.launcher.Launch(ctx, bin, node.Dir, args, plan.Environ(p))
	if err != nil {
		return errors.Wrap(err, "join node")
	}

	_ = events.PublishNode(o.opts.Publisher, events.NodeEvent{
		Type: events.EventNodeJoined,
		Name: "node",
		PID:  h.PID,
		Dir:  h.Dir,
	})
	log.Info().Int("pid", h.PID).Str("dir", h.Dir).Msg("node joined")
	return nil
}

func (o *Orchestrator) launchGenesis(ctx context.Context, net *state.Network) error {
	p := o.opts.Plan
	log.Debug().Msg("launching genesis node (#1)")

	node := plan.Node{
		Role:  plan.RoleGenesis,
		Index: 1,
		Dir:   filepath.Join(p.NodesDir, GenesisDirName),
	}
	rec, err := o.launchNode(ctx, node, GenesisDirName)
	if err != nil {
		return errors.Wrap(err, "launch genesis node")
	}
	rec.Genesis = true
	net.Nodes = append(net.Nodes, rec)

	_ = events.PublishNode(o.opts.Publisher, events.NodeEvent{
		Type:  events.EventGenesisLaunched,
		Index: 1,
		Name:  GenesisDirName,
		PID:   rec.PID,
		Dir:   rec.Dir,
	})
	return nil
}

func (o *Orchestrator) launchNode(ctx context.Context, node plan.Node, name string) (state.NodeRecord, error) {
	p := o.opts.Plan
	bin, args := plan.Command(p, node)
	h, err := o.launcher.Launch(ctx, bin, node.Dir, args, plan.Environ(p))
	if err != nil {
		return state.NodeRecord{}, err
	}
	return state.NodeRecord{
		Index:     node.Index,
		Name:      name,
		PID:       h.PID,
		Dir:       h.Dir,
		StartedAt: time.Now(),
	}, nil
}

// save persists whatever progress was made; the record is informational,
// so persistence failures only warn. Nothing is written when no node was
// ever launched.
func (o *Orchestrator) save(net *state.Network) {
	if len(net.Nodes) == 0 {
		return
	}
	if err := state.Save(o.opts.Plan.NodesDir, net); err != nil {
		log.Warn().Err(err).Msg("could not persist network state")
	}
}

// countNodeDirs counts node working directories under nodesDir. Plain
// files (the network record among them) don't count.
func countNodeDirs(nodesDir string) int {
	entries, err := os.ReadDir(nodesDir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			n++
		}
	}
	return n
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "launch interval interrupted")
	case <-t.C:
		return nil
	}
}
