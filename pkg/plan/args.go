package plan

import (
	"encoding/json"
	"net"
	"path/filepath"
	"sort"
)

// ArgBuilder accumulates command-line tokens as an ordered sequence of
// flags and (flag, value) pairs.
type ArgBuilder struct {
	tokens []string
}

// Flag appends a bare flag token.
func (b *ArgBuilder) Flag(name string) *ArgBuilder {
	b.tokens = append(b.tokens, name)
	return b
}

// Pair appends a flag followed by its value.
func (b *ArgBuilder) Pair(name, value string) *ArgBuilder {
	b.tokens = append(b.tokens, name, value)
	return b
}

// Tokens returns the accumulated argument list.
func (b *ArgBuilder) Tokens() []string {
	return b.tokens
}

// Compose produces the full argument list for one node: the plan's base
// arguments, the node's extra arguments, the data/log directory pair, and
// the role-specific bootstrap arguments. It performs no I/O and is
// deterministic for a given plan and node.
func Compose(p *Plan, n Node) []string {
	b := &ArgBuilder{}
	b.tokens = append(b.tokens, p.Args...)
	b.tokens = append(b.tokens, n.ExtraArgs...)

	b.Pair("--root-dir", n.Dir)
	b.Pair("--log-dir", n.Dir)

	switch n.Role {
	case RoleGenesis:
		b.Flag("--first")
		b.Flag(genesisBindAddr(p.IP))
	case RoleJoining, RoleExternalJoin:
		if len(n.Contacts) > 0 {
			b.Pair("--hard-coded-contacts", encodeContacts(n.Contacts))
		}
	}

	return b.Tokens()
}

// Command resolves the executable and argument vector for a node,
// accounting for the optional profiling harness. In flamegraph mode the
// node command is nested under the harness and the flame output lands in
// the node directory.
func Command(p *Plan, n Node) (string, []string) {
	args := Compose(p, n)
	if len(p.Wrap) == 0 {
		return p.NodePath, args
	}

	wrapped := append([]string{}, p.Wrap[1:]...)
	wrapped = append(wrapped, "--output", filepath.Join(n.Dir, "flame.svg"))
	wrapped = append(wrapped, "--", p.NodePath)
	wrapped = append(wrapped, args...)
	return p.Wrap[0], wrapped
}

// Environ renders the plan's base environment as KEY=VALUE entries, in
// declaration order.
func Environ(p *Plan) []string {
	out := make([]string, 0, len(p.Env))
	for _, e := range p.Env {
		out = append(out, e.Key+"="+e.Value)
	}
	return out
}

func genesisBindAddr(ip string) string {
	if ip == "" {
		ip = "127.0.0.1"
	}
	return net.JoinHostPort(ip, "0")
}

// encodeContacts serializes the contact set as the inline JSON list the
// worker binary expects. Duplicates are collapsed and the result is sorted
// so composition stays deterministic regardless of input order.
func encodeContacts(contacts []string) string {
	seen := map[string]bool{}
	uniq := make([]string, 0, len(contacts))
	for _, c := range contacts {
		if seen[c] {
			continue
		}
		seen[c] = true
		uniq = append(uniq, c)
	}
	sort.Strings(uniq)

	// Marshalling a string slice cannot fail.
	b, _ := json.Marshal(uniq)
	return string(b)
}
