package events

import (
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
)

// TopicNodes carries NodeEvent payloads for one orchestration run.
const TopicNodes = "testnet.nodes"

const (
	EventGenesisLaunched = "genesis-launched"
	EventNodeLaunched    = "node-launched"
	EventNodeJoined      = "node-joined"
)

type NodeEvent struct {
	Type  string    `json:"type"`
	Index int       `json:"index,omitempty"`
	Name  string    `json:"name"`
	PID   int       `json:"pid"`
	Dir   string    `json:"dir"`
	At    time.Time `json:"at"`
}

// PublishNode emits ev on the nodes topic. A nil publisher is a no-op so
// callers without a bus don't need to branch.
func PublishNode(pub message.Publisher, ev NodeEvent) error {
	if pub == nil {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal node event")
	}
	return pub.Publish(TopicNodes, message.NewMessage(watermill.NewUUID(), b))
}

// ParseNode decodes a NodeEvent from a bus message.
func ParseNode(msg *message.Message) (NodeEvent, error) {
	var ev NodeEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return NodeEvent{}, errors.Wrap(err, "parse node event")
	}
	return ev, nil
}
