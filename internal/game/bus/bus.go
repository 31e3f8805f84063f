// Package bus implements the event bus and client Handle API: a bounded,
// topic-based broadcast of everything the runtime worker produces, so
// UIs, the HTTP/WS surface, and test harnesses can all subscribe without
// coupling to the worker's internals.
package bus

import (
	"strconv"
	"sync"

	"github.com/0xwonj/dungeon-sim/internal/game/events"
	"github.com/0xwonj/dungeon-sim/internal/game/primitives"
	"github.com/0xwonj/dungeon-sim/internal/game/state"
	"github.com/0xwonj/dungeon-sim/internal/game/zkvm"
	"github.com/0xwonj/dungeon-sim/pkg/logger"
)

// Topic names one of the bus's broadcast channels: GameState, Proof, Turn.
type Topic string

const (
	TopicGameState Topic = "game_state"
	TopicProof     Topic = "proof"
	TopicTurn      Topic = "turn"
)

// GameStateMessage is published to TopicGameState after every executed
// action, carrying the events it produced (including handler cascades).
type GameStateMessage struct {
	Nonce  uint64              `json:"nonce"`
	Events []events.GameEvent  `json:"events"`
	Delta  state.StateDelta    `json:"delta"`
}

// ProofMessage is published to TopicProof once a nonce has been proved
// and the proof verified; Verified and Err carry the verification result.
type ProofMessage struct {
	Proof    zkvm.Proof `json:"proof"`
	Verified bool       `json:"verified"`
	Err      string     `json:"err,omitempty"`
}

// TurnMessage is published to TopicTurn every time PrepareNextTurn picks
// a new current actor.
type TurnMessage struct {
	Actor primitives.EntityId `json:"actor"`
	Clock primitives.Tick     `json:"clock"`
}

// subscriber is one client's bounded mailbox for a single topic.
type subscriber struct {
	id string
	ch chan any
}

// Bus is a bounded multi-topic broadcaster: every Publish fans out to all
// current subscribers of that topic without blocking the publisher — a
// slow subscriber drops messages rather than stalling the simulation.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Topic]map[string]*subscriber
	bufferSize  int
	nextID      uint64
	log         *logger.Logger
}

// New returns a Bus whose per-subscriber mailboxes hold bufferSize
// pending messages before messages start dropping.
func New(bufferSize int, log *logger.Logger) *Bus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	if log == nil {
		log = logger.NewDefault("bus")
	}
	return &Bus{
		subscribers: make(map[Topic]map[string]*subscriber),
		bufferSize:  bufferSize,
		log:         log,
	}
}

// Handle is the client-facing subscription returned by Subscribe: a
// read-only channel plus an Unsubscribe method.
type Handle struct {
	id    string
	topic Topic
	ch    <-chan any
	bus   *Bus
}

// C returns the channel to receive messages on.
func (h *Handle) C() <-chan any { return h.ch }

// Unsubscribe removes this subscription from the bus.
func (h *Handle) Unsubscribe() { h.bus.unsubscribe(h.topic, h.id) }

// Subscribe registers a new client mailbox for topic.
func (b *Bus) Subscribe(topic Topic) *Handle {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := topicSubscriberID(topic, b.nextID)
	sub := &subscriber{id: id, ch: make(chan any, b.bufferSize)}

	if b.subscribers[topic] == nil {
		b.subscribers[topic] = make(map[string]*subscriber)
	}
	b.subscribers[topic][id] = sub

	return &Handle{id: id, topic: topic, ch: sub.ch, bus: b}
}

func (b *Bus) unsubscribe(topic Topic, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.subscribers[topic]; ok {
		if sub, ok := subs[id]; ok {
			close(sub.ch)
			delete(subs, id)
		}
	}
}

// Publish fans msg out to every current subscriber of topic. A full
// mailbox drops the message for that one subscriber and is logged, never
// blocks the caller.
func (b *Bus) Publish(topic Topic, msg any) {
	b.mu.RLock()
	subs := make([]*subscriber, 0, len(b.subscribers[topic]))
	for _, s := range b.subscribers[topic] {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, s := range subs {
		select {
		case s.ch <- msg:
		default:
			b.log.WithField("topic", topic).WithField("subscriber", s.id).Warn("subscriber mailbox full, message dropped")
		}
	}
}

// PublishGameState is a typed convenience wrapper for TopicGameState.
func (b *Bus) PublishGameState(msg GameStateMessage) { b.Publish(TopicGameState, msg) }

// PublishProof is a typed convenience wrapper for TopicProof.
func (b *Bus) PublishProof(msg ProofMessage) { b.Publish(TopicProof, msg) }

// PublishTurn is a typed convenience wrapper for TopicTurn.
func (b *Bus) PublishTurn(msg TurnMessage) { b.Publish(TopicTurn, msg) }

func topicSubscriberID(topic Topic, n uint64) string {
	return string(topic) + "-" + strconv.FormatUint(n, 10)
}
