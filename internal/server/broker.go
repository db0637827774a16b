package server

import (
	"encoding/json"
	"sync"

	"github.com/hunthq/treasurehunt/internal/hunt"
)

// TeamEvent is the payload published to subscribers of a team's topic.
// Team carries the full current document — subscribers always receive the
// latest snapshot, never a delta.
type TeamEvent struct {
	Type string     `json:"type"` // team_updated | team_scanned | scan_released
	Team *hunt.Team `json:"team,omitempty"`
}

// topicLeaderboard carries ordered leaderboard snapshots for scoreboard
// displays.
const topicLeaderboard = "leaderboard"

func teamTopic(teamID string) string { return "team:" + teamID }

// Broker is an in-process pub/sub with at-least-once, drop-on-slow
// delivery. Topics are team IDs plus the leaderboard.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events for the
// given topic.
func (b *Broker) Subscribe(topic string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan []byte]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the topic's subscribers.
func (b *Broker) Unsubscribe(topic string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[topic], ch)
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers of the given topic.
func (b *Broker) Publish(topic string, event any) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs[topic] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
