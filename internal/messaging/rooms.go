package messaging

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"
)

// RoomHeader carries the room key a message is published to.
const RoomHeader = "room"

// RoomFilter is the Kafka side of room membership. Every board instance
// reads the whole topic in its own consumer group; the filter keeps only the
// messages whose room header names a joined room. Messages without a room
// header are broadcasts and always pass.
type RoomFilter struct {
	mu    sync.RWMutex
	rooms map[string]struct{}
}

func NewRoomFilter() *RoomFilter {
	return &RoomFilter{rooms: make(map[string]struct{})}
}

func (f *RoomFilter) Subscribe(_ context.Context, room string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[room] = struct{}{}
	return nil
}

func (f *RoomFilter) Unsubscribe(_ context.Context, room string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms, room)
	return nil
}

func (f *RoomFilter) Allow(msg kafka.Message) bool {
	room := NewMessageCarrier(&msg).Room()
	if room == "" {
		return true
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.rooms[room]
	return ok
}
