// Package rooms tracks which branch and tenant rooms this board instance
// listens to. The push transport does the actual subscription.
package rooms

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

type Kind string

const (
	KindBranch Kind = "branch"
	KindTenant Kind = "tenant"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindBranch, KindTenant:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown room kind %q", s)
	}
}

func BranchKey(id string) string { return Key(KindBranch, id) }

func TenantKey(id string) string { return Key(KindTenant, id) }

// Key returns the room key for kind and id, or "" when id is empty.
func Key(kind Kind, id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	return string(kind) + "_" + id
}

// Subscriber starts or stops delivery of events published to a room.
type Subscriber interface {
	Subscribe(ctx context.Context, room string) error
	Unsubscribe(ctx context.Context, room string) error
}

type Manager struct {
	mu     sync.Mutex
	joined map[string]struct{}
	sub    Subscriber
	logger *slog.Logger
}

func NewManager(sub Subscriber, logger *slog.Logger) *Manager {
	return &Manager{
		joined: make(map[string]struct{}),
		sub:    sub,
		logger: logger,
	}
}

// Join subscribes to room once. Joining a room already joined is a no-op.
func (m *Manager) Join(ctx context.Context, room string) error {
	if room == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.joined[room]; ok {
		return nil
	}
	if err := m.sub.Subscribe(ctx, room); err != nil {
		return fmt.Errorf("join room %s: %w", room, err)
	}
	m.joined[room] = struct{}{}

	m.logger.Info("joined room", "room", room)
	return nil
}

// Leave always asks the subscriber to unsubscribe, even for a room that was
// never joined here, and forgets the room.
func (m *Manager) Leave(ctx context.Context, room string) error {
	if room == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.joined, room)
	if err := m.sub.Unsubscribe(ctx, room); err != nil {
		return fmt.Errorf("leave room %s: %w", room, err)
	}

	m.logger.Info("left room", "room", room)
	return nil
}

func (m *Manager) Joined() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.joined))
	for room := range m.joined {
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}
