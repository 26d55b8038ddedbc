package main

import (
	"fmt"
	"sync"

	"vidrelay/internal/proto"
)

// Session is the per-connection state the dispatcher mutates: the
// authenticated username, the outbound-command channel the handler drains,
// and the "current session" room/stream membership a joined user has.
type Session struct {
	Username string
	Outbound chan proto.Command

	mu       sync.Mutex
	hasRoom  bool
	RoomID   proto.RoomID
	VideoSID proto.StreamID
	AudioSID proto.StreamID
}

func newSession(username string) *Session {
	return &Session{
		Username: username,
		Outbound: make(chan proto.Command, outboundChanCapacity),
	}
}

func (s *Session) setJoined(room proto.RoomID, video, audio proto.StreamID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasRoom = true
	s.RoomID = room
	s.VideoSID = video
	s.AudioSID = audio
}

func (s *Session) clearJoined() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasRoom = false
}

func (s *Session) current() (room proto.RoomID, video, audio proto.StreamID, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.RoomID, s.VideoSID, s.AudioSID, s.hasRoom
}

// enqueue delivers a server-initiated command, dropping the oldest pending
// message on overflow rather than blocking the sender.
func (s *Session) enqueue(cmd proto.Command) {
	select {
	case s.Outbound <- cmd:
		return
	default:
	}
	select {
	case <-s.Outbound:
	default:
	}
	select {
	case s.Outbound <- cmd:
	default:
	}
}

// UserRegistry is the process-wide set of connected usernames, each mapped
// to its Session for server-initiated notification delivery.
type UserRegistry struct {
	mu     sync.RWMutex
	byName map[string]*Session
}

func newUserRegistry() *UserRegistry {
	return &UserRegistry{byName: make(map[string]*Session)}
}

// Add inserts username, rejecting it if already taken.
func (ur *UserRegistry) Add(username string) (*Session, error) {
	ur.mu.Lock()
	defer ur.mu.Unlock()
	if _, exists := ur.byName[username]; exists {
		return nil, fmt.Errorf("username %q is already taken", username)
	}
	sess := newSession(username)
	ur.byName[username] = sess
	return sess, nil
}

// Remove deletes username from the registry.
func (ur *UserRegistry) Remove(username string) {
	ur.mu.Lock()
	defer ur.mu.Unlock()
	delete(ur.byName, username)
}

// List returns all connected usernames.
func (ur *UserRegistry) List() []string {
	ur.mu.RLock()
	defer ur.mu.RUnlock()
	names := make([]string, 0, len(ur.byName))
	for name := range ur.byName {
		names = append(names, name)
	}
	return names
}

// Get returns the session for username, if connected.
func (ur *UserRegistry) Get(username string) (*Session, bool) {
	ur.mu.RLock()
	defer ur.mu.RUnlock()
	s, ok := ur.byName[username]
	return s, ok
}
