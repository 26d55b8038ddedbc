package main

import (
	"fmt"
	"net"
	"sync"

	"vidrelay/internal/proto"
)

// streamEntry is one row of a room's video or audio stream table: a
// StreamID inserted with an absent address at join time, bound to a peer
// address on the first matching datagram, and never cleared thereafter.
type streamEntry struct {
	owner string
	addr  net.Addr // nil until address-learned
}

// Room is a process-wide record: a unique name, an ordered, duplicate-free
// member list, and two stream tables (video, audio) each mapping a
// StreamID to an optional peer address.
//
// mu guards only the two stream tables; membership and identity are guarded
// by the owning RoomRegistry's lock, which is the single serialization point
// for membership changes.
type Room struct {
	ID      proto.RoomID
	Name    string
	Members []string

	mu    sync.Mutex
	Video map[proto.StreamID]*streamEntry
	Audio map[proto.StreamID]*streamEntry
}

func newRoom(id proto.RoomID, name string) *Room {
	return &Room{
		ID:    id,
		Name:  name,
		Video: make(map[proto.StreamID]*streamEntry),
		Audio: make(map[proto.StreamID]*streamEntry),
	}
}

// hasMember reports whether username is currently listed.
func (r *Room) hasMember(username string) bool {
	for _, m := range r.Members {
		if m == username {
			return true
		}
	}
	return false
}

func (r *Room) removeMember(username string) {
	out := r.Members[:0]
	for _, m := range r.Members {
		if m != username {
			out = append(out, m)
		}
	}
	r.Members = out
}

// lookupStream checks video first, then audio, per §4.5.
func (r *Room) lookupStream(sid proto.StreamID) (*streamEntry, bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.Video[sid]; ok {
		return e, true, true
	}
	if e, ok := r.Audio[sid]; ok {
		return e, false, true
	}
	return nil, false, false
}

// otherAddrs returns the known addresses of every other StreamID in the
// same table as sid.
func (r *Room) otherAddrs(sid proto.StreamID, video bool) []net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	table := r.Audio
	if video {
		table = r.Video
	}
	addrs := make([]net.Addr, 0, len(table))
	for id, e := range table {
		if id == sid || e.addr == nil {
			continue
		}
		addrs = append(addrs, e.addr)
	}
	return addrs
}

// joinInsert snapshots the room's pre-existing members and StreamIDs, then
// inserts the new video/audio StreamIDs (absent address) and appends owner
// to Members. Called while the owning RoomRegistry's write lock is held, so
// this is the single serialization point for the whole JoinRoom mutation.
func (r *Room) joinInsert(owner string, video, audio proto.StreamID) (preMembers []string, preVideo, preAudio []proto.StreamID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	preMembers = append([]string(nil), r.Members...)
	preVideo = make([]proto.StreamID, 0, len(r.Video))
	for id := range r.Video {
		preVideo = append(preVideo, id)
	}
	preAudio = make([]proto.StreamID, 0, len(r.Audio))
	for id := range r.Audio {
		preAudio = append(preAudio, id)
	}

	r.Video[video] = &streamEntry{owner: owner}
	r.Audio[audio] = &streamEntry{owner: owner}
	r.Members = append(r.Members, owner)
	return preMembers, preVideo, preAudio
}

// leaveRemove removes sid from whichever table holds it and drops owner
// from Members. Callers must hold the owning RoomRegistry's write lock
// (via withRoomLocked), the same serialization point joinInsert uses.
func (r *Room) leaveRemove(owner string, sid proto.StreamID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Video, sid)
	delete(r.Audio, sid)
	r.removeMember(owner)
}

// learnAddr binds sid's address if it is still absent. It is a no-op if
// the address was already learned (one-shot, never overwritten).
func (r *Room) learnAddr(sid proto.StreamID, video bool, addr net.Addr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	table := r.Audio
	if video {
		table = r.Video
	}
	if e, ok := table[sid]; ok && e.addr == nil {
		e.addr = addr
	}
}

// RoomRegistry is the process-wide mapping of RoomID to Room record.
type RoomRegistry struct {
	mu     sync.RWMutex
	byID   map[proto.RoomID]*Room
	byName map[string]proto.RoomID
}

func newRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		byID:   make(map[proto.RoomID]*Room),
		byName: make(map[string]proto.RoomID),
	}
}

// List returns room names in map iteration order, which is not insertion
// order; callers that need deterministic broadcast order use the
// Room.Members slice, not this listing. This listing is for GetRoomList only.
func (rr *RoomRegistry) List() []string {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	names := make([]string, 0, len(rr.byID))
	for _, r := range rr.byID {
		names = append(names, r.Name)
	}
	return names
}

// Create inserts a new empty room, rejecting a duplicate name.
func (rr *RoomRegistry) Create(name string) (*Room, error) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	if _, exists := rr.byName[name]; exists {
		return nil, fmt.Errorf("a room named %q already exists", name)
	}
	id, err := proto.NewRoomID()
	if err != nil {
		return nil, err
	}
	room := newRoom(id, name)
	rr.byID[id] = room
	rr.byName[name] = id
	return room, nil
}

// Delete removes a room by name; it is rejected if the room has members.
func (rr *RoomRegistry) Delete(name string) error {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	id, ok := rr.byName[name]
	if !ok {
		return fmt.Errorf("no room named %q", name)
	}
	room := rr.byID[id]
	if len(room.Members) > 0 {
		return fmt.Errorf("room has %d active user(s)", len(room.Members))
	}
	delete(rr.byID, id)
	delete(rr.byName, name)
	return nil
}

// ByID returns the room for id, if any, under the read lock.
func (rr *RoomRegistry) ByID(id proto.RoomID) (*Room, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	r, ok := rr.byID[id]
	return r, ok
}

// withNamedRoomLocked runs fn for the room named name, if any, under the
// registry write lock so callers can mutate it atomically with the lookup
// (used by JoinRoom).
func (rr *RoomRegistry) withNamedRoomLocked(name string, fn func(*Room) error) error {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	id, ok := rr.byName[name]
	if !ok {
		return fmt.Errorf("no room named %q", name)
	}
	return fn(rr.byID[id])
}

// withRoomLocked is withNamedRoomLocked's ID-keyed counterpart: it runs fn
// for the room identified by id under the registry write lock, the single
// serialization point for Members mutation (LeaveRoom, Teardown) so it
// stays consistent with joinInsert and Delete's len(Members) check.
func (rr *RoomRegistry) withRoomLocked(id proto.RoomID, fn func(*Room) error) error {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	room, ok := rr.byID[id]
	if !ok {
		return fmt.Errorf("no room with id %v", id)
	}
	return fn(room)
}

// RoomOf finds the room currently containing sid in either table. LeaveRoom
// and teardown do not use it; they locate the room through the session's
// recorded RoomID. Callers hold no lock beforehand; this acquires the
// registry read lock and each room's stream-table lock as it scans.
func (rr *RoomRegistry) RoomOf(sid proto.StreamID) (*Room, bool, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	for _, r := range rr.byID {
		if e, isVideo, ok := r.lookupStream(sid); ok {
			_ = e
			return r, isVideo, true
		}
	}
	return nil, false, false
}
