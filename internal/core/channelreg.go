package core

import (
	"log/slog"
	"sort"
	"sync"
)

// ChannelRegistry maps channel names to rooms. Rooms keep their numeric id
// for their whole life; deleting a name leaves the room object (and its
// history) alive for anyone still connected.
type ChannelRegistry struct {
	mu     sync.Mutex
	names  map[string]int
	rooms  map[int]*ChannelRoom
	nextID int
}

func NewChannelRegistry() *ChannelRegistry {
	return &ChannelRegistry{
		names:  make(map[string]int),
		rooms:  make(map[int]*ChannelRoom),
		nextID: 1,
	}
}

func (r *ChannelRegistry) Exists(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.names[name]
	return ok
}

// Open returns the room registered under name, creating it with owner when
// absent. The second result reports creation.
func (r *ChannelRegistry) Open(name, owner string) (*ChannelRoom, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.names[name]; ok {
		return r.rooms[id], false
	}
	room := NewChannelRoom(name, owner)
	r.names[name] = r.nextID
	r.rooms[r.nextID] = room
	r.nextID++
	slog.Info("channel created", "name", name, "owner", owner)
	return room, true
}

// Restore registers a loaded room under a fixed id.
func (r *ChannelRegistry) Restore(id int, room *ChannelRoom) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[room.Name()] = id
	r.rooms[id] = room
	if id >= r.nextID {
		r.nextID = id + 1
	}
}

// Delete unregisters name. The room object itself stays alive for members
// still inside it.
func (r *ChannelRegistry) Delete(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.names[name]; !ok {
		return false
	}
	delete(r.names, name)
	slog.Info("channel deleted", "name", name)
	return true
}

// Rename moves old's registration to new. Reports whether the rename
// happened; it fails when old is unregistered or new is taken.
func (r *ChannelRegistry) Rename(old, new string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.names[old]
	if !ok {
		return false
	}
	if _, taken := r.names[new]; taken {
		return false
	}
	delete(r.names, old)
	r.names[new] = id
	return true
}

// Names lists the registered channel names ordered by creation.
func (r *ChannelRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return r.names[names[i]] < r.names[names[j]]
	})
	return names
}

// ID returns the stable numeric id registered for name.
func (r *ChannelRegistry) ID(name string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.names[name]
	return id, ok
}

// Rooms returns the registered rooms ordered by id.
func (r *ChannelRegistry) Rooms() []*ChannelRoom {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0, len(r.names))
	for _, id := range r.names {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	rooms := make([]*ChannelRoom, 0, len(ids))
	for _, id := range ids {
		rooms = append(rooms, r.rooms[id])
	}
	return rooms
}
