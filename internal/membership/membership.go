// Package membership implements the per-server user/channel store: login
// sessions keyed by transport address, and the channels those users have
// joined, giving the routing core something concrete to route for.
package membership

import (
	"sync"
	"time"

	"github.com/thejanjan/duckchat/internal/wire"
)

// KeepAlive is the user heartbeat timeout: a logged-in user who hasn't
// sent a request (any request, not just a keep-alive) in this long is
// considered disconnected and reaped.
const KeepAlive = 60 * time.Second

// Sender abstracts the shared outbound datagram socket so local delivery
// is non-blocking and testable without a real socket.
type Sender interface {
	SendTo(addr wire.Addr, frame []byte) error
}

// User is one logged-in client: its transport address and chosen
// username. Channel membership lives on the channel side (a map of
// addr->*User) rather than on the user, so a user doesn't need to carry
// its own list of channels around.
type User struct {
	Addr     wire.Addr
	Username string
	expires  time.Time
}

// channel is one local channel record: its canonical name and the set of
// logged-in users currently in it. The user count is always just
// len(users), so there's no separate counter to drift out of sync.
type channel struct {
	name  string
	users map[wire.Addr]*User
}

// Store is the membership store proper. It satisfies topology.Membership
// (HasChannel/EnsureChannel/UserCount/DeleteChannel/LocalChannels/Deliver)
// without importing the topology package, and additionally exposes the
// login/logout/join/leave operations internal/clientreq drives.
type Store struct {
	mu       sync.Mutex
	users    map[wire.Addr]*User
	channels map[string]*channel
	sender   Sender
}

// New builds an empty Store. sender is used only by Deliver, to hand
// TXT_SAY frames to local channel members.
func New(sender Sender) *Store {
	return &Store{
		users:    make(map[wire.Addr]*User),
		channels: make(map[string]*channel),
		sender:   sender,
	}
}

// GetUser looks up a logged-in user by transport address.
func (s *Store) GetUser(addr wire.Addr) (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[addr]
	return u, ok
}

// CreateUser registers addr under name. A stale session already
// registered at addr is logged out first, so a client that reconnects
// without an explicit logout doesn't end up with two overlapping
// sessions at the same address.
func (s *Store) CreateUser(addr wire.Addr, name string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[addr]; ok {
		s.removeUserLocked(addr)
	}
	u := &User{Addr: addr, Username: name, expires: time.Now().Add(KeepAlive)}
	s.users[addr] = u
	return u
}

// RemoveUser logs a user out, removing them from every channel they were
// in and auto-deleting any channel that drops to zero local users.
// Reports whether a user was present to remove.
func (s *Store) RemoveUser(addr wire.Addr) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeUserLocked(addr)
}

func (s *Store) removeUserLocked(addr wire.Addr) bool {
	if _, ok := s.users[addr]; !ok {
		return false
	}
	for name, ch := range s.channels {
		if _, in := ch.users[addr]; in {
			delete(ch.users, addr)
			if len(ch.users) == 0 {
				delete(s.channels, name)
			}
		}
	}
	delete(s.users, addr)
	return true
}

// Heartbeat extends addr's expiry. Called on every request received from
// a logged-in address, not only an explicit keep-alive request, so a
// chatty client never times out just because it hasn't sent one lately.
func (s *Store) Heartbeat(addr wire.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[addr]; ok {
		u.expires = time.Now().Add(KeepAlive)
	}
}

// ReapExpired removes every user whose heartbeat has lapsed as of now,
// and returns the removed addresses so the caller can log them.
func (s *Store) ReapExpired(now time.Time) []wire.Addr {
	s.mu.Lock()
	var expired []wire.Addr
	for addr, u := range s.users {
		if u.expires.Before(now) {
			expired = append(expired, addr)
		}
	}
	s.mu.Unlock()

	for _, addr := range expired {
		s.RemoveUser(addr)
	}
	return expired
}

// IsInChannel reports whether addr is currently a member of name.
func (s *Store) IsInChannel(addr wire.Addr, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[name]
	if !ok {
		return false
	}
	_, in := ch.users[addr]
	return in
}

// JoinChannel adds addr to name, creating the channel record if absent.
// Reports whether the channel was newly created by this join, which is
// the caller's signal to fire off an S2S join announcement.
func (s *Store) JoinChannel(addr wire.Addr, name string) (created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[name]
	if !ok {
		ch = &channel{name: name, users: make(map[wire.Addr]*User)}
		s.channels[name] = ch
		created = true
	}
	if u, ok := s.users[addr]; ok {
		ch.users[addr] = u
	}
	return created
}

// LeaveChannel removes addr from name, auto-deleting the channel record
// once its last local user leaves.
func (s *Store) LeaveChannel(addr wire.Addr, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[name]
	if !ok {
		return
	}
	delete(ch.users, addr)
	if len(ch.users) == 0 {
		delete(s.channels, name)
	}
}

// HasChannel implements topology.Membership.
func (s *Store) HasChannel(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.channels[name]
	return ok
}

// EnsureChannel implements topology.Membership.
func (s *Store) EnsureChannel(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[name]; ok {
		return false
	}
	s.channels[name] = &channel{name: name, users: make(map[wire.Addr]*User)}
	return true
}

// UserCount implements topology.Membership.
func (s *Store) UserCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[name]
	if !ok {
		return 0
	}
	return len(ch.users)
}

// DeleteChannel implements topology.Membership.
func (s *Store) DeleteChannel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, name)
}

// LocalChannels implements topology.Membership.
func (s *Store) LocalChannels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.channels))
	for name := range s.channels {
		names = append(names, name)
	}
	return names
}

// Deliver implements topology.Membership: hand the say to every local
// user currently in channel, on the wire as TXT_SAY.
func (s *Store) Deliver(channelName, user, text string) {
	s.mu.Lock()
	ch, ok := s.channels[channelName]
	var targets []wire.Addr
	if ok {
		targets = make([]wire.Addr, 0, len(ch.users))
		for addr := range ch.users {
			targets = append(targets, addr)
		}
	}
	s.mu.Unlock()

	frame := wire.NewTxtSay(user, channelName, text).Marshal()
	for _, addr := range targets {
		_ = s.sender.SendTo(addr, frame)
	}
}

// ChannelNames lists every channel known locally, for REQ_LIST.
func (s *Store) ChannelNames() []string {
	return s.LocalChannels()
}

// UsersIn returns the usernames of every local user in name, for REQ_WHO.
func (s *Store) UsersIn(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[name]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(ch.users))
	for _, u := range ch.users {
		names = append(names, u.Username)
	}
	return names
}
