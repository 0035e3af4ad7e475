// Package clientreq implements the client-facing request surface: login,
// logout, join, leave, say, list, who, and keep-alive. This is what gives
// the S2S routing core a reason to fire: a user joining a channel is what
// triggers the first outbound join announcement to peers.
package clientreq

import (
	"fmt"

	"github.com/thejanjan/duckchat/internal/membership"
	"github.com/thejanjan/duckchat/internal/topology"
	"github.com/thejanjan/duckchat/internal/wire"
)

// commonChannel is the channel every user is force-joined to on login.
const commonChannel = "Common"

// Sender abstracts the shared outbound datagram socket.
type Sender interface {
	SendTo(addr wire.Addr, frame []byte) error
}

// Logger emits the ambient per-request log line.
type Logger interface {
	LogRequest(self, client wire.Addr, verb, args string)
}

// Handler dispatches one decoded client-boundary frame at a time. It is
// not safe for the dispatcher to invoke concurrently with other
// topology/membership mutation: both must stay on the single cooperative
// dispatch goroutine.
type Handler struct {
	self   wire.Addr
	store  *membership.Store
	topo   *topology.Topology
	sender Sender
	log    Logger
}

// New builds a Handler wired to the given membership store and routing
// core.
func New(self wire.Addr, store *membership.Store, topo *topology.Topology, sender Sender, log Logger) *Handler {
	return &Handler{self: self, store: store, topo: topo, sender: sender, log: log}
}

func (h *Handler) logRecv(from wire.Addr, verb, args string) {
	if h.log != nil {
		h.log.LogRequest(h.self, from, verb, args)
	}
}

func (h *Handler) sendError(to wire.Addr, message string) {
	_ = h.sender.SendTo(to, wire.NewTxtError(message).Marshal())
}

// Handle routes one decoded client-boundary frame to its handler. tag and
// frame are the pair wire.Decode returns; S2S_* tags are never passed
// here; the dispatcher routes those straight to topology.
func (h *Handler) Handle(from wire.Addr, tag wire.Tag, frame wire.Frame) {
	switch tag {
	case wire.TagReqLogin:
		h.handleLogin(from, frame.(*wire.ReqLogin))
	case wire.TagReqLogout:
		h.handleLogout(from)
	case wire.TagReqJoin:
		h.handleJoin(from, frame.(*wire.ReqJoin))
	case wire.TagReqLeave:
		h.handleLeave(from, frame.(*wire.ReqLeave))
	case wire.TagReqSay:
		h.handleSay(from, frame.(*wire.ReqSay))
	case wire.TagReqList:
		h.handleList(from)
	case wire.TagReqWho:
		h.handleWho(from, frame.(*wire.ReqWho))
	case wire.TagReqKeepAlive:
		// No action beyond the heartbeat every request already performs.
	}
}

func (h *Handler) handleLogin(from wire.Addr, r *wire.ReqLogin) {
	if u, ok := h.store.GetUser(from); ok {
		h.logRecv(from, "Logout", u.Username)
		h.store.RemoveUser(from)
	}
	h.store.CreateUser(from, r.Username)
	h.logRecv(from, "Login", r.Username)

	// New sessions are force-joined to Common.
	created := h.store.JoinChannel(from, commonChannel)
	h.logRecv(from, "Join", r.Username+" "+commonChannel)
	if created {
		h.topo.JoinSend(commonChannel, nil)
	}
}

func (h *Handler) handleLogout(from wire.Addr) {
	if u, ok := h.store.GetUser(from); ok {
		h.logRecv(from, "Logout", u.Username)
	}
	h.store.RemoveUser(from)
}

func (h *Handler) handleJoin(from wire.Addr, r *wire.ReqJoin) {
	u, ok := h.store.GetUser(from)
	if !ok {
		h.sendError(from, "You are not logged in. Please restart the client.")
		return
	}
	channel := wire.Canonicalize(r.Channel, wire.ChannelMax)
	if h.store.IsInChannel(from, channel) {
		h.sendError(from, "You are already in this channel.")
		return
	}

	created := h.store.JoinChannel(from, channel)
	h.logRecv(from, "Join", u.Username+" "+channel)
	h.sendError(from, fmt.Sprintf("Joined channel [%s].", channel))
	if created {
		h.topo.JoinSend(channel, nil)
	}
}

func (h *Handler) handleLeave(from wire.Addr, r *wire.ReqLeave) {
	u, ok := h.store.GetUser(from)
	if !ok {
		h.sendError(from, "You are not logged in. Please restart the client.")
		return
	}
	channel := wire.Canonicalize(r.Channel, wire.ChannelMax)
	if !h.store.HasChannel(channel) {
		h.sendError(from, "You cannot leave a channel that doesn't exist.")
		return
	}
	if !h.store.IsInChannel(from, channel) {
		h.sendError(from, "You cannot leave a channel you are not in.")
		return
	}

	h.logRecv(from, "Leave", u.Username+" "+channel)
	h.sendError(from, fmt.Sprintf("Left channel [%s].", channel))
	h.store.LeaveChannel(from, channel)
	if !h.store.HasChannel(channel) {
		// Membership auto-removed the record: this server has no more
		// local subscribers, so tell every peer we're no longer
		// interested.
		h.topo.LeaveSend(channel, nil)
	}
}

func (h *Handler) handleSay(from wire.Addr, r *wire.ReqSay) {
	u, ok := h.store.GetUser(from)
	if !ok {
		h.sendError(from, "You are not logged in. Please restart the client.")
		return
	}
	channel := wire.Canonicalize(r.Channel, wire.ChannelMax)
	if !h.store.HasChannel(channel) {
		h.sendError(from, "Channel does not exist.")
		return
	}

	h.logRecv(from, "Say", u.Username+" \""+r.Text+"\"")
	h.store.Deliver(channel, u.Username, r.Text)
	h.topo.SaySend(u.Username, channel, r.Text, 0, nil)
}

func (h *Handler) handleList(from wire.Addr) {
	u, ok := h.store.GetUser(from)
	if !ok {
		h.sendError(from, "You are not logged in. Please restart the client.")
		return
	}
	h.logRecv(from, "List", u.Username)
	_ = h.sender.SendTo(from, (&wire.TxtList{Channels: h.store.ChannelNames()}).Marshal())
}

func (h *Handler) handleWho(from wire.Addr, r *wire.ReqWho) {
	u, ok := h.store.GetUser(from)
	if !ok {
		h.sendError(from, "You are not logged in. Please restart the client.")
		return
	}
	channel := wire.Canonicalize(r.Channel, wire.ChannelMax)
	h.logRecv(from, "Who", u.Username+" "+channel)
	if !h.store.HasChannel(channel) {
		h.sendError(from, fmt.Sprintf("Channel [%s] does not exist.", channel))
		return
	}
	_ = h.sender.SendTo(from, (&wire.TxtWho{Users: h.store.UsersIn(channel)}).Marshal())
}
