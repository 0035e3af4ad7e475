package wire

import (
	"bytes"
	"encoding/binary"
)

// Client-boundary frames: login, logout, join, leave, say, list, who, and
// keep-alive, plus the server's text replies. These give the client
// request surface (internal/clientreq) concrete frames to parse and emit,
// which is what actually drives the routing core from a real event.

// ReqLogin carries the username a client wants to register.
type ReqLogin struct{ Username string }

func UnmarshalReqLogin(payload []byte) (*ReqLogin, error) {
	u, err := getFixed(bytes.NewBuffer(payload), UsernameMax)
	if err != nil {
		return nil, err
	}
	return &ReqLogin{Username: u}, nil
}

// ReqLogout carries no payload beyond the tag.
type ReqLogout struct{}

// ReqJoin/ReqLeave carry the channel name the logged-in user wants to
// join or leave.
type ReqJoin struct{ Channel string }
type ReqLeave struct{ Channel string }

func unmarshalChannelOnly(payload []byte) (string, error) {
	return getFixed(bytes.NewBuffer(payload), ChannelMax)
}

func UnmarshalReqJoin(payload []byte) (*ReqJoin, error) {
	c, err := unmarshalChannelOnly(payload)
	if err != nil {
		return nil, err
	}
	return &ReqJoin{Channel: c}, nil
}

func UnmarshalReqLeave(payload []byte) (*ReqLeave, error) {
	c, err := unmarshalChannelOnly(payload)
	if err != nil {
		return nil, err
	}
	return &ReqLeave{Channel: c}, nil
}

// ReqSay carries the channel and text a logged-in user wants to broadcast.
type ReqSay struct {
	Channel string
	Text    string
}

func UnmarshalReqSay(payload []byte) (*ReqSay, error) {
	buf := bytes.NewBuffer(payload)
	channel, err := getFixed(buf, ChannelMax)
	if err != nil {
		return nil, err
	}
	text, err := getFixed(buf, SayMax)
	if err != nil {
		return nil, err
	}
	return &ReqSay{Channel: channel, Text: text}, nil
}

// ReqList/ReqKeepAlive are tag-only frames; ReqWho carries the channel
// whose users are requested.
type ReqList struct{}
type ReqWho struct{ Channel string }
type ReqKeepAlive struct{}

func UnmarshalReqWho(payload []byte) (*ReqWho, error) {
	c, err := unmarshalChannelOnly(payload)
	if err != nil {
		return nil, err
	}
	return &ReqWho{Channel: c}, nil
}

// TxtSay is the server->client delivery frame for a channel message.
type TxtSay struct {
	User    string
	Channel string
	Text    string
}

func NewTxtSay(user, channel, text string) *TxtSay {
	return &TxtSay{User: user, Channel: channel, Text: text}
}

func (t *TxtSay) Marshal() []byte {
	buf := new(bytes.Buffer)
	putTag(buf, TagTxtSay)
	putFixed(buf, t.User, UsernameMax)
	putFixed(buf, t.Channel, ChannelMax)
	putFixed(buf, t.Text, SayMax)
	return buf.Bytes()
}

// TxtError is the bounded human-readable error frame for semantic client
// errors (already-in-channel, not-logged-in, and the like).
type TxtError struct {
	Message string
}

const ErrorMax = 128

func NewTxtError(message string) *TxtError {
	return &TxtError{Message: message}
}

func (t *TxtError) Marshal() []byte {
	buf := new(bytes.Buffer)
	putTag(buf, TagTxtError)
	putFixed(buf, t.Message, ErrorMax)
	return buf.Bytes()
}

// TxtList/TxtWho carry just enough payload to list known channels or the
// users in one channel; a richer client-facing format is out of scope
// here.
type TxtList struct {
	Channels []string
}

func (t *TxtList) Marshal() []byte {
	buf := new(bytes.Buffer)
	putTag(buf, TagTxtList)
	binary.Write(buf, byteOrder, uint32(len(t.Channels)))
	for _, c := range t.Channels {
		putFixed(buf, c, ChannelMax)
	}
	return buf.Bytes()
}

type TxtWho struct {
	Users []string
}

func (t *TxtWho) Marshal() []byte {
	buf := new(bytes.Buffer)
	putTag(buf, TagTxtWho)
	binary.Write(buf, byteOrder, uint32(len(t.Users)))
	for _, u := range t.Users {
		putFixed(buf, u, UsernameMax)
	}
	return buf.Bytes()
}
