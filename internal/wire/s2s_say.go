package wire

import (
	"bytes"
	"encoding/binary"
)

// S2SSay is the S2S_SAY frame: a message flooded across the channel's
// spanning subtree, carrying the origin's id for loop suppression.
type S2SSay struct {
	Origin  Addr
	Id      uint64
	User    string
	Channel string
	Text    string
}

func NewS2SSay(origin Addr, id uint64, user, channel, text string) *S2SSay {
	return &S2SSay{
		Origin:  origin,
		Id:      id,
		User:    user,
		Channel: Canonicalize(channel, ChannelMax),
		Text:    text,
	}
}

func (s *S2SSay) String() string {
	return "S2S_SAY " + s.User + " " + s.Channel + " \"" + s.Text + "\""
}

func (s *S2SSay) Marshal() []byte {
	buf := new(bytes.Buffer)
	putTag(buf, TagS2SSay)
	putAddr(buf, s.Origin)
	binary.Write(buf, byteOrder, s.Id)
	putFixed(buf, s.User, UsernameMax)
	putFixed(buf, s.Channel, ChannelMax)
	putFixed(buf, s.Text, SayMax)
	return buf.Bytes()
}

func UnmarshalS2SSay(payload []byte) (*S2SSay, error) {
	buf := bytes.NewBuffer(payload)
	origin, err := getAddr(buf)
	if err != nil {
		return nil, err
	}
	if buf.Len() < 8 {
		return nil, errTruncated
	}
	var id uint64
	binary.Read(buf, byteOrder, &id)
	user, err := getFixed(buf, UsernameMax)
	if err != nil {
		return nil, err
	}
	channel, err := getFixed(buf, ChannelMax)
	if err != nil {
		return nil, err
	}
	text, err := getFixed(buf, SayMax)
	if err != nil {
		return nil, err
	}
	return &S2SSay{Origin: origin, Id: id, User: user, Channel: channel, Text: text}, nil
}
