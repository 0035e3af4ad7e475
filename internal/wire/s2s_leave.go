package wire

import "bytes"

// S2SLeave is the S2S_LEAVE frame: a narrow prune of one (peer, channel)
// routing edge. Never flooded recursively.
type S2SLeave struct {
	Origin  Addr
	Channel string
}

func NewS2SLeave(origin Addr, channel string) *S2SLeave {
	return &S2SLeave{Origin: origin, Channel: Canonicalize(channel, ChannelMax)}
}

func (l *S2SLeave) String() string {
	return "S2S_LEAVE " + l.Channel
}

func (l *S2SLeave) Marshal() []byte {
	buf := new(bytes.Buffer)
	putTag(buf, TagS2SLeave)
	putAddr(buf, l.Origin)
	putFixed(buf, l.Channel, ChannelMax)
	return buf.Bytes()
}

func UnmarshalS2SLeave(payload []byte) (*S2SLeave, error) {
	buf := bytes.NewBuffer(payload)
	origin, err := getAddr(buf)
	if err != nil {
		return nil, err
	}
	channel, err := getFixed(buf, ChannelMax)
	if err != nil {
		return nil, err
	}
	return &S2SLeave{Origin: origin, Channel: channel}, nil
}
