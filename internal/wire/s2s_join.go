package wire

import "bytes"

// S2SJoin is the S2S_JOIN frame: a peer announcing it wants a channel's
// traffic, or an origin re-announcing interest on a refresh tick.
type S2SJoin struct {
	Origin  Addr
	Channel string
}

// NewS2SJoin builds a join frame with the channel name canonicalised.
func NewS2SJoin(origin Addr, channel string) *S2SJoin {
	return &S2SJoin{Origin: origin, Channel: Canonicalize(channel, ChannelMax)}
}

func (j *S2SJoin) String() string {
	return "S2S_JOIN " + j.Channel
}

// Marshal serializes the frame: tag, origin address, channel name.
func (j *S2SJoin) Marshal() []byte {
	buf := new(bytes.Buffer)
	putTag(buf, TagS2SJoin)
	putAddr(buf, j.Origin)
	putFixed(buf, j.Channel, ChannelMax)
	return buf.Bytes()
}

// UnmarshalS2SJoin parses a join frame's payload (tag already consumed).
func UnmarshalS2SJoin(payload []byte) (*S2SJoin, error) {
	buf := bytes.NewBuffer(payload)
	origin, err := getAddr(buf)
	if err != nil {
		return nil, err
	}
	channel, err := getFixed(buf, ChannelMax)
	if err != nil {
		return nil, err
	}
	return &S2SJoin{Origin: origin, Channel: channel}, nil
}
