// Package wire implements the DuckChat datagram codec: fixed-layout,
// null-padded frames multiplexed on a single UDP socket and discriminated
// by a tag at offset 0, per the external interface contract.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"net"
)

// byteOrder is the wire's integer byte order. The protocol is defined for
// a homogeneous deployment and specifies host byte order; binary.NativeEndian
// is the stdlib's equivalent of "whatever this machine is."
var byteOrder = binary.NativeEndian

// Tag identifies a datagram's frame type. It always occupies the first
// 4 bytes of a frame.
type Tag uint32

// S2S tags, the sole concern of the routing core.
const (
	TagS2SJoin Tag = iota + 1
	TagS2SLeave
	TagS2SSay
)

// Client-boundary tags, listed for completeness per the external interface
// contract; encoded here only so the supplemental client request surface
// (internal/clientreq) has something concrete to emit and parse.
const (
	TagReqLogin Tag = iota + 100
	TagReqLogout
	TagReqJoin
	TagReqLeave
	TagReqSay
	TagReqList
	TagReqWho
	TagReqKeepAlive
	TagTxtSay
	TagTxtList
	TagTxtWho
	TagTxtError
)

// Field bounds for the fixed-width, null-padded string fields every frame
// carries: usernames, channel names, and say text.
const (
	UsernameMax = 32
	ChannelMax  = 64
	SayMax      = 128
)

var errTruncated = errors.New("wire: truncated frame")

// PeekTag reads the leading tag without consuming the rest of the frame.
// Returns an error if the datagram is too short to carry a tag at all.
func PeekTag(frame []byte) (Tag, error) {
	if len(frame) < 4 {
		return 0, errTruncated
	}
	return Tag(byteOrder.Uint32(frame[:4])), nil
}

// Addr is the wire form of a peer/origin address: a sockaddr_in-equivalent
// IPv4 host and port pair, compared bit-equal.
type Addr struct {
	IP   [4]byte
	Port uint16
}

// AddrFromUDP converts a resolved net.UDPAddr into its wire form. Only the
// IPv4 representation is carried; DuckChat's wire format has no IPv6 slot.
func AddrFromUDP(a *net.UDPAddr) Addr {
	var out Addr
	if ip4 := a.IP.To4(); ip4 != nil {
		copy(out.IP[:], ip4)
	}
	out.Port = uint16(a.Port)
	return out
}

// UDPAddr converts a wire address back into a net.UDPAddr for dialing/send.
func (a Addr) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(a.IP[0], a.IP[1], a.IP[2], a.IP[3]), Port: int(a.Port)}
}

// Equal compares two addresses bit-equal on host and port; no DNS
// re-resolution is performed here or anywhere else at comparison time.
func (a Addr) Equal(b Addr) bool {
	return a.IP == b.IP && a.Port == b.Port
}

func (a Addr) String() string {
	return a.UDPAddr().String()
}

func putAddr(buf *bytes.Buffer, a Addr) {
	buf.Write(a.IP[:])
	binary.Write(buf, byteOrder, a.Port)
}

func getAddr(buf *bytes.Buffer) (Addr, error) {
	var a Addr
	if buf.Len() < 6 {
		return a, errTruncated
	}
	buf.Read(a.IP[:])
	binary.Read(buf, byteOrder, &a.Port)
	return a, nil
}

// putFixed writes s into a fixed-size null-padded field of width max,
// truncating if necessary. The final byte is always a terminator.
func putFixed(buf *bytes.Buffer, s string, max int) {
	field := make([]byte, max)
	copy(field, s)
	field[max-1] = 0
	buf.Write(field)
}

// getFixed reads a fixed-size null-padded field and returns it as a Go
// string truncated at the first null terminator.
func getFixed(buf *bytes.Buffer, max int) (string, error) {
	if buf.Len() < max {
		return "", errTruncated
	}
	field := make([]byte, max)
	buf.Read(field)
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return string(field), nil
}

func putTag(buf *bytes.Buffer, t Tag) {
	binary.Write(buf, byteOrder, uint32(t))
}

// Canonicalize normalizes a channel name to its on-wire form: any newline
// becomes the terminator and the final byte is always forced to
// terminator. Idempotent by construction.
func Canonicalize(name string, max int) string {
	b := make([]byte, max)
	n := copy(b, name)
	for i := 0; i < n; i++ {
		if b[i] == '\n' {
			b[i] = 0
			n = i
			break
		}
	}
	if n >= max {
		n = max - 1
	}
	b[max-1] = 0
	if i := bytes.IndexByte(b[:n], 0); i >= 0 {
		n = i
	}
	return string(b[:n])
}
