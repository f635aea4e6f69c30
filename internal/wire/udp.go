package wire

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
)

// UDPv4Transport implements Transport over IPv4 UDP multicast. It wraps
// the connection in an ipv4.PacketConn so Receive can recover the OS
// interface index a packet arrived on from ancillary control data —
// a constrained-device peer on more than one interface needs that to
// decide which local subscribers a sample is even relevant to.
type UDPv4Transport struct {
	conn     net.PacketConn
	ipv4Conn *ipv4.PacketConn
}

// NewUDPv4Transport creates a UDP multicast transport bound to Port on
// MulticastAddrIPv4.
func NewUDPv4Transport() (*UDPv4Transport, error) {
	multicastAddr, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", MulticastAddrIPv4, Port))
	if err != nil {
		return nil, &NetworkError{
			Operation: "resolve multicast address",
			Err:       err,
			Details:   fmt.Sprintf("failed to resolve %s:%d", MulticastAddrIPv4, Port),
		}
	}

	conn, err := net.ListenMulticastUDP("udp4", nil, multicastAddr)
	if err != nil {
		return nil, &NetworkError{
			Operation: "create socket",
			Err:       err,
			Details:   fmt.Sprintf("failed to bind to multicast %s:%d", MulticastAddrIPv4, Port),
		}
	}

	if err := conn.SetReadBuffer(readBufferSize); err != nil {
		_ = conn.Close()
		return nil, &NetworkError{
			Operation: "configure socket",
			Err:       err,
			Details:   "failed to set read buffer size",
		}
	}

	ipv4Conn := ipv4.NewPacketConn(conn)
	// Best-effort: control messages let Receive report an interface
	// index; unsupported platforms degrade gracefully to index 0.
	_ = ipv4Conn.SetControlMessage(ipv4.FlagInterface, true)

	return &UDPv4Transport{conn: conn, ipv4Conn: ipv4Conn}, nil
}

// Send encodes frame and transmits it to dest.
func (t *UDPv4Transport) Send(ctx context.Context, frame Frame, dest net.Addr) error {
	select {
	case <-ctx.Done():
		return &NetworkError{Operation: "send", Err: ctx.Err(), Details: "context canceled before send"}
	default:
	}

	packet, err := frame.encode()
	if err != nil {
		return &NetworkError{Operation: "send", Err: err, Details: "failed to encode outbound frame"}
	}

	n, err := t.conn.WriteTo(packet, dest)
	if err != nil {
		return &NetworkError{Operation: "send", Err: err, Details: fmt.Sprintf("failed to send %d bytes to %s", len(packet), dest)}
	}
	if n != len(packet) {
		return &NetworkError{Operation: "send", Err: fmt.Errorf("partial write: %d/%d bytes", n, len(packet)), Details: "incomplete transmission"}
	}
	return nil
}

// Receive waits for an incoming packet and decodes it into a Frame.
func (t *UDPv4Transport) Receive(ctx context.Context) (Frame, net.Addr, int, error) {
	select {
	case <-ctx.Done():
		return Frame{}, nil, 0, &NetworkError{Operation: "receive", Err: ctx.Err(), Details: "context canceled before receive"}
	default:
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := t.conn.SetReadDeadline(deadline); err != nil {
			return Frame{}, nil, 0, &NetworkError{Operation: "set read timeout", Err: err, Details: fmt.Sprintf("failed to set deadline %v", deadline)}
		}
	}

	bufPtr := GetBuffer()
	defer PutBuffer(bufPtr)
	buffer := *bufPtr

	n, cm, srcAddr, err := t.ipv4Conn.ReadFrom(buffer)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return Frame{}, nil, 0, &NetworkError{Operation: "receive", Err: err, Details: "timeout"}
		}
		return Frame{}, nil, 0, &NetworkError{Operation: "receive", Err: err, Details: "failed to read from socket"}
	}

	interfaceIndex := 0
	if cm != nil {
		interfaceIndex = cm.IfIndex
	}

	packet := make([]byte, n)
	copy(packet, buffer[:n])

	frame, err := decodeFrame(packet)
	if err != nil {
		return Frame{}, nil, 0, &NetworkError{Operation: "receive", Err: err, Details: "failed to decode inbound frame"}
	}
	return frame, srcAddr, interfaceIndex, nil
}

// Close releases the underlying socket.
func (t *UDPv4Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	if err := t.conn.Close(); err != nil {
		return &NetworkError{Operation: "close", Err: err, Details: "failed to close UDP connection"}
	}
	return nil
}
