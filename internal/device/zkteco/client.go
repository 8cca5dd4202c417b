// Package zkteco – TCP transport and session handling.
package zkteco

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/psitech/go-attendance-backend/internal/device"
)

// ErrUnauthorized is returned when the device rejects the comm key.
var ErrUnauthorized = errors.New("zkteco: device rejected comm key")

// Adapter opens authenticated sessions against ZKTeco devices over TCP.
// The zero value is not usable; construct with NewAdapter.
type Adapter struct {
	timeout time.Duration
}

// NewAdapter returns an Adapter whose per-operation I/O deadline is timeout.
func NewAdapter(timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{timeout: timeout}
}

// Open dials the source, performs the connect handshake and, when challenged,
// comm-key authentication. The returned session holds the device's session id.
func (a *Adapter) Open(ctx context.Context, src device.Source) (device.Session, error) {
	d := net.Dialer{Timeout: a.timeout}
	addr := fmt.Sprintf("%s:%d", src.Address, src.Port)
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("zkteco: dial %s: %w", addr, err)
	}

	s := &session{conn: conn, timeout: a.timeout}
	reply, err := s.roundTrip(packet{Command: cmdConnect})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("zkteco: connect %s: %w", addr, err)
	}
	s.sessionID = reply.SessionID

	if reply.Command == cmdAckUnauth {
		auth, err := s.roundTrip(packet{
			Command:   cmdAuth,
			SessionID: s.sessionID,
			Data:      commKey(src.Credential, s.sessionID),
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("zkteco: auth %s: %w", addr, err)
		}
		if auth.Command != cmdAckOK {
			conn.Close()
			return nil, ErrUnauthorized
		}
	} else if reply.Command != cmdAckOK {
		conn.Close()
		return nil, fmt.Errorf("zkteco: connect %s: unexpected reply %d", addr, reply.Command)
	}

	return s, nil
}

type session struct {
	conn      net.Conn
	timeout   time.Duration
	sessionID uint16
	replyID   uint16
	closed    bool
}

// ListUsers fetches and parses the device user table.
func (s *session) ListUsers(ctx context.Context) ([]device.User, error) {
	buf, err := s.readTable(ctx, cmdUserRead)
	if err != nil {
		return nil, fmt.Errorf("zkteco: read users: %w", err)
	}
	recs := parseUsers(buf)
	users := make([]device.User, 0, len(recs))
	for _, r := range recs {
		name := r.Name
		if name == "" {
			name = "User " + r.UserID
		}
		users = append(users, device.User{UserID: r.UserID, Name: name})
	}
	return users, nil
}

// ListAttendance fetches and parses the device attendance log. The device is
// disabled for the duration of the bulk read so mid-read punches cannot tear
// the table, and re-enabled before returning.
func (s *session) ListAttendance(ctx context.Context) ([]device.RawPunch, error) {
	if _, err := s.command(ctx, cmdDisableDevice, []byte{0x00, 0x00}); err != nil {
		return nil, fmt.Errorf("zkteco: disable device: %w", err)
	}
	buf, readErr := s.readTable(ctx, cmdAttLogRead)
	// Always try to re-enable, even after a failed read.
	if _, err := s.command(ctx, cmdEnableDevice, nil); err != nil && readErr == nil {
		readErr = fmt.Errorf("zkteco: enable device: %w", err)
	}
	if readErr != nil {
		return nil, readErr
	}
	recs := parseAttendance(buf)
	punches := make([]device.RawPunch, 0, len(recs))
	for _, r := range recs {
		punches = append(punches, device.RawPunch{
			UserID:    r.UserID,
			Timestamp: r.Timestamp,
			Code:      r.Punch,
		})
	}
	return punches, nil
}

// Close sends the exit command best-effort and closes the connection.
func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.roundTrip(packet{Command: cmdExit, SessionID: s.sessionID}) // best effort
	return s.conn.Close()
}

// command sends one request and requires an ACK-class reply.
func (s *session) command(ctx context.Context, cmd uint16, data []byte) (packet, error) {
	if err := ctx.Err(); err != nil {
		return packet{}, err
	}
	reply, err := s.roundTrip(packet{Command: cmd, SessionID: s.sessionID, Data: data})
	if err != nil {
		return packet{}, err
	}
	if reply.Command != cmdAckOK && reply.Command != cmdAckData {
		return packet{}, fmt.Errorf("command %d: device replied %d", cmd, reply.Command)
	}
	return reply, nil
}

// readTable requests a bulk table. Small tables arrive inline in the ACK;
// large ones are announced with a prepare-data reply followed by data frames
// totalling the announced size, which we acknowledge with free-data.
func (s *session) readTable(ctx context.Context, cmd uint16) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reply, err := s.roundTrip(packet{Command: cmd, SessionID: s.sessionID})
	if err != nil {
		return nil, err
	}
	switch reply.Command {
	case cmdAckOK, cmdAckData:
		return reply.Data, nil
	case cmdPrepareData:
		// fall through to chunked read
	default:
		return nil, fmt.Errorf("table %d: device replied %d", cmd, reply.Command)
	}
	if len(reply.Data) < 4 {
		return nil, fmt.Errorf("prepare-data without size")
	}
	total := int(binary.LittleEndian.Uint32(reply.Data[0:4]))
	data := make([]byte, 0, total)
	for len(data) < total {
		p, err := s.recv()
		if err != nil {
			return nil, err
		}
		switch p.Command {
		case cmdData:
			data = append(data, p.Data...)
		case cmdAckOK:
			// device finished early; accept what we have
			return data, nil
		default:
			return nil, fmt.Errorf("table %d: unexpected frame %d mid-transfer", cmd, p.Command)
		}
	}
	// drain the trailing ACK if the device sends one, then release the buffer
	s.roundTrip(packet{Command: cmdFreeData, SessionID: s.sessionID})
	return data, nil
}

// roundTrip sends a packet with the next reply id and reads one reply.
func (s *session) roundTrip(p packet) (packet, error) {
	p.ReplyID = s.replyID
	s.replyID++
	if err := s.send(p); err != nil {
		return packet{}, err
	}
	return s.recv()
}

func (s *session) send(p packet) error {
	payload := p.marshal()
	frame := make([]byte, 0, len(tcpMagic)+4+len(payload))
	frame = append(frame, tcpMagic...)
	frame = binary.LittleEndian.AppendUint32(frame, uint32(len(payload)))
	frame = append(frame, payload...)

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		return err
	}
	_, err := s.conn.Write(frame)
	return err
}

func (s *session) recv() (packet, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
		return packet{}, err
	}
	head := make([]byte, 8)
	if _, err := io.ReadFull(s.conn, head); err != nil {
		return packet{}, err
	}
	for i, b := range tcpMagic {
		if head[i] != b {
			return packet{}, fmt.Errorf("bad frame magic % x", head[:4])
		}
	}
	size := binary.LittleEndian.Uint32(head[4:8])
	if size < headerSize || size > 1<<24 {
		return packet{}, fmt.Errorf("implausible frame size %d", size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(s.conn, payload); err != nil {
		return packet{}, err
	}
	return parsePacket(payload)
}
