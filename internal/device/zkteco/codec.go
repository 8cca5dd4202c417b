// Package zkteco implements a minimal TCP client for the ZKTeco push/pull
// protocol, covering exactly the operations the sync pipeline needs: connect
// with comm-key auth, disable/enable the device around bulk reads, and fetch
// the user and attendance tables. This file holds the wire codec.
package zkteco

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// Protocol command codes.
const (
	cmdConnect       = 1000
	cmdExit          = 1001
	cmdEnableDevice  = 1002
	cmdDisableDevice = 1003
	cmdAckUnauth     = 1005
	cmdAuth          = 1102
	cmdPrepareData   = 1500
	cmdData          = 1501
	cmdFreeData      = 1502
	cmdAckOK         = 2000
	cmdAckError      = 2001
	cmdAckData       = 2002

	cmdUserRead   = 9  // user table request
	cmdAttLogRead = 13 // attendance log request
)

// tcpMagic prefixes every TCP frame, followed by a little-endian payload length.
var tcpMagic = []byte{0x50, 0x50, 0x82, 0x7d}

const headerSize = 8

// packet is one protocol payload: an 8-byte header plus data.
type packet struct {
	Command   uint16
	SessionID uint16
	ReplyID   uint16
	Data      []byte
}

// marshal serializes the packet with its checksum filled in.
func (p packet) marshal() []byte {
	buf := make([]byte, headerSize+len(p.Data))
	binary.LittleEndian.PutUint16(buf[0:2], p.Command)
	// checksum at [2:4] is computed over the packet with the field zeroed
	binary.LittleEndian.PutUint16(buf[4:6], p.SessionID)
	binary.LittleEndian.PutUint16(buf[6:8], p.ReplyID)
	copy(buf[headerSize:], p.Data)
	binary.LittleEndian.PutUint16(buf[2:4], checksum(buf))
	return buf
}

// parsePacket decodes a payload into a packet, verifying its checksum.
func parsePacket(buf []byte) (packet, error) {
	if len(buf) < headerSize {
		return packet{}, fmt.Errorf("short packet: %d bytes", len(buf))
	}
	want := binary.LittleEndian.Uint16(buf[2:4])
	scratch := make([]byte, len(buf))
	copy(scratch, buf)
	scratch[2], scratch[3] = 0, 0
	if got := checksum(scratch); got != want {
		return packet{}, fmt.Errorf("checksum mismatch: got %#04x want %#04x", got, want)
	}
	return packet{
		Command:   binary.LittleEndian.Uint16(buf[0:2]),
		SessionID: binary.LittleEndian.Uint16(buf[4:6]),
		ReplyID:   binary.LittleEndian.Uint16(buf[6:8]),
		Data:      append([]byte(nil), buf[headerSize:]...),
	}, nil
}

// checksum computes the 16-bit ones'-complement sum over the buffer
// interpreted as little-endian words, with the checksum field zeroed.
func checksum(buf []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(buf); i += 2 {
		sum += uint32(binary.LittleEndian.Uint16(buf[i : i+2]))
	}
	if len(buf)%2 == 1 {
		sum += uint32(buf[len(buf)-1])
	}
	for sum > 0xffff {
		sum = (sum >> 16) + (sum & 0xffff)
	}
	return ^uint16(sum) & 0xffff
}

// commKey derives the 4-byte auth payload from the device comm key and the
// session id handed out by the device. The scramble is fixed firmware
// behavior: bit-reverse the key, add the session id, XOR with "ZKSO", swap
// the halves, then XOR three of the bytes with a tick constant.
func commKey(key int, sessionID uint16) []byte {
	const ticks = 50
	var rev uint32
	for i := 0; i < 32; i++ {
		rev <<= 1
		if key&(1<<i) != 0 {
			rev |= 1
		}
	}
	rev += uint32(sessionID)

	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], rev)
	b[0] ^= 'Z'
	b[1] ^= 'K'
	b[2] ^= 'S'
	b[3] ^= 'O'
	b[0], b[1], b[2], b[3] = b[2], b[3], b[0], b[1]

	const t = byte(ticks & 0xff)
	return []byte{b[0] ^ t, b[1] ^ t, t, b[3] ^ t}
}

// decodeTime expands the packed on-device timestamp. The encoding counts
// seconds with fixed 31-day months from the year 2000.
func decodeTime(v uint32) time.Time {
	sec := int(v % 60)
	v /= 60
	min := int(v % 60)
	v /= 60
	hour := int(v % 24)
	v /= 24
	day := int(v%31) + 1
	v /= 31
	month := int(v%12) + 1
	v /= 12
	year := int(v) + 2000
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC)
}

// cstr trims a fixed-width record field at the first NUL byte.
func cstr(b []byte) string {
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}

// attendance record layout (40 bytes):
//
//	offset 0  uint16  internal uid
//	offset 2  [24]b   user id (NUL padded)
//	offset 26 byte    verify status
//	offset 27 uint32  packed timestamp
//	offset 31 byte    punch code
//	offset 32 [8]b    reserved
const attRecordSize = 40

type attRecord struct {
	UserID    string
	Timestamp time.Time
	Punch     int
}

// parseAttendance splits a raw attendance table into records. A leading
// 4-byte table size prefix, when present, is skipped. Trailing partial
// records are ignored.
func parseAttendance(buf []byte) []attRecord {
	if len(buf) >= 4 && int(binary.LittleEndian.Uint32(buf[0:4])) == len(buf)-4 {
		buf = buf[4:]
	}
	out := make([]attRecord, 0, len(buf)/attRecordSize)
	for len(buf) >= attRecordSize {
		rec := buf[:attRecordSize]
		buf = buf[attRecordSize:]
		userID := cstr(rec[2:26])
		if userID == "" {
			userID = fmt.Sprintf("%d", binary.LittleEndian.Uint16(rec[0:2]))
		}
		out = append(out, attRecord{
			UserID:    userID,
			Timestamp: decodeTime(binary.LittleEndian.Uint32(rec[27:31])),
			Punch:     int(rec[31]),
		})
	}
	return out
}

// user record layout (72 bytes):
//
//	offset 0  uint16  internal uid
//	offset 2  byte    privilege
//	offset 3  [8]b    password
//	offset 11 [24]b   name (NUL padded)
//	offset 35 uint32  card number
//	offset 39 byte    group
//	offset 40 [8]b    reserved
//	offset 48 [24]b   user id (NUL padded)
const userRecordSize = 72

type userRecord struct {
	UserID string
	Name   string
}

// parseUsers splits a raw user table into records, skipping the 4-byte size
// prefix when present.
func parseUsers(buf []byte) []userRecord {
	if len(buf) >= 4 && int(binary.LittleEndian.Uint32(buf[0:4])) == len(buf)-4 {
		buf = buf[4:]
	}
	out := make([]userRecord, 0, len(buf)/userRecordSize)
	for len(buf) >= userRecordSize {
		rec := buf[:userRecordSize]
		buf = buf[userRecordSize:]
		userID := cstr(rec[48:72])
		if userID == "" {
			userID = fmt.Sprintf("%d", binary.LittleEndian.Uint16(rec[0:2]))
		}
		out = append(out, userRecord{
			UserID: userID,
			Name:   cstr(rec[11:35]),
		})
	}
	return out
}
