package zkteco

import (
	"encoding/binary"
	"testing"
	"time"
)

func TestPacketRoundTrip(t *testing.T) {
	p := packet{Command: cmdConnect, SessionID: 0x1234, ReplyID: 7, Data: []byte{1, 2, 3}}
	buf := p.marshal()

	got, err := parsePacket(buf)
	if err != nil {
		t.Fatalf("parsePacket: %v", err)
	}
	if got.Command != p.Command || got.SessionID != p.SessionID || got.ReplyID != p.ReplyID {
		t.Fatalf("header mismatch: %+v vs %+v", got, p)
	}
	if string(got.Data) != string(p.Data) {
		t.Fatalf("data mismatch: % x", got.Data)
	}
}

func TestParsePacket_RejectsCorruption(t *testing.T) {
	buf := packet{Command: cmdAckOK, SessionID: 1}.marshal()
	buf[0] ^= 0xff
	if _, err := parsePacket(buf); err == nil {
		t.Fatal("corrupted packet must fail the checksum")
	}
	if _, err := parsePacket([]byte{1, 2, 3}); err == nil {
		t.Fatal("short buffer must be rejected")
	}
}

func TestChecksum_OddLength(t *testing.T) {
	p := packet{Command: cmdData, Data: []byte{0xAA}}
	if _, err := parsePacket(p.marshal()); err != nil {
		t.Fatalf("odd-length payload round trip: %v", err)
	}
}

func TestCommKey_Deterministic(t *testing.T) {
	a := commKey(0, 0x55AA)
	b := commKey(0, 0x55AA)
	if len(a) != 4 || string(a) != string(b) {
		t.Fatalf("commKey must be a deterministic 4-byte value, got % x and % x", a, b)
	}
	if string(commKey(1, 0x55AA)) == string(a) {
		t.Fatal("different keys must scramble differently")
	}
	if string(commKey(0, 0x55AB)) == string(a) {
		t.Fatal("different sessions must scramble differently")
	}
	if a[2] != 50 {
		t.Fatalf("third byte carries the tick constant, got %d", a[2])
	}
}

func TestDecodeTime(t *testing.T) {
	// Encode 2025-06-02 08:55:30 with the device's fixed 31-day-month scheme.
	enc := uint32((((25*12+5)*31+1)*24+8)*60+55)*60 + 30
	got := decodeTime(enc)
	want := time.Date(2025, time.June, 2, 8, 55, 30, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("decodeTime = %v, want %v", got, want)
	}
}

func encodeTestTime(tm time.Time) uint32 {
	v := uint32(tm.Year() - 2000)
	v = v*12 + uint32(tm.Month()) - 1
	v = v*31 + uint32(tm.Day()) - 1
	v = v*24 + uint32(tm.Hour())
	v = v*60 + uint32(tm.Minute())
	v = v*60 + uint32(tm.Second())
	return v
}

func attBuf(recs []attRecord) []byte {
	buf := make([]byte, 0, len(recs)*attRecordSize)
	for _, r := range recs {
		rec := make([]byte, attRecordSize)
		copy(rec[2:26], r.UserID)
		binary.LittleEndian.PutUint32(rec[27:31], encodeTestTime(r.Timestamp))
		rec[31] = byte(r.Punch)
		buf = append(buf, rec...)
	}
	return buf
}

func TestParseAttendance(t *testing.T) {
	in := []attRecord{
		{UserID: "7", Timestamp: time.Date(2025, 6, 2, 8, 55, 0, 0, time.UTC), Punch: 0},
		{UserID: "1001", Timestamp: time.Date(2025, 6, 2, 18, 10, 0, 0, time.UTC), Punch: 1},
	}
	buf := attBuf(in)

	got := parseAttendance(buf)
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	for i := range in {
		if got[i].UserID != in[i].UserID || !got[i].Timestamp.Equal(in[i].Timestamp) || got[i].Punch != in[i].Punch {
			t.Errorf("record %d = %+v, want %+v", i, got[i], in[i])
		}
	}
}

func TestParseAttendance_SizePrefixAndPartialTail(t *testing.T) {
	in := []attRecord{{UserID: "7", Timestamp: time.Date(2025, 6, 2, 8, 55, 0, 0, time.UTC), Punch: 4}}
	body := attBuf(in)

	// Size-prefixed variant.
	buf := binary.LittleEndian.AppendUint32(nil, uint32(len(body)))
	buf = append(buf, body...)
	if got := parseAttendance(buf); len(got) != 1 || got[0].Punch != 4 {
		t.Fatalf("size-prefixed parse = %+v", got)
	}

	// Truncated trailing record is dropped, not misparsed.
	if got := parseAttendance(append(body, 0x01, 0x02, 0x03)); len(got) != 1 {
		t.Fatalf("partial tail parse = %+v", got)
	}
}

func TestParseUsers(t *testing.T) {
	rec := make([]byte, userRecordSize)
	binary.LittleEndian.PutUint16(rec[0:2], 3)
	copy(rec[11:35], "Asha")
	copy(rec[48:72], "PSI007")

	got := parseUsers(rec)
	if len(got) != 1 {
		t.Fatalf("got %d users, want 1", len(got))
	}
	if got[0].UserID != "PSI007" || got[0].Name != "Asha" {
		t.Fatalf("user = %+v", got[0])
	}
}

func TestParseUsers_FallbackToInternalUID(t *testing.T) {
	rec := make([]byte, userRecordSize)
	binary.LittleEndian.PutUint16(rec[0:2], 42)

	got := parseUsers(rec)
	if len(got) != 1 || got[0].UserID != "42" {
		t.Fatalf("expected internal uid fallback, got %+v", got)
	}
}
