package core

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"
)

// SnapshotHeader precedes the type expression and payload of a snapshot.
type SnapshotHeader struct {
	Magic      uint32 // "TOBJ"
	Version    uint16
	ReprLen    uint16 // bytes of type expression following the header
	Length     uint32 // element count for unsized arrays
	PayloadLen uint32
	Checksum   uint32 // CRC-32 (IEEE) of type expression and payload
}

const (
	SnapshotMagic   = 0x4A424F54 // "TOBJ" in little endian
	SnapshotVersion = 1
	HeaderSize      = 20 // sizeof(SnapshotHeader)
)

// MarshalView encodes a transparent view as a self-describing snapshot.
// Views that can hold references have no portable encoding.
func MarshalView(v *View) ([]byte, error) {
	if v.IsOpaque() {
		return nil, invalidf("cannot snapshot opaque %s", v.descr)
	}
	payload, err := v.Bytes()
	if err != nil {
		return nil, err
	}
	repr := v.descr.String()
	if len(repr) > 0xFFFF {
		return nil, invalidf("type expression of %d bytes is too long", len(repr))
	}

	header := SnapshotHeader{
		Magic:      SnapshotMagic,
		Version:    SnapshotVersion,
		ReprLen:    uint16(len(repr)),
		Length:     uint32(v.length),
		PayloadLen: uint32(len(payload)),
		Checksum:   snapshotChecksum([]byte(repr), payload),
	}

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+len(repr)+len(payload)))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, errors.Wrap(err, "write snapshot header")
	}
	buf.WriteString(repr)
	buf.Write(payload)
	return buf.Bytes(), nil
}

// UnmarshalView decodes a snapshot into a fresh owning view. lookup resolves
// non-builtin type names and may be nil.
func UnmarshalView(data []byte, lookup func(string) (*Descr, bool)) (*View, error) {
	if len(data) < HeaderSize {
		return nil, invalidf("snapshot of %d bytes is shorter than its header", len(data))
	}

	var header SnapshotHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return nil, errors.Wrap(err, "read snapshot header")
	}
	if header.Magic != SnapshotMagic {
		return nil, invalidf("bad snapshot magic %#x", header.Magic)
	}
	if header.Version != SnapshotVersion {
		return nil, invalidf("unsupported snapshot version %d", header.Version)
	}

	body := data[HeaderSize:]
	if uint64(len(body)) != uint64(header.ReprLen)+uint64(header.PayloadLen) {
		return nil, invalidf("snapshot body is %d bytes, header declares %d",
			len(body), uint64(header.ReprLen)+uint64(header.PayloadLen))
	}
	repr, payload := body[:header.ReprLen], body[header.ReprLen:]
	if snapshotChecksum(repr, payload) != header.Checksum {
		return nil, invalidf("snapshot checksum mismatch")
	}

	d, err := ParseType(string(repr), lookup)
	if err != nil {
		return nil, err
	}
	if d.opaque {
		return nil, invalidf("cannot restore opaque %s", d)
	}
	want := uint64(d.Size())
	if d.Kind() == KindUnsizedArray {
		want = uint64(d.Elem().Size()) * uint64(header.Length)
	}
	if want != uint64(len(payload)) {
		return nil, invalidf("payload of %d bytes does not fit %s of length %d", len(payload), d, header.Length)
	}
	var v *View
	if d.Kind() == KindUnsizedArray {
		v, err = NewUnsized(d, int(header.Length))
	} else {
		v, err = New(d)
	}
	if err != nil {
		return nil, err
	}
	dst, err := v.span(0, len(payload), true)
	if err != nil {
		return nil, err
	}
	copy(dst, payload)
	return v, nil
}

// WriteSnapshot marshals v to w.
func WriteSnapshot(w io.Writer, v *View) error {
	b, err := MarshalView(v)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return errors.Wrap(err, "write snapshot")
}

// ReadSnapshot reads one snapshot from r until EOF.
func ReadSnapshot(r io.Reader, lookup func(string) (*Descr, bool)) (*View, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read snapshot")
	}
	return UnmarshalView(b, lookup)
}

func snapshotChecksum(repr, payload []byte) uint32 {
	h := crc32.NewIEEE()
	h.Write(repr)
	h.Write(payload)
	return h.Sum32()
}
