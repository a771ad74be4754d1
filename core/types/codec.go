package types

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/crypto"
)

// ErrInvalidRecord is returned when account data cannot be decoded as the
// requested record kind.
var ErrInvalidRecord = errors.New("types: invalid record encoding")

// DiscriminatorLength is the size of the kind tag leading every record.
const DiscriminatorLength = 8

// Fixed field widths of the record layout.
const (
	uint64Size  = 8
	int64Size   = 8
	uint32Size  = 4
	boolSize    = 1
	addressSize = common.AddressLength
	optAddrSize = 1 + common.AddressLength
	strLenSize  = 2
)

type discriminator [DiscriminatorLength]byte

func newDiscriminator(name string) discriminator {
	var d discriminator
	copy(d[:], crypto.Keccak256([]byte("whistle:record:"+name)))
	return d
}

// recordEncoder appends fixed-width big-endian fields.
type recordEncoder struct {
	buf []byte
}

func newRecordEncoder(d discriminator, size int) *recordEncoder {
	e := &recordEncoder{buf: make([]byte, 0, size)}
	e.buf = append(e.buf, d[:]...)
	return e
}

func (e *recordEncoder) uint64(v uint64) { e.buf = binary.BigEndian.AppendUint64(e.buf, v) }
func (e *recordEncoder) int64(v int64)   { e.uint64(uint64(v)) }
func (e *recordEncoder) uint32(v uint32) { e.buf = binary.BigEndian.AppendUint32(e.buf, v) }
func (e *recordEncoder) uint8(v uint8)   { e.buf = append(e.buf, v) }

func (e *recordEncoder) bool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

func (e *recordEncoder) address(a common.Address) { e.buf = append(e.buf, a[:]...) }

func (e *recordEncoder) optAddress(a *common.Address) {
	if a == nil {
		e.buf = append(e.buf, make([]byte, optAddrSize)...)
		return
	}
	e.buf = append(e.buf, 1)
	e.address(*a)
}

func (e *recordEncoder) string(s string) {
	e.buf = binary.BigEndian.AppendUint16(e.buf, uint16(len(s)))
	e.buf = append(e.buf, s...)
}

// recordDecoder reads fixed-width fields. The first failure sticks and every
// later read returns a zero value.
type recordDecoder struct {
	buf []byte
	off int
	err error
}

func newRecordDecoder(d discriminator, data []byte) *recordDecoder {
	dec := &recordDecoder{buf: data}
	if len(data) < DiscriminatorLength || discriminator(data[:DiscriminatorLength]) != d {
		dec.err = fmt.Errorf("%w: discriminator mismatch", ErrInvalidRecord)
		return dec
	}
	dec.off = DiscriminatorLength
	return dec
}

func (d *recordDecoder) next(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.buf)-d.off < n {
		d.err = fmt.Errorf("%w: short buffer at offset %d", ErrInvalidRecord, d.off)
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *recordDecoder) uint64() uint64 {
	if b := d.next(uint64Size); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}

func (d *recordDecoder) int64() int64 { return int64(d.uint64()) }

func (d *recordDecoder) uint32() uint32 {
	if b := d.next(uint32Size); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (d *recordDecoder) uint8() uint8 {
	if b := d.next(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *recordDecoder) bool() bool {
	switch d.uint8() {
	case 0:
		return false
	case 1:
		return true
	}
	if d.err == nil {
		d.err = fmt.Errorf("%w: invalid bool at offset %d", ErrInvalidRecord, d.off-1)
	}
	return false
}

func (d *recordDecoder) address() common.Address {
	return common.BytesToAddress(d.next(addressSize))
}

func (d *recordDecoder) optAddress() *common.Address {
	present := d.bool()
	addr := d.address()
	if !present || d.err != nil {
		return nil
	}
	return &addr
}

func (d *recordDecoder) string(max int) string {
	b := d.next(strLenSize)
	if b == nil {
		return ""
	}
	n := int(binary.BigEndian.Uint16(b))
	if n > max {
		d.err = fmt.Errorf("%w: string length %d exceeds %d", ErrInvalidRecord, n, max)
		return ""
	}
	return string(d.next(n))
}
