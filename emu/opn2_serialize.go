package emu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

const chipSerializeVersion = 1

// ChipSerializeSize is the number of bytes needed for Chip serialization:
// version(1) + variant(1) + every latch of every block, little endian.
var ChipSerializeSize = 2 + (&Chip{}).partsSize()

// parts lists every stateful block of the chip in serialization order.
func (c *Chip) parts() []any {
	return []any{
		&c.in, &c.inOld, &c.pin, &c.pinOld, &c.phase1, &c.phase2,
		&c.clk, &c.io, &c.regs, &c.fsm, &c.lfo, &c.pg, &c.eg, &c.op,
		&c.acc, &c.dac, &c.tmr, &c.out,
	}
}

func (c *Chip) partsSize() int {
	n := 0
	for _, p := range c.parts() {
		n += binary.Size(p)
	}
	return n
}

// Serialize writes the chip state to buf. buf must be at least
// ChipSerializeSize bytes.
func (c *Chip) Serialize(buf []byte) error {
	if len(buf) < ChipSerializeSize {
		return errors.New("OPN2 serialize buffer too small")
	}
	buf[0] = chipSerializeVersion
	buf[1] = uint8(c.cfg.variant)
	offset := 2
	for _, p := range c.parts() {
		n, err := binary.Encode(buf[offset:], binary.LittleEndian, p)
		if err != nil {
			return fmt.Errorf("serialize chip: %w", err)
		}
		offset += n
	}
	return nil
}

// Deserialize restores chip state from buf. The stored variant must match
// the chip's variant.
func (c *Chip) Deserialize(buf []byte) error {
	if len(buf) < ChipSerializeSize {
		return errors.New("OPN2 deserialize buffer too small")
	}
	if buf[0] > chipSerializeVersion {
		return errors.New("unsupported OPN2 state version")
	}
	if Variant(buf[1]) != c.cfg.variant {
		return fmt.Errorf("OPN2 state is for %s, chip is %s", Variant(buf[1]), c.cfg.variant)
	}
	offset := 2
	for _, p := range c.parts() {
		n, err := binary.Decode(buf[offset:], binary.LittleEndian, p)
		if err != nil {
			return fmt.Errorf("deserialize chip: %w", err)
		}
		offset += n
	}
	return nil
}

// Save state format constants
const (
	opn2SerializeVersion = 1
	stateVersion         = 1
	stateMagic           = "OPN2State\x00\x00\x00"
	stateHeaderSize      = 18 // magic(12) + version(2) + dataCRC(4)

	// version(1) + seqState(1) + seqCount(4) + sampleCycle(4) + accL(4) +
	// accR(4) + nativeSampleCount(8) + queueLen(4)
	opn2HostSerializeSize = 30
)

// ErrBadMagic is returned when a save state does not start with the OPN2
// state magic.
var ErrBadMagic = errors.New("invalid save state magic")

// SerializeSize returns the bytes needed for Serialize. Queued writes are
// variable in length, so this is a method.
func (o *OPN2) SerializeSize() int {
	return opn2HostSerializeSize + 2*len(o.queue) + ChipSerializeSize
}

// Serialize writes host driver and chip state to buf. buf must be at least
// SerializeSize bytes.
func (o *OPN2) Serialize(buf []byte) error {
	if len(buf) < o.SerializeSize() {
		return errors.New("OPN2 serialize buffer too small")
	}

	offset := 0
	buf[offset] = opn2SerializeVersion
	offset++
	buf[offset] = uint8(o.seqState)
	offset++
	binary.LittleEndian.PutUint32(buf[offset:], uint32(o.seqCount))
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], uint32(o.sampleCycle))
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], uint32(o.accL))
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], uint32(o.accR))
	offset += 4
	binary.LittleEndian.PutUint64(buf[offset:], o.nativeSampleCount)
	offset += 8

	// Pending writes
	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(o.queue)))
	offset += 4
	for _, w := range o.queue {
		buf[offset] = w.Port
		buf[offset+1] = w.Val
		offset += 2
	}

	return o.chip.Serialize(buf[offset:])
}

// Deserialize restores host driver and chip state from buf. Buffered
// audio is discarded.
func (o *OPN2) Deserialize(buf []byte) error {
	if len(buf) < opn2HostSerializeSize {
		return errors.New("OPN2 deserialize buffer too small")
	}
	if buf[0] > opn2SerializeVersion {
		return errors.New("unsupported OPN2 state version")
	}

	offset := 1
	seqState := int32(buf[offset])
	offset++
	seqCount := int32(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4
	sampleCycle := int32(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4
	accL := int32(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4
	accR := int32(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4
	count := binary.LittleEndian.Uint64(buf[offset:])
	offset += 8
	n := int(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4

	if n < 0 || len(buf) < offset+2*n+ChipSerializeSize {
		return errors.New("OPN2 deserialize buffer too small")
	}
	queue := make([]portWrite, n)
	for i := range queue {
		queue[i] = portWrite{Port: buf[offset], Val: buf[offset+1]}
		offset += 2
	}

	if err := o.chip.Deserialize(buf[offset:]); err != nil {
		return err
	}

	o.seqState = seqState
	o.seqCount = seqCount
	o.sampleCycle = sampleCycle
	o.accL = accL
	o.accR = accR
	o.nativeSampleCount = count
	o.queue = queue
	o.buffer = o.buffer[:0]
	return nil
}

// SaveState creates a self-describing save state: a header with magic,
// version and a CRC32 of the payload, followed by Serialize output.
func (o *OPN2) SaveState() ([]byte, error) {
	data := make([]byte, stateHeaderSize+o.SerializeSize())
	copy(data[0:12], stateMagic)
	binary.LittleEndian.PutUint16(data[12:14], stateVersion)

	if err := o.Serialize(data[stateHeaderSize:]); err != nil {
		return nil, err
	}

	// Calculate and write data CRC32 (over everything after header)
	dataCRC := crc32.ChecksumIEEE(data[stateHeaderSize:])
	binary.LittleEndian.PutUint32(data[14:18], dataCRC)
	return data, nil
}

// LoadState restores a state produced by SaveState.
func (o *OPN2) LoadState(data []byte) error {
	if err := VerifyState(data); err != nil {
		return err
	}
	return o.Deserialize(data[stateHeaderSize:])
}

// VerifyState checks if a save state is valid without loading it.
func VerifyState(data []byte) error {
	if len(data) < stateHeaderSize {
		return errors.New("save state too short")
	}

	if string(data[0:12]) != stateMagic {
		return ErrBadMagic
	}

	version := binary.LittleEndian.Uint16(data[12:14])
	if version > stateVersion {
		return errors.New("unsupported save state version")
	}

	expectedCRC := binary.LittleEndian.Uint32(data[14:18])
	actualCRC := crc32.ChecksumIEEE(data[stateHeaderSize:])
	if expectedCRC != actualCRC {
		return errors.New("save state data is corrupted")
	}

	return nil
}
