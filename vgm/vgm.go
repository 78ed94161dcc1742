// Package vgm parses VGM/VGZ register logs and plays their OPN2 stream into
// an emulated chip.
package vgm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf16"

	"github.com/klauspost/compress/gzip"
)

// SampleRate is the VGM timebase: every wait is counted in 44100 Hz samples.
const SampleRate = 44100

const (
	headerMagic   = "Vgm "
	gd3Magic      = "Gd3 "
	minHeaderSize = 0x40
)

var ErrBadMagic = errors.New("vgm: not a VGM file")

// Header holds the fields of the VGM header this package uses. Offsets are
// absolute file offsets; zero means absent.
type Header struct {
	Version      uint32
	EOFOffset    uint32
	GD3Offset    uint32
	TotalSamples uint32
	LoopOffset   uint32
	LoopSamples  uint32
	Rate         uint32
	DataOffset   uint32
	YM2612Clock  uint32
	// YM3438 is set from bit 31 of the clock field.
	YM3438 bool
	// DualChip is set from bit 30; the second chip's commands are skipped.
	DualChip bool
}

// Tags is the English subset of the GD3 metadata block.
type Tags struct {
	Track  string
	Game   string
	System string
	Author string
	Date   string
	Ripper string
	Notes  string
}

// EventKind identifies a decoded command.
type EventKind uint8

const (
	// EventWrite is an OPN2 register write to Part (0 or 1).
	EventWrite EventKind = iota
	// EventWait pauses for Samples VGM samples.
	EventWait
	// EventDAC writes the next data bank byte to register 0x2A, then waits
	// Samples.
	EventDAC
	// EventSeek moves the data bank pointer to Offset.
	EventSeek
	// EventEnd marks the end of the sound data.
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventWrite:
		return "write"
	case EventWait:
		return "wait"
	case EventDAC:
		return "dac"
	case EventSeek:
		return "seek"
	case EventEnd:
		return "end"
	}
	return "unknown"
}

// Event is one decoded VGM command that affects the OPN2.
type Event struct {
	Kind    EventKind
	Part    uint8
	Addr    uint8
	Val     uint8
	Samples uint32
	Offset  uint32
}

// File is a parsed VGM file.
type File struct {
	Header Header
	Tags   Tags
	Events []Event
	// LoopIndex is the event index the loop offset points at, or -1.
	LoopIndex int
	// PCM is the concatenation of all type 0 (YM2612 PCM) data blocks.
	PCM []byte
	// Skipped counts commands for other chips.
	Skipped int
}

// Parse decodes a VGM file. Gzip-compressed (VGZ) input is detected by its
// magic and decompressed first.
func Parse(data []byte) (*File, error) {
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("vgz: %w", err)
		}
		raw, err := io.ReadAll(zr)
		zr.Close()
		if err != nil {
			return nil, fmt.Errorf("vgz: %w", err)
		}
		data = raw
	}

	if len(data) < minHeaderSize {
		return nil, fmt.Errorf("vgm truncated: header needs %d bytes, have %d", minHeaderSize, len(data))
	}
	if string(data[0:4]) != headerMagic {
		return nil, ErrBadMagic
	}

	f := &File{LoopIndex: -1}
	h := &f.Header
	h.Version = le32(data, 0x08)
	h.EOFOffset = relOffset(data, 0x04)
	h.GD3Offset = relOffset(data, 0x14)
	h.TotalSamples = le32(data, 0x18)
	h.LoopOffset = relOffset(data, 0x1C)
	h.LoopSamples = le32(data, 0x20)
	if h.Version >= 0x101 {
		h.Rate = le32(data, 0x24)
	}
	if h.Version >= 0x110 {
		clk := le32(data, 0x2C)
		h.YM2612Clock = clk & 0x3fffffff
		h.YM3438 = clk&0x80000000 != 0
		h.DualChip = clk&0x40000000 != 0
	} else {
		// Before 1.10 the YM2413 clock field is shared by the FM chips.
		h.YM2612Clock = le32(data, 0x10)
	}
	h.DataOffset = minHeaderSize
	if h.Version >= 0x150 {
		if off := relOffset(data, 0x34); off != 0 {
			h.DataOffset = off
		}
	}

	end := uint32(len(data))
	if h.EOFOffset != 0 && h.EOFOffset < end {
		end = h.EOFOffset
	}
	if h.GD3Offset != 0 && h.GD3Offset > h.DataOffset && h.GD3Offset < end {
		f.Tags = parseGD3(data[h.GD3Offset:])
		end = h.GD3Offset
	}
	if h.DataOffset >= end {
		return nil, fmt.Errorf("vgm truncated: data offset 0x%X past end 0x%X", h.DataOffset, end)
	}

	if err := f.decode(data[:end], h.DataOffset); err != nil {
		return nil, err
	}
	if h.LoopOffset != 0 && f.LoopIndex < 0 {
		return nil, fmt.Errorf("vgm loop offset 0x%X is not on a command", h.LoopOffset)
	}
	return f, nil
}

// decode walks the command stream from pos.
func (f *File) decode(data []byte, pos uint32) error {
	n := uint32(len(data))
	need := func(at, count uint32) error {
		if at+count > n {
			return fmt.Errorf("vgm truncated: command 0x%02X at 0x%X needs %d bytes", data[at], at, count)
		}
		return nil
	}

	for pos < n {
		if pos == f.Header.LoopOffset {
			f.LoopIndex = len(f.Events)
		}
		cmd := data[pos]

		switch {
		case cmd == 0x52 || cmd == 0x53:
			if err := need(pos, 3); err != nil {
				return err
			}
			f.Events = append(f.Events, Event{Kind: EventWrite, Part: cmd & 1, Addr: data[pos+1], Val: data[pos+2]})
			pos += 3
		case cmd == 0x61:
			if err := need(pos, 3); err != nil {
				return err
			}
			f.addWait(uint32(binary.LittleEndian.Uint16(data[pos+1:])))
			pos += 3
		case cmd == 0x62:
			f.addWait(735)
			pos++
		case cmd == 0x63:
			f.addWait(882)
			pos++
		case cmd == 0x66:
			f.Events = append(f.Events, Event{Kind: EventEnd})
			return nil
		case cmd == 0x67:
			if err := need(pos, 7); err != nil {
				return err
			}
			typ := data[pos+2]
			size := le32(data, pos+3) & 0x7fffffff
			if err := need(pos, 7+size); err != nil {
				return err
			}
			if typ == 0x00 {
				f.PCM = append(f.PCM, data[pos+7:pos+7+size]...)
			} else {
				f.Skipped++
			}
			pos += 7 + size
		case cmd >= 0x70 && cmd <= 0x7F:
			f.addWait(uint32(cmd&0x0f) + 1)
			pos++
		case cmd >= 0x80 && cmd <= 0x8F:
			f.Events = append(f.Events, Event{Kind: EventDAC, Samples: uint32(cmd & 0x0f)})
			pos++
		case cmd == 0xE0:
			if err := need(pos, 5); err != nil {
				return err
			}
			f.Events = append(f.Events, Event{Kind: EventSeek, Offset: le32(data, pos+1)})
			pos += 5
		default:
			l := skipLength(cmd)
			if l == 0 {
				return fmt.Errorf("vgm: unknown command 0x%02X at 0x%X", cmd, pos)
			}
			if err := need(pos, l); err != nil {
				return err
			}
			f.Skipped++
			pos += l
		}
	}
	return nil
}

// addWait appends a wait, merging it into a directly preceding one.
func (f *File) addWait(samples uint32) {
	if samples == 0 {
		return
	}
	if last := len(f.Events) - 1; last >= 0 && f.Events[last].Kind == EventWait && f.LoopIndex != len(f.Events) {
		f.Events[last].Samples += samples
		return
	}
	f.Events = append(f.Events, Event{Kind: EventWait, Samples: samples})
}

// skipLength returns the total length of a command for another chip, or 0
// for an unknown command.
func skipLength(cmd uint8) uint32 {
	switch {
	case cmd >= 0x30 && cmd <= 0x3F:
		return 2
	case cmd >= 0x40 && cmd <= 0x4E:
		return 3
	case cmd == 0x4F || cmd == 0x50:
		return 2
	case cmd >= 0x51 && cmd <= 0x5F:
		return 3
	case cmd == 0x68:
		return 12
	case cmd == 0x90 || cmd == 0x91 || cmd == 0x95:
		return 5
	case cmd == 0x92:
		return 6
	case cmd == 0x93:
		return 11
	case cmd == 0x94:
		return 2
	case cmd >= 0xA0 && cmd <= 0xBF:
		return 3
	case cmd >= 0xC0 && cmd <= 0xDF:
		return 4
	case cmd >= 0xE1:
		return 5
	}
	return 0
}

// parseGD3 reads the English tag strings. A malformed block yields empty
// tags.
func parseGD3(data []byte) Tags {
	if len(data) < 12 || string(data[0:4]) != gd3Magic {
		return Tags{}
	}
	size := int(le32(data, 8))
	body := data[12:]
	if size < len(body) {
		body = body[:size]
	}

	var fields []string
	var cur []uint16
	for i := 0; i+1 < len(body) && len(fields) < 11; i += 2 {
		c := binary.LittleEndian.Uint16(body[i:])
		if c == 0 {
			fields = append(fields, string(utf16.Decode(cur)))
			cur = cur[:0]
			continue
		}
		cur = append(cur, c)
	}
	for len(fields) < 11 {
		fields = append(fields, "")
	}
	return Tags{
		Track:  fields[0],
		Game:   fields[2],
		System: fields[4],
		Author: fields[6],
		Date:   fields[8],
		Ripper: fields[9],
		Notes:  fields[10],
	}
}

func le32(data []byte, off uint32) uint32 {
	return binary.LittleEndian.Uint32(data[off:])
}

// relOffset reads a header offset stored relative to its own position.
func relOffset(data []byte, off uint32) uint32 {
	v := le32(data, off)
	if v == 0 {
		return 0
	}
	return v + off
}
