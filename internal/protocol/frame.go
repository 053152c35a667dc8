package protocol

import (
	"encoding/hex"
	"fmt"
)

// Frame layout constants
const (
	FrameSize         = 20
	ChecksumIndex     = FrameSize - 1
	MaxControlPayload = 17 // Bytes 2-18 of a control frame
	ChunkSize         = 17 // Payload bytes carried by continuation and terminal frames

	leadCountIndex   = 3
	leadHeaderOffset = 4
	chunkOffset      = 2
)

// Class tags (byte 0)
const (
	TagControl  = 0x33 // Single frame control commands
	TagExtended = 0xa3 // Fragmented effect/scene parameters
)

// Fragment markers (byte 1 of extended frames)
const (
	MarkerLead     = 0x00
	MarkerTerminal = 0xff
)

// Frame is a single 20-byte write to the control characteristic.
// Frames are values; copying one never aliases another.
type Frame [FrameSize]byte

// FrameKind identifies the role of a frame within a command
type FrameKind int

const (
	FrameControl      FrameKind = iota // Tag 0x33, single frame command
	FrameLead                          // Marker 0x00
	FrameContinuation                  // Marker 0x01..0xfe
	FrameTerminal                      // Marker 0xff
)

// String returns a human-readable frame kind
func (k FrameKind) String() string {
	switch k {
	case FrameControl:
		return "control"
	case FrameLead:
		return "lead"
	case FrameContinuation:
		return "continuation"
	case FrameTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("FrameKind(%d)", int(k))
	}
}

// Tag returns the class tag at byte 0
func (f Frame) Tag() byte { return f[0] }

// Code returns byte 1: the command code of a control frame, or the
// sequence marker of an extended frame
func (f Frame) Code() byte { return f[1] }

// Kind classifies the frame from its tag and marker byte
func (f Frame) Kind() FrameKind {
	if f[0] == TagControl {
		return FrameControl
	}
	switch f[1] {
	case MarkerLead:
		return FrameLead
	case MarkerTerminal:
		return FrameTerminal
	default:
		return FrameContinuation
	}
}

// TotalFrames returns the frame count carried by a lead frame
func (f Frame) TotalFrames() int {
	return int(f[leadCountIndex])
}

// Valid reports whether byte 19 matches the checksum of bytes 0-18
func (f Frame) Valid() bool {
	return f[ChecksumIndex] == Checksum(f[:ChecksumIndex])
}

// Bytes returns a copy of the frame as a slice, ready to hand to a transport
func (f Frame) Bytes() []byte {
	b := make([]byte, FrameSize)
	copy(b, f[:])
	return b
}

// Payload returns the payload region of the frame. For lead frames the
// header of headerLen bytes is skipped.
func (f Frame) Payload(headerLen int) []byte {
	var region []byte
	switch f.Kind() {
	case FrameControl, FrameContinuation, FrameTerminal:
		region = f[chunkOffset:ChecksumIndex]
	case FrameLead:
		start := leadHeaderOffset + headerLen
		if start > ChecksumIndex {
			start = ChecksumIndex
		}
		region = f[start:ChecksumIndex]
	}
	out := make([]byte, len(region))
	copy(out, region)
	return out
}

// String returns the frame as lowercase hex
func (f Frame) String() string {
	return hex.EncodeToString(f[:])
}

// seal writes the checksum into byte 19
func (f *Frame) seal() {
	f[ChecksumIndex] = Checksum(f[:ChecksumIndex])
}

// EncodeControl builds a single control frame.
//
// Structure:
//
//	[0]     0x33      TagControl
//	[1]     command   Command code
//	[2-18]  payload   Zero padded
//	[19]    checksum  XOR of bytes 0-18
//
// Command must fit in a byte and payload must not exceed 17 bytes; both
// are caller errors reported as *ValidationError.
func EncodeControl(command int, payload []byte) (Frame, error) {
	var f Frame

	if command < 0 || command > 0xff {
		return f, newValidationError(ErrInvalidCommand, "command 0x%x does not fit in a byte", command)
	}
	if len(payload) > MaxControlPayload {
		return f, newValidationError(ErrPayloadTooLarge, "%d bytes (max %d)", len(payload), MaxControlPayload)
	}

	f[0] = TagControl
	f[1] = byte(command)
	copy(f[chunkOffset:], payload)
	f.seal()

	return f, nil
}

// newLeadFrame builds the first frame of a fragmented command
func newLeadFrame(tag byte, total int, header, data []byte) Frame {
	var f Frame
	f[0] = tag
	f[1] = MarkerLead
	f[2] = 0x01
	f[leadCountIndex] = byte(total)
	n := copy(f[leadHeaderOffset:ChecksumIndex], header)
	copy(f[leadHeaderOffset+n:ChecksumIndex], data)
	f.seal()
	return f
}

// newContinuationFrame builds a middle frame carrying a full chunk
func newContinuationFrame(tag byte, seq int, chunk []byte) Frame {
	var f Frame
	f[0] = tag
	f[1] = byte(seq)
	copy(f[chunkOffset:ChecksumIndex], chunk)
	f.seal()
	return f
}

// newTerminalFrame builds the last frame, carrying the final chunk if any
func newTerminalFrame(tag byte, chunk []byte) Frame {
	var f Frame
	f[0] = tag
	f[1] = MarkerTerminal
	copy(f[chunkOffset:ChecksumIndex], chunk)
	f.seal()
	return f
}
