package protocol

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ParseFrame validates raw bytes as a frame.
// The data must be exactly 20 bytes with a matching checksum.
func ParseFrame(data []byte) (Frame, error) {
	var f Frame

	if len(data) != FrameSize {
		return f, fmt.Errorf("%w: %d bytes (expected %d)", ErrFrameSize, len(data), FrameSize)
	}

	copy(f[:], data)

	if !f.Valid() {
		return f, fmt.Errorf("%w: got 0x%02x, expected 0x%02x",
			ErrChecksumMismatch, f[ChecksumIndex], Checksum(f[:ChecksumIndex]))
	}

	return f, nil
}

// ParseHexFrame parses a frame written as hex. Spaces, colons and an
// optional 0x prefix are ignored.
func ParseHexFrame(s string) (Frame, error) {
	cleaned := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	cleaned = strings.NewReplacer(" ", "", ":", "", "-", "").Replace(cleaned)

	data, err := hex.DecodeString(cleaned)
	if err != nil {
		return Frame{}, fmt.Errorf("invalid hex frame: %w", err)
	}
	return ParseFrame(data)
}

// ControlCommand is a decoded control frame
type ControlCommand struct {
	Code    byte
	Payload []byte // All 17 payload bytes including padding
}

// String returns a debug representation of the command
func (c *ControlCommand) String() string {
	return fmt.Sprintf("Control{code=0x%02x (%s), payload=%s}",
		c.Code, CommandCodeName(c.Code), hex.EncodeToString(c.Payload))
}

// DecodeControl extracts the command code and payload of a control frame
func DecodeControl(f Frame) (*ControlCommand, error) {
	if f.Kind() != FrameControl {
		return nil, fmt.Errorf("not a control frame: tag 0x%02x", f.Tag())
	}
	return &ControlCommand{
		Code:    f.Code(),
		Payload: f.Payload(0),
	}, nil
}

// Reassembly is the result of joining a fragmented frame sequence
type Reassembly struct {
	Tag    byte
	Header []byte
	// Payload holds the concatenated payload regions including the zero
	// padding of the last frame. Padding cannot be told apart from trailing
	// zero bytes, so callers that know the real length should truncate.
	Payload []byte
	Frames  int
}

// Reassemble checks the ordering of a fragmented sequence and joins its
// payload regions. headerLen is the header size used when fragmenting.
//
// The sequence must start with a lead frame whose count matches the number
// of frames, continue with markers 1..n-2 in order and end with a terminal
// frame. All frames must share the lead frame's class tag.
func Reassemble(frames []Frame, headerLen int) (*Reassembly, error) {
	if len(frames) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 frames, got %d", ErrFrameSequence, len(frames))
	}
	if headerLen < 0 || headerLen > MaxHeaderSize {
		return nil, newValidationError(ErrInvalidHeader, "header length %d", headerLen)
	}

	lead := frames[0]
	if !lead.Valid() {
		return nil, fmt.Errorf("%w: frame 0", ErrChecksumMismatch)
	}
	if lead.Kind() != FrameLead {
		return nil, fmt.Errorf("%w: first frame is %s", ErrFrameSequence, lead.Kind())
	}
	if lead.TotalFrames() != len(frames) {
		return nil, fmt.Errorf("%w: lead frame declares %d frames, got %d",
			ErrFrameSequence, lead.TotalFrames(), len(frames))
	}

	out := &Reassembly{
		Tag:    lead.Tag(),
		Header: append([]byte(nil), lead[leadHeaderOffset:leadHeaderOffset+headerLen]...),
		Frames: len(frames),
	}
	out.Payload = append(out.Payload, lead.Payload(headerLen)...)

	for i, f := range frames[1:] {
		seq := i + 1
		if !f.Valid() {
			return nil, fmt.Errorf("%w: frame %d", ErrChecksumMismatch, seq)
		}
		if f.Tag() != out.Tag {
			return nil, fmt.Errorf("%w: frame %d has tag 0x%02x, expected 0x%02x",
				ErrFrameSequence, seq, f.Tag(), out.Tag)
		}

		last := seq == len(frames)-1
		switch {
		case last && f.Kind() != FrameTerminal:
			return nil, fmt.Errorf("%w: last frame is %s", ErrFrameSequence, f.Kind())
		case !last && (f.Kind() != FrameContinuation || int(f.Code()) != seq):
			return nil, fmt.Errorf("%w: frame %d has marker 0x%02x", ErrFrameSequence, seq, f.Code())
		}

		out.Payload = append(out.Payload, f.Payload(0)...)
	}

	return out, nil
}

// CommandCodeName returns a human-readable name for a control command code
func CommandCodeName(code byte) string {
	switch code {
	case CmdPower:
		return "power"
	case CmdBrightness:
		return "brightness"
	case CmdColor:
		return "color"
	default:
		return "unknown"
	}
}

// Describe returns a one-line description of a frame for logs and the CLI
func Describe(f Frame) string {
	switch f.Kind() {
	case FrameControl:
		return fmt.Sprintf("control %s payload=%s", CommandCodeName(f.Code()), hex.EncodeToString(trimZeros(f.Payload(0))))
	case FrameLead:
		return fmt.Sprintf("lead tag=0x%02x total=%d", f.Tag(), f.TotalFrames())
	case FrameContinuation:
		return fmt.Sprintf("continuation tag=0x%02x seq=%d", f.Tag(), f.Code())
	default:
		return fmt.Sprintf("terminal tag=0x%02x", f.Tag())
	}
}

func trimZeros(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return b[:end]
}
