package protocol

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParseFrame(t *testing.T) {
	valid, err := BuildPower(true)
	if err != nil {
		t.Fatalf("BuildPower() error = %v", err)
	}

	corrupt := valid
	corrupt[ChecksumIndex] ^= 0xff

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{name: "valid frame", data: valid.Bytes()},
		{name: "too short", data: valid.Bytes()[:19], wantErr: ErrFrameSize},
		{name: "too long", data: append(valid.Bytes(), 0x00), wantErr: ErrFrameSize},
		{name: "empty", data: nil, wantErr: ErrFrameSize},
		{name: "bad checksum", data: corrupt.Bytes(), wantErr: ErrChecksumMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFrame(tt.data)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseFrame() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFrame() unexpected error = %v", err)
			}
			if f != valid {
				t.Errorf("ParseFrame() = %s, want %s", f, valid)
			}
		})
	}
}

func TestParseHexFrame(t *testing.T) {
	want, _ := BuildManualColor(0xff, 0x80, 0x00)
	plain := want.String()

	spaced := make([]string, 0, FrameSize)
	for i := 0; i < len(plain); i += 2 {
		spaced = append(spaced, plain[i:i+2])
	}

	inputs := map[string]string{
		"plain":      plain,
		"uppercase":  strings.ToUpper(plain),
		"prefixed":   "0x" + plain,
		"spaces":     strings.Join(spaced, " "),
		"colons":     strings.Join(spaced, ":"),
		"dashes":     strings.Join(spaced, "-"),
		"whitespace": "  " + plain + "\n",
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			got, err := ParseHexFrame(input)
			if err != nil {
				t.Fatalf("ParseHexFrame(%q) error = %v", input, err)
			}
			if got != want {
				t.Errorf("ParseHexFrame(%q) = %s, want %s", input, got, want)
			}
		})
	}

	t.Run("not hex", func(t *testing.T) {
		if _, err := ParseHexFrame("zz"); err == nil {
			t.Error("ParseHexFrame() should fail on invalid hex")
		}
	})
}

func TestDecodeControl(t *testing.T) {
	f, _ := BuildBrightness(0x80)

	cmd, err := DecodeControl(f)
	if err != nil {
		t.Fatalf("DecodeControl() error = %v", err)
	}
	if cmd.Code != CmdBrightness {
		t.Errorf("Code = 0x%02x, want 0x%02x", cmd.Code, CmdBrightness)
	}
	if len(cmd.Payload) != MaxControlPayload || cmd.Payload[0] != 0x80 {
		t.Errorf("Payload = %x", cmd.Payload)
	}
	if !strings.Contains(cmd.String(), "brightness") {
		t.Errorf("String() = %s, want brightness mentioned", cmd.String())
	}

	frames, _ := BuildEffect([]byte{0x01, 0x02})
	if _, err := DecodeControl(frames[0]); err == nil {
		t.Error("DecodeControl() should reject an extended frame")
	}
}

func TestReassemble_Errors(t *testing.T) {
	build := func(t *testing.T) []Frame {
		t.Helper()
		frames, err := BuildEffect(testPayload(50))
		if err != nil {
			t.Fatalf("BuildEffect() error = %v", err)
		}
		return frames
	}

	tests := []struct {
		name    string
		mutate  func(frames []Frame) []Frame
		wantErr error
	}{
		{
			name:    "single frame",
			mutate:  func(frames []Frame) []Frame { return frames[:1] },
			wantErr: ErrFrameSequence,
		},
		{
			name:    "missing frame",
			mutate:  func(frames []Frame) []Frame { return append(frames[:1], frames[2:]...) },
			wantErr: ErrFrameSequence,
		},
		{
			name: "swapped continuations",
			mutate: func(frames []Frame) []Frame {
				frames[1], frames[2] = frames[2], frames[1]
				return frames
			},
			wantErr: ErrFrameSequence,
		},
		{
			name: "terminal not last",
			mutate: func(frames []Frame) []Frame {
				frames[2], frames[3] = frames[3], frames[2]
				return frames
			},
			wantErr: ErrFrameSequence,
		},
		{
			name: "lead not first",
			mutate: func(frames []Frame) []Frame {
				frames[0], frames[1] = frames[1], frames[0]
				return frames
			},
			wantErr: ErrFrameSequence,
		},
		{
			name: "corrupt continuation",
			mutate: func(frames []Frame) []Frame {
				frames[1][5] ^= 0x01
				return frames
			},
			wantErr: ErrChecksumMismatch,
		},
		{
			name: "corrupt lead",
			mutate: func(frames []Frame) []Frame {
				frames[0][6] ^= 0x01
				return frames
			},
			wantErr: ErrChecksumMismatch,
		},
		{
			name: "mixed class tags",
			mutate: func(frames []Frame) []Frame {
				frames[2][0] = 0xa4
				frames[2].seal()
				return frames
			},
			wantErr: ErrFrameSequence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames := tt.mutate(build(t))
			if _, err := Reassemble(frames, 1); !errors.Is(err, tt.wantErr) {
				t.Errorf("Reassemble() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("header length out of range", func(t *testing.T) {
		if _, err := Reassemble(build(t), MaxHeaderSize+1); !errors.Is(err, ErrInvalidHeader) {
			t.Errorf("Reassemble() error = %v, want %v", err, ErrInvalidHeader)
		}
	})
}

func TestReassemble_EffectParams(t *testing.T) {
	params := testPayload(120)
	frames, err := BuildEffect(params)
	if err != nil {
		t.Fatalf("BuildEffect() error = %v", err)
	}

	r, err := Reassemble(frames, 1)
	if err != nil {
		t.Fatalf("Reassemble() error = %v", err)
	}
	if r.Tag != EffectClassTag {
		t.Errorf("Tag = 0x%02x, want 0x%02x", r.Tag, EffectClassTag)
	}
	if !bytes.Equal(r.Header, []byte{EffectHeader}) {
		t.Errorf("Header = %x, want 02", r.Header)
	}
	if r.Frames != len(frames) {
		t.Errorf("Frames = %d, want %d", r.Frames, len(frames))
	}
	if !bytes.Equal(r.Payload[:len(params)], params) {
		t.Error("reassembled payload does not match effect params")
	}
}

func TestDescribe(t *testing.T) {
	power, _ := BuildPower(false)
	frames, _ := BuildEffect(testPayload(50))

	tests := []struct {
		name  string
		frame Frame
		want  string
	}{
		{name: "control", frame: power, want: "control power"},
		{name: "lead", frame: frames[0], want: "lead tag=0xa3 total=4"},
		{name: "continuation", frame: frames[2], want: "continuation tag=0xa3 seq=2"},
		{name: "terminal", frame: frames[3], want: "terminal tag=0xa3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Describe(tt.frame); !strings.HasPrefix(got, tt.want) {
				t.Errorf("Describe() = %q, want prefix %q", got, tt.want)
			}
		})
	}
}

func TestCommandCodeName(t *testing.T) {
	tests := map[byte]string{
		CmdPower:      "power",
		CmdBrightness: "brightness",
		CmdColor:      "color",
		0x99:          "unknown",
	}
	for code, want := range tests {
		if got := CommandCodeName(code); got != want {
			t.Errorf("CommandCodeName(0x%02x) = %s, want %s", code, got, want)
		}
	}
}
