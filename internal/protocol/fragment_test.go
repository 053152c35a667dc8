package protocol

import (
	"bytes"
	"errors"
	"testing"
)

// testPayload returns n distinct non-zero bytes so that padding can never
// be mistaken for data
func testPayload(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i%251) + 1
	}
	return p
}

// expectedFrames returns the frame count for a payload using the chunk
// rules directly: a lead frame, then one frame per 17-byte chunk of the
// excess, the last of which is the terminal frame.
func expectedFrames(headerLen, payloadLen int) int {
	capacity := 14 - headerLen + 1
	if payloadLen <= capacity {
		return 2
	}
	excess := payloadLen - capacity
	return 1 + (excess+16)/17
}

func TestFragment_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		header      []byte
		payloadLen  int
		wantFrames  int
		wantTailLen int // bytes of payload in the terminal frame
	}{
		{name: "empty payload", header: []byte{0x02}, payloadLen: 0, wantFrames: 2, wantTailLen: 0},
		{name: "fits in lead", header: []byte{0x02}, payloadLen: 10, wantFrames: 2, wantTailLen: 0},
		{name: "exactly lead capacity", header: []byte{0x02}, payloadLen: 14, wantFrames: 2, wantTailLen: 0},
		{name: "one byte over", header: []byte{0x02}, payloadLen: 15, wantFrames: 2, wantTailLen: 1},
		{name: "one full chunk over", header: []byte{0x02}, payloadLen: 31, wantFrames: 2, wantTailLen: 17},
		{name: "50 bytes", header: []byte{0x02}, payloadLen: 50, wantFrames: 4, wantTailLen: 2},
		{name: "evenly divisible excess", header: []byte{0x02}, payloadLen: 48, wantFrames: 3, wantTailLen: 17},
		{name: "no header", header: nil, payloadLen: 15, wantFrames: 2, wantTailLen: 0},
		{name: "three byte header", header: []byte{0x01, 0x02, 0x03}, payloadLen: 40, wantFrames: 3, wantTailLen: 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := testPayload(tt.payloadLen)

			frames, err := Fragment(TagExtended, tt.header, payload)
			if err != nil {
				t.Fatalf("Fragment() error = %v", err)
			}

			if len(frames) != tt.wantFrames {
				t.Fatalf("frame count = %d, want %d", len(frames), tt.wantFrames)
			}
			if frames[0].TotalFrames() != tt.wantFrames {
				t.Errorf("lead total = %d, want %d", frames[0].TotalFrames(), tt.wantFrames)
			}

			terminal := frames[len(frames)-1]
			tail := terminal[chunkOffset : chunkOffset+tt.wantTailLen]
			if !bytes.Equal(tail, payload[len(payload)-tt.wantTailLen:]) {
				t.Errorf("terminal chunk = %x, want %x", tail, payload[len(payload)-tt.wantTailLen:])
			}
			for i := chunkOffset + tt.wantTailLen; i < ChecksumIndex; i++ {
				if terminal[i] != 0 {
					t.Errorf("terminal padding byte %d = 0x%02x, want 0x00", i, terminal[i])
				}
			}
		})
	}
}

func TestFragment_LeadLayout(t *testing.T) {
	payload := testPayload(50)
	frames, err := Fragment(0xa3, []byte{0x02}, payload)
	if err != nil {
		t.Fatalf("Fragment() error = %v", err)
	}

	lead := frames[0]
	if lead[0] != 0xa3 {
		t.Errorf("tag = 0x%02x, want 0xa3", lead[0])
	}
	if lead[1] != MarkerLead {
		t.Errorf("marker = 0x%02x, want 0x00", lead[1])
	}
	if lead[2] != 0x01 {
		t.Errorf("byte 2 = 0x%02x, want 0x01", lead[2])
	}
	if lead[3] != 4 {
		t.Errorf("total = %d, want 4", lead[3])
	}
	if lead[4] != 0x02 {
		t.Errorf("header = 0x%02x, want 0x02", lead[4])
	}
	if !bytes.Equal(lead[5:19], payload[:14]) {
		t.Errorf("lead data = %x, want %x", lead[5:19], payload[:14])
	}
}

func TestFragment_Properties(t *testing.T) {
	for headerLen := 0; headerLen <= 4; headerLen++ {
		header := bytes.Repeat([]byte{0xbb}, headerLen)

		for n := 0; n <= 200; n++ {
			payload := testPayload(n)

			frames, err := Fragment(TagExtended, header, payload)
			if err != nil {
				t.Fatalf("H=%d L=%d: Fragment() error = %v", headerLen, n, err)
			}

			// Frame count
			want := expectedFrames(headerLen, n)
			if len(frames) != want || FrameCount(headerLen, n) != want {
				t.Fatalf("H=%d L=%d: frames = %d, FrameCount = %d, want %d",
					headerLen, n, len(frames), FrameCount(headerLen, n), want)
			}

			// Checksums
			for i, f := range frames {
				if !f.Valid() {
					t.Errorf("H=%d L=%d: frame %d has invalid checksum", headerLen, n, i)
				}
			}

			// Markers: lead 0, continuations 1..n-2, terminal 255
			if frames[0].Code() != MarkerLead {
				t.Errorf("H=%d L=%d: lead marker = %d", headerLen, n, frames[0].Code())
			}
			for i := 1; i < len(frames)-1; i++ {
				if int(frames[i].Code()) != i {
					t.Errorf("H=%d L=%d: frame %d marker = %d, want %d", headerLen, n, i, frames[i].Code(), i)
				}
			}
			if frames[len(frames)-1].Code() != MarkerTerminal {
				t.Errorf("H=%d L=%d: terminal marker = %d", headerLen, n, frames[len(frames)-1].Code())
			}

			// Round trip
			r, err := Reassemble(frames, headerLen)
			if err != nil {
				t.Fatalf("H=%d L=%d: Reassemble() error = %v", headerLen, n, err)
			}
			if !bytes.Equal(r.Header, header) {
				t.Errorf("H=%d L=%d: header = %x, want %x", headerLen, n, r.Header, header)
			}
			if len(r.Payload) < n || !bytes.Equal(r.Payload[:n], payload) {
				t.Fatalf("H=%d L=%d: reassembled payload mismatch", headerLen, n)
			}
			for i, b := range r.Payload[n:] {
				if b != 0 {
					t.Errorf("H=%d L=%d: trailing byte %d = 0x%02x, want 0x00", headerLen, n, i, b)
					break
				}
			}
		}
	}
}

func TestFragment_ChunkSizes(t *testing.T) {
	// Only the final chunk may be short, and it is never empty once the
	// payload overflows the lead frame
	for n := LeadCapacity(1) + 1; n <= 150; n++ {
		frames, err := Fragment(TagExtended, []byte{EffectHeader}, testPayload(n))
		if err != nil {
			t.Fatalf("L=%d: Fragment() error = %v", n, err)
		}

		carried := LeadCapacity(1)
		for _, f := range frames[1 : len(frames)-1] {
			chunk := trimZeros(f.Payload(0))
			if len(chunk) != ChunkSize {
				t.Errorf("L=%d: middle chunk size = %d, want %d", n, len(chunk), ChunkSize)
			}
			carried += len(chunk)
		}

		last := len(trimZeros(frames[len(frames)-1].Payload(0)))
		if last < 1 || last > ChunkSize {
			t.Errorf("L=%d: final chunk size = %d, want 1..%d", n, last, ChunkSize)
		}
		if carried+last != n {
			t.Errorf("L=%d: carried %d bytes", n, carried+last)
		}
	}
}

func TestFragment_Limits(t *testing.T) {
	t.Run("header too long", func(t *testing.T) {
		_, err := Fragment(TagExtended, make([]byte, MaxHeaderSize+1), nil)
		if !errors.Is(err, ErrInvalidHeader) {
			t.Errorf("Fragment() error = %v, want %v", err, ErrInvalidHeader)
		}
	})

	t.Run("maximum header", func(t *testing.T) {
		frames, err := Fragment(TagExtended, bytes.Repeat([]byte{0x09}, MaxHeaderSize), testPayload(5))
		if err != nil {
			t.Fatalf("Fragment() error = %v", err)
		}
		if len(frames) != 2 {
			t.Errorf("frame count = %d, want 2", len(frames))
		}
	})

	t.Run("largest payload", func(t *testing.T) {
		frames, err := Fragment(TagExtended, []byte{0x02}, testPayload(MaxFragmentPayload(1)))
		if err != nil {
			t.Fatalf("Fragment() error = %v", err)
		}
		if len(frames) != 255 || frames[0].TotalFrames() != 255 {
			t.Errorf("frames = %d, total = %d, want 255", len(frames), frames[0].TotalFrames())
		}
		if frames[len(frames)-2].Code() == MarkerTerminal {
			t.Error("continuation marker collides with terminal marker")
		}
	})

	t.Run("payload too large", func(t *testing.T) {
		_, err := Fragment(TagExtended, []byte{0x02}, testPayload(MaxFragmentPayload(1)+1))
		if !errors.Is(err, ErrPayloadTooLarge) {
			t.Errorf("Fragment() error = %v, want %v", err, ErrPayloadTooLarge)
		}
	})
}
