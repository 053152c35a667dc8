package ui

import (
	"encoding/hex"
	"fmt"

	"github.com/muurk/goveectl/internal/protocol"
)

// FormatFrameHex renders a frame as hex with the tag and checksum bytes
// highlighted
func FormatFrameHex(f protocol.Frame) string {
	b := f.Bytes()
	body := hex.EncodeToString(b[1:protocol.ChecksumIndex])
	return FrameTagStyle.Render(hex.EncodeToString(b[:1])) +
		body +
		FrameChecksumStyle.Render(hex.EncodeToString(b[protocol.ChecksumIndex:]))
}

// FrameTable renders the frames of one or more sequences, one row per frame
func FrameTable(title string, seqs []protocol.Sequence) *Table {
	t := NewTable(title, "Command", "Frame", "Kind", "Bytes", "OK")
	for _, seq := range seqs {
		for i, f := range seq.Frames {
			name := ""
			if i == 0 && seq.Command != nil {
				name = seq.Command.String()
			}
			ok := SuccessMarker
			if !f.Valid() {
				ok = FailureMarker
			}
			t.AddRow(name, fmt.Sprintf("%d/%d", i+1, len(seq.Frames)), f.Kind().String(), FormatFrameHex(f), ok)
		}
	}
	return t
}

// DecodeTable renders parsed frames with their decoded meaning
func DecodeTable(frames []protocol.Frame) *Table {
	t := NewTable("Decoded Frames", "#", "Bytes", "Checksum", "Meaning")
	for i, f := range frames {
		sum := SuccessMarker
		if !f.Valid() {
			sum = FailureMarker + " mismatch"
		}
		t.AddRow(fmt.Sprintf("%d", i+1), FormatFrameHex(f), sum, protocol.Describe(f))
	}
	return t
}
