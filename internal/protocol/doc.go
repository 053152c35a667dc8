// Package protocol implements the Govee Bluetooth LE light control protocol.
//
// Every write to the light's control characteristic is exactly 20 bytes.
// This package encodes logical light commands (power, brightness, color,
// scene playback) into those frames, fragments effect parameter blobs that
// do not fit in a single frame, and parses frames back for validation.
//
// # Frame Layout
//
// All frames share the same outer shape:
//   - Byte 0: class tag (0x33 control, 0xa3 extended/effect)
//   - Bytes 1-18: class specific
//   - Byte 19: checksum (XOR of bytes 0-18)
//
// Control frames carry a command code at byte 1 and a zero-padded payload
// of up to 17 bytes at bytes 2-18.
//
// # Fragmented Frames
//
// Extended frames carry a marker at byte 1:
//   - 0x00: lead frame, byte 2 = 0x01, byte 3 = total frame count,
//     bytes 4.. = header followed by the first slice of payload
//   - 0x01..0xfe: continuation frame, 17 payload bytes at bytes 2-18
//   - 0xff: terminal frame, the final chunk (possibly empty) at bytes 2-18
//
// The device reassembles the payload using the marker sequence, so frames
// must be written in the order returned by Fragment, one at a time.
//
// # Usage Example
//
//	builder := protocol.NewBuilder(descriptor)
//
//	frames, err := builder.Build(protocol.Color{Red: 255, Green: 64})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, f := range frames {
//	    // write f.Bytes() to the control characteristic
//	}
//
// # Error Handling
//
// Local validation failures are returned as *ValidationError and match the
// sentinel errors (ErrInvalidCommand, ErrPayloadTooLarge, ErrUnknownEffect,
// ...) with errors.Is. Effect parameter blobs that cannot be decoded are
// reported as *DataIntegrityError before any frame is produced.
//
// # Thread Safety
//
// Encoding, fragmenting and parsing are pure functions. A Builder only reads
// its model descriptor and is safe for concurrent use.
package protocol
