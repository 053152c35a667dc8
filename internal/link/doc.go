// Package link delivers frame sequences to lights.
//
// A Connector opens a Session to one device; a Session writes frames to
// the control characteristic. The Dispatcher ties them together:
//
//	acquire device lock → connect (with retries) → write frames in order
//	→ disconnect → release lock
//
// # Ordering
//
// Frames of one sequence are written strictly in order and each write
// completes before the next starts. Sequences for the same address never
// interleave. The first failed write aborts the rest of the sequence and
// is reported as a *TransportError carrying the frame index. A device may
// then hold a prefix of a fragmented command; callers resend the whole
// command rather than the missing frames.
//
// # Retries
//
// Only connecting is retried, according to a RetryPolicy (three immediate
// attempts by default). Writes are never retried.
//
// # Bluetooth
//
// BLEConnector uses tinygo.org/x/bluetooth. It scans for the address,
// connects, resolves the control characteristic and writes without
// response:
//
//	connector := link.NewBLEConnector(bluetooth.DefaultAdapter, discovery.NewScanner())
//	d := link.NewDispatcher(connector, link.DefaultRetryPolicy(), nil)
//	err := d.Send(ctx, "A4:C1:38:00:11:22", frames)
package link
