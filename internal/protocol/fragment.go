package protocol

// MaxHeaderSize is the largest header that still fits in a lead frame
const MaxHeaderSize = ChecksumIndex - leadHeaderOffset

// maxChunks bounds the number of data chunks after the lead frame so that
// continuation markers never reach MarkerTerminal and the frame count fits
// in byte 3 of the lead frame.
const maxChunks = 0xff - 1

// LeadCapacity returns the number of payload bytes carried by the lead
// frame when the header is headerLen bytes long.
func LeadCapacity(headerLen int) int {
	return 14 - headerLen + 1
}

// MaxFragmentPayload returns the largest payload Fragment accepts for the
// given header length.
func MaxFragmentPayload(headerLen int) int {
	return LeadCapacity(headerLen) + maxChunks*ChunkSize
}

// FrameCount returns the number of frames Fragment produces for a payload
// of payloadLen bytes and a header of headerLen bytes.
func FrameCount(headerLen, payloadLen int) int {
	chunks, _ := chunkPlan(LeadCapacity(headerLen), payloadLen)
	return chunks + 1
}

// chunkPlan splits the bytes that overflow the lead frame into chunks.
// It returns the chunk count and the size of the last chunk. A payload that
// fits in the lead frame still yields one (empty) terminal chunk.
func chunkPlan(capacity, payloadLen int) (chunks, last int) {
	if payloadLen <= capacity {
		return 1, 0
	}

	excess := payloadLen - capacity
	chunks = excess / ChunkSize
	last = excess % ChunkSize
	if last > 0 {
		chunks++
	} else {
		// An evenly divisible excess ends in a full chunk, never an empty one
		last = ChunkSize
	}
	return chunks, last
}

// Fragment splits payload into an ordered sequence of extended frames.
//
// The lead frame carries the header followed by the first LeadCapacity
// bytes of payload. Each following 17-byte chunk goes into a continuation
// frame with markers 1, 2, ... except the final chunk, which is carried by
// the terminal frame (marker 0xff). When the whole payload fits in the lead
// frame the terminal frame is empty.
//
// Frames must be written in the returned order.
func Fragment(classTag byte, header, payload []byte) ([]Frame, error) {
	if len(header) > MaxHeaderSize {
		return nil, newValidationError(ErrInvalidHeader, "header is %d bytes (max %d)", len(header), MaxHeaderSize)
	}

	capacity := LeadCapacity(len(header))
	if len(payload) > MaxFragmentPayload(len(header)) {
		return nil, newValidationError(ErrPayloadTooLarge, "%d bytes (max %d)", len(payload), MaxFragmentPayload(len(header)))
	}

	chunks, last := chunkPlan(capacity, len(payload))

	leadData := payload
	if len(leadData) > capacity {
		leadData = payload[:capacity]
	}

	frames := make([]Frame, 0, chunks+1)
	// Total = lead + (chunks-1) continuations + terminal
	frames = append(frames, newLeadFrame(classTag, chunks+1, header, leadData))

	offset := len(leadData)
	for seq := 1; seq < chunks; seq++ {
		frames = append(frames, newContinuationFrame(classTag, seq, payload[offset:offset+ChunkSize]))
		offset += ChunkSize
	}

	frames = append(frames, newTerminalFrame(classTag, payload[offset:offset+last]))

	return frames, nil
}
