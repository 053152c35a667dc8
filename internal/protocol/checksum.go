package protocol

// Checksum returns the XOR of every byte in data.
//
// The device validates byte 19 of each frame against this value computed
// over bytes 0-18.
func Checksum(data []byte) uint8 {
	var sum uint8
	for _, b := range data {
		sum ^= b
	}
	return sum
}
