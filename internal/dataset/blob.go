package dataset

import (
	"encoding/binary"
	"fmt"
	"math"

	"loom/internal/vector"
)

// Vectors are stored as little-endian float32 blobs so the bit pattern a
// writer appends is exactly the bit pattern a reader gets back.

func vectorBlob(vec [vector.Dim]float32) []byte {
	buf := make([]byte, vector.Dim*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func vectorFromBlob(data []byte) ([vector.Dim]float32, error) {
	var vec [vector.Dim]float32
	if len(data) != vector.Dim*4 {
		return vec, fmt.Errorf("vector blob is %d bytes, want %d", len(data), vector.Dim*4)
	}
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
