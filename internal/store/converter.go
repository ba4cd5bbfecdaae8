package store

import (
	"bytes"
	"encoding/binary"
)

// Float64SliceToBytes converts []float64 to little-endian bytes
func Float64SliceToBytes(data []float64) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, data)
	return buf.Bytes()
}

// BytesToFloat64Slice converts little-endian bytes to []float64
func BytesToFloat64Slice(data []byte) []float64 {
	result := make([]float64, len(data)/8)
	binary.Read(bytes.NewReader(data), binary.LittleEndian, &result)
	return result
}

// Uint64SliceToBytes converts []uint64 to []byte
func Uint64SliceToBytes(data []uint64) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, data)
	return buf.Bytes()
}

// BytesToUint64Slice converts []byte to []uint64
func BytesToUint64Slice(data []byte) []uint64 {
	result := make([]uint64, len(data)/8)
	binary.Read(bytes.NewReader(data), binary.LittleEndian, &result)
	return result
}
