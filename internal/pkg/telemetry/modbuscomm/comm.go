package modbuscomm

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DataType defines the type of Modbus register for decoding
type DataType string

// Constants of DataType
const (
	U16 DataType = "u16"
	U32 DataType = "u32"
	I16 DataType = "i16"
	I32 DataType = "i32"
	F32 DataType = "f32"
)

// Endian byte order of Modbus register for decoding
type Endian string

// Constants of Endian
const (
	LittleEndian Endian = "little"
	BigEndian    Endian = "big"
)

// Register contains the data required to read a holding register.
// Scale is applied to the decoded value, zero means 1.
type Register struct {
	Name       string   `json:"Name" toml:"Name"`
	Address    uint16   `json:"Address" toml:"Address"`
	DataType   DataType `json:"DataType" toml:"DataType"`
	Endianness Endian   `json:"Endianness" toml:"Endianness"`
	Scale      float64  `json:"Scale" toml:"Scale"`
}

// decode converts a register read into a scaled float64
func decode(bytes []byte, register Register) (float64, error) {
	want := 2 * int(sizeOf(register.DataType))
	if want == 0 {
		return 0, fmt.Errorf("modbuscomm: register %q: unknown data type %q", register.Name, register.DataType)
	}
	if len(bytes) < want {
		return 0, fmt.Errorf("modbuscomm: register %q: got %d bytes, want %d", register.Name, len(bytes), want)
	}

	var n float64
	endian := getByteOrder(register.Endianness)
	switch register.DataType {
	case U16:
		n = float64(endian.Uint16(bytes))
	case I16:
		n = float64(int16(endian.Uint16(bytes)))
	case U32:
		n = float64(endian.Uint32(bytes))
	case I32:
		n = float64(int32(endian.Uint32(bytes)))
	case F32:
		n = float64(math.Float32frombits(endian.Uint32(bytes)))
	}

	if register.Scale != 0 {
		n *= register.Scale
	}
	return n, nil
}

// getByteOrder returns the binary.ByteOrder for the register
func getByteOrder(e Endian) binary.ByteOrder {
	if e == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// sizeOf returns the number of u16 registers for the datatype
func sizeOf(t DataType) uint16 {
	switch t {
	case U16, I16:
		return 1
	case U32, I32, F32:
		return 2
	}
	return 0
}
