package modbuscomm

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"gotest.tools/v3/assert"
)

type fakeClient struct {
	registers map[uint16][]byte
}

func (f fakeClient) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	b, ok := f.registers[address]
	if !ok {
		return nil, errors.New("illegal data address")
	}
	return b, nil
}

func u16Bytes(v uint16, order binary.ByteOrder) []byte {
	b := make([]byte, 2)
	order.PutUint16(b, v)
	return b
}

func u32Bytes(v uint32, order binary.ByteOrder) []byte {
	b := make([]byte, 4)
	order.PutUint32(b, v)
	return b
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		bytes    []byte
		register Register
		want     float64
	}{
		{"u16 big", u16Bytes(480, binary.BigEndian), Register{DataType: U16, Endianness: BigEndian}, 480},
		{"u16 little", u16Bytes(480, binary.LittleEndian), Register{DataType: U16, Endianness: LittleEndian}, 480},
		{"i16", u16Bytes(uint16(0xFFFF), binary.BigEndian), Register{DataType: I16}, -1},
		{"u32", u32Bytes(70000, binary.BigEndian), Register{DataType: U32}, 70000},
		{"i32", u32Bytes(uint32(0xFFFFFFFE), binary.BigEndian), Register{DataType: I32}, -2},
		{"f32", u32Bytes(math.Float32bits(0.5), binary.BigEndian), Register{DataType: F32}, 0.5},
		{"scaled", u16Bytes(512, binary.BigEndian), Register{DataType: U16, Scale: 0.001}, 0.512},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decode(tc.bytes, tc.register)
			assert.NilError(t, err)
			assert.Assert(t, math.Abs(got-tc.want) < 1e-9, "got %v want %v", got, tc.want)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := decode([]byte{0x01}, Register{Name: "soc", DataType: U16})
	assert.ErrorContains(t, err, "got 1 bytes, want 2")

	_, err = decode([]byte{0x01, 0x02}, Register{Name: "soc", DataType: "f64"})
	assert.ErrorContains(t, err, "unknown data type")
}

func TestReadAll(t *testing.T) {
	client := fakeClient{registers: map[uint16][]byte{
		100: u16Bytes(55, binary.BigEndian),
	}}
	registers := []Register{
		{Name: "SOC", Address: 100, DataType: U16},
		{Name: "Missing", Address: 200, DataType: U16},
	}

	values, err := readAll(client, registers)
	assert.ErrorContains(t, err, "illegal data address")
	assert.Equal(t, values["SOC"], 55.0)
	_, ok := values["Missing"]
	assert.Assert(t, !ok)
}

func TestReadSoC(t *testing.T) {
	client := fakeClient{registers: map[uint16][]byte{
		10: u16Bytes(625, binary.BigEndian),
		11: u16Bytes(1500, binary.BigEndian),
		20: u32Bytes(math.Float32bits(float32(math.NaN())), binary.BigEndian),
		22: u32Bytes(math.Float32bits(float32(math.Inf(1))), binary.BigEndian),
	}}
	p := Poller{client: client}

	soc, err := readSoC(p, Register{Name: "SOC", Address: 10, DataType: U16, Scale: 0.001})
	assert.NilError(t, err)
	assert.Assert(t, math.Abs(soc-0.625) < 1e-9)

	soc, err = readSoC(p, Register{Name: "SOC", Address: 11, DataType: U16, Scale: 0.001})
	assert.NilError(t, err)
	assert.Equal(t, soc, 1.0, "soc is clamped to 1")

	_, err = readSoC(p, Register{Name: "SOC", Address: 12, DataType: U16})
	assert.ErrorContains(t, err, "read soc")

	_, err = readSoC(p, Register{Name: "SOC", Address: 20, DataType: F32})
	assert.ErrorContains(t, err, "not a finite number")

	_, err = readSoC(p, Register{Name: "SOC", Address: 22, DataType: F32})
	assert.ErrorContains(t, err, "not a finite number")
}

func TestReadSoCCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := SoCReader{}.ReadSoC(ctx, Source{IPAddr: "127.0.0.1", Port: "502"})
	assert.Assert(t, errors.Is(err, context.Canceled))
}
