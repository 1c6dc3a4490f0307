package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want uint16
	}{
		{"five", []byte{0x05, 0x00}, 5},
		{"high byte", []byte{0x00, 0x01}, 256},
		{"max", []byte{0xff, 0xff}, 65535},
		{"mixed", []byte{0x34, 0x12}, 0x1234},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeValue(tt.in)
			if err != nil {
				t.Fatalf("DecodeValue(%x) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("DecodeValue(%x) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeValueDeterministic(t *testing.T) {
	for hi := 0; hi < 256; hi += 17 {
		for lo := 0; lo < 256; lo += 13 {
			b := []byte{byte(lo), byte(hi)}
			first, err := DecodeValue(b)
			if err != nil {
				t.Fatalf("DecodeValue(%x) error = %v", b, err)
			}
			second, _ := DecodeValue(b)
			if first != second {
				t.Fatalf("DecodeValue(%x) not deterministic: %d vs %d", b, first, second)
			}
			if want := uint16(hi)<<8 | uint16(lo); first != want {
				t.Errorf("DecodeValue(%x) = %d, want %d", b, first, want)
			}
		}
	}
}

func TestDecodeValueWrongLength(t *testing.T) {
	for _, n := range []int{0, 1, 3, 4, 8, 20} {
		_, err := DecodeValue(make([]byte, n))
		if err == nil {
			t.Errorf("DecodeValue(len=%d) should fail", n)
			continue
		}
		if !errors.Is(err, ErrInvalidLength) {
			t.Errorf("DecodeValue(len=%d) error = %v, want ErrInvalidLength", n, err)
		}
		var de *DecodeError
		if !errors.As(err, &de) || de.Len != n {
			t.Errorf("DecodeValue(len=%d) DecodeError.Len = %v", n, de)
		}
	}
}

func TestEncodeCommand(t *testing.T) {
	tests := []struct {
		v     uint64
		width int
		want  []byte
	}{
		{1, 1, []byte{0x01}},
		{1, 2, []byte{0x01, 0x00}},
		{0x0102, 2, []byte{0x02, 0x01}},
		{1, 4, []byte{0x01, 0x00, 0x00, 0x00}},
		{1, 8, []byte{0x01, 0, 0, 0, 0, 0, 0, 0}},
	}

	for _, tt := range tests {
		got, err := EncodeCommand(tt.v, tt.width)
		if err != nil {
			t.Fatalf("EncodeCommand(%d, %d) error = %v", tt.v, tt.width, err)
		}
		if !bytes.Equal(got, tt.want) {
			t.Errorf("EncodeCommand(%d, %d) = %x, want %x", tt.v, tt.width, got, tt.want)
		}
	}
}

func TestEncodeCommandValidation(t *testing.T) {
	if _, err := EncodeCommand(1, 3); err == nil {
		t.Error("expected error for width 3")
	}
	if _, err := EncodeCommand(256, 1); err == nil {
		t.Error("expected error for 256 in 1 byte")
	}
	if _, err := EncodeCommand(1<<16, 2); err == nil {
		t.Error("expected error for 65536 in 2 bytes")
	}
	if _, err := EncodeCommand(1<<40, 8); err != nil {
		t.Errorf("EncodeCommand(1<<40, 8) error = %v", err)
	}
}
