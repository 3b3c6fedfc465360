package audio

import (
	"bytes"
	"testing"
)

func TestRingBuffer_WriteThenRead(t *testing.T) {
	rb := NewRingBuffer(16)

	data := []byte{1, 2, 3, 4, 5}
	if n := rb.Write(data); n != 5 {
		t.Fatalf("Expected 5 bytes written, got %d", n)
	}
	if rb.Available() != 5 {
		t.Errorf("Expected 5 bytes available, got %d", rb.Available())
	}

	out := make([]byte, 5)
	if n := rb.Read(out); n != 5 {
		t.Fatalf("Expected 5 bytes read, got %d", n)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("Expected %v, got %v", data, out)
	}
	if rb.Available() != 0 {
		t.Errorf("Expected empty buffer, got %d available", rb.Available())
	}
}

func TestRingBuffer_WrapAround(t *testing.T) {
	rb := NewRingBuffer(8)

	rb.Write([]byte{1, 2, 3, 4, 5, 6})
	out := make([]byte, 4)
	rb.Read(out)

	// The next write wraps past the end of the backing array
	rb.Write([]byte{7, 8, 9, 10})

	got := make([]byte, 6)
	n := rb.Read(got)
	want := []byte{5, 6, 7, 8, 9, 10}
	if n != 6 || !bytes.Equal(got[:n], want) {
		t.Errorf("Expected %v, got %v (n=%d)", want, got[:n], n)
	}
}

func TestRingBuffer_OverflowDropsExcess(t *testing.T) {
	rb := NewRingBuffer(4)

	if n := rb.Write([]byte{1, 2, 3, 4, 5, 6}); n != 4 {
		t.Fatalf("Expected 4 bytes written to full capacity, got %d", n)
	}

	out := make([]byte, 8)
	n := rb.Read(out)
	if n != 4 || !bytes.Equal(out[:n], []byte{1, 2, 3, 4}) {
		t.Errorf("Expected oldest 4 bytes preserved, got %v", out[:n])
	}
}

func TestRingBuffer_ReadFromEmpty(t *testing.T) {
	rb := NewRingBuffer(8)

	out := make([]byte, 4)
	if n := rb.Read(out); n != 0 {
		t.Errorf("Expected 0 bytes from empty buffer, got %d", n)
	}
}

func TestRingBuffer_Clear(t *testing.T) {
	rb := NewRingBuffer(8)

	rb.Write([]byte{1, 2, 3})
	rb.Clear()

	if rb.Available() != 0 {
		t.Errorf("Expected empty buffer after clear, got %d", rb.Available())
	}
	out := make([]byte, 4)
	if n := rb.Read(out); n != 0 {
		t.Errorf("Expected no bytes after clear, got %d", n)
	}
}

func TestRingBuffer_PartialRead(t *testing.T) {
	rb := NewRingBuffer(16)

	rb.Write([]byte{1, 2, 3, 4, 5, 6})

	out := make([]byte, 2)
	if n := rb.Read(out); n != 2 || !bytes.Equal(out, []byte{1, 2}) {
		t.Fatalf("Expected first 2 bytes, got %v (n=%d)", out, n)
	}
	if rb.Available() != 4 {
		t.Errorf("Expected 4 bytes remaining, got %d", rb.Available())
	}
}
