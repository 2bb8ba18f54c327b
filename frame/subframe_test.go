package frame

import (
	"bytes"
	"testing"

	"github.com/lossless/flac/ferr"
	"github.com/lossless/flac/internal/bitio"
)

func writeRiceBits(w *bitWriter, param int, val int64) {
	zz := uint64(val<<1) ^ uint64(val>>63)
	q := zz >> uint(param)
	for i := uint64(0); i < q; i++ {
		w.writeBits(0, 1)
	}
	w.writeBits(1, 1)
	w.writeBits(zz&(1<<uint(param)-1), param)
}

func TestReadWastedBits(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(1, 1) // flag: some wasted bits
	w.writeBits(0, 2) // two zero bits
	w.writeBits(1, 1) // terminator
	br := bitio.NewReader(bytes.NewReader(w.bytes()))
	shift, err := readWastedBits(br, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shift != 3 {
		t.Errorf("shift = %d, want 3", shift)
	}
}

func TestDecodeSubframeConstant(t *testing.T) {
	w := &bitWriter{}
	writeConstant(w, 8, -5)
	br := bitio.NewReader(bytes.NewReader(w.bytes()))
	out := make([]int64, 4)
	if err := decodeSubframe(br, 8, out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range out {
		if v != -5 {
			t.Errorf("out[%d] = %d, want -5", i, v)
		}
	}
}

func TestDecodeSubframeVerbatim(t *testing.T) {
	values := []int64{1, -2, 3, -4}
	w := &bitWriter{}
	w.writeBits(0, 1) // padding
	w.writeBits(1, 6) // type: VERBATIM
	w.writeBits(0, 1) // no wasted bits
	for _, v := range values {
		w.writeBits(uint64(v)&0xFF, 8)
	}
	br := bitio.NewReader(bytes.NewReader(w.bytes()))
	out := make([]int64, len(values))
	if err := decodeSubframe(br, 8, out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range values {
		if out[i] != want {
			t.Errorf("out[%d] = %d, want %d", i, out[i], want)
		}
	}
}

// TestDecodeSubframeFixedOrder2LinearRamp decodes an order-2 FIXED subframe
// whose warm-up samples are 0, 1 and whose residuals are all zero; the
// order-2 predictor (2*prev - prevprev) extends a linear ramp exactly, so
// the decoded block should read 0..7.
func TestDecodeSubframeFixedOrder2LinearRamp(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(0, 1)  // padding
	w.writeBits(10, 6) // type: FIXED order 2 (8+2)
	w.writeBits(0, 1)  // no wasted bits
	w.writeBits(0, 8)  // warm-up sample 0
	w.writeBits(1, 8)  // warm-up sample 1
	w.writeBits(0, 2)  // residual coding method 0
	w.writeBits(0, 4)  // partition order 0: a single partition
	w.writeBits(0, 4)  // rice parameter 0
	for i := 0; i < 6; i++ {
		writeRiceBits(w, 0, 0)
	}
	br := bitio.NewReader(bytes.NewReader(w.bytes()))
	out := make([]int64, 8)
	if err := decodeSubframe(br, 8, out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range []int64{0, 1, 2, 3, 4, 5, 6, 7} {
		if out[i] != want {
			t.Errorf("out[%d] = %d, want %d", i, out[i], want)
		}
	}
}

// TestDecodeSubframeFixedTwoPartitions exercises the partition-offset fix
// in readResiduals: an order-1 FIXED subframe split into two residual
// partitions must place the second partition's values right after the
// first, not warmup slots short.
func TestDecodeSubframeFixedTwoPartitions(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(0, 1) // padding
	w.writeBits(9, 6) // type: FIXED order 1 (8+1)
	w.writeBits(0, 1) // no wasted bits
	w.writeBits(0, 8) // warm-up sample 0
	w.writeBits(0, 2) // residual coding method 0
	w.writeBits(1, 4) // partition order 1: two partitions of 4 samples each
	// Partition 0 holds 4-1=3 residuals, partition 1 holds 4.
	w.writeBits(0, 4) // rice parameter 0
	for i := 0; i < 3; i++ {
		writeRiceBits(w, 0, 1) // residual 1 each step, prediction is prev sample
	}
	w.writeBits(0, 4) // rice parameter 0
	for i := 0; i < 4; i++ {
		writeRiceBits(w, 0, 1)
	}
	br := bitio.NewReader(bytes.NewReader(w.bytes()))
	out := make([]int64, 8)
	if err := decodeSubframe(br, 8, out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range []int64{0, 1, 2, 3, 4, 5, 6, 7} {
		if out[i] != want {
			t.Errorf("out[%d] = %d, want %d", i, out[i], want)
		}
	}
}

func TestDecodeSubframeFixedEscapeResidual(t *testing.T) {
	values := []int64{100, -100, 0, 5}
	w := &bitWriter{}
	w.writeBits(0, 1) // padding
	w.writeBits(8, 6) // type: FIXED order 0 (8+0)
	w.writeBits(0, 1) // no wasted bits
	w.writeBits(0, 2) // residual coding method 0
	w.writeBits(0, 4) // partition order 0
	w.writeBits(0xF, 4) // escape sentinel
	w.writeBits(8, 5)    // explicit residual width: 8 bits
	for _, v := range values {
		w.writeBits(uint64(v)&0xFF, 8)
	}
	br := bitio.NewReader(bytes.NewReader(w.bytes()))
	out := make([]int64, len(values))
	if err := decodeSubframe(br, 8, out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range values {
		if out[i] != want {
			t.Errorf("out[%d] = %d, want %d", i, out[i], want)
		}
	}
}

func TestDecodeSubframeReservedType(t *testing.T) {
	w := &bitWriter{}
	w.writeBits(0, 1) // padding
	w.writeBits(3, 6) // reserved subframe type
	w.writeBits(0, 1) // no wasted bits
	br := bitio.NewReader(bytes.NewReader(w.bytes()))
	out := make([]int64, 4)
	if err := decodeSubframe(br, 8, out); !ferr.Is(err, ferr.DataFormat) {
		t.Fatalf("got %v, want a DataFormat error", err)
	}
}

func TestRestoreLPCOverflow(t *testing.T) {
	// An order-1 predictor with an enormous coefficient forces the
	// intermediate dot product past 53 bits.
	out := []int64{1 << 40, 0}
	coefs := []int64{1 << 20}
	if err := restoreLPC(out, coefs, 0, 24); !ferr.Is(err, ferr.DataFormat) {
		t.Fatalf("got %v, want a DataFormat error", err)
	}
}

func TestRestoreLPCRangeCheck(t *testing.T) {
	out := []int64{200} // exceeds the signed 8-bit range [-128,127]
	if err := restoreLPC(out, nil, 0, 8); !ferr.Is(err, ferr.DataFormat) {
		t.Fatalf("got %v, want a DataFormat error", err)
	}
}

func TestRestoreLPCOrder1(t *testing.T) {
	out := []int64{5, 2} // warm-up 5, residual 2
	if err := restoreLPC(out, []int64{1}, 0, 8); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[1] != 7 {
		t.Errorf("out[1] = %d, want 7", out[1])
	}
}
