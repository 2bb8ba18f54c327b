package frame

import (
	"github.com/lossless/flac/ferr"
	"github.com/lossless/flac/internal/bitio"
)

// fixedCoefs holds the FIXED predictor coefficients for orders 0-4, the
// same table libFLAC and every compliant decoder use.
var fixedCoefs = [][]int64{
	{},
	{1},
	{2, -1},
	{3, -3, 1},
	{4, -6, 4, -1},
}

// decodeSubframe decodes blockSize samples at sampleDepth bits into out,
// which must have length blockSize.
func decodeSubframe(br *bitio.Reader, sampleDepth int32, out []int64) error {
	padding, err := br.ReadUint(1)
	if err != nil {
		return mid(err)
	}
	if padding != 0 {
		return ferr.DataFormatf("subframe: reserved padding bit set")
	}
	typeCode, err := br.ReadUint(6)
	if err != nil {
		return mid(err)
	}

	shift, err := readWastedBits(br, sampleDepth)
	if err != nil {
		return err
	}
	depth := sampleDepth - int32(shift)
	if depth < 1 {
		return ferr.DataFormatf("subframe: wasted bits count leaves no bits of sample depth")
	}

	switch {
	case typeCode == 0:
		err = decodeConstant(br, depth, out)
	case typeCode == 1:
		err = decodeVerbatim(br, depth, out)
	case typeCode >= 8 && typeCode <= 12:
		err = decodeFixed(br, int(typeCode-8), depth, out)
	case typeCode >= 32 && typeCode <= 63:
		err = decodeLPC(br, int(typeCode-31), depth, out)
	default:
		return ferr.DataFormatf("subframe: reserved subframe type %d", typeCode)
	}
	if err != nil {
		return err
	}

	if shift > 0 {
		for i := range out {
			out[i] <<= shift
		}
	}
	return nil
}

// readWastedBits reads the wasted-bits-per-sample unary flag: a single 0
// bit means no wasted bits; a 1 bit followed by k more 0 bits and a
// terminating 1 bit means k+1 wasted bits.
func readWastedBits(br *bitio.Reader, sampleDepth int32) (uint, error) {
	flag, err := br.ReadUint(1)
	if err != nil {
		return 0, mid(err)
	}
	if flag == 0 {
		return 0, nil
	}
	shift := uint(1)
	for {
		if int32(shift) >= sampleDepth {
			return 0, ferr.DataFormatf("subframe: wasted bits count is not less than sample depth")
		}
		bit, err := br.ReadUint(1)
		if err != nil {
			return 0, mid(err)
		}
		if bit == 1 {
			return shift, nil
		}
		shift++
	}
}

func decodeConstant(br *bitio.Reader, depth int32, out []int64) error {
	v, err := br.ReadSignedInt(int(depth))
	if err != nil {
		return mid(err)
	}
	for i := range out {
		out[i] = int64(v)
	}
	return nil
}

func decodeVerbatim(br *bitio.Reader, depth int32, out []int64) error {
	for i := range out {
		v, err := br.ReadSignedInt(int(depth))
		if err != nil {
			return mid(err)
		}
		out[i] = int64(v)
	}
	return nil
}

func decodeFixed(br *bitio.Reader, order int, depth int32, out []int64) error {
	if order >= len(fixedCoefs) {
		return ferr.DataFormatf("subframe: invalid fixed predictor order %d", order)
	}
	if order > len(out) {
		return ferr.DataFormatf("subframe: fixed predictor order %d exceeds block size %d", order, len(out))
	}
	for i := 0; i < order; i++ {
		v, err := br.ReadSignedInt(int(depth))
		if err != nil {
			return mid(err)
		}
		out[i] = int64(v)
	}
	if err := readResiduals(br, order, out); err != nil {
		return err
	}
	return restoreLPC(out, fixedCoefs[order], 0, depth)
}

func decodeLPC(br *bitio.Reader, order int, depth int32, out []int64) error {
	if order > len(out) {
		return ferr.DataFormatf("subframe: LPC order %d exceeds block size %d", order, len(out))
	}
	for i := 0; i < order; i++ {
		v, err := br.ReadSignedInt(int(depth))
		if err != nil {
			return mid(err)
		}
		out[i] = int64(v)
	}
	precisionCode, err := br.ReadUint(4)
	if err != nil {
		return mid(err)
	}
	if precisionCode == 15 {
		return ferr.DataFormatf("subframe: reserved LPC coefficient precision code")
	}
	precision := int(precisionCode) + 1

	rawShift, err := br.ReadSignedInt(5)
	if err != nil {
		return mid(err)
	}
	if rawShift < 0 {
		return ferr.DataFormatf("subframe: negative LPC shift %d is reserved", rawShift)
	}
	shift := uint(rawShift)

	coefs := make([]int64, order)
	for i := 0; i < order; i++ {
		c, err := br.ReadSignedInt(precision)
		if err != nil {
			return mid(err)
		}
		coefs[i] = int64(c)
	}

	if err := readResiduals(br, order, out); err != nil {
		return err
	}
	return restoreLPC(out, coefs, shift, depth)
}

// restoreLPC runs the LPC (or FIXED, via a degenerate coefs/shift) recovery
// filter forward over out in place: every sample at or past len(coefs) is
// residual plus a weighted sum of the preceding len(coefs) samples.
//
// The intermediate dot product must fit a signed 54-bit integer, checked
// as sum>>53 being 0 or -1, exactly as the reference decoder does; a
// violation indicates a corrupt or adversarial bitstream rather than a
// decoder bug, so it is reported as DataFormat, not a panic.
func restoreLPC(out []int64, coefs []int64, shift uint, depth int32) error {
	order := len(coefs)
	lo := int64(-1) << uint(depth-1)
	hi := -lo - 1
	for i := order; i < len(out); i++ {
		var sum int64
		for j, c := range coefs {
			sum += out[i-1-j] * c
		}
		if top := sum >> 53; top != 0 && top != -1 {
			return ferr.DataFormatf("subframe: LPC intermediate sum overflows 53 bits")
		}
		v := out[i] + sum>>shift
		if v < lo || v > hi {
			return ferr.DataFormatf("subframe: LPC-restored sample %d exceeds %d-bit range", v, depth)
		}
		out[i] = v
	}
	return nil
}

// riceParamBits and riceEscapeParam depend on the residual coding method:
// method 0 uses a 4-bit parameter with 0xF reserved as the escape sentinel;
// method 1 uses a 5-bit parameter with 0x1F reserved.
var riceParamBits = [2]int{4, 5}
var riceEscapeParam = [2]uint32{0xF, 0x1F}

// readResiduals reads the residual coding section of a FIXED or LPC
// subframe and stores each raw residual into out[warmup:], after the
// warm-up samples, matching restoreLPC's expectation that out holds
// warm-up samples followed by raw residuals ready for the predictor.
func readResiduals(br *bitio.Reader, warmup int, out []int64) error {
	method, err := br.ReadUint(2)
	if err != nil {
		return mid(err)
	}
	if method > 1 {
		return ferr.DataFormatf("subframe: reserved residual coding method %d", method)
	}
	partitionOrder, err := br.ReadUint(4)
	if err != nil {
		return mid(err)
	}
	numPartitions := 1 << partitionOrder
	if len(out)%numPartitions != 0 {
		return ferr.DataFormatf("subframe: block size %d is not divisible by %d partitions", len(out), numPartitions)
	}
	partitionLen := len(out) / numPartitions

	paramBits := riceParamBits[method]
	escapeParam := riceEscapeParam[method]

	pos := warmup
	for p := 0; p < numPartitions; p++ {
		n := partitionLen
		if p == 0 {
			n -= warmup
		}
		param, err := br.ReadUint(paramBits)
		if err != nil {
			return mid(err)
		}
		if param == escapeParam {
			numBits, err := br.ReadUint(5)
			if err != nil {
				return mid(err)
			}
			for i := 0; i < n; i++ {
				v, err := br.ReadSignedInt(int(numBits))
				if err != nil {
					return mid(err)
				}
				out[pos+i] = int64(v)
			}
		} else if err := br.ReadRiceSignedInts(int(param), out, pos, pos+n); err != nil {
			return mid(err)
		}
		pos += n
	}
	return nil
}
