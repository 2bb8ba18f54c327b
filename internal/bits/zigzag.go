package bits

// DecodeZigZag decodes a ZigZag encoded integer and returns it.
//
// Examples of ZigZag encoded values on the left and decoded values on the
// right:
//
//	0 =>  0
//	1 => -1
//	2 =>  1
//	3 => -2
//	4 =>  2
//	5 => -3
//	6 =>  3
//
// ref: https://developers.google.com/protocol-buffers/docs/encoding
func DecodeZigZag(x uint32) int32 {
	return int32(x>>1) ^ -int32(x&1)
}

// EncodeZigZag ZigZag encodes a signed integer and returns it.
func EncodeZigZag(x int32) uint32 {
	return uint32(x<<1) ^ uint32(x>>31)
}

// DecodeZigZag64 is the 64-bit width counterpart of DecodeZigZag, used to
// fold Rice-coded residuals wide enough to overflow a 32-bit value.
func DecodeZigZag64(x uint64) int64 {
	return int64(x>>1) ^ -int64(x&1)
}

// EncodeZigZag64 is the 64-bit width counterpart of EncodeZigZag.
func EncodeZigZag64(x int64) uint64 {
	return uint64(x<<1) ^ uint64(x>>63)
}
