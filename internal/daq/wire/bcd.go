package wire

// bcdWeights maps bit positions (relative to the field shift) to their
// decimal weight. Bit 4 is the IRIG-B position identifier gap and carries
// no weight.
var bcdWeights = [...]struct {
	bit    uint
	weight uint32
}{
	// units digit
	{0, 1}, {1, 2}, {2, 4}, {3, 8},
	// tens digit
	{5, 10}, {6, 20}, {7, 40},
}

// DecodeBCDField decodes an IRIG BCD-style field (units digit in bits 0-3,
// tens digit in bits 5-7) starting at bitShift. The result is always in
// [0, 99]; digits above 9 are not rejected, they just add up.
func DecodeBCDField(value uint32, bitShift uint) uint32 {
	var out uint32
	for _, w := range bcdWeights {
		out += ((value >> (w.bit + bitShift)) & 1) * w.weight
	}
	return out
}

// EncodeBCDField is the inverse of DecodeBCDField for values in [0, 79].
// It is used to build synthetic IRIG packets.
func EncodeBCDField(v uint32, bitShift uint) uint32 {
	units := v % 10
	tens := (v / 10) % 8
	return (units | tens<<5) << bitShift
}
