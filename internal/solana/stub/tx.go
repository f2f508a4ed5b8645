package stub

import "bytes"

// UnsignedTransaction returns a minimal serialized legacy transaction with one
// empty signature slot and payer as the first account key.
func UnsignedTransaction(payer []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(1)
	buf.Write(make([]byte, 64))
	buf.Write([]byte{1, 0, 1}) // header
	buf.WriteByte(2)
	buf.Write(payer)
	buf.Write(make([]byte, 32))
	buf.Write(bytes.Repeat([]byte{9}, 32)) // blockhash
	buf.WriteByte(0)                        // instructions
	return buf.Bytes()
}
