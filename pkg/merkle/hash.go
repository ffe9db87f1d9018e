package merkle

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
)

// Hash absorbs the given field elements into a Poseidon2 Merkle-Damgard
// sponge, matching the in-circuit hasher exactly: the native and in-circuit
// digests of the same elements are equal. Used for leaf commitments (four
// elements) and node combination (two elements).
func Hash(elems ...fr.Element) fr.Element {
	h := poseidon2.NewMerkleDamgardHasher()
	for i := range elems {
		b := elems[i].Bytes()
		_, _ = h.Write(b[:])
	}
	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return out
}

// HashNode combines two child hashes into their parent.
func HashNode(left, right fr.Element) fr.Element {
	return Hash(left, right)
}
