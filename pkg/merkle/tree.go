package merkle

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Tree is a fixed-depth Poseidon2 Merkle tree over field elements. Leaves
// beyond the ones supplied are zero elements, so a depth-10 tree always has
// 1024 leaf slots and every inclusion path has exactly 10 levels.
type Tree struct {
	depth  int
	levels [][]fr.Element // levels[0] = padded leaves, levels[depth][0] = root
}

// Path is an inclusion path from a leaf to the root. Indices[i] is the
// direction bit at level i (0 = the current node is the left child) and
// Siblings[i] is the other child at that level. Both always have exactly
// tree-depth entries.
type Path struct {
	Indices  []int
	Siblings []fr.Element
}

// NewTree builds a tree of the given depth over the supplied leaves.
func NewTree(depth int, leaves []fr.Element) (*Tree, error) {
	if depth <= 0 {
		return nil, fmt.Errorf("merkle: depth must be positive, got %d", depth)
	}
	capacity := 1 << depth
	if len(leaves) > capacity {
		return nil, fmt.Errorf("merkle: %d leaves exceed capacity %d of depth-%d tree", len(leaves), capacity, depth)
	}

	padded := make([]fr.Element, capacity)
	copy(padded, leaves)

	levels := make([][]fr.Element, depth+1)
	levels[0] = padded
	for lvl := 1; lvl <= depth; lvl++ {
		prev := levels[lvl-1]
		cur := make([]fr.Element, len(prev)/2)
		for i := range cur {
			cur[i] = HashNode(prev[2*i], prev[2*i+1])
		}
		levels[lvl] = cur
	}

	return &Tree{depth: depth, levels: levels}, nil
}

func (t *Tree) Depth() int { return t.depth }

func (t *Tree) Root() fr.Element { return t.levels[t.depth][0] }

// Proof returns the inclusion path for the leaf at the given index.
func (t *Tree) Proof(index int) (*Path, error) {
	if index < 0 || index >= len(t.levels[0]) {
		return nil, fmt.Errorf("merkle: leaf index %d out of range [0,%d)", index, len(t.levels[0]))
	}

	p := &Path{
		Indices:  make([]int, t.depth),
		Siblings: make([]fr.Element, t.depth),
	}
	pos := index
	for lvl := 0; lvl < t.depth; lvl++ {
		bit := pos & 1
		p.Indices[lvl] = bit
		p.Siblings[lvl] = t.levels[lvl][pos^1]
		pos >>= 1
	}
	return p, nil
}

// VerifyPath walks the path from leaf to root natively, mirroring the
// in-circuit chain. Returns false on a malformed path rather than erroring,
// since a failed walk and a wrong root are the same outcome for callers.
func VerifyPath(root, leaf fr.Element, p *Path) bool {
	if p == nil || len(p.Indices) != len(p.Siblings) {
		return false
	}
	cur := leaf
	for i := range p.Indices {
		switch p.Indices[i] {
		case 0:
			cur = HashNode(cur, p.Siblings[i])
		case 1:
			cur = HashNode(p.Siblings[i], cur)
		default:
			return false
		}
	}
	return cur.Equal(&root)
}
