// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainhash

// nextPowerOfTwo returns the next highest power of two for n, used only to
// size the backing array of the full Merkle tree representation.
func nextPowerOfTwo(n int) int {
	if n&(n-1) == 0 {
		return n
	}
	exponent := 0
	for n > 0 {
		n >>= 1
		exponent++
	}
	return 1 << uint(exponent)
}

// hashMerkleBranches takes two hashes, treated as the left and right tree
// nodes, and returns the hash of their concatenation. This is the pairing
// step used both to build the tree and to fold a branch.
func hashMerkleBranches(left, right *Hash) *Hash {
	var buf [HashSize * 2]byte
	copy(buf[:HashSize], left[:])
	copy(buf[HashSize:], right[:])
	newHash := DoubleHashH(buf[:])
	return &newHash
}

// BuildMerkleTreeStore builds a full Merkle tree from the given leaf hashes
// (typically transaction hashes) and returns it as a flattened, bottom-up
// array of *Hash, the convention used to both compute the root and to
// derive branches without rebuilding the tree. When a level has an odd
// number of nodes, the last one is duplicated, matching the reference
// protocol's handling of duplicate transactions within a block.
func BuildMerkleTreeStore(leaves []Hash) []*Hash {
	if len(leaves) == 0 {
		return []*Hash{}
	}

	// Calculate the total number of nodes the tree will need, which
	// the reference implementation over-allocates to the next power of
	// two so that duplicated rows do not require reallocation.
	nextPoT := nextPowerOfTwo(len(leaves))
	arraySize := nextPoT*2 - 1
	merkles := make([]*Hash, arraySize)

	for i := range leaves {
		h := leaves[i]
		merkles[i] = &h
	}

	offset := nextPoT
	for i := 0; i < arraySize-offset; i += 2 {
		switch {
		case merkles[i] == nil:
			merkles[offset] = nil
		case merkles[i+1] == nil:
			newHash := hashMerkleBranches(merkles[i], merkles[i])
			merkles[offset] = newHash
		default:
			newHash := hashMerkleBranches(merkles[i], merkles[i+1])
			merkles[offset] = newHash
		}
		offset++
	}

	return merkles
}

// MerkleRoot returns the Merkle root of the given leaf hashes, i.e. the
// last element of BuildMerkleTreeStore.
func MerkleRoot(leaves []Hash) Hash {
	tree := BuildMerkleTreeStore(leaves)
	if len(tree) == 0 {
		return Hash{}
	}
	root := tree[len(tree)-1]
	if root == nil {
		return Hash{}
	}
	return *root
}

// MerkleBranch is the sibling hash list needed to recompute a leaf's path
// to the root, along with the leaf's original position.
type MerkleBranch struct {
	Hashes   []Hash
	Index    uint32
	NumLeafs uint32
}

// GetMerkleBranch computes the Merkle branch (the list of sibling hashes,
// bottom to top) for the leaf at position index within leaves.
func GetMerkleBranch(leaves []Hash, index uint32) MerkleBranch {
	branch := MerkleBranch{Index: index, NumLeafs: uint32(len(leaves))}
	level := make([]Hash, len(leaves))
	copy(level, leaves)
	idx := index

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		siblingIdx := idx ^ 1
		branch.Hashes = append(branch.Hashes, level[siblingIdx])

		next := make([]Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = *hashMerkleBranches(&level[i], &level[i+1])
		}
		level = next
		idx >>= 1
	}
	return branch
}

// CheckMerkleBranch folds a branch produced by GetMerkleBranch back up to
// a candidate root and reports whether it equals want.
func CheckMerkleBranch(leaf Hash, branch MerkleBranch, want Hash) bool {
	idx := branch.Index
	cur := leaf
	for _, sibling := range branch.Hashes {
		s := sibling
		if idx&1 == 0 {
			cur = *hashMerkleBranches(&cur, &s)
		} else {
			cur = *hashMerkleBranches(&s, &cur)
		}
		idx >>= 1
	}
	return cur == want
}
