package matcher

// trieNode is one node of the reference-name prefix trie. Every node,
// including the root, stores the indices of all reference files whose
// stripped name passes through it. The root therefore holds every index,
// so a zero-length common prefix still yields the full candidate set.
type trieNode struct {
	children map[byte]*trieNode
	indices  []int
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[byte]*trieNode)}
}

// insert adds a stripped reference name to the trie, recording idx on
// every node along the path.
func (n *trieNode) insert(name string, idx int) {
	node := n
	node.indices = append(node.indices, idx)
	for i := 0; i < len(name); i++ {
		child, ok := node.children[name[i]]
		if !ok {
			child = newTrieNode()
			node.children[name[i]] = child
		}
		child.indices = append(child.indices, idx)
		node = child
	}
}

// longestPrefixIndices walks the trie along query and returns the index
// set of the deepest visited node that has a non-empty set. This is the
// candidate set of reference files sharing the longest common prefix
// with the query.
func (n *trieNode) longestPrefixIndices(query string) []int {
	node := n
	best := node.indices
	for i := 0; i < len(query); i++ {
		child, ok := node.children[query[i]]
		if !ok {
			break
		}
		node = child
		if len(node.indices) > 0 {
			best = node.indices
		}
	}
	return best
}
