package rings

import "sort"

// unionFind groups claimants into connected components from pairwise
// edges. Uses path compression and union by size.
type unionFind struct {
	parent map[string]string
	size   map[string]int
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent: make(map[string]string),
		size:   make(map[string]int),
	}
}

func (u *unionFind) find(x string) string {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
		u.size[x] = 1
		return x
	}
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[x] != root {
		u.parent[x], x = root, u.parent[x]
	}
	return root
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.size[ra] < u.size[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	u.size[ra] += u.size[rb]
}

// components returns the connected components, each sorted by claimant
// id, ordered by their smallest member. Sorting makes detection output
// stable across runs.
func (u *unionFind) components() [][]string {
	byRoot := make(map[string][]string)
	for node := range u.parent {
		root := u.find(node)
		byRoot[root] = append(byRoot[root], node)
	}

	groups := make([][]string, 0, len(byRoot))
	for _, members := range byRoot {
		sort.Strings(members)
		groups = append(groups, members)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i][0] < groups[j][0]
	})
	return groups
}
