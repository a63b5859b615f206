package rings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnionFindGroupsTransitively(t *testing.T) {
	uf := newUnionFind()
	uf.union("A", "B")
	uf.union("B", "C")
	uf.union("X", "Y")

	groups := uf.components()
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"A", "B", "C"}, groups[0])
	assert.Equal(t, []string{"X", "Y"}, groups[1])
}

func TestUnionFindOrderInvariance(t *testing.T) {
	first := newUnionFind()
	first.union("A", "B")
	first.union("C", "D")
	first.union("B", "C")

	second := newUnionFind()
	second.union("C", "D")
	second.union("B", "C")
	second.union("A", "B")

	assert.Equal(t, first.components(), second.components())
}

func TestUnionFindSingletonFromFind(t *testing.T) {
	uf := newUnionFind()
	uf.find("LONER")

	groups := uf.components()
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"LONER"}, groups[0])
}

func TestUnionFindRepeatedUnionIsStable(t *testing.T) {
	uf := newUnionFind()
	uf.union("A", "B")
	uf.union("A", "B")
	uf.union("B", "A")

	groups := uf.components()
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"A", "B"}, groups[0])
}
