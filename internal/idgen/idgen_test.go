package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStableHashIsDeterministic(t *testing.T) {
	m := []string{"ISRC:USABC1234567", "My Track"}
	a := StableHash(KindRes, m)
	b := StableHash(KindRes, m)
	assert.Equal(t, a, b)
	assert.True(t, len(a) > 1)
	assert.Equal(t, "A", a[:1])
}

func TestStableHashDiffersOnMaterialChange(t *testing.T) {
	a := StableHash(KindParty, []string{"DPID:1"})
	b := StableHash(KindParty, []string{"DPID:2"})
	assert.NotEqual(t, a, b)
}

func TestSequentialGeneratorIncrements(t *testing.T) {
	g := New(StrategySequential, nil)
	id1, err := g.Next(KindRelease, nil)
	assert.NoError(t, err)
	id2, err := g.Next(KindRelease, nil)
	assert.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}

func TestGeneratorDetectsConflictWithExistingKey(t *testing.T) {
	existing := []string{StableHash(KindDeal, []string{"x"})}
	g := New(StrategyStableHash, existing)
	_, err := g.Next(KindDeal, []string{"x"})
	assert.Error(t, err)
}

func TestUUIDv4GeneratorNeverRepeatsAcrossCalls(t *testing.T) {
	g := New(StrategyUUIDv4, nil)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		id, err := g.Next(KindParty, nil)
		assert.NoError(t, err)
		assert.False(t, seen[id])
		seen[id] = true
	}
}
