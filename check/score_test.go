package check_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/optimode/mailscore/check"
	"github.com/optimode/mailscore/types"
)

func TestScore_Weights(t *testing.T) {
	all := types.Checks{Syntax: true, MXRecords: true, NotDisposable: true, NotRoleBased: true}

	assert.Equal(t, 100, check.Score(all, false))
	assert.Equal(t, 95, check.Score(all, true))
	assert.Equal(t, 5, check.Score(types.Checks{}, false))
	assert.Equal(t, 0, check.Score(types.Checks{}, true))

	noMX := all
	noMX.MXRecords = false
	assert.Equal(t, 65, check.Score(noMX, false))
}

func TestScore_Bounds(t *testing.T) {
	// exhaustively walk every combination of the five inputs
	for mask := 0; mask < 32; mask++ {
		c := types.Checks{
			Syntax:        mask&1 != 0,
			MXRecords:     mask&2 != 0,
			NotDisposable: mask&4 != 0,
			NotRoleBased:  mask&8 != 0,
		}
		free := mask&16 != 0
		s := check.Score(c, free)
		assert.GreaterOrEqual(t, s, 0)
		assert.LessOrEqual(t, s, 100)
		if s == 100 {
			assert.Equal(t, 15, mask, "100 only when every condition is favorable")
		}
	}
}

func TestValid(t *testing.T) {
	ok := types.Checks{Syntax: true, MXRecords: true, NotDisposable: true}
	assert.True(t, check.Valid(ok, false))
	assert.False(t, check.Valid(ok, true))

	noSyntax := ok
	noSyntax.Syntax = false
	assert.False(t, check.Valid(noSyntax, false))

	noMX := ok
	noMX.MXRecords = false
	assert.False(t, check.Valid(noMX, false))

	// role-based addresses are still deliverable
	ok.NotRoleBased = false
	assert.True(t, check.Valid(ok, false))
}
