package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, time.February, 17, hour, minute, 0, 0, time.Local)
}

func TestPreferred(t *testing.T) {
	assert.True(t, Preferred(at(10, 0)))
	assert.True(t, Preferred(at(10, 30)))
	assert.True(t, Preferred(at(14, 0)))
	assert.True(t, Preferred(at(17, 30)))
	assert.False(t, Preferred(at(9, 0)))
	assert.False(t, Preferred(at(12, 0)))
	assert.False(t, Preferred(at(15, 30)))
}

func TestRank_PreferredFirstThenChronological(t *testing.T) {
	candidates := []time.Time{
		at(9, 0),
		at(10, 0),
		at(11, 30),
		at(13, 0),
		at(15, 0),
		at(16, 30),
	}

	ranked := Rank(candidates, 0)
	require.Len(t, ranked, 6)

	want := []time.Time{
		at(10, 0),
		at(13, 0),
		at(16, 30),
		at(9, 0),
		at(11, 30),
		at(15, 0),
	}
	assert.Equal(t, want, ranked)
}

func TestRank_Limit(t *testing.T) {
	candidates := []time.Time{at(9, 0), at(10, 0), at(11, 0), at(13, 0)}

	ranked := Rank(candidates, 2)
	require.Len(t, ranked, 2)
	assert.Equal(t, at(10, 0), ranked[0])
	assert.Equal(t, at(13, 0), ranked[1])
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	candidates := []time.Time{at(15, 0), at(10, 0)}
	Rank(candidates, 0)
	assert.Equal(t, at(15, 0), candidates[0])
}

func TestRank_AllSlotsSurviveWithoutLimit(t *testing.T) {
	monday := time.Date(2025, time.February, 17, 0, 0, 0, 0, time.Local)
	candidates := SlotsForDate(OfficeHours(), monday, 30*time.Minute)

	ranked := Rank(candidates, 0)
	assert.ElementsMatch(t, candidates, ranked)
}
