package scheduler

import (
	"testing"

	"github.com/aukilabs/sowilo/models"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func drain(it *Iterator) []int64 {
	var keys []int64
	for k, ok := it.Next(); ok; k, ok = it.Next() {
		keys = append(keys, k)
	}
	return keys
}

func TestQueue(t *testing.T) {
	t.Run("add and remove report changes", func(t *testing.T) {
		q := NewQueue()
		require.True(t, q.Add(1))
		require.False(t, q.Add(1))
		require.True(t, q.Contains(1))
		require.Equal(t, 1, q.Len())

		require.True(t, q.Remove(1))
		require.False(t, q.Remove(1))
		require.Zero(t, q.Len())
	})

	t.Run("sorted by chebyshev distance", func(t *testing.T) {
		origin := models.NewSectionPos(0, 0, 0)
		positions := []models.SectionPos{
			models.NewSectionPos(5, 0, 0),
			models.NewSectionPos(0, -1, 0),
			models.NewSectionPos(3, 2, -1),
			models.NewSectionPos(1, 1, 1),
			origin,
		}

		q := NewQueue()
		for _, p := range positions {
			q.Add(p.Key())
		}

		expected := []int64{
			origin.Key(),
			positions[1].Key(),
			positions[3].Key(),
			positions[2].Key(),
			positions[0].Key(),
		}
		require.Equal(t, expected, drain(q.SortedEntries(origin)))

		// Each call restarts from the beginning.
		it := q.SortedEntries(origin)
		require.Equal(t, 5, it.Remaining())
		require.Equal(t, expected, drain(q.SortedEntries(origin)))
	})

	t.Run("far sections are sorted too", func(t *testing.T) {
		origin := models.NewSectionPos(0, 0, 0)
		far := models.NewSectionPos(100000, 0, 0)
		near := models.NewSectionPos(0, 0, 2)

		q := NewQueue()
		q.Add(far.Key())
		q.Add(near.Key())
		require.Equal(t, []int64{near.Key(), far.Key()}, drain(q.SortedEntries(origin)))
	})

	t.Run("order is non-decreasing and stable", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			origin := models.NewSectionPos(
				rapid.Int32Range(-50, 50).Draw(t, "ox"),
				rapid.Int32Range(-10, 10).Draw(t, "oy"),
				rapid.Int32Range(-50, 50).Draw(t, "oz"),
			)

			q := NewQueue()
			var inserted []int64
			n := rapid.IntRange(0, 200).Draw(t, "n")
			for i := 0; i < n; i++ {
				p := models.NewSectionPos(
					rapid.Int32Range(-60, 60).Draw(t, "x"),
					rapid.Int32Range(-12, 12).Draw(t, "y"),
					rapid.Int32Range(-60, 60).Draw(t, "z"),
				)
				if q.Add(p.Key()) {
					inserted = append(inserted, p.Key())
				}
				if rapid.IntRange(0, 4).Draw(t, "remove") == 0 && len(inserted) > 0 {
					k := inserted[0]
					inserted = inserted[1:]
					require.True(t, q.Remove(k))
				}
			}

			keys := drain(q.SortedEntries(origin))
			require.Len(t, keys, len(inserted))

			order := make(map[int64]int, len(inserted))
			for i, k := range inserted {
				order[k] = i
			}

			for i := 1; i < len(keys); i++ {
				prev := origin.ChebyshevDistance(models.SectionPosFromKey(keys[i-1]))
				cur := origin.ChebyshevDistance(models.SectionPosFromKey(keys[i]))
				require.LessOrEqual(t, prev, cur)
				if prev == cur {
					require.Less(t, order[keys[i-1]], order[keys[i]])
				}
			}
		})
	})
}
