package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour, min int) time.Time {
	return time.Date(2024, 3, 4, hour, min, 0, 0, time.UTC)
}

func TestOverlapsBoundedWindows(t *testing.T) {
	cases := []struct {
		name string
		a, b Window
		want bool
	}{
		{"disjoint", Closed(at(9, 0), at(10, 0)), Closed(at(11, 0), at(12, 0)), false},
		{"touching boundaries do not overlap", Closed(at(9, 0), at(10, 0)), Closed(at(10, 0), at(11, 0)), false},
		{"partial overlap", Closed(at(9, 0), at(10, 30)), Closed(at(10, 0), at(11, 0)), true},
		{"containment", Closed(at(9, 0), at(12, 0)), Closed(at(10, 0), at(11, 0)), true},
		{"identical", Closed(at(9, 0), at(10, 0)), Closed(at(9, 0), at(10, 0)), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.a, tc.b))
			assert.Equal(t, tc.want, Overlaps(tc.b, tc.a), "predicate must be symmetric")
		})
	}
}

func TestOverlapsOpenEnded(t *testing.T) {
	open := Open(at(10, 0))

	assert.False(t, Overlaps(open, Closed(at(9, 0), at(9, 30))))
	assert.False(t, Overlaps(open, Closed(at(9, 0), at(10, 0))))
	assert.True(t, Overlaps(open, Closed(at(9, 30), at(10, 30))))
	assert.True(t, Overlaps(open, Closed(at(15, 0), at(16, 0))))
	assert.True(t, Overlaps(open, Open(at(8, 0))))
	assert.True(t, Overlaps(open, Open(at(23, 0))))
}

func TestWindowContains(t *testing.T) {
	w := Closed(at(9, 0), at(10, 0))

	assert.True(t, w.Contains(at(9, 0)))
	assert.True(t, w.Contains(at(9, 59)))
	assert.False(t, w.Contains(at(10, 0)), "half-open end is exclusive")
	assert.False(t, w.Contains(at(8, 59)))

	open := Open(at(9, 0))
	assert.True(t, open.Contains(at(23, 59)))
	assert.False(t, open.Contains(at(8, 0)))
}
