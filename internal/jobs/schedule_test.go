package jobs

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextRun(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	at := 18 * time.Hour
	tests := []struct {
		name string
		now  time.Time
		loc  *time.Location
		want time.Time
	}{
		{
			name: "later today",
			now:  time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
			loc:  time.UTC,
			want: time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly at the time rolls to tomorrow",
			now:  time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC),
			loc:  time.UTC,
			want: time.Date(2024, 3, 2, 18, 0, 0, 0, time.UTC),
		},
		{
			name: "month end",
			now:  time.Date(2024, 2, 29, 20, 0, 0, 0, time.UTC),
			loc:  time.UTC,
			want: time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC),
		},
		{
			name: "other zone",
			now:  time.Date(2024, 1, 10, 16, 30, 0, 0, time.UTC),
			loc:  berlin,
			want: time.Date(2024, 1, 10, 18, 0, 0, 0, berlin),
		},
		{
			name: "across dst change",
			now:  time.Date(2024, 3, 30, 17, 30, 0, 0, time.UTC),
			loc:  berlin,
			want: time.Date(2024, 3, 31, 18, 0, 0, 0, berlin),
		},
		{
			name: "nil location is utc",
			now:  time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
			want: time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextRun(tt.now, at, tt.loc)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
			assert.True(t, got.After(tt.now))
		})
	}
}

func TestNextRun_Minutes(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	got := NextRun(now, 7*time.Hour+45*time.Minute, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 2, 7, 45, 0, 0, time.UTC), got)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, backoff(1))
	assert.Equal(t, 8*time.Second, backoff(3))
	assert.Equal(t, 512*time.Second, backoff(9))
	assert.Equal(t, 600*time.Second, backoff(10))
	assert.Equal(t, 600*time.Second, backoff(40))
}
