package digest

import (
	"strings"
	"testing"

	"bulletbot/internal/store"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

func notes(bodies ...string) []store.Note {
	out := make([]store.Note, 0, len(bodies))
	for i, b := range bodies {
		out = append(out, store.Note{ID: uint64(i + 1), Body: b})
	}
	return out
}

func assertGolden(t *testing.T, name, got string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(got))
}

func TestRenderDigest_TwoUsers(t *testing.T) {
	collected := []store.UserNotes{
		{Nick: "jdoe", Name: "Jane Doe", Notes: notes(
			"Reviewed the quarterly roadmap with the platform team and agreed on the rollout order for the new ingestion pipeline across all regions",
			"Paired with Sam on flaky integration tests",
		)},
		{Nick: "bob", Name: "bob", Notes: notes(
			"Wrote the migration plan for moving notification delivery off the legacy cron host and onto the shared job queue so retries are visible",
			"fixed   the\tbuild",
		)},
	}

	got := RenderDigest(collected)
	assertGolden(t, "two_users", got)

	for _, line := range strings.Split(got, "\n") {
		assert.LessOrEqual(t, len(line), Width, "line %q", line)
	}
}

func TestRenderDigest_SingleNote(t *testing.T) {
	got := RenderDigest([]store.UserNotes{{Nick: "jdoe", Name: "Jane Doe", Notes: notes("shipped it")}})
	assertGolden(t, "single_note", got)
}

func TestRenderDigest_Empty(t *testing.T) {
	assert.Equal(t, "", RenderDigest(nil))
}

func TestRenderDigest_ThreeLineBullet(t *testing.T) {
	got := RenderDigest([]store.UserNotes{{Nick: "jdoe", Name: "Jane Doe", Notes: notes(
		"Spent the morning tracing the intermittent timeout in the billing export; the root cause was a connection pool sized for the old replica count, so I raised the limit, added a dashboard panel for pool saturation, and wrote up a short note for the on call rotation",
	)}})
	assertGolden(t, "three_lines", got)
}

func TestRenderDigest_LongURLIsSplit(t *testing.T) {
	got := RenderDigest([]store.UserNotes{{Nick: "bob", Name: "bob", Notes: notes(
		"see https://example.com/" + strings.Repeat("x", 100),
	)}})
	assertGolden(t, "long_url", got)

	for _, line := range strings.Split(got, "\n") {
		assert.LessOrEqual(t, len(line), Width, "line %q", line)
	}
}

func TestFormatBullet(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"short", "shipped it", "  - shipped it"},
		{
			"continuation lines hold 72 columns",
			strings.Repeat("word ", 40) + "end",
			"  - " + strings.TrimSpace(strings.Repeat("word ", 15)) + "\n" +
				"    " + strings.TrimSpace(strings.Repeat("word ", 14)) + "\n" +
				"    " + strings.TrimSpace(strings.Repeat("word ", 11)) + " end",
		},
		{
			"word longer than a line",
			strings.Repeat("x", 200),
			"  - " + strings.Repeat("x", 76) + "\n    " + strings.Repeat("x", 72) + "\n    " + strings.Repeat("x", 52),
		},
		{
			"long word starts on the current line",
			"short " + strings.Repeat("y", 80),
			"  - short " + strings.Repeat("y", 70) + "\n    " + strings.Repeat("y", 10),
		},
		{"tab expands to the next stop", "a\tb", "  - a       b"},
		{"inner spacing kept", "  lead  and   gaps", "  -   lead  and   gaps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatBullet(tt.body))
		})
	}
}
