package digest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/drmeng/vds/internal/db/dbtest"
	"github.com/drmeng/vds/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPoster struct {
	posts []string
}

func (p *recordingPoster) Post(_ context.Context, text string) {
	p.posts = append(p.posts, text)
}

func seed(t *testing.T) (today time.Time, run RunOpts) {
	t.Helper()
	db := dbtest.Open(t)
	p := dbtest.Project(t, db, "WA-7")
	today = dbtest.Date(2025, 6, 10)

	for _, d := range []struct {
		number string
		due    time.Time
		rev    string
	}{
		{"GA-002", dbtest.Date(2025, 6, 8), "B"},
		{"GA-001", dbtest.Date(2025, 5, 31), ""},
		{"GA-003", dbtest.Date(2025, 6, 10), "0"},
	} {
		due := d.due
		_, err := document.Create(db, document.CreateOpts{
			ProjectID: p.ID, Title: "Sheet " + d.number, DocumentNumber: d.number,
			RevisionNumber: d.rev, NextDue: &due,
		})
		require.NoError(t, err)
	}
	return today, RunOpts{DB: db, Schedule: "0 8 * * 1-5", Now: dbtest.Clock(today.Add(9 * time.Hour))}
}

func TestBuild(t *testing.T) {
	today, opts := seed(t)

	r, err := Build(opts.DB, today)
	require.NoError(t, err)
	require.Len(t, r.Entries, 2)

	first := r.Entries[0]
	assert.Equal(t, "WA-7", first.Project)
	assert.Equal(t, "GA-001", first.DocumentNumber)
	assert.Equal(t, 10, first.DaysOverdue)
	assert.Equal(t, "", first.Revision)

	assert.Equal(t, "GA-002", r.Entries[1].DocumentNumber)
	assert.Equal(t, 2, r.Entries[1].DaysOverdue)
	assert.Equal(t, "B", r.Entries[1].Revision)
}

func TestFormat(t *testing.T) {
	r := &Report{
		Date: dbtest.Date(2025, 6, 10),
		Entries: []Entry{
			{Project: "WA-7", DocumentNumber: "GA-001", Title: "Sheet 1", NextDue: dbtest.Date(2025, 5, 31), DaysOverdue: 10},
			{Project: "WA-7", DocumentNumber: "GA-002", Title: "Sheet 2", Revision: "B", NextDue: dbtest.Date(2025, 6, 8), DaysOverdue: 2},
		},
	}
	want := strings.Join([]string{
		"Overdue documents as of 2025-06-10: 2",
		"WA-7  GA-001 rev -  due 2025-05-31 (10d)  Sheet 1",
		"WA-7  GA-002 rev B  due 2025-06-08 (2d)  Sheet 2",
	}, "\n")
	assert.Equal(t, want, r.Format())
}

func TestFire_PostsDigest(t *testing.T) {
	_, opts := seed(t)
	poster := &recordingPoster{}
	opts.Poster = poster

	require.NoError(t, Fire(context.Background(), opts))
	require.Len(t, poster.posts, 1)
	assert.Contains(t, poster.posts[0], "GA-001")
	assert.NotContains(t, poster.posts[0], "GA-003")
}

func TestFire_EmptyDigestSuppressed(t *testing.T) {
	db := dbtest.Open(t)
	poster := &recordingPoster{}

	err := Fire(context.Background(), RunOpts{DB: db, Poster: poster})
	require.NoError(t, err)
	assert.Empty(t, poster.posts)
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("0 8 * * 1-5"))
	assert.Error(t, ValidateSchedule("not a cron expr"))
	assert.Error(t, ValidateSchedule("0 0 8 * * 1-5"), "seconds field is not accepted")
}

func TestNextRun(t *testing.T) {
	// Friday 2025-06-13 09:00 UTC; the next weekday 08:00 is Monday.
	from := time.Date(2025, 6, 13, 9, 0, 0, 0, time.UTC)
	next, err := NextRun("0 8 * * 1-5", from)
	require.NoError(t, err)
	want := time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC)
	assert.True(t, next.Equal(want), "next = %v, want %v", next, want)

	_, err = NextRun("bogus", from)
	assert.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	_, opts := seed(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, opts) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_InvalidSchedule(t *testing.T) {
	_, opts := seed(t)
	opts.Schedule = "every tuesday"

	err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every tuesday")
}
