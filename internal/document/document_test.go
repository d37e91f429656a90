package document

import (
	"testing"
	"time"

	"github.com/drmeng/vds/internal/db/dbtest"
	"github.com/drmeng/vds/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_Defaults(t *testing.T) {
	db := dbtest.Open(t)
	p := dbtest.Project(t, db, "WA-1")

	due := dbtest.Date(2025, 5, 1)
	d, err := Create(db, CreateOpts{
		ProjectID:      p.ID,
		Title:          "General Arrangement",
		DocumentNumber: "GA-001",
		NextDue:        &due,
	})
	require.NoError(t, err)

	got, err := Get(db, d.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.VDSStatus)
	assert.Nil(t, got.ClientNumber)
	assert.Nil(t, got.SupplierNumber)
	assert.Nil(t, got.RevisionNumber)
	assert.Nil(t, got.LatestIssue)
	require.NotNil(t, got.NextDue)
	assert.True(t, got.NextDue.Equal(due))
}

func TestCreate_UnknownProject(t *testing.T) {
	db := dbtest.Open(t)

	_, err := Create(db, CreateOpts{ProjectID: 9, Title: "T", DocumentNumber: "D-1"})
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreate_Validation(t *testing.T) {
	db := dbtest.Open(t)
	p := dbtest.Project(t, db, "WA-1")

	_, err := Create(db, CreateOpts{ProjectID: p.ID, Title: "No number"})
	require.ErrorIs(t, err, models.ErrInvalid)

	_, err = Create(db, CreateOpts{ProjectID: p.ID, DocumentNumber: "D-1", Title: "T", RevisionNumber: "ABCDEFGHIJK"})
	require.ErrorIs(t, err, models.ErrInvalid)
}

func TestCreate_Uniqueness(t *testing.T) {
	db := dbtest.Open(t)
	p := dbtest.Project(t, db, "WA-1")

	_, err := Create(db, CreateOpts{ProjectID: p.ID, Title: "A", DocumentNumber: "D-1", ClientNumber: "C-1", SupplierNumber: "S-1"})
	require.NoError(t, err)

	tests := []struct {
		name string
		opts CreateOpts
	}{
		{"document number", CreateOpts{ProjectID: p.ID, Title: "B", DocumentNumber: "D-1"}},
		{"client number", CreateOpts{ProjectID: p.ID, Title: "B", DocumentNumber: "D-2", ClientNumber: "C-1"}},
		{"supplier number", CreateOpts{ProjectID: p.ID, Title: "B", DocumentNumber: "D-3", SupplierNumber: "S-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Create(db, tt.opts)
			require.ErrorIs(t, err, models.ErrConflict)
		})
	}
}

func TestCreate_AbsentNumbersDoNotCollide(t *testing.T) {
	db := dbtest.Open(t)
	p := dbtest.Project(t, db, "WA-1")

	for _, n := range []string{"D-1", "D-2", "D-3"} {
		_, err := Create(db, CreateOpts{ProjectID: p.ID, Title: n, DocumentNumber: n})
		require.NoError(t, err, n)
	}
}

func TestGet_NotFound(t *testing.T) {
	db := dbtest.Open(t)

	_, err := Get(db, 1)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestList_OrderedByNumberAndScopedToProject(t *testing.T) {
	db := dbtest.Open(t)
	p1 := dbtest.Project(t, db, "WA-1")
	p2 := dbtest.Project(t, db, "WA-2")
	dbtest.Document(t, db, p1.ID, "D-200", "")
	dbtest.Document(t, db, p1.ID, "D-100", "A")
	dbtest.Document(t, db, p2.ID, "D-300", "")

	docs, err := List(db, p1.ID)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "D-100", docs[0].DocumentNumber)
	assert.Equal(t, "D-200", docs[1].DocumentNumber)
}

func TestDelete_CascadesRevisions(t *testing.T) {
	db := dbtest.Open(t)
	p1 := dbtest.Project(t, db, "WA-1")
	p2 := dbtest.Project(t, db, "WA-2")
	d1 := dbtest.Document(t, db, p1.ID, "D-1", "0")
	d2 := dbtest.Document(t, db, p1.ID, "D-2", "")
	other := dbtest.Document(t, db, p2.ID, "D-3", "")
	tr := dbtest.Transmittal(t, db, p1.ID, "TR-001", "HOUSE", dbtest.Date(2025, 1, 1))
	require.NoError(t, db.Create(&models.Revision{
		TransmittalID: tr.ID, DocumentID: d1.ID, RevisionNumber: "0", Date: dbtest.Date(2025, 1, 1),
	}).Error)

	n, err := Delete(db, p1.ID, []uint{d1.ID, other.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var revCount int64
	require.NoError(t, db.Model(&models.Revision{}).Count(&revCount).Error)
	assert.Zero(t, revCount)

	_, err = Get(db, other.ID)
	require.NoError(t, err, "document of another project must survive")
	_, err = Get(db, d2.ID)
	require.NoError(t, err)
}

func TestDelete_Empty(t *testing.T) {
	db := dbtest.Open(t)

	n, err := Delete(db, 1, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNumbers(t *testing.T) {
	db := dbtest.Open(t)
	p := dbtest.Project(t, db, "WA-1")
	a := dbtest.Document(t, db, p.ID, "GA-001", "")
	b := dbtest.Document(t, db, p.ID, "PID-002", "A")

	got, err := Numbers(db, []uint{a.ID, b.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, map[uint]string{a.ID: "GA-001", b.ID: "PID-002"}, got)

	got, err = Numbers(db, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNextRevision(t *testing.T) {
	rev := func(s string) *string { return &s }
	tests := []struct {
		current *string
		want    string
	}{
		{nil, "0"},
		{rev(""), "0"},
		{rev("01"), "02"},
		{rev("0"), "1"},
		{rev("A"), "B"},
		{rev("Z"), "Z"},
		{rev("#"), "#"},
	}
	for _, tt := range tests {
		d := &models.Document{RevisionNumber: tt.current}
		assert.Equal(t, tt.want, NextRevision(d), "current=%v", tt.current)
	}
}

func TestOverdue(t *testing.T) {
	db := dbtest.Open(t)
	p := dbtest.Project(t, db, "WA-1")
	today := dbtest.Date(2025, 6, 10)

	mk := func(number string, due *dbDate, status string) {
		opts := CreateOpts{ProjectID: p.ID, Title: number, DocumentNumber: number, VDSStatus: status}
		if due != nil {
			d := dbtest.Date(due.y, due.m, due.d)
			opts.NextDue = &d
		}
		_, err := Create(db, opts)
		require.NoError(t, err)
	}
	mk("D-late", &dbDate{2025, 6, 1}, "")
	mk("D-later", &dbDate{2025, 5, 1}, "")
	mk("D-today", &dbDate{2025, 6, 10}, "")
	mk("D-future", &dbDate{2025, 7, 1}, "")
	mk("D-none", nil, "")
	mk("D-void", &dbDate{2025, 1, 1}, "Void")

	docs, err := Overdue(db, today)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "D-later", docs[0].DocumentNumber)
	assert.Equal(t, "D-late", docs[1].DocumentNumber)
}

type dbDate struct {
	y int
	m time.Month
	d int
}
