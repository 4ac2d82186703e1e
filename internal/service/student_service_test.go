package service

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChristopherDuggan/django-rest-framework/internal/model"
	"github.com/ChristopherDuggan/django-rest-framework/internal/testutil"
)

func TestStudentCreateRequiresCohort(t *testing.T) {
	ctx := context.Background()
	svc := NewStudentService(testutil.NewDB(t))

	tests := []struct {
		name string
		req  model.StudentRequest
		want string
	}{
		{"missing cohort", model.StudentRequest{Name: strPtr("Ada")}, "this field is required"},
		{"unknown cohort", model.StudentRequest{Name: strPtr("Ada"), Cohort: uintPtr(42)}, `invalid pk "42" - object does not exist`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			assert.Equal(t, map[string]string{"cohort": tt.want}, fieldErrors(t, err))
		})
	}

	_, total, err := svc.List(ctx, model.ListQuery{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestStudentList(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewStudentService(db)
	sei := testutil.CreateCohort(t, db, "SEI 1", model.SubjectSEI)
	dsi := testutil.CreateCohort(t, db, "DSI 1", model.SubjectDSI)
	testutil.CreateStudent(t, db, "Ada", sei.ID)
	testutil.CreateStudent(t, db, "Grace", dsi.ID)
	testutil.CreateStudent(t, db, "Alan", sei.ID)

	students, total, err := svc.List(ctx, model.ListQuery{CohortID: uintPtr(sei.ID)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "Ada", students[0].Name)
	assert.Equal(t, "Alan", students[1].Name)

	students, _, err = svc.List(ctx, model.ListQuery{Ordering: []model.Ordering{{Field: "name", Ascending: false}}})
	require.NoError(t, err)
	require.Len(t, students, 3)
	assert.Equal(t, "Grace", students[0].Name)

	students, total, err = svc.List(ctx, model.ListQuery{Search: "a", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, students, 1)

	students, total, err = svc.List(ctx, model.ListQuery{Page: math.MaxInt, Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Empty(t, students)
}

func TestStudentSearchMatchesWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewStudentService(db)
	c := testutil.CreateCohort(t, db, "SEI 1", model.SubjectSEI)
	testutil.CreateStudent(t, db, "Ada", c.ID)
	testutil.CreateStudent(t, db, "100% Grace", c.ID)
	testutil.CreateStudent(t, db, "alan_turing", c.ID)
	testutil.CreateStudent(t, db, `back\slash`, c.ID)

	tests := []struct {
		search string
		want   []string
	}{
		{"%", []string{"100% Grace"}},
		{"_", []string{"alan_turing"}},
		{`\`, []string{`back\slash`}},
		{"a%a", nil},
		{"d_", nil},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			students, total, err := svc.List(ctx, model.ListQuery{Search: tt.search})
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.want)), total)

			var names []string
			for _, s := range students {
				names = append(names, s.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestStudentUpdateAndPatch(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewStudentService(db)
	c1 := testutil.CreateCohort(t, db, "Cohort 1", model.SubjectSEI)
	c2 := testutil.CreateCohort(t, db, "Cohort 2", model.SubjectDSI)
	s := testutil.CreateStudent(t, db, "Ada", c1.ID)

	updated, err := svc.Update(ctx, s.ID, model.StudentRequest{Name: strPtr("Ada L."), Cohort: uintPtr(c2.ID)})
	require.NoError(t, err)
	assert.Equal(t, model.Student{ID: s.ID, Name: "Ada L.", CohortID: c2.ID}, *updated)

	patched, err := svc.Patch(ctx, s.ID, model.StudentPatch{Name: strPtr("Ada Lovelace")})
	require.NoError(t, err)
	assert.Equal(t, c2.ID, patched.CohortID)

	_, err = svc.Patch(ctx, s.ID, model.StudentPatch{Cohort: uintPtr(999)})
	assert.Contains(t, fieldErrors(t, err), "cohort")

	got, err := svc.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Student{ID: s.ID, Name: "Ada Lovelace", CohortID: c2.ID}, *got)

	_, err = svc.Update(ctx, s.ID+10, model.StudentRequest{Name: strPtr("x"), Cohort: uintPtr(c1.ID)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStudentDelete(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewStudentService(db)
	c := testutil.CreateCohort(t, db, "Cohort 1", model.SubjectSEI)
	s := testutil.CreateStudent(t, db, "Ada", c.ID)

	require.NoError(t, svc.Delete(ctx, s.ID))
	assert.ErrorIs(t, svc.Delete(ctx, s.ID), ErrNotFound)

	// the cohort survives
	_, err := NewCohortService(db).Get(ctx, c.ID)
	assert.NoError(t, err)
}
