package priority

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"dorm-allocation-backend/internal/db/dbtest"
	"dorm-allocation-backend/internal/model"
	"dorm-allocation-backend/internal/store"
)

var now = time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func TestScore(t *testing.T) {
	testCases := []struct {
		name      string
		app       model.Application
		applicant model.User
		expected  int
	}{
		{
			name:     "Submitted today",
			app:      model.Application{ApplicationDate: now},
			expected: 100,
		},
		{
			name:     "Partial days are truncated",
			app:      model.Application{ApplicationDate: now.Add(-47 * time.Hour)},
			expected: 99,
		},
		{
			name:     "Age term floors at zero",
			app:      model.Application{ApplicationDate: now.AddDate(0, 0, -150)},
			expected: 0,
		},
		{
			name:     "Future date counts as today",
			app:      model.Application{ApplicationDate: now.AddDate(0, 0, 3)},
			expected: 100,
		},
		{
			name: "Every bonus applies",
			app: model.Application{
				ApplicationDate:     now.AddDate(0, 0, -10),
				SpecialRequirements: datatypes.JSON(`["ground floor"]`),
				MedicalConditions:   "asthma",
			},
			applicant: model.User{YearLevel: intPtr(3)},
			expected:  90 + 20 + 30 + 15,
		},
		{
			name: "Empty requirement list and blank conditions add nothing",
			app: model.Application{
				ApplicationDate:     now.AddDate(0, 0, -200),
				SpecialRequirements: datatypes.JSON(`[]`),
				MedicalConditions:   "  ",
			},
			applicant: model.User{YearLevel: intPtr(2)},
			expected:  10,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Score(tc.app, tc.applicant, now))
		})
	}
}

func TestSortOrder(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC) }
	apps := []model.Application{
		{ID: 1, PriorityScore: 70, ApplicationDate: day(1)},
		{ID: 2, PriorityScore: 80, ApplicationDate: day(10)},
		{ID: 3, PriorityScore: 90, ApplicationDate: day(20)},
		{ID: 4, PriorityScore: 80, ApplicationDate: day(5)},
		{ID: 5, PriorityScore: 80, ApplicationDate: day(5)},
	}
	Sort(apps)

	var ids []int64
	for _, a := range apps {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []int64{3, 4, 5, 2, 1}, ids)
}

func TestSubmit(t *testing.T) {
	gormDB := dbtest.New(t)
	f := dbtest.NewFixture(t, gormDB)
	s := store.NewGormStore(gormDB)
	ctx := context.Background()

	user := f.Student("Hana", model.GenderFemale)
	require.NoError(t, gormDB.Model(&user).Update("year_level", 2).Error)

	app := f.Application(user, "B", 0, now.AddDate(0, 0, -4))
	require.NoError(t, gormDB.Model(&app).Updates(map[string]any{
		"status":             model.ApplicationSubmitted,
		"medical_conditions": "diabetes",
	}).Error)

	got, err := Submit(ctx, s, app.ID, now)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationPending, got.Status)
	assert.Equal(t, 96+30+10, got.PriorityScore)

	stored, err := s.GetApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, got.PriorityScore, stored.PriorityScore)
	assert.Equal(t, model.ApplicationPending, stored.Status)

	_, err = Submit(ctx, s, app.ID, now)
	assert.ErrorIs(t, err, store.ErrInvalidTransition, "pending applications cannot be resubmitted")

	_, err = Submit(ctx, s, app.ID+100, now)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
