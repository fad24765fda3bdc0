// Package priority ranks housing applications.
package priority

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"dorm-allocation-backend/internal/model"
	"dorm-allocation-backend/internal/store"
)

const (
	baseScore         = 100
	specialNeedsBonus = 20
	medicalBonus      = 30
	yearLevelPerLevel = 5
	hoursPerDay       = 24
)

// Score computes the ranking score of an application. Older applications
// score higher; the age term floors at zero and a future application date
// counts as submitted today.
func Score(app model.Application, applicant model.User, now time.Time) int {
	days := 0
	if elapsed := now.Sub(app.ApplicationDate); elapsed > 0 {
		days = int(elapsed.Hours() / hoursPerDay)
	}

	score := baseScore - days
	if score < 0 {
		score = 0
	}
	if len(app.Requirements()) > 0 {
		score += specialNeedsBonus
	}
	if strings.TrimSpace(app.MedicalConditions) != "" {
		score += medicalBonus
	}
	if applicant.YearLevel != nil {
		score += yearLevelPerLevel * *applicant.YearLevel
	}
	return score
}

// Less orders by score descending, then application date ascending, then ID.
func Less(a, b model.Application) bool {
	if a.PriorityScore != b.PriorityScore {
		return a.PriorityScore > b.PriorityScore
	}
	if !a.ApplicationDate.Equal(b.ApplicationDate) {
		return a.ApplicationDate.Before(b.ApplicationDate)
	}
	return a.ID < b.ID
}

// Sort puts apps in processing order.
func Sort(apps []model.Application) {
	sort.SliceStable(apps, func(i, j int) bool { return Less(apps[i], apps[j]) })
}

// Submit moves a draft or submitted application to pending and stores its
// score. The score is not recomputed afterwards.
func Submit(ctx context.Context, s store.Store, appID int64, now time.Time) (*model.Application, error) {
	var app *model.Application
	err := s.Transaction(ctx, func(tx store.Store) error {
		var err error
		app, err = tx.GetApplication(ctx, appID)
		if err != nil {
			return err
		}
		if !app.Status.CanTransitionTo(model.ApplicationPending) {
			return fmt.Errorf("application %d is %s: %w", app.ID, app.Status, store.ErrInvalidTransition)
		}
		if err := tx.SetPriorityScore(ctx, app, Score(*app, app.User, now)); err != nil {
			return err
		}
		return tx.SetApplicationStatus(ctx, app, model.ApplicationPending)
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}
