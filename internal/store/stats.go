package store

import (
	"context"
	"fmt"
	"math"

	"dorm-allocation-backend/internal/model"
)

// AllocationStats summarises applications, assignments and room capacity.
func (s *gormStore) AllocationStats(ctx context.Context) (*Stats, error) {
	db := s.db.WithContext(ctx)
	var stats Stats

	type statusCount struct {
		Status string
		Total  int64
	}
	var counts []statusCount
	if err := db.Model(&model.Application{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to count applications: %w", err)
	}
	for _, c := range counts {
		stats.TotalApplications += c.Total
		switch model.ApplicationStatus(c.Status) {
		case model.ApplicationPending:
			stats.PendingApplications = c.Total
		case model.ApplicationApproved:
			stats.ApprovedApplications = c.Total
		case model.ApplicationRejected:
			stats.RejectedApplications = c.Total
		case model.ApplicationCompleted:
			stats.CompletedApplications = c.Total
		}
	}

	if err := db.Model(&model.Assignment{}).Count(&stats.TotalAllocations).Error; err != nil {
		return nil, fmt.Errorf("failed to count assignments: %w", err)
	}
	if err := db.Model(&model.Assignment{}).
		Where("status IN ?", model.CurrentAssignmentStatuses).
		Count(&stats.ActiveAllocations).Error; err != nil {
		return nil, fmt.Errorf("failed to count current assignments: %w", err)
	}

	type roomTotals struct {
		Rooms     int64
		Capacity  int64
		Occupancy int64
	}
	var totals roomTotals
	if err := db.Model(&model.Room{}).
		Select("COUNT(*) AS rooms, COALESCE(SUM(capacity), 0) AS capacity, COALESCE(SUM(current_occupancy), 0) AS occupancy").
		Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to sum room capacity: %w", err)
	}
	stats.TotalRooms = totals.Rooms
	stats.TotalCapacity = totals.Capacity
	stats.TotalOccupancy = totals.Occupancy

	if err := db.Model(&model.Room{}).
		Where("status = ? AND current_occupancy < capacity", model.RoomAvailable).
		Count(&stats.AvailableRooms).Error; err != nil {
		return nil, fmt.Errorf("failed to count available rooms: %w", err)
	}

	stats.OccupancyRate = OccupancyRate(totals.Occupancy, totals.Capacity)
	return &stats, nil
}

// OccupancyRate is occupancy over capacity as a percentage rounded to two
// places. It is 0 when there is no capacity.
func OccupancyRate(occupancy, capacity int64) float64 {
	if capacity <= 0 {
		return 0
	}
	return math.Round(float64(occupancy)/float64(capacity)*10000) / 100
}
