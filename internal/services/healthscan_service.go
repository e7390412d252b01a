package services

import (
	"context"
	"fmt"
	"time"

	"github.com/davlet61/costwatch/internal/models"
	"github.com/sirupsen/logrus"
)

// ProjectStore is the read surface the health scan needs.
type ProjectStore interface {
	GetActiveProjects(ctx context.Context) ([]models.Project, error)
}

// Notifier is the engine entry point the scan feeds events into.
type Notifier interface {
	Notify(ctx context.Context, event models.Event) bool
}

// HealthScanService sweeps active projects and synthesizes deadline and
// budget-overrun events. It is a scan, not a subscription: every invocation
// re-evaluates full state, and the dedup gate absorbs repeats.
type HealthScanService struct {
	projects ProjectStore
	engine   Notifier
	now      func() time.Time
}

func NewHealthScanService(projects ProjectStore, engine Notifier) *HealthScanService {
	return &HealthScanService{
		projects: projects,
		engine:   engine,
		now:      time.Now,
	}
}

// Run scans every non-terminal project and returns how many notifications
// were actually persisted (suppressed duplicates do not count).
func (s *HealthScanService) Run(ctx context.Context) (int, error) {
	projects, err := s.projects.GetActiveProjects(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch projects for health scan: %v", err)
	}

	now := s.now()
	emitted := 0

	for _, project := range projects {
		projectLink := "/projects/" + project.ID.Hex()

		if !project.EndDate.IsZero() {
			if project.EndDate.Before(now) {
				overdueDays := overdueDays(now, project.EndDate)
				if s.engine.Notify(ctx, models.Event{
					UserID:   project.OwnerID,
					Title:    "Project overdue",
					Message:  fmt.Sprintf("Project %q is overdue by %d day(s).", project.Name, overdueDays),
					Category: models.CategoryDeadline,
					Priority: models.PriorityCritical,
					Link:     projectLink,
				}) {
					emitted++
				}
			} else if project.EndDate.Sub(now) <= 24*time.Hour {
				if s.engine.Notify(ctx, models.Event{
					UserID:   project.OwnerID,
					Title:    "Project deadline approaching",
					Message:  fmt.Sprintf("Project %q is due by %s.", project.Name, project.EndDate.Format("Jan 2")),
					Category: models.CategoryDeadline,
					Priority: models.PriorityHigh,
					Link:     projectLink,
				}) {
					emitted++
				}
			}
		}

		// Budget check is independent of the deadline check; a project can
		// trip both in one scan.
		if project.Budget > 0 && project.Spent > project.Budget {
			if s.engine.Notify(ctx, models.Event{
				UserID:   project.OwnerID,
				Title:    "Budget exceeded",
				Message:  fmt.Sprintf("Project %q has spent %.2f of its %.2f budget.", project.Name, project.Spent, project.Budget),
				Category: models.CategoryCostOverrun,
				Priority: models.PriorityHigh,
				Link:     projectLink,
			}) {
				emitted++
			}
		}
	}

	logrus.WithFields(logrus.Fields{
		"projects": len(projects),
		"emitted":  emitted,
	}).Info("Health scan completed")
	return emitted, nil
}

// overdueDays counts calendar days past the deadline, minimum 1. A deadline
// of yesterday reads "overdue by 1" no matter when today the scan runs.
func overdueDays(now, endDate time.Time) int {
	days := int(startOfDay(now).Sub(startOfDay(endDate)) / (24 * time.Hour))
	if days < 1 {
		days = 1
	}
	return days
}
