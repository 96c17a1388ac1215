package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"skillpath/core"
)

// Hook receives domain events for KPI aggregation.
type Hook interface {
	OnEvent(e core.Event)
}

// Subscriber is the slice of the event bus the bridge needs.
type Subscriber interface {
	Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func()
}

// Bridge fans all progression events into a set of hooks. It returns an
// unsubscribe function releasing every registration.
func Bridge(bus Subscriber, hooks ...Hook) func() {
	types := []core.EventType{
		core.EventFigureRecorded,
		core.EventTrainingRecorded,
		core.EventChallengeRecorded,
		core.EventPointsComputed,
		core.EventLevelCompleted,
		core.EventAchievementUnlocked,
	}
	var unsubs []func()
	for _, typ := range types {
		unsubs = append(unsubs, bus.Subscribe(typ, func(_ context.Context, e core.Event) {
			for _, h := range hooks {
				h.OnEvent(e)
			}
		}))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// DAU tracks daily active users.
type DAU struct {
	mu   sync.Mutex
	days map[string]map[core.UserID]struct{}
}

func NewDAU() *DAU { return &DAU{days: map[string]map[core.UserID]struct{}{}} }

func (d *DAU) OnEvent(e core.Event) {
	day := e.Time.UTC().Format("2006-01-02")
	d.mu.Lock()
	defer d.mu.Unlock()
	m := d.days[day]
	if m == nil {
		m = map[core.UserID]struct{}{}
		d.days[day] = m
	}
	m[e.UserID] = struct{}{}
}

func (d *DAU) Count(day string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.days[day])
}

// ProgressMetrics aggregates progression KPIs from domain events.
type ProgressMetrics struct {
	mu sync.RWMutex

	figuresByDay     map[string]int64
	figuresByStatus  map[core.FigureStatus]int64
	trainingsByDay   map[string]int64
	challengesByDay  map[string]int64
	levelsCompleted  map[string]int64
	achievementsByID map[core.AchievementID]int64
	uniqueAchievers  map[core.AchievementID]map[core.UserID]struct{}
	peakPointsByPath map[core.PathKey]map[core.UserID]int
}

func NewProgressMetrics() *ProgressMetrics {
	return &ProgressMetrics{
		figuresByDay:     map[string]int64{},
		figuresByStatus:  map[core.FigureStatus]int64{},
		trainingsByDay:   map[string]int64{},
		challengesByDay:  map[string]int64{},
		levelsCompleted:  map[string]int64{},
		achievementsByID: map[core.AchievementID]int64{},
		uniqueAchievers:  map[core.AchievementID]map[core.UserID]struct{}{},
		peakPointsByPath: map[core.PathKey]map[core.UserID]int{},
	}
}

func (m *ProgressMetrics) OnEvent(e core.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := e.Time.UTC().Format("2006-01-02")

	switch e.Type {
	case core.EventFigureRecorded:
		m.figuresByDay[day]++
		m.figuresByStatus[e.Status]++
	case core.EventTrainingRecorded:
		m.trainingsByDay[day]++
	case core.EventChallengeRecorded:
		m.challengesByDay[day]++
	case core.EventLevelCompleted:
		m.levelsCompleted[day]++
	case core.EventAchievementUnlocked:
		m.achievementsByID[e.Achievement]++
		if m.uniqueAchievers[e.Achievement] == nil {
			m.uniqueAchievers[e.Achievement] = map[core.UserID]struct{}{}
		}
		m.uniqueAchievers[e.Achievement][e.UserID] = struct{}{}
	case core.EventPointsComputed:
		if m.peakPointsByPath[e.Path] == nil {
			m.peakPointsByPath[e.Path] = map[core.UserID]int{}
		}
		if e.Points > m.peakPointsByPath[e.Path][e.UserID] {
			m.peakPointsByPath[e.Path][e.UserID] = e.Points
		}
	}
}

// FiguresRecorded returns how many figure updates landed on a day.
func (m *ProgressMetrics) FiguresRecorded(day string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.figuresByDay[day]
}

// FiguresWithStatus returns the running count for one status value.
func (m *ProgressMetrics) FiguresWithStatus(status core.FigureStatus) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.figuresByStatus[status]
}

// TrainingsRecorded returns training completions recorded on a day.
func (m *ProgressMetrics) TrainingsRecorded(day string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trainingsByDay[day]
}

// LevelsCompleted returns level completions observed on a day.
func (m *ProgressMetrics) LevelsCompleted(day string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.levelsCompleted[day]
}

// AchievementUnlocks returns how many times an achievement was unlocked.
func (m *ProgressMetrics) AchievementUnlocks(id core.AchievementID) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.achievementsByID[id]
}

// UniqueAchievers returns the distinct users holding an achievement.
func (m *ProgressMetrics) UniqueAchievers(id core.AchievementID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.uniqueAchievers[id])
}

// PeakPoints returns the highest point total observed for a user on a path.
func (m *ProgressMetrics) PeakPoints(path core.PathKey, user core.UserID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.peakPointsByPath[path][user]
}

// WeekKey formats a time into the ISO week bucket used by reporting jobs.
func WeekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
