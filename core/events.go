package core

import "time"

// EventType enumerates domain events.
type EventType string

const (
	EventFigureRecorded      EventType = "figure_recorded"
	EventTrainingRecorded    EventType = "training_recorded"
	EventChallengeRecorded   EventType = "challenge_recorded"
	EventPointsComputed      EventType = "points_computed"
	EventLevelCompleted      EventType = "level_completed"
	EventAchievementUnlocked EventType = "achievement_unlocked"
)

// Event represents an immutable domain event.
type Event struct {
	Type        EventType      `json:"type"`
	Time        time.Time      `json:"time"`
	UserID      UserID         `json:"user_id"`
	Path        PathKey        `json:"path,omitempty"`
	LevelID     LevelID        `json:"level_id,omitempty"`
	FigureID    FigureID       `json:"figure_id,omitempty"`
	TrainingID  TrainingID     `json:"training_id,omitempty"`
	ChallengeID ChallengeID    `json:"challenge_id,omitempty"`
	Achievement AchievementID  `json:"achievement,omitempty"`
	Status      FigureStatus   `json:"status,omitempty"`
	Points      int            `json:"points,omitempty"`
	Progress    int            `json:"progress,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func NewFigureRecorded(user UserID, path PathKey, figure FigureID, status FigureStatus) Event {
	return Event{Type: EventFigureRecorded, Time: time.Now().UTC(), UserID: user, Path: path, FigureID: figure, Status: status}
}

func NewTrainingRecorded(user UserID, path PathKey, level LevelID, training TrainingID) Event {
	return Event{Type: EventTrainingRecorded, Time: time.Now().UTC(), UserID: user, Path: path, LevelID: level, TrainingID: training}
}

func NewChallengeRecorded(user UserID, path PathKey, challenge ChallengeID) Event {
	return Event{Type: EventChallengeRecorded, Time: time.Now().UTC(), UserID: user, Path: path, ChallengeID: challenge}
}

func NewPointsComputed(user UserID, path PathKey, points int) Event {
	return Event{Type: EventPointsComputed, Time: time.Now().UTC(), UserID: user, Path: path, Points: points}
}

func NewLevelCompleted(user UserID, path PathKey, level LevelID, progress int) Event {
	return Event{Type: EventLevelCompleted, Time: time.Now().UTC(), UserID: user, Path: path, LevelID: level, Progress: progress}
}

func NewAchievementUnlocked(user UserID, path PathKey, level LevelID, achievement AchievementID) Event {
	return Event{Type: EventAchievementUnlocked, Time: time.Now().UTC(), UserID: user, Path: path, LevelID: level, Achievement: achievement}
}
