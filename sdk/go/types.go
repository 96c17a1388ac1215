package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// SportPath mirrors the public JSON surface of a path definition.
type SportPath struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	FreeLevels int    `json:"free_levels"`
	PriceCents int    `json:"price_cents"`
	Published  bool   `json:"published"`
}

// SublevelAccess pairs a sublevel number with its gate result.
type SublevelAccess struct {
	Number     int  `json:"number"`
	Accessible bool `json:"accessible"`
}

// LevelEvaluation mirrors the computed per-level state.
type LevelEvaluation struct {
	LevelID        string           `json:"level_id"`
	Sequence       int              `json:"sequence"`
	Name           string           `json:"name"`
	PointThreshold int              `json:"point_threshold"`
	Unlocked       bool             `json:"unlocked"`
	Paywalled      bool             `json:"paywalled"`
	Progress       int              `json:"progress"`
	BossFigure     string           `json:"boss_figure,omitempty"`
	BossAccessible bool             `json:"boss_accessible"`
	BossDefeated   bool             `json:"boss_defeated"`
	Sublevels      []SublevelAccess `json:"sublevels"`
	Achievements   []string         `json:"achievements,omitempty"`
}

// PathEvaluation mirrors the full progression view returned by the API.
type PathEvaluation struct {
	Path   SportPath         `json:"path"`
	UserID string            `json:"user_id"`
	Mode   string            `json:"mode"`
	Points int               `json:"points"`
	Levels []LevelEvaluation `json:"levels"`
}

// LeaderboardEntry mirrors one ranked row of a path board.
type LeaderboardEntry struct {
	User   string `json:"User"`
	Points int64  `json:"Points"`
}

// ChallengeUpdate carries a challenge participation record.
type ChallengeUpdate struct {
	ChallengeID   string `json:"challenge_id"`
	Participating bool   `json:"participating"`
	Completed     bool   `json:"completed"`
	Status        string `json:"status"`
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("request failed: status %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("request failed: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

// ErrEmptyUserID is returned when user id is empty.
var ErrEmptyUserID = errors.New("user id is required")

// ErrEmptyPathKey is returned when the sport path key is empty.
var ErrEmptyPathKey = errors.New("path key is required")
