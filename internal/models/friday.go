package models

import "time"

// FridayConfig is the per-week record holding the recreational toggle for a
// single Friday date. There is at most one row per Friday.
type FridayConfig struct {
	ID              string     `db:"id" json:"id"`
	FridayDate      time.Time  `db:"friday_date" json:"friday_date"`
	RecreationalDay bool       `db:"recreational_day" json:"is_recreational_day"`
	ToggledBy       *string    `db:"toggled_by" json:"toggled_by,omitempty"`
	ToggledAt       *time.Time `db:"toggled_at" json:"toggled_at,omitempty"`
	GeneratedAt     *time.Time `db:"generated_at" json:"generated_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// FridayConfigView adds the derived session count and the modifiability flag
// exposed to the client.
type FridayConfigView struct {
	FridayConfig
	SessionCount int  `json:"session_count"`
	CanModify    bool `json:"can_modify"`
}

// FridayScheduleItem is one entry of the generated Friday day program.
type FridayScheduleItem struct {
	TimeBlock string         `json:"time_block"`
	Activity  FridayActivity `json:"activity"`
	Stage     *Stage         `json:"stage,omitempty"`
	HalqaID   *string        `json:"halqa_id,omitempty"`
	SessionID string         `json:"session_id"`
}

// GenerationOutcome summarises one idempotent Friday generation run.
type GenerationOutcome struct {
	FridayDate   time.Time `json:"friday_date"`
	Recreational bool      `json:"recreational"`
	Created      int       `json:"created"`
	Existing     int       `json:"existing"`
	Sessions     []Session `json:"sessions"`
}
