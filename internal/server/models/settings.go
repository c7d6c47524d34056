package models

import "time"

type Settings struct {
	ID                        int64
	UserID                    int64
	ShowAmount                bool
	ShowStatsBeforeLaps       bool
	BreaksImpactAmount        bool
	BreaksImpactTime          bool
	MinimalistMode            bool
	NotificationEnabled       bool
	NotificationIntervalHours float64
	HourlyAmount              float64
	CreatedAt                 time.Time
	UpdatedAt                 *time.Time
}

// DefaultSettings returns the preferences a new user starts with.
func DefaultSettings(userID int64) Settings {
	return Settings{
		UserID:                    userID,
		ShowAmount:                true,
		NotificationEnabled:       true,
		NotificationIntervalHours: 2.0,
		HourlyAmount:              450.0,
	}
}

type SettingsPatch struct {
	ShowAmount                *bool
	ShowStatsBeforeLaps       *bool
	BreaksImpactAmount        *bool
	BreaksImpactTime          *bool
	MinimalistMode            *bool
	NotificationEnabled       *bool
	NotificationIntervalHours *float64
	HourlyAmount              *float64
}

// Apply copies every non-nil patch field onto s.
func (p SettingsPatch) Apply(s *Settings) {
	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	setFloat := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}

	setBool(&s.ShowAmount, p.ShowAmount)
	setBool(&s.ShowStatsBeforeLaps, p.ShowStatsBeforeLaps)
	setBool(&s.BreaksImpactAmount, p.BreaksImpactAmount)
	setBool(&s.BreaksImpactTime, p.BreaksImpactTime)
	setBool(&s.MinimalistMode, p.MinimalistMode)
	setBool(&s.NotificationEnabled, p.NotificationEnabled)
	setFloat(&s.NotificationIntervalHours, p.NotificationIntervalHours)
	setFloat(&s.HourlyAmount, p.HourlyAmount)
}
