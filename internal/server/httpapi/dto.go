package httpapi

import (
	"time"

	"github.com/justlikeclockwork/clockwork/internal/server/models"
	"github.com/justlikeclockwork/clockwork/internal/server/services"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Message      string `json:"message,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type userResponse struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	CreatedAt *string `json:"createdAt"`
}

type createSessionRequest struct {
	SessionName *string `json:"sessionName"`
	Description *string `json:"description"`
	StartedAt   *string `json:"startedAt"`
}

type updateSessionRequest struct {
	SessionName   *string `json:"sessionName"`
	Description   *string `json:"description"`
	EndedAt       *string `json:"endedAt"`
	TotalDuration *int64  `json:"totalDuration"`
	IsCompleted   *bool   `json:"isCompleted"`
}

type createLapRequest struct {
	LapName   *string `json:"lapName"`
	StartedAt *string `json:"startedAt"`
}

type updateLapRequest struct {
	LapName  *string `json:"lapName"`
	EndedAt  *string `json:"endedAt"`
	Duration *int64  `json:"duration"`
}

type imageResponse struct {
	ImageID   string  `json:"imageId"`
	ImageName string  `json:"imageName"`
	LapID     int64   `json:"lapId"`
	URL       *string `json:"url"`
	MimeType  string  `json:"mimeType"`
	FileSize  int64   `json:"fileSize"`
	CreatedAt *string `json:"createdAt"`
}

type lapResponse struct {
	ID        int64           `json:"id"`
	LapUUID   string          `json:"lapUuid"`
	LapNumber int             `json:"lapNumber"`
	LapName   *string         `json:"lapName"`
	StartedAt *string         `json:"startedAt"`
	EndedAt   *string         `json:"endedAt"`
	Duration  *int64          `json:"duration"`
	IsActive  bool            `json:"isActive"`
	Images    []imageResponse `json:"images"`
}

type sessionResponse struct {
	ID            int64   `json:"id"`
	SessionUUID   string  `json:"sessionUuid"`
	SessionName   *string `json:"sessionName"`
	Description   *string `json:"description"`
	StartedAt     *string `json:"startedAt"`
	EndedAt       *string `json:"endedAt"`
	TotalDuration int64   `json:"totalDuration"`
	IsActive      bool    `json:"isActive"`
	IsCompleted   bool    `json:"isCompleted"`
	CreatedAt     *string `json:"createdAt"`
	UpdatedAt     *string `json:"updatedAt"`
}

type sessionDetailResponse struct {
	sessionResponse
	Laps []lapResponse `json:"laps"`
}

type settingsResponse struct {
	ShowAmount                bool    `json:"showAmount"`
	ShowStatsBeforeLaps       bool    `json:"showStatsBeforeLaps"`
	BreaksImpactAmount        bool    `json:"breaksImpactAmount"`
	BreaksImpactTime          bool    `json:"breaksImpactTime"`
	MinimalistMode            bool    `json:"minimalistMode"`
	NotificationEnabled       bool    `json:"notificationEnabled"`
	NotificationIntervalHours float64 `json:"notificationIntervalHours"`
	HourlyAmount              float64 `json:"hourlyAmount"`
}

type updateSettingsRequest struct {
	ShowAmount                *bool    `json:"showAmount"`
	ShowStatsBeforeLaps       *bool    `json:"showStatsBeforeLaps"`
	BreaksImpactAmount        *bool    `json:"breaksImpactAmount"`
	BreaksImpactTime          *bool    `json:"breaksImpactTime"`
	MinimalistMode            *bool    `json:"minimalistMode"`
	NotificationEnabled       *bool    `json:"notificationEnabled"`
	NotificationIntervalHours *float64 `json:"notificationIntervalHours"`
	HourlyAmount              *float64 `json:"hourlyAmount"`
}

func isoTime(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toImage(v services.ImageView) imageResponse {
	out := imageResponse{
		ImageID:   v.ImageID,
		ImageName: v.ImageName,
		LapID:     v.LapID,
		MimeType:  v.MimeType,
		FileSize:  v.FileSize,
		CreatedAt: isoTime(&v.CreatedAt),
	}
	if v.URL != "" {
		out.URL = &v.URL
	}
	return out
}

func toImages(vs []services.ImageView) []imageResponse {
	out := make([]imageResponse, 0, len(vs))
	for _, v := range vs {
		out = append(out, toImage(v))
	}
	return out
}

func toLap(d services.LapDetail) lapResponse {
	l := d.Lap
	return lapResponse{
		ID:        l.ID,
		LapUUID:   l.LapUUID.String(),
		LapNumber: l.LapNumber,
		LapName:   l.LapName,
		StartedAt: isoTime(l.StartTime),
		EndedAt:   isoTime(l.EndTime),
		Duration:  l.Duration,
		IsActive:  l.IsActive,
		Images:    toImages(d.Images),
	}
}

func toSession(s *models.Session) sessionResponse {
	return sessionResponse{
		ID:            s.ID,
		SessionUUID:   s.SessionUUID.String(),
		SessionName:   s.SessionName,
		Description:   s.Description,
		StartedAt:     isoTime(s.StartTime),
		EndedAt:       isoTime(s.EndTime),
		TotalDuration: s.TotalDuration,
		IsActive:      s.IsActive,
		IsCompleted:   s.IsCompleted,
		CreatedAt:     isoTime(&s.CreatedAt),
		UpdatedAt:     isoTime(s.UpdatedAt),
	}
}

func toSessionDetail(d *services.SessionDetail) sessionDetailResponse {
	out := sessionDetailResponse{
		sessionResponse: toSession(d.Session),
		Laps:            make([]lapResponse, 0, len(d.Laps)),
	}
	for _, l := range d.Laps {
		out.Laps = append(out.Laps, toLap(l))
	}
	return out
}

func toSettings(s *models.Settings) settingsResponse {
	return settingsResponse{
		ShowAmount:                s.ShowAmount,
		ShowStatsBeforeLaps:       s.ShowStatsBeforeLaps,
		BreaksImpactAmount:        s.BreaksImpactAmount,
		BreaksImpactTime:          s.BreaksImpactTime,
		MinimalistMode:            s.MinimalistMode,
		NotificationEnabled:       s.NotificationEnabled,
		NotificationIntervalHours: s.NotificationIntervalHours,
		HourlyAmount:              s.HourlyAmount,
	}
}

func (r updateSettingsRequest) patch() models.SettingsPatch {
	return models.SettingsPatch{
		ShowAmount:                r.ShowAmount,
		ShowStatsBeforeLaps:       r.ShowStatsBeforeLaps,
		BreaksImpactAmount:        r.BreaksImpactAmount,
		BreaksImpactTime:          r.BreaksImpactTime,
		MinimalistMode:            r.MinimalistMode,
		NotificationEnabled:       r.NotificationEnabled,
		NotificationIntervalHours: r.NotificationIntervalHours,
		HourlyAmount:              r.HourlyAmount,
	}
}
