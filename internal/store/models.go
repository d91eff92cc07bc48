package store

import "trapline/internal/profile"

type ProfileModel struct {
	ID             string  `gorm:"column:id;primaryKey"`
	Symbol         string  `gorm:"column:symbol"`
	Size           float64 `gorm:"column:size"`
	StopPoints     int     `gorm:"column:stop_points"`
	TargetPoints   int     `gorm:"column:target_points"`
	Strategy       string  `gorm:"column:strategy"`
	WindowStart    string  `gorm:"column:window_start"`
	WindowEnd      string  `gorm:"column:window_end"`
	Environment    string  `gorm:"column:environment"`
	Policy         string  `gorm:"column:policy"`
	DailyTarget    float64 `gorm:"column:daily_target"`
	DailyLossLimit float64 `gorm:"column:daily_loss_limit"`
	Enabled        bool    `gorm:"column:enabled"`
	Position       int     `gorm:"column:position"`
	UpdatedAtUnix  int64   `gorm:"column:updated_at"`
}

func (ProfileModel) TableName() string { return "trade_profiles" }

func (m ProfileModel) toProfile() profile.Profile {
	return profile.Profile{
		ID:             m.ID,
		Symbol:         m.Symbol,
		Size:           m.Size,
		StopPoints:     m.StopPoints,
		TargetPoints:   m.TargetPoints,
		Strategy:       m.Strategy,
		WindowStart:    m.WindowStart,
		WindowEnd:      m.WindowEnd,
		Environment:    profile.Environment(m.Environment),
		Policy:         profile.Policy(m.Policy),
		DailyTarget:    m.DailyTarget,
		DailyLossLimit: m.DailyLossLimit,
		Enabled:        m.Enabled,
		Position:       m.Position,
	}
}

func fromProfile(p profile.Profile) ProfileModel {
	return ProfileModel{
		ID:             p.ID,
		Symbol:         p.Symbol,
		Size:           p.Size,
		StopPoints:     p.StopPoints,
		TargetPoints:   p.TargetPoints,
		Strategy:       p.Strategy,
		WindowStart:    p.WindowStart,
		WindowEnd:      p.WindowEnd,
		Environment:    string(p.Environment),
		Policy:         string(p.Policy),
		DailyTarget:    p.DailyTarget,
		DailyLossLimit: p.DailyLossLimit,
		Enabled:        p.Enabled,
		Position:       p.Position,
	}
}

type SystemLogModel struct {
	ID        int64  `gorm:"column:id;primaryKey"`
	ProfileID string `gorm:"column:profile_id;index"`
	Kind      string `gorm:"column:kind"`
	Message   string `gorm:"column:message"`
	CreatedAt int64  `gorm:"column:created_at"`
}

func (SystemLogModel) TableName() string { return "system_logs" }

type TradeHistoryModel struct {
	ID        int64   `gorm:"column:id;primaryKey"`
	ProfileID string  `gorm:"column:profile_id;index"`
	Ticket    string  `gorm:"column:ticket"`
	Symbol    string  `gorm:"column:symbol"`
	Side      string  `gorm:"column:side"`
	Price     float64 `gorm:"column:price"`
	Size      float64 `gorm:"column:size"`
	Relevance int     `gorm:"column:relevance"`
	Reason    string  `gorm:"column:reason"`
	Simulated bool    `gorm:"column:simulated"`
	CreatedAt int64   `gorm:"column:created_at"`
}

func (TradeHistoryModel) TableName() string { return "trade_history" }
