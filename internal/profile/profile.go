package profile

import (
	"fmt"
	"strings"
)

// Environment selects where dispatched orders go.
type Environment string

const (
	EnvLive   Environment = "LIVE"
	EnvReplay Environment = "REPLAY"
)

// Policy is the aggressiveness filter applied before dispatch. An empty
// policy imposes no relevance floor.
type Policy string

const (
	PolicySniper       Policy = "SNIPER"
	PolicyScalper      Policy = "SCALPER"
	PolicyUnrestricted Policy = ""
)

// Profile is one configured trading mandate. Profiles are created and edited
// outside the core (configuration store / seed file) and are read-only to the
// trading cycle.
type Profile struct {
	ID             string      `yaml:"id"`
	Symbol         string      `yaml:"symbol"`
	Size           float64     `yaml:"size"`
	StopPoints     int         `yaml:"stop_points"`
	TargetPoints   int         `yaml:"target_points"`
	Strategy       string      `yaml:"strategy"`
	WindowStart    string      `yaml:"window_start"`
	WindowEnd      string      `yaml:"window_end"`
	Environment    Environment `yaml:"environment"`
	Policy         Policy      `yaml:"policy"`
	DailyTarget    float64     `yaml:"daily_target"`
	DailyLossLimit float64     `yaml:"daily_loss_limit"`
	Enabled        bool        `yaml:"enabled"`
	Position       int         `yaml:"position"`
}

func (p *Profile) Normalize() {
	p.ID = strings.TrimSpace(p.ID)
	p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
	p.Strategy = strings.TrimSpace(p.Strategy)
	p.Environment = Environment(strings.ToUpper(strings.TrimSpace(string(p.Environment))))
	p.Policy = Policy(strings.ToUpper(strings.TrimSpace(string(p.Policy))))
}

func (p Profile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("profile id is required")
	}
	if p.Symbol == "" {
		return fmt.Errorf("profile %s: symbol is required", p.ID)
	}
	if p.Size <= 0 {
		return fmt.Errorf("profile %s: size must be > 0", p.ID)
	}
	switch p.Environment {
	case EnvLive, EnvReplay:
	default:
		return fmt.Errorf("profile %s: environment must be LIVE or REPLAY, got %q", p.ID, p.Environment)
	}
	switch p.Policy {
	case PolicySniper, PolicyScalper, PolicyUnrestricted:
	default:
		return fmt.Errorf("profile %s: unknown policy %q", p.ID, p.Policy)
	}
	if p.DailyLossLimit > 0 {
		return fmt.Errorf("profile %s: daily_loss_limit must be <= 0", p.ID)
	}
	return nil
}
