package oracle

import (
	"context"
	"strings"

	"trapline/internal/market"
)

// Action is the oracle's verdict for one cycle.
type Action string

const (
	ActionWait       Action = "WAIT"
	ActionWaitToBuy  Action = "WAIT_TO_BUY"
	ActionWaitToSell Action = "WAIT_TO_SELL"
	ActionBuy        Action = "BUY"
	ActionSell       Action = "SELL"
)

func (a Action) Valid() bool {
	switch a {
	case ActionWait, ActionWaitToBuy, ActionWaitToSell, ActionBuy, ActionSell:
		return true
	}
	return false
}

// TriggerAction marks the direction of a proposed trigger order. NONE is
// inert: no price, no timestamp, nothing armed.
type TriggerAction string

const (
	TriggerBuy  TriggerAction = "BUY"
	TriggerSell TriggerAction = "SELL"
	TriggerNone TriggerAction = "NONE"
)

// TriggerProposal is the oracle's request to arm a conditional order.
type TriggerProposal struct {
	Action TriggerAction `json:"action"`
	Price  float64       `json:"price"`
	Reason string        `json:"reason"`
}

// Decision is the oracle's structured output. Regime and strategy are
// advisory: logged and relayed, never used for control flow.
type Decision struct {
	Decision       Action          `json:"decision"`
	Relevance      int             `json:"relevance"`
	Reason         string          `json:"reason"`
	Memory         string          `json:"memory"`
	MarketRegime   string          `json:"market_regime"`
	ChosenStrategy string          `json:"chosen_strategy"`
	Trigger        TriggerProposal `json:"trigger_order"`
}

// FirstRunMemory is the sentinel stored before the oracle has ever written
// its own memory for a profile.
const FirstRunMemory = "FIRST RUN - no operational memory yet."

// Fallback is the safe decision substituted when the oracle is unreachable or
// returns garbage. The previous memory is carried forward so one bad cycle
// does not amnesia the profile.
func Fallback(reason, previousMemory string) Decision {
	if strings.TrimSpace(reason) == "" {
		reason = "oracle unavailable"
	}
	return Decision{
		Decision:  ActionWait,
		Relevance: 1,
		Reason:    reason,
		Memory:    previousMemory,
		Trigger:   TriggerProposal{Action: TriggerNone},
	}
}

// TableSection is one serialized candle series for the prompt.
type TableSection struct {
	Name     string
	Interval string
	CSV      string
}

// ImageAttachment is a rendered chart handed to a vision-capable model.
type ImageAttachment struct {
	DataURI     string
	Description string
}

// Request carries everything one consultation needs.
type Request struct {
	ProfileID string
	Symbol    string
	Strategy  string
	Memory    string
	Relevance int
	PrevDay   market.DayRange
	Tables    []TableSection
	Images    []ImageAttachment
}

// Result is the parsed decision plus the material that produced it, kept for
// the oracle log.
type Result struct {
	Decision     Decision
	RawOutput    string
	SystemPrompt string
	UserPrompt   string
}

// Decider turns a request into a decision. Implementations must fail fast:
// "no response" is an error, never an indefinite block.
type Decider interface {
	Decide(ctx context.Context, req Request) (Result, error)
}
