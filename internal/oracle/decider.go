package oracle

import (
	"context"

	"trapline/internal/logger"
)

// ModelDecider is the production Decider: prompt build, one chat call, strict
// parse. Fallback substitution is the adapter's job, not this one's.
type ModelDecider struct {
	Client *ChatClient
}

func NewModelDecider(client *ChatClient) *ModelDecider {
	return &ModelDecider{Client: client}
}

func (m *ModelDecider) Decide(ctx context.Context, req Request) (Result, error) {
	system := SystemPrompt()
	user := UserPrompt(req)
	result := Result{SystemPrompt: system, UserPrompt: user}

	logger.LogOracleRequest(req.ProfileID, system, user, len(req.Images), "")
	raw, err := m.Client.Call(ctx, chatPayload{System: system, User: user, Images: req.Images})
	if err != nil {
		return result, err
	}
	result.RawOutput = raw
	logger.LogOracleResponse(req.ProfileID, raw)

	d, err := Parse(raw)
	if err != nil {
		return result, err
	}
	result.Decision = d
	return result, nil
}
