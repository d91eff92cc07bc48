package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"trapline/internal/pkg/jsonutil"
)

const decisionSchema = `{
  "type": "object",
  "required": ["decision", "relevance", "reason", "memory"],
  "properties": {
    "decision": {"enum": ["WAIT", "WAIT_TO_BUY", "WAIT_TO_SELL", "BUY", "SELL"]},
    "relevance": {"type": "integer", "minimum": 1, "maximum": 5},
    "reason": {"type": "string"},
    "memory": {"type": "string"},
    "market_regime": {"type": "string"},
    "chosen_strategy": {"type": "string"},
    "trigger_order": {
      "type": "object",
      "required": ["action"],
      "properties": {
        "action": {"enum": ["BUY", "SELL", "NONE"]},
        "price": {"type": "number"},
        "reason": {"type": "string"}
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("decision.json", decisionSchema)

// Parse extracts and validates the oracle's JSON object. Any failure is
// returned to the caller, which substitutes the WAIT fallback: a raw fault
// must never reach the trading loop.
func Parse(raw string) (Decision, error) {
	block, ok := jsonutil.ExtractObject(raw)
	if !ok {
		return Decision{}, fmt.Errorf("no JSON object in oracle output")
	}
	var generic any
	if err := json.Unmarshal([]byte(block), &generic); err != nil {
		return Decision{}, fmt.Errorf("oracle JSON invalid: %w", err)
	}
	if err := compiledSchema.Validate(generic); err != nil {
		// Pull out whatever the model thought it decided, for the log.
		if hint := gjson.Get(block, "decision").String(); hint != "" {
			return Decision{}, fmt.Errorf("oracle response failed schema (claimed decision=%s): %w", hint, err)
		}
		return Decision{}, fmt.Errorf("oracle response failed schema: %w", err)
	}
	var d Decision
	if err := json.Unmarshal([]byte(block), &d); err != nil {
		return Decision{}, fmt.Errorf("decode decision: %w", err)
	}
	normalize(&d)
	return d, nil
}

func normalize(d *Decision) {
	d.Decision = Action(strings.ToUpper(strings.TrimSpace(string(d.Decision))))
	if d.Relevance < 1 {
		d.Relevance = 1
	}
	if d.Relevance > 5 {
		d.Relevance = 5
	}
	d.Trigger.Action = TriggerAction(strings.ToUpper(strings.TrimSpace(string(d.Trigger.Action))))
	if d.Trigger.Action == "" {
		d.Trigger.Action = TriggerNone
	}
	if d.Trigger.Action == TriggerNone {
		d.Trigger.Price = 0
		d.Trigger.Reason = ""
	}
}
