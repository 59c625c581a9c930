package domain

import (
	"encoding/json"
	"fmt"
)

// ConditionType is the tag of a trigger condition.
type ConditionType string

const (
	ConditionPriceStreak      ConditionType = "priceStreak"
	ConditionDrawdownFromPeak ConditionType = "drawdownFromPeak"
	ConditionNewHigh          ConditionType = "newHigh"
	ConditionNewLow           ConditionType = "newLow"
	ConditionPeriodReturn     ConditionType = "periodReturn"
	ConditionRSI              ConditionType = "rsi"
	ConditionMACross          ConditionType = "maCross"
	ConditionVIX              ConditionType = "vix"
)

// Condition is a trigger condition. The set of implementations is closed:
// only types in this package satisfy it.
type Condition interface {
	Type() ConditionType
	isCondition()
}

// Direction values used by streak, return and cross conditions.
const (
	DirectionUp    = "up"
	DirectionDown  = "down"
	DirectionAbove = "above"
	DirectionBelow = "below"
)

// PriceStreak holds when the close moved in Direction on each of the last
// Count day-over-day transitions.
type PriceStreak struct {
	Direction string `json:"direction"`
	Count     int    `json:"count"`
	Unit      string `json:"unit,omitempty"`
}

// DrawdownFromPeak holds when today's close is at least Percentage below the
// highest high of the trailing Days+1 bars.
type DrawdownFromPeak struct {
	Days       int     `json:"days"`
	Percentage float64 `json:"percentage"`
}

// NewHigh holds when today's close exceeds every high of the prior Days bars.
type NewHigh struct {
	Days int `json:"days"`
}

// NewLow holds when today's close is below every low of the prior Days bars.
type NewLow struct {
	Days int `json:"days"`
}

// PeriodReturn holds when the Days-bar return reaches Percentage in
// Direction.
type PeriodReturn struct {
	Days       int     `json:"days"`
	Percentage float64 `json:"percentage"`
	Direction  string  `json:"direction"`
}

// RSI holds when the Cutler RSI over Period is above or below Threshold.
type RSI struct {
	Period    int     `json:"period"`
	Threshold float64 `json:"threshold"`
	Operator  string  `json:"operator"`
}

// MACross holds when the close crosses its Period simple moving average.
type MACross struct {
	Period    int    `json:"period"`
	Direction string `json:"direction"`
}

// VIX modes.
const (
	VIXModeThreshold = "threshold"
	VIXModeStreak    = "streak"
	VIXModeBreakout  = "breakout"
)

// VIX evaluates the volatility index history. Mode selects which group of
// fields applies; an empty Mode means threshold.
type VIX struct {
	Mode            string   `json:"mode,omitempty"`
	Threshold       *float64 `json:"threshold,omitempty"`
	Operator        string   `json:"operator,omitempty"`
	StreakDirection string   `json:"streakDirection,omitempty"`
	StreakCount     int      `json:"streakCount,omitempty"`
	BreakoutType    string   `json:"breakoutType,omitempty"`
	BreakoutDays    int      `json:"breakoutDays,omitempty"`
}

// UnknownCondition preserves a condition whose tag is not recognised. It is
// never satisfied.
type UnknownCondition struct {
	Kind   ConditionType   `json:"-"`
	Params json.RawMessage `json:"-"`
}

func (PriceStreak) Type() ConditionType      { return ConditionPriceStreak }
func (DrawdownFromPeak) Type() ConditionType { return ConditionDrawdownFromPeak }
func (NewHigh) Type() ConditionType          { return ConditionNewHigh }
func (NewLow) Type() ConditionType           { return ConditionNewLow }
func (PeriodReturn) Type() ConditionType     { return ConditionPeriodReturn }
func (RSI) Type() ConditionType              { return ConditionRSI }
func (MACross) Type() ConditionType          { return ConditionMACross }
func (VIX) Type() ConditionType              { return ConditionVIX }
func (u UnknownCondition) Type() ConditionType {
	return u.Kind
}

func (PriceStreak) isCondition()      {}
func (DrawdownFromPeak) isCondition() {}
func (NewHigh) isCondition()          {}
func (NewLow) isCondition()           {}
func (PeriodReturn) isCondition()     {}
func (RSI) isCondition()              {}
func (MACross) isCondition()          {}
func (VIX) isCondition()              {}
func (UnknownCondition) isCondition() {}

// Trigger pairs a condition with an action and an optional cooldown.
type Trigger struct {
	Condition Condition
	Action    Action
	Cooldown  *Cooldown
}

type conditionEnvelope struct {
	Type   ConditionType   `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
}

type triggerJSON struct {
	Condition conditionEnvelope `json:"condition"`
	Action    Action            `json:"action"`
	Cooldown  *Cooldown         `json:"cooldown,omitempty"`
}

// MarshalJSON encodes the condition as {"type": ..., "params": {...}}.
func (t Trigger) MarshalJSON() ([]byte, error) {
	env := conditionEnvelope{}
	if t.Condition != nil {
		env.Type = t.Condition.Type()
		if u, ok := t.Condition.(UnknownCondition); ok {
			env.Params = u.Params
		} else {
			params, err := json.Marshal(t.Condition)
			if err != nil {
				return nil, fmt.Errorf("encoding %s params: %w", env.Type, err)
			}
			env.Params = params
		}
	}
	return json.Marshal(triggerJSON{Condition: env, Action: t.Action, Cooldown: t.Cooldown})
}

// UnmarshalJSON decodes the tagged condition envelope.
func (t *Trigger) UnmarshalJSON(data []byte) error {
	var raw triggerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	cond, err := DecodeCondition(raw.Condition.Type, raw.Condition.Params)
	if err != nil {
		return err
	}
	t.Condition = cond
	t.Action = raw.Action
	t.Cooldown = raw.Cooldown
	return nil
}

// DecodeCondition builds the concrete condition for a tag. Unrecognised tags
// yield an UnknownCondition rather than an error.
func DecodeCondition(typ ConditionType, params json.RawMessage) (Condition, error) {
	var cond Condition
	switch typ {
	case ConditionPriceStreak:
		c := PriceStreak{Unit: "day"}
		if err := decodeParams(params, &c); err != nil {
			return nil, err
		}
		cond = c
	case ConditionDrawdownFromPeak:
		var c DrawdownFromPeak
		if err := decodeParams(params, &c); err != nil {
			return nil, err
		}
		cond = c
	case ConditionNewHigh:
		var c NewHigh
		if err := decodeParams(params, &c); err != nil {
			return nil, err
		}
		cond = c
	case ConditionNewLow:
		var c NewLow
		if err := decodeParams(params, &c); err != nil {
			return nil, err
		}
		cond = c
	case ConditionPeriodReturn:
		var c PeriodReturn
		if err := decodeParams(params, &c); err != nil {
			return nil, err
		}
		cond = c
	case ConditionRSI:
		var c RSI
		if err := decodeParams(params, &c); err != nil {
			return nil, err
		}
		cond = c
	case ConditionMACross:
		var c MACross
		if err := decodeParams(params, &c); err != nil {
			return nil, err
		}
		cond = c
	case ConditionVIX:
		c := VIX{Mode: VIXModeThreshold}
		if err := decodeParams(params, &c); err != nil {
			return nil, err
		}
		if c.Mode == "" {
			c.Mode = VIXModeThreshold
		}
		cond = c
	default:
		cond = UnknownCondition{Kind: typ, Params: params}
	}
	return cond, nil
}

func decodeParams(params json.RawMessage, v any) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return fmt.Errorf("decoding condition params: %w", err)
	}
	return nil
}
