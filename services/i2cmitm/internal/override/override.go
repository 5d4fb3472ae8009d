// Package override decides whether an outgoing single-command write on an
// intercepted session is rewritten. It performs no I/O.
package override

import (
	"fmt"

	"i2cmitm-go/drivers/bq24193"
	"i2cmitm-go/types"
)

// Kind is the decision taken for one payload.
type Kind uint8

const (
	// NotApplicable: forward the original payload unchanged.
	NotApplicable Kind = iota
	// Replace: forward Payload instead of the original.
	Replace
	// ReplaceAndForwardOriginal: write Payload first and, only if that
	// succeeds, forward the original payload as well.
	ReplaceAndForwardOriginal
)

func (k Kind) String() string {
	switch k {
	case NotApplicable:
		return "not_applicable"
	case Replace:
		return "replace"
	case ReplaceAndForwardOriginal:
		return "replace_and_forward_original"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Outcome is the result of TryOverride. Note is a human-readable line for
// the log when Kind is not NotApplicable.
type Outcome struct {
	Kind    Kind
	Payload []byte
	Note    string
}

// Settings is the override target, fixed for the life of the process.
type Settings struct {
	Voltage       int
	VoltageConfig byte
}

// Rule matches a two-byte register write.
type Rule struct {
	Register byte
	Match    func(value byte) bool
	Kind     Kind
	Note     string
	// Replacement is the two-byte write issued instead of, or ahead of, the
	// original.
	Replacement [2]byte
}

// Policy is the rule set of one device.
type Policy struct {
	Device types.DeviceCode
	Rules  []Rule
}

// TryOverride applies the first matching rule. A nil Policy never matches.
func (p *Policy) TryOverride(payload []byte) Outcome {
	if p == nil || len(payload) != 2 {
		return Outcome{Kind: NotApplicable}
	}
	for _, r := range p.Rules {
		if payload[0] == r.Register && r.Match(payload[1]) {
			return Outcome{Kind: r.Kind, Payload: []byte{r.Replacement[0], r.Replacement[1]}, Note: r.Note}
		}
	}
	return Outcome{Kind: NotApplicable}
}

// Engine holds the per-device policies built from Settings.
type Engine struct {
	settings Settings
	policies map[types.DeviceCode]*Policy
}

// Target is the one device whose sessions are intercepted.
const Target = types.DeviceCodeBq24193

func NewEngine(s Settings) *Engine {
	return &Engine{
		settings: s,
		policies: map[types.DeviceCode]*Policy{Target: chargerPolicy(s)},
	}
}

func (e *Engine) Settings() Settings { return e.settings }

// PolicyFor returns the policy for device, or nil. Sessions look it up once
// when they are opened.
func (e *Engine) PolicyFor(device types.DeviceCode) *Policy {
	return e.policies[device]
}

func (e *Engine) TryOverride(device types.DeviceCode, payload []byte) Outcome {
	return e.PolicyFor(device).TryOverride(payload)
}

// chargerPolicy rewrites the stock charge voltage and pins the configured
// voltage whenever charging is switched on.
func chargerPolicy(s Settings) *Policy {
	set := [2]byte{bq24193.RegChargeVoltage, s.VoltageConfig}
	return &Policy{
		Device: Target,
		Rules: []Rule{
			{
				Register:    bq24193.RegChargeVoltage,
				Match:       func(v byte) bool { return v == bq24193.ChargeVoltageStockCode },
				Kind:        Replace,
				Replacement: set,
				Note:        fmt.Sprintf("Overriding set voltage command, setting voltage to %d mV", s.Voltage),
			},
			{
				Register:    bq24193.RegPowerOnConfig,
				Match:       func(v byte) bool { return bq24193.ChgConfigOf(v) == bq24193.ChgCharge },
				Kind:        ReplaceAndForwardOriginal,
				Replacement: set,
				Note:        fmt.Sprintf("Charging is being enabled, also set charge voltage to %d mV", s.Voltage),
			},
		},
	}
}
