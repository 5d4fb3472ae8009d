// Package config loads the proxy settings file and publishes the result on
// the bus as retained messages under config/.
package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"i2cmitm-go/bus"
	"i2cmitm-go/drivers/bq24193"
	"i2cmitm-go/errcode"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	serviceName  = "config"
	configPrefix = "config"
)

// Config is immutable once loaded.
type Config struct {
	Voltage       int      `json:"voltage"`
	VoltageConfig byte     `json:"voltage_config"`
	Debug         bool     `json:"debug"`
	DiagListen    string   `json:"diag_listen,omitempty"`
	Ports         []string `json:"ports"`

	// Heartbeat is the liveness log period; zero disables it.
	Heartbeat time.Duration `json:"heartbeat"`
}

// LogLine is the startup summary line.
func (c Config) LogLine() string {
	return fmt.Sprintf("i2c mitm config: voltage: %d, voltage config: 0x%x", c.Voltage, c.VoltageConfig)
}

// Format selects the file syntax.
type Format int

const (
	FormatINI Format = iota // also TOML
	FormatYAML
)

func formatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatINI
}

// Load reads path. A missing file yields the defaults and no error. On a
// rejected value the returned Config still holds the defaults for that
// field and the error carries errcode.InvalidConfig.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Default(), errors.Wrapf(err, "read config %s", path)
	}
	cfg, err := Parse(raw, formatOf(path))
	if err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes raw in the given format. Section and key names are matched
// case-insensitively. Unknown keys are ignored.
func Parse(raw []byte, f Format) (cfg Config, err error) {
	cfg = Default()
	var doc map[string]any
	switch f {
	case FormatYAML:
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return cfg, errcode.Wrap(errcode.InvalidConfig, "parse", "yaml", err)
		}
	default:
		doc, err = loadTOML(raw)
		if err != nil {
			return cfg, err
		}
	}
	sections := fold(doc)

	if v, ok := lookup(sections, "battery", "chrg_voltage"); ok {
		mV, code, err := ParseVoltage(fmt.Sprint(v))
		if err != nil {
			return cfg, err
		}
		cfg.Voltage, cfg.VoltageConfig = mV, code
	}
	if v, ok := lookup(sections, "log", "debug"); ok {
		b, ok := v.(bool)
		if !ok {
			return cfg, errcode.Wrap(errcode.InvalidConfig, "parse", "log.debug must be a bool", nil)
		}
		cfg.Debug = b
	}
	if v, ok := lookup(sections, "diag", "listen"); ok {
		cfg.DiagListen = fmt.Sprint(v)
	}
	if v, ok := lookup(sections, "heartbeat", "interval"); ok {
		secs, ok := asInt(v)
		if !ok || secs < 0 {
			return cfg, errcode.Wrap(errcode.InvalidConfig, "parse", "heartbeat.interval must be a non-negative number of seconds", nil)
		}
		cfg.Heartbeat = time.Duration(secs) * time.Second
	}
	if v, ok := lookup(sections, "service", "ports"); ok {
		list, ok := v.([]any)
		if !ok || len(list) == 0 {
			return cfg, errcode.Wrap(errcode.InvalidConfig, "parse", "service.ports must be a non-empty list", nil)
		}
		ports := make([]string, 0, len(list))
		for _, p := range list {
			ports = append(ports, fmt.Sprint(p))
		}
		cfg.Ports = ports
	}
	return cfg, nil
}

// loadTOML accepts TOML and the INI subset it shares. Lines starting with ';'
// are INI comments and are turned into TOML ones first.
func loadTOML(raw []byte) (doc map[string]any, err error) {
	// go-toml can panic on some malformed input.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, errcode.Wrap(errcode.InvalidConfig, "parse", fmt.Sprintf("invalid toml: %v", r), nil)
		}
	}()
	tree, err := toml.LoadBytes(iniComments(raw))
	if err != nil {
		return nil, errcode.Wrap(errcode.InvalidConfig, "parse", "toml", err)
	}
	return tree.ToMap(), nil
}

func iniComments(raw []byte) []byte {
	lines := bytes.Split(raw, []byte("\n"))
	for i, l := range lines {
		t := bytes.TrimLeft(l, " \t")
		if len(t) > 0 && t[0] == ';' {
			lines[i] = append([]byte("#"), t[1:]...)
		}
	}
	return bytes.Join(lines, []byte("\n"))
}

// fold lower-cases section and key names one level deep.
func fold(doc map[string]any) map[string]map[string]any {
	out := make(map[string]map[string]any, len(doc))
	for name, v := range doc {
		sec, ok := v.(map[string]any)
		if !ok {
			continue
		}
		m := out[strings.ToLower(name)]
		if m == nil {
			m = make(map[string]any, len(sec))
			out[strings.ToLower(name)] = m
		}
		for k, kv := range sec {
			m[strings.ToLower(k)] = kv
		}
	}
	return out
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	}
	return 0, false
}

func lookup(s map[string]map[string]any, section, key string) (any, bool) {
	v, ok := s[section][key]
	return v, ok
}

// ParseVoltage reads a decimal charge voltage the way strtol does (leading
// blanks, optional sign, digits up to the first non-digit) and returns it
// with its REG04 byte.
func ParseVoltage(s string) (int, byte, error) {
	mV := atoiPrefix(s)
	code, err := bq24193.EncodeChargeVoltage(mV)
	if err != nil {
		return 0, 0, errcode.Wrap(errcode.InvalidConfig, "battery.chrg_voltage",
			fmt.Sprintf("invalid voltage %q, must be in range %d-%dmV", s, bq24193.ChargeVoltageMin, bq24193.ChargeVoltageMax), err)
	}
	return mV, code, nil
}

func atoiPrefix(s string) int {
	s = strings.TrimLeft(s, " \t\r\n")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n := 0
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
		if n > 1<<20 {
			break
		}
	}
	if neg {
		return -n
	}
	return n
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

// Heartbeat is the payload retained on config/heartbeat.
type Heartbeat struct {
	Interval time.Duration `json:"interval"`
}

// Battery is the payload retained on config/battery.
type Battery struct {
	Voltage       int  `json:"voltage"`
	VoltageConfig byte `json:"voltage_config"`
}

type ConfigService struct {
	Name string
	cfg  Config
}

func NewConfigService(cfg Config) *ConfigService {
	return &ConfigService{Name: serviceName, cfg: cfg}
}

// BatteryTopic is where the charge settings are retained.
func BatteryTopic() bus.Topic { return bus.T(configPrefix, "battery") }

// publishConfig publishes each section as a retained message.
func (s *ConfigService) publishConfig(conn *bus.Connection) {
	c := s.cfg
	conn.Publish(conn.NewMessage(BatteryTopic(), Battery{Voltage: c.Voltage, VoltageConfig: c.VoltageConfig}, true))
	conn.Publish(conn.NewMessage(bus.T(configPrefix, "log"), map[string]any{"debug": c.Debug}, true))
	conn.Publish(conn.NewMessage(bus.T(configPrefix, "diag"), map[string]any{"listen": c.DiagListen}, true))
	conn.Publish(conn.NewMessage(bus.T(configPrefix, "service"), map[string]any{"ports": append([]string(nil), c.Ports...)}, true))
	conn.Publish(conn.NewMessage(bus.T(configPrefix, "heartbeat"), Heartbeat{Interval: c.Heartbeat}, true))
}

// Start publishes the configuration. It returns once the retained messages
// are on the bus.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	if ctx.Err() != nil {
		return
	}
	s.publishConfig(conn)
}
