// Package config loads the controller's deployment file: pin assignment,
// bus names, card allow-list, timing and MQTT settings. Flags in main
// override what the file sets.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/sweeney/door-controller/internal/gpio"
	"github.com/sweeney/door-controller/internal/light"
	"github.com/sweeney/door-controller/internal/logic"
)

// EnvAllowedCards replaces the file's allow-list when set (comma separated).
const EnvAllowedCards = "DOOR_ALLOWED_CARDS"

// DefaultTick is the controller cycle period.
const DefaultTick = time.Millisecond

// Validation errors.
var (
	ErrBadCard     = errors.New("invalid card uid")
	ErrBadPins     = errors.New("invalid pin assignment")
	ErrBadTiming   = errors.New("invalid timing")
	ErrBadEncoding = errors.New("invalid payload encoding")
	ErrBadADC      = errors.New("invalid light adc")
)

// Config is the deployment file.
type Config struct {
	Pins gpio.Pins `yaml:"pins"`

	I2CBus string `yaml:"i2c_bus"` // "" is the first bus
	LCD    uint16 `yaml:"lcd_address"`
	EEPROM uint16 `yaml:"eeprom_address"`

	RFID RFID `yaml:"rfid"`
	ADC  ADC  `yaml:"light_adc"`

	AllowedCards []string `yaml:"allowed_cards"`

	Timing Timing `yaml:"timing"`
	MQTT   MQTT   `yaml:"mqtt"`

	Journal Journal `yaml:"journal"`
}

// RFID selects the card reader's SPI port and control pins (periph names).
type RFID struct {
	SPIPort string `yaml:"spi_port"`
	Reset   string `yaml:"reset"`
	IRQ     string `yaml:"irq"`
}

// ADC is the ADS1115 input the light sensor's divider feeds.
type ADC struct {
	Address   uint16  `yaml:"address"`
	Channel   int     `yaml:"channel"`    // single-ended input 0..3
	FullScale float64 `yaml:"full_scale"` // volts read in full darkness
	Invert    bool    `yaml:"invert"`     // voltage rises with brightness
}

// LightOptions converts the file's settings for the light package.
func (a ADC) LightOptions() light.Options {
	return light.Options{
		Address:   a.Address,
		Channel:   a.Channel,
		FullScale: physic.ElectricPotential(math.Round(a.FullScale * float64(physic.Volt))),
		Invert:    a.Invert,
	}
}

// Timing is wall-clock durations converted to cycles at startup.
type Timing struct {
	Tick        time.Duration `yaml:"tick"`
	InitDelay   time.Duration `yaml:"init_delay"`
	LightSample time.Duration `yaml:"light_sample"`
	Idle        time.Duration `yaml:"idle"`
	CardPoll    time.Duration `yaml:"card_poll"`
	Lockout     time.Duration `yaml:"lockout"`

	LightBaseline int `yaml:"light_baseline"`
	LightStep     int `yaml:"light_step"`

	KeyDebounce time.Duration `yaml:"key_debounce"`
	KeyScan     time.Duration `yaml:"key_scan"`
}

// MQTT configures the broker connection.
//
// RemoteControl lets "button", "card" and "keys" commands on the command
// topic act as the door's own inputs. Anyone who can publish to the broker
// can then open the door, so it is off unless the broker is locked down.
// Light readings are accepted either way.
type MQTT struct {
	Broker        string `yaml:"broker"`
	ClientID      string `yaml:"client_id"`
	Payload       string `yaml:"payload"`
	BufferSize    int    `yaml:"buffer_size"`
	RemoteControl bool   `yaml:"remote_control"`
}

// Journal configures the activity database.
type Journal struct {
	Path   string `yaml:"path"`
	Secret string `yaml:"secret"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	tick := DefaultTick
	return Config{
		Pins:   gpio.DefaultPins(),
		LCD:    0x27,
		EEPROM: 0x50,
		RFID: RFID{
			SPIPort: "SPI0.0",
			Reset:   "GPIO25",
			IRQ:     "GPIO18",
		},
		ADC: ADC{
			Address:   light.DefaultAddress,
			FullScale: 3.3,
		},
		Timing: Timing{
			Tick:          tick,
			InitDelay:     logic.DefaultInitDelay * tick,
			LightSample:   logic.DefaultLightSampleInterval * tick,
			Idle:          logic.DefaultIdleTimeout * tick,
			CardPoll:      logic.DefaultCardPollInterval * tick,
			Lockout:       logic.DefaultLockoutTicks * tick,
			LightBaseline: logic.DefaultLightBaseline,
			LightStep:     logic.DefaultLightStep,
			KeyDebounce:   50 * time.Millisecond,
			KeyScan:       10 * time.Millisecond,
		},
		MQTT: MQTT{
			Broker:     "tcp://localhost:1883",
			ClientID:   "door-controller",
			Payload:    "json",
			BufferSize: 100,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if cards := splitCSV(os.Getenv(EnvAllowedCards)); cards != nil {
		cfg.AllowedCards = cards
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the controller cannot run with.
func (c Config) Validate() error {
	for _, s := range c.AllowedCards {
		if _, err := logic.ParseUID(s); err != nil {
			return fmt.Errorf("%w: %v", ErrBadCard, err)
		}
	}

	p := c.Pins
	if len(p.Rows) != len(gpio.Layout) || len(p.Cols) != len(gpio.Layout[0]) {
		return fmt.Errorf("%w: keypad needs %d rows and %d cols", ErrBadPins, len(gpio.Layout), len(gpio.Layout[0]))
	}
	seen := make(map[int]string)
	claim := func(name string, pin int) error {
		if pin < 0 {
			return fmt.Errorf("%w: %s pin %d", ErrBadPins, name, pin)
		}
		if other, ok := seen[pin]; ok {
			return fmt.Errorf("%w: pin %d used by %s and %s", ErrBadPins, pin, other, name)
		}
		seen[pin] = name
		return nil
	}
	named := []struct {
		name string
		pin  int
	}{
		{"armed", p.Armed}, {"disarmed", p.Disarmed}, {"low_light", p.LowLight},
		{"buzzer", p.Buzzer}, {"door_lock", p.DoorLock}, {"door_button", p.DoorButton},
		{"light", p.Light},
	}
	for _, n := range named {
		if err := claim(n.name, n.pin); err != nil {
			return err
		}
	}
	for i, pin := range p.Rows {
		if err := claim(fmt.Sprintf("row%d", i), pin); err != nil {
			return err
		}
	}
	for i, pin := range p.Cols {
		if err := claim(fmt.Sprintf("col%d", i), pin); err != nil {
			return err
		}
	}

	t := c.Timing
	if t.Tick <= 0 {
		return fmt.Errorf("%w: tick must be positive", ErrBadTiming)
	}
	for _, d := range []time.Duration{t.InitDelay, t.LightSample, t.Idle, t.CardPoll, t.Lockout} {
		if d < 0 {
			return fmt.Errorf("%w: negative duration %v", ErrBadTiming, d)
		}
	}

	if c.ADC.Channel < 0 || c.ADC.Channel > 3 {
		return fmt.Errorf("%w: channel %d", ErrBadADC, c.ADC.Channel)
	}
	if c.ADC.FullScale <= 0 {
		return fmt.Errorf("%w: full scale %v", ErrBadADC, c.ADC.FullScale)
	}

	switch c.MQTT.Payload {
	case "", "json", "cbor":
	default:
		return fmt.Errorf("%w: %q", ErrBadEncoding, c.MQTT.Payload)
	}
	return nil
}

// Options converts the file into controller options.
func (c Config) Options() logic.Options {
	t := c.Timing
	opts := logic.Options{
		InitDelay:           cycles(t.InitDelay, t.Tick),
		LightSampleInterval: cycles(t.LightSample, t.Tick),
		IdleTimeout:         cycles(t.Idle, t.Tick),
		CardPollInterval:    cycles(t.CardPoll, t.Tick),
		LockoutTicks:        cycles(t.Lockout, t.Tick),
		LightBaseline:       t.LightBaseline,
		LightStep:           t.LightStep,
	}
	for _, s := range c.AllowedCards {
		if u, err := logic.ParseUID(s); err == nil {
			opts.AllowedCards = append(opts.AllowedCards, u)
		}
	}
	return opts
}

// cycles rounds d up to whole ticks so a short duration never becomes zero.
func cycles(d, tick time.Duration) uint32 {
	if d <= 0 || tick <= 0 {
		return 0
	}
	return uint32((d + tick - 1) / tick)
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
