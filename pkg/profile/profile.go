// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package profile loads receiver configuration profiles from YAML and turns
// them into the PUBX and CFG-VALSET frames that apply them.
package profile

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/sextant/pkg/nmea"
	"github.com/Thermoquad/sextant/pkg/ubx"
)

// MaxFrameSize bounds each VALSET frame so it fits the default transmit
// buffer.
const MaxFrameSize = 512

// Profile is a receiver configuration.
//
//	port:
//	  id: uart1
//	  baud: 115200
//	  in: [ubx, nmea]
//	  out: [ubx, nmea]
//	silence_defaults: true
//	rates:
//	  GLL: {uart1: 1}
//	  ZDA: {uart1: 1}
//	valset:
//	  layers: [ram, bbr]
//	  items:
//	    - key: CFG-RATE-MEAS
//	      value: 200
//	    - key: "0x40520001"
//	      value: 115200
type Profile struct {
	Port            *PortConfig           `yaml:"port"`
	SilenceDefaults bool                  `yaml:"silence_defaults"`
	Rates           map[string]RateConfig `yaml:"rates"`
	ValSet          ValSetConfig          `yaml:"valset"`

	portConfig nmea.PortConfig
	rates      []nmea.Rate
	layers     ubx.SetLayer
	pairs      []ubx.KeyValuePair
}

type PortConfig struct {
	ID          string   `yaml:"id"`
	Baud        uint32   `yaml:"baud"`
	In          []string `yaml:"in"`
	Out         []string `yaml:"out"`
	Autobauding bool     `yaml:"autobauding"`
}

// RateConfig is the per-port output rate of one sentence.
type RateConfig struct {
	DDC   uint8 `yaml:"ddc"`
	UART1 uint8 `yaml:"uart1"`
	UART2 uint8 `yaml:"uart2"`
	USB   uint8 `yaml:"usb"`
	SPI   uint8 `yaml:"spi"`
}

type ValSetConfig struct {
	Layers []string `yaml:"layers"`
	Items  []Item   `yaml:"items"`
}

// Item is one configuration key and its value. Type overrides the kind
// implied by the key's storage size ("I4", "R8", ...).
type Item struct {
	Key   string `yaml:"key"`
	Value any    `yaml:"value"`
	Type  string `yaml:"type"`
}

// Load reads and validates a profile.
func Load(path string) (*Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse validates a profile held in memory.
func Parse(b []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, err
	}

	if p.Port != nil {
		pc, err := p.Port.resolve()
		if err != nil {
			return nil, err
		}
		p.portConfig = pc
	}

	names := make([]string, 0, len(p.Rates))
	for name := range p.Rates {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		msg, ok := nmea.ParseMessage(strings.ToUpper(name))
		if !ok || msg.IsProprietary() {
			return nil, fmt.Errorf("rates.%s: unknown sentence", name)
		}
		r := p.Rates[name]
		p.rates = append(p.rates, nmea.Rate{
			Msg: msg, DDC: r.DDC, UART1: r.UART1, UART2: r.UART2, USB: r.USB, SPI: r.SPI,
		})
	}

	if len(p.ValSet.Layers) == 0 {
		p.ValSet.Layers = []string{"ram"}
	}
	for _, l := range p.ValSet.Layers {
		switch strings.ToLower(l) {
		case "ram":
			p.layers |= ubx.SetRAM
		case "bbr":
			p.layers |= ubx.SetBBR
		case "flash":
			p.layers |= ubx.SetFlash
		default:
			return nil, fmt.Errorf("valset.layers: unknown layer %q", l)
		}
	}
	for i, item := range p.ValSet.Items {
		pair, err := item.resolve()
		if err != nil {
			return nil, fmt.Errorf("valset.items[%d]: %w", i, err)
		}
		p.pairs = append(p.pairs, pair)
	}

	return &p, nil
}

func (c *PortConfig) resolve() (nmea.PortConfig, error) {
	pc := nmea.PortConfig{Autobauding: c.Autobauding}
	switch strings.ToLower(c.ID) {
	case "", "uart1":
		pc.Port = nmea.PortUART1
	case "usb":
		pc.Port = nmea.PortUSB
	default:
		return pc, fmt.Errorf("port.id: unknown port %q", c.ID)
	}

	if c.Baud == 0 {
		c.Baud = uint32(nmea.Baud38400)
	}
	pc.Baud = nmea.Baud(c.Baud)
	if !pc.Baud.Valid() {
		return pc, fmt.Errorf("port.baud: unsupported baud rate %d", c.Baud)
	}

	if len(c.In) == 0 {
		c.In = []string{"ubx", "nmea"}
	}
	for _, s := range c.In {
		switch strings.ToLower(s) {
		case "ubx":
			pc.In |= nmea.InUBX
		case "nmea":
			pc.In |= nmea.InNMEA
		case "rtcm":
			pc.In |= nmea.InRTCM
		case "rtcm3":
			pc.In |= nmea.InRTCM3
		default:
			return pc, fmt.Errorf("port.in: unknown protocol %q", s)
		}
	}

	if len(c.Out) == 0 {
		c.Out = []string{"ubx", "nmea"}
	}
	for _, s := range c.Out {
		switch strings.ToLower(s) {
		case "ubx":
			pc.Out |= nmea.OutUBX
		case "nmea":
			pc.Out |= nmea.OutNMEA
		default:
			return pc, fmt.Errorf("port.out: unknown protocol %q", s)
		}
	}
	return pc, nil
}

var kinds = map[string]ubx.Kind{
	"L": ubx.KindBool, "U1": ubx.KindU1, "I1": ubx.KindI1, "U2": ubx.KindU2, "I2": ubx.KindI2,
	"U4": ubx.KindU4, "I4": ubx.KindI4, "R4": ubx.KindR4, "U8": ubx.KindU8, "I8": ubx.KindI8, "R8": ubx.KindR8,
}

func (it Item) resolve() (ubx.KeyValuePair, error) {
	if it.Key == "" {
		return ubx.KeyValuePair{}, fmt.Errorf("key is required")
	}
	key, ok := ubx.LookupKey(it.Key)
	if !ok {
		return ubx.KeyValuePair{}, fmt.Errorf("unknown key %q", it.Key)
	}
	kind := ubx.DefaultKind(key)
	if it.Type != "" {
		kind, ok = kinds[strings.ToUpper(it.Type)]
		if !ok {
			return ubx.KeyValuePair{}, fmt.Errorf("%s: unknown type %q", it.Key, it.Type)
		}
	}
	if it.Value == nil {
		return ubx.KeyValuePair{}, fmt.Errorf("%s: value is required", it.Key)
	}
	v, err := convert(kind, it.Value)
	if err != nil {
		return ubx.KeyValuePair{}, fmt.Errorf("%s: %w", it.Key, err)
	}
	pair, err := ubx.NewKeyValuePair(key, v)
	if err != nil {
		return ubx.KeyValuePair{}, fmt.Errorf("%s: %w", it.Key, err)
	}
	return pair, nil
}

// convert turns a YAML scalar into a value of the given kind.
func convert(kind ubx.Kind, raw any) (ubx.Value, error) {
	switch kind {
	case ubx.KindBool:
		switch v := raw.(type) {
		case bool:
			return ubx.Bool(v), nil
		case int:
			if v == 0 || v == 1 {
				return ubx.Bool(v == 1), nil
			}
		}
		return ubx.Value{}, fmt.Errorf("%v is not a boolean", raw)

	case ubx.KindR4, ubx.KindR8:
		var f float64
		switch v := raw.(type) {
		case float64:
			f = v
		case int:
			f = float64(v)
		default:
			return ubx.Value{}, fmt.Errorf("%v is not a number", raw)
		}
		if kind == ubx.KindR4 {
			return ubx.Float32(float32(f)), nil
		}
		return ubx.Float64(f), nil
	}

	var n int64
	var u uint64
	switch v := raw.(type) {
	case int:
		n, u = int64(v), uint64(v)
	case uint64:
		if kind != ubx.KindU8 {
			return ubx.Value{}, fmt.Errorf("%d out of range for %v", v, kind)
		}
		return ubx.Uint64(v), nil
	default:
		return ubx.Value{}, fmt.Errorf("%v is not an integer", raw)
	}

	signed := kind == ubx.KindI1 || kind == ubx.KindI2 || kind == ubx.KindI4 || kind == ubx.KindI8
	if !signed && n < 0 {
		return ubx.Value{}, fmt.Errorf("%d out of range for %v", n, kind)
	}
	bits := 8 * (1 << (kind.Size() - ubx.SizeByte))
	if bits < 64 {
		if signed && (n < -(1<<(bits-1)) || n >= 1<<(bits-1)) {
			return ubx.Value{}, fmt.Errorf("%d out of range for %v", n, kind)
		}
		if !signed && u >= 1<<bits {
			return ubx.Value{}, fmt.Errorf("%d out of range for %v", n, kind)
		}
	}

	switch kind {
	case ubx.KindU1:
		return ubx.Uint8(uint8(u)), nil
	case ubx.KindI1:
		return ubx.Int8(int8(n)), nil
	case ubx.KindU2:
		return ubx.Uint16(uint16(u)), nil
	case ubx.KindI2:
		return ubx.Int16(int16(n)), nil
	case ubx.KindU4:
		return ubx.Uint32(uint32(u)), nil
	case ubx.KindI4:
		return ubx.Int32(int32(n)), nil
	case ubx.KindU8:
		return ubx.Uint64(u), nil
	case ubx.KindI8:
		return ubx.Int64(n), nil
	}
	return ubx.Value{}, fmt.Errorf("unsupported kind %v", kind)
}

// PortConfig returns the resolved PUBX,41 request, if the profile has a
// port section.
func (p *Profile) PortConfig() (nmea.PortConfig, bool) {
	return p.portConfig, p.Port != nil
}

// OutputRates returns the PUBX,40 requests in formatter order.
func (p *Profile) OutputRates() []nmea.Rate {
	return p.rates
}

// Layers returns the VALSET layer mask.
func (p *Profile) Layers() ubx.SetLayer {
	return p.layers
}

// Pairs returns the resolved configuration items.
func (p *Profile) Pairs() []ubx.KeyValuePair {
	return p.pairs
}

// Frames renders the profile in the order it should be sent: port
// configuration, silenced defaults, output rates, then VALSET requests of at
// most ubx.MaxPairs items and MaxFrameSize bytes each.
func (p *Profile) Frames() ([][]byte, error) {
	var frames [][]byte
	if p.Port != nil {
		frames = append(frames, p.portConfig.Sentence())
	}

	if p.SilenceDefaults {
		for _, m := range nmea.DefaultOutputs {
			if _, ok := p.rateFor(m); ok {
				continue
			}
			msg, err := nmea.Rate{Msg: m}.Sentence()
			if err != nil {
				return nil, err
			}
			frames = append(frames, msg)
		}
	}
	for _, r := range p.rates {
		msg, err := r.Sentence()
		if err != nil {
			return nil, err
		}
		frames = append(frames, msg)
	}

	set := ubx.NewValSet(p.layers)
	for _, pair := range p.pairs {
		if len(set.Pairs()) == ubx.MaxPairs || ubx.Overhead+set.Len()+pair.Len() > MaxFrameSize {
			frames = append(frames, set.Bytes())
			set = ubx.NewValSet(p.layers)
		}
		if err := set.Add(pair); err != nil {
			return nil, err
		}
	}
	if len(set.Pairs()) > 0 {
		frames = append(frames, set.Bytes())
	}
	return frames, nil
}

func (p *Profile) rateFor(m nmea.Message) (nmea.Rate, bool) {
	for _, r := range p.rates {
		if r.Msg == m {
			return r, true
		}
	}
	return nmea.Rate{}, false
}
