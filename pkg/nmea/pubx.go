// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package nmea

import (
	"fmt"
	"strconv"
)

// PortID selects the receiver port addressed by PUBX,41.
type PortID uint8

// Ports
const (
	PortUART1 PortID = 1
	PortUSB   PortID = 3
)

// InProto is a bitmask of protocols accepted on a port.
type InProto uint16

// Input protocols
const (
	InUBX   InProto = 0x01
	InNMEA  InProto = 0x02
	InRTCM  InProto = 0x04
	InRTCM3 InProto = 0x20
	InAll   InProto = InUBX | InNMEA | InRTCM | InRTCM3
)

// OutProto is a bitmask of protocols emitted on a port.
type OutProto uint16

// Output protocols
const (
	OutUBX  OutProto = 0x01
	OutNMEA OutProto = 0x02
	OutAll  OutProto = OutUBX | OutNMEA
)

// Baud is a supported UART baud rate.
type Baud uint32

// Supported baud rates
const (
	Baud9600   Baud = 9600
	Baud19200  Baud = 19200
	Baud38400  Baud = 38400
	Baud57600  Baud = 57600
	Baud115200 Baud = 115200
	Baud230400 Baud = 230400
	Baud460800 Baud = 460800
	Baud921600 Baud = 921600
)

// Bauds lists the supported rates in ascending order.
var Bauds = []Baud{
	Baud9600, Baud19200, Baud38400, Baud57600,
	Baud115200, Baud230400, Baud460800, Baud921600,
}

// Valid reports whether b is one of the supported rates.
func (b Baud) Valid() bool {
	for _, v := range Bauds {
		if v == b {
			return true
		}
	}
	return false
}

// PortConfig is a PUBX,41 port configuration request.
type PortConfig struct {
	Port        PortID
	In          InProto
	Out         OutProto
	Baud        Baud
	Autobauding bool
}

// Sentence renders the request as "$PUBX,41,...*hh\r\n".
func (c PortConfig) Sentence() []byte {
	auto := "0"
	if c.Autobauding {
		auto = "1"
	}
	return Build("PUBX", PUBXConfig,
		strconv.Itoa(int(c.Port)),
		fmt.Sprintf("%04X", uint16(c.In)),
		fmt.Sprintf("%04X", uint16(c.Out)),
		strconv.FormatUint(uint64(c.Baud), 10),
		auto,
	)
}

// Rate is a PUBX,40 per-port output rate for one standard sentence.
// A rate of n emits the sentence once every n navigation solutions; 0
// disables it.
type Rate struct {
	Msg   Message
	DDC   uint8
	UART1 uint8
	UART2 uint8
	USB   uint8
	SPI   uint8
}

// Sentence renders the request as "$PUBX,40,...*hh\r\n".
func (r Rate) Sentence() ([]byte, error) {
	f := r.Msg.Formatter()
	if f == "" {
		return nil, fmt.Errorf("nmea: no output rate for %v", r.Msg)
	}
	return Build("PUBX", PUBXRate, f,
		strconv.Itoa(int(r.DDC)),
		strconv.Itoa(int(r.UART1)),
		strconv.Itoa(int(r.UART2)),
		strconv.Itoa(int(r.USB)),
		strconv.Itoa(int(r.SPI)),
		"0",
	), nil
}

// DefaultOutputs are the sentences a receiver emits out of the box.
var DefaultOutputs = []Message{MsgGGA, MsgGLL, MsgGSA, MsgGSV, MsgRMC, MsgVTG, MsgTXT}

// ParseMessage looks up a standard formatter by its three-letter code.
func ParseMessage(formatter string) (Message, bool) {
	m, ok := formatters[formatter]
	return m, ok
}
