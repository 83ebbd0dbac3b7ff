// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ubx

import "fmt"

// MessageID is a class/id pair packed as class<<8 | id.
type MessageID uint16

// NewMessageID packs a class and id.
func NewMessageID(class, id uint8) MessageID {
	return MessageID(uint16(class)<<8 | uint16(id))
}

// Class returns the message class.
func (m MessageID) Class() uint8 { return uint8(m >> 8) }

// ID returns the message id within its class.
func (m MessageID) ID() uint8 { return uint8(m) }

// String returns the catalogue name ("ACK-ACK") or "0xCC-0xII".
func (m MessageID) String() string {
	if name, ok := messageNames[m]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X-0x%02X", m.Class(), m.ID())
}

// Known reports whether the pair is in the catalogue.
func (m MessageID) Known() bool {
	_, ok := messageNames[m]
	return ok
}

// ACK
var (
	AckNak = NewMessageID(ClassACK, 0x00)
	AckAck = NewMessageID(ClassACK, 0x01)
)

// CFG
var (
	CfgRst    = NewMessageID(ClassCFG, 0x04)
	CfgRxm    = NewMessageID(ClassCFG, 0x11)
	CfgValSet = NewMessageID(ClassCFG, 0x8A)
	CfgValGet = NewMessageID(ClassCFG, 0x8B)
	CfgValDel = NewMessageID(ClassCFG, 0x8C)
)

// SEC and UPD
var (
	SecUniqID = NewMessageID(ClassSEC, 0x03)
	UpdSos    = NewMessageID(ClassUPD, 0x14)
)

// NAV
var (
	NavPosECEF  = NewMessageID(ClassNAV, 0x01)
	NavPosLLH   = NewMessageID(ClassNAV, 0x02)
	NavStatus   = NewMessageID(ClassNAV, 0x03)
	NavDOP      = NewMessageID(ClassNAV, 0x04)
	NavPVT      = NewMessageID(ClassNAV, 0x07)
	NavODO      = NewMessageID(ClassNAV, 0x09)
	NavResetODO = NewMessageID(ClassNAV, 0x10)
	NavVelECEF  = NewMessageID(ClassNAV, 0x11)
	NavVelNED   = NewMessageID(ClassNAV, 0x12)
	NavTimeGPS  = NewMessageID(ClassNAV, 0x20)
	NavTimeUTC  = NewMessageID(ClassNAV, 0x21)
	NavClock    = NewMessageID(ClassNAV, 0x22)
	NavTimeGLO  = NewMessageID(ClassNAV, 0x23)
	NavTimeBDS  = NewMessageID(ClassNAV, 0x24)
	NavTimeGAL  = NewMessageID(ClassNAV, 0x25)
	NavTimeLS   = NewMessageID(ClassNAV, 0x26)
	NavTimeQZSS = NewMessageID(ClassNAV, 0x27)
	NavOrb      = NewMessageID(ClassNAV, 0x34)
	NavSat      = NewMessageID(ClassNAV, 0x35)
	NavCov      = NewMessageID(ClassNAV, 0x36)
	NavGeofence = NewMessageID(ClassNAV, 0x39)
	NavSig      = NewMessageID(ClassNAV, 0x43)
	NavEOE      = NewMessageID(ClassNAV, 0x61)
)

// MON
var (
	MonIO    = NewMessageID(ClassMON, 0x02)
	MonVer   = NewMessageID(ClassMON, 0x04)
	MonMsgPP = NewMessageID(ClassMON, 0x06)
	MonRxBuf = NewMessageID(ClassMON, 0x07)
	MonTxBuf = NewMessageID(ClassMON, 0x08)
	MonHW    = NewMessageID(ClassMON, 0x09)
	MonHW2   = NewMessageID(ClassMON, 0x0B)
	MonRxR   = NewMessageID(ClassMON, 0x21)
	MonPatch = NewMessageID(ClassMON, 0x27)
	MonGNSS  = NewMessageID(ClassMON, 0x28)
	MonSpan  = NewMessageID(ClassMON, 0x31)
	MonBatch = NewMessageID(ClassMON, 0x32)
	MonComms = NewMessageID(ClassMON, 0x36)
	MonHW3   = NewMessageID(ClassMON, 0x37)
	MonRF    = NewMessageID(ClassMON, 0x38)
)

// INF
var (
	InfError   = NewMessageID(ClassINF, 0x00)
	InfWarning = NewMessageID(ClassINF, 0x01)
	InfNotice  = NewMessageID(ClassINF, 0x02)
	InfTest    = NewMessageID(ClassINF, 0x03)
	InfDebug   = NewMessageID(ClassINF, 0x04)
)

// LOG
var (
	LogErase            = NewMessageID(ClassLOG, 0x03)
	LogString           = NewMessageID(ClassLOG, 0x04)
	LogCreate           = NewMessageID(ClassLOG, 0x07)
	LogInfo             = NewMessageID(ClassLOG, 0x08)
	LogRetrieve         = NewMessageID(ClassLOG, 0x09)
	LogRetrievePos      = NewMessageID(ClassLOG, 0x0B)
	LogRetrieveString   = NewMessageID(ClassLOG, 0x0D)
	LogFindTime         = NewMessageID(ClassLOG, 0x0E)
	LogRetrievePosExtra = NewMessageID(ClassLOG, 0x0F)
	LogRetrieveBatch    = NewMessageID(ClassLOG, 0x10)
	LogBatch            = NewMessageID(ClassLOG, 0x11)
)

// MGA
var (
	MgaGPS  = NewMessageID(ClassMGA, 0x00)
	MgaGAL  = NewMessageID(ClassMGA, 0x02)
	MgaBDS  = NewMessageID(ClassMGA, 0x03)
	MgaQZSS = NewMessageID(ClassMGA, 0x05)
	MgaGLO  = NewMessageID(ClassMGA, 0x06)
	MgaANO  = NewMessageID(ClassMGA, 0x20)
	MgaINI  = NewMessageID(ClassMGA, 0x40)
	MgaACK  = NewMessageID(ClassMGA, 0x60)
	MgaDBD  = NewMessageID(ClassMGA, 0x80)
)

// RXM
var (
	RxmSFRBX = NewMessageID(ClassRXM, 0x13)
	RxmMeasX = NewMessageID(ClassRXM, 0x14)
	RxmRTCM  = NewMessageID(ClassRXM, 0x32)
	RxmPMReq = NewMessageID(ClassRXM, 0x41)
	RxmRLM   = NewMessageID(ClassRXM, 0x59)
)

// TIM
var (
	TimTP   = NewMessageID(ClassTIM, 0x01)
	TimTM2  = NewMessageID(ClassTIM, 0x03)
	TimVRFY = NewMessageID(ClassTIM, 0x06)
)

var messageNames = map[MessageID]string{
	AckNak: "ACK-NAK", AckAck: "ACK-ACK",

	CfgRst: "CFG-RST", CfgRxm: "CFG-RXM",
	CfgValSet: "CFG-VALSET", CfgValGet: "CFG-VALGET", CfgValDel: "CFG-VALDEL",

	SecUniqID: "SEC-UNIQID", UpdSos: "UPD-SOS",

	NavPosECEF: "NAV-POSECEF", NavPosLLH: "NAV-POSLLH", NavStatus: "NAV-STATUS",
	NavDOP: "NAV-DOP", NavPVT: "NAV-PVT", NavODO: "NAV-ODO",
	NavResetODO: "NAV-RESETODO", NavVelECEF: "NAV-VELECEF", NavVelNED: "NAV-VELNED",
	NavTimeGPS: "NAV-TIMEGPS", NavTimeUTC: "NAV-TIMEUTC", NavClock: "NAV-CLOCK",
	NavTimeGLO: "NAV-TIMEGLO", NavTimeBDS: "NAV-TIMEBDS", NavTimeGAL: "NAV-TIMEGAL",
	NavTimeLS: "NAV-TIMELS", NavTimeQZSS: "NAV-TIMEQZSS", NavOrb: "NAV-ORB",
	NavSat: "NAV-SAT", NavCov: "NAV-COV", NavGeofence: "NAV-GEOFENCE",
	NavSig: "NAV-SIG", NavEOE: "NAV-EOE",

	MonIO: "MON-IO", MonVer: "MON-VER", MonMsgPP: "MON-MSGPP", MonRxBuf: "MON-RXBUF",
	MonTxBuf: "MON-TXBUF", MonHW: "MON-HW", MonHW2: "MON-HW2", MonRxR: "MON-RXR",
	MonPatch: "MON-PATCH", MonGNSS: "MON-GNSS", MonSpan: "MON-SPAN",
	MonBatch: "MON-BATCH", MonComms: "MON-COMMS", MonHW3: "MON-HW3", MonRF: "MON-RF",

	InfError: "INF-ERROR", InfWarning: "INF-WARNING", InfNotice: "INF-NOTICE",
	InfTest: "INF-TEST", InfDebug: "INF-DEBUG",

	LogErase: "LOG-ERASE", LogString: "LOG-STRING", LogCreate: "LOG-CREATE",
	LogInfo: "LOG-INFO", LogRetrieve: "LOG-RETRIEVE", LogRetrievePos: "LOG-RETRIEVEPOS",
	LogRetrieveString: "LOG-RETRIEVESTRING", LogFindTime: "LOG-FINDTIME",
	LogRetrievePosExtra: "LOG-RETRIEVEPOSEXTRA", LogRetrieveBatch: "LOG-RETRIEVEBATCH",
	LogBatch: "LOG-BATCH",

	MgaGPS: "MGA-GPS", MgaGAL: "MGA-GAL", MgaBDS: "MGA-BDS", MgaQZSS: "MGA-QZSS",
	MgaGLO: "MGA-GLO", MgaANO: "MGA-ANO", MgaINI: "MGA-INI", MgaACK: "MGA-ACK",
	MgaDBD: "MGA-DBD",

	RxmSFRBX: "RXM-SFRBX", RxmMeasX: "RXM-MEASX", RxmRTCM: "RXM-RTCM",
	RxmPMReq: "RXM-PMREQ", RxmRLM: "RXM-RLM",

	TimTP: "TIM-TP", TimTM2: "TIM-TM2", TimVRFY: "TIM-VRFY",
}

// LookupMessage finds a catalogue entry by name ("NAV-PVT").
func LookupMessage(name string) (MessageID, bool) {
	for id, n := range messageNames {
		if n == name {
			return id, true
		}
	}
	return 0, false
}
