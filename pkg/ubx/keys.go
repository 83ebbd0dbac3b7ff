// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ubx

import (
	"strconv"
	"strings"
)

// Antenna supervisor configuration
var (
	CfgHwAntCfgVoltCtrl    = KeyIDFromKey(0x10A3002E)
	CfgHwAntCfgShortDet    = KeyIDFromKey(0x10A3002F)
	CfgHwAntCfgShortDetPol = KeyIDFromKey(0x10A30030)
	CfgHwAntCfgOpenDet     = KeyIDFromKey(0x10A30031)
	CfgHwAntCfgOpenDetPol  = KeyIDFromKey(0x10A30032)
	CfgHwAntCfgPwrDown     = KeyIDFromKey(0x10A30033)
	CfgHwAntCfgPwrDownPol  = KeyIDFromKey(0x10A30034)
	CfgHwAntCfgRecover     = KeyIDFromKey(0x10A30035)
	CfgHwAntSupSwitchPin   = KeyIDFromKey(0x20A30036)
	CfgHwAntSupShortPin    = KeyIDFromKey(0x20A30037)
	CfgHwAntSupOpenPin     = KeyIDFromKey(0x20A30038)
	CfgHwAntSupEngine      = KeyIDFromKey(0x20A30054)
	CfgHwAntSupShortThr    = KeyIDFromKey(0x20A30055)
	CfgHwAntSupOpenThr     = KeyIDFromKey(0x20A30056)
)

// NMEA protocol configuration
var (
	CfgNmeaProtVer      = KeyIDFromKey(0x20930001)
	CfgNmeaMaxSVs       = KeyIDFromKey(0x20930002)
	CfgNmeaCompat       = KeyIDFromKey(0x10930003)
	CfgNmeaConsider     = KeyIDFromKey(0x10930004)
	CfgNmeaLimit82      = KeyIDFromKey(0x10930005)
	CfgNmeaHighPrec     = KeyIDFromKey(0x10930006)
	CfgNmeaSVNumbering  = KeyIDFromKey(0x20930007)
	CfgNmeaFiltGPS      = KeyIDFromKey(0x10930011)
	CfgNmeaFiltSBAS     = KeyIDFromKey(0x10930012)
	CfgNmeaFiltGAL      = KeyIDFromKey(0x10930013)
	CfgNmeaFiltQZSS     = KeyIDFromKey(0x10930015)
	CfgNmeaFiltGLO      = KeyIDFromKey(0x10930016)
	CfgNmeaFiltBDS      = KeyIDFromKey(0x10930017)
	CfgNmeaOutInvFix    = KeyIDFromKey(0x10930021)
	CfgNmeaOutMskFix    = KeyIDFromKey(0x10930022)
	CfgNmeaOutInvTime   = KeyIDFromKey(0x10930023)
	CfgNmeaOutInvDate   = KeyIDFromKey(0x10930024)
	CfgNmeaOutOnlyGPS   = KeyIDFromKey(0x10930025)
	CfgNmeaOutFrozenCOG = KeyIDFromKey(0x10930026)
	CfgNmeaMainTalkerID = KeyIDFromKey(0x20930031)
	CfgNmeaGSVTalkerID  = KeyIDFromKey(0x20930032)
	CfgNmeaBDSTalkerID  = KeyIDFromKey(0x20930033)
)

// Navigation rate and UART1 port
var (
	CfgRateMeas         = KeyIDFromKey(0x30210001)
	CfgRateNav          = KeyIDFromKey(0x30210002)
	CfgUart1Baudrate    = KeyIDFromKey(0x40520001)
	CfgUart1InProtUBX   = KeyIDFromKey(0x10730001)
	CfgUart1InProtNMEA  = KeyIDFromKey(0x10730002)
	CfgUart1OutProtUBX  = KeyIDFromKey(0x10740001)
	CfgUart1OutProtNMEA = KeyIDFromKey(0x10740002)
)

var keyNames = map[uint32]string{
	CfgHwAntCfgVoltCtrl.Key():    "CFG-HW-ANT_CFG_VOLTCTRL",
	CfgHwAntCfgShortDet.Key():    "CFG-HW-ANT_CFG_SHORTDET",
	CfgHwAntCfgShortDetPol.Key(): "CFG-HW-ANT_CFG_SHORTDET_POL",
	CfgHwAntCfgOpenDet.Key():     "CFG-HW-ANT_CFG_OPENDET",
	CfgHwAntCfgOpenDetPol.Key():  "CFG-HW-ANT_CFG_OPENDET_POL",
	CfgHwAntCfgPwrDown.Key():     "CFG-HW-ANT_CFG_PWRDOWN",
	CfgHwAntCfgPwrDownPol.Key():  "CFG-HW-ANT_CFG_PWRDOWN_POL",
	CfgHwAntCfgRecover.Key():     "CFG-HW-ANT_CFG_RECOVER",
	CfgHwAntSupSwitchPin.Key():   "CFG-HW-ANT_SUP_SWITCH_PIN",
	CfgHwAntSupShortPin.Key():    "CFG-HW-ANT_SUP_SHORT_PIN",
	CfgHwAntSupOpenPin.Key():     "CFG-HW-ANT_SUP_OPEN_PIN",
	CfgHwAntSupEngine.Key():      "CFG-HW-ANT_SUP_ENGINE",
	CfgHwAntSupShortThr.Key():    "CFG-HW-ANT_SUP_SHORT_THR",
	CfgHwAntSupOpenThr.Key():     "CFG-HW-ANT_SUP_OPEN_THR",

	CfgNmeaProtVer.Key():      "CFG-NMEA-PROTVER",
	CfgNmeaMaxSVs.Key():       "CFG-NMEA-MAXSVS",
	CfgNmeaCompat.Key():       "CFG-NMEA-COMPAT",
	CfgNmeaConsider.Key():     "CFG-NMEA-CONSIDER",
	CfgNmeaLimit82.Key():      "CFG-NMEA-LIMIT82",
	CfgNmeaHighPrec.Key():     "CFG-NMEA-HIGHPREC",
	CfgNmeaSVNumbering.Key():  "CFG-NMEA-SVNUMBERING",
	CfgNmeaFiltGPS.Key():      "CFG-NMEA-FILT_GPS",
	CfgNmeaFiltSBAS.Key():     "CFG-NMEA-FILT_SBAS",
	CfgNmeaFiltGAL.Key():      "CFG-NMEA-FILT_GAL",
	CfgNmeaFiltQZSS.Key():     "CFG-NMEA-FILT_QZSS",
	CfgNmeaFiltGLO.Key():      "CFG-NMEA-FILT_GLO",
	CfgNmeaFiltBDS.Key():      "CFG-NMEA-FILT_BDS",
	CfgNmeaOutInvFix.Key():    "CFG-NMEA-OUT_INVFIX",
	CfgNmeaOutMskFix.Key():    "CFG-NMEA-OUT_MSKFIX",
	CfgNmeaOutInvTime.Key():   "CFG-NMEA-OUT_INVTIME",
	CfgNmeaOutInvDate.Key():   "CFG-NMEA-OUT_INVDATE",
	CfgNmeaOutOnlyGPS.Key():   "CFG-NMEA-OUT_ONLYGPS",
	CfgNmeaOutFrozenCOG.Key(): "CFG-NMEA-OUT_FROZENCOG",
	CfgNmeaMainTalkerID.Key(): "CFG-NMEA-MAINTALKERID",
	CfgNmeaGSVTalkerID.Key():  "CFG-NMEA-GSVTALKERID",
	CfgNmeaBDSTalkerID.Key():  "CFG-NMEA-BDSTALKERID",

	CfgRateMeas.Key():         "CFG-RATE-MEAS",
	CfgRateNav.Key():          "CFG-RATE-NAV",
	CfgUart1Baudrate.Key():    "CFG-UART1-BAUDRATE",
	CfgUart1InProtUBX.Key():   "CFG-UART1INPROT-UBX",
	CfgUart1InProtNMEA.Key():  "CFG-UART1INPROT-NMEA",
	CfgUart1OutProtUBX.Key():  "CFG-UART1OUTPROT-UBX",
	CfgUart1OutProtNMEA.Key(): "CFG-UART1OUTPROT-NMEA",
}

// LookupKey resolves a key by catalogue name ("CFG-RATE-MEAS", case
// insensitive, '_' and '-' interchangeable) or by hex ("0x30210001").
func LookupKey(name string) (KeyID, bool) {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "0x") || strings.HasPrefix(name, "0X") {
		v, err := strconv.ParseUint(name[2:], 16, 32)
		if err != nil {
			return KeyID{}, false
		}
		k := KeyIDFromKey(uint32(v))
		if k.Size.Bytes() == 0 {
			return KeyID{}, false
		}
		return k, true
	}
	want := normalizeKeyName(name)
	for key, n := range keyNames {
		if normalizeKeyName(n) == want {
			return KeyIDFromKey(key), true
		}
	}
	return KeyID{}, false
}

func normalizeKeyName(s string) string {
	return strings.ReplaceAll(strings.ToUpper(s), "_", "-")
}

// DefaultKind returns the unsigned kind of the key's storage class
// (KindBool for bits).
func DefaultKind(k KeyID) Kind {
	switch k.Size {
	case SizeBit:
		return KindBool
	case SizeByte:
		return KindU1
	case SizeWord:
		return KindU2
	case SizeDouble:
		return KindU4
	case SizeQuad:
		return KindU8
	}
	return 0
}
