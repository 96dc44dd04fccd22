package scanner

import "strings"

// Vendor labels for addresses that carry no usable OUI.
const (
	VendorRandom  = "Random"
	VendorUnknown = "Unknown"
)

// Vendor resolves a device address to a manufacturer name from its OUI.
// BLE devices often advertise from random addresses; those are reported as
// VendorRandom. Identifiers that are not MAC addresses (macOS hands out
// UUIDs) resolve to VendorUnknown.
func Vendor(address string) string {
	first, ok := firstOctet(address)
	if !ok {
		return VendorUnknown
	}
	if first&0x02 != 0 {
		return VendorRandom
	}
	if v, ok := vendorPrefixes[strings.ToUpper(address[:8])]; ok {
		return v
	}
	return VendorUnknown
}

// firstOctet parses "AA" from "AA:BB:CC:..." and checks the colon layout
// of the prefix.
func firstOctet(address string) (byte, bool) {
	if len(address) < 8 || address[2] != ':' || address[5] != ':' {
		return 0, false
	}
	hi, ok1 := hexNibble(address[0])
	lo, ok2 := hexNibble(address[1])
	return hi<<4 | lo, ok1 && ok2
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// vendorPrefixes maps the first three octets to a manufacturer. The list
// favors makers of phones, wearables, audio and sensor hardware that
// advertise from public addresses.
var vendorPrefixes = map[string]string{
	// Apple
	"F0:18:98": "Apple",
	"A4:83:E7": "Apple",
	"AC:BC:32": "Apple",
	"38:C9:86": "Apple",
	"DC:A9:04": "Apple",
	"8C:85:90": "Apple",
	"78:7E:61": "Apple",

	// Samsung
	"B0:72:BF": "Samsung",
	"34:14:5F": "Samsung",
	"8C:77:12": "Samsung",
	"E4:92:FB": "Samsung",
	"5C:49:7D": "Samsung",
	"C0:BD:D1": "Samsung",

	// Google
	"3C:28:6D": "Google",
	"54:60:09": "Google",
	"F4:F5:D8": "Google",
	"A4:77:33": "Google",

	// Xiaomi
	"C8:0F:10": "Xiaomi",
	"04:CF:8C": "Xiaomi",
	"28:6C:07": "Xiaomi",
	"64:B4:73": "Xiaomi",
	"7C:1D:D9": "Xiaomi",

	// Telink (Xiaomi Mijia sensors)
	"A4:C1:38": "Telink",

	// Sony
	"AC:89:95": "Sony",
	"78:C8:81": "Sony",
	"F8:D0:AC": "Sony",

	// Audio
	"48:A6:B8": "Sonos",
	"5C:AA:FD": "Sonos",
	"94:9F:3E": "Sonos",
	"04:52:C7": "Bose",
	"2C:41:A1": "Bose",

	// Peripherals
	"D4:C9:EF": "Logitech",
	"7C:1E:52": "Microsoft",
	"28:18:78": "Microsoft",

	// Dev boards and sensor radios
	"24:0A:C4": "Espressif",
	"24:62:AB": "Espressif",
	"30:AE:A4": "Espressif",
	"A4:CF:12": "Espressif",
	"B8:27:EB": "Raspberry Pi",
	"DC:A6:32": "Raspberry Pi",
	"E4:5F:01": "Raspberry Pi",
	"00:12:4B": "Texas Instruments",
}
