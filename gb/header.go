package gb

import (
	"bytes"
	"strings"
)

// HeaderOffset is the cartridge address of the first header byte.
const HeaderOffset = 0x0100

// HeaderSize is the length of the header window sent by the device, $0100-$014F.
const HeaderSize = 0x50

// offsets relative to HeaderOffset:
const (
	offLogo          = 0x04
	offTitle         = 0x34
	offManufacturer  = 0x42
	offCGBFlag       = 0x43
	offCartridgeType = 0x47
	offROMSize       = 0x48
	offRAMSize       = 0x49
	offChecksum      = 0x4D
)

// Logo is the boot logo bitmap every licensed cartridge carries at $0104-$0133.
var Logo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E, 0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// characters that cannot appear in a file name on common file systems:
const disallowed = "\"*/:<>?\\"

// Header is a snapshot of the cartridge header window.
type Header struct {
	Raw [HeaderSize]byte

	Title            string
	LogoOK           bool
	HeaderChecksumOK bool

	CartridgeTypeCode byte
	ROMSizeCode       byte
	RAMSizeCode       byte

	CartridgeType string
	ROMSize       string
	RAMSize       string

	// number of header bytes actually received
	Received int
}

// Parse interprets the header window. Blocks shorter than HeaderSize are zero padded;
// nothing in the header is treated as an error.
func Parse(block []byte) *Header {
	h := &Header{}
	h.Received = copy(h.Raw[:], block)

	raw := h.Raw[:]
	h.LogoOK = bytes.Equal(raw[offLogo:offLogo+len(Logo)], Logo[:])
	h.Title = SanitizeTitle(raw[offTitle : offTitle+TitleLength(raw)])
	h.HeaderChecksumOK = checksum(raw) == raw[offChecksum]

	h.CartridgeTypeCode = raw[offCartridgeType]
	h.ROMSizeCode = raw[offROMSize]
	h.RAMSizeCode = raw[offRAMSize]
	h.CartridgeType = CartridgeTypeName(h.CartridgeTypeCode)
	h.ROMSize = ROMSizeName(h.ROMSizeCode)
	h.RAMSize = RAMSizeName(h.RAMSizeCode)

	return h
}

// Complete reports whether the whole header window was received.
func (h *Header) Complete() bool {
	return h.Received == HeaderSize
}

// TitleLength returns how many bytes of the title field hold the title. Color-compatible
// cartridges use $0143 as a flag and may store a manufacturer code in $013F-$0142.
func TitleLength(raw []byte) int {
	if raw[offCGBFlag] < 0x80 {
		return 16
	}
	if raw[offManufacturer] != 0x00 {
		return 11
	}
	return 15
}

// SanitizeTitle turns raw title bytes into a string usable as a file name.
func SanitizeTitle(raw []byte) string {
	title := make([]byte, len(raw))
	copy(title, raw)

	for i, c := range title {
		if c == 0x00 {
			title[i] = ' '
		} else if c < 0x20 || c > 0x7A {
			title[i] = '_'
		}
		// checked against the original byte, so a byte already replaced above may be replaced again:
		if strings.IndexByte(disallowed, c) >= 0 {
			title[i] = '_'
		}
	}

	return strings.TrimRight(string(title), " \t\r\n\v\f")
}

// header checksum over $0134-$014C:
func checksum(raw []byte) byte {
	var sum byte
	for _, c := range raw[offTitle:offChecksum] {
		sum = sum - c - 1
	}
	return sum
}
