package gb

// Unknown is the label reported for codes missing from the lookup tables.
const Unknown = "Unknown"

// $0147
var cartridgeTypes = map[byte]string{
	0x00: "ROM ONLY",
	0x01: "ROM+MBC1",
	0x02: "ROM+MBC1+RAM",
	0x03: "ROM+MBC1+RAM+BATT",
	0x05: "ROM+MBC2",
	0x06: "ROM+MBC2+BATTERY",
	0x08: "ROM+RAM",
	0x09: "ROM+RAM+BATTERY",
	0x0B: "ROM+MMM01",
	0x0C: "ROM+MMM01+SRAM",
	0x0D: "ROM+MMM01+SRAM+BATT",
	0x0F: "ROM+MBC3+TIMER+BATT",
	0x10: "ROM+MBC3+TIMER+RAM+BATT",
	0x11: "ROM+MBC3",
	0x12: "ROM+MBC3+RAM",
	0x13: "ROM+MBC3+RAM+BATT",
	0x19: "ROM+MBC5",
	0x1A: "ROM+MBC5+RAM",
	0x1B: "ROM+MBC5+RAM+BATT",
	0x1C: "ROM+MBC5+RUMBLE",
	0x1D: "ROM+MBC5+RUMBLE+SRAM",
	0x1E: "ROM+MBC5+RUMBLE+SRAM+BATT",
	0x20: "ROM+MBC6",
	0x22: "ROM+MBC7+SENSOR+RUMBLE+RAM+BATTERY",
	0xFC: "Pocket Camera",
	0xFD: "Bandai TAMA5",
	0xFE: "Hudson HuC-3",
	0xFF: "Hudson HuC-1",
}

// $0148
var romSizes = map[byte]string{
	0x00: "32 kbytes",
	0x01: "64 kbytes",
	0x02: "128 kbytes",
	0x03: "256 kbytes",
	0x04: "512 kbytes",
	0x05: "1 Mbytes",
	0x06: "2 Mbytes",
	0x07: "4 Mbytes",
	0x08: "8 Mbytes",
	0x52: "1.152 Mbytes",
	0x53: "1.28 Mbytes",
	0x54: "1.536 Mbytes",
}

// $0149
var ramSizes = map[byte]string{
	0x00: "None",
	0x01: "2 kbytes",
	0x02: "8 kbytes",
	0x03: "32 kbytes",
	0x04: "128 kbytes",
	0x05: "64 kbytes",
}

func lookup(table map[byte]string, code byte) string {
	if name, ok := table[code]; ok {
		return name
	}
	return Unknown
}

func CartridgeTypeName(code byte) string { return lookup(cartridgeTypes, code) }
func ROMSizeName(code byte) string       { return lookup(romSizes, code) }
func RAMSizeName(code byte) string       { return lookup(ramSizes, code) }
