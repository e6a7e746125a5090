package smart

import "fmt"

// Attribute identifiers with special meaning to the drive view
const (
	AirflowTemperature byte = 0xBE
	Temperature        byte = 0xC2
)

var attributeNames = map[byte]string{
	0x01: "Read Error Rate",
	0x02: "Throughput Performance",
	0x03: "Spin-Up Time",
	0x04: "Start/Stop Count",
	0x05: "Reallocated Sectors Count",
	0x06: "Read Channel Margin",
	0x07: "Seek Error Rate",
	0x08: "Seek Time Performance",
	0x09: "Power-On Hours",
	0x0A: "Spin Retry Count",
	0x0B: "Recalibration Retries",
	0x0C: "Power Cycle Count",
	0x0D: "Soft Read Error Rate",
	0xAA: "Available Reserved Space",
	0xAB: "Program Fail Count",
	0xAC: "Erase Fail Count",
	0xAE: "Unexpected Power Loss Count",
	0xB1: "Wear Range Delta",
	0xB3: "Used Reserved Block Count Total",
	0xB4: "Unused Reserved Block Count Total",
	0xB5: "Program Fail Count Total",
	0xB6: "Erase Fail Count",
	0xB7: "SATA Downshift Error Count",
	0xB8: "End-to-End Error",
	0xBB: "Reported Uncorrectable Errors",
	0xBC: "Command Timeout",
	0xBD: "High Fly Writes",
	0xBE: "Airflow Temperature",
	0xBF: "G-Sense Error Rate",
	0xC0: "Power-Off Retract Count",
	0xC1: "Load/Unload Cycle Count",
	0xC2: "Temperature",
	0xC3: "Hardware ECC Recovered",
	0xC4: "Reallocation Event Count",
	0xC5: "Current Pending Sector Count",
	0xC6: "Uncorrectable Sector Count",
	0xC7: "UltraDMA CRC Error Count",
	0xC8: "Write Error Rate",
	0xC9: "Soft Read Error Rate",
	0xE8: "Available Reserved Space",
	0xE9: "Media Wearout Indicator",
	0xF1: "Total LBAs Written",
	0xF2: "Total LBAs Read",
}

// AttributeName returns the conventional name of an attribute identifier
func AttributeName(id byte) string {
	if name, ok := attributeNames[id]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (0x%02X)", id)
}
