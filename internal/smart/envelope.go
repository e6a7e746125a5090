package smart

import (
	"encoding/binary"
	"strings"
)

// Envelope sizes. All layouts are packed and little-endian.
const (
	registersSize       = 8
	commandSize         = 4 + registersSize + 1 + 20
	driverStatusSize    = 12
	resultHeaderSize    = 4 + driverStatusSize
	recordSize          = 12
	MaxAttributes       = 512
	attributeResultSize = resultHeaderSize + 2 + MaxAttributes*recordSize
	thresholdResultSize = attributeResultSize
	identifySize        = 512
	identifyResultSize  = resultHeaderSize + identifySize
	statusResultSize    = resultHeaderSize + registersSize
	versionSize         = 4 + 4 + 4*4
	sectorSize          = 512
	attributeTableSize  = 2 + 30*recordSize
)

// Offsets of the identify strings within the identify sector
const (
	serialOffset   = 20
	serialSize     = 20
	firmwareOffset = 46
	firmwareSize   = 8
	modelOffset    = 54
	modelSize      = 40
)

// CommandBlockRegisters is the ATA task file sent with a command
type CommandBlockRegisters struct {
	Features    byte
	SectorCount byte
	LBALow      byte
	LBAMid      byte
	LBAHigh     byte
	Device      byte
	Command     byte
	Reserved    byte
}

func (r CommandBlockRegisters) put(b []byte) {
	b[0], b[1], b[2], b[3] = r.Features, r.SectorCount, r.LBALow, r.LBAMid
	b[4], b[5], b[6], b[7] = r.LBAHigh, r.Device, r.Command, r.Reserved
}

func decodeRegisters(b []byte) CommandBlockRegisters {
	return CommandBlockRegisters{
		Features: b[0], SectorCount: b[1], LBALow: b[2], LBAMid: b[3],
		LBAHigh: b[4], Device: b[5], Command: b[6], Reserved: b[7],
	}
}

// CommandParameter is the request envelope of SendDriveCommand and ReceiveDriveData
type CommandParameter struct {
	BufferSize  uint32
	Registers   CommandBlockRegisters
	DriveNumber byte
}

func encodeCommand(p CommandParameter) []byte {
	b := make([]byte, commandSize)
	binary.LittleEndian.PutUint32(b[0:4], p.BufferSize)
	p.Registers.put(b[4:12])
	b[12] = p.DriveNumber
	return b
}

// DecodeCommand parses a request envelope; ok is false when it is too short
func DecodeCommand(b []byte) (CommandParameter, bool) {
	if len(b) < commandSize {
		return CommandParameter{}, false
	}
	return CommandParameter{
		BufferSize:  binary.LittleEndian.Uint32(b[0:4]),
		Registers:   decodeRegisters(b[4:12]),
		DriveNumber: b[12],
	}, true
}

// DriverStatus carries the error codes the driver attaches to every result
type DriverStatus struct {
	DriverError byte
	IDEError    byte
}

func decodeDriverStatus(response []byte) DriverStatus {
	return DriverStatus{DriverError: response[4], IDEError: response[5]}
}

// NewResult builds a response envelope of the given size around payload
func NewResult(size int, status DriverStatus, payload []byte) []byte {
	b := make([]byte, size)
	binary.LittleEndian.PutUint32(b[0:4], uint32(size-resultHeaderSize))
	b[4], b[5] = status.DriverError, status.IDEError
	copy(b[resultHeaderSize:], payload)
	return b
}

// AttributeValue is one row of the SMART attribute table
type AttributeValue struct {
	ID       byte    `json:"id"`
	Flags    uint16  `json:"flags"`
	Value    byte    `json:"value"`
	Worst    byte    `json:"worst"`
	Raw      [6]byte `json:"raw"`
	Reserved byte    `json:"-"`
}

// RawValue interprets the vendor bytes as a little-endian 48-bit counter
func (a AttributeValue) RawValue() uint64 {
	var v uint64
	for i := len(a.Raw) - 1; i >= 0; i-- {
		v = v<<8 | uint64(a.Raw[i])
	}
	return v
}

func (a AttributeValue) put(b []byte) {
	b[0] = a.ID
	binary.LittleEndian.PutUint16(b[1:3], a.Flags)
	b[3], b[4] = a.Value, a.Worst
	copy(b[5:11], a.Raw[:])
	b[11] = a.Reserved
}

// ThresholdValue is one row of the SMART threshold table
type ThresholdValue struct {
	ID        byte     `json:"id"`
	Threshold byte     `json:"threshold"`
	Unknown   [10]byte `json:"-"`
}

func (t ThresholdValue) put(b []byte) {
	b[0], b[1] = t.ID, t.Threshold
	copy(b[2:12], t.Unknown[:])
}

// decodeAttributes walks the record slots after the two-byte revision,
// skipping unused slots.
func decodeAttributes(payload []byte) []AttributeValue {
	var out []AttributeValue
	for off := 2; off+recordSize <= len(payload); off += recordSize {
		r := payload[off : off+recordSize]
		if r[0] == 0 {
			continue
		}
		a := AttributeValue{
			ID:       r[0],
			Flags:    binary.LittleEndian.Uint16(r[1:3]),
			Value:    r[3],
			Worst:    r[4],
			Reserved: r[11],
		}
		copy(a.Raw[:], r[5:11])
		out = append(out, a)
	}
	return out
}

func decodeThresholds(payload []byte) []ThresholdValue {
	var out []ThresholdValue
	for off := 2; off+recordSize <= len(payload); off += recordSize {
		r := payload[off : off+recordSize]
		if r[0] == 0 {
			continue
		}
		t := ThresholdValue{ID: r[0], Threshold: r[1]}
		copy(t.Unknown[:], r[2:12])
		out = append(out, t)
	}
	return out
}

// EncodeAttributes lays out an attribute table payload as the drive returns it
func EncodeAttributes(revision uint16, attrs []AttributeValue) []byte {
	b := make([]byte, attributeResultSize-resultHeaderSize)
	binary.LittleEndian.PutUint16(b[0:2], revision)
	for i, a := range attrs {
		a.put(b[2+i*recordSize:])
	}
	return b
}

// EncodeThresholds lays out a threshold table payload as the drive returns it
func EncodeThresholds(revision uint16, thresholds []ThresholdValue) []byte {
	b := make([]byte, thresholdResultSize-resultHeaderSize)
	binary.LittleEndian.PutUint16(b[0:2], revision)
	for i, t := range thresholds {
		t.put(b[2+i*recordSize:])
	}
	return b
}

// Identify holds the strings of the identify sector
type Identify struct {
	Model    string `json:"model"`
	Serial   string `json:"serial"`
	Firmware string `json:"firmware"`
}

func decodeIdentify(payload []byte) Identify {
	return Identify{
		Model:    DecodeATAString(payload[modelOffset : modelOffset+modelSize]),
		Serial:   DecodeATAString(payload[serialOffset : serialOffset+serialSize]),
		Firmware: DecodeATAString(payload[firmwareOffset : firmwareOffset+firmwareSize]),
	}
}

// DecodeATAString decodes an identify string. ATA stores text as 16-bit words
// with the first character in the high byte, so each byte pair is swapped
// before trimming space and NUL padding.
func DecodeATAString(b []byte) string {
	runes := make([]rune, len(b))
	for i := 0; i+1 < len(b); i += 2 {
		runes[i] = rune(b[i+1])
		runes[i+1] = rune(b[i])
	}
	if len(b)%2 == 1 {
		runes[len(b)-1] = rune(b[len(b)-1])
	}
	return strings.Trim(string(runes), " \x00")
}

// EncodeATAString is the inverse of DecodeATAString for a field of size bytes
func EncodeATAString(s string, size int) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
	for i := 0; i+1 < size; i += 2 {
		b[i], b[i+1] = b[i+1], b[i]
	}
	return b
}

// EncodeIdentify lays out an identify sector carrying the given strings
func EncodeIdentify(id Identify) []byte {
	b := make([]byte, identifySize)
	copy(b[modelOffset:], EncodeATAString(id.Model, modelSize))
	copy(b[serialOffset:], EncodeATAString(id.Serial, serialSize))
	copy(b[firmwareOffset:], EncodeATAString(id.Firmware, firmwareSize))
	return b
}

// Version is the pass-through driver version block
type Version struct {
	Version      byte   `json:"version"`
	Revision     byte   `json:"revision"`
	IDEDeviceMap byte   `json:"ide_device_map"`
	Capabilities uint32 `json:"capabilities"`
}

func decodeVersion(b []byte) Version {
	return Version{
		Version:      b[0],
		Revision:     b[1],
		IDEDeviceMap: b[3],
		Capabilities: binary.LittleEndian.Uint32(b[4:8]),
	}
}

// EncodeVersion lays out a version block
func EncodeVersion(v Version) []byte {
	b := make([]byte, versionSize)
	b[0], b[1], b[3] = v.Version, v.Revision, v.IDEDeviceMap
	binary.LittleEndian.PutUint32(b[4:8], v.Capabilities)
	return b
}
