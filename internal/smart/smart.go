// Package smart talks to ATA drives through the platform's SMART pass-through
// device control. Every operation is one request/response round trip; failures
// come back as empty results, never as errors.
package smart

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrUnsupported is returned when the platform has no SMART pass-through
var ErrUnsupported = errors.New("smart: drive pass-through not supported on this platform")

// Handle is an open drive device
type Handle uintptr

// InvalidHandle is returned by Open when the drive cannot be opened
const InvalidHandle = ^Handle(0)

// ControlCode selects the pass-through operation
type ControlCode uint32

const (
	GetVersion       ControlCode = 0x00074080
	SendDriveCommand ControlCode = 0x0007C084
	ReceiveDriveData ControlCode = 0x0007C088
)

// Command is the ATA command register value
type Command byte

const (
	SMARTCommand    Command = 0xB0
	IdentifyCommand Command = 0xEC
)

// Feature selects the SMART sub-command
type Feature byte

const (
	ReadData          Feature = 0xD0
	ReadThresholds    Feature = 0xD1
	Autosave          Feature = 0xD2
	SaveAttributes    Feature = 0xD3
	ImmediateOffline  Feature = 0xD4
	ReadLog           Feature = 0xD5
	WriteLog          Feature = 0xD6
	WriteThresholds   Feature = 0xD7
	EnableOperations  Feature = 0xD8
	DisableOperations Feature = 0xD9
	ReturnStatus      Feature = 0xDA
	AutoOffline       Feature = 0xDB
)

// Signature register values marking a command as SMART
const (
	SignatureLBAMid  byte = 0x4F
	SignatureLBAHigh byte = 0xC2
)

// Register values the drive returns from ReturnStatus when a threshold is exceeded
const (
	thresholdExceededLBAMid  byte = 0xF4
	thresholdExceededLBAHigh byte = 0x2C
)

// DeviceControl is the privileged pass-through channel
type DeviceControl interface {
	// Open returns a handle to the drive or InvalidHandle
	Open(drive int) Handle
	// Control sends request under code and returns a response of exactly
	// responseSize bytes; ok is false when the driver rejects the call.
	Control(h Handle, code ControlCode, request []byte, responseSize int) (response []byte, ok bool)
	Close(h Handle)
}

// Client issues SMART commands over a DeviceControl
type Client struct {
	dev    DeviceControl
	logger zerolog.Logger
}

// NewClient creates a client on top of dev
func NewClient(dev DeviceControl, logger zerolog.Logger) *Client {
	return &Client{dev: dev, logger: logger.With().Str("component", "smart").Logger()}
}

// NewPlatformClient creates a client using the pass-through of the current platform
func NewPlatformClient(logger zerolog.Logger) (*Client, error) {
	dev, err := newPlatformDeviceControl()
	if err != nil {
		return nil, err
	}
	return NewClient(dev, logger), nil
}

// Open opens the drive with the given index
func (c *Client) Open(drive int) Handle {
	h := c.dev.Open(drive)
	if h == InvalidHandle {
		c.logger.Debug().Int("drive", drive).Msg("drive open failed")
	}
	return h
}

// Close releases a handle returned by Open
func (c *Client) Close(h Handle) {
	if h != InvalidHandle {
		c.dev.Close(h)
	}
}

func smartRegisters(feature Feature) CommandBlockRegisters {
	return CommandBlockRegisters{
		Features: byte(feature),
		LBAMid:   SignatureLBAMid,
		LBAHigh:  SignatureLBAHigh,
		Command:  byte(SMARTCommand),
	}
}

// roundTrip sends one command envelope and returns the response payload
// following the result header.
func (c *Client) roundTrip(h Handle, code ControlCode, regs CommandBlockRegisters, drive, responseSize int) ([]byte, bool) {
	// BufferSize counts the data the driver copies after the result header
	// (512 for a sector read), not the whole envelope. The output buffer
	// length passed to the control call carries the envelope size.
	request := encodeCommand(CommandParameter{
		BufferSize:  uint32(responseSize - resultHeaderSize),
		Registers:   regs,
		DriveNumber: byte(drive),
	})

	response, ok := c.dev.Control(h, code, request, responseSize)
	if !ok {
		c.logger.Trace().
			Int("drive", drive).
			Hex("features", []byte{regs.Features}).
			Hex("command", []byte{regs.Command}).
			Msg("device control failed")
		return nil, false
	}
	mustSize(code, response, responseSize)

	if status := decodeDriverStatus(response); status.DriverError != 0 || status.IDEError != 0 {
		c.logger.Trace().
			Int("drive", drive).
			Uint8("driver_error", status.DriverError).
			Uint8("ide_error", status.IDEError).
			Msg("driver status")
	}
	return response[resultHeaderSize:], true
}

func mustSize(code ControlCode, response []byte, want int) {
	if len(response) != want {
		panic(fmt.Sprintf("smart: control code %#08x returned %d bytes, envelope is %d", uint32(code), len(response), want))
	}
}

// Enable turns on SMART operations
func (c *Client) Enable(h Handle, drive int) bool {
	_, ok := c.roundTrip(h, SendDriveCommand, smartRegisters(EnableOperations), drive, resultHeaderSize)
	return ok
}

// ReadData returns the attribute table in device order, or nil on failure
func (c *Client) ReadData(h Handle, drive int) []AttributeValue {
	payload, ok := c.roundTrip(h, ReceiveDriveData, smartRegisters(ReadData), drive, attributeResultSize)
	if !ok {
		return nil
	}
	return decodeAttributes(payload)
}

// ReadThresholds returns the threshold table in device order, or nil on failure
func (c *Client) ReadThresholds(h Handle, drive int) []ThresholdValue {
	payload, ok := c.roundTrip(h, ReceiveDriveData, smartRegisters(ReadThresholds), drive, thresholdResultSize)
	if !ok {
		return nil
	}
	return decodeThresholds(payload)
}

// ReadIdentify returns the decoded identify strings
func (c *Client) ReadIdentify(h Handle, drive int) (Identify, bool) {
	regs := CommandBlockRegisters{Command: byte(IdentifyCommand)}
	payload, ok := c.roundTrip(h, ReceiveDriveData, regs, drive, identifyResultSize)
	if !ok {
		return Identify{}, false
	}
	return decodeIdentify(payload), true
}

// ReadName returns the drive model. ok is false when the drive could not be
// identified, which is distinct from a drive reporting an empty model.
func (c *Client) ReadName(h Handle, drive int) (string, bool) {
	id, ok := c.ReadIdentify(h, drive)
	if !ok {
		return "", false
	}
	return id.Model, true
}

// ReadStatus reports whether the drive flags a threshold-exceeded condition
func (c *Client) ReadStatus(h Handle, drive int) (exceeded, ok bool) {
	payload, ok := c.roundTrip(h, SendDriveCommand, smartRegisters(ReturnStatus), drive, statusResultSize)
	if !ok {
		return false, false
	}
	regs := decodeRegisters(payload)
	return regs.LBAMid == thresholdExceededLBAMid && regs.LBAHigh == thresholdExceededLBAHigh, true
}

// ReadVersion queries the pass-through driver version
func (c *Client) ReadVersion(h Handle) (Version, bool) {
	response, ok := c.dev.Control(h, GetVersion, nil, versionSize)
	if !ok {
		return Version{}, false
	}
	mustSize(GetVersion, response, versionSize)
	return decodeVersion(response), true
}
