package smart

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDeviceControl struct {
	mock.Mock
}

func (m *mockDeviceControl) Open(drive int) Handle {
	args := m.Called(drive)
	return args.Get(0).(Handle)
}

func (m *mockDeviceControl) Control(h Handle, code ControlCode, request []byte, responseSize int) ([]byte, bool) {
	args := m.Called(h, code, request, responseSize)
	response, _ := args.Get(0).([]byte)
	return response, args.Bool(1)
}

func (m *mockDeviceControl) Close(h Handle) {
	m.Called(h)
}

const testHandle Handle = 7

// smartRequest matches a SMART request envelope for one feature and drive
func smartRequest(feature Feature, drive byte, responseSize int) interface{} {
	return mock.MatchedBy(func(req []byte) bool {
		p, ok := DecodeCommand(req)
		return ok &&
			len(req) == commandSize &&
			p.BufferSize == uint32(responseSize-resultHeaderSize) &&
			p.DriveNumber == drive &&
			p.Registers.Features == byte(feature) &&
			p.Registers.LBAMid == 0x4F &&
			p.Registers.LBAHigh == 0xC2 &&
			p.Registers.Command == 0xB0
	})
}

func newMockClient() (*Client, *mockDeviceControl) {
	dev := &mockDeviceControl{}
	return NewClient(dev, zerolog.Nop()), dev
}

var sampleAttributes = []AttributeValue{
	{ID: 0x01, Flags: 0x000F, Value: 117, Worst: 99, Raw: [6]byte{0x10, 0x27, 0, 0, 0, 0}},
	{ID: 0x09, Flags: 0x0032, Value: 91, Worst: 91, Raw: [6]byte{0x4C, 0x1E, 0, 0, 0, 0}},
	{ID: 0xC2, Flags: 0x0022, Value: 36, Worst: 52, Raw: [6]byte{36, 0, 0, 0, 18, 0}},
}

func TestReadDataRoundTrip(t *testing.T) {
	client, dev := newMockClient()
	response := NewResult(attributeResultSize, DriverStatus{}, EncodeAttributes(0x0010, sampleAttributes))
	dev.On("Control", testHandle, ReceiveDriveData, smartRequest(ReadData, 2, attributeResultSize), attributeResultSize).
		Return(response, true).Once()

	got := client.ReadData(testHandle, 2)
	assert.Equal(t, sampleAttributes, got)
	dev.AssertExpectations(t)
}

func TestReadDataKeepsDeviceOrderAndSkipsEmptySlots(t *testing.T) {
	client, dev := newMockClient()
	slots := []AttributeValue{sampleAttributes[2], {}, sampleAttributes[0]}
	response := NewResult(attributeResultSize, DriverStatus{}, EncodeAttributes(0x0010, slots))
	dev.On("Control", testHandle, ReceiveDriveData, mock.Anything, attributeResultSize).Return(response, true)

	got := client.ReadData(testHandle, 0)
	assert.Equal(t, []AttributeValue{sampleAttributes[2], sampleAttributes[0]}, got)
}

func TestReadDataFailureIsEmpty(t *testing.T) {
	client, dev := newMockClient()
	dev.On("Control", testHandle, ReceiveDriveData, mock.Anything, attributeResultSize).Return(nil, false)

	assert.Empty(t, client.ReadData(testHandle, 0))
	assert.NotPanics(t, func() { client.ReadData(testHandle, 1) })
}

func TestReadThresholds(t *testing.T) {
	client, dev := newMockClient()
	thresholds := []ThresholdValue{
		{ID: 0x01, Threshold: 6},
		{ID: 0x05, Threshold: 36, Unknown: [10]byte{1, 2, 3}},
	}
	response := NewResult(thresholdResultSize, DriverStatus{}, EncodeThresholds(0x0010, thresholds))
	dev.On("Control", testHandle, ReceiveDriveData, smartRequest(ReadThresholds, 1, thresholdResultSize), thresholdResultSize).
		Return(response, true).Once()
	dev.On("Control", testHandle, ReceiveDriveData, smartRequest(ReadThresholds, 3, thresholdResultSize), thresholdResultSize).
		Return(nil, false).Once()

	assert.Equal(t, thresholds, client.ReadThresholds(testHandle, 1))
	assert.Empty(t, client.ReadThresholds(testHandle, 3))
	dev.AssertExpectations(t)
}

func TestEnable(t *testing.T) {
	client, dev := newMockClient()
	dev.On("Control", testHandle, SendDriveCommand, smartRequest(EnableOperations, 0, resultHeaderSize), resultHeaderSize).
		Return(NewResult(resultHeaderSize, DriverStatus{}, nil), true).Once()
	dev.On("Control", testHandle, SendDriveCommand, smartRequest(EnableOperations, 1, resultHeaderSize), resultHeaderSize).
		Return(nil, false).Once()

	assert.True(t, client.Enable(testHandle, 0))
	assert.False(t, client.Enable(testHandle, 1))
	dev.AssertExpectations(t)
}

func identifyRequest(drive byte) interface{} {
	return mock.MatchedBy(func(req []byte) bool {
		p, ok := DecodeCommand(req)
		return ok && p.DriveNumber == drive &&
			p.Registers.Command == 0xEC &&
			p.Registers.Features == 0 &&
			p.BufferSize == identifySize
	})
}

func TestReadNameSwapsBytePairs(t *testing.T) {
	client, dev := newMockClient()
	sector := make([]byte, identifySize)
	copy(sector[modelOffset:], []byte{0x44, 0x41, 0x20, 0x20})
	dev.On("Control", testHandle, ReceiveDriveData, identifyRequest(0), identifyResultSize).
		Return(NewResult(identifyResultSize, DriverStatus{}, sector), true)

	name, ok := client.ReadName(testHandle, 0)
	require.True(t, ok)
	assert.Equal(t, "AD", name)
}

func TestReadNameAbsentOnFailure(t *testing.T) {
	client, dev := newMockClient()
	dev.On("Control", testHandle, ReceiveDriveData, identifyRequest(0), identifyResultSize).Return(nil, false)

	name, ok := client.ReadName(testHandle, 0)
	assert.False(t, ok)
	assert.Empty(t, name)
}

func TestReadNameEmptyModelIsPresent(t *testing.T) {
	client, dev := newMockClient()
	dev.On("Control", testHandle, ReceiveDriveData, identifyRequest(0), identifyResultSize).
		Return(NewResult(identifyResultSize, DriverStatus{}, make([]byte, identifySize)), true)

	name, ok := client.ReadName(testHandle, 0)
	assert.True(t, ok)
	assert.Equal(t, "", name)
}

func TestReadIdentify(t *testing.T) {
	client, dev := newMockClient()
	want := Identify{Model: "WDC WD10EZEX-08WN4A0", Serial: "WD-WCC6Y1234567", Firmware: "01.01A01"}
	dev.On("Control", testHandle, ReceiveDriveData, identifyRequest(1), identifyResultSize).
		Return(NewResult(identifyResultSize, DriverStatus{}, EncodeIdentify(want)), true)

	got, ok := client.ReadIdentify(testHandle, 1)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestReadStatus(t *testing.T) {
	cases := []struct {
		name     string
		mid, hi  byte
		exceeded bool
	}{
		{"healthy", 0x4F, 0xC2, false},
		{"threshold exceeded", 0xF4, 0x2C, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, dev := newMockClient()
			regs := make([]byte, registersSize)
			CommandBlockRegisters{Features: byte(ReturnStatus), LBAMid: tc.mid, LBAHigh: tc.hi, Command: byte(SMARTCommand)}.put(regs)
			dev.On("Control", testHandle, SendDriveCommand, smartRequest(ReturnStatus, 0, statusResultSize), statusResultSize).
				Return(NewResult(statusResultSize, DriverStatus{}, regs), true)

			exceeded, ok := client.ReadStatus(testHandle, 0)
			require.True(t, ok)
			assert.Equal(t, tc.exceeded, exceeded)
		})
	}

	client, dev := newMockClient()
	dev.On("Control", testHandle, SendDriveCommand, mock.Anything, statusResultSize).Return(nil, false)
	_, ok := client.ReadStatus(testHandle, 0)
	assert.False(t, ok)
}

func TestReadVersion(t *testing.T) {
	client, dev := newMockClient()
	want := Version{Version: 1, Revision: 1, IDEDeviceMap: 0x01, Capabilities: 0x07}
	dev.On("Control", testHandle, GetVersion, []byte(nil), versionSize).Return(EncodeVersion(want), true).Once()

	got, ok := client.ReadVersion(testHandle)
	require.True(t, ok)
	assert.Equal(t, want, got)

	dev.On("Control", Handle(8), GetVersion, []byte(nil), versionSize).Return(nil, false)
	_, ok = client.ReadVersion(Handle(8))
	assert.False(t, ok)
}

func TestMismatchedResponseSizePanics(t *testing.T) {
	client, dev := newMockClient()
	dev.On("Control", testHandle, ReceiveDriveData, mock.Anything, attributeResultSize).Return(make([]byte, 512), true)

	assert.Panics(t, func() { client.ReadData(testHandle, 0) })
}

func TestOpenAndClose(t *testing.T) {
	client, dev := newMockClient()
	dev.On("Open", 0).Return(testHandle)
	dev.On("Open", 5).Return(InvalidHandle)
	dev.On("Close", testHandle).Return()

	h := client.Open(0)
	assert.Equal(t, testHandle, h)
	client.Close(h)

	assert.Equal(t, InvalidHandle, client.Open(5))
	client.Close(InvalidHandle)

	dev.AssertNumberOfCalls(t, "Close", 1)
}
