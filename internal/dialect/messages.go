package dialect

import (
	"encoding/binary"
	"math"
)

// Message is any payload the codec can marshal onto the wire. Marshal
// returns the message's full fixed-width encoding; the codec (internal/wire)
// is responsible for truncating trailing zero bytes on send and for padding
// a short payload back out before Unmarshal is called on receive — per
// spec.md §9's "trailing-zero payload truncation" design note, this
// contract lives at the codec boundary, not in any one message.
type Message interface {
	MessageID() uint32
	Marshal() []byte
}

// Message IDs, from the MAVLink common dialect.
const (
	IDHeartbeat          uint32 = 0
	IDSysStatus          uint32 = 1
	IDGlobalPositionInt  uint32 = 33
	IDMissionItem        uint32 = 39
	IDMissionRequest     uint32 = 40
	IDMissionAck         uint32 = 47
	IDMissionCount       uint32 = 44
	IDManualControl      uint32 = 69
	IDCommandInt         uint32 = 75
	IDCommandLong        uint32 = 76
	IDCommandAck         uint32 = 77
	IDMissionItemInt     uint32 = 73
	IDMissionRequestInt  uint32 = 51
	IDAutopilotVersion   uint32 = 148
	IDStatustext         uint32 = 253
)

func putFloat32(b []byte, v float32) { binary.LittleEndian.PutUint32(b, math.Float32bits(v)) }
func getFloat32(b []byte) float32    { return math.Float32frombits(binary.LittleEndian.Uint32(b)) }

// pad returns b extended with zeros to length n (b itself if already long enough).
func pad(b []byte, n int) []byte {
	if len(b) >= n {
		return b
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Heartbeat announces vehicle identity and mode.
type Heartbeat struct {
	CustomMode      uint32
	Type            MavType
	Autopilot       MavAutopilot
	BaseMode        MavModeFlag
	SystemStatus    MavState
	MavlinkVersion  uint8
}

func (m Heartbeat) MessageID() uint32 { return IDHeartbeat }

func (m Heartbeat) Marshal() []byte {
	b := make([]byte, 9)
	binary.LittleEndian.PutUint32(b[0:4], m.CustomMode)
	b[4] = uint8(m.Type)
	b[5] = uint8(m.Autopilot)
	b[6] = uint8(m.BaseMode)
	b[7] = uint8(m.SystemStatus)
	b[8] = m.MavlinkVersion
	return b
}

func parseHeartbeat(b []byte) (Message, error) {
	b = pad(b, 9)
	return Heartbeat{
		CustomMode:     binary.LittleEndian.Uint32(b[0:4]),
		Type:           MavType(b[4]),
		Autopilot:      MavAutopilot(b[5]),
		BaseMode:       MavModeFlag(b[6]),
		SystemStatus:   MavState(b[7]),
		MavlinkVersion: b[8],
	}, nil
}

// SysStatus reports subsystem health, used by wait_armable's prearm check.
type SysStatus struct {
	OnboardControlSensorsPresent uint32
	OnboardControlSensorsEnabled uint32
	OnboardControlSensorsHealth  uint32
	Load                         uint16
	VoltageBattery               uint16
	CurrentBattery               int16
	DropRateComm                 uint16
	ErrorsComm                   uint16
	Errors1, Errors2, Errors3, Errors4 uint16
	BatteryRemaining             int8
}

func (m SysStatus) MessageID() uint32 { return IDSysStatus }

func (m SysStatus) Marshal() []byte {
	b := make([]byte, 31)
	binary.LittleEndian.PutUint32(b[0:4], m.OnboardControlSensorsPresent)
	binary.LittleEndian.PutUint32(b[4:8], m.OnboardControlSensorsEnabled)
	binary.LittleEndian.PutUint32(b[8:12], m.OnboardControlSensorsHealth)
	binary.LittleEndian.PutUint16(b[12:14], m.Load)
	binary.LittleEndian.PutUint16(b[14:16], m.VoltageBattery)
	binary.LittleEndian.PutUint16(b[16:18], uint16(m.CurrentBattery))
	binary.LittleEndian.PutUint16(b[18:20], m.DropRateComm)
	binary.LittleEndian.PutUint16(b[20:22], m.ErrorsComm)
	binary.LittleEndian.PutUint16(b[22:24], m.Errors1)
	binary.LittleEndian.PutUint16(b[24:26], m.Errors2)
	binary.LittleEndian.PutUint16(b[26:28], m.Errors3)
	binary.LittleEndian.PutUint16(b[28:30], m.Errors4)
	b[30] = byte(m.BatteryRemaining)
	return b
}

func parseSysStatus(b []byte) (Message, error) {
	b = pad(b, 31)
	return SysStatus{
		OnboardControlSensorsPresent: binary.LittleEndian.Uint32(b[0:4]),
		OnboardControlSensorsEnabled: binary.LittleEndian.Uint32(b[4:8]),
		OnboardControlSensorsHealth:  binary.LittleEndian.Uint32(b[8:12]),
		Load:                         binary.LittleEndian.Uint16(b[12:14]),
		VoltageBattery:               binary.LittleEndian.Uint16(b[14:16]),
		CurrentBattery:               int16(binary.LittleEndian.Uint16(b[16:18])),
		DropRateComm:                 binary.LittleEndian.Uint16(b[18:20]),
		ErrorsComm:                   binary.LittleEndian.Uint16(b[20:22]),
		Errors1:                      binary.LittleEndian.Uint16(b[22:24]),
		Errors2:                      binary.LittleEndian.Uint16(b[24:26]),
		Errors3:                      binary.LittleEndian.Uint16(b[26:28]),
		Errors4:                      binary.LittleEndian.Uint16(b[28:30]),
		BatteryRemaining:             int8(b[30]),
	}, nil
}

// Statustext carries a free-text status line from the autopilot.
type Statustext struct {
	Severity uint8
	Text     string
}

func (m Statustext) MessageID() uint32 { return IDStatustext }

func (m Statustext) Marshal() []byte {
	b := make([]byte, 51)
	b[0] = m.Severity
	copy(b[1:51], m.Text)
	return b
}

func parseStatustext(b []byte) (Message, error) {
	b = pad(b, 51)
	text := b[1:51]
	n := len(text)
	for n > 0 && text[n-1] == 0 {
		n--
	}
	return Statustext{Severity: b[0], Text: string(text[:n])}, nil
}

// CommandInt requests a command addressed by location (native-int variant).
type CommandInt struct {
	Param1, Param2, Param3, Param4 float32
	X                              int32
	Y                              int32
	Z                              float32
	Command                        MavCmd
	TargetSystem                   uint8
	TargetComponent                uint8
	Frame                          MavFrame
	Current                        uint8
	Autocontinue                   uint8
}

func (m CommandInt) MessageID() uint32 { return IDCommandInt }

func (m CommandInt) Marshal() []byte {
	b := make([]byte, 35)
	putFloat32(b[0:4], m.Param1)
	putFloat32(b[4:8], m.Param2)
	putFloat32(b[8:12], m.Param3)
	putFloat32(b[12:16], m.Param4)
	binary.LittleEndian.PutUint32(b[16:20], uint32(m.X))
	binary.LittleEndian.PutUint32(b[20:24], uint32(m.Y))
	putFloat32(b[24:28], m.Z)
	binary.LittleEndian.PutUint16(b[28:30], uint16(m.Command))
	b[30] = m.TargetSystem
	b[31] = m.TargetComponent
	b[32] = uint8(m.Frame)
	b[33] = m.Current
	b[34] = m.Autocontinue
	return b
}

func parseCommandInt(b []byte) (Message, error) {
	b = pad(b, 35)
	return CommandInt{
		Param1: getFloat32(b[0:4]), Param2: getFloat32(b[4:8]),
		Param3: getFloat32(b[8:12]), Param4: getFloat32(b[12:16]),
		X: int32(binary.LittleEndian.Uint32(b[16:20])),
		Y: int32(binary.LittleEndian.Uint32(b[20:24])),
		Z:               getFloat32(b[24:28]),
		Command:         MavCmd(binary.LittleEndian.Uint16(b[28:30])),
		TargetSystem:    b[30],
		TargetComponent: b[31],
		Frame:           MavFrame(b[32]),
		Current:         b[33],
		Autocontinue:    b[34],
	}, nil
}

// CommandLong requests a command with scalar float parameters and an
// explicit Confirmation retry counter — see spec.md §4.3.3.
type CommandLong struct {
	Param1, Param2, Param3, Param4, Param5, Param6, Param7 float32
	Command                                                MavCmd
	TargetSystem                                           uint8
	TargetComponent                                        uint8
	Confirmation                                           uint8
}

func (m CommandLong) MessageID() uint32 { return IDCommandLong }

func (m CommandLong) Marshal() []byte {
	b := make([]byte, 33)
	putFloat32(b[0:4], m.Param1)
	putFloat32(b[4:8], m.Param2)
	putFloat32(b[8:12], m.Param3)
	putFloat32(b[12:16], m.Param4)
	putFloat32(b[16:20], m.Param5)
	putFloat32(b[20:24], m.Param6)
	putFloat32(b[24:28], m.Param7)
	binary.LittleEndian.PutUint16(b[28:30], uint16(m.Command))
	b[30] = m.TargetSystem
	b[31] = m.TargetComponent
	b[32] = m.Confirmation
	return b
}

func parseCommandLong(b []byte) (Message, error) {
	b = pad(b, 33)
	return CommandLong{
		Param1: getFloat32(b[0:4]), Param2: getFloat32(b[4:8]),
		Param3: getFloat32(b[8:12]), Param4: getFloat32(b[12:16]),
		Param5: getFloat32(b[16:20]), Param6: getFloat32(b[20:24]),
		Param7:          getFloat32(b[24:28]),
		Command:         MavCmd(binary.LittleEndian.Uint16(b[28:30])),
		TargetSystem:    b[30],
		TargetComponent: b[31],
		Confirmation:    b[32],
	}, nil
}

// CommandAck is the peer's reply to CommandInt/CommandLong.
type CommandAck struct {
	Command         MavCmd
	Result          MavResult
	Progress        uint8
	ResultParam2    int32
	TargetSystem    uint8
	TargetComponent uint8
}

func (m CommandAck) MessageID() uint32 { return IDCommandAck }

func (m CommandAck) Marshal() []byte {
	b := make([]byte, 10)
	binary.LittleEndian.PutUint16(b[0:2], uint16(m.Command))
	b[2] = uint8(m.Result)
	b[3] = m.Progress
	binary.LittleEndian.PutUint32(b[4:8], uint32(m.ResultParam2))
	b[8] = m.TargetSystem
	b[9] = m.TargetComponent
	return b
}

func parseCommandAck(b []byte) (Message, error) {
	b = pad(b, 10)
	return CommandAck{
		Command:         MavCmd(binary.LittleEndian.Uint16(b[0:2])),
		Result:          MavResult(b[2]),
		Progress:        b[3],
		ResultParam2:    int32(binary.LittleEndian.Uint32(b[4:8])),
		TargetSystem:    b[8],
		TargetComponent: b[9],
	}, nil
}

// MissionCount announces how many items the sender is about to upload.
type MissionCount struct {
	Count           uint16
	TargetSystem    uint8
	TargetComponent uint8
	MissionType     MavMissionType
}

func (m MissionCount) MessageID() uint32 { return IDMissionCount }

func (m MissionCount) Marshal() []byte {
	b := make([]byte, 5)
	binary.LittleEndian.PutUint16(b[0:2], m.Count)
	b[2] = m.TargetSystem
	b[3] = m.TargetComponent
	b[4] = uint8(m.MissionType)
	return b
}

func parseMissionCount(b []byte) (Message, error) {
	b = pad(b, 5)
	return MissionCount{
		Count:           binary.LittleEndian.Uint16(b[0:2]),
		TargetSystem:    b[2],
		TargetComponent: b[3],
		MissionType:     MavMissionType(b[4]),
	}, nil
}

// MissionItem is a float-coordinate mission item pushed in response to
// MissionRequest.
type MissionItem struct {
	Param1, Param2, Param3, Param4 float32
	X, Y, Z                        float32
	Seq                            uint16
	Command                        MavCmd
	TargetSystem                  uint8
	TargetComponent                uint8
	Frame                          MavFrame
	Current                        uint8
	Autocontinue                   uint8
	MissionType                    MavMissionType
}

func (m MissionItem) MessageID() uint32 { return IDMissionItem }

func (m MissionItem) Marshal() []byte {
	b := make([]byte, 38)
	putFloat32(b[0:4], m.Param1)
	putFloat32(b[4:8], m.Param2)
	putFloat32(b[8:12], m.Param3)
	putFloat32(b[12:16], m.Param4)
	putFloat32(b[16:20], m.X)
	putFloat32(b[20:24], m.Y)
	putFloat32(b[24:28], m.Z)
	binary.LittleEndian.PutUint16(b[28:30], m.Seq)
	binary.LittleEndian.PutUint16(b[30:32], uint16(m.Command))
	b[32] = m.TargetSystem
	b[33] = m.TargetComponent
	b[34] = uint8(m.Frame)
	b[35] = m.Current
	b[36] = m.Autocontinue
	b[37] = uint8(m.MissionType)
	return b
}

func parseMissionItem(b []byte) (Message, error) {
	b = pad(b, 38)
	return MissionItem{
		Param1: getFloat32(b[0:4]), Param2: getFloat32(b[4:8]),
		Param3: getFloat32(b[8:12]), Param4: getFloat32(b[12:16]),
		X: getFloat32(b[16:20]), Y: getFloat32(b[20:24]), Z: getFloat32(b[24:28]),
		Seq:             binary.LittleEndian.Uint16(b[28:30]),
		Command:         MavCmd(binary.LittleEndian.Uint16(b[30:32])),
		TargetSystem:    b[32],
		TargetComponent: b[33],
		Frame:           MavFrame(b[34]),
		Current:         b[35],
		Autocontinue:    b[36],
		MissionType:     MavMissionType(b[37]),
	}, nil
}

// MissionItemInt is the scaled-integer-coordinate counterpart of MissionItem
// (x/y are lat/lon * 1e7).
type MissionItemInt struct {
	Param1, Param2, Param3, Param4 float32
	X, Y                           int32
	Z                              float32
	Seq                            uint16
	Command                        MavCmd
	TargetSystem                   uint8
	TargetComponent                uint8
	Frame                          MavFrame
	Current                        uint8
	Autocontinue                   uint8
	MissionType                    MavMissionType
}

func (m MissionItemInt) MessageID() uint32 { return IDMissionItemInt }

func (m MissionItemInt) Marshal() []byte {
	b := make([]byte, 38)
	putFloat32(b[0:4], m.Param1)
	putFloat32(b[4:8], m.Param2)
	putFloat32(b[8:12], m.Param3)
	putFloat32(b[12:16], m.Param4)
	binary.LittleEndian.PutUint32(b[16:20], uint32(m.X))
	binary.LittleEndian.PutUint32(b[20:24], uint32(m.Y))
	putFloat32(b[24:28], m.Z)
	binary.LittleEndian.PutUint16(b[28:30], m.Seq)
	binary.LittleEndian.PutUint16(b[30:32], uint16(m.Command))
	b[32] = m.TargetSystem
	b[33] = m.TargetComponent
	b[34] = uint8(m.Frame)
	b[35] = m.Current
	b[36] = m.Autocontinue
	b[37] = uint8(m.MissionType)
	return b
}

func parseMissionItemInt(b []byte) (Message, error) {
	b = pad(b, 38)
	return MissionItemInt{
		Param1: getFloat32(b[0:4]), Param2: getFloat32(b[4:8]),
		Param3: getFloat32(b[8:12]), Param4: getFloat32(b[12:16]),
		X: int32(binary.LittleEndian.Uint32(b[16:20])),
		Y: int32(binary.LittleEndian.Uint32(b[20:24])),
		Z:               getFloat32(b[24:28]),
		Seq:             binary.LittleEndian.Uint16(b[28:30]),
		Command:         MavCmd(binary.LittleEndian.Uint16(b[30:32])),
		TargetSystem:    b[32],
		TargetComponent: b[33],
		Frame:           MavFrame(b[34]),
		Current:         b[35],
		Autocontinue:    b[36],
		MissionType:     MavMissionType(b[37]),
	}, nil
}

// MissionRequest asks the sender for item Seq (float-coordinate phase).
type MissionRequest struct {
	Seq             uint16
	TargetSystem    uint8
	TargetComponent uint8
	MissionType     MavMissionType
}

func (m MissionRequest) MessageID() uint32 { return IDMissionRequest }

func (m MissionRequest) Marshal() []byte {
	b := make([]byte, 5)
	binary.LittleEndian.PutUint16(b[0:2], m.Seq)
	b[2] = m.TargetSystem
	b[3] = m.TargetComponent
	b[4] = uint8(m.MissionType)
	return b
}

func parseMissionRequest(b []byte) (Message, error) {
	b = pad(b, 5)
	return MissionRequest{
		Seq:             binary.LittleEndian.Uint16(b[0:2]),
		TargetSystem:    b[2],
		TargetComponent: b[3],
		MissionType:     MavMissionType(b[4]),
	}, nil
}

// MissionRequestInt asks the sender for item Seq (int-coordinate phase).
type MissionRequestInt struct {
	Seq             uint16
	TargetSystem    uint8
	TargetComponent uint8
	MissionType     MavMissionType
}

func (m MissionRequestInt) MessageID() uint32 { return IDMissionRequestInt }

func (m MissionRequestInt) Marshal() []byte {
	b := make([]byte, 5)
	binary.LittleEndian.PutUint16(b[0:2], m.Seq)
	b[2] = m.TargetSystem
	b[3] = m.TargetComponent
	b[4] = uint8(m.MissionType)
	return b
}

func parseMissionRequestInt(b []byte) (Message, error) {
	b = pad(b, 5)
	return MissionRequestInt{
		Seq:             binary.LittleEndian.Uint16(b[0:2]),
		TargetSystem:    b[2],
		TargetComponent: b[3],
		MissionType:     MavMissionType(b[4]),
	}, nil
}

// MissionAck is the mission protocol's terminal message.
type MissionAck struct {
	TargetSystem    uint8
	TargetComponent uint8
	MavType         MavMissionResult
	MissionType     MavMissionType
}

func (m MissionAck) MessageID() uint32 { return IDMissionAck }

func (m MissionAck) Marshal() []byte {
	b := make([]byte, 4)
	b[0] = m.TargetSystem
	b[1] = m.TargetComponent
	b[2] = uint8(m.MavType)
	b[3] = uint8(m.MissionType)
	return b
}

func parseMissionAck(b []byte) (Message, error) {
	b = pad(b, 4)
	return MissionAck{
		TargetSystem:    b[0],
		TargetComponent: b[1],
		MavType:         MavMissionResult(b[2]),
		MissionType:     MavMissionType(b[3]),
	}, nil
}

// GlobalPositionInt is a vehicle position/velocity telemetry sample.
type GlobalPositionInt struct {
	TimeBootMs                     uint32
	Lat, Lon                       int32
	Alt, RelativeAlt                int32
	Vx, Vy, Vz                     int16
	Hdg                            uint16
}

func (m GlobalPositionInt) MessageID() uint32 { return IDGlobalPositionInt }

func (m GlobalPositionInt) Marshal() []byte {
	b := make([]byte, 28)
	binary.LittleEndian.PutUint32(b[0:4], m.TimeBootMs)
	binary.LittleEndian.PutUint32(b[4:8], uint32(m.Lat))
	binary.LittleEndian.PutUint32(b[8:12], uint32(m.Lon))
	binary.LittleEndian.PutUint32(b[12:16], uint32(m.Alt))
	binary.LittleEndian.PutUint32(b[16:20], uint32(m.RelativeAlt))
	binary.LittleEndian.PutUint16(b[20:22], uint16(m.Vx))
	binary.LittleEndian.PutUint16(b[22:24], uint16(m.Vy))
	binary.LittleEndian.PutUint16(b[24:26], uint16(m.Vz))
	binary.LittleEndian.PutUint16(b[26:28], m.Hdg)
	return b
}

func parseGlobalPositionInt(b []byte) (Message, error) {
	b = pad(b, 28)
	return GlobalPositionInt{
		TimeBootMs:  binary.LittleEndian.Uint32(b[0:4]),
		Lat:         int32(binary.LittleEndian.Uint32(b[4:8])),
		Lon:         int32(binary.LittleEndian.Uint32(b[8:12])),
		Alt:         int32(binary.LittleEndian.Uint32(b[12:16])),
		RelativeAlt: int32(binary.LittleEndian.Uint32(b[16:20])),
		Vx:          int16(binary.LittleEndian.Uint16(b[20:22])),
		Vy:          int16(binary.LittleEndian.Uint16(b[22:24])),
		Vz:          int16(binary.LittleEndian.Uint16(b[24:26])),
		Hdg:         binary.LittleEndian.Uint16(b[26:28]),
	}, nil
}

// AutopilotVersion reports firmware/hardware capability metadata.
type AutopilotVersion struct {
	Capabilities                                                         uint64
	Uid                                                                   uint64
	FlightSwVersion, MiddlewareSwVersion, OsSwVersion, BoardVersion       uint32
	FlightCustomVersion, MiddlewareCustomVersion, OsCustomVersion         [8]byte
	VendorId, ProductId                                                  uint16
}

func (m AutopilotVersion) MessageID() uint32 { return IDAutopilotVersion }

func (m AutopilotVersion) Marshal() []byte {
	b := make([]byte, 60)
	binary.LittleEndian.PutUint64(b[0:8], m.Capabilities)
	binary.LittleEndian.PutUint64(b[8:16], m.Uid)
	binary.LittleEndian.PutUint32(b[16:20], m.FlightSwVersion)
	binary.LittleEndian.PutUint32(b[20:24], m.MiddlewareSwVersion)
	binary.LittleEndian.PutUint32(b[24:28], m.OsSwVersion)
	binary.LittleEndian.PutUint32(b[28:32], m.BoardVersion)
	copy(b[32:40], m.FlightCustomVersion[:])
	copy(b[40:48], m.MiddlewareCustomVersion[:])
	copy(b[48:56], m.OsCustomVersion[:])
	binary.LittleEndian.PutUint16(b[56:58], m.VendorId)
	binary.LittleEndian.PutUint16(b[58:60], m.ProductId)
	return b
}

func parseAutopilotVersion(b []byte) (Message, error) {
	b = pad(b, 60)
	m := AutopilotVersion{
		Capabilities:        binary.LittleEndian.Uint64(b[0:8]),
		Uid:                 binary.LittleEndian.Uint64(b[8:16]),
		FlightSwVersion:     binary.LittleEndian.Uint32(b[16:20]),
		MiddlewareSwVersion: binary.LittleEndian.Uint32(b[20:24]),
		OsSwVersion:         binary.LittleEndian.Uint32(b[24:28]),
		BoardVersion:        binary.LittleEndian.Uint32(b[28:32]),
		VendorId:            binary.LittleEndian.Uint16(b[56:58]),
		ProductId:           binary.LittleEndian.Uint16(b[58:60]),
	}
	copy(m.FlightCustomVersion[:], b[32:40])
	copy(m.MiddlewareCustomVersion[:], b[40:48])
	copy(m.OsCustomVersion[:], b[48:56])
	return m, nil
}

// ManualControl carries joystick-style operator input.
type ManualControl struct {
	X, Y, Z, R int16
	Buttons    uint16
	Target     uint8
}

func (m ManualControl) MessageID() uint32 { return IDManualControl }

func (m ManualControl) Marshal() []byte {
	b := make([]byte, 11)
	binary.LittleEndian.PutUint16(b[0:2], uint16(m.X))
	binary.LittleEndian.PutUint16(b[2:4], uint16(m.Y))
	binary.LittleEndian.PutUint16(b[4:6], uint16(m.Z))
	binary.LittleEndian.PutUint16(b[6:8], uint16(m.R))
	// Buttons precedes Target, per the common dialect's wire order.
	binary.LittleEndian.PutUint16(b[8:10], m.Buttons)
	b[10] = m.Target
	return b
}

func parseManualControl(b []byte) (Message, error) {
	b = pad(b, 11)
	return ManualControl{
		X:       int16(binary.LittleEndian.Uint16(b[0:2])),
		Y:       int16(binary.LittleEndian.Uint16(b[2:4])),
		Z:       int16(binary.LittleEndian.Uint16(b[4:6])),
		R:       int16(binary.LittleEndian.Uint16(b[6:8])),
		Buttons: binary.LittleEndian.Uint16(b[8:10]),
		Target:  b[10],
	}, nil
}
