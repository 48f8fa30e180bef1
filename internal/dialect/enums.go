// Package dialect holds the closed set of message types and enumerations
// this repository's codec understands — the wire protocol's "dialect" in
// the sense used by spec.md's glossary.
package dialect

// MavCmd is a MAV_CMD command identifier (subset actually exercised by
// component.Component's derived helpers and the mission item conversions).
type MavCmd uint16

const (
	CmdNavWaypoint        MavCmd = 16
	CmdNavTakeoff         MavCmd = 22
	CmdNavReturnToLaunch  MavCmd = 20
	CmdComponentArmDisarm MavCmd = 400
	CmdDoSetMode          MavCmd = 176
	CmdSetMessageInterval MavCmd = 511
	CmdMissionStart       MavCmd = 300
)

// MavFrame is a coordinate frame identifier for mission items.
type MavFrame uint8

const (
	FrameGlobal                MavFrame = 0
	FrameMission               MavFrame = 2
	FrameGlobalRelativeAlt     MavFrame = 3
	FrameGlobalInt             MavFrame = 5
	FrameGlobalRelativeAltInt  MavFrame = 6
)

// MavModeFlag bits are ORed into HEARTBEAT.BaseMode.
type MavModeFlag uint8

const (
	ModeFlagCustomModeEnabled  MavModeFlag = 0x01
	ModeFlagManualInputEnabled MavModeFlag = 0x40
	ModeFlagSafetyArmed        MavModeFlag = 0x80
)

// MavState is HEARTBEAT.SystemStatus.
type MavState uint8

const (
	StateActive MavState = 4
)

// MavType is HEARTBEAT.Type — the vehicle/station kind.
type MavType uint8

const (
	TypeGCS MavType = 6
)

// MavAutopilot is HEARTBEAT.Autopilot.
type MavAutopilot uint8

const (
	AutopilotInvalid MavAutopilot = 8
)

// MavResult is COMMAND_ACK.Result.
type MavResult uint8

const (
	ResultAccepted            MavResult = 0
	ResultTemporarilyRejected MavResult = 1
	ResultDenied              MavResult = 2
	ResultUnsupported         MavResult = 3
	ResultFailed              MavResult = 4
	ResultInProgress          MavResult = 5
)

// MavMissionResult is MISSION_ACK.MavType (the mission-protocol result code;
// the field keeps its upstream name MavType, and its type is named
// MavMissionResult here).
type MavMissionResult uint8

const (
	MissionResultAccepted MavMissionResult = 0
	MissionResultError    MavMissionResult = 1
)

// MavMissionType distinguishes mission/fence/rally item lists.
type MavMissionType uint8

const (
	MissionTypeMission MavMissionType = 0
)

// OnboardControlSensor bits, used by wait_armable's prearm-check test.
const (
	SensorPreArmCheck uint32 = 1 << 28
)
