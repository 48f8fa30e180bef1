// Package mavlink converts the mission item sum type spec.md's C3 defines
// into the wire-level MissionItem / MissionItemInt dialect messages. It is
// grounded on original_source's src/mission.rs IntoMissionItem trait,
// reshaped from Rust's default-struct-update idiom into plain value structs
// and a ToWire/ToWireInt function pair.
package mavlink

import "github.com/kstaniek/go-mavgcs/internal/dialect"

// Item is a mission item before it has been addressed to a peer or assigned
// a sequence number.
type Item interface {
	// marker confines Item to the variants declared in this package, the
	// same closed-set intent mission.rs's enum expresses.
	marker()

	// raw returns the item as a float-coordinate MissionItem with its
	// seq, target_system and target_component left zero.
	raw() dialect.MissionItem
}

// Waypoint is a MAV_CMD_NAV_WAYPOINT mission item at (lat, lon, alt).
type Waypoint struct{ Lat, Lon, Alt float32 }

func (Waypoint) marker() {}

func (w Waypoint) raw() dialect.MissionItem {
	return dialect.MissionItem{
		Command:      dialect.CmdNavWaypoint,
		Param4:       float32NaN(),
		X:            w.Lat,
		Y:            w.Lon,
		Z:            w.Alt,
		Autocontinue: 1,
		Frame:        dialect.FrameGlobalRelativeAlt,
	}
}

// Takeoff is a MAV_CMD_NAV_TAKEOFF mission item at (lat, lon, alt).
type Takeoff struct{ Lat, Lon, Alt float32 }

func (Takeoff) marker() {}

func (t Takeoff) raw() dialect.MissionItem {
	return dialect.MissionItem{
		Command:      dialect.CmdNavTakeoff,
		Param4:       float32NaN(),
		X:            t.Lat,
		Y:            t.Lon,
		Z:            t.Alt,
		Autocontinue: 1,
		Frame:        dialect.FrameGlobalRelativeAlt,
	}
}

// ReturnToLaunch is a MAV_CMD_NAV_RETURN_TO_LAUNCH mission item.
type ReturnToLaunch struct{}

func (ReturnToLaunch) marker() {}

func (ReturnToLaunch) raw() dialect.MissionItem {
	return dialect.MissionItem{
		Command:      dialect.CmdNavReturnToLaunch,
		Autocontinue: 1,
		Frame:        dialect.FrameMission,
	}
}

// ChangeSpeed is a MAV_CMD_DO_CHANGE_SPEED mission item: speed type 0
// (airspeed), target speed, and no change to throttle (param3 negative). Present in original_source's mission.rs but not named
// by spec.md's mission item list; carried here as a supplemental item since
// nothing in spec.md excludes it.
type ChangeSpeed struct{ TargetSpeed float32 }

func (ChangeSpeed) marker() {}

func (c ChangeSpeed) raw() dialect.MissionItem {
	return dialect.MissionItem{
		Command: dialect.MavCmd(178), // MAV_CMD_DO_CHANGE_SPEED
		Param1:  0,
		Param2:  c.TargetSpeed,
		Param3:  -2.0,
	}
}

func float32NaN() float32 {
	var f float32
	return f / f
}

// ToWire addresses item to (targetSystem, targetComponent) and stamps it
// with seq, producing the float-coordinate MISSION_ITEM form.
func ToWire(item Item, targetSystem, targetComponent uint8, seq uint16) dialect.MissionItem {
	mi := item.raw()
	mi.Seq = seq
	mi.TargetSystem = targetSystem
	mi.TargetComponent = targetComponent
	return mi
}

// ToWireInt addresses item to (targetSystem, targetComponent) and stamps it
// with seq, producing the scaled-integer MISSION_ITEM_INT form: lat/lon are
// multiplied by 1e7 and truncated to int32, and the coordinate frame is
// switched to its _INT variant, per spec.md §4.4.
func ToWireInt(item Item, targetSystem, targetComponent uint8, seq uint16) dialect.MissionItemInt {
	raw := item.raw()
	return dialect.MissionItemInt{
		Param1: raw.Param1, Param2: raw.Param2, Param3: raw.Param3, Param4: raw.Param4,
		X:               int32(raw.X * 1e7),
		Y:               int32(raw.Y * 1e7),
		Z:               raw.Z,
		Seq:             seq,
		Command:         raw.Command,
		TargetSystem:    targetSystem,
		TargetComponent: targetComponent,
		Frame:           intFrame(raw.Frame),
		Current:         raw.Current,
		Autocontinue:    raw.Autocontinue,
		MissionType:     raw.MissionType,
	}
}

// intFrame maps a float-coordinate MISSION_ITEM frame to its MISSION_ITEM_INT
// counterpart. Frames with no _INT variant (e.g. FrameMission, used by
// waypoint-index commands like return-to-launch that carry no lat/lon) pass
// through unchanged.
func intFrame(f dialect.MavFrame) dialect.MavFrame {
	switch f {
	case dialect.FrameGlobal:
		return dialect.FrameGlobalInt
	case dialect.FrameGlobalRelativeAlt:
		return dialect.FrameGlobalRelativeAltInt
	default:
		return f
	}
}
