package mavlink

import (
	"testing"

	"github.com/kstaniek/go-mavgcs/internal/dialect"
)

func TestToWireInt_ScalesLatLonBy1e7(t *testing.T) {
	wp := Waypoint{Lat: 38.3706171, Lon: 27.2008103, Alt: 50}
	got := ToWireInt(wp, 1, 1, 3)

	if got.X != 383706171 {
		t.Fatalf("X = %d, want 383706171", got.X)
	}
	if got.Y != 272008103 {
		t.Fatalf("Y = %d, want 272008103", got.Y)
	}
	if got.Seq != 3 || got.TargetSystem != 1 || got.TargetComponent != 1 {
		t.Fatalf("addressing mismatch: %+v", got)
	}
}

// TestToWireInt_SwitchesFrameToIntVariant covers spec.md §4.4: a mission
// item sent as MISSION_ITEM_INT must carry the _INT frame id, not the plain
// MISSION_ITEM one ToWire would use.
func TestToWireInt_SwitchesFrameToIntVariant(t *testing.T) {
	wp := Waypoint{Lat: 1, Lon: 2, Alt: 3}
	got := ToWireInt(wp, 1, 1, 0)
	if got.Frame != dialect.FrameGlobalRelativeAltInt {
		t.Fatalf("Frame = %d, want FrameGlobalRelativeAltInt (%d)", got.Frame, dialect.FrameGlobalRelativeAltInt)
	}

	rtl := ReturnToLaunch{}
	gotRTL := ToWireInt(rtl, 1, 1, 1)
	if gotRTL.Frame != dialect.FrameMission {
		t.Fatalf("ReturnToLaunch Frame = %d, want FrameMission (%d) unchanged (no _INT variant)", gotRTL.Frame, dialect.FrameMission)
	}
}

func TestToWire_ReturnToLaunchUsesMissionFrame(t *testing.T) {
	got := ToWire(ReturnToLaunch{}, 1, 1, 0)
	if got.Frame != 2 {
		t.Fatalf("Frame = %d, want MAV_FRAME_MISSION (2)", got.Frame)
	}
	if got.Autocontinue != 1 {
		t.Fatalf("Autocontinue = %d, want 1", got.Autocontinue)
	}
}

func TestWaypoint_Param4IsNaN(t *testing.T) {
	wp := Waypoint{Lat: 1, Lon: 2, Alt: 3}
	got := ToWire(wp, 1, 1, 0)
	if got.Param4 == got.Param4 {
		t.Fatalf("Param4 = %v, want NaN", got.Param4)
	}
}
