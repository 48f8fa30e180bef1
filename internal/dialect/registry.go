package dialect

import "fmt"

// entry pairs a message's CRC-extra byte (folded into every frame's CRC per
// spec.md §4.1) with the function that turns a raw, zero-padded payload back
// into a Message.
type entry struct {
	crcExtra byte
	parse    func([]byte) (Message, error)
}

var registry = map[uint32]entry{
	IDHeartbeat:         {crcExtra: 50, parse: parseHeartbeat},
	IDSysStatus:         {crcExtra: 124, parse: parseSysStatus},
	IDStatustext:        {crcExtra: 83, parse: parseStatustext},
	IDCommandInt:        {crcExtra: 158, parse: parseCommandInt},
	IDCommandLong:       {crcExtra: 152, parse: parseCommandLong},
	IDCommandAck:        {crcExtra: 143, parse: parseCommandAck},
	IDMissionCount:      {crcExtra: 221, parse: parseMissionCount},
	IDMissionItem:       {crcExtra: 254, parse: parseMissionItem},
	IDMissionItemInt:    {crcExtra: 38, parse: parseMissionItemInt},
	IDMissionRequest:    {crcExtra: 230, parse: parseMissionRequest},
	IDMissionRequestInt: {crcExtra: 196, parse: parseMissionRequestInt},
	IDMissionAck:        {crcExtra: 153, parse: parseMissionAck},
	IDGlobalPositionInt: {crcExtra: 104, parse: parseGlobalPositionInt},
	IDAutopilotVersion:  {crcExtra: 178, parse: parseAutopilotVersion},
	IDManualControl:     {crcExtra: 243, parse: parseManualControl},
}

// ErrUnknownMessage is returned by Lookup and Parse for a message ID outside
// this dialect's closed set.
var ErrUnknownMessage = fmt.Errorf("dialect: unknown message id")

// CRCExtra returns the CRC-extra byte mixed into a frame's checksum for the
// given message ID, per spec.md §4.1.
func CRCExtra(id uint32) (byte, error) {
	e, ok := registry[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownMessage, id)
	}
	return e.crcExtra, nil
}

// Parse decodes payload (already zero-padded to the message's full width by
// the caller, per spec.md §9's trailing-zero truncation note) into its
// concrete Message type.
func Parse(id uint32, payload []byte) (Message, error) {
	e, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessage, id)
	}
	return e.parse(payload)
}

// Known reports whether id belongs to this dialect's closed set.
func Known(id uint32) bool {
	_, ok := registry[id]
	return ok
}
