package transform

import "strconv"

// UnknownModel is reported for robot IDs outside every production range.
const UnknownModel = "Unknown"

// modelRange maps a robot ID prefix plus a serial interval to the hardware
// generation built under it.
type modelRange struct {
	prefix string
	lo, hi int
	model  string
}

var modelRanges = []modelRange{
	{"4A", 1, 30, "C4.0"},
	{"4B", 1, 120, "C4.1A"},
	{"4C", 1, 100, "C4.1B"},
	{"4D", 1, 300, "C4.2A"},
	{"4E", 1, 120, "C4.3B"},
	{"4E", 121, 130, "C4.3C"},
	{"4E", 200, 290, "C4.3C"},
	{"4F", 1, 262, "C4.3D"},
	{"4F", 301, 322, "C4.3E"},
	{"4F", 401, 410, "C4.3F"},
	{"4G", 1, 5, "C4.3G"},
	{"4H", 1, 81, "C4.4A"},
}

// RobotModel resolves a robot ID like "4F403" to its hardware model name:
// two-character series prefix, then the serial number within the series.
func RobotModel(robotID string) string {
	if len(robotID) < 3 {
		return UnknownModel
	}
	prefix := robotID[:2]

	digits := robotID[2:]
	end := 0
	for end < len(digits) && digits[end] >= '0' && digits[end] <= '9' {
		end++
	}
	if end == 0 {
		return UnknownModel
	}
	serial, err := strconv.Atoi(digits[:end])
	if err != nil {
		return UnknownModel
	}

	for _, r := range modelRanges {
		if r.prefix == prefix && serial >= r.lo && serial <= r.hi {
			return r.model
		}
	}
	return UnknownModel
}
