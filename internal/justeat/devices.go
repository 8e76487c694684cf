package justeat

import "math/rand/v2"

// DeviceModels is the pool of Android models the linker presents itself as.
// One is drawn at random for every login attempt.
var DeviceModels = []string{
	"SM-G991B",
	"SM-G996B",
	"SM-S901B",
	"SM-S911B",
	"SM-A525F",
	"SM-A536B",
	"Pixel 6",
	"Pixel 7",
	"Pixel 7 Pro",
	"Pixel 8",
	"CPH2449",
	"2201116SG",
	"M2101K6G",
	"XQ-CT54",
}

// DevicePicker chooses a model from the pool.
type DevicePicker func(pool []string) string

// RandomDevice is the default DevicePicker.
func RandomDevice(pool []string) string {
	return pool[rand.IntN(len(pool))]
}
