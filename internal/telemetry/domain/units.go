package telemetry

import "strings"

// metricUnits maps metric type keys to their physical units.
var metricUnits = map[string]string{
	"power_output": "W",
	"voltage":      "V",
	"current":      "A",
	"charge_level": "%",
	"temperature":  "C",
}

// UnitFor resolves the physical unit of a metric type. Lookup is
// case-insensitive; unknown metric types report false.
func UnitFor(metricType string) (string, bool) {
	unit, ok := metricUnits[strings.ToLower(metricType)]
	return unit, ok
}

// KnownMetricTypes returns the metric type keys in no particular order.
func KnownMetricTypes() []string {
	keys := make([]string, 0, len(metricUnits))
	for key := range metricUnits {
		keys = append(keys, key)
	}
	return keys
}

// RegisterUnit adds or overrides a metric type unit. Intended for
// deployment-specific extensions loaded from configuration at startup.
func RegisterUnit(metricType, unit string) {
	if metricType == "" || unit == "" {
		return
	}
	metricUnits[strings.ToLower(metricType)] = unit
}
