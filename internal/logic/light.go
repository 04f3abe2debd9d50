package logic

import "log"

// LightMonitor samples the light sensor on its own cadence.
type LightMonitor struct {
	sensor   LightSensor
	timer    Timer
	baseline int
	step     int

	level int
	low   bool
	known bool
}

// LightSample is the evaluation of one reading.
type LightSample struct {
	Level     int
	Threshold int
	Low       bool
	Changed   bool // Low differs from the previous sample
}

// NewLightMonitor returns a monitor that samples every interval cycles.
func NewLightMonitor(sensor LightSensor, interval uint32, baseline, step int) *LightMonitor {
	return &LightMonitor{
		sensor:   sensor,
		timer:    NewTimer(interval),
		baseline: baseline,
		step:     step,
	}
}

// Threshold returns the arming threshold for a sensitivity.
func (m *LightMonitor) Threshold(sensitivity int) int {
	return m.baseline + m.step*sensitivity
}

// Tick advances the sample timer. It returns a sample only on the cycle
// the timer expires and a reading succeeds.
func (m *LightMonitor) Tick(sensitivity int) (LightSample, bool) {
	if !m.timer.Tick() {
		return LightSample{}, false
	}
	m.timer.Reset()

	if m.sensor == nil {
		return LightSample{}, false
	}
	level, err := m.sensor.Level()
	if err != nil {
		log.Printf("light: read error: %v", err)
		return LightSample{}, false
	}

	th := m.Threshold(sensitivity)
	low := level > th
	s := LightSample{
		Level:     level,
		Threshold: th,
		Low:       low,
		Changed:   !m.known || low != m.low,
	}
	m.level = level
	m.low = low
	m.known = true
	return s, true
}

// Low reports the last evaluated low-light state.
func (m *LightMonitor) Low() bool { return m.low }

// Level returns the last reading.
func (m *LightMonitor) Level() int { return m.level }
