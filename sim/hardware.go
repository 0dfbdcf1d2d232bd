package sim

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// EncoderResolution is the position noise, one count of a 4096 count per revolution encoder,
// used by simulations that ask for realistic noise.
const EncoderResolution = 2 * math.Pi / 4096

// Hardware is a simulated motor and relative encoder. The controller commands it and reads it;
// an ArmModel reads the commanded voltage and writes the sensor values back. Position noise, when
// enabled, is zero mean Gaussian drawn from a seeded source so runs are reproducible. One sample
// is drawn per sensor update, so every read between updates agrees.
type Hardware struct {
	volts    float64
	angle    float64
	velocity float64
	current  float64
	zero     float64
	noise    *distuv.Normal
	// reading is the noise on the position until the next sensor update.
	reading float64
}

// HardwareOption configures simulated hardware.
type HardwareOption func(*Hardware)

// WithPositionNoise adds Gaussian noise with the given standard deviation, in radians, to every
// position reading. A non-positive stddev disables noise.
func WithPositionNoise(stddev float64, seed uint64) HardwareOption {
	return func(h *Hardware) {
		if stddev <= 0 {
			h.noise = nil
			return
		}
		h.noise = &distuv.Normal{Mu: 0, Sigma: stddev, Src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
	}
}

// NewHardware returns hardware reading angle as its true position, before any reset.
func NewHardware(angle float64, opts ...HardwareOption) *Hardware {
	h := &Hardware{angle: angle}
	for _, opt := range opts {
		opt(h)
	}
	h.sample()
	return h
}

func (h *Hardware) sample() {
	if h.noise == nil {
		h.reading = 0
		return
	}
	h.reading = h.noise.Rand()
}

// Position returns the true angle relative to the last reset, plus the noise of the last update.
func (h *Hardware) Position() float64 {
	return h.angle - h.zero + h.reading
}

// Velocity returns the true angular velocity.
func (h *Hardware) Velocity() float64 {
	return h.velocity
}

// SetVoltage records the commanded voltage.
func (h *Hardware) SetVoltage(volts float64) {
	h.volts = volts
}

// Current returns the last simulated current draw.
func (h *Hardware) Current() float64 {
	return h.current
}

// ResetPosition makes the current true angle read as zero.
func (h *Hardware) ResetPosition() {
	h.zero = h.angle
}

// CommandedVoltage returns the last voltage passed to SetVoltage.
func (h *Hardware) CommandedVoltage() float64 {
	return h.volts
}

// SetSensors overwrites what the sensors report with the simulated truth and draws the position
// noise for the readings that follow.
func (h *Hardware) SetSensors(angle, velocity, current float64) {
	h.angle = angle
	h.velocity = velocity
	h.current = current
	h.sample()
}
