// Package hardware wires the physical devices into the interfaces the
// motion code drives.
package hardware

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/15303/UltimateGoal/pkg/bno08x"
	"github.com/15303/UltimateGoal/pkg/config"
	"github.com/15303/UltimateGoal/pkg/imu"
	"github.com/15303/UltimateGoal/pkg/ina219"
	"github.com/15303/UltimateGoal/pkg/pca9685"
	"github.com/15303/UltimateGoal/pkg/picobldc"
	"github.com/15303/UltimateGoal/pkg/rings"
	"github.com/15303/UltimateGoal/pkg/ringsensor"
	"github.com/15303/UltimateGoal/pkg/screen"
	"github.com/15303/UltimateGoal/pkg/sound"
	"github.com/15303/UltimateGoal/pkg/wheels"
)

const headingStartupTimeout = 2 * time.Second

type headingSource interface {
	HeadingSensor
	Loop(ctx context.Context)
}

type Hardware struct {
	*pwmAccessories

	cfg config.Hardware
	log zerolog.Logger

	pico       *picobldc.PicoBLDC
	bno        *bno08x.BNO08X
	gyro       *imu.Gyro
	pwm        pca9685.Interface
	ringSensor *ringsensor.Sensor
	power      ina219.Interface
	sound      *sound.Player
	screen     *screen.Screen
}

var _ Robot = (*Hardware)(nil)

// New opens every device.  Any missing device other than the power monitor
// is an error; the robot can't run a match without it.
func New(cfg config.Hardware, log zerolog.Logger) (*Hardware, error) {
	h := &Hardware{
		cfg: cfg,
		log: log.With().Str("component", "hw").Logger(),
	}
	if err := h.open(); err != nil {
		h.closeDevices()
		return nil, err
	}
	return h, nil
}

func (h *Hardware) open() (err error) {
	cfg := h.cfg

	h.pico, err = picobldc.New(cfg.I2CBus, cfg.PicoAddr, h.log)
	if err != nil {
		return err
	}

	switch cfg.HeadingSource {
	case "gyro":
		dev, err := imu.NewSPI(cfg.GyroSPI)
		if err != nil {
			return err
		}
		h.gyro = imu.NewGyro(dev, h.log)
		if err := h.gyro.Start(); err != nil {
			return err
		}
	default:
		h.bno = bno08x.New(cfg.IMUSerial, h.log)
	}

	h.pwm, err = pca9685.New(cfg.I2CBus, cfg.PWMAddr)
	if err != nil {
		return err
	}
	if err := h.pwm.Configure(); err != nil {
		return err
	}
	h.pwmAccessories = newPWMAccessories(h.pwm, cfg.Channels, h.pico)

	h.ringSensor, err = ringsensor.New(cfg.I2CBus, cfg.RingSensorAddr)
	if err != nil {
		return err
	}

	if cfg.PowerSensorAddr != 0 {
		h.power = openPowerSensor(cfg.I2CBus, cfg.PowerSensorAddr, h.log)
	}

	h.sound = sound.NewPlayer(cfg.SoundDir, h.log)
	h.screen = screen.New(cfg.Screen, h.log)
	return nil
}

func openPowerSensor(bus string, addr int, log zerolog.Logger) ina219.Interface {
	pwrSen, err := ina219.NewI2C(bus, addr)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to open power sensor; ignoring")
		return nil
	}
	if err := pwrSen.Configure(ina219.ShuntOhms, ina219.MaxCurrent); err != nil {
		log.Warn().Err(err).Msg("Failed to configure power sensor; ignoring")
		return nil
	}
	return pwrSen
}

// Start runs the background device loops and waits for the heading source
// to come up.
func (h *Hardware) Start(ctx context.Context) error {
	go h.screen.Loop(ctx)
	go loopMonitoringPower(ctx, h.pico, h.power, h.screen, h.log)
	if h.gyro != nil {
		go h.gyro.Loop(ctx)
		return nil
	}
	go h.bno.LoopReadingReports(ctx)
	return errors.Wrap(h.bno.WaitForFirstReport(ctx, headingStartupTimeout), "heading sensor did not start")
}

func (h *Hardware) Screen() *screen.Screen {
	return h.screen
}

func (h *Hardware) SetWheelPowers(powers wheels.Set[float64]) error {
	return h.pico.SetWheelPowers(powers)
}

func (h *Hardware) WheelPositions() (wheels.Set[int], error) {
	return h.pico.WheelPositions()
}

func (h *Hardware) CurrentHeading() float64 {
	if h.gyro != nil {
		return h.gyro.CurrentHeading()
	}
	return h.bno.CurrentHeading()
}

func (h *Hardware) ReadRing() (rings.Reading, error) {
	return h.ringSensor.ReadRing()
}

func (h *Hardware) PlaySound(name string) {
	h.sound.Play(name)
}

// Shutdown zeros every actuator and releases the devices.
func (h *Hardware) Shutdown() {
	if err := h.Off(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to stop drive on shutdown")
	}
	for _, set := range []func(float64) error{h.SetConveyor, h.SetLauncher, h.SetLift, h.SetGrabber} {
		_ = set(0)
	}
	h.sound.Close()
	h.closeDevices()
}

func (h *Hardware) closeDevices() {
	if h.pico != nil {
		_ = h.pico.Close()
	}
	if h.pwm != nil {
		_ = h.pwm.Close()
	}
	if h.ringSensor != nil {
		_ = h.ringSensor.Close()
	}
}
