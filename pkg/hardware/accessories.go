package hardware

import (
	"github.com/pkg/errors"

	"github.com/15303/UltimateGoal/pkg/config"
	"github.com/15303/UltimateGoal/pkg/pca9685"
	"github.com/15303/UltimateGoal/pkg/wheels"
)

type throttler interface {
	SetThrottle(port int, value float64) error
}

// pwmAccessories drives the accessory motor controllers from the PWM board.
type pwmAccessories struct {
	pwm   throttler
	ch    config.Channels
	drive Drivetrain
}

var _ Accessories = (*pwmAccessories)(nil)

func newPWMAccessories(pwm pca9685.Interface, ch config.Channels, drive Drivetrain) *pwmAccessories {
	return &pwmAccessories{pwm: pwm, ch: ch, drive: drive}
}

func (a *pwmAccessories) set(name string, port int, power float64) error {
	return errors.Wrapf(a.pwm.SetThrottle(port, power), "failed to set %s power", name)
}

func (a *pwmAccessories) SetIntake(power float64) error {
	return a.set("intake", a.ch.Intake, power)
}

func (a *pwmAccessories) SetConveyor(power float64) error {
	return a.set("conveyor", a.ch.Conveyor, power)
}

func (a *pwmAccessories) SetLauncher(power float64) error {
	return a.set("launcher", a.ch.Launcher, power)
}

func (a *pwmAccessories) SetLift(power float64) error {
	return a.set("lift", a.ch.Lift, power)
}

func (a *pwmAccessories) SetGrabber(power float64) error {
	return a.set("grabber", a.ch.Grabber, power)
}

func (a *pwmAccessories) Off() error {
	driveErr := a.drive.SetWheelPowers(wheels.Set[float64]{})
	intakeErr := a.SetIntake(0)
	if driveErr != nil {
		return errors.Wrap(driveErr, "failed to stop drive")
	}
	return intakeErr
}
