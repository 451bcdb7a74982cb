package hardware

import (
	"github.com/15303/UltimateGoal/pkg/rings"
	"github.com/15303/UltimateGoal/pkg/wheels"
)

// Drivetrain is the four drive motors and their encoders.
type Drivetrain interface {
	// SetWheelPowers writes one power in [-1, 1] per wheel.
	SetWheelPowers(powers wheels.Set[float64]) error
	// WheelPositions returns the cumulative encoder ticks, positive forwards.
	WheelPositions() (wheels.Set[int], error)
}

// HeadingSensor returns the robot heading in degrees.  Reads come from the
// sensor's cached value and never block.
type HeadingSensor interface {
	CurrentHeading() float64
}

// Accessories are the non-drive actuators: intake roller, conveyor,
// launcher flywheel, wobble goal lift arm and grabber.  Powers are in
// [-1, 1].
type Accessories interface {
	SetIntake(power float64) error
	SetConveyor(power float64) error
	SetLauncher(power float64) error
	SetLift(power float64) error
	SetGrabber(power float64) error
	// Off zeros the drive and the intake.
	Off() error
}

type RingSensor interface {
	ReadRing() (rings.Reading, error)
}

// Robot bundles the devices a match needs.
type Robot interface {
	Drivetrain
	HeadingSensor
	Accessories
	RingSensor
	PlaySound(name string)
}
