// Package config loads the robot configuration.  Every field has a default
// in Default(); a YAML file only needs to carry the values that differ.
package config

import (
	"io/ioutil"
	"os"
	"time"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

const DefaultPath = "/cfg/ringbot.yaml"

type Config struct {
	Drive    Drive    `yaml:"drive"`
	Position Position `yaml:"position"`
	Hardware Hardware `yaml:"hardware"`
	Rings    Rings    `yaml:"rings"`
	Match    Match    `yaml:"match"`
	Log      Log      `yaml:"log"`
}

type Drive struct {
	// Multiplicative trim per side; the competition chassis pulls left.
	LeftTrim  float64 `yaml:"leftTrim"`
	RightTrim float64 `yaml:"rightTrim"`

	// HeadingGain divides the heading error in degrees; smaller is stronger.
	HeadingGain float64 `yaml:"headingGain"`
	// WrapHeadingError normalises the heading error into (-180, 180].
	// Turn it off to get the old raw-difference behaviour.
	WrapHeadingError bool `yaml:"wrapHeadingError"`

	// TickInterval is the control loop period.  Must be <= 20ms.
	TickInterval time.Duration `yaml:"tickInterval"`
	// DefaultRamp caps the ramp used by a timed drive that doesn't name
	// one; the ramp is min(DefaultRamp, duration).
	DefaultRamp time.Duration `yaml:"defaultRamp"`
}

type Position struct {
	ToleranceTicks int           `yaml:"toleranceTicks"`
	SettleDwell    time.Duration `yaml:"settleDwell"`
	DecelTicks     float64       `yaml:"decelTicks"`
	AccelOffset    float64       `yaml:"accelOffset"`
	AccelPerSecond float64       `yaml:"accelPerSecond"`
	AccelFloor     float64       `yaml:"accelFloor"`
	SettleFloor    float64       `yaml:"settleFloor"`
	// Timeout ends a positional move that runs for too long.  0 disables.
	Timeout time.Duration `yaml:"timeout"`
}

type Hardware struct {
	I2CBus   string `yaml:"i2cBus"`
	PicoAddr int    `yaml:"picoAddr"`
	PWMAddr  int    `yaml:"pwmAddr"`

	// HeadingSource is "bno08x" (UART fusion IMU) or "gyro" (SPI rate gyro).
	HeadingSource string `yaml:"headingSource"`
	IMUSerial     string `yaml:"imuSerial"`
	GyroSPI       string `yaml:"gyroSPI"`

	RingSensorAddr  int `yaml:"ringSensorAddr"`
	// PowerSensorAddr is the accessory rail monitor.  0 disables it.
	PowerSensorAddr int `yaml:"powerSensorAddr"`

	// PWM channels on the accessory board.
	Channels Channels `yaml:"channels"`

	SoundDir string `yaml:"soundDir"`
	Screen   string `yaml:"screen"`
	Joystick string `yaml:"joystick"`
	Camera   int    `yaml:"camera"`
}

type Channels struct {
	Launcher int `yaml:"launcher"`
	Intake   int `yaml:"intake"`
	Conveyor int `yaml:"conveyor"`
	Lift     int `yaml:"lift"`
	Grabber  int `yaml:"grabber"`
}

type Rings struct {
	// A reading counts as orange when red/green >= MinRedGreenRatio and
	// blue makes up at most MaxBlueFraction of the total.
	MinRedGreenRatio float64 `yaml:"minRedGreenRatio"`
	MaxBlueFraction  float64 `yaml:"maxBlueFraction"`
	// Distances to the top of the stack, in mm.
	MaxStackDistanceMM float64 `yaml:"maxStackDistanceMM"`
	TallStackMaxMM     float64 `yaml:"tallStackMaxMM"`
	// SettleDelay is how long to wait after arriving before sampling.
	SettleDelay time.Duration `yaml:"settleDelay"`

	// Vision: HSV range for ring orange and the height/width ratio above
	// which a stack is labelled Quad.
	HSV            HSVRange `yaml:"hsv"`
	QuadMinAspect  float64  `yaml:"quadMinAspect"`
	MinContourArea float64  `yaml:"minContourArea"`
}

type HSVRange struct {
	HueMin uint8 `yaml:"hueMin"`
	HueMax uint8 `yaml:"hueMax"`
	SatMin uint8 `yaml:"satMin"`
	SatMax uint8 `yaml:"satMax"`
	ValMin uint8 `yaml:"valMin"`
	ValMax uint8 `yaml:"valMax"`
}

type Match struct {
	AutonomousPeriod time.Duration `yaml:"autonomousPeriod"`
	TeleopPeriod     time.Duration `yaml:"teleopPeriod"`
}

type Log struct {
	Level string `yaml:"level"`
}

func Default() Config {
	return Config{
		Drive: Drive{
			LeftTrim:         0.9,
			RightTrim:        1.0,
			HeadingGain:      40,
			WrapHeadingError: true,
			TickInterval:     10 * time.Millisecond,
			DefaultRamp:      time.Second,
		},
		Position: Position{
			ToleranceTicks: 15,
			SettleDwell:    200 * time.Millisecond,
			DecelTicks:     150,
			AccelPerSecond: 1,
			AccelFloor:     0.05,
			SettleFloor:    0.02,
		},
		Hardware: Hardware{
			I2CBus:          "/dev/i2c-1",
			PicoAddr:        0x42,
			PWMAddr:         0x40,
			HeadingSource:   "bno08x",
			IMUSerial:       "/dev/ttyAMA0",
			GyroSPI:         "/dev/spidev0.1",
			RingSensorAddr:  0x52,
			PowerSensorAddr: 0x41,
			Channels: Channels{
				Launcher: 0,
				Intake:   1,
				Conveyor: 2,
				Lift:     3,
				Grabber:  4,
			},
			SoundDir: "/sounds",
			Screen:   "/dev/fb1",
			Joystick: "/dev/input/js0",
			Camera:   0,
		},
		Rings: Rings{
			MinRedGreenRatio:   1.3,
			MaxBlueFraction:    0.25,
			MaxStackDistanceMM: 80,
			TallStackMaxMM:     40,
			SettleDelay:        time.Second,
			HSV:                HSVRange{HueMin: 5, HueMax: 25, SatMin: 120, SatMax: 255, ValMin: 100, ValMax: 255},
			QuadMinAspect:      0.5,
			MinContourArea:     150,
		},
		Match: Match{
			AutonomousPeriod: 30 * time.Second,
			TeleopPeriod:     2 * time.Minute,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads path over the defaults.  A missing file is not an error: the
// defaults are returned and found is false.
func Load(path string) (cfg Config, found bool, err error) {
	cfg = Default()
	raw, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, false, nil
	}
	if err != nil {
		return cfg, false, errors.Wrapf(err, "failed to read config %s", path)
	}
	if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
		return cfg, true, errors.Wrapf(err, "failed to parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, true, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, true, nil
}

func Marshal(cfg Config) ([]byte, error) {
	raw, err := yaml.Marshal(&cfg)
	return raw, errors.Wrap(err, "failed to marshal config")
}

// Write dumps the config in use, so a run can be reproduced from its log dir.
func Write(path string, cfg Config) error {
	raw, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return errors.Wrapf(ioutil.WriteFile(path, raw, 0666), "failed to write config %s", path)
}

func (c Config) Validate() error {
	switch {
	case c.Drive.LeftTrim <= 0 || c.Drive.RightTrim <= 0:
		return errors.New("drive trims must be positive")
	case c.Drive.HeadingGain == 0:
		return errors.New("drive.headingGain must not be zero")
	case c.Drive.TickInterval <= 0 || c.Drive.TickInterval > 20*time.Millisecond:
		return errors.Errorf("drive.tickInterval %v out of range (0, 20ms]", c.Drive.TickInterval)
	case c.Drive.DefaultRamp < 0:
		return errors.New("drive.defaultRamp must not be negative")
	case c.Position.ToleranceTicks < 0:
		return errors.New("position.toleranceTicks must not be negative")
	case c.Position.SettleDwell < 0:
		return errors.New("position.settleDwell must not be negative")
	case c.Position.DecelTicks < 0 || c.Position.AccelPerSecond < 0:
		return errors.New("position clamps must not be negative")
	case c.Position.AccelFloor < 0 || c.Position.SettleFloor < 0:
		return errors.New("position floors must not be negative")
	case c.Position.Timeout < 0:
		return errors.New("position.timeout must not be negative")
	case c.Hardware.HeadingSource != "bno08x" && c.Hardware.HeadingSource != "gyro":
		return errors.Errorf("unknown hardware.headingSource %q", c.Hardware.HeadingSource)
	case c.Rings.TallStackMaxMM > c.Rings.MaxStackDistanceMM:
		return errors.New("rings.tallStackMaxMM must not exceed rings.maxStackDistanceMM")
	}
	return nil
}
