package hardware

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	monitorInterval = time.Second
	// Below this the motor board browns out under load.
	lowBatteryVolts = 10.5
)

type voltageReader interface {
	BattVolts() (float64, error)
}

type busVoltageReader interface {
	ReadBusVoltage() (float64, error)
	ReadCurrent() (float64, error)
}

type voltageDisplay interface {
	SetBusVoltage(v float64)
	SetWarning(w bool)
}

// loopMonitoringPower polls the battery and accessory rail and mirrors the
// battery voltage to the screen.
func loopMonitoringPower(ctx context.Context, batt voltageReader, rail busVoltageReader, disp voltageDisplay, log zerolog.Logger) {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		pollPower(batt, rail, disp, log)
	}
}

func pollPower(batt voltageReader, rail busVoltageReader, disp voltageDisplay, log zerolog.Logger) {
	v, err := batt.BattVolts()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read battery voltage")
	} else {
		disp.SetBusVoltage(v)
		disp.SetWarning(v < lowBatteryVolts)
		if v < lowBatteryVolts {
			log.Warn().Float64("volts", v).Msg("Battery low")
		}
	}
	if rail == nil {
		return
	}
	bv, err := rail.ReadBusVoltage()
	if err != nil {
		return
	}
	bc, err := rail.ReadCurrent()
	if err != nil {
		return
	}
	log.Debug().Float64("volts", bv).Float64("amps", bc).Msg("Accessory rail")
}
