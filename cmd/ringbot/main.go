package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/15303/UltimateGoal/pkg/config"
	"github.com/15303/UltimateGoal/pkg/hardware"
	"github.com/15303/UltimateGoal/pkg/motion"
	"github.com/15303/UltimateGoal/pkg/sound"
	"github.com/15303/UltimateGoal/pkg/telemetry"
)

// How long shutdown may take after a signal before we give up on it.
const shutdownGrace = 2 * time.Second

type CLI struct {
	ConfigFile string `name:"config" help:"Config file; missing means defaults." default:"/cfg/ringbot.yaml" type:"path"`
	Sim        bool   `help:"Drive the simulated robot instead of the hardware."`
	LogLevel   string `help:"Log level, overriding log.level in the config."`

	Auto   AutoCmd   `cmd:"" help:"Run an autonomous routine."`
	Teleop TeleopCmd `cmd:"" help:"Drive from the gamepad."`
	Timed  TimedCmd  `cmd:"" help:"Drive at a power for a duration."`
	Goto   GotoCmd   `cmd:"" help:"Drive a number of encoder ticks."`
	Rings  RingsCmd  `cmd:"" help:"Sample the ring sensor (and optionally the camera)."`
	Joy    JoyCmd    `cmd:"" help:"Log gamepad events."`
	Config ConfigCmd `cmd:"" help:"Print the config in use."`
}

// Runtime is what every command runs against.  The robot is only opened by
// commands that need it.
type Runtime struct {
	ctx context.Context
	cfg config.Config
	log zerolog.Logger
	sim bool

	hw     *hardware.Hardware
	simBot *hardware.Sim
	robot  hardware.Robot
	sink   telemetry.Sink
}

func newRuntime(ctx context.Context, cfg config.Config, log zerolog.Logger, sim bool) *Runtime {
	return &Runtime{ctx: ctx, cfg: cfg, log: log, sim: sim, sink: telemetry.Nop{}}
}

func (rt *Runtime) open() error {
	if rt.sim {
		rt.simBot = hardware.NewSim(rt.log)
		go rt.simBot.Loop(rt.ctx, rt.cfg.Drive.TickInterval)
		rt.robot = rt.simBot
		rt.sink = telemetry.NewLog(rt.log)
		rt.log.Info().Msg("Using the simulated robot")
		return nil
	}

	hw, err := hardware.New(rt.cfg.Hardware, rt.log)
	if err != nil {
		return err
	}
	if err := hw.Start(rt.ctx); err != nil {
		hw.Shutdown()
		return err
	}
	rt.hw = hw
	rt.robot = hw
	rt.sink = telemetry.Multi(telemetry.NewLog(rt.log), telemetry.NewScreen(hw.Screen()))
	hw.PlaySound(sound.Ready)
	return nil
}

func (rt *Runtime) close() {
	if rt.hw == nil {
		return
	}
	rt.log.Info().Msg("Zeroing motors for shut down")
	rt.hw.Shutdown()
	time.Sleep(100 * time.Millisecond)
}

func (rt *Runtime) scheduler(env motion.Environment) *motion.Scheduler {
	ctrl := motion.NewController(rt.robot, rt.robot, env, rt.cfg, rt.log)
	ctrl.SetTelemetry(rt.sink)
	return motion.NewScheduler(ctrl, rt.log)
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("ringbot"),
		kong.Description("Ultimate Goal robot controller."),
		kong.UsageOnError(),
	)

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}).
		With().Timestamp().Logger()
	log.Info().Int("GOMAXPROCS", runtime.GOMAXPROCS(0)).Msg("---- ringbot ----")

	cfg, found, err := config.Load(cli.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if !found {
		log.Info().Str("path", cli.ConfigFile).Msg("No config file, using defaults")
	}
	level := cfg.Log.Level
	if cli.LogLevel != "" {
		level = cli.LogLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Fatal().Err(err).Msg("Bad log level")
	}
	log = log.Level(lvl)

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	registerSignalHandlers(cancel, log)

	err = kctx.Run(newRuntime(ctx, cfg, log, cli.Sim))
	kctx.FatalIfErrorf(err)
}

func registerSignalHandlers(cancel context.CancelFunc, log zerolog.Logger) {
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Info().Stringer("signal", s).Msg("Signal received, shutting down")
		cancel()
		time.Sleep(shutdownGrace)
		log.Error().Msg("Shutdown timed out")
		os.Exit(1)
	}()
}
