// Command bend runs the pseudo-haptic controller on a Linux single board
// computer: two HX711 load cells in, two PWM actuators out.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/itohio/pseudobend/pkg/board/hx711"
	"github.com/itohio/pseudobend/pkg/board/pwm"
	"github.com/itohio/pseudobend/pkg/board/sim"
	"github.com/itohio/pseudobend/pkg/clock"
	"github.com/itohio/pseudobend/pkg/command"
	"github.com/itohio/pseudobend/pkg/config"
	"github.com/itohio/pseudobend/pkg/force"
	"github.com/itohio/pseudobend/pkg/haptics"
	"github.com/itohio/pseudobend/pkg/pulse"
	"github.com/itohio/pseudobend/pkg/store"
	"github.com/itohio/pseudobend/pkg/telemetry"
)

func main() {
	var (
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		envFlag    = flag.String("env", ".env", "Environment file with PSEUDOBEND_* overrides")
		simFlag    = flag.Bool("sim", false, "Use simulated sensors and actuators")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.LoadEnv(*envFlag); err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}

	st, err := store.OpenFile(cfg.Store.Path)
	if err != nil {
		log.Fatalf("Failed to open calibration store: %v", err)
	}

	clk := clock.NewSystem()
	hw := haptics.Hardware{Clock: clk, Store: st}
	if *simFlag {
		simHardware(&hw, clk, &cfg.Mock)
	} else {
		closers, err := boardHardware(&hw, &cfg.Board)
		if err != nil {
			log.Fatalf("Failed to open hardware: %v", err)
		}
		defer closers()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	con, err := newConsole()
	if err != nil {
		log.Fatalf("Failed to start console: %v", err)
	}
	defer con.Close()

	sinks := telemetry.Multi{telemetry.NewLineSink(con.Stdout())}
	if m := cfg.MQTT(); m.Broker != "" {
		pub, err := telemetry.DialMQTT(m)
		if err != nil {
			log.Printf("MQTT disabled: %v", err)
		} else {
			defer pub.Close()
			sinks = append(sinks, pub)
		}
	}

	engine, err := haptics.New(hw, cfg.Engine(), sinks)
	if err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}

	log.Println("Taring...")
	if err := engine.TareAll(); err != nil {
		log.Printf("Tare failed: %v", err)
	}
	log.Print(engine.Snapshot())
	log.Print(command.Usage)

	input := make(chan string, 10)
	go con.Run(ctx, stop, input)

	if err := engine.Run(ctx, input); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Engine stopped: %v", err)
	}
	log.Println("Stopped")
}

func simHardware(hw *haptics.Hardware, clk clock.Clock, m *config.MockConfig) {
	left := sim.NewFuncSensor(sim.Press(clk, m.Period, m.Offset, m.Peak))
	right := sim.NewFuncSensor(sim.Press(clk, m.Period*3/2, m.Offset, m.Peak))
	hw.Sensors = [2]force.Sensor{
		sim.NewPaced(left, clk, m.SampleRate),
		sim.NewPaced(right, clk, m.SampleRate),
	}
	hw.Actuators = [2]pulse.Actuator{sim.NewActuator(), sim.NewActuator()}
}

func boardHardware(hw *haptics.Hardware, b *config.BoardConfig) (func(), error) {
	var lines []*hx711.Lines
	closeAll := func() {
		for _, l := range lines {
			if err := l.Close(); err != nil {
				log.Printf("Error closing lines: %v", err)
			}
		}
	}

	sides := [2]config.SideConfig{b.Left, b.Right}
	for _, side := range force.Sides {
		sc := sides[side]

		l, err := hx711.NewLines(b.Chip, sc.Clock, sc.Data)
		if err != nil {
			closeAll()
			return nil, err
		}
		lines = append(lines, l)
		hw.Sensors[side] = hx711.New(l)

		a, err := pwm.Open(sc.PWM, pwm.DefaultCarrier)
		if err != nil {
			closeAll()
			return nil, err
		}
		hw.Actuators[side] = a
	}
	return closeAll, nil
}
