//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"

	"github.com/itohio/pseudobend/pkg/board/hx711"
	"github.com/itohio/pseudobend/pkg/clock"
	"github.com/itohio/pseudobend/pkg/command"
	"github.com/itohio/pseudobend/pkg/force"
	"github.com/itohio/pseudobend/pkg/haptics"
	"github.com/itohio/pseudobend/pkg/pulse"
	"github.com/itohio/pseudobend/pkg/store"
	"github.com/itohio/pseudobend/pkg/telemetry"
)

var (
	serial = machine.Serial

	// Serial buffer for reading lines
	lines command.LineBuffer
)

func main() {
	serial.Configure(machine.UARTConfig{BaudRate: UART_BAUD_RATE})

	st, err := store.OpenBlock(machine.Flash)
	if err != nil {
		halt("store", err)
	}

	left, err := newPWMActuator(PWM_LEFT, PIN_LEFT_PWM)
	if err != nil {
		halt("left pwm", err)
	}
	right, err := newPWMActuator(PWM_RIGHT, PIN_RIGHT_PWM)
	if err != nil {
		halt("right pwm", err)
	}

	s := haptics.DefaultSettings()
	s.LoopInterval = LOOP_INTERVAL_US * time.Microsecond

	engine, err := haptics.New(haptics.Hardware{
		Clock: clock.NewSystem(),
		Sensors: [2]force.Sensor{
			hx711.New(newHXPins(PIN_LEFT_CLOCK, PIN_LEFT_DATA)),
			hx711.New(newHXPins(PIN_RIGHT_CLOCK, PIN_RIGHT_DATA)),
		},
		Actuators: [2]pulse.Actuator{left, right},
		Store:     st,
	}, s, telemetry.NewLineSink(serial))
	if err != nil {
		halt("engine", err)
	}

	println("Taring...")
	if err := engine.TareAll(); err != nil {
		println("tare:", err.Error())
	}
	print(engine.Snapshot().String())
	print(command.Usage)

	// Main loop
	for {
		processSerial(engine)

		if err := engine.Step(); err != nil {
			println("step:", err.Error())
		}

		time.Sleep(s.LoopInterval)
	}
}

func processSerial(engine *haptics.Engine) {
	for serial.Buffered() > 0 {
		data, err := serial.ReadByte()
		if err != nil {
			break
		}
		if line, ok := lines.Feed(data); ok {
			engine.HandleInput(line)
		}
	}
}

// halt reports a fatal startup error forever.
func halt(what string, err error) {
	for {
		println(what+":", err.Error())
		time.Sleep(time.Second)
	}
}
