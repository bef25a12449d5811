//go:build tinygo

package main

import "machine"

const (
	// Load cell amplifiers
	PIN_LEFT_CLOCK  = machine.D1
	PIN_LEFT_DATA   = machine.D0
	PIN_RIGHT_CLOCK = machine.D4
	PIN_RIGHT_DATA  = machine.D5

	// Actuator PWM outputs
	PIN_LEFT_PWM  = machine.D2
	PIN_RIGHT_PWM = machine.D3

	// PWM carrier, far above the vibration modulation
	PWM_CARRIER_HZ = 100_000

	// Serial configuration
	// Telemetry "<left>,<right>\n" is at most 24 bytes every 30ms = 800 bytes/sec,
	// well inside 115200 baud.
	UART_BAUD_RATE = 115200

	// Loop period
	LOOP_INTERVAL_US = 100
)

var (
	PWM_LEFT  = machine.TCC1
	PWM_RIGHT = machine.TCC1
)
