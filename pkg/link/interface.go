package link

import "github.com/itohio/pseudobend/pkg/telemetry"

// Device is a pseudobend controller seen from the host (real or mocked).
type Device interface {
	Connect() error
	Close() error
	Readings() <-chan telemetry.Reading
	Send(line string) error
	IsConnected() bool
}

var _ Device = (*Serial)(nil)

var _ Device = (*Mock)(nil)
