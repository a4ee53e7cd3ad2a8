package types

import (
	"io"
)

type Stream interface {
	io.Closer
}

// PlayStream is a playback in progress. Drain blocks until everything
// submitted so far has actually been played back by the device.
type PlayStream interface {
	Stream
	Drain() error
}

type RecordStream interface {
	Stream
}
