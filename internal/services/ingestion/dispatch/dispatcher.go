package dispatch

import (
	"trackframe-worker-go/internal/models"
)

// Dispatcher hands a normalized event to a downstream sink. Implementations
// must not block the ingestion path for long and never return sink errors to
// the caller; failures are logged and counted.
type Dispatcher interface {
	Dispatch(ev models.InternalEvent)
}

// Direct invokes a handler synchronously for each event
type Direct struct {
	handler func(models.InternalEvent)
}

func NewDirect(handler func(models.InternalEvent)) *Direct {
	return &Direct{handler: handler}
}

func (d *Direct) Dispatch(ev models.InternalEvent) {
	if d.handler != nil {
		d.handler(ev)
	}
}

// Fanout dispatches every event to each sink in order
type Fanout []Dispatcher

func (f Fanout) Dispatch(ev models.InternalEvent) {
	for _, d := range f {
		if d != nil {
			d.Dispatch(ev)
		}
	}
}
