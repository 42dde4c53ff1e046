package ports

import "context"

// ControlSession is the request/response command channel to the instrument.
// Writes and queries are synchronous and issued in call order.
type ControlSession interface {
	Write(ctx context.Context, cmd string) error
	Query(ctx context.Context, cmd string) (string, error)
	Close() error
}

type ControlConnector interface {
	Connect(ctx context.Context) (ControlSession, error)
}
