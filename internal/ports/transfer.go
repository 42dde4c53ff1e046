package ports

import (
	"context"

	"github.com/abruno-tek/Oscope-automation/internal/domain"
)

// TransferSession is the bulk waveform channel. Waveform must only be called
// between WaitForDataAccess and FinishedWithDataAccess; while access is held
// the instrument does not overwrite the acquisition buffer.
type TransferSession interface {
	WaitForDataAccess(ctx context.Context) error
	FinishedWithDataAccess(ctx context.Context) error
	Waveform(ctx context.Context, source string) (*domain.AnalogWaveform, error)
	Close() error
}

type TransferConnector interface {
	Connect(ctx context.Context) (TransferSession, error)
}
