package capture

import "github.com/Veraticus/spice-capture/internal/model"

// Observer is told how captures and confirmations end.
type Observer interface {
	// CaptureFinished is called once per capture attempt. err is nil when a
	// validated analysis was accepted.
	CaptureFinished(mode model.InputMode, err error)
	// Finalized is called once per confirmation that reached the finalizer.
	Finalized(source string, err error)
}

type nopObserver struct{}

func (nopObserver) CaptureFinished(model.InputMode, error) {}
func (nopObserver) Finalized(string, error)                {}

// Observers fans out to several observers.
type Observers []Observer

// CaptureFinished implements Observer.
func (o Observers) CaptureFinished(mode model.InputMode, err error) {
	for _, obs := range o {
		obs.CaptureFinished(mode, err)
	}
}

// Finalized implements Observer.
func (o Observers) Finalized(source string, err error) {
	for _, obs := range o {
		obs.Finalized(source, err)
	}
}
