package playback

import "github.com/linuxmatters/earmark/internal/audio"

// Observer receives engine notifications. Calls arrive in order on the
// engine goroutine; a state change is always delivered before the position
// reset it implies. Implementations must not call back into the Engine
// synchronously.
type Observer interface {
	FileChanged(file *audio.LoadedFile)
	StateChanged(state State)
	PositionChanged(position int64)
	Error(err error)
}

// ObserverFuncs adapts optional functions to Observer. Nil fields are
// ignored.
type ObserverFuncs struct {
	OnFileChanged     func(*audio.LoadedFile)
	OnStateChanged    func(State)
	OnPositionChanged func(int64)
	OnError           func(error)
}

func (o ObserverFuncs) FileChanged(file *audio.LoadedFile) {
	if o.OnFileChanged != nil {
		o.OnFileChanged(file)
	}
}

func (o ObserverFuncs) StateChanged(state State) {
	if o.OnStateChanged != nil {
		o.OnStateChanged(state)
	}
}

func (o ObserverFuncs) PositionChanged(position int64) {
	if o.OnPositionChanged != nil {
		o.OnPositionChanged(position)
	}
}

func (o ObserverFuncs) Error(err error) {
	if o.OnError != nil {
		o.OnError(err)
	}
}
