package bus

// Recorder captures dispatched signals for tests. Connect it for the
// kinds under test with Record.
type Recorder struct {
	signals []Signal
}

func NewRecorder() *Recorder { return &Recorder{} }

// Record subscribes the recorder to every given kind on b.
func (r *Recorder) Record(b *Bus, kinds ...Kind) {
	for _, k := range kinds {
		b.Connect(k, func(p Payload) {
			r.signals = append(r.signals, Signal{Payload: p})
		})
	}
}

// Signals returns a copy of everything recorded so far.
func (r *Recorder) Signals() []Signal {
	out := make([]Signal, len(r.signals))
	copy(out, r.signals)
	return out
}

// Count returns how many signals of kind k were recorded.
func (r *Recorder) Count(k Kind) int {
	n := 0
	for _, s := range r.signals {
		if s.Kind() == k {
			n++
		}
	}
	return n
}
