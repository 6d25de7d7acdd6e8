package gpio

// Sample is one reading of both buttons (already in logical form).
type Sample struct {
	Send  bool // true = pressed
	Learn bool // true = pressed
}

// Script builds a sample sequence for a FakeReader. Each step appends n
// identical samples.
type Script []Sample

// Idle appends n samples with both buttons released.
func (s Script) Idle(n int) Script { return s.hold(Sample{}, n) }

// Send appends n samples with only Send held.
func (s Script) Send(n int) Script { return s.hold(Sample{Send: true}, n) }

// Learn appends n samples with only Learn held.
func (s Script) Learn(n int) Script { return s.hold(Sample{Learn: true}, n) }

// Both appends n samples with both buttons held.
func (s Script) Both(n int) Script { return s.hold(Sample{Send: true, Learn: true}, n) }

func (s Script) hold(sample Sample, n int) Script {
	for i := 0; i < n; i++ {
		s = append(s, sample)
	}
	return s
}

// FakeReader is a test double that returns scripted button levels.
// Once the script is exhausted the last sample repeats, like a button
// left in place.
type FakeReader struct {
	Samples []Sample
	index   int

	// Reads counts calls to Read, including failed ones.
	Reads int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Sample) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
func (f *FakeReader) Read() (bool, bool, error) {
	f.Reads++
	if f.ReadError != nil {
		return false, false, f.ReadError
	}
	if len(f.Samples) == 0 {
		return false, false, ErrNoSamples
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample.Send, sample.Learn, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the script.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Reads = 0
	f.Closed = false
}
