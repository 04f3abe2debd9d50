package eeprom

// Write is one recorded store write.
type Write struct {
	Offset int
	Data   []byte
}

// Fake is an in-memory store that records every write.
type Fake struct {
	mem []byte

	// Writes contains every write in order, including failed ones.
	Writes []Write

	// ReadError and WriteError, if set, are returned by Read and Write.
	ReadError  error
	WriteError error
}

// NewFake returns an erased in-memory store.
func NewFake() *Fake {
	return &Fake{mem: erased(Size)}
}

// Read returns a copy of the stored bytes.
func (f *Fake) Read(offset, length int) ([]byte, error) {
	if f.ReadError != nil {
		return nil, f.ReadError
	}
	if err := checkRange(offset, length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, f.mem[offset:])
	return out, nil
}

// Write records and stores data.
func (f *Fake) Write(offset int, data []byte) error {
	f.Writes = append(f.Writes, Write{Offset: offset, Data: append([]byte(nil), data...)})
	if f.WriteError != nil {
		return f.WriteError
	}
	if err := checkRange(offset, len(data)); err != nil {
		return err
	}
	copy(f.mem[offset:], data)
	return nil
}

// Reset erases the memory and forgets recorded writes.
func (f *Fake) Reset() {
	f.mem = erased(Size)
	f.Writes = nil
}
