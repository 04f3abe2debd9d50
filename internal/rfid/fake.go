package rfid

import "sync"

// Fake is a card reader driven by tests or remote commands. A presented
// card is read once.
type Fake struct {
	mu    sync.Mutex
	uid   []byte
	Halts int
}

// Present places a card in the field.
func (f *Fake) Present(uid []byte) {
	f.mu.Lock()
	f.uid = append([]byte(nil), uid...)
	f.mu.Unlock()
}

// CardPresent reports whether a card is waiting.
func (f *Fake) CardPresent() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uid != nil
}

// ReadUID takes the waiting card.
func (f *Fake) ReadUID() ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid := f.uid
	f.uid = nil
	return uid, uid != nil
}

// Halt counts halt requests.
func (f *Fake) Halt() {
	f.mu.Lock()
	f.Halts++
	f.mu.Unlock()
}
