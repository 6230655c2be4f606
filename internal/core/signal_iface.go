package core

// Frame is a raw signaling payload, one JSON message on the wire.
type Frame []byte

// SignalConnection abstracts one peer's messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
