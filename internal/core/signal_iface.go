package core

// Frame is one encoded multiplexer frame.
type Frame []byte

// SignalConnection abstracts the transport a session is reached through.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
