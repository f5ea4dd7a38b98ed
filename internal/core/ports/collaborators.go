package ports

// RandomSource drives invite-code generation. Implementations must be safe
// for concurrent use.
type RandomSource interface {
	Intn(n int) int
}

// IDGenerator mints entity identifiers such as group, session and
// transaction ids.
type IDGenerator interface {
	NewID(prefix string) string
}
