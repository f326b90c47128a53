package bus

// Channel is a named broadcast group. Every frame published on it reaches all
// other members.
type Channel struct {
	// Name is the value of the channel query parameter.
	Name string

	// Clients are the current members.
	Clients map[*Client]struct{}
}

func newChannel(name string) *Channel {
	return &Channel{Name: name, Clients: make(map[*Client]struct{})}
}
