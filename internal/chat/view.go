package chat

// View renders transcript changes. The client never hands out references to
// its turns; a view only gets indexes and text, so rendering can be swapped
// without touching the state.
//
// Calls are made from the goroutine running Client.Submit, one at a time.
type View interface {
	// TurnAdded is called after a turn was appended at index i.
	TurnAdded(i int, turn Turn)
	// TurnExtended is called when chunk was appended to the streaming turn at index i.
	TurnExtended(i int, chunk string)
	// SetBusy toggles the send affordance. True means the input was cleared
	// and submission is disabled; false means submission is enabled again and
	// the input should take focus.
	SetBusy(busy bool)
}

// nopView discards everything.
type nopView struct{}

func (nopView) TurnAdded(int, Turn) {}
func (nopView) TurnExtended(int, string) {}
func (nopView) SetBusy(bool) {}
