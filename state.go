package opspod

// ConversationState is the input and output of one turn. Output is always
// Input followed by at most one new assistant message.
type ConversationState struct {
	Input  []Message `json:"input" yaml:"input"`
	Output []Message `json:"output" yaml:"output"`
}

// TurnResult is what Respond returns for a completed turn.
type TurnResult struct {
	ConversationState
	// Warning is ErrNoAssistantContent when the runner finished without a
	// usable reply. It is informational; the turn still succeeded.
	Warning error `json:"-"`
	Usage   Usage `json:"-"`
}

// Reply returns the assistant message added by the turn, if any.
func (r *TurnResult) Reply() (Message, bool) {
	if len(r.Output) == len(r.Input) {
		return Message{}, false
	}
	return r.Output[len(r.Output)-1], true
}
