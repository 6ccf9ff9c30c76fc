package framework

// messageStore holds the messages of one iteration. Controllers see
// them in posting order and take the ones they handle.
type messageStore struct {
	msgs []Message
}

type messageContext struct {
	store *messageStore
	msg   Message
	taken bool
	stop  bool
}

func (c *messageContext) CurrentMessage() Message     { return c.msg }
func (c *messageContext) MessageTaken()               { c.taken = true }
func (c *messageContext) StopProcessing()             { c.stop = true }
func (c *messageContext) AddMessages(msgs ...Message) { c.store.AddMessages(msgs...) }

// ProcessMessages implements MessageStore. Messages added while
// processing are kept for later controllers but not visited now.
func (s *messageStore) ProcessMessages(proc MessageProcessor) {
	pending := s.msgs
	s.msgs = nil
	remains := make([]Message, 0, len(pending))
	for i, msg := range pending {
		mctx := &messageContext{store: s, msg: msg}
		proc.ProcessMessage(mctx)
		if !mctx.taken {
			remains = append(remains, msg)
		}
		if mctx.stop {
			remains = append(remains, pending[i+1:]...)
			break
		}
	}
	s.msgs = append(remains, s.msgs...)
}

// AddMessages implements MessageAppender.
func (s *messageStore) AddMessages(msgs ...Message) {
	s.msgs = append(s.msgs, msgs...)
}

func (s *messageStore) len() int {
	return len(s.msgs)
}
