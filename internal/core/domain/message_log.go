package domain

// MessageLog is a bounded ring of chat messages addressed by logical index.
// Index 0 is the first message ever appended; once the ring is full the
// oldest entries are dropped and Offset advances past them.
type MessageLog struct {
	buf    []ChatMessage
	head   int // position of the oldest retained message in buf
	size   int
	offset int64
}

func NewMessageLog(capacity int) *MessageLog {
	if capacity < 1 {
		capacity = 1
	}
	return &MessageLog{buf: make([]ChatMessage, capacity)}
}

func (l *MessageLog) Append(msg ChatMessage) {
	if l.size < len(l.buf) {
		l.buf[(l.head+l.size)%len(l.buf)] = msg
		l.size++
		return
	}
	l.buf[l.head] = msg
	l.head = (l.head + 1) % len(l.buf)
	l.offset++
}

// Offset is the logical index of the oldest retained message.
func (l *MessageLog) Offset() int64 { return l.offset }

// Total is the number of messages ever appended, which is also the cursor
// a caller passes back to receive only newer messages.
func (l *MessageLog) Total() int64 { return l.offset + int64(l.size) }

func (l *MessageLog) Len() int { return l.size }

// Since returns the retained messages with logical index >= cursor. The
// cursor is clamped into [Offset, Total]; truncated is true when the caller
// asked for messages that have already been dropped.
func (l *MessageLog) Since(cursor int64) (msgs []ChatMessage, truncated bool) {
	if cursor < 0 {
		cursor = 0
	}
	if cursor < l.offset {
		truncated = true
		cursor = l.offset
	}
	total := l.Total()
	if cursor >= total {
		return []ChatMessage{}, truncated
	}

	start := int(cursor - l.offset)
	msgs = make([]ChatMessage, 0, l.size-start)
	for i := start; i < l.size; i++ {
		msgs = append(msgs, l.buf[(l.head+i)%len(l.buf)])
	}
	return msgs, truncated
}

// Last returns the most recent message, if any.
func (l *MessageLog) Last() (ChatMessage, bool) {
	if l.size == 0 {
		return ChatMessage{}, false
	}
	return l.buf[(l.head+l.size-1)%len(l.buf)], true
}
