package midi

// MessageSource is a foreign collection of wire messages with sample
// positions, read in index order by EventBuffer.AddMessages.
type MessageSource interface {
	Len() int
	At(i int) (msg Message, samplePosition int)
}

// TimedMessage is a wire message at a sample position within a block.
type TimedMessage struct {
	Message        Message
	SamplePosition int
}

// TimedMessages is a MessageSource over a plain slice, read as is.
type TimedMessages []TimedMessage

func (m TimedMessages) Len() int { return len(m) }

func (m TimedMessages) At(i int) (Message, int) {
	return m[i].Message, m[i].SamplePosition
}

// MessageBuffer collects the wire messages a host delivers for one block,
// kept in chronological order. It lives on the host side of the boundary
// and may grow; the audio path only reads it.
type MessageBuffer struct {
	messages []TimedMessage
}

// NewMessageBuffer creates a buffer with room for capacity messages.
func NewMessageBuffer(capacity int) *MessageBuffer {
	return &MessageBuffer{
		messages: make([]TimedMessage, 0, capacity),
	}
}

// Add inserts msg after every message at or before samplePosition.
func (b *MessageBuffer) Add(msg Message, samplePosition int) {
	i := len(b.messages)
	for i > 0 && b.messages[i-1].SamplePosition > samplePosition {
		i--
	}
	b.messages = append(b.messages, TimedMessage{})
	copy(b.messages[i+1:], b.messages[i:])
	b.messages[i] = TimedMessage{Message: msg, SamplePosition: samplePosition}
}

func (b *MessageBuffer) Clear() {
	clear(b.messages)
	b.messages = b.messages[:0]
}

func (b *MessageBuffer) Len() int { return len(b.messages) }

func (b *MessageBuffer) At(i int) (Message, int) {
	return b.messages[i].Message, b.messages[i].SamplePosition
}

// Messages returns the buffered messages in order.
func (b *MessageBuffer) Messages() []TimedMessage {
	return b.messages
}
