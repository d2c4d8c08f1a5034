package skein

import (
	"sync"
	"time"
)

// MsgKind classifies an inter-context message payload.
type MsgKind int

const (
	MsgTokens MsgKind = iota
	MsgText
	MsgCompletion
	MsgEmbedding
	MsgControl
	MsgQuery
	MsgResponse
)

// String returns the uppercase message kind name.
func (k MsgKind) String() string {
	switch k {
	case MsgTokens:
		return "TOKENS"
	case MsgText:
		return "TEXT"
	case MsgCompletion:
		return "COMPLETION"
	case MsgEmbedding:
		return "EMBEDDING"
	case MsgControl:
		return "CONTROL"
	case MsgQuery:
		return "QUERY"
	case MsgResponse:
		return "RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// Message is one inter-context payload. The queue owns deep copies of the
// payload slices; a delivered message is the receiver's to keep.
type Message struct {
	Kind   MsgKind
	From   int
	To     int
	Seq    uint64
	SentAt time.Time

	// Tokens carries MsgTokens payloads; Data carries everything else.
	Tokens []Token
	Data   []byte
}

// recvPollInterval is how often a blocked Recv re-checks the queue.
const recvPollInterval = time.Millisecond

// msgQueue is a fixed-capacity FIFO ring. One slot is sacrificed for the
// full test, so the backing array holds capacity+1 entries. The mutex
// covers head, tail, and seq: senders may run on other goroutines.
type msgQueue struct {
	mu   sync.Mutex
	buf  []Message
	head int
	tail int
	seq  uint64
}

func newMsgQueue(capacity int) *msgQueue {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	return &msgQueue{buf: make([]Message, capacity+1)}
}

func (q *msgQueue) push(msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	next := (q.tail + 1) % len(q.buf)
	if next == q.head {
		return ErrQueueFull
	}
	q.seq++
	msg.Seq = q.seq
	q.buf[q.tail] = msg
	q.tail = next
	return nil
}

func (q *msgQueue) pop() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == q.tail {
		return Message{}, false
	}
	msg := q.buf[q.head]
	q.buf[q.head] = Message{}
	q.head = (q.head + 1) % len(q.buf)
	return msg, true
}

func (q *msgQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := q.tail - q.head
	if n < 0 {
		n += len(q.buf)
	}
	return n
}

func (q *msgQueue) clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.buf {
		q.buf[i] = Message{}
	}
	q.head = 0
	q.tail = 0
}

// Send enqueues msg on to's queue. Payload slices are deep-copied so the
// sender may reuse its buffers. A full queue rejects with ErrQueueFull.
func (c *Context) Send(to *Context, msg Message) error {
	if c == nil || to == nil {
		return ErrInvalidContext
	}
	if err := c.env.checkMember(to); err != nil {
		return err
	}
	msg.From = c.id
	msg.To = to.id
	msg.SentAt = time.Now()
	if msg.Tokens != nil {
		msg.Tokens = append([]Token(nil), msg.Tokens...)
	}
	if msg.Data != nil {
		msg.Data = append([]byte(nil), msg.Data...)
	}
	return to.queue.push(msg)
}

// SendTokens sends a MsgTokens message.
func (c *Context) SendTokens(to *Context, toks []Token) error {
	return c.Send(to, Message{Kind: MsgTokens, Tokens: toks})
}

// SendText sends a MsgText message.
func (c *Context) SendText(to *Context, text string) error {
	return c.Send(to, Message{Kind: MsgText, Data: []byte(text)})
}

// HasMessages reports whether the queue holds at least one message.
func (c *Context) HasMessages() bool {
	if c == nil {
		return false
	}
	return c.queue.len() > 0
}

// QueueLen returns the number of queued messages.
func (c *Context) QueueLen() int {
	if c == nil {
		return 0
	}
	return c.queue.len()
}

// Recv dequeues the oldest message, blocking until one arrives. A zero
// timeout blocks forever; otherwise ErrTimeout after the deadline. While
// blocked the context reports WAITING.
func (c *Context) Recv(timeout time.Duration) (Message, error) {
	if c == nil {
		return Message{}, ErrInvalidContext
	}

	if msg, ok := c.queue.pop(); ok {
		c.notifyMessage(msg)
		return msg, nil
	}

	prev := c.State()
	c.setState(StateWaiting)
	defer c.setState(prev)

	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		if msg, ok := c.queue.pop(); ok {
			c.notifyMessage(msg)
			return msg, nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return Message{}, ErrTimeout
		}
		time.Sleep(recvPollInterval)
	}
}

func (c *Context) notifyMessage(msg Message) {
	c.env.mu.Lock()
	obs := append([]ContextObserver(nil), c.observers...)
	c.env.mu.Unlock()
	for _, o := range obs {
		o.MessageReceived(c, msg)
	}
}
