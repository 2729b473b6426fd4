package kernel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MessageType names a kernel event.
type MessageType string

const (
	// MessageTurn carries a TurnResult after every processed input.
	MessageTurn MessageType = "TURN"
	// MessageLearned carries a LearnedEvent whenever memory was taught.
	MessageLearned MessageType = "LEARNED"
	// MessageReflection carries a reflection.Report after an idle pass.
	MessageReflection MessageType = "REFLECTION"
	// MessageCheckpoint carries a CheckpointEvent after every save attempt.
	MessageCheckpoint MessageType = "CHECKPOINT"
)

var allMessageTypes = []MessageType{MessageTurn, MessageLearned, MessageReflection, MessageCheckpoint}

// Message is the envelope delivered to subscribers.
type Message struct {
	ID        string
	Timestamp time.Time
	Type      MessageType
	Payload   interface{}
}

// Bus fans kernel events out to subscribers. Sends block while a
// subscriber's buffer is full, and every delivered message must be
// acknowledged before Shutdown returns.
type Bus struct {
	logger *zap.Logger

	subscribers map[MessageType][]chan Message
	mu          sync.RWMutex
	bufferSize  int

	processingWg  sync.WaitGroup
	activePostsWg sync.WaitGroup

	isShutdown bool
	shutdownMu sync.Mutex
}

// NewBus creates a bus whose subscriber channels hold bufferSize messages.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Bus{
		logger:      logger.Named("bus"),
		subscribers: make(map[MessageType][]chan Message),
		bufferSize:  bufferSize,
	}
}

// Post delivers payload to every subscriber of msgType.
func (b *Bus) Post(ctx context.Context, msgType MessageType, payload interface{}) (err error) {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return fmt.Errorf("cannot post message: bus is shut down")
	}
	b.activePostsWg.Add(1)
	b.shutdownMu.Unlock()
	defer b.activePostsWg.Done()

	// A send on a channel closed by Shutdown panics; the delivery is undone.
	defer func() {
		if r := recover(); r != nil {
			b.processingWg.Done()
			b.logger.Debug("Recovered from send during shutdown", zap.Any("panic", r))
			err = fmt.Errorf("failed to post message: bus is shutting down")
		}
	}()

	msg := Message{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Type:      msgType,
		Payload:   payload,
	}

	b.mu.RLock()
	subs := b.subscribers[msgType]
	if len(subs) == 0 {
		b.mu.RUnlock()
		return nil
	}
	targets := make([]chan Message, len(subs))
	copy(targets, subs)
	b.mu.RUnlock()

	for _, ch := range targets {
		b.processingWg.Add(1)
		select {
		case ch <- msg:
		case <-ctx.Done():
			b.processingWg.Done()
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe returns a channel receiving the given message types, or every
// type when none is named, and a function that unsubscribes and closes it.
func (b *Bus) Subscribe(msgTypes ...MessageType) (<-chan Message, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(msgTypes) == 0 {
		msgTypes = allMessageTypes
	}
	ch := make(chan Message, b.bufferSize)
	for _, t := range msgTypes {
		b.subscribers[t] = append(b.subscribers[t], ch)
	}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.isShutdownLocked() {
				return
			}
			for _, t := range msgTypes {
				subs := b.subscribers[t]
				for i, sub := range subs {
					if sub == ch {
						b.subscribers[t] = append(subs[:i], subs[i+1:]...)
						break
					}
				}
			}
			close(ch)
		})
	}
	return ch, unsubscribe
}

func (b *Bus) isShutdownLocked() bool {
	b.shutdownMu.Lock()
	defer b.shutdownMu.Unlock()
	return b.isShutdown
}

// Acknowledge marks a received message as processed.
func (b *Bus) Acknowledge(Message) {
	b.processingWg.Done()
}

// Shutdown closes every subscriber channel and waits for in-flight posts
// and unacknowledged deliveries.
func (b *Bus) Shutdown() {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return
	}
	b.isShutdown = true
	b.shutdownMu.Unlock()

	b.mu.Lock()
	unique := make(map[chan Message]struct{})
	for _, subs := range b.subscribers {
		for _, ch := range subs {
			unique[ch] = struct{}{}
		}
	}
	for ch := range unique {
		close(ch)
	}
	b.subscribers = make(map[MessageType][]chan Message)
	b.mu.Unlock()

	b.activePostsWg.Wait()
	b.processingWg.Wait()
}
