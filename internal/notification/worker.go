package notification

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/datatypes"

	"dorm-allocation-backend/internal/model"
	"dorm-allocation-backend/internal/store"
)

// ErrPoolClosed is returned by Notify after Close.
var ErrPoolClosed = errors.New("notification pool is closed")

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool delivers notifications in the background.
type WorkerPool struct {
	size    int
	jobs    chan Message
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewWorkerPool creates a new worker pool. A nil or keyless webpushOptions
// stores inbox rows without pushing.
func NewWorkerPool(size, queueSize int, s store.Store, webpushOptions *webpush.Options) *WorkerPool {
	if size < 1 {
		size = 1
	}
	if queueSize < size {
		queueSize = size
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Message, queueSize),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines. They stop when ctx is done or the
// pool is closed and drained.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	log.Printf("Worker %d started", id)
	for {
		select {
		case msg, ok := <-wp.jobs:
			if !ok {
				log.Printf("Worker %d drained", id)
				return
			}
			wp.deliver(ctx, msg)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Notify queues msg, blocking while the queue is full.
func (wp *WorkerPool) Notify(ctx context.Context, msg Message) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return ErrPoolClosed
	}
	select {
	case wp.jobs <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting messages and waits for the workers to finish.
func (wp *WorkerPool) Close() {
	wp.mu.Lock()
	if !wp.closed {
		wp.closed = true
		close(wp.jobs)
	}
	wp.mu.Unlock()
	wp.wg.Wait()
}

// deliver writes the inbox row, then pushes to every subscription of the user.
func (wp *WorkerPool) deliver(ctx context.Context, msg Message) {
	row := &model.Notification{
		UserID:  msg.UserID,
		Type:    msg.Type,
		Title:   msg.Title,
		Message: msg.Body,
	}
	if len(msg.Data) > 0 {
		data, err := json.Marshal(msg.Data)
		if err != nil {
			log.Printf("Error encoding data for %s notification to user %d: %v", msg.Type, msg.UserID, err)
		} else {
			row.Data = datatypes.JSON(data)
		}
	}
	if err := wp.store.CreateNotification(ctx, row); err != nil {
		log.Printf("Error storing notification: %v", err)
		return
	}

	if wp.webpush == nil || wp.webpush.VAPIDPrivateKey == "" {
		return
	}

	subscriptions, err := wp.store.UserSubscriptions(ctx, msg.UserID)
	if err != nil {
		log.Printf("Error fetching subscriptions for user %d: %v", msg.UserID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error encoding push payload for user %d: %v", msg.UserID, err)
		return
	}
	log.Printf("Sending %d push notifications to user %d", len(subscriptions), msg.UserID)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
