// Package notify fans event updates out to ticket holders as in-app
// notifications, browser push and optional email.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ms-eventpass/internal/apperrors"
	"ms-eventpass/internal/kafka"
	"ms-eventpass/internal/logger"
	"ms-eventpass/internal/models"
	"ms-eventpass/internal/notify/mailer"
	"ms-eventpass/internal/notify/push"
	"ms-eventpass/internal/utils"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
)

// updateKeySpace namespaces derived update keys.
var updateKeySpace = uuid.MustParse("6f1d3c52-8a0e-4c1b-9a55-2f7c4d0e9b31")

type NotifyDBLayer interface {
	GetEventByID(ctx context.Context, eventID string) (*models.Event, error)
	GetHolderProfileIDs(ctx context.Context, eventID string) ([]string, error)
	GetProfilesByIDs(ctx context.Context, ids []string) ([]models.Profile, error)
	InsertNotification(ctx context.Context, n *models.Notification) (bool, error)
	ListNotifications(ctx context.Context, profileID string) ([]models.Notification, error)
	UpsertSubscription(ctx context.Context, sub *models.PushSubscription) error
	GetSubscriptionByEndpoint(ctx context.Context, endpoint string) (*models.PushSubscription, error)
	GetSubscriptionsForProfiles(ctx context.Context, profileIDs []string) ([]models.PushSubscription, error)
	MarkDelivered(ctx context.Context, subscriptionID string) error
	MarkFailed(ctx context.Context, subscriptionID string, threshold int) (bool, error)
	DeleteSubscription(ctx context.Context, subscriptionID string) error
}

type ProfileResolver interface {
	Resolve(ctx context.Context, subject string) (*models.Profile, error)
}

// Mailer sends one update email. *mailer.MailerService implements it.
type Mailer interface {
	SendUpdateEmail(ctx context.Context, email mailer.UpdateEmail) error
}

type Options struct {
	Concurrency    int
	SendTimeout    time.Duration
	PruneThreshold int
	EventURLBase   string
}

type Notifier struct {
	DB       NotifyDBLayer
	Profiles ProfileResolver
	Push     push.Sender
	Mailer   Mailer
	Logger   *logger.Logger
	Options  Options

	now func() time.Time
}

func NewNotifier(db NotifyDBLayer, profiles ProfileResolver, sender push.Sender, m Mailer, log *logger.Logger, opts Options) *Notifier {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 5 * time.Second
	}
	return &Notifier{
		DB:       db,
		Profiles: profiles,
		Push:     sender,
		Mailer:   m,
		Logger:   log,
		Options:  opts,
		now:      time.Now,
	}
}

// UpdateKey returns the key that identifies update for idempotent
// delivery. An explicit key wins; otherwise it is derived from the event
// and the changed values, so the same broker message delivered twice maps
// to the same key. Edits made through events.Service always carry a key.
func UpdateKey(eventID string, update models.EventUpdate) string {
	if update.UpdateKey != "" {
		return update.UpdateKey
	}
	content := update
	content.UpdateKey = ""
	raw, _ := json.Marshal(content)
	return uuid.NewSHA1(updateKeySpace, append([]byte(eventID+"|"), raw...)).String()
}

// DescribeUpdate renders the notification text for an update.
func DescribeUpdate(event *models.Event, update models.EventUpdate) string {
	if update.Message != "" {
		return update.Message
	}
	var changes []string
	if update.Name != nil {
		changes = append(changes, fmt.Sprintf("renamed to %s", *update.Name))
	}
	if update.Venue != nil {
		changes = append(changes, fmt.Sprintf("venue changed to %s", *update.Venue))
	}
	if update.EventDate != nil {
		changes = append(changes, fmt.Sprintf("date changed to %s", update.EventDate.UTC().Format("Mon 2 Jan 2006 15:04 MST")))
	}
	if update.Description != nil {
		changes = append(changes, "description updated")
	}
	if len(changes) == 0 {
		return fmt.Sprintf("%s has been updated", event.Name)
	}
	return fmt.Sprintf("%s: %s", event.Name, strings.Join(changes, ", "))
}

// NotifyUpdate tells every holder of a ticket to eventID about update.
// Every holder gets one notification row per update key. Push and email
// failures are logged and counted but never fail the fan-out; only a
// failure to read the holders does.
func (n *Notifier) NotifyUpdate(ctx context.Context, eventID string, update models.EventUpdate) (*models.NotifyResult, error) {
	event, err := n.DB.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	holders, err := n.DB.GetHolderProfileIDs(ctx, eventID)
	if err != nil {
		n.Logger.Error("NOTIFY", fmt.Sprintf("Failed to load holders of %s: %v", eventID, err))
		return nil, err
	}

	result := &models.NotifyResult{Holders: len(holders)}
	key := UpdateKey(eventID, update)
	message := DescribeUpdate(event, update)

	var notified []string
	for _, profileID := range holders {
		created, err := n.DB.InsertNotification(ctx, &models.Notification{
			ID:        utils.NewID(),
			ProfileID: profileID,
			EventID:   eventID,
			UpdateKey: key,
			Message:   message,
			CreatedAt: n.now().UTC(),
		})
		if err != nil {
			n.Logger.Error("NOTIFY", fmt.Sprintf("Failed to store notification for %s: %v", profileID, err))
			continue
		}
		if !created {
			continue
		}
		result.NotificationsCreated++
		notified = append(notified, profileID)
	}

	n.Logger.LogNotify(eventID, fmt.Sprintf("update %s: %d holders, %d new notifications", key, result.Holders, result.NotificationsCreated))
	if len(notified) == 0 {
		return result, nil
	}

	n.pushAll(ctx, event, message, notified, result)
	n.emailAll(ctx, event, message, notified, result)

	n.Logger.LogNotify(eventID, fmt.Sprintf("push %d/%d delivered, %d pruned, %d emails",
		result.PushDelivered, result.PushAttempted, result.Pruned, result.EmailsSent))
	return result, nil
}

func (n *Notifier) pushAll(ctx context.Context, event *models.Event, message string, profileIDs []string, result *models.NotifyResult) {
	if n.Push == nil {
		return
	}
	subs, err := n.DB.GetSubscriptionsForProfiles(ctx, profileIDs)
	if err != nil {
		n.Logger.Error("PUSH", fmt.Sprintf("Failed to load subscriptions for %s: %v", event.ID, err))
		return
	}

	msg := models.PushMessage{
		Title:   event.Name,
		Body:    message,
		EventID: event.ID,
		URL:     n.eventURL(event.ID),
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(n.Options.Concurrency)
	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			delivered, pruned := n.pushOne(ctx, sub, msg)
			mu.Lock()
			defer mu.Unlock()
			result.PushAttempted++
			if delivered {
				result.PushDelivered++
			} else {
				result.PushFailed++
			}
			if pruned {
				result.Pruned++
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (n *Notifier) pushOne(ctx context.Context, sub models.PushSubscription, msg models.PushMessage) (delivered, pruned bool) {
	sendCtx, cancel := context.WithTimeout(ctx, n.Options.SendTimeout)
	err := n.Push.Send(sendCtx, sub, msg)
	cancel()

	if err == nil {
		if err := n.DB.MarkDelivered(ctx, sub.ID); err != nil {
			n.Logger.Warn("PUSH", fmt.Sprintf("Failed to reset failures of %s: %v", sub.ID, err))
		}
		return true, false
	}

	n.Logger.Warn("PUSH", fmt.Sprintf("Delivery to subscription %s failed: %v", sub.ID, err))
	if errors.Is(err, apperrors.ErrSubscriptionInvalid) {
		if err := n.DB.DeleteSubscription(ctx, sub.ID); err != nil {
			n.Logger.Error("PUSH", fmt.Sprintf("Failed to delete subscription %s: %v", sub.ID, err))
			return false, false
		}
		n.Logger.Info("PUSH", fmt.Sprintf("Pruned expired subscription %s", sub.ID))
		return false, true
	}

	pruned, err = n.DB.MarkFailed(ctx, sub.ID, n.Options.PruneThreshold)
	if err != nil {
		n.Logger.Error("PUSH", fmt.Sprintf("Failed to record failure of %s: %v", sub.ID, err))
		return false, false
	}
	if pruned {
		n.Logger.Info("PUSH", fmt.Sprintf("Pruned subscription %s after %d failures", sub.ID, n.Options.PruneThreshold))
	}
	return false, pruned
}

func (n *Notifier) emailAll(ctx context.Context, event *models.Event, message string, profileIDs []string, result *models.NotifyResult) {
	if n.Mailer == nil {
		return
	}
	profiles, err := n.DB.GetProfilesByIDs(ctx, profileIDs)
	if err != nil {
		n.Logger.Error("EMAIL", fmt.Sprintf("Failed to load recipients for %s: %v", event.ID, err))
		return
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(n.Options.Concurrency)
	for _, p := range profiles {
		if p.Email == "" {
			continue
		}
		p := p
		g.Go(func() error {
			sendCtx, cancel := context.WithTimeout(ctx, n.Options.SendTimeout)
			defer cancel()
			err := n.Mailer.SendUpdateEmail(sendCtx, mailer.UpdateEmail{
				To:        p.Email,
				Name:      p.DisplayName,
				EventID:   event.ID,
				EventName: event.Name,
				Message:   message,
				EventURL:  n.eventURL(event.ID),
			})
			if err != nil {
				n.Logger.Warn("EMAIL", fmt.Sprintf("Update email to profile %s failed: %v", p.ID, err))
				return nil
			}
			mu.Lock()
			result.EmailsSent++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}

func (n *Notifier) eventURL(eventID string) string {
	if n.Options.EventURLBase == "" {
		return ""
	}
	return strings.TrimRight(n.Options.EventURLBase, "/") + "/" + eventID
}

// ConsumeEventUpdated handles a message from the events-updated topic.
func (n *Notifier) ConsumeEventUpdated(ctx context.Context, msg kafkago.Message) error {
	var m models.EventUpdatedMessage
	if err := kafka.Decode(msg, &m); err != nil {
		return err
	}
	if m.EventID == "" {
		return fmt.Errorf("event update without event_id: %w", apperrors.ErrInvalidRequest)
	}
	_, err := n.NotifyUpdate(ctx, m.EventID, m.Update)
	return err
}

// RegisterSubscription stores the caller's browser push subscription.
func (n *Notifier) RegisterSubscription(ctx context.Context, subject string, req models.SubscribeRequest) (*models.PushSubscription, error) {
	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		return nil, fmt.Errorf("endpoint and keys are required: %w", apperrors.ErrInvalidRequest)
	}
	profile, err := n.Profiles.Resolve(ctx, subject)
	if err != nil {
		return nil, err
	}

	sub := &models.PushSubscription{
		ID:        utils.NewID(),
		ProfileID: profile.ID,
		Endpoint:  req.Endpoint,
		KeyP256dh: req.Keys.P256dh,
		KeyAuth:   req.Keys.Auth,
		CreatedAt: n.now().UTC(),
	}
	if err := n.DB.UpsertSubscription(ctx, sub); err != nil {
		return nil, err
	}
	// a re-subscribed endpoint keeps the id of its existing row
	stored, err := n.DB.GetSubscriptionByEndpoint(ctx, req.Endpoint)
	if err != nil {
		return nil, err
	}
	n.Logger.Info("PUSH", fmt.Sprintf("Profile %s subscribed endpoint %s", profile.ID, stored.ID))
	return stored, nil
}

// ListNotifications returns the caller's notifications, newest first.
func (n *Notifier) ListNotifications(ctx context.Context, subject string) ([]models.Notification, error) {
	profile, err := n.Profiles.Resolve(ctx, subject)
	if err != nil {
		return nil, err
	}
	return n.DB.ListNotifications(ctx, profile.ID)
}
