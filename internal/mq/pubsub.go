package mq

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/brandpick/apiserver/config"
	"google.golang.org/api/option"
)

const pubsubAckDeadline = 30 * time.Second

// Topic and subscription ids: a letter, then 2 to 254 of the allowed
// characters. Ids starting with "goog" are reserved.
var pubsubResourceID = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9\-_.~+%]{2,254}$`)

// PubSubClient publishes events to one topic per channel. Topics live
// under a project-wide prefix so several deployments can share a project.
type PubSubClient struct {
	client         *pubsub.Client
	topicPrefix    string
	subSuffix      string
	maxOutstanding int

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

func NewPubSubClient(ctx context.Context, cfg config.PubSubConfig) (*PubSubClient, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub project id is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}

	return &PubSubClient{
		client:         client,
		topicPrefix:    cfg.TopicPrefix,
		subSuffix:      cfg.SubscriptionSuffix,
		maxOutstanding: cfg.MaxOutstanding,
		topics:         make(map[string]*pubsub.Topic),
	}, nil
}

// Publish sends an event to the channel's topic. A topic without
// subscriptions drops the event.
func (p *PubSubClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	topic, err := p.topic(ctx, channel)
	if err != nil {
		return "", err
	}
	id, err := topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", channel, err)
	}
	return id, nil
}

// Subscribe receives the channel's events until ctx is done. Handler
// errors wrapping ErrDiscard ack the message, other errors nack it.
func (p *PubSubClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	topic, err := p.topic(ctx, channel)
	if err != nil {
		return err
	}
	subID, err := subscriptionID(topic.ID(), p.subSuffix)
	if err != nil {
		return err
	}

	sub := p.client.Subscription(subID)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check subscription %s: %w", subID, err)
	}
	if !exists {
		sub, err = p.client.CreateSubscription(ctx, subID, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: pubsubAckDeadline,
		})
		if err != nil {
			return fmt.Errorf("create subscription %s: %w", subID, err)
		}
	}
	if p.maxOutstanding > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = p.maxOutstanding
	}

	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		err := handler(ctx, Message{ID: msg.ID, Data: msg.Data, Attributes: msg.Attributes})
		if err != nil && redeliver(err) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Close flushes pending publishes and closes the client.
func (p *PubSubClient) Close() error {
	p.mu.Lock()
	for _, topic := range p.topics {
		topic.Stop()
	}
	p.topics = nil
	p.mu.Unlock()
	return p.client.Close()
}

// topic returns the cached topic for channel, creating it on first use.
func (p *PubSubClient) topic(ctx context.Context, channel string) (*pubsub.Topic, error) {
	id, err := topicID(p.topicPrefix, channel)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if topic, ok := p.topics[id]; ok {
		return topic, nil
	}

	topic := p.client.Topic(id)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check topic %s: %w", id, err)
	}
	if !exists {
		if topic, err = p.client.CreateTopic(ctx, id); err != nil {
			return nil, fmt.Errorf("create topic %s: %w", id, err)
		}
	}
	p.topics[id] = topic
	return topic, nil
}

func topicID(prefix, channel string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("pubsub channel is required")
	}
	id := channel
	if prefix != "" {
		id = prefix + "." + channel
	}
	return id, checkResourceID(id)
}

func subscriptionID(topicID, suffix string) (string, error) {
	id := topicID + suffix
	return id, checkResourceID(id)
}

func checkResourceID(id string) error {
	if !pubsubResourceID.MatchString(id) || strings.HasPrefix(strings.ToLower(id), "goog") {
		return fmt.Errorf("invalid pubsub resource id %q", id)
	}
	return nil
}
