package pubsub

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/pubsub"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/dmitrymomot/maildispatch/pkg/mailer"
)

// publisher is the part of a Pub/Sub topic the sender uses.
type publisher interface {
	// Publish blocks until the server acknowledges msg and returns its server id.
	Publish(ctx context.Context, msg *pubsub.Message) (string, error)
	Exists(ctx context.Context) (bool, error)
	Close() error
}

// topicPublisher adapts a *pubsub.Topic to publisher.
type topicPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

func newTopicPublisher(ctx context.Context, cfg Config) (*topicPublisher, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, mailer.InvalidKey(Name, "GCP_SERVICE_ACCOUNT_JSON", "cannot read service account file")
		}
		creds, err := google.CredentialsFromJSON(ctx, data, pubsub.ScopePubSub)
		if err != nil {
			return nil, mailer.InvalidKey(Name, "GCP_SERVICE_ACCOUNT_JSON", "invalid service account file")
		}
		opts = append(opts, option.WithCredentials(creds))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: create pubsub client: %v", mailer.ErrConfig, Name, err)
	}

	return &topicPublisher{
		client: client,
		topic:  client.Topic(cfg.Topic),
	}, nil
}

func (p *topicPublisher) Publish(ctx context.Context, msg *pubsub.Message) (string, error) {
	return p.topic.Publish(ctx, msg).Get(ctx)
}

func (p *topicPublisher) Exists(ctx context.Context) (bool, error) {
	return p.topic.Exists(ctx)
}

func (p *topicPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
