//go:build integration

package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"souviens_toi/internal/auth"
	"souviens_toi/internal/domain"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func (s *RabbitMQIntegrationSuite) config(name string) Config {
	return Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-" + name,
		RoutingKey: "test-routing-key-" + name,
		QueueName:  "test-queue-" + name,
	}
}

func (s *RabbitMQIntegrationSuite) TestPublisher_Connection() {
	pub, err := NewRabbitMQ(s.config("connect"), s.logger)
	s.NoError(err)
	s.NotNil(pub)

	err = pub.Close()
	s.NoError(err)
}

func (s *RabbitMQIntegrationSuite) TestPublisher_PublishLink() {
	cfg := s.config("link")
	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	ctx := auth.WithUser(s.ctx, &auth.User{ID: "user-1"})
	at := time.Now().UTC().Truncate(time.Millisecond)

	err = pub.Publish(ctx, domain.LinkChange{
		Kind:    domain.KindStory,
		Action:  domain.ActionLink,
		EventID: "event-1",
		ItemID:  "story-1",
		At:      at,
	})
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)
	s.Equal("application/json", msg.ContentType)
	s.Equal("story.link", msg.Type)

	var received LinkChangeMessage
	s.Require().NoError(json.Unmarshal(msg.Body, &received))
	s.Equal(domain.ActionLink, received.Action)
	s.Equal(domain.KindStory, received.Kind)
	s.Equal("event-1", received.EventID)
	s.Equal("story-1", received.ItemID)
	s.Equal("user-1", received.UserID)
	s.True(at.Equal(received.Timestamp))
}

func (s *RabbitMQIntegrationSuite) TestPublisher_OnLinkChange() {
	cfg := s.config("subscriber")
	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	pub.OnLinkChange(s.ctx, domain.LinkChange{
		Kind:    domain.KindMedia,
		Action:  domain.ActionUnlink,
		EventID: "event-2",
		ItemID:  "media-2",
	})

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)

	var received LinkChangeMessage
	s.Require().NoError(json.Unmarshal(msg.Body, &received))
	s.Equal(domain.ActionUnlink, received.Action)
	s.Equal(domain.KindMedia, received.Kind)
	s.Empty(received.UserID)
	s.False(received.Timestamp.IsZero())
}

func (s *RabbitMQIntegrationSuite) TestPublisher_MessagePersistence() {
	cfg := s.config("persist")
	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	err = pub.Publish(s.ctx, domain.LinkChange{Kind: domain.KindStory, Action: domain.ActionUnlink, EventID: "e", ItemID: "s"})
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)

	s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)
}

func (s *RabbitMQIntegrationSuite) consumeMessage(cfg Config) *amqp.Delivery {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	msgs, err := ch.Consume(cfg.QueueName, "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case msg := <-msgs:
		return &msg
	case <-time.After(5 * time.Second):
		s.Fail("Timeout waiting for message")
		return nil
	}
}
