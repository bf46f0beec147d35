package pubsub

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"testing/fstest"

	"cloud.google.com/go/pubsub"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrymomot/maildispatch/pkg/mailer"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, msg *pubsub.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func (m *mockPublisher) Exists(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockPublisher) Close() error {
	return m.Called().Error(0)
}

func testSender(topic publisher) *Sender {
	renderer := mailer.NewRenderer(fstest.MapFS{
		"receipt.html": &fstest.MapFile{
			Data: []byte("---\nSubject: Receipt {{.number}}\n---\n<p>Thanks for order {{.number}}</p>"),
		},
	})
	s := newSender(Config{
		ProjectID:       "acme-prod",
		SenderEmail:     "orders@example.com",
		Topic:           DefaultTopic,
		FallbackSubject: "Default subject",
	}, renderer, topic)
	s.newID = func() string { return "dispatch-1" }
	return s
}

func TestSender_SendEmail_PublishAck(t *testing.T) {
	t.Parallel()

	var published *pubsub.Message
	topic := &mockPublisher{}
	topic.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			published = args.Get(1).(*pubsub.Message)
		}).
		Return("1234567890", nil).Once()

	res, err := testSender(topic).SendEmail(context.Background(), &mailer.Email{
		To:      []string{"a@b.com"},
		CC:      []string{"c@b.com"},
		Subject: "Hi",
		HTML:    "<p>x</p>",
		Tags:    mailer.Tags{"campaign": "spring", "urgent": struct{}{}},
		Attachments: []mailer.Attachment{
			{Filename: "a.txt", Content: []byte("hello")},
		},
	})

	require.NoError(t, err)
	require.Equal(t, &mailer.Result{Provider: Name, MessageID: "1234567890", Status: mailer.StatusPublished}, res)
	require.False(t, res.Delivered())

	require.Equal(t, map[string]string{
		AttrDispatchID:  "dispatch-1",
		AttrContentType: "application/json",
		"tag_campaign":  "spring",
		"tag_urgent":    "true",
	}, published.Attributes)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(published.Data, &payload))
	require.Equal(t, "orders@example.com", payload["from"])
	require.Equal(t, []any{"a@b.com"}, payload["to"])
	require.Equal(t, []any{"c@b.com"}, payload["cc"])
	require.Equal(t, "Hi", payload["subject"])
	require.Equal(t, "<p>x</p>", payload["html_content"])
	require.Equal(t, "x", payload["text_content"])

	attachments := payload["attachments"].([]any)
	require.Len(t, attachments, 1)
	attachment := attachments[0].(map[string]any)
	require.Equal(t, "a.txt", attachment["filename"])
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("hello")), attachment["content"])
	require.Equal(t, "application/octet-stream", attachment["content_type"])
	require.Equal(t, true, attachment["is_base64"])
}

func TestSender_SendEmail_PublishError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		code      string
		temporary bool
		timeout   bool
	}{
		{name: "unavailable", err: status.Error(codes.Unavailable, "backend down"), code: "Unavailable", temporary: true},
		{name: "not found", err: status.Error(codes.NotFound, "topic missing"), code: "NotFound"},
		{name: "permission denied", err: status.Error(codes.PermissionDenied, "nope"), code: "PermissionDenied"},
		{name: "deadline", err: status.Error(codes.DeadlineExceeded, "slow"), code: "DeadlineExceeded", temporary: true, timeout: true},
		{name: "plain error", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			topic := &mockPublisher{}
			topic.On("Publish", mock.Anything, mock.Anything).Return("", tt.err)

			res, err := testSender(topic).SendEmail(context.Background(), &mailer.Email{
				To:      []string{"a@b.com"},
				Subject: "Hi",
				HTML:    "<p>x</p>",
			})

			require.Nil(t, res)
			require.ErrorIs(t, err, mailer.ErrSendFailed)
			require.Equal(t, tt.timeout, errors.Is(err, mailer.ErrTimeout))

			var ve *mailer.VendorError
			require.ErrorAs(t, err, &ve)
			require.Equal(t, tt.code, ve.Code)
			require.Equal(t, tt.temporary, ve.Temporary)
		})
	}
}

func TestSender_SendEmail_ValidationBeforePublish(t *testing.T) {
	t.Parallel()

	topic := &mockPublisher{}

	_, err := testSender(topic).SendEmail(context.Background(), &mailer.Email{
		To:   []string{"a@b.com"},
		HTML: "<p>x</p>",
	})

	require.ErrorIs(t, err, mailer.ErrNoSubject)
	topic.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestSender_SendTemplateEmail(t *testing.T) {
	t.Parallel()

	var published *pubsub.Message
	topic := &mockPublisher{}
	topic.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			published = args.Get(1).(*pubsub.Message)
		}).
		Return("srv-1", nil).Once()

	res, err := testSender(topic).SendTemplateEmail(context.Background(), mailer.TemplateParams{
		To:       []string{"a@b.com"},
		Template: "receipt",
		Data:     map[string]any{"number": 42},
	})

	require.NoError(t, err)
	require.Equal(t, mailer.StatusPublished, res.Status)

	var payload Payload
	require.NoError(t, json.Unmarshal(published.Data, &payload))
	require.Equal(t, "Receipt 42", payload.Subject)
	require.Equal(t, "<p>Thanks for order 42</p>", payload.HTMLContent)
}

func TestSender_HealthCheck(t *testing.T) {
	t.Parallel()

	t.Run("exists", func(t *testing.T) {
		t.Parallel()

		topic := &mockPublisher{}
		topic.On("Exists", mock.Anything).Return(true, nil)

		require.NoError(t, testSender(topic).HealthCheck(context.Background()))
	})

	t.Run("missing topic", func(t *testing.T) {
		t.Parallel()

		topic := &mockPublisher{}
		topic.On("Exists", mock.Anything).Return(false, nil)

		err := testSender(topic).HealthCheck(context.Background())
		require.ErrorIs(t, err, mailer.ErrSendFailed)
		require.Contains(t, err.Error(), DefaultTopic)
	})

	t.Run("unreachable", func(t *testing.T) {
		t.Parallel()

		topic := &mockPublisher{}
		topic.On("Exists", mock.Anything).Return(false, status.Error(codes.Unavailable, "down"))

		err := testSender(topic).HealthCheck(context.Background())
		require.True(t, mailer.IsTemporary(err))
	})
}

func TestSender_Close(t *testing.T) {
	t.Parallel()

	topic := &mockPublisher{}
	topic.On("Close").Return(nil).Once()

	require.NoError(t, testSender(topic).Close())
	topic.AssertExpectations(t)
}

func TestFromConfig_MissingKeys(t *testing.T) {
	t.Parallel()

	full := mailer.Config{
		"GCP_PROJECT_ID":           "acme-prod",
		"EMAIL_DEFAULT_FROM_EMAIL": "orders@example.com",
	}

	for key := range full {
		t.Run(key, func(t *testing.T) {
			t.Parallel()

			cfg := mailer.Config{}
			for k, v := range full {
				if k != key {
					cfg[k] = v
				}
			}

			_, err := FromConfig(nil, cfg)

			require.ErrorIs(t, err, mailer.ErrConfig)
			var cfgErr *mailer.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			require.Equal(t, []string{key}, cfgErr.Keys)
		})
	}
}

func TestFromConfig_UnreadableCredentials(t *testing.T) {
	t.Parallel()

	_, err := FromConfig(nil, mailer.Config{
		"GCP_PROJECT_ID":           "acme-prod",
		"EMAIL_DEFAULT_FROM_EMAIL": "orders@example.com",
		"GCP_SERVICE_ACCOUNT_JSON": "/nonexistent/key.json",
	})

	var cfgErr *mailer.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, []string{"GCP_SERVICE_ACCOUNT_JSON"}, cfgErr.Keys)
}
