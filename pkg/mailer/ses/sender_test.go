package ses

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/mail"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/maildispatch/pkg/mailer"
)

type mockSES struct {
	mock.Mock
}

func (m *mockSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*sesv2.SendEmailOutput)
	return out, args.Error(1)
}

func (m *mockSES) GetAccount(ctx context.Context, params *sesv2.GetAccountInput, _ ...func(*sesv2.Options)) (*sesv2.GetAccountOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*sesv2.GetAccountOutput)
	return out, args.Error(1)
}

func testSender(client sesAPI) *Sender {
	renderer := mailer.NewRenderer(fstest.MapFS{
		"reset.md": &fstest.MapFile{
			Data: []byte("---\nSubject: Reset for {{.name}}\n---\n# Hello {{.name}}\n"),
		},
	})
	s := newSender(Config{
		Region:           "us-east-1",
		SenderEmail:      "noreply@example.com",
		ConfigurationSet: "transactional",
		FallbackSubject:  "Default subject",
	}, renderer, client)
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s
}

func TestSender_SendEmail_Simple(t *testing.T) {
	t.Parallel()

	client := &mockSES{}
	client.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *sesv2.SendEmailInput) bool {
		simple := in.Content.Simple
		return aws.ToString(in.FromEmailAddress) == "noreply@example.com" &&
			in.Destination.ToAddresses[0] == "a@b.com" &&
			aws.ToString(in.ConfigurationSetName) == "transactional" &&
			in.Content.Raw == nil &&
			aws.ToString(simple.Subject.Data) == "Hi" &&
			aws.ToString(simple.Body.Html.Data) == "<p>x</p>" &&
			aws.ToString(simple.Body.Text.Data) == "x" &&
			len(in.ReplyToAddresses) == 1 &&
			len(simple.Headers) == 1 && aws.ToString(simple.Headers[0].Name) == "X-Campaign"
	})).Return(&sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil).Once()

	res, err := testSender(client).SendEmail(context.Background(), &mailer.Email{
		To:      []string{"a@b.com"},
		ReplyTo: "support@example.com",
		Subject: "Hi",
		HTML:    "<p>x</p>",
		Headers: map[string]string{"X-Campaign": "spring"},
	})

	require.NoError(t, err)
	require.Equal(t, &mailer.Result{Provider: Name, MessageID: "ses-1", Status: mailer.StatusSent}, res)
	client.AssertExpectations(t)
}

func TestSender_SendEmail_RawWithAttachments(t *testing.T) {
	t.Parallel()

	var captured *sesv2.SendEmailInput
	client := &mockSES{}
	client.On("SendEmail", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*sesv2.SendEmailInput)
		}).
		Return(&sesv2.SendEmailOutput{MessageId: aws.String("ses-raw")}, nil).Once()

	res, err := testSender(client).SendEmail(context.Background(), &mailer.Email{
		To:      []string{"a@b.com"},
		BCC:     []string{"hidden@b.com"},
		Subject: "Your invoice",
		HTML:    "<p>attached</p>",
		Attachments: []mailer.Attachment{
			{Filename: "invoice.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.4")},
		},
	})

	require.NoError(t, err)
	require.Equal(t, "ses-raw", res.MessageID)
	require.NotNil(t, captured.Content.Raw)
	require.Nil(t, captured.Content.Simple)
	require.Equal(t, []string{"hidden@b.com"}, captured.Destination.BccAddresses)

	msg, err := mail.ReadMessage(strings.NewReader(string(captured.Content.Raw.Data)))
	require.NoError(t, err)
	require.Equal(t, "noreply@example.com", msg.Header.Get("From"))
	require.Equal(t, "Your invoice", msg.Header.Get("Subject"))
	require.Empty(t, msg.Header.Get("Bcc"))

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/mixed", mediaType)

	reader := multipart.NewReader(msg.Body, params["boundary"])

	alt, err := reader.NextPart()
	require.NoError(t, err)
	altType, _, err := mime.ParseMediaType(alt.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/alternative", altType)

	attachment, err := reader.NextPart()
	require.NoError(t, err)
	require.Equal(t, "invoice.pdf", attachment.FileName())
	require.Equal(t, "base64", attachment.Header.Get("Content-Transfer-Encoding"))

	_, err = reader.NextPart()
	require.ErrorIs(t, err, io.EOF)
}

func TestSender_SendEmail_ErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		temporary bool
		code      string
		status    int
	}{
		{
			name:      "throttled",
			err:       &smithy.GenericAPIError{Code: "TooManyRequestsException", Fault: smithy.FaultClient},
			temporary: true,
			code:      "TooManyRequestsException",
		},
		{
			name: "message rejected",
			err:  &smithy.GenericAPIError{Code: "MessageRejected", Fault: smithy.FaultClient},
			code: "MessageRejected",
		},
		{
			name:      "server fault",
			err:       &smithy.GenericAPIError{Code: "InternalError", Fault: smithy.FaultServer},
			temporary: true,
			code:      "InternalError",
		},
		{
			name: "service unavailable status",
			err: &smithyhttp.ResponseError{
				Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusServiceUnavailable}},
				Err:      errors.New("unavailable"),
			},
			temporary: true,
			status:    http.StatusServiceUnavailable,
		},
		{
			name: "bad request status",
			err: &smithyhttp.ResponseError{
				Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusBadRequest}},
				Err:      errors.New("bad request"),
			},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := &mockSES{}
			client.On("SendEmail", mock.Anything, mock.Anything).Return(nil, tt.err)

			_, err := testSender(client).SendEmail(context.Background(), &mailer.Email{
				To:      []string{"a@b.com"},
				Subject: "Hi",
				HTML:    "<p>x</p>",
			})

			require.ErrorIs(t, err, mailer.ErrSendFailed)
			require.Equal(t, tt.temporary, mailer.IsTemporary(err))

			var ve *mailer.VendorError
			require.ErrorAs(t, err, &ve)
			require.Equal(t, Name, ve.Provider)
			require.Equal(t, tt.code, ve.Code)
			require.Equal(t, tt.status, ve.StatusCode)
		})
	}
}

func TestSender_SendEmail_ValidationBeforeNetwork(t *testing.T) {
	t.Parallel()

	client := &mockSES{}

	_, err := testSender(client).SendEmail(context.Background(), &mailer.Email{
		Subject: "Hi",
		HTML:    "<p>x</p>",
	})

	require.ErrorIs(t, err, mailer.ErrNoRecipient)
	client.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
}

func TestSender_SendTemplateEmail(t *testing.T) {
	t.Parallel()

	renderer := testSender(nil).renderer
	want, err := renderer.RenderHTML("reset", map[string]any{"name": "Jo"})
	require.NoError(t, err)

	client := &mockSES{}
	client.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *sesv2.SendEmailInput) bool {
		simple := in.Content.Simple
		return aws.ToString(simple.Subject.Data) == "Reset for Jo" &&
			aws.ToString(simple.Body.Html.Data) == want
	})).Return(&sesv2.SendEmailOutput{MessageId: aws.String("ses-tpl")}, nil).Once()

	res, err := testSender(client).SendTemplateEmail(context.Background(), mailer.TemplateParams{
		To:       []string{"jo@example.com"},
		Template: "reset",
		Data:     map[string]any{"name": "Jo"},
	})

	require.NoError(t, err)
	require.Equal(t, "ses-tpl", res.MessageID)
	client.AssertExpectations(t)
}

func TestSender_HealthCheck(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()

		client := &mockSES{}
		client.On("GetAccount", mock.Anything, mock.Anything).Return(&sesv2.GetAccountOutput{}, nil)

		require.NoError(t, testSender(client).HealthCheck(context.Background()))
	})

	t.Run("denied", func(t *testing.T) {
		t.Parallel()

		client := &mockSES{}
		client.On("GetAccount", mock.Anything, mock.Anything).
			Return(nil, &smithy.GenericAPIError{Code: "AccessDeniedException", Fault: smithy.FaultClient})

		err := testSender(client).HealthCheck(context.Background())
		require.ErrorIs(t, err, mailer.ErrSendFailed)
		require.False(t, mailer.IsTemporary(err))
	})
}

func TestFromConfig_MissingKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     mailer.Config
		missing []string
	}{
		{
			name:    "sender",
			cfg:     mailer.Config{"AWS_REGION": "us-east-1"},
			missing: []string{"AWS_SENDER_EMAIL"},
		},
		{
			name:    "empty config",
			cfg:     mailer.Config{},
			missing: []string{"AWS_SENDER_EMAIL"},
		},
		{
			name: "secret without key id",
			cfg: mailer.Config{
				"AWS_REGION":            "us-east-1",
				"AWS_SENDER_EMAIL":      "noreply@example.com",
				"AWS_SECRET_ACCESS_KEY": "secret",
			},
			missing: []string{"AWS_ACCESS_KEY_ID"},
		},
		{
			name: "key id without secret",
			cfg: mailer.Config{
				"AWS_REGION":        "us-east-1",
				"AWS_SENDER_EMAIL":  "noreply@example.com",
				"AWS_ACCESS_KEY_ID": "AKIA",
			},
			missing: []string{"AWS_SECRET_ACCESS_KEY"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := FromConfig(mailer.NewRenderer(fstest.MapFS{}), tt.cfg)

			require.ErrorIs(t, err, mailer.ErrConfig)
			var cfgErr *mailer.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			require.Equal(t, tt.missing, cfgErr.Keys)
		})
	}
}

func TestFromConfig_StaticCredentials(t *testing.T) {
	t.Parallel()

	p, err := FromConfig(mailer.NewRenderer(fstest.MapFS{}), mailer.Config{
		"AWS_REGION":            "eu-west-1",
		"AWS_SENDER_EMAIL":      "noreply@example.com",
		"AWS_ACCESS_KEY_ID":     "AKIAEXAMPLE",
		"AWS_SECRET_ACCESS_KEY": "secret",
		"AWS_ENDPOINT_URL":      "http://localhost:4566",
	})

	require.NoError(t, err)
	s, ok := p.(*Sender)
	require.True(t, ok)
	require.Equal(t, "eu-west-1", s.config.Region)
	require.Equal(t, "Default subject", s.config.FallbackSubject)
}

func TestFromConfig_Region(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cfg    mailer.Config
		region string
	}{
		{
			name:   "default",
			cfg:    mailer.Config{"AWS_SENDER_EMAIL": "noreply@example.com"},
			region: DefaultRegion,
		},
		{
			name: "explicit",
			cfg: mailer.Config{
				"AWS_REGION":       "eu-central-1",
				"AWS_SENDER_EMAIL": "noreply@example.com",
			},
			region: "eu-central-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := FromConfig(mailer.NewRenderer(fstest.MapFS{}), tt.cfg)
			require.NoError(t, err)
			s, ok := p.(*Sender)
			require.True(t, ok)
			require.Equal(t, tt.region, s.config.Region)
		})
	}
}
