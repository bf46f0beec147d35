package resend

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/resend/resend-go/v3"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/maildispatch/pkg/mailer"
)

type mockEmails struct {
	mock.Mock
}

func (m *mockEmails) SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	args := m.Called(ctx, params)
	resp, _ := args.Get(0).(*resend.SendEmailResponse)
	return resp, args.Error(1)
}

func testSender(client emailsAPI) *Sender {
	renderer := mailer.NewRenderer(fstest.MapFS{
		"welcome.html": &fstest.MapFile{
			Data: []byte(`<h1>Welcome to {{.company_name}}, {{.user_name}}</h1>`),
		},
	})
	return newSender(Config{
		APIKey:          "re_test",
		SenderEmail:     "team@example.com",
		SenderName:      "Team",
		FallbackSubject: "Default subject",
	}, renderer, client)
}

func TestSender_SendEmail(t *testing.T) {
	t.Parallel()

	client := &mockEmails{}
	client.On("SendWithContext", mock.Anything, mock.MatchedBy(func(req *resend.SendEmailRequest) bool {
		return req.From == "Team <team@example.com>" &&
			req.To[0] == "a@b.com" &&
			req.Subject == "Hi" &&
			req.Html == "<p>x</p>" &&
			req.Text == "x" &&
			len(req.Cc) == 1 && len(req.Bcc) == 1
	})).Return(&resend.SendEmailResponse{Id: "msg_123"}, nil).Once()

	res, err := testSender(client).SendEmail(context.Background(), &mailer.Email{
		To:      []string{"a@b.com"},
		CC:      []string{"c@b.com"},
		BCC:     []string{"d@b.com"},
		Subject: "Hi",
		HTML:    "<p>x</p>",
	})

	require.NoError(t, err)
	require.Equal(t, &mailer.Result{Provider: Name, MessageID: "msg_123", Status: mailer.StatusSent}, res)
	require.True(t, res.Delivered())
	client.AssertExpectations(t)
}

func TestSender_SendEmail_FromOverride(t *testing.T) {
	t.Parallel()

	client := &mockEmails{}
	client.On("SendWithContext", mock.Anything, mock.MatchedBy(func(req *resend.SendEmailRequest) bool {
		return req.From == "billing@example.com"
	})).Return(&resend.SendEmailResponse{Id: "msg_1"}, nil)

	_, err := testSender(client).SendEmail(context.Background(), &mailer.Email{
		To:      []string{"a@b.com"},
		From:    "billing@example.com",
		Subject: "Invoice",
		HTML:    "<p>due</p>",
	})

	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestSender_SendEmail_ConvertsAttachmentsAndTags(t *testing.T) {
	t.Parallel()

	client := &mockEmails{}
	client.On("SendWithContext", mock.Anything, mock.MatchedBy(func(req *resend.SendEmailRequest) bool {
		return len(req.Attachments) == 1 &&
			req.Attachments[0].Filename == "invoice.pdf" &&
			req.Attachments[0].ContentType == "application/pdf" &&
			len(req.Tags) == 1 &&
			req.Tags[0].Name == "welcome" && req.Tags[0].Value == "true"
	})).Return(&resend.SendEmailResponse{Id: "msg_1"}, nil)

	_, err := testSender(client).SendEmail(context.Background(), &mailer.Email{
		To:      []string{"a@b.com"},
		Subject: "Hi",
		HTML:    "<p>x</p>",
		Tags:    mailer.SimpleTags("welcome"),
		Attachments: []mailer.Attachment{
			{Filename: "invoice.pdf", ContentType: "application/pdf", Content: []byte("%PDF")},
		},
	})

	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestSender_SendEmail_ValidationBeforeNetwork(t *testing.T) {
	t.Parallel()

	client := &mockEmails{}

	_, err := testSender(client).SendEmail(context.Background(), &mailer.Email{
		To:      []string{"not-an-address"},
		Subject: "Hi",
		HTML:    "<p>x</p>",
	})

	require.ErrorIs(t, err, mailer.ErrValidation)
	require.ErrorIs(t, err, mailer.ErrInvalidAddress)
	client.AssertNotCalled(t, "SendWithContext", mock.Anything, mock.Anything)
}

func TestSender_SendEmail_VendorError(t *testing.T) {
	t.Parallel()

	apiErr := errors.New("[ERROR]: API key is invalid")
	client := &mockEmails{}
	client.On("SendWithContext", mock.Anything, mock.Anything).Return(nil, apiErr)

	res, err := testSender(client).SendEmail(context.Background(), &mailer.Email{
		To:      []string{"a@b.com"},
		Subject: "Hi",
		HTML:    "<p>x</p>",
	})

	require.Nil(t, res)
	require.ErrorIs(t, err, mailer.ErrSendFailed)
	require.ErrorIs(t, err, apiErr)
	require.False(t, mailer.IsTemporary(err))
}

func TestSender_SendEmail_Timeout(t *testing.T) {
	t.Parallel()

	client := &mockEmails{}
	client.On("SendWithContext", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return(nil, context.DeadlineExceeded)

	s := testSender(client)
	s.config.Timeout = 10 * time.Millisecond

	_, err := s.SendEmail(context.Background(), &mailer.Email{
		To:      []string{"a@b.com"},
		Subject: "Hi",
		HTML:    "<p>x</p>",
	})

	require.ErrorIs(t, err, mailer.ErrTimeout)
	require.ErrorIs(t, err, mailer.ErrSendFailed)
	require.True(t, mailer.IsTemporary(err))
}

func TestSender_SendTemplateEmail(t *testing.T) {
	t.Parallel()

	client := &mockEmails{}
	client.On("SendWithContext", mock.Anything, mock.MatchedBy(func(req *resend.SendEmailRequest) bool {
		return req.Html == "<h1>Welcome to Acme, Jo</h1>" && req.Subject == "Default subject"
	})).Return(&resend.SendEmailResponse{Id: "msg_tpl"}, nil).Once()

	res, err := testSender(client).SendTemplateEmail(context.Background(), mailer.TemplateParams{
		To:       []string{"jo@example.com"},
		Template: "welcome",
		Data:     map[string]any{"company_name": "Acme", "user_name": "Jo"},
	})

	require.NoError(t, err)
	require.Equal(t, "msg_tpl", res.MessageID)
	client.AssertExpectations(t)
}

func TestSender_SendTemplateEmail_TemplateNotFound(t *testing.T) {
	t.Parallel()

	client := &mockEmails{}

	_, err := testSender(client).SendTemplateEmail(context.Background(), mailer.TemplateParams{
		To:       []string{"jo@example.com"},
		Template: "missing",
	})

	require.ErrorIs(t, err, mailer.ErrTemplateNotFound)
	client.AssertNotCalled(t, "SendWithContext", mock.Anything, mock.Anything)
}

func TestFromConfig_MissingKeys(t *testing.T) {
	t.Parallel()

	full := mailer.Config{
		"EMAIL_RESEND_API_KEY":     "re_test",
		"EMAIL_DEFAULT_FROM_EMAIL": "team@example.com",
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

			_, err := FromConfig(mailer.NewRenderer(fstest.MapFS{}), cfg)

			require.ErrorIs(t, err, mailer.ErrConfig)
			var cfgErr *mailer.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			require.Equal(t, []string{key}, cfgErr.Keys)
		})
	}
}

func TestFromConfig_Valid(t *testing.T) {
	t.Parallel()

	p, err := FromConfig(mailer.NewRenderer(fstest.MapFS{}), mailer.Config{
		"EMAIL_RESEND_API_KEY":     "re_test",
		"EMAIL_DEFAULT_FROM_EMAIL": "team@example.com",
		"EMAIL_SEND_TIMEOUT":       "5s",
	})

	require.NoError(t, err)
	s, ok := p.(*Sender)
	require.True(t, ok)
	require.Equal(t, 5*time.Second, s.config.Timeout)
	require.Equal(t, "Default subject", s.config.FallbackSubject)
}

func TestFromConfig_InvalidBaseURL(t *testing.T) {
	t.Parallel()

	_, err := FromConfig(mailer.NewRenderer(fstest.MapFS{}), mailer.Config{
		"EMAIL_RESEND_API_KEY":     "re_test",
		"EMAIL_DEFAULT_FROM_EMAIL": "team@example.com",
		"EMAIL_RESEND_BASE_URL":    "not a url",
	})

	var cfgErr *mailer.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, []string{"EMAIL_RESEND_BASE_URL"}, cfgErr.Keys)
}
