package azure

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/maildispatch/pkg/mailer"
)

// Operation states reported by the email operation endpoint.
const (
	statusNotStarted = "NotStarted"
	statusRunning    = "Running"
	statusSucceeded  = "Succeeded"
	statusFailed     = "Failed"
	statusCanceled   = "Canceled"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// client talks to the ACS Email REST API with HMAC-SHA256 request signing.
type client struct {
	http       *http.Client
	creds      credentials
	apiVersion string
	now        func() time.Time
	newID      func() string
}

func newClient(httpClient *http.Client, creds credentials, apiVersion string) *client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &client{
		http:       httpClient,
		creds:      creds,
		apiVersion: apiVersion,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

type emailAddress struct {
	Address     string `json:"address"`
	DisplayName string `json:"displayName,omitempty"`
}

type emailContent struct {
	Subject   string `json:"subject"`
	HTML      string `json:"html,omitempty"`
	PlainText string `json:"plainText,omitempty"`
}

type emailRecipients struct {
	To  []emailAddress `json:"to"`
	CC  []emailAddress `json:"cc,omitempty"`
	BCC []emailAddress `json:"bcc,omitempty"`
}

type emailAttachment struct {
	Name            string `json:"name"`
	ContentType     string `json:"contentType"`
	ContentInBase64 string `json:"contentInBase64"`
	ContentID       string `json:"contentId,omitempty"`
}

type emailMessage struct {
	SenderAddress string            `json:"senderAddress"`
	Content       emailContent      `json:"content"`
	Recipients    emailRecipients   `json:"recipients"`
	ReplyTo       []emailAddress    `json:"replyTo,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
	Attachments   []emailAttachment `json:"attachments,omitempty"`
}

type operationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type operationStatus struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Error  *operationError `json:"error,omitempty"`
}

type errorResponse struct {
	Error operationError `json:"error"`
}

// send submits msg and returns the operation id once the relay accepts it.
func (c *client) send(ctx context.Context, msg *emailMessage) (string, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("%w: %s: encode request: %v", mailer.ErrSendFailed, Name, err)
	}

	operationID := c.newID()

	req, err := c.newRequest(ctx, http.MethodPost, "/emails:send", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Operation-Id", operationID)
	req.Header.Set("x-ms-client-request-id", operationID)

	var status operationStatus
	if err := c.do(req, http.StatusAccepted, &status); err != nil {
		return "", err
	}

	if status.ID != "" {
		return status.ID, nil
	}
	return operationID, nil
}

// operation fetches the current state of a send operation.
func (c *client) operation(ctx context.Context, id string) (*operationStatus, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/emails/operations/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var status operationStatus
	if err := c.do(req, http.StatusOK, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	u := *c.creds.endpoint
	u.Path += path
	u.RawQuery = url.Values{"api-version": {c.apiVersion}}.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: build request: %v", mailer.ErrSendFailed, Name, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.sign(req, body)
	return req, nil
}

// sign adds the HMAC-SHA256 authorization headers.
// The signed string is "METHOD\npath?query\ndate;host;content-hash".
func (c *client) sign(req *http.Request, body []byte) {
	sum := sha256.Sum256(body)
	contentHash := base64.StdEncoding.EncodeToString(sum[:])
	date := c.now().UTC().Format(http.TimeFormat)
	host := req.URL.Host

	stringToSign := req.Method + "\n" + req.URL.RequestURI() + "\n" + date + ";" + host + ";" + contentHash

	mac := hmac.New(sha256.New, c.creds.key)
	mac.Write([]byte(stringToSign))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req.Header.Set("x-ms-date", date)
	req.Header.Set("x-ms-content-sha256", contentHash)
	req.Header.Set("Authorization", "HMAC-SHA256 SignedHeaders=x-ms-date;host;x-ms-content-sha256&Signature="+signature)
}

func (c *client) do(req *http.Request, want int, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return mailer.NewVendorError(Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return responseError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return mailer.NewVendorError(Name, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	ve := mailer.NewVendorError(Name, fmt.Errorf("unexpected status %s", resp.Status))
	ve.StatusCode = resp.StatusCode
	ve.Temporary = mailer.TemporaryStatus(resp.StatusCode)

	var apiErr errorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Code != "" {
		ve.Code = apiErr.Error.Code
		ve.Err = fmt.Errorf("%s: %s", resp.Status, apiErr.Error.Message)
	}
	return ve
}
