package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrymomot/maildispatch/pkg/mailer"
)

// attachmentRequest carries file content as base64 in JSON.
type attachmentRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	ContentID   string `json:"content_id,omitempty"`
	Content     []byte `json:"content"`
}

type emailRequest struct {
	Headers     map[string]string   `json:"headers,omitempty"`
	Tags        map[string]string   `json:"tags,omitempty"`
	Subject     string              `json:"subject"`
	HTML        string              `json:"html"`
	Text        string              `json:"text,omitempty"`
	From        string              `json:"from,omitempty"`
	ReplyTo     string              `json:"reply_to,omitempty"`
	To          []string            `json:"to"`
	CC          []string            `json:"cc,omitempty"`
	BCC         []string            `json:"bcc,omitempty"`
	Attachments []attachmentRequest `json:"attachments,omitempty"`
}

type templateRequest struct {
	Data        map[string]any      `json:"data,omitempty"`
	Tags        map[string]string   `json:"tags,omitempty"`
	Template    string              `json:"template"`
	Subject     string              `json:"subject,omitempty"`
	From        string              `json:"from,omitempty"`
	ReplyTo     string              `json:"reply_to,omitempty"`
	To          []string            `json:"to"`
	CC          []string            `json:"cc,omitempty"`
	BCC         []string            `json:"bcc,omitempty"`
	Attachments []attachmentRequest `json:"attachments,omitempty"`
}

type handler struct {
	provider    mailer.Provider
	maxBodySize int64
}

func (h *handler) sendEmail(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.provider.SendEmail(r.Context(), &mailer.Email{
		To:          req.To,
		CC:          req.CC,
		BCC:         req.BCC,
		From:        req.From,
		ReplyTo:     req.ReplyTo,
		Subject:     req.Subject,
		HTML:        req.HTML,
		Text:        req.Text,
		Headers:     req.Headers,
		Tags:        toTags(req.Tags),
		Attachments: toAttachments(req.Attachments),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeResult(w, res)
}

func (h *handler) sendTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Template == "" {
		writeError(w, r, badRequest(errors.New("template is required")))
		return
	}

	res, err := h.provider.SendTemplateEmail(r.Context(), mailer.TemplateParams{
		Template:    req.Template,
		Data:        req.Data,
		Subject:     req.Subject,
		To:          req.To,
		CC:          req.CC,
		BCC:         req.BCC,
		From:        req.From,
		ReplyTo:     req.ReplyTo,
		Tags:        toTags(req.Tags),
		Attachments: toAttachments(req.Attachments),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeResult(w, res)
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, h.maxBodySize)

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &HTTPError{
				Err:       err,
				Code:      http.StatusRequestEntityTooLarge,
				ErrorCode: CodeInvalidRequest,
				Message:   fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit),
			}
		}
		if errors.Is(err, io.EOF) {
			return badRequest(errors.New("request body is empty"))
		}
		return badRequest(fmt.Errorf("invalid JSON: %w", err))
	}
	return nil
}

func toTags(in map[string]string) mailer.Tags {
	if len(in) == 0 {
		return nil
	}
	tags := make(mailer.Tags, len(in))
	for k, v := range in {
		tags[k] = v
	}
	return tags
}

func toAttachments(in []attachmentRequest) []mailer.Attachment {
	if len(in) == 0 {
		return nil
	}
	out := make([]mailer.Attachment, len(in))
	for i, a := range in {
		out[i] = mailer.Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			ContentID:   a.ContentID,
			Content:     a.Content,
		}
	}
	return out
}

// writeResult answers 200 for accepted deliveries and 202 for publish acks.
func writeResult(w http.ResponseWriter, res *mailer.Result) {
	status := http.StatusOK
	if !res.Delivered() {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	httpErr := toHTTPError(err)
	if httpErr.RequestID == "" {
		httpErr.RequestID = RequestIDFromContext(r.Context())
	}
	writeJSON(w, httpErr.Code, errorResponse{Error: httpErr})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
