package mailer

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// Validate checks the email locally so malformed requests never reach a vendor.
// Errors match ErrValidation and one of ErrNoRecipient, ErrInvalidAddress,
// ErrNoSubject or ErrNoContent.
func (e *Email) Validate() error {
	if e == nil || len(e.To) == 0 {
		return errors.Join(ErrValidation, ErrNoRecipient)
	}
	if err := validateAddresses("to", e.To); err != nil {
		return err
	}
	if err := validateAddresses("cc", e.CC); err != nil {
		return err
	}
	if err := validateAddresses("bcc", e.BCC); err != nil {
		return err
	}
	if e.From != "" {
		if err := validateAddresses("from", []string{e.From}); err != nil {
			return err
		}
	}
	if e.ReplyTo != "" {
		if err := validateAddresses("reply-to", []string{e.ReplyTo}); err != nil {
			return err
		}
	}
	if strings.TrimSpace(e.Subject) == "" {
		return errors.Join(ErrValidation, ErrNoSubject)
	}
	if strings.TrimSpace(e.HTML) == "" {
		return errors.Join(ErrValidation, ErrNoContent)
	}
	return nil
}

func validateAddresses(field string, addrs []string) error {
	for _, a := range addrs {
		if _, err := mail.ParseAddress(a); err != nil {
			return errors.Join(ErrValidation, fmt.Errorf("%w: %s %q: %v", ErrInvalidAddress, field, a, err))
		}
	}
	return nil
}

// AddressOnly strips the display name from an RFC 5322 address.
// Invalid input is returned unchanged; Validate reports it.
func AddressOnly(addr string) string {
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return addr
	}
	return parsed.Address
}

// SplitAddress returns the display name and bare address of addr.
func SplitAddress(addr string) (name, email string) {
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return "", addr
	}
	return parsed.Name, parsed.Address
}
