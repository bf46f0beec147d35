package pubsub

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrymomot/maildispatch/pkg/mailer"
)

// wrapPublishError classifies a publish failure by its gRPC status code.
func wrapPublishError(err error) error {
	ve := mailer.NewVendorError(Name, err)

	var target interface{ GRPCStatus() *status.Status }
	if !errors.As(err, &target) {
		return ve
	}

	code := target.GRPCStatus().Code()
	ve.Code = code.String()
	switch code {
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted, codes.Internal:
		ve.Temporary = true
	case codes.DeadlineExceeded:
		ve.Temporary = true
		ve.Timeout = true
	}

	return ve
}
