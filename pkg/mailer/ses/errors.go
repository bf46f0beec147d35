package ses

import (
	"errors"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/dmitrymomot/maildispatch/pkg/mailer"
)

// temporaryCodes are SES error codes worth retrying.
var temporaryCodes = map[string]bool{
	"TooManyRequestsException": true,
	"LimitExceededException":   true,
	"Throttling":               true,
	"ThrottlingException":      true,
	"ServiceUnavailable":       true,
	"InternalFailure":          true,
}

// wrapSESError classifies an SES failure into a *mailer.VendorError.
// API error codes take precedence over the HTTP status.
func wrapSESError(err error) error {
	ve := mailer.NewVendorError(Name, err)

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		ve.StatusCode = respErr.HTTPStatusCode()
		if mailer.TemporaryStatus(ve.StatusCode) {
			ve.Temporary = true
		}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		ve.Code = apiErr.ErrorCode()
		switch {
		case temporaryCodes[ve.Code]:
			ve.Temporary = true
		case apiErr.ErrorFault() == smithy.FaultServer:
			ve.Temporary = true
		}
	}

	return ve
}
