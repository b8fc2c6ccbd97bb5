package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"
)

// SESAPI is the subset of *sesv2.Client the transport uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
	GetAccount(ctx context.Context, params *sesv2.GetAccountInput, optFns ...func(*sesv2.Options)) (*sesv2.GetAccountOutput, error)
}

// SESTransport sends through Amazon SES v2.
type SESTransport struct {
	client  SESAPI
	timeout time.Duration
}

// NewSESTransport wraps an SES client. timeout bounds each call; zero
// leaves it to the caller's context.
func NewSESTransport(client SESAPI, timeout time.Duration) *SESTransport {
	return &SESTransport{client: client, timeout: timeout}
}

func (t *SESTransport) Name() string { return "ses" }

// singleAttempt disables the SDK's retryer for this call.
func singleAttempt(o *sesv2.Options) {
	o.RetryMaxAttempts = 1
}

func (t *SESTransport) Send(ctx context.Context, env *Envelope) error {
	ctx, cancel := t.bound(ctx)
	defer cancel()

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(env.From),
		Destination:      &types.Destination{ToAddresses: []string{env.To}},
		ReplyToAddresses: []string{env.ReplyToHeader()},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(env.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(env.Text), Charset: aws.String("UTF-8")},
					Html: &types.Content{Data: aws.String(env.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	if _, err := t.client.SendEmail(ctx, input, singleAttempt); err != nil {
		return &DeliveryError{Provider: t.Name(), Kind: classifySESError(err), Err: fmt.Errorf("SendEmail: %w", err)}
	}
	return nil
}

// Verify reads the account, which checks credentials and reachability.
func (t *SESTransport) Verify(ctx context.Context) error {
	ctx, cancel := t.bound(ctx)
	defer cancel()

	if _, err := t.client.GetAccount(ctx, &sesv2.GetAccountInput{}, singleAttempt); err != nil {
		return &DeliveryError{Provider: t.Name(), Kind: classifySESError(err), Err: fmt.Errorf("GetAccount: %w", err)}
	}
	return nil
}

func (t *SESTransport) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, t.timeout)
}

var sesAuthCodes = map[string]bool{
	"InvalidClientTokenId":        true,
	"SignatureDoesNotMatch":       true,
	"UnrecognizedClientException": true,
	"AccessDeniedException":       true,
	"ExpiredToken":                true,
	"ExpiredTokenException":       true,
}

// classifySESError reads the structured API error code and HTTP status
// the SDK attaches; transport failures fall through to classifyNetError.
func classifySESError(err error) ErrorKind {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && sesAuthCodes[apiErr.ErrorCode()] {
		return KindAuthFailure
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return classifyHTTPStatus(respErr.HTTPStatusCode())
	}
	return classifyNetError(err)
}
