package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/Veraticus/spice-capture/internal/common"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const maxErrorBody = 512

// statusError maps a non-2xx HTTP response onto the classification taxonomy.
// Client errors other than 408 and 429 count as the service being unusable.
func statusError(provider string, code int, body []byte) error {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}

	kind := common.ErrServiceUnavailable
	switch code {
	case http.StatusTooManyRequests:
		kind = common.ErrRateLimited
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		kind = common.ErrTimeout
	}
	return fmt.Errorf("%w: %s API error (status %d): %s", kind, provider, code, string(body))
}

// transportError maps a failed round trip onto the classification taxonomy.
// Caller cancellation is passed through untouched.
func transportError(provider string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s request: %w", common.ErrTimeout, provider, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s request: %w", common.ErrTimeout, provider, err)
	}
	return fmt.Errorf("%w: %s request: %w", common.ErrServiceUnavailable, provider, err)
}

func malformed(provider, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", common.ErrMalformedResponse, provider, fmt.Sprintf(format, args...))
}

// genaiError maps errors from the Gemini SDK.
func genaiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return statusError("gemini", apiErr.Code, []byte(apiErr.Message))
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return statusError("gemini", apiErrPtr.Code, []byte(apiErrPtr.Message))
	}
	return transportError("gemini", err)
}

// grpcError maps errors from gRPC based Google Cloud clients.
func grpcError(provider string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return transportError(provider, err)
	}
	st, ok := status.FromError(err)
	if !ok {
		return transportError(provider, err)
	}
	switch st.Code() {
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %s: %s", common.ErrRateLimited, provider, st.Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s: %s", common.ErrTimeout, provider, st.Message())
	case codes.Canceled:
		return context.Canceled
	default:
		return fmt.Errorf("%w: %s: %s (%s)", common.ErrServiceUnavailable, provider, st.Message(), st.Code())
	}
}
