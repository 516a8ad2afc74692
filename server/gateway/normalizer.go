package gateway

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"
)

var (
	// ErrCrossOrigin is returned by the redirect policy when the backend tries to
	// send the client to a different origin. Session cookies must not follow it.
	ErrCrossOrigin = errors.New("redirect to a different origin refused")

	// ErrTooManyRedirects is returned by the redirect policy after maxRedirects hops
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrMalformedBody marks a 2xx body that does not match the expected schema
	ErrMalformedBody = errors.New("malformed response body")
)

// errorBody is the error shape returned by the crime backend.
// Django REST framework answers auth failures with "detail" instead of "error".
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Classify turns a failed round trip into a typed gateway error. The message
// names baseURL so users can tell which server could not be reached.
func Classify(err error, baseURL string) *Error {
	if err == nil {
		return nil
	}

	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr
	}

	switch {
	case errors.Is(err, ErrCrossOrigin):
		return &Error{
			Kind:    KindCORSBlocked,
			Message: fmt.Sprintf("CORS error: The server at %s is not allowing requests from this origin", baseURL),
			cause:   err,
		}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindUnknown, Message: "request canceled", cause: err}
	case errors.Is(err, ErrTooManyRedirects):
		return &Error{
			Kind:    KindUnknown,
			Message: fmt.Sprintf("The server at %s redirected too many times", baseURL),
			cause:   err,
		}
	case isTLS(err):
		return &Error{
			Kind:    KindUnknown,
			Message: fmt.Sprintf("TLS error talking to %s: %s", baseURL, causeText(err)),
			cause:   err,
		}
	case isUnreachable(err):
		return &Error{
			Kind:    KindNetworkUnreachable,
			Message: fmt.Sprintf("Network error: Please check if the server is running at %s", baseURL),
			cause:   err,
		}
	case isMalformed(err):
		return &Error{
			Kind:    KindBadResponse,
			Message: fmt.Sprintf("Invalid response from the server at %s: %s", baseURL, err.Error()),
			cause:   err,
		}
	}

	return &Error{Kind: KindUnknown, Message: err.Error(), cause: err}
}

// ServerError builds a SERVER_ERROR for a non-2xx response, preferring the
// message supplied by the server over fallback.
func ServerError(status int, body []byte, fallback string) *Error {
	msg := fallback

	var payload errorBody
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		switch {
		case strings.TrimSpace(payload.Error) != "":
			msg = payload.Error
		case strings.TrimSpace(payload.Detail) != "":
			msg = payload.Detail
		}
	}

	return &Error{Kind: KindServerError, Status: status, Message: msg}
}

// BadResponse builds a BAD_RESPONSE for a 2xx body that failed validation.
func BadResponse(format string, args ...any) *Error {
	return &Error{
		Kind:    KindBadResponse,
		Message: fmt.Sprintf(format, args...),
		cause:   ErrMalformedBody,
	}
}

func isUnreachable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// isTLS reports handshake and certificate failures. The server is reachable,
// so they must not read as a connection problem.
func isTLS(err error) bool {
	var verifyErr *tls.CertificateVerificationError
	var recordErr tls.RecordHeaderError
	var authorityErr x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var invalidErr x509.CertificateInvalidError
	if errors.As(err, &verifyErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidErr) {
		return true
	}

	// TLS alerts sent by the server arrive as an OpError with this op
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "remote error"
}

// causeText drops the "Get <url>:" prefix a *url.Error adds
func causeText(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}

func isMalformed(err error) bool {
	if errors.Is(err, ErrMalformedBody) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return true
	}

	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &typeErr)
}
