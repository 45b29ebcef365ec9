package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
)

// UserFriendlyError provides user-friendly error messages with context and hints
type UserFriendlyError struct {
	Message string
	Reason  string
	Hint    string
	Try     string
	Err     error
}

func (e UserFriendlyError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Message)
	if e.Reason != "" {
		buf.WriteString("\n  Reason: " + e.Reason)
	}
	if e.Hint != "" {
		buf.WriteString("\n  Hint: " + e.Hint)
	}
	if e.Try != "" {
		buf.WriteString("\n  Try: " + e.Try)
	}
	if e.Err != nil {
		buf.WriteString("\n  Details: " + e.Err.Error())
	}
	return buf.String()
}

func (e UserFriendlyError) Unwrap() error {
	return e.Err
}

// IsCancelled reports whether err stems from an operator abort.
func IsCancelled(err error) bool {
	return stderrors.Is(err, context.Canceled)
}

// Friendly turns a classified replay error into a UserFriendlyError.
// Unclassified errors are returned unchanged.
func Friendly(err error) error {
	if err == nil {
		return nil
	}
	switch KindOf(err) {
	case KindConfig:
		return UserFriendlyError{
			Message: "Invalid replay configuration",
			Reason:  extractConfigReason(err),
			Hint:    "Endpoints are written IP:PORT, e.g. 10.0.0.1:5000 or [::1]:5000",
			Try:     "udpreplay replay --help",
			Err:     err,
		}
	case KindCaptureLoad:
		return UserFriendlyError{
			Message: "Failed to load capture file",
			Reason:  "The file is missing, unreadable, or not a pcap/pcapng capture",
			Try:     "udpreplay inspect --pcap <file>",
			Err:     err,
		}
	case KindBind:
		return UserFriendlyError{
			Message: "Failed to bind the local replay socket",
			Reason:  extractNetworkReason(err),
			Hint:    "The new source address must be assigned to a local interface",
			Try:     "Pick a free port or pass --reuse-addr",
			Err:     err,
		}
	case KindMalformedHandshake:
		return UserFriendlyError{
			Message: "Peer sent a malformed session handshake",
			Reason:  "The first datagram is too short to carry a session token",
			Hint:    "Check that the peer is the expected service",
			Err:     err,
		}
	case KindHandshake:
		return UserFriendlyError{
			Message: "No session handshake received",
			Reason:  extractNetworkReason(err),
			Hint:    "The peer must send one datagram to the new source address before replay starts",
			Try:     "Raise --handshake-timeout or pass 0 to wait indefinitely",
			Err:     err,
		}
	case KindInvalidPayload:
		return UserFriendlyError{
			Message: "First replayed packet cannot be patched",
			Reason:  "Its payload is too short to hold the session token",
			Hint:    "Check --old-dest selects the session's traffic",
			Err:     err,
		}
	case KindSend:
		return UserFriendlyError{
			Message: "Replay aborted on send failure",
			Reason:  extractNetworkReason(err),
			Try:     "Re-run with --continue-on-error to skip failed packets",
			Err:     err,
		}
	}
	return err
}

// WrapConfigError wraps configuration errors with user-friendly context
func WrapConfigError(err error, configPath string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Configuration error in %s", configPath),
		Reason:  err.Error(),
		Hint:    "Profiles are YAML with pcap, old_dest and new_src keys",
		Try:     fmt.Sprintf("udpreplay replay --config %s --help", configPath),
		Err:     err,
	}
}

func extractConfigReason(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "port") {
		return "Port must be a base-10 integer between 0 and 65535"
	}
	if strings.Contains(errStr, "required") {
		return "A required setting is missing"
	}
	if strings.Contains(errStr, "host") || strings.Contains(errStr, "address") {
		return "Host is not an IP address or resolvable name"
	}
	return "Configuration value is malformed"
}

func extractNetworkReason(err error) string {
	errStr := err.Error()

	if strings.Contains(errStr, "address already in use") {
		return "Address already in use - another process holds this port"
	}
	if strings.Contains(errStr, "cannot assign requested address") {
		return "Address not available - no local interface has this IP"
	}
	if strings.Contains(errStr, "permission denied") {
		return "Permission denied - privileged ports need elevated rights"
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return "Timed out"
	}
	if strings.Contains(errStr, "connection refused") {
		return "Connection refused - peer is not listening on this port"
	}
	if strings.Contains(errStr, "no route to host") || strings.Contains(errStr, "network is unreachable") {
		return "No route to host - network routing issue or peer unreachable"
	}

	return "Network communication failed"
}
