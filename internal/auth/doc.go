// Package auth drives the remote authorization handshake that yields a
// package download URL.
//
// A run starts a session with the service, hands the user a
// verification link, then polls the session on a fixed interval until
// it resolves. The pieces are separate so the polling policy can be
// tested without a network:
//
//   - Client performs single Start and Poll calls against the service.
//   - Poller owns the retry, cancellation and timeout policy.
//   - Machine tracks one run through Idle, Starting, Polling and a
//     terminal state.
//
// Terminal failures are reported as *RejectedError (with a classified
// Reason), ErrMalformedResponse, ErrServiceUnavailable, ErrTimedOut or
// ErrCancelled. *NetworkError is transient and only seen by the Poller.
package auth
