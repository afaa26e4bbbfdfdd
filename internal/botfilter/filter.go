// Package botfilter screens public submissions with a honeypot field and
// Cloudflare Turnstile verification.
package botfilter

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Action is what the caller should do with a submission
type Action int

const (
	// Accept lets the submission through
	Accept Action = iota
	// Discard answers success without persisting (honeypot tripped)
	Discard
	// Reject refuses the submission with a reason
	Reject
)

// Rejection reasons shown to submitters
const (
	ReasonMissingToken  = "Missing Turnstile token."
	ReasonFailed        = "Turnstile verification failed."
	ReasonMissingSecret = "Server is missing Turnstile secret."
)

// Challenge is the bot-relevant part of a request
type Challenge struct {
	Honeypot string
	Token    string
	RemoteIP string
}

// Decision is the outcome of Check
type Decision struct {
	Action  Action
	Reason  string
	Skipped bool // verification skipped because no secret is configured
	Details *VerifyResult
}

// Rejection is returned by callers that turn a Reject decision into an error
type Rejection struct {
	Reason  string
	Details *VerifyResult
}

func (r *Rejection) Error() string { return r.Reason }

// Filter applies the honeypot and Turnstile checks.
// A nil verifier means no secret is configured.
type Filter struct {
	verifier Verifier
	required bool
	log      zerolog.Logger
}

// New creates a Filter. When verifier is nil, verification is skipped unless
// required is set, in which case every submission is rejected.
func New(verifier Verifier, required bool, log zerolog.Logger) *Filter {
	return &Filter{
		verifier: verifier,
		required: required,
		log:      log.With().Str("component", "botfilter").Logger(),
	}
}

// Check decides whether a submission may proceed. It makes at most one outbound call.
func (f *Filter) Check(ctx context.Context, ch Challenge) Decision {
	if strings.TrimSpace(ch.Honeypot) != "" {
		f.log.Warn().Str("client_ip", ch.RemoteIP).Msg("Honeypot field filled, discarding submission")
		return Decision{Action: Discard}
	}

	if f.verifier == nil {
		if f.required {
			f.log.Error().Msg("Turnstile required but no secret configured")
			return Decision{Action: Reject, Reason: ReasonMissingSecret}
		}
		return Decision{Action: Accept, Skipped: true}
	}

	token := strings.TrimSpace(ch.Token)
	if token == "" {
		return Decision{Action: Reject, Reason: ReasonMissingToken}
	}

	result, err := f.verifier.Verify(ctx, token, ch.RemoteIP)
	if err != nil {
		f.log.Warn().Err(err).Str("client_ip", ch.RemoteIP).Msg("Turnstile verification errored")
		return Decision{Action: Reject, Reason: ReasonFailed}
	}
	if !result.Success {
		f.log.Warn().
			Strs("error_codes", result.ErrorCodes).
			Str("client_ip", ch.RemoteIP).
			Msg("Turnstile verification rejected token")
		return Decision{Action: Reject, Reason: ReasonFailed, Details: result}
	}

	return Decision{Action: Accept}
}
