// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

// Package verify bridges in-game accounts to an external trusted channel
// (the Discord bot) through short-lived numeric codes exchanged over the
// messenger, without any direct call between the two processes.
package verify

import (
	"context"
	"crypto/rand"
	"log/slog"
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/emberlink/emberlink/internal/account"
	"github.com/emberlink/emberlink/internal/message"
)

// Code bounds: uniform 4-digit codes.
const (
	codeMin  = 1000
	codeSpan = 9000 // codes are codeMin + [0, codeSpan)
)

// ErrAlreadyVerified is returned by Request for an account that already
// completed verification.
var ErrAlreadyVerified = oops.Code("VERIFY_ALREADY_VERIFIED").Errorf("account is already verified")

// Outcomes is the counter for verification outcomes.
// Use RegisterMetrics to register this with a Prometheus registry.
var Outcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "emberlink_verification_outcomes_total",
		Help: "Total number of verification requests and responses by outcome",
	},
	[]string{"outcome"},
)

// RegisterMetrics registers verify package metrics with the given
// Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Outcomes)
}

// Coordinator issues verification codes and consumes the responses the
// bot process publishes on the messenger. Responses arrive
// asynchronously and are correlated by account id; Start registers the
// inbound handler.
type Coordinator struct {
	store     account.Store
	messenger message.Messenger
	codes     *CodeCache
	logger    *slog.Logger
}

// NewCoordinator creates a Coordinator. All dependencies are required
// except logger, which defaults to slog.Default().
func NewCoordinator(store account.Store, messenger message.Messenger, codes *CodeCache, logger *slog.Logger) (*Coordinator, error) {
	if store == nil {
		return nil, oops.Code("VERIFY_INVALID_DEPS").Errorf("account store is required")
	}
	if messenger == nil {
		return nil, oops.Code("VERIFY_INVALID_DEPS").Errorf("messenger is required")
	}
	if codes == nil {
		return nil, oops.Code("VERIFY_INVALID_DEPS").Errorf("code cache is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:     store,
		messenger: messenger,
		codes:     codes,
		logger:    logger,
	}, nil
}

// Start subscribes to verification responses. The returned function
// unsubscribes.
func (c *Coordinator) Start() func() {
	return c.messenger.Subscribe(message.TypeVerification, c.handleMessage)
}

// Request issues (or re-displays) a verification code for the account
// and publishes the request event for the bot process. While a code is
// pending, repeated requests return the same code instead of minting a
// new one. The caller instructs the player out-of-band to submit the
// code through the external channel.
func (c *Coordinator) Request(ctx context.Context, acc *account.Account, externalUserID string) (int, error) {
	if acc.Verified {
		Outcomes.WithLabelValues("already_verified").Inc()
		return 0, ErrAlreadyVerified
	}

	accountID := acc.ID.String()

	if code, ok := c.codes.Get(accountID); ok {
		Outcomes.WithLabelValues("pending_redisplay").Inc()
		return code, nil
	}

	code, err := randomCode()
	if err != nil {
		return 0, oops.Code("VERIFY_CODE_FAILED").Wrap(err)
	}
	c.codes.Put(accountID, code)

	msg := message.VerificationMessage{
		AccountID:      accountID,
		ExternalUserID: externalUserID,
		Code:           code,
		Response:       false,
	}
	if err := c.messenger.Publish(ctx, msg, false); err != nil {
		// The code stays cached; a retry re-displays it.
		return 0, oops.Code("VERIFY_PUBLISH_FAILED").Wrap(err)
	}

	Outcomes.WithLabelValues("requested").Inc()
	return code, nil
}

// handleMessage consumes verification responses. Request events
// (Response=false) are for the bot side and ignored here. A matching
// code is consumed exactly once; mismatched, expired, or duplicate
// responses are silently ignored; the external channel independently
// tells the user their code was rejected.
func (c *Coordinator) handleMessage(ctx context.Context, raw message.Message) {
	msg, ok := raw.(message.VerificationMessage)
	if !ok || !msg.Response {
		return
	}

	if !c.codes.Consume(msg.AccountID, msg.Code) {
		Outcomes.WithLabelValues("rejected").Inc()
		return
	}

	acc, err := c.store.FindByID(ctx, msg.AccountID)
	if err != nil {
		Outcomes.WithLabelValues("error").Inc()
		c.logger.Error("verification response for unknown account",
			"account_id", msg.AccountID, "error", err)
		return
	}

	acc.Verified = true
	acc.GrantRole(account.RoleVerified)
	if msg.ExternalUserID != "" {
		externalID := msg.ExternalUserID
		acc.DiscordID = &externalID
	}

	if err := c.store.Save(ctx, acc); err != nil {
		Outcomes.WithLabelValues("error").Inc()
		c.logger.Error("failed to persist verification",
			"account_id", msg.AccountID, "error", err)
		return
	}

	Outcomes.WithLabelValues("verified").Inc()
	c.logger.Info("account verified",
		"account_id", msg.AccountID, "external_user_id", msg.ExternalUserID)
}

// randomCode returns a uniform random 4-digit code in [1000, 9999].
func randomCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return 0, err
	}
	return codeMin + int(n.Int64()), nil
}
