// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

// Package message defines the cross-process messaging contract and the
// in-process bus used by single-process deployments and tests.
package message

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Message types.
const (
	TypeVerification = "verification"
	TypePunishment   = "punishment"
)

// Punishment message actions.
const (
	PunishmentCreate = "CREATE"
	PunishmentPardon = "PARDON"
)

// Message is a typed payload carried over a Messenger.
type Message interface {
	// MessageType returns the type tag used for subscription routing.
	MessageType() string
}

// VerificationMessage links an in-game account to an external (Discord)
// identity via a short numeric code. Response is false for the request
// published by the game side and true for the answer published by the
// bot process.
type VerificationMessage struct {
	AccountID      string `json:"account_id"`
	ExternalUserID string `json:"external_user_id"`
	Code           int    `json:"code"`
	Response       bool   `json:"response"`
}

// MessageType implements Message.
func (VerificationMessage) MessageType() string { return TypeVerification }

// PunishmentMessage announces a punishment lifecycle change.
type PunishmentMessage struct {
	Author       string `json:"author,omitempty"`
	Action       string `json:"action"` // PunishmentCreate or PunishmentPardon
	PunishmentID string `json:"punishment_id"`
	Extra        string `json:"extra,omitempty"`
}

// MessageType implements Message.
func (PunishmentMessage) MessageType() string { return TypePunishment }

// Envelope is the wire form of a message for cross-process transports.
type Envelope struct {
	ID        ulid.ULID       `json:"id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Seal wraps a message into an envelope.
func Seal(msg Message) (Envelope, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return Envelope{}, oops.Code("MESSAGE_SEAL_FAILED").
			With("type", msg.MessageType()).
			Wrap(err)
	}
	return Envelope{
		ID:        ulid.Make(),
		Type:      msg.MessageType(),
		Timestamp: time.Now(),
		Payload:   payload,
	}, nil
}

// Open unwraps an envelope into its typed message.
func Open(env Envelope) (Message, error) {
	switch env.Type {
	case TypeVerification:
		var msg VerificationMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return nil, oops.Code("MESSAGE_OPEN_FAILED").With("type", env.Type).Wrap(err)
		}
		return msg, nil
	case TypePunishment:
		var msg PunishmentMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return nil, oops.Code("MESSAGE_OPEN_FAILED").With("type", env.Type).Wrap(err)
		}
		return msg, nil
	default:
		return nil, oops.Code("MESSAGE_UNKNOWN_TYPE").Errorf("unknown message type: %s", env.Type)
	}
}

// Handler consumes messages of a subscribed type.
type Handler func(ctx context.Context, msg Message)

// Messenger is the asynchronous channel between the game server and the
// bot process. Delivery is at-least-once with no cross-process ordering
// guarantee. The local flag controls whether a publication also triggers
// handlers registered in the publishing process.
type Messenger interface {
	// Publish sends a message. When local is true, same-process
	// subscribers receive it too.
	Publish(ctx context.Context, msg Message, local bool) error

	// Subscribe registers a handler for a message type and returns an
	// unsubscribe function.
	Subscribe(msgType string, h Handler) (unsubscribe func())
}
