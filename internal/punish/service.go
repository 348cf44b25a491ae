// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package punish

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/emberlink/emberlink/internal/message"
)

// ErrNotFound is returned when a punishment does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyPardoned is returned when pardoning a pardoned punishment.
var ErrAlreadyPardoned = oops.Code("PUNISH_ALREADY_PARDONED").Errorf("punishment is already pardoned")

// Service creates and pardons punishments, persisting them and
// publishing lifecycle events for the bot process.
type Service struct {
	store     Store
	messenger message.Messenger
	logger    *slog.Logger
}

// NewService creates a Service. Logger defaults to slog.Default().
func NewService(store Store, messenger message.Messenger, logger *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, oops.Code("PUNISH_INVALID_DEPS").Errorf("punishment store is required")
	}
	if messenger == nil {
		return nil, oops.Code("PUNISH_INVALID_DEPS").Errorf("messenger is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, messenger: messenger, logger: logger}, nil
}

// Punish creates and persists a punishment, then publishes a CREATE
// event. The event is best-effort: a failed publish does not undo the
// persisted record and is logged instead.
func (s *Service) Punish(ctx context.Context, target, reason string, kind Type, duration *time.Duration, author string) (*Punishment, error) {
	p, err := NewPunishment(target, reason, kind, duration, author)
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, p); err != nil {
		return nil, oops.Code("PUNISH_SAVE_FAILED").
			With("target", target).
			With("type", string(kind)).
			Wrap(err)
	}

	s.publish(ctx, message.PunishmentMessage{
		Author:       author,
		Action:       message.PunishmentCreate,
		PunishmentID: p.ID.String(),
		Extra:        reason,
	})

	s.logger.Info("punishment created",
		"punishment_id", p.ID.String(), "type", string(kind), "target", target)
	return p, nil
}

// PardonByID applies the single allowed mutation to a punishment and
// publishes a PARDON event.
func (s *Service) PardonByID(ctx context.Context, id, reason, author string) (*Punishment, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("PUNISH_NOT_FOUND").With("punishment_id", id).Wrap(err)
		}
		return nil, oops.Code("PUNISH_PARDON_FAILED").With("punishment_id", id).Wrap(err)
	}

	if p.IsPardoned() {
		return nil, ErrAlreadyPardoned
	}

	p.Pardon = &Pardon{At: time.Now(), Reason: reason, Author: author}

	if err := s.store.Save(ctx, p); err != nil {
		return nil, oops.Code("PUNISH_PARDON_FAILED").With("punishment_id", id).Wrap(err)
	}

	s.publish(ctx, message.PunishmentMessage{
		Author:       author,
		Action:       message.PunishmentPardon,
		PunishmentID: p.ID.String(),
		Extra:        reason,
	})

	s.logger.Info("punishment pardoned", "punishment_id", p.ID.String())
	return p, nil
}

func (s *Service) publish(ctx context.Context, msg message.PunishmentMessage) {
	if err := s.messenger.Publish(ctx, msg, true); err != nil {
		s.logger.Error("failed to publish punishment event",
			"punishment_id", msg.PunishmentID, "action", msg.Action, "error", err)
	}
}
