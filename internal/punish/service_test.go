// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package punish_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberlink/emberlink/internal/message"
	"github.com/emberlink/emberlink/internal/punish"
	"github.com/emberlink/emberlink/pkg/errutil"
)

// fakeStore is an in-memory punish.Store.
type fakeStore struct {
	punishments map[string]*punish.Punishment
	saveErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{punishments: make(map[string]*punish.Punishment)}
}

func (s *fakeStore) Save(_ context.Context, p *punish.Punishment) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.punishments[p.ID.String()] = p
	return nil
}

func (s *fakeStore) FindByID(_ context.Context, id string) (*punish.Punishment, error) {
	p, ok := s.punishments[id]
	if !ok {
		return nil, punish.ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) FindActiveByTarget(_ context.Context, target string) ([]*punish.Punishment, error) {
	var active []*punish.Punishment
	for _, p := range s.punishments {
		if p.Target == target && p.ActiveAt(time.Now()) {
			active = append(active, p)
		}
	}
	return active, nil
}

// recordingMessenger captures published messages.
type recordingMessenger struct {
	published  []message.Message
	publishErr error
}

func (m *recordingMessenger) Publish(_ context.Context, msg message.Message, _ bool) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, msg)
	return nil
}

func (m *recordingMessenger) Subscribe(string, message.Handler) func() {
	return func() {}
}

func newTestService(t *testing.T, store punish.Store, messenger message.Messenger) *punish.Service {
	t.Helper()
	s, err := punish.NewService(store, messenger, nil)
	require.NoError(t, err)
	return s
}

func TestNewService_RequiresDependencies(t *testing.T) {
	_, err := punish.NewService(nil, &recordingMessenger{}, nil)
	require.Error(t, err)
	_, err = punish.NewService(newFakeStore(), nil, nil)
	require.Error(t, err)
}

func TestService_Punish(t *testing.T) {
	store := newFakeStore()
	messenger := &recordingMessenger{}
	svc := newTestService(t, store, messenger)

	dur := 2 * time.Hour
	p, err := svc.Punish(context.Background(), "10.0.0.1", "griefing", punish.TypeBan, &dur, "mod_alice")
	require.NoError(t, err)

	stored, err := store.FindByID(context.Background(), p.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "griefing", stored.Reason)

	require.Len(t, messenger.published, 1)
	event, ok := messenger.published[0].(message.PunishmentMessage)
	require.True(t, ok)
	assert.Equal(t, message.PunishmentCreate, event.Action)
	assert.Equal(t, p.ID.String(), event.PunishmentID)
	assert.Equal(t, "mod_alice", event.Author)
}

func TestService_PunishInvalidRecord(t *testing.T) {
	svc := newTestService(t, newFakeStore(), &recordingMessenger{})

	_, err := svc.Punish(context.Background(), "", "reason", punish.TypeBan, nil, "mod")
	require.Error(t, err)
}

func TestService_PunishSaveFailure(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("connection reset")
	messenger := &recordingMessenger{}
	svc := newTestService(t, store, messenger)

	_, err := svc.Punish(context.Background(), "10.0.0.1", "reason", punish.TypeBan, nil, "mod")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "PUNISH_SAVE_FAILED")
	assert.Empty(t, messenger.published, "no event for an unpersisted punishment")
}

func TestService_PunishPublishFailureIsBestEffort(t *testing.T) {
	store := newFakeStore()
	messenger := &recordingMessenger{publishErr: errors.New("broker down")}
	svc := newTestService(t, store, messenger)

	p, err := svc.Punish(context.Background(), "10.0.0.1", "reason", punish.TypeBan, nil, "mod")
	require.NoError(t, err, "a failed publish must not undo the persisted record")

	_, err = store.FindByID(context.Background(), p.ID.String())
	require.NoError(t, err)
}

func TestService_PardonByID(t *testing.T) {
	store := newFakeStore()
	messenger := &recordingMessenger{}
	svc := newTestService(t, store, messenger)
	ctx := context.Background()

	p, err := svc.Punish(ctx, "10.0.0.1", "griefing", punish.TypeBan, nil, "mod_alice")
	require.NoError(t, err)

	pardoned, err := svc.PardonByID(ctx, p.ID.String(), "appeal accepted", "admin_bob")
	require.NoError(t, err)

	require.True(t, pardoned.IsPardoned())
	assert.Equal(t, "appeal accepted", pardoned.Pardon.Reason)
	assert.Equal(t, "admin_bob", pardoned.Pardon.Author)
	assert.False(t, pardoned.ActiveAt(time.Now()))

	require.Len(t, messenger.published, 2)
	event, ok := messenger.published[1].(message.PunishmentMessage)
	require.True(t, ok)
	assert.Equal(t, message.PunishmentPardon, event.Action)
}

func TestService_PardonTwice(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, &recordingMessenger{})
	ctx := context.Background()

	p, err := svc.Punish(ctx, "10.0.0.1", "griefing", punish.TypeBan, nil, "mod")
	require.NoError(t, err)

	_, err = svc.PardonByID(ctx, p.ID.String(), "first", "admin")
	require.NoError(t, err)

	_, err = svc.PardonByID(ctx, p.ID.String(), "second", "admin")
	assert.ErrorIs(t, err, punish.ErrAlreadyPardoned)
}

func TestService_PardonUnknownID(t *testing.T) {
	svc := newTestService(t, newFakeStore(), &recordingMessenger{})

	_, err := svc.PardonByID(context.Background(), "01JUNKJUNKJUNKJUNKJUNKJUNK", "reason", "admin")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "PUNISH_NOT_FOUND")
}
