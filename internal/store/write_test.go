package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deliver/internal/ir"
)

func TestPutDelivery_Upsert(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	d := ir.Delivery{
		ID:            "t1",
		Kind:          ir.DeliveryTest,
		AssessmentRef: "maths",
		Title:         "Maths",
		Test:          &ir.TestDeliverySettings{AllowResult: true},
	}
	require.NoError(t, s.PutDelivery(ctx, d))

	d.Title = "Maths v2"
	d.Test.TerminateOnTestEnd = true
	require.NoError(t, s.PutDelivery(ctx, d))

	got, err := s.ReadDelivery(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Maths v2", got.Title)
	require.NotNil(t, got.Test)
	assert.True(t, got.Test.TerminateOnTestEnd)
	assert.Nil(t, got.Item)
}

func TestPutDelivery_InvalidKind(t *testing.T) {
	s := createTestStore(t)
	err := s.PutDelivery(context.Background(), ir.Delivery{ID: "x", Kind: "QUIZ"})
	assert.Error(t, err)
}

func TestCreateSession_AssignsIDs(t *testing.T) {
	s := createTestStore(t)
	first := createTestSession(t, s)

	second, err := s.CreateSession(context.Background(), ir.CandidateSession{
		Token:      "tok2",
		DeliveryID: "d1",
		Kind:       ir.DeliveryItem,
		CreatedAt:  epoch,
	})
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)
}

func TestCreateSession_UnknownDelivery(t *testing.T) {
	s := createTestStore(t)
	_, err := s.CreateSession(context.Background(), ir.CandidateSession{
		Token:      "tok",
		DeliveryID: "missing",
		Kind:       ir.DeliveryItem,
		CreatedAt:  epoch,
	})
	assert.Error(t, err, "foreign key must reject unknown delivery")
}

func TestUpdateSession_NotFound(t *testing.T) {
	s := createTestStore(t)
	err := s.UpdateSession(context.Background(), ir.CandidateSession{ID: 42})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendEvent_ChainsDigests(t *testing.T) {
	s := createTestStore(t)
	sess := createTestSession(t, s)
	ctx := context.Background()

	first, err := s.AppendEvent(ctx, sess.ID, itemEvent(t, ir.ItemEventInit, epoch))
	require.NoError(t, err)
	second, err := s.AppendEvent(ctx, sess.ID, itemEvent(t, ir.ItemEventAttemptValid, epoch.Add(time.Second)))
	require.NoError(t, err)

	assert.Equal(t, ir.MustEventDigest(ir.GenesisDigest, first), first.Digest)
	assert.Equal(t, ir.MustEventDigest(first.Digest, second), second.Digest)
	assert.Greater(t, second.ID, first.ID)
	assert.NotNil(t, first.Notifications)
}

func TestAppendEvent_ClampsCreatedAt(t *testing.T) {
	s := createTestStore(t)
	sess := createTestSession(t, s)
	ctx := context.Background()

	_, err := s.AppendEvent(ctx, sess.ID, itemEvent(t, ir.ItemEventInit, epoch.Add(time.Minute)))
	require.NoError(t, err)
	late, err := s.AppendEvent(ctx, sess.ID, itemEvent(t, ir.ItemEventClose, epoch))
	require.NoError(t, err)

	assert.Equal(t, epoch.Add(time.Minute), late.CreatedAt, "clock skew must not reorder the log")

	last, err := s.MostRecentEvent(ctx, sess.ID, ir.CategoryItem)
	require.NoError(t, err)
	assert.Equal(t, late.ID, last.ID)
}

func TestAppendEvent_Rejects(t *testing.T) {
	s := createTestStore(t)
	sess := createTestSession(t, s)
	ctx := context.Background()

	_, err := s.AppendEvent(ctx, sess.ID, ir.NewEvent{Category: "BOGUS", State: []byte("{}")})
	assert.Error(t, err)

	_, err = s.AppendEvent(ctx, sess.ID, ir.NewEvent{Category: ir.CategoryItem})
	assert.Error(t, err)
}

func TestAppendEvent_PreservesFields(t *testing.T) {
	s := createTestStore(t)
	sess := createTestSession(t, s)
	ctx := context.Background()

	init, err := s.AppendEvent(ctx, sess.ID, itemEvent(t, ir.ItemEventInit, epoch))
	require.NoError(t, err)

	ne := itemEvent(t, ir.ItemEventPlayback, epoch.Add(time.Second))
	ne.TargetEventID = &init.ID
	ne.ItemKey = "Q1"
	ne.Notifications = []ir.Notification{{Level: ir.NotificationWarning, Source: "RESPONSE", Message: "a < b"}}
	stored, err := s.AppendEvent(ctx, sess.ID, ne)
	require.NoError(t, err)

	got, err := s.ReadEvent(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored, got)
	require.NotNil(t, got.TargetEventID)
	assert.Equal(t, init.ID, *got.TargetEventID)
}

func TestWriteResponses_Idempotent(t *testing.T) {
	s := createTestStore(t)
	sess := createTestSession(t, s)
	ctx := context.Background()

	ev, err := s.AppendEvent(ctx, sess.ID, itemEvent(t, ir.ItemEventAttemptBad, epoch))
	require.NoError(t, err)

	responses := []ir.CandidateResponse{
		{Identifier: "RESPONSE", DataType: ir.ResponseString, Strings: []string{"A", "B"}, Legality: ir.LegalityValid},
		{Identifier: "ESSAY", DataType: ir.ResponseFile, File: &ir.FileSubmission{ID: "f1", Path: "/tmp/a.txt", ContentType: "text/plain"}, Legality: ir.LegalityBad},
	}
	require.NoError(t, s.WriteResponses(ctx, ev.ID, responses))
	require.NoError(t, s.WriteResponses(ctx, ev.ID, responses))

	got, err := s.ReadResponses(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "ESSAY", got[0].Identifier)
	require.NotNil(t, got[0].File)
	assert.Equal(t, "text/plain", got[0].File.ContentType)
	assert.Equal(t, ir.LegalityBad, got[0].Legality)

	assert.Equal(t, "RESPONSE", got[1].Identifier)
	assert.Equal(t, []string{"A", "B"}, got[1].Strings)
	assert.Nil(t, got[1].File)
}

func TestWriteResult_OncePerEvent(t *testing.T) {
	s := createTestStore(t)
	sess := createTestSession(t, s)
	ctx := context.Background()

	ev, err := s.AppendEvent(ctx, sess.ID, itemEvent(t, ir.ItemEventClose, epoch))
	require.NoError(t, err)

	res := ir.AssessmentResult{
		SessionID:   sess.ID,
		EventID:     ev.ID,
		ComputedAt:  epoch,
		ItemResults: map[string]ir.IRObject{"choice": {"SCORE": ir.IRInt(1)}},
		Outcomes:    ir.IRObject{"SCORE": ir.IRInt(1)},
	}
	inserted, err := s.WriteResult(ctx, res)
	require.NoError(t, err)
	assert.True(t, inserted)

	res.Outcomes = ir.IRObject{"SCORE": ir.IRInt(0)}
	inserted, err = s.WriteResult(ctx, res)
	require.NoError(t, err)
	assert.False(t, inserted)

	results, err := s.ReadResults(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ir.IRInt(1), results[0].Outcomes["SCORE"])
	assert.Equal(t, ir.IRInt(1), results[0].ItemResults["choice"]["SCORE"])
}
