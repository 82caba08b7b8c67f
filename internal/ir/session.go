package ir

import (
	"slices"
	"time"
)

// SessionID identifies a candidate session.
type SessionID int64

// EventID identifies a candidate event. Ids are assigned by the store in
// append order.
type EventID int64

// CandidateSession is one candidate's pairing with a delivery.
// Sessions are created at launch and never deleted.
type CandidateSession struct {
	ID         SessionID    `json:"id"`
	Token      string       `json:"token"`
	DeliveryID string       `json:"delivery_id"`
	Kind       DeliveryKind `json:"kind"`
	CreatedAt  time.Time    `json:"created_at"`
	Closed     bool         `json:"closed"`
	Terminated bool         `json:"terminated"`
	ExitURL    string       `json:"exit_url,omitempty"`
}

// EventCategory separates item-level and test-level events.
type EventCategory string

const (
	CategoryItem EventCategory = "ITEM"
	CategoryTest EventCategory = "TEST"
)

// Valid reports whether c is a known category.
func (c EventCategory) Valid() bool {
	return c == CategoryItem || c == CategoryTest
}

// ItemEventType tags an item-level transition.
type ItemEventType string

const (
	ItemEventInit           ItemEventType = "INIT"
	ItemEventReinit         ItemEventType = "REINIT"
	ItemEventReset          ItemEventType = "RESET"
	ItemEventAttemptValid   ItemEventType = "ATTEMPT_VALID"
	ItemEventAttemptInvalid ItemEventType = "ATTEMPT_INVALID"
	ItemEventAttemptBad     ItemEventType = "ATTEMPT_BAD"
	ItemEventClose          ItemEventType = "CLOSE"
	ItemEventSolution       ItemEventType = "SOLUTION"
	ItemEventPlayback       ItemEventType = "PLAYBACK"
	ItemEventTerminate      ItemEventType = "TERMINATE"
)

// ItemEventTypes is the closed set of item event types.
var ItemEventTypes = []ItemEventType{
	ItemEventInit,
	ItemEventReinit,
	ItemEventReset,
	ItemEventAttemptValid,
	ItemEventAttemptInvalid,
	ItemEventAttemptBad,
	ItemEventClose,
	ItemEventSolution,
	ItemEventPlayback,
	ItemEventTerminate,
}

// Valid reports whether t is one of ItemEventTypes.
func (t ItemEventType) Valid() bool {
	return slices.Contains(ItemEventTypes, t)
}

// IsAttempt reports whether t records a response submission.
func (t ItemEventType) IsAttempt() bool {
	return t == ItemEventAttemptValid || t == ItemEventAttemptInvalid || t == ItemEventAttemptBad
}

// PlaybackCapable reports whether a candidate may play back an event of type t.
func (t ItemEventType) PlaybackCapable() bool {
	switch t {
	case ItemEventInit, ItemEventReinit, ItemEventReset,
		ItemEventAttemptValid, ItemEventAttemptInvalid, ItemEventAttemptBad:
		return true
	default:
		return false
	}
}

// TestEventType tags a test-level transition.
type TestEventType string

const (
	TestEventInit            TestEventType = "INIT"
	TestEventEnterTest       TestEventType = "ENTER_TEST"
	TestEventSelectMenu      TestEventType = "SELECT_MENU"
	TestEventSelectItem      TestEventType = "SELECT_ITEM"
	TestEventFinishItem      TestEventType = "FINISH_ITEM"
	TestEventItemEvent       TestEventType = "ITEM_EVENT" // ItemType carries the attempt outcome
	TestEventEndTestPart     TestEventType = "END_TEST_PART"
	TestEventReviewTestPart  TestEventType = "REVIEW_TEST_PART"
	TestEventReviewItem      TestEventType = "REVIEW_ITEM"
	TestEventSolutionItem    TestEventType = "SOLUTION_ITEM"
	TestEventAdvanceTestPart TestEventType = "ADVANCE_TEST_PART"
	TestEventExitTest        TestEventType = "EXIT_TEST"
)

// TestEventTypes is the closed set of test event types.
var TestEventTypes = []TestEventType{
	TestEventInit,
	TestEventEnterTest,
	TestEventSelectMenu,
	TestEventSelectItem,
	TestEventFinishItem,
	TestEventItemEvent,
	TestEventEndTestPart,
	TestEventReviewTestPart,
	TestEventReviewItem,
	TestEventSolutionItem,
	TestEventAdvanceTestPart,
	TestEventExitTest,
}

// Valid reports whether t is one of TestEventTypes.
func (t TestEventType) Valid() bool {
	return slices.Contains(TestEventTypes, t)
}

// NotificationLevel grades a notification raised while processing an event.
type NotificationLevel string

const (
	NotificationInfo    NotificationLevel = "INFO"
	NotificationWarning NotificationLevel = "WARNING"
	NotificationError   NotificationLevel = "ERROR"
)

// Rank orders levels from least to most severe.
func (l NotificationLevel) Rank() int {
	switch l {
	case NotificationInfo:
		return 0
	case NotificationWarning:
		return 1
	case NotificationError:
		return 2
	default:
		return -1
	}
}

// Notification is a message raised by the item runtime during an operation.
type Notification struct {
	Level   NotificationLevel `json:"level"`
	Source  string            `json:"source"` // variable or node the message concerns
	Message string            `json:"message"`
}

// CandidateEvent is an immutable entry in a session's event log.
// State is the JSON snapshot of an ItemSessionState (item sessions) or a
// TestSessionState (test sessions) after the transition; see EncodeState.
type CandidateEvent struct {
	ID            EventID        `json:"id"`
	SessionID     SessionID      `json:"session_id"`
	Category      EventCategory  `json:"category"`
	ItemType      ItemEventType  `json:"item_type,omitempty"`
	TestType      TestEventType  `json:"test_type,omitempty"`
	ItemKey       NodeKey        `json:"item_key,omitempty"` // test item the event concerns
	State         []byte         `json:"state"`
	Notifications []Notification `json:"notifications"`
	TargetEventID *EventID       `json:"target_event_id,omitempty"` // playback target
	CreatedAt     time.Time      `json:"created_at"`
	Digest        string         `json:"digest"` // chained with the previous event of the session
}

// NewEvent is what a caller supplies to append an event. The store assigns
// ID, CreatedAt ordering and Digest.
type NewEvent struct {
	Category      EventCategory
	ItemType      ItemEventType
	TestType      TestEventType
	ItemKey       NodeKey
	State         []byte
	Notifications []Notification
	TargetEventID *EventID
	CreatedAt     time.Time
}
