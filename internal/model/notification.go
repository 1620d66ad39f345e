package model

import "time"

// NotificationType is the closed set of notification triggers.
type NotificationType string

const (
	// NotifQuestionAssigned is sent to the assignee when a question
	// naming them is created.
	NotifQuestionAssigned NotificationType = "NEW_QUESTION_ASSIGNED"

	// NotifAnswerPosted is sent to the question's creator when the
	// assignee posts an answer.
	NotifAnswerPosted NotificationType = "NEW_ANSWER_POSTED"

	// NotifPendingApproval is sent to the question's creator when the
	// question moves to PENDING_APPROVAL.
	NotifPendingApproval NotificationType = "QUESTION_PENDING_APPROVAL"

	// NotifQuestionClosed is sent to the assignee when their answered
	// question is closed.
	NotifQuestionClosed NotificationType = "ANSWERED_QUESTION_CLOSED"

	// NotifAssigneeDeadline is sent to the assignee by the deadline
	// sweep when an open question passes its deadline.
	NotifAssigneeDeadline NotificationType = "ASSIGNEE_DEADLINE_EXCEEDED"

	// NotifRequesterDeadline is sent to the question's creator by the
	// deadline sweep when an open question passes its deadline.
	NotifRequesterDeadline NotificationType = "REQUESTER_DEADLINE_EXCEEDED"
)

// Notification is a durable per-recipient event record. It weakly
// references a question by id; there is no cascading ownership. Only the
// dispatcher creates notifications, and only the recipient may flip
// IsRead.
type Notification struct {
	ID        string
	UserID    string
	Type      NotificationType
	RelatedID string
	IsRead    bool
	CreatedAt time.Time
}
