// Package events routes inbound webhook events to the handlers subscribed to
// their type.
package events

import (
	"time"
)

// Event types consumed by the bot. Types are "<webhook event>.<action>".
const (
	PullRequestOpened      = "pull_request.opened"
	PullRequestSynchronize = "pull_request.synchronize"
	PullRequestReopened    = "pull_request.reopened"

	IssueCommentCreated  = "issue_comment.created"
	ReviewCommentCreated = "pull_request_review_comment.created"

	InstallationCreated = "installation.created"
	InstallationDeleted = "installation.deleted"
)

// PullRequestLifecycle lists the events that start a review workflow.
var PullRequestLifecycle = []string{PullRequestOpened, PullRequestSynchronize, PullRequestReopened}

// CommentCreation lists the events that may carry a bot command.
var CommentCreation = []string{IssueCommentCreated, ReviewCommentCreated}

// Installation lists app installation events.
var Installation = []string{InstallationCreated, InstallationDeleted}

// Event is one inbound webhook delivery. Payload is the parsed webhook body;
// handlers assert the concrete type they expect.
type Event struct {
	ID         string
	Type       string
	Payload    interface{}
	ReceivedAt time.Time
}
