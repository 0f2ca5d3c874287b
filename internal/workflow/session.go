// Package workflow drives a pull request through the review status workflow:
// an acknowledgement reaction, a progress comment, a check run, the analysis
// and the final updates to the check run and the comment.
package workflow

import (
	"fmt"
	"time"

	"github.com/XiaoConstantine/robinrelay/internal/github"
)

// State is a step of a review session.
type State int

const (
	StateStarted State = iota
	StateReacted
	StateCommentPosted
	StateCheckCreated
	StateAnalyzing
	StateCheckCompleted
	StateCommentFinalized
	StateFailed
	// StateCheckIncomplete ends a session whose check run could not be
	// completed. The run is left in progress on the code host.
	StateCheckIncomplete
)

func (s State) String() string {
	switch s {
	case StateStarted:
		return "started"
	case StateReacted:
		return "reacted"
	case StateCommentPosted:
		return "comment_posted"
	case StateCheckCreated:
		return "check_created"
	case StateAnalyzing:
		return "analyzing"
	case StateCheckCompleted:
		return "check_completed"
	case StateCommentFinalized:
		return "comment_finalized"
	case StateFailed:
		return "failed"
	case StateCheckIncomplete:
		return "check_incomplete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// transitions lists the legal successors of each state. Failed is reachable
// from the comment and check creation steps, which end the session, and
// from analysis, after which the check run is still completed. The comment
// is only finalised once the check run completed.
var transitions = map[State][]State{
	StateStarted:        {StateReacted},
	StateReacted:        {StateCommentPosted, StateFailed},
	StateCommentPosted:  {StateCheckCreated, StateFailed},
	StateCheckCreated:   {StateAnalyzing},
	StateAnalyzing:      {StateCheckCompleted, StateFailed, StateCheckIncomplete},
	StateFailed:         {StateCheckCompleted, StateCheckIncomplete},
	StateCheckCompleted: {StateCommentFinalized},
}

// ReviewSession is the state of one workflow run for one pull request. It
// lives for a single run and is never shared.
type ReviewSession struct {
	Repo        github.Repo
	PullRequest int
	HeadSHA     string
	Title       string
	Author      string

	ReactionPosted bool
	// ProgressCommentID and CheckRunID are zero until created.
	ProgressCommentID int64
	CheckRunID        int64
	// CheckCompleted is set once the check run reached the completed status.
	CheckCompleted bool
	Conclusion     string

	// AnalysisErr is the failure of the analysis step, if any.
	AnalysisErr error

	state   State
	history []Transition
}

// Transition records one state change.
type Transition struct {
	From State
	To   State
	At   time.Time
}

// NewSession starts a session for the pull request at headSHA.
func NewSession(repo github.Repo, number int, headSHA string) *ReviewSession {
	return &ReviewSession{
		Repo:        repo,
		PullRequest: number,
		HeadSHA:     headSHA,
		state:       StateStarted,
	}
}

// State returns the current state.
func (s *ReviewSession) State() State {
	return s.state
}

// History returns the transitions taken so far.
func (s *ReviewSession) History() []Transition {
	return append([]Transition(nil), s.history...)
}

// Finished reports whether the session ran to an end that leaves no check
// run in progress: the comment was finalised after the check run completed,
// or the session failed before any check run existed.
func (s *ReviewSession) Finished() bool {
	switch s.state {
	case StateCommentFinalized:
		return s.CheckCompleted
	case StateFailed:
		return s.CheckRunID == 0
	default:
		return false
	}
}

func (s *ReviewSession) String() string {
	return fmt.Sprintf("%s#%d@%s", s.Repo, s.PullRequest, github.ShortSHA(s.HeadSHA))
}

func (s *ReviewSession) advance(to State, at time.Time) error {
	for _, next := range transitions[s.state] {
		if next == to {
			s.history = append(s.history, Transition{From: s.state, To: to, At: at})
			s.state = to
			return nil
		}
	}
	return fmt.Errorf("review session %s: illegal transition %s -> %s", s, s.state, to)
}
