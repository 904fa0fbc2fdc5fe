// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import (
	"fmt"

	"github.com/google/go-github/v73/github"
)

// PullRequestEventName is the only event type the review pipeline accepts.
const PullRequestEventName = "pull_request"

// PullRequestEvent represents a simplified, internal view of the event that
// triggered a run.
type PullRequestEvent struct {
	EventName string
	Action    string

	RepoOwner string
	RepoName  string

	PRNumber int
	PRTitle  string
	HeadSHA  string
}

// RepoFullName returns the "owner/name" form of the repository.
func (e *PullRequestEvent) RepoFullName() string {
	return e.RepoOwner + "/" + e.RepoName
}

// IsPullRequest reports whether the event was raised for a pull request.
func (e *PullRequestEvent) IsPullRequest() bool {
	return e.EventName == PullRequestEventName
}

// EventFromPullRequest transforms a raw GitHub PullRequestEvent into the application's
// internal PullRequestEvent representation. It acts as an anti-corruption layer, ensuring
// that the payload contains all data the pipeline needs before any API call is made.
func EventFromPullRequest(event *github.PullRequestEvent) (*PullRequestEvent, error) {
	if event == nil || event.GetPullRequest() == nil {
		return nil, fmt.Errorf("pull request information is missing from the event")
	}

	repo := event.GetRepo()
	if repo == nil || repo.GetOwner() == nil || repo.GetOwner().GetLogin() == "" || repo.GetName() == "" {
		return nil, fmt.Errorf("repository or owner information is missing from the event")
	}

	prNumber := event.GetNumber()
	if prNumber <= 0 {
		prNumber = event.GetPullRequest().GetNumber()
	}
	if prNumber <= 0 {
		return nil, fmt.Errorf("invalid pull request number: %d", prNumber)
	}

	headSHA := event.GetPullRequest().GetHead().GetSHA()
	if headSHA == "" {
		return nil, fmt.Errorf("PR %d has no valid head SHA", prNumber)
	}

	return &PullRequestEvent{
		EventName: PullRequestEventName,
		Action:    event.GetAction(),
		RepoOwner: repo.GetOwner().GetLogin(),
		RepoName:  repo.GetName(),
		PRNumber:  prNumber,
		PRTitle:   event.GetPullRequest().GetTitle(),
		HeadSHA:   headSHA,
	}, nil
}

// EventFromPayload builds the run event from the event name and raw webhook
// payload delivered by the CI runtime. Events other than pull_request carry
// only their name and repository so the pipeline can reject them without
// decoding a payload it does not understand.
func EventFromPayload(eventName string, payload []byte, owner, repo string) (*PullRequestEvent, error) {
	if eventName != PullRequestEventName {
		return &PullRequestEvent{EventName: eventName, RepoOwner: owner, RepoName: repo}, nil
	}

	raw, err := github.ParseWebHook(eventName, payload)
	if err != nil {
		return nil, fmt.Errorf("could not parse %s payload: %w", eventName, err)
	}
	prEvent, ok := raw.(*github.PullRequestEvent)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T for %s event", raw, eventName)
	}
	return EventFromPullRequest(prEvent)
}
