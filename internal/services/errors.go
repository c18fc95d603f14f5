// Package services holds the roster harvesting logic: the alphabet-driven
// crawler, the roster store with its departure sweep, the harvester that
// runs both for a channel, and the read services behind the ops API.
//
// This file centralizes service-level error values so that callers can match
// them with errors.Is and the HTTP layer can map them to status codes.
package services

import "errors"

var (
	// ErrPersistence wraps a storage failure scoped to one unit of work
	// (one participant, one run record). The unit was rolled back.
	ErrPersistence = errors.New("persistence failure")

	// ErrVerificationAmbiguous means a departure check errored without
	// confirming membership either way.
	ErrVerificationAmbiguous = errors.New("membership verification ambiguous")

	// ErrHarvestInProgress is returned when a run for the same channel is
	// already executing.
	ErrHarvestInProgress = errors.New("harvest already in progress for channel")

	// ErrUnknownChannel is returned for channels that are not configured.
	ErrUnknownChannel = errors.New("channel is not configured")

	// ErrParticipantNotFound indicates that no roster row exists for the
	// requested (channel, user).
	ErrParticipantNotFound = errors.New("participant not found")

	// ErrRunNotFound indicates that the requested harvest run does not exist.
	ErrRunNotFound = errors.New("harvest run not found")

	// ErrInvalidAlphabet is returned when an enumeration alphabet is empty
	// or contains empty or duplicate keys.
	ErrInvalidAlphabet = errors.New("invalid enumeration alphabet")
)
