package orchestrator

import "errors"

var (
	// ErrConferenceNotFound is returned when no active conference has the
	// given uid (or, for DID lookups, when no conference or template matches).
	ErrConferenceNotFound = errors.New("conference not found")

	// ErrParticipantNotFound is returned by relay operations when the
	// conference reports no such participant.
	ErrParticipantNotFound = errors.New("participant not found")

	// ErrMixerNotFound is returned when a mixer uid resolves to nothing.
	ErrMixerNotFound = errors.New("mixer not found")

	// ErrProfileNotFound is returned when a profile uid resolves to nothing.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrTemplateNotFound is returned when removing an unknown template.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrBroadcastNotFound is returned when a broadcast uid resolves to nothing.
	ErrBroadcastNotFound = errors.New("broadcast not found")

	// ErrDuplicateDID is returned when an active conference already holds the
	// requested DID.
	ErrDuplicateDID = errors.New("conference DID already active")

	// ErrInvalidEndpoint is returned for a malformed mixer control URL.
	ErrInvalidEndpoint = errors.New("invalid control endpoint")

	// ErrInvalidConfiguration is returned for a malformed catalog entry.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrRemoteProvisioning is returned when a control-plane call to a mixer
	// fails during conference or broadcast creation.
	ErrRemoteProvisioning = errors.New("remote provisioning failed")
)
