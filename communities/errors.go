package communities

import (
	"github.com/idena-network/idena-communities/ledger"
	"github.com/idena-network/idena-communities/referenda"
	"github.com/pkg/errors"
)

var (
	ErrCommunityDoesNotExist           = errors.New("community does not exist")
	ErrCommunityAlreadyExists          = errors.New("community already exists")
	ErrCommunityNotActive              = errors.New("community is not active")
	ErrBadOrigin                       = errors.New("bad origin")
	ErrNotMember                       = errors.New("not a member")
	ErrAlreadyMember                   = errors.New("already a member")
	ErrUnknownAsset                    = ledger.ErrUnknownAsset
	ErrCannotDestroyUncontrolledAsset  = errors.New("cannot destroy an asset the community does not control")
	ErrCannotEncodeCall                = errors.New("cannot encode call")
	ErrExceededMaxProposals            = errors.New("exceeded max proposals")
	ErrCannotDequeueProposal           = errors.New("cannot dequeue proposal")
	ErrCannotEnqueueDispatch           = errors.New("cannot enqueue dispatch")
	ErrSponsorshipExhausted            = errors.New("sponsorship exhausted")
	ErrChallengeAlreadyActiveForEntity = errors.New("challenge already active for entity")
	ErrNoActiveChallenge               = errors.New("no active challenge")
	ErrInvalidStateTransition          = errors.New("invalid state transition")
	ErrInvalidFraction                 = errors.New("invalid fraction")
	ErrInvalidWeight                   = errors.New("invalid vote weight")

	ErrNameTooLong        = errors.New("name is too long")
	ErrDescriptionTooLong = errors.New("description is too long")
	ErrTooManyUrls        = errors.New("too many urls")
	ErrUrlTooLong         = errors.New("url is too long")
	ErrTooManyLocations   = errors.New("too many locations")
)

type ErrorClass uint8

const (
	UnknownClass ErrorClass = iota
	AuthorizationClass
	StateClass
	CapacityClass
	EncodingClass
	ExternalClass
)

func (c ErrorClass) String() string {
	switch c {
	case AuthorizationClass:
		return "authorization"
	case StateClass:
		return "state"
	case CapacityClass:
		return "capacity"
	case EncodingClass:
		return "encoding"
	case ExternalClass:
		return "external"
	}
	return "unknown"
}

// Classify tells the caller how an error may be recovered from.
func Classify(err error) ErrorClass {
	switch errors.Cause(err) {
	case nil:
		return UnknownClass
	case ErrBadOrigin, ErrNotMember:
		return AuthorizationClass
	case ErrCommunityDoesNotExist, ErrCommunityAlreadyExists, ErrCommunityNotActive, ErrAlreadyMember,
		ErrCannotDestroyUncontrolledAsset, ErrCannotDequeueProposal, ErrChallengeAlreadyActiveForEntity,
		ErrNoActiveChallenge, ErrInvalidStateTransition, referenda.ErrUnknownPoll, referenda.ErrPollNotOngoing:
		return StateClass
	case ErrExceededMaxProposals, ErrCannotEnqueueDispatch, ErrSponsorshipExhausted:
		return CapacityClass
	case ErrCannotEncodeCall, ErrInvalidFraction, ErrInvalidWeight, ErrNameTooLong, ErrDescriptionTooLong,
		ErrTooManyUrls, ErrUrlTooLong, ErrTooManyLocations:
		return EncodingClass
	case ledger.ErrUnknownAsset, ledger.ErrInsufficientBalance, ledger.ErrWouldKill, ledger.ErrBelowMinimum,
		ledger.ErrAlreadyExists, ledger.ErrInUse, ledger.ErrAssetNotLive, ledger.ErrIncorrectStatus:
		return ExternalClass
	}
	return UnknownClass
}
