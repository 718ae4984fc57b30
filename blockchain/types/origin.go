package types

import (
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/idena-network/idena-communities/common"
	"github.com/pkg/errors"
)

type BodyPartKind uint8

const (
	BodyVoice BodyPartKind = iota
	BodyMembers
	BodyFraction
)

// BodyPart is the authorization shape a community strategy produces.
type BodyPart struct {
	Kind     BodyPartKind
	Members  uint32
	Fraction Fraction
}

func Voice() BodyPart {
	return BodyPart{Kind: BodyVoice}
}

func Members(min uint32) BodyPart {
	return BodyPart{Kind: BodyMembers, Members: min}
}

func FractionOf(num, denum uint32) BodyPart {
	return BodyPart{Kind: BodyFraction, Fraction: NewFraction(num, denum)}
}

// Satisfies reports whether holding b is enough to act as required.
func (b BodyPart) Satisfies(required BodyPart) bool {
	if b.Kind != required.Kind {
		return false
	}
	switch b.Kind {
	case BodyVoice:
		return true
	case BodyMembers:
		return b.Members >= required.Members
	case BodyFraction:
		return b.Fraction.AtLeast(required.Fraction)
	}
	return false
}

func (b BodyPart) String() string {
	switch b.Kind {
	case BodyVoice:
		return "Voice"
	case BodyMembers:
		return fmt.Sprintf("Members{%d}", b.Members)
	case BodyFraction:
		return fmt.Sprintf("Fraction{%s}", b.Fraction)
	}
	return "Unknown"
}

func (b BodyPart) Encode(encoder scale.Encoder) error {
	if err := encoder.PushByte(byte(b.Kind)); err != nil {
		return err
	}
	switch b.Kind {
	case BodyVoice:
		return nil
	case BodyMembers:
		return encoder.Encode(b.Members)
	case BodyFraction:
		return encoder.Encode(b.Fraction)
	}
	return errors.Errorf("unknown body part %d", b.Kind)
}

func (b *BodyPart) Decode(decoder scale.Decoder) error {
	kind, err := decoder.ReadOneByte()
	if err != nil {
		return err
	}
	*b = BodyPart{Kind: BodyPartKind(kind)}
	switch b.Kind {
	case BodyVoice:
		return nil
	case BodyMembers:
		return decoder.Decode(&b.Members)
	case BodyFraction:
		return decoder.Decode(&b.Fraction)
	}
	return errors.Errorf("unknown body part %d", kind)
}

// RawOrigin is the typed origin a community call is dispatched with.
type RawOrigin struct {
	Community CommunityId
	BodyPart  BodyPart
}

func (o RawOrigin) String() string {
	return fmt.Sprintf("community %d %s", o.Community, o.BodyPart)
}

type OriginKind uint8

const (
	OriginRoot OriginKind = iota
	OriginSigned
	OriginNone
	OriginCommunity
)

type Origin struct {
	Kind      OriginKind
	Signer    common.AccountId
	Community RawOrigin
}

func RootOrigin() Origin {
	return Origin{Kind: OriginRoot}
}

func SignedOrigin(who common.AccountId) Origin {
	return Origin{Kind: OriginSigned, Signer: who}
}

func NoneOrigin() Origin {
	return Origin{Kind: OriginNone}
}

func CommunityOrigin(raw RawOrigin) Origin {
	return Origin{Kind: OriginCommunity, Community: raw}
}

func (o Origin) IsRoot() bool {
	return o.Kind == OriginRoot
}

func (o Origin) AsSigned() (common.AccountId, bool) {
	if o.Kind != OriginSigned {
		return common.AccountId{}, false
	}
	return o.Signer, true
}

func (o Origin) AsCommunity() (RawOrigin, bool) {
	if o.Kind != OriginCommunity {
		return RawOrigin{}, false
	}
	return o.Community, true
}

func (o Origin) String() string {
	switch o.Kind {
	case OriginRoot:
		return "Root"
	case OriginSigned:
		return "Signed(" + o.Signer.String() + ")"
	case OriginNone:
		return "None"
	case OriginCommunity:
		return "Community(" + o.Community.String() + ")"
	}
	return "Unknown"
}

func (o Origin) Encode(encoder scale.Encoder) error {
	if err := encoder.PushByte(byte(o.Kind)); err != nil {
		return err
	}
	switch o.Kind {
	case OriginRoot, OriginNone:
		return nil
	case OriginSigned:
		return encoder.Encode(o.Signer)
	case OriginCommunity:
		return encoder.Encode(o.Community)
	}
	return errors.Errorf("unknown origin %d", o.Kind)
}

func (o *Origin) Decode(decoder scale.Decoder) error {
	kind, err := decoder.ReadOneByte()
	if err != nil {
		return err
	}
	*o = Origin{Kind: OriginKind(kind)}
	switch o.Kind {
	case OriginRoot, OriginNone:
		return nil
	case OriginSigned:
		return decoder.Decode(&o.Signer)
	case OriginCommunity:
		return decoder.Decode(&o.Community)
	}
	return errors.Errorf("unknown origin %d", kind)
}
