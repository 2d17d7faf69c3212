// Package greet implements the greeting protocol by which a new key or feed
// joins a party through a single-use invitation.
//
// The inviter creates an Invitation on its Greeter and shares its id out of
// band, usually as an InvitationDescriptor. The invitee then drives the
// session with an Initiator:
//
//	BEGIN      opens the session; the Greeter's SecretProvider produces the
//	           secret the invitee must present from now on
//	HANDSHAKE  returns the party key and the session nonce
//	NOTARIZE   submits KEY_ADMIT and FEED_ADMIT messages, self-signed by the
//	           keys they admit and carrying the session nonce; the Greeter
//	           hands them to its PartyWriter
//	FINISH     closes the session and destroys the invitation
//
// Steps happen at most once and in order. Any violation is an *Error with a
// stable ErrorCode.
//
// A PartyInvitationClaimHandler serves the CLAIM command: an invitee holding
// the id of a PartyInvitation recorded in the party log exchanges it for a
// fresh Invitation on the Greeter.
package greet
