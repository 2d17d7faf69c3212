// Package node assembles a party node.
//
// A Node owns a Keyring, the feed of signed messages of its party and the
// PartyState computed from that feed. Once it belongs to a party, it greets
// newcomers: it issues invitations, answers greeting commands through a
// Greeter and a PartyInvitationClaimHandler, and writes the admissions of
// invitees to its feed, wrapped in envelopes signed by its identity.
// It also authenticates the credentials of peers and serves an HTTP view of
// the party.
//
// A Node joins a party in one of two ways:
//
// - CreateParty writes the genesis of a new party.
//
// - Join redeems an InvitationDescriptor issued by a member, over any
// greet.Transport.
//
// The party key and the hints received when joining are kept in party.json in
// the data directory, so that the feed can be replayed on restart.
package node
