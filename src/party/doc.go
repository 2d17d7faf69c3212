// Package party derives the membership of a party from its log of signed
// credential messages.
//
// A PartyState starts out trusting nothing but the party key. Replaying the
// log with ProcessMessages admits keys and feeds one message at a time:
// PARTY_GENESIS must be signed by the party key itself, KEY_ADMIT and
// FEED_ADMIT by a member, and ENVELOPE lets a member write on behalf of a key
// that signed the inner message. Every message is applied whole or not at
// all, and a rejected message does not stop the rest of the batch.
//
// Identity metadata and party invitations found in the log are handed to the
// IdentityMessageProcessor and the PartyInvitationManager.
package party
