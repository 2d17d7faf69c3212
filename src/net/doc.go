// Package net carries greeting commands between an invitee and the member
// that issued its invitation.
//
// A Handler (a greet.Greeter or a greet.PartyInvitationClaimHandler) answers
// commands on the member side. The invitee side drives a greet.Initiator over
// any implementation of greet.Transport. There are two implementations:
//
// - Inmem: in-memory transport used for testing and for greeting within a
// single process
//
// - WAMP: RPC over WebSockets through a WAMP router (cf signal/wamp)
//
// WAMP
//
// Both peers connect to the same router and realm. The member registers its
// handler under a procedure named after the rendezvous key of the invitation
// (see Procedure), and the invitee calls that procedure. Commands and responses
// travel as encoded messages; greeting errors travel as Reply.Error so that the
// invitee can match them with errors.Is.
package net
