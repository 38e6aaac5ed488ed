// Package rsync implements the core of the rsync delta-transfer algorithm
// as described in Andrew Tridgell's thesis
// (https://www.samba.org/~tridge/phd_thesis.pdf) and the rsync technical
// report (https://rsync.samba.org/tech_report), covering protocol versions
// 20 through 32.
//
// The package is organized around a negotiated ProtocolContext (obtained
// from Negotiate) that every other operation takes as an explicit
// argument: block-size planning (PlanBlockSize), signature construction
// (BuildSignature), matching a target against a signature (Match), patching
// a basis with a stream of operations (Patch), and the wire codecs for
// sum-heads, tokens, and varints. Engine bundles these operations against a
// single ProtocolContext for callers that don't need to pass it to every
// call individually.
//
// This package has no notion of transport or filesystem access; callers
// supply bases, targets, and destinations as io.Reader/io.Writer/
// io.ReadSeeker values.
package rsync
