// Package msgs provides the L1 envelope and the generic command replies.
//
// Every message on the wire is wrapped in a Typed carrying the type ID
// and, for commands, the sequence pairing a command with its reply.
// Device packages register their own message types in init.
//
// Producer: L1 controller
// Consumer: L2 brain
package msgs
