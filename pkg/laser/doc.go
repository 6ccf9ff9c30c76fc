// Package laser implements the transceiver of the optical link.
//
// A Session drives one Board. Outbound, the Transmitter bit-bangs the
// beam source through the board's pulse generator. Inbound, the
// Sampler runs on each detector falling edge, classifies the measured
// pulse and, while a receive window is open, records the symbol in the
// Accumulator. When the window closes the Session frames the bits
// into text for the inbox.
package laser
