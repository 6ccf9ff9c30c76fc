// Package pdm implements the pulse-duration modulation used on the
// optical link.
//
// Each bit is sent as a high pulse followed by a low gap. The width of
// the high pulse carries the symbol: a short pulse is a zero, a long
// pulse is a one. The receiver measures only the high (beam present)
// part and picks the nearer reference width.
package pdm
