package sim

import "github.com/robotalks/laserlink/pkg/laser"

// Board bundles the simulated parts behind a laser.Board.
type Board struct {
	Laser     *Laser
	Detector  *Detector
	Indicator *Indicator
}

// Board returns the laser.Board view.
func (b *Board) Board() laser.Board {
	return laser.Board{
		Laser:     b.Laser,
		Detector:  b.Detector,
		Indicator: b.Indicator,
	}
}

// NewLoopback creates a board whose laser shines on its own detector.
func NewLoopback() *Board {
	det := NewDetector()
	return &Board{
		Laser:     NewLaser(NewBeam().Connect(det)),
		Detector:  det,
		Indicator: &Indicator{},
	}
}

// NewPair creates two boards facing each other.
func NewPair() (a, b *Board) {
	a = &Board{Detector: NewDetector(), Indicator: &Indicator{}}
	b = &Board{Detector: NewDetector(), Indicator: &Indicator{}}
	a.Laser = NewLaser(NewBeam().Connect(b.Detector))
	b.Laser = NewLaser(NewBeam().Connect(a.Detector))
	return
}
