package domain

import "math"

// Default world geometry; overridable through config.
const (
	DefaultMapWidth        = 800
	DefaultMapHeight       = 600
	DefaultProximityRadius = 150
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Clamp snaps the position into [0,width]x[0,height].
func (p Position) Clamp(width, height float64) Position {
	return Position{
		X: math.Min(math.Max(p.X, 0), width),
		Y: math.Min(math.Max(p.Y, 0), height),
	}
}

func (p Position) DistanceTo(o Position) float64 {
	dx := p.X - o.X
	dy := p.Y - o.Y
	return math.Sqrt(dx*dx + dy*dy)
}

type Participant struct {
	ID       string   `json:"id" db:"id"`
	Username string   `json:"username" db:"username"`
	Color    string   `json:"color" db:"color"`
	Position Position `json:"position"`
}
