// Package diagram implements the state-machine diagram model: states,
// guarded transitions, the force-directed layout that positions them
// and the curve geometry they render with.
package diagram

import "github.com/ha1tch/fsm-designer/pkg/geom"

// attraction scales linear pulls toward a target point.
const attraction = 0.1

// Movable is the base of every diagram entity the layout simulation
// positions: a point with an accumulated force, integrated into the
// position once per tick, plus a modified flag for change tracking.
type Movable struct {
	pos      geom.Vec
	force    geom.Vec
	modified bool
}

// Pos returns the current position.
func (m *Movable) Pos() geom.Vec {
	return m.pos
}

// SetPos moves the entity. Types embedding Movable may shadow this
// with a constrained setter.
func (m *Movable) SetPos(p geom.Vec) {
	m.pos = p
}

// Force returns the force accumulated since the last reset.
func (m *Movable) Force() geom.Vec {
	return m.force
}

// ResetForce clears the accumulated force.
func (m *Movable) ResetForce() {
	m.force = geom.Vec{}
}

// AddForce adds a raw force contribution.
func (m *Movable) AddForce(f geom.Vec) {
	m.force = m.force.Add(f)
}

// AddAttractiveTo adds a linear pull toward target. The pull grows
// with distance, so entities settle onto their targets.
func (m *Movable) AddAttractiveTo(target geom.Vec, weight float64) {
	m.force = m.force.Add(target.Sub(m.pos).Mul(weight * attraction))
}

// AddRepulsive adds a push away from source with inverse-square
// falloff, so nearby obstacles dominate and distant ones are
// negligible. Coincident points contribute nothing; the jittered
// initial placement keeps that case transient.
func (m *Movable) AddRepulsive(source geom.Vec, strength float64) {
	dif := m.pos.Sub(source)
	if dif.IsZero() {
		return
	}
	dist := dif.Len()
	if dist < 1 {
		dist = 1
	}
	m.force = m.force.Add(dif.Mul(strength / (dist * dist * dist)))
}

// MarkModified flags the entity as changed since the last save.
func (m *Movable) MarkModified() {
	m.modified = true
}

// Modified reports whether the entity changed since the last save.
func (m *Movable) Modified() bool {
	return m.modified
}

// ClearModified resets the change flag.
func (m *Movable) ClearModified() {
	m.modified = false
}

// integrate applies the accumulated force to the position, damped and
// clamped to maxStep, and returns the distance moved.
func (m *Movable) integrate(damping, maxStep float64) float64 {
	step := m.force.Mul(damping)
	if l := step.Len(); l > maxStep {
		step = step.Mul(maxStep / l)
	}
	m.pos = m.pos.Add(step)
	return step.Len()
}
