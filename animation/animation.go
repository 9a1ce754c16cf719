// Package animation interpolates values over time. Animations don't read a
// clock of their own; callers pass in the current time of whatever clock drives
// them, such as a frame counter accumulated from frame deltas.
package animation

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/constraints"
	"honnef.co/go/stuff/math/mathutil"
)

type EasingFunction func(float64) float64
type LerpFunction[T any] func(start, end T, r float64) T

type Lerper[T any] interface {
	Lerp(end T, ratio float64) T
}

type Animation[T any] struct {
	StartValue T
	EndValue   T
	StartTime  time.Duration
	Duration   time.Duration
	Ease       EasingFunction
	Lerp       LerpFunction[T]

	active bool
}

func (anim *Animation[T]) Start(now time.Duration, v1, v2 T, d time.Duration, ease EasingFunction) {
	if ease == nil {
		ease = EaseIn(1)
	}
	anim.StartValue = v1
	anim.EndValue = v2
	anim.StartTime = now
	anim.Duration = d
	anim.Ease = ease
	anim.active = true
}

func StartSimpleAnimation[T constraints.Integer | constraints.Float](now time.Duration, anim *Animation[T], v1, v2 T, d time.Duration, ease EasingFunction) {
	anim.Start(now, v1, v2, d, ease)
	anim.Lerp = mathutil.Lerp[T]
}

// Value returns the value at time now. Once now is past the end of the
// animation, Value returns EndValue and the animation is done.
func (anim *Animation[T]) Value(now time.Duration) T {
	if !anim.active {
		return anim.EndValue
	}

	d := now - anim.StartTime
	if d >= anim.Duration {
		anim.active = false
		return anim.EndValue
	}
	if d < 0 {
		d = 0
	}

	ratio := anim.Ease(float64(d) / float64(anim.Duration))

	if anim.Lerp == nil {
		if lerper, ok := any(anim.StartValue).(Lerper[T]); ok {
			return lerper.Lerp(anim.EndValue, ratio)
		} else {
			panic(fmt.Sprintf("anim.Lerp is nil and %T doesn't implement Lerper", anim.StartValue))
		}
	}

	return anim.Lerp(anim.StartValue, anim.EndValue, ratio)
}

// Cancel stops the animation. Value will return EndValue from now on.
func (anim *Animation[T]) Cancel() {
	anim.active = false
}

func (anim *Animation[T]) Done() bool {
	return !anim.active
}

// Remaining returns how much of the animation is left at time now.
func (anim *Animation[T]) Remaining(now time.Duration) time.Duration {
	if !anim.active {
		return 0
	}
	return max(0, anim.StartTime+anim.Duration-now)
}

func EaseIn(power int) EasingFunction {
	switch power {
	case 1:
		return func(r float64) float64 { return r }
	case 2:
		return func(r float64) float64 { return r * r }
	case 3:
		return func(r float64) float64 { return r * r * r }
	default:
		return func(r float64) float64 { return math.Pow(r, float64(power)) }
	}
}

func EaseOut(power int) EasingFunction {
	switch power {
	case 1:
		return func(r float64) float64 { return r }
	case 2:
		return func(r float64) float64 { r = 1 - r; return 1 - r*r }
	case 3:
		return func(r float64) float64 { r = 1 - r; return 1 - r*r*r }
	default:
		return func(r float64) float64 { return 1 - math.Pow(1-r, float64(power)) }
	}
}

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
