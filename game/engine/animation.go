package engine

import (
	"time"
)

// Easing maps linear progress in [0,1] to eased progress
type Easing func(t float64) float64

func Linear(t float64) float64 { return t }

// CubicOut decelerates to rest
func CubicOut(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

// Animator moves targets over time and reports each completion
type Animator interface {
	Animate(target Placeable, to Vec2, duration time.Duration, ease Easing, onComplete func())
	Busy() bool
}

type tween struct {
	target   Placeable
	from     Vec2
	to       Vec2
	duration time.Duration
	elapsed  time.Duration
	ease     Easing
	done     func()
}

// Tweener is a frame-driven Animator advanced with Advance
type Tweener struct {
	tweens []*tween
}

func NewTweener() *Tweener {
	return &Tweener{}
}

// Animate starts moving target to `to`. A non-positive duration completes on the next Advance.
func (tw *Tweener) Animate(target Placeable, to Vec2, duration time.Duration, ease Easing, onComplete func()) {
	if ease == nil {
		ease = Linear
	}
	tw.tweens = append(tw.tweens, &tween{
		target:   target,
		from:     target.Center(),
		to:       to,
		duration: duration,
		ease:     ease,
		done:     onComplete,
	})
}

// Busy reports whether any tween is still running
func (tw *Tweener) Busy() bool { return len(tw.tweens) > 0 }

// Advance moves every tween forward by dt and returns how many completed.
// Completion callbacks run after the tween list is updated, so they may start new tweens.
func (tw *Tweener) Advance(dt time.Duration) int {
	if len(tw.tweens) == 0 {
		return 0
	}

	var finished []*tween
	running := tw.tweens[:0]
	for _, t := range tw.tweens {
		t.elapsed += dt
		progress := 1.0
		if t.duration > 0 && t.elapsed < t.duration {
			progress = float64(t.elapsed) / float64(t.duration)
		}
		pos := t.from.Add(t.to.Sub(t.from).Scale(t.ease(progress)))
		if progress >= 1 {
			pos = t.to
		}
		t.target.SetPosition(pos.X, pos.Y)

		if progress >= 1 {
			finished = append(finished, t)
		} else {
			running = append(running, t)
		}
	}
	tw.tweens = running

	for _, t := range finished {
		if t.done != nil {
			t.done()
		}
	}
	return len(finished)
}

// Barrier runs fn once after Done has been called n times
type Barrier struct {
	remaining int
	fired     bool
	fn        func()
}

// NewBarrier creates a join over n completions. With n <= 0 fn runs immediately.
func NewBarrier(n int, fn func()) *Barrier {
	b := &Barrier{remaining: n, fn: fn}
	if n <= 0 {
		b.fire()
	}
	return b
}

// Done records one completion
func (b *Barrier) Done() {
	if b.fired {
		return
	}
	b.remaining--
	if b.remaining <= 0 {
		b.fire()
	}
}

func (b *Barrier) fire() {
	b.fired = true
	if b.fn != nil {
		b.fn()
	}
}
