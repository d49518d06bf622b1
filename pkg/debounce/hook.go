package debounce

import "github.com/vango-dev/debounce/pkg/vango"

// UseDebounce is the hook form of New. It MUST be called unconditionally
// during a component render (between Owner.StartRender and its end) with a
// runtime context available.
//
// The first render creates the Value under the component's owner; later
// renders return the same Value. A WithDelay passed on a later render
// updates the delay, restarting a pending wait once effects flush after
// the render. The Value is disposed with the component.
//
//	func SearchBox() {
//	    q := debounce.UseDebounce("", debounce.WithDelay(300*time.Millisecond))
//	    vango.CreateEffect(func() vango.Cleanup {
//	        runSearch(q.DebouncedSignal().Get())
//	        return nil
//	    })
//	}
func UseDebounce[T any](initial T, opts ...Option) *Value[T] {
	owner := vango.CurrentOwner()
	if owner == nil || !vango.IsRendering() {
		panic(vango.ErrHookContext)
	}

	if slot := owner.UseHookSlot(); slot != nil {
		v := slot.(*Value[T])
		cfg := defaultConfig()
		for _, opt := range opts {
			opt(&cfg)
		}
		if cfg.delaySet {
			// Leave the re-arm to the post-render effect flush.
			v.delay.Set(cfg.delay)
		}
		return v
	}

	ctx := vango.UseCtx()
	if ctx == nil {
		panic(vango.ErrEffectContext)
	}

	v := New(ctx, initial, append(opts, WithParent(owner))...)
	owner.SetHookSlot(v)
	return v
}
