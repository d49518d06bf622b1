// Package debounce provides a debounced value for interactive components.
//
// A Value holds two views of the same input: Immediate, updated
// synchronously by every Set, and Debounced, updated only once the input
// has been quiet for the configured delay. Components render the immediate
// value and key expensive work (search, validation, network calls) off the
// debounced one.
//
//	v := debounce.New(loop, "", debounce.WithDelay(300*time.Millisecond))
//	v.Set("g")
//	v.Set("go")         // re-arms; "g" is never observed downstream
//	v.Immediate()       // "go"
//	v.Debounced()       // "" until 300ms pass without another write
//
// Inside a component render use the hook form, which returns the same
// Value on every render and disposes it with the component:
//
//	query := debounce.UseDebounce("", debounce.WithDelay(300*time.Millisecond))
//
// # Timing
//
// Every change of the immediate value or of the delay cancels the pending
// timer and arms a new one capturing the current value. When the timer
// fires, the apply step is dispatched onto the event loop, so applies never
// run concurrently with Set and a cancelled timer never applies. Disposal
// cancels the pending timer synchronously.
package debounce
