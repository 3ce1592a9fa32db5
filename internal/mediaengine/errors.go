package mediaengine

import "errors"

// Sentinel errors surfaced on a CompletionEvent.Err (spec.md §7 error table).
var (
	errNoFreeSlot  = errors.New("mediaengine: context has no free termination slot")
	errNotAttached = errors.New("mediaengine: termination not attached to context")
	errNoAllocator = errors.New("mediaengine: no endpoint allocator configured")
)
