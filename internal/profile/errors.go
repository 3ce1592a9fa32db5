package profile

import "errors"

// ErrUnknownResource is returned by Resolve when resourceName has no
// registered factory (spec.md §7 "Unknown resource name").
var ErrUnknownResource = errors.New("profile: unknown resource")
