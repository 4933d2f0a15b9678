package collision

import "github.com/pkg/errors"

// ErrNoValidDistance is returned by SelfDistance when no active part produced
// usable distance data, e.g. every parent lacks bounding spheres or every
// adjacency target read back the background sentinel. It is a failed query,
// never coerced to a default value.
var ErrNoValidDistance = errors.New("no active part produced valid self-distance data")

func newUnknownPartError(part string) error {
	return errors.Errorf("robot model has no part named %q", part)
}

func newUnknownGroupError(group string) error {
	return errors.Errorf("robot model has no joint group named %q", group)
}
