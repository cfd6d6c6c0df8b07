// Package geocode resolves place names to locations. The resolver drives
// lookups with per-call timeouts, bounded retries and an optional response
// cache; the Google client is the production backend behind it.
package geocode

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/bookgeo/internal/model"
)

// Geocoder is the capability the resolver requires of a backend: resolve
// one place name in one language. Implementations must be safe for
// concurrent use. Transient trouble (timeouts, throttling, 5xx) comes back
// as an ordinary error and gets retried; trouble that poisons the whole run
// must be a *FatalError.
type Geocoder interface {
	Geocode(ctx context.Context, name, language string) (model.GeocodeResult, error)
}

// FatalError is a non-retryable failure that invalidates the run, typically
// rejected credentials or a malformed request. The resolver aborts on the
// first one instead of degrading candidate by candidate.
type FatalError struct {
	Status  string
	Message string
}

func (e *FatalError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("geocoding: %s", e.Status)
	}
	return fmt.Sprintf("geocoding: %s: %s", e.Status, e.Message)
}

// IsFatal reports whether err carries a FatalError anywhere in its chain.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
