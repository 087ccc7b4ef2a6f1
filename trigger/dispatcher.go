package trigger

import "github.com/Neelbiehler/qryvanta-sub003/model"

// Dispatcher accepts a trigger event and starts a run per matched
// definition, returning the accepted run ids.
type Dispatcher interface {
	DispatchEvent(event model.TriggerEvent) ([]string, error)
}
