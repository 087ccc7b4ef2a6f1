package trigger

import (
	"github.com/Neelbiehler/qryvanta-sub003/model"
	"github.com/Neelbiehler/qryvanta-sub003/persistence"
)

// Matcher selects the enabled definitions a trigger event fires. Matching
// is a pure lookup with no side effects; an empty match set is a normal
// outcome. Callers start a run per matched definition.
type Matcher struct {
	definitions persistence.DefinitionStorage
}

func NewMatcher(definitions persistence.DefinitionStorage) *Matcher {
	return &Matcher{definitions: definitions}
}

func (m *Matcher) Match(event model.TriggerEvent) ([]model.WorkflowDefinition, error) {
	defs, err := m.definitions.List(event.Tenant)
	if err != nil {
		return nil, err
	}
	var matched []model.WorkflowDefinition
	for _, def := range defs {
		if !def.IsEnabled {
			continue
		}
		if def.TriggerType != event.Type {
			continue
		}
		if def.TriggerType == model.TRIGGER_TYPE_RECORD_CREATED &&
			def.TriggerEntityLogicalName != event.EntityLogicalName {
			continue
		}
		matched = append(matched, def)
	}
	return matched, nil
}
