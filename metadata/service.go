package metadata

import (
	"fmt"
	"time"

	"github.com/Neelbiehler/qryvanta-sub003/model"
	"github.com/Neelbiehler/qryvanta-sub003/persistence"
	c "github.com/patrickmn/go-cache"
)

const maxConditionDepth int = 32

// Service fronts the definition store with validation and a short-lived
// read cache. The engine reads definitions through Get and treats the
// returned value as an immutable snapshot.
type Service interface {
	Save(def model.WorkflowDefinition) error
	Get(tenant string, logicalName string) (*model.WorkflowDefinition, error)
	List(tenant string) ([]model.WorkflowDefinition, error)
	Delete(tenant string, logicalName string) error
	Validate(def model.WorkflowDefinition) error
}

type serviceImpl struct {
	storage persistence.DefinitionStorage
	cache   *c.Cache
}

func NewService(storage persistence.DefinitionStorage) Service {
	return &serviceImpl{
		storage: storage,
		cache:   c.New(1*time.Minute, 10*time.Minute),
	}
}

func cacheKey(tenant string, logicalName string) string {
	return fmt.Sprintf("%s:%s", tenant, logicalName)
}

func (s *serviceImpl) Save(def model.WorkflowDefinition) error {
	if err := s.Validate(def); err != nil {
		return err
	}
	now := time.Now()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}
	def.UpdatedAt = now
	if err := s.storage.Save(def); err != nil {
		return err
	}
	s.cache.Delete(cacheKey(def.Tenant, def.LogicalName))
	return nil
}

func (s *serviceImpl) Get(tenant string, logicalName string) (*model.WorkflowDefinition, error) {
	if cached, found := s.cache.Get(cacheKey(tenant, logicalName)); found {
		def := cached.(model.WorkflowDefinition)
		return &def, nil
	}
	def, err := s.storage.Get(tenant, logicalName)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cacheKey(tenant, logicalName), *def, c.DefaultExpiration)
	return def, nil
}

func (s *serviceImpl) List(tenant string) ([]model.WorkflowDefinition, error) {
	return s.storage.List(tenant)
}

func (s *serviceImpl) Delete(tenant string, logicalName string) error {
	if err := s.storage.Delete(tenant, logicalName); err != nil {
		return err
	}
	s.cache.Delete(cacheKey(tenant, logicalName))
	return nil
}

// Validate rejects malformed definitions before they can reach the
// engine. Built top-down with no back references, a step graph that
// passes validation is a finite tree.
func (s *serviceImpl) Validate(def model.WorkflowDefinition) error {
	if def.Tenant == "" {
		return fmt.Errorf("tenant is required")
	}
	if def.LogicalName == "" {
		return fmt.Errorf("logical_name is required")
	}
	if def.DisplayName == "" {
		return fmt.Errorf("display_name is required")
	}
	if !model.ValidTriggerType(def.TriggerType) {
		return fmt.Errorf("invalid trigger_type %q", def.TriggerType)
	}
	if def.TriggerType == model.TRIGGER_TYPE_RECORD_CREATED && def.TriggerEntityLogicalName == "" {
		return fmt.Errorf("trigger_entity_logical_name is required for trigger_type %s", model.TRIGGER_TYPE_RECORD_CREATED)
	}
	if def.TriggerType != model.TRIGGER_TYPE_RECORD_CREATED && def.TriggerEntityLogicalName != "" {
		return fmt.Errorf("trigger_entity_logical_name is only valid for trigger_type %s", model.TRIGGER_TYPE_RECORD_CREATED)
	}
	if def.MaxAttempts < model.MIN_ATTEMPTS || def.MaxAttempts > model.MAX_ATTEMPTS {
		return fmt.Errorf("max_attempts must be between %d and %d, got %d", model.MIN_ATTEMPTS, model.MAX_ATTEMPTS, def.MaxAttempts)
	}
	return validateSteps(def.Steps, "", 0)
}

func validateSteps(steps []model.Step, pathPrefix string, depth int) error {
	if depth > maxConditionDepth {
		return fmt.Errorf("step graph exceeds maximum condition nesting of %d", maxConditionDepth)
	}
	for i, step := range steps {
		stepPath := fmt.Sprintf("%s%d", pathPrefix, i)
		switch step.Type {
		case model.STEP_TYPE_LOG_MESSAGE:
			if step.Message == "" {
				return fmt.Errorf("step %s: log_message requires a message", stepPath)
			}
		case model.STEP_TYPE_CREATE_RECORD:
			if step.EntityLogicalName == "" {
				return fmt.Errorf("step %s: create_runtime_record requires entity_logical_name", stepPath)
			}
		case model.STEP_TYPE_CONDITION:
			if step.FieldPath == "" {
				return fmt.Errorf("step %s: condition requires field_path", stepPath)
			}
			if !model.ValidOperator(step.Operator) {
				return fmt.Errorf("step %s: invalid operator %q", stepPath, step.Operator)
			}
			if step.Operator == model.OP_EXISTS && step.ComparisonValue != nil {
				return fmt.Errorf("step %s: exists takes no comparison_value", stepPath)
			}
			if err := validateSteps(step.Then, stepPath+".then.", depth+1); err != nil {
				return err
			}
			if err := validateSteps(step.Else, stepPath+".else.", depth+1); err != nil {
				return err
			}
		default:
			return fmt.Errorf("step %s: unknown step type %q", stepPath, step.Type)
		}
	}
	return nil
}
