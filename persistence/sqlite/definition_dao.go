package sqlite

import (
	"database/sql"
	"encoding/json"

	"github.com/Neelbiehler/qryvanta-sub003/model"
	"github.com/Neelbiehler/qryvanta-sub003/persistence"
)

var _ persistence.DefinitionStorage = new(sqliteDefinitionDao)

type sqliteDefinitionDao struct {
	db *sql.DB
}

func NewSqliteDefinitionDao(db *sql.DB) *sqliteDefinitionDao {
	return &sqliteDefinitionDao{db: db}
}

func (dao *sqliteDefinitionDao) Save(def model.WorkflowDefinition) error {
	steps, err := json.Marshal(def.Steps)
	if err != nil {
		return err
	}
	_, err = dao.db.Exec(`
		INSERT INTO workflow_definitions
			(tenant_id, logical_name, display_name, description, trigger_type,
			 trigger_entity_logical_name, steps_json, max_attempts, is_enabled,
			 created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT (tenant_id, logical_name) DO UPDATE SET
			display_name=excluded.display_name,
			description=excluded.description,
			trigger_type=excluded.trigger_type,
			trigger_entity_logical_name=excluded.trigger_entity_logical_name,
			steps_json=excluded.steps_json,
			max_attempts=excluded.max_attempts,
			is_enabled=excluded.is_enabled,
			updated_at=excluded.updated_at`,
		def.Tenant, def.LogicalName, def.DisplayName, def.Description,
		string(def.TriggerType), def.TriggerEntityLogicalName, string(steps),
		def.MaxAttempts, def.IsEnabled, def.CreatedAt, def.UpdatedAt)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (dao *sqliteDefinitionDao) Get(tenant string, logicalName string) (*model.WorkflowDefinition, error) {
	row := dao.db.QueryRow(`
		SELECT tenant_id, logical_name, display_name, description, trigger_type,
		       trigger_entity_logical_name, steps_json, max_attempts, is_enabled,
		       created_at, updated_at
		FROM workflow_definitions WHERE tenant_id = ? AND logical_name = ?`,
		tenant, logicalName)
	def, err := scanDefinition(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, persistence.NotFoundError{Kind: "workflow definition", Key: logicalName}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return def, nil
}

func (dao *sqliteDefinitionDao) List(tenant string) ([]model.WorkflowDefinition, error) {
	rows, err := dao.db.Query(`
		SELECT tenant_id, logical_name, display_name, description, trigger_type,
		       trigger_entity_logical_name, steps_json, max_attempts, is_enabled,
		       created_at, updated_at
		FROM workflow_definitions WHERE tenant_id = ? ORDER BY logical_name`,
		tenant)
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	defer rows.Close()
	var defs []model.WorkflowDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, persistence.StorageLayerError{Message: err.Error()}
		}
		defs = append(defs, *def)
	}
	return defs, rows.Err()
}

func (dao *sqliteDefinitionDao) Delete(tenant string, logicalName string) error {
	_, err := dao.db.Exec(`DELETE FROM workflow_definitions WHERE tenant_id = ? AND logical_name = ?`,
		tenant, logicalName)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row rowScanner) (*model.WorkflowDefinition, error) {
	var def model.WorkflowDefinition
	var triggerEntity sql.NullString
	var stepsJson string
	err := row.Scan(&def.Tenant, &def.LogicalName, &def.DisplayName, &def.Description,
		&def.TriggerType, &triggerEntity, &stepsJson, &def.MaxAttempts, &def.IsEnabled,
		&def.CreatedAt, &def.UpdatedAt)
	if err != nil {
		return nil, err
	}
	def.TriggerEntityLogicalName = triggerEntity.String
	if err := json.Unmarshal([]byte(stepsJson), &def.Steps); err != nil {
		return nil, err
	}
	return &def, nil
}
