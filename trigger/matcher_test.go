package trigger

import (
	"testing"

	"github.com/Neelbiehler/qryvanta-sub003/model"
	"github.com/Neelbiehler/qryvanta-sub003/persistence/inmem"
	"github.com/stretchr/testify/require"
)

func seedDefinitions(t *testing.T) *inmem.InMemDefinitionStorage {
	t.Helper()
	storage := inmem.NewInMemDefinitionStorage()
	defs := []model.WorkflowDefinition{
		{
			Tenant: "acme", LogicalName: "on-invoice", DisplayName: "On Invoice",
			TriggerType: model.TRIGGER_TYPE_RECORD_CREATED, TriggerEntityLogicalName: "invoice",
			MaxAttempts: 3, IsEnabled: true,
		},
		{
			Tenant: "acme", LogicalName: "on-invoice-disabled", DisplayName: "On Invoice Disabled",
			TriggerType: model.TRIGGER_TYPE_RECORD_CREATED, TriggerEntityLogicalName: "invoice",
			MaxAttempts: 3, IsEnabled: false,
		},
		{
			Tenant: "acme", LogicalName: "on-order", DisplayName: "On Order",
			TriggerType: model.TRIGGER_TYPE_RECORD_CREATED, TriggerEntityLogicalName: "order",
			MaxAttempts: 3, IsEnabled: true,
		},
		{
			Tenant: "acme", LogicalName: "nightly", DisplayName: "Nightly",
			TriggerType: model.TRIGGER_TYPE_SCHEDULE_TICK, MaxAttempts: 1, IsEnabled: true,
		},
		{
			Tenant: "other", LogicalName: "on-invoice", DisplayName: "On Invoice",
			TriggerType: model.TRIGGER_TYPE_RECORD_CREATED, TriggerEntityLogicalName: "invoice",
			MaxAttempts: 3, IsEnabled: true,
		},
	}
	for _, def := range defs {
		require.NoError(t, storage.Save(def))
	}
	return storage
}

func TestMatcher(t *testing.T) {
	matcher := NewMatcher(seedDefinitions(t))

	t.Run("record created matches type entity and enablement", func(t *testing.T) {
		matched, err := matcher.Match(model.TriggerEvent{
			Tenant:            "acme",
			Type:              model.TRIGGER_TYPE_RECORD_CREATED,
			EntityLogicalName: "invoice",
		})
		require.NoError(t, err)
		require.Len(t, matched, 1)
		require.Equal(t, "on-invoice", matched[0].LogicalName)
	})

	t.Run("schedule tick carries no entity filter", func(t *testing.T) {
		matched, err := matcher.Match(model.TriggerEvent{
			Tenant: "acme",
			Type:   model.TRIGGER_TYPE_SCHEDULE_TICK,
		})
		require.NoError(t, err)
		require.Len(t, matched, 1)
		require.Equal(t, "nightly", matched[0].LogicalName)
	})

	t.Run("tenants are isolated", func(t *testing.T) {
		matched, err := matcher.Match(model.TriggerEvent{
			Tenant:            "other",
			Type:              model.TRIGGER_TYPE_RECORD_CREATED,
			EntityLogicalName: "invoice",
		})
		require.NoError(t, err)
		require.Len(t, matched, 1)
		require.Equal(t, "other", matched[0].Tenant)
	})

	t.Run("empty match set is not an error", func(t *testing.T) {
		matched, err := matcher.Match(model.TriggerEvent{
			Tenant:            "acme",
			Type:              model.TRIGGER_TYPE_RECORD_CREATED,
			EntityLogicalName: "contact",
		})
		require.NoError(t, err)
		require.Empty(t, matched)
	})
}
