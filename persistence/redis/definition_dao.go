package redis

import (
	"context"

	"github.com/Neelbiehler/qryvanta-sub003/model"
	"github.com/Neelbiehler/qryvanta-sub003/persistence"
	"github.com/Neelbiehler/qryvanta-sub003/util"
	rd "github.com/go-redis/redis/v9"
)

const WORKFLOW_DEF string = "WF_DEF"

var _ persistence.DefinitionStorage = new(redisDefinitionDao)

type redisDefinitionDao struct {
	baseDao
	encoderDecoder util.EncoderDecoder[model.WorkflowDefinition]
}

func NewRedisDefinitionDao(conf Config) *redisDefinitionDao {
	return &redisDefinitionDao{
		baseDao:        *newBaseDao(conf),
		encoderDecoder: util.NewJsonEncoderDecoder[model.WorkflowDefinition](),
	}
}

func (rdd *redisDefinitionDao) Save(def model.WorkflowDefinition) error {
	key := rdd.getNamespaceKey(WORKFLOW_DEF, def.Tenant)
	ctx := context.Background()
	data, err := rdd.encoderDecoder.Encode(def)
	if err != nil {
		return err
	}
	if err := rdd.redisClient.HSet(ctx, key, def.LogicalName, string(data)).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rdd *redisDefinitionDao) Get(tenant string, logicalName string) (*model.WorkflowDefinition, error) {
	key := rdd.getNamespaceKey(WORKFLOW_DEF, tenant)
	ctx := context.Background()
	val, err := rdd.redisClient.HGet(ctx, key, logicalName).Result()
	if err != nil {
		if err == rd.Nil {
			return nil, persistence.NotFoundError{Kind: "workflow definition", Key: logicalName}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return rdd.encoderDecoder.Decode([]byte(val))
}

func (rdd *redisDefinitionDao) List(tenant string) ([]model.WorkflowDefinition, error) {
	key := rdd.getNamespaceKey(WORKFLOW_DEF, tenant)
	ctx := context.Background()
	vals, err := rdd.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	defs := make([]model.WorkflowDefinition, 0, len(vals))
	for _, v := range vals {
		def, err := rdd.encoderDecoder.Decode([]byte(v))
		if err != nil {
			return nil, err
		}
		defs = append(defs, *def)
	}
	return defs, nil
}

func (rdd *redisDefinitionDao) Delete(tenant string, logicalName string) error {
	key := rdd.getNamespaceKey(WORKFLOW_DEF, tenant)
	ctx := context.Background()
	if err := rdd.redisClient.HDel(ctx, key, logicalName).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}
