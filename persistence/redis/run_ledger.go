package redis

import (
	"context"

	"github.com/Neelbiehler/qryvanta-sub003/logger"
	"github.com/Neelbiehler/qryvanta-sub003/model"
	"github.com/Neelbiehler/qryvanta-sub003/persistence"
	"github.com/Neelbiehler/qryvanta-sub003/util"
	rd "github.com/go-redis/redis/v9"
	"go.uber.org/zap"
)

const RUN_KEY string = "RUN"
const RUN_INDEX_KEY string = "RUNS"
const ATTEMPTS_KEY string = "ATTEMPTS"

var _ persistence.RunLedger = new(redisRunLedger)

type redisRunLedger struct {
	baseDao
	runEncDec     util.EncoderDecoder[model.ExecutionRun]
	attemptEncDec util.EncoderDecoder[model.ExecutionAttempt]
}

func NewRedisRunLedger(conf Config) *redisRunLedger {
	return &redisRunLedger{
		baseDao:       *newBaseDao(conf),
		runEncDec:     util.NewJsonEncoderDecoder[model.ExecutionRun](),
		attemptEncDec: util.NewJsonEncoderDecoder[model.ExecutionAttempt](),
	}
}

func (rl *redisRunLedger) CreateRun(ctx context.Context, run model.ExecutionRun) error {
	data, err := rl.runEncDec.Encode(run)
	if err != nil {
		return err
	}
	score := float64(run.StartedAt.UnixNano())
	_, err = rl.redisClient.TxPipelined(ctx, func(pipe rd.Pipeliner) error {
		pipe.Set(ctx, rl.getNamespaceKey(RUN_KEY, run.Id), string(data), 0)
		pipe.ZAdd(ctx, rl.getNamespaceKey(RUN_INDEX_KEY, run.Tenant), rd.Z{Score: score, Member: run.Id})
		pipe.ZAdd(ctx, rl.getNamespaceKey(RUN_INDEX_KEY, run.Tenant, run.WorkflowLogicalName), rd.Z{Score: score, Member: run.Id})
		return nil
	})
	if err != nil {
		logger.Error("error in saving run", zap.String("runId", run.Id), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rl *redisRunLedger) GetRun(ctx context.Context, runId string) (*model.ExecutionRun, error) {
	val, err := rl.redisClient.Get(ctx, rl.getNamespaceKey(RUN_KEY, runId)).Result()
	if err != nil {
		if err == rd.Nil {
			return nil, persistence.NotFoundError{Kind: "run", Key: runId}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return rl.runEncDec.Decode([]byte(val))
}

func (rl *redisRunLedger) ListRuns(ctx context.Context, tenant string, workflowLogicalName string, limit int, offset int) ([]model.ExecutionRun, error) {
	indexKey := rl.getNamespaceKey(RUN_INDEX_KEY, tenant)
	if workflowLogicalName != "" {
		indexKey = rl.getNamespaceKey(RUN_INDEX_KEY, tenant, workflowLogicalName)
	}
	ids, err := rl.redisClient.ZRevRange(ctx, indexKey, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	runs := make([]model.ExecutionRun, 0, len(ids))
	for _, id := range ids {
		run, err := rl.GetRun(ctx, id)
		if err != nil {
			if persistence.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

func (rl *redisRunLedger) GetAttempts(ctx context.Context, runId string) ([]model.ExecutionAttempt, error) {
	vals, err := rl.redisClient.LRange(ctx, rl.getNamespaceKey(ATTEMPTS_KEY, runId), 0, -1).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	attempts := make([]model.ExecutionAttempt, 0, len(vals))
	for _, v := range vals {
		attempt, err := rl.attemptEncDec.Decode([]byte(v))
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *attempt)
	}
	return attempts, nil
}

func (rl *redisRunLedger) RecordAttempt(ctx context.Context, run model.ExecutionRun, attempt model.ExecutionAttempt) error {
	runData, err := rl.runEncDec.Encode(run)
	if err != nil {
		return err
	}
	attemptData, err := rl.attemptEncDec.Encode(attempt)
	if err != nil {
		return err
	}
	_, err = rl.redisClient.TxPipelined(ctx, func(pipe rd.Pipeliner) error {
		pipe.RPush(ctx, rl.getNamespaceKey(ATTEMPTS_KEY, run.Id), string(attemptData))
		pipe.Set(ctx, rl.getNamespaceKey(RUN_KEY, run.Id), string(runData), 0)
		return nil
	})
	if err != nil {
		logger.Error("error in recording attempt", zap.String("runId", run.Id), zap.Int("attempt", attempt.AttemptNumber), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}
