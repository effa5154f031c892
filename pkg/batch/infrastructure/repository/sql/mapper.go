package sql

import (
	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
)

func fromDomainJobDefinition(d *model.JobDefinition) *JobDefinitionEntity {
	return &JobDefinitionEntity{
		ID:                 d.ID,
		Name:               d.Name,
		Code:               d.Code,
		EntityType:         d.EntityType,
		JobType:            d.JobType.String(),
		Config:             d.Config,
		ChunkSize:          d.ChunkSize,
		MaxRetries:         d.MaxRetries,
		TimeoutMinutes:     d.TimeoutMinutes,
		ErrorRateThreshold: d.ErrorRateThreshold,
		Parallelism:        d.Parallelism,
		ProcessorName:      d.ProcessorName,
		IsActive:           d.IsActive,
		CreateTime:         d.CreateTime,
		LastUpdated:        d.LastUpdated,
		Version:            d.Version,
	}
}

func toDomainJobDefinition(e *JobDefinitionEntity) *model.JobDefinition {
	return &model.JobDefinition{
		ID:                 e.ID,
		Name:               e.Name,
		Code:               e.Code,
		EntityType:         e.EntityType,
		JobType:            model.JobType(e.JobType),
		Config:             e.Config,
		ChunkSize:          e.ChunkSize,
		MaxRetries:         e.MaxRetries,
		TimeoutMinutes:     e.TimeoutMinutes,
		ErrorRateThreshold: e.ErrorRateThreshold,
		Parallelism:        e.Parallelism,
		ProcessorName:      e.ProcessorName,
		IsActive:           e.IsActive,
		CreateTime:         e.CreateTime,
		LastUpdated:        e.LastUpdated,
		Version:            e.Version,
	}
}

func fromDomainSchedule(s *model.Schedule) *ScheduleEntity {
	return &ScheduleEntity{
		ID:              s.ID,
		JobDefinitionID: s.JobDefinitionID,
		ScheduleType:    s.ScheduleType.String(),
		CronExpression:  s.CronExpression,
		IntervalMinutes: s.IntervalMinutes,
		NextRunTime:     s.NextRunTime,
		LastRunTime:     s.LastRunTime,
		IsActive:        s.IsActive,
		CreateTime:      s.CreateTime,
		LastUpdated:     s.LastUpdated,
		Version:         s.Version,
	}
}

func toDomainSchedule(e *ScheduleEntity) *model.Schedule {
	return &model.Schedule{
		ID:              e.ID,
		JobDefinitionID: e.JobDefinitionID,
		ScheduleType:    model.ScheduleType(e.ScheduleType),
		CronExpression:  e.CronExpression,
		IntervalMinutes: e.IntervalMinutes,
		NextRunTime:     e.NextRunTime,
		LastRunTime:     e.LastRunTime,
		IsActive:        e.IsActive,
		CreateTime:      e.CreateTime,
		LastUpdated:     e.LastUpdated,
		Version:         e.Version,
	}
}

func fromDomainInstance(i *model.Instance) *InstanceEntity {
	return &InstanceEntity{
		ID:               i.ID,
		JobDefinitionID:  i.JobDefinitionID,
		ScheduleID:       i.ScheduleID,
		Status:           i.Status.String(),
		Parameters:       i.Parameters,
		TotalRecords:     i.TotalRecords,
		ProcessedRecords: i.ProcessedRecords,
		SuccessRecords:   i.SuccessRecords,
		ErrorRecords:     i.ErrorRecords,
		SkippedRecords:   i.SkippedRecords,
		RetryCount:       i.RetryCount,
		StartedAt:        i.StartedAt,
		CompletedAt:      i.CompletedAt,
		ErrorMessage:     i.ErrorMessage,
		InputLocation:    i.InputLocation,
		OutputLocation:   i.OutputLocation,
		ErrorLocation:    i.ErrorLocation,
		CreateTime:       i.CreateTime,
		LastUpdated:      i.LastUpdated,
		Version:          i.Version,
	}
}

func toDomainInstance(e *InstanceEntity) *model.Instance {
	return &model.Instance{
		ID:               e.ID,
		JobDefinitionID:  e.JobDefinitionID,
		ScheduleID:       e.ScheduleID,
		Status:           model.InstanceStatus(e.Status),
		Parameters:       e.Parameters,
		TotalRecords:     e.TotalRecords,
		ProcessedRecords: e.ProcessedRecords,
		SuccessRecords:   e.SuccessRecords,
		ErrorRecords:     e.ErrorRecords,
		SkippedRecords:   e.SkippedRecords,
		RetryCount:       e.RetryCount,
		StartedAt:        e.StartedAt,
		CompletedAt:      e.CompletedAt,
		ErrorMessage:     e.ErrorMessage,
		InputLocation:    e.InputLocation,
		OutputLocation:   e.OutputLocation,
		ErrorLocation:    e.ErrorLocation,
		CreateTime:       e.CreateTime,
		LastUpdated:      e.LastUpdated,
		Version:          e.Version,
	}
}

func fromDomainChunk(c *model.Chunk) *ChunkEntity {
	return &ChunkEntity{
		ID:               c.ID,
		InstanceID:       c.InstanceID,
		ChunkIndex:       c.ChunkIndex,
		Status:           c.Status.String(),
		StartOffset:      c.StartOffset,
		EndOffset:        c.EndOffset,
		TotalRecords:     c.TotalRecords,
		ProcessedRecords: c.ProcessedRecords,
		SuccessRecords:   c.SuccessRecords,
		ErrorRecords:     c.ErrorRecords,
		SkippedRecords:   c.SkippedRecords,
		RetryCount:       c.RetryCount,
		StartedAt:        c.StartedAt,
		CompletedAt:      c.CompletedAt,
		ErrorMessage:     c.ErrorMessage,
		CreateTime:       c.CreateTime,
		LastUpdated:      c.LastUpdated,
		Version:          c.Version,
	}
}

func toDomainChunk(e *ChunkEntity) *model.Chunk {
	return &model.Chunk{
		ID:               e.ID,
		InstanceID:       e.InstanceID,
		ChunkIndex:       e.ChunkIndex,
		Status:           model.InstanceStatus(e.Status),
		StartOffset:      e.StartOffset,
		EndOffset:        e.EndOffset,
		TotalRecords:     e.TotalRecords,
		ProcessedRecords: e.ProcessedRecords,
		SuccessRecords:   e.SuccessRecords,
		ErrorRecords:     e.ErrorRecords,
		SkippedRecords:   e.SkippedRecords,
		RetryCount:       e.RetryCount,
		StartedAt:        e.StartedAt,
		CompletedAt:      e.CompletedAt,
		ErrorMessage:     e.ErrorMessage,
		CreateTime:       e.CreateTime,
		LastUpdated:      e.LastUpdated,
		Version:          e.Version,
	}
}

func fromDomainRecord(r *model.Record) *RecordEntity {
	return &RecordEntity{
		ID:           r.ID,
		ChunkID:      r.ChunkID,
		InstanceID:   r.InstanceID,
		RecordIndex:  r.RecordIndex,
		Status:       r.Status.String(),
		Input:        r.Input,
		Result:       r.Result,
		ErrorMessage: r.ErrorMessage,
		RetryCount:   r.RetryCount,
		CreateTime:   r.CreateTime,
		LastUpdated:  r.LastUpdated,
		Version:      r.Version,
	}
}

func toDomainRecord(e *RecordEntity) *model.Record {
	return &model.Record{
		ID:           e.ID,
		ChunkID:      e.ChunkID,
		InstanceID:   e.InstanceID,
		RecordIndex:  e.RecordIndex,
		Status:       model.RecordStatus(e.Status),
		Input:        e.Input,
		Result:       e.Result,
		ErrorMessage: e.ErrorMessage,
		RetryCount:   e.RetryCount,
		CreateTime:   e.CreateTime,
		LastUpdated:  e.LastUpdated,
		Version:      e.Version,
	}
}
