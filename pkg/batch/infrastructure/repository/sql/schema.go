package sql

import (
	"time"

	model "github.com/tigerroll/swell/pkg/batch/core/domain/model"
)

// JobDefinitionEntity is a schema model used for persistence.
type JobDefinitionEntity struct {
	ID                 string `gorm:"primaryKey"`
	Name               string
	Code               string `gorm:"index"`
	EntityType         string
	JobType            string
	Config             model.Payload `gorm:"type:text"`
	ChunkSize          int
	MaxRetries         int
	TimeoutMinutes     int
	ErrorRateThreshold float64
	Parallelism        int
	ProcessorName      string
	IsActive           bool `gorm:"index"`
	CreateTime         time.Time
	LastUpdated        time.Time
	Version            int
}

func (JobDefinitionEntity) TableName() string {
	return "swell_job_definition"
}

// ScheduleEntity is a schema model used for persistence.
type ScheduleEntity struct {
	ID              string `gorm:"primaryKey"`
	JobDefinitionID string `gorm:"index"`
	ScheduleType    string
	CronExpression  string
	IntervalMinutes int
	NextRunTime     *time.Time `gorm:"index"`
	LastRunTime     *time.Time
	IsActive        bool `gorm:"index"`
	CreateTime      time.Time
	LastUpdated     time.Time
	Version         int
}

func (ScheduleEntity) TableName() string {
	return "swell_schedule"
}

// InstanceEntity is a schema model used for persistence.
type InstanceEntity struct {
	ID               string `gorm:"primaryKey"`
	JobDefinitionID  string `gorm:"index"`
	ScheduleID       string `gorm:"index"`
	Status           string `gorm:"index"`
	Parameters       model.Payload `gorm:"type:text"`
	TotalRecords     int
	ProcessedRecords int
	SuccessRecords   int
	ErrorRecords     int
	SkippedRecords   int
	RetryCount       int
	StartedAt        *time.Time
	CompletedAt      *time.Time
	ErrorMessage     string
	InputLocation    string
	OutputLocation   string
	ErrorLocation    string
	CreateTime       time.Time
	LastUpdated      time.Time
	Version          int
}

func (InstanceEntity) TableName() string {
	return "swell_instance"
}

// ChunkEntity is a schema model used for persistence.
type ChunkEntity struct {
	ID               string `gorm:"primaryKey"`
	InstanceID       string `gorm:"index"`
	ChunkIndex       int
	Status           string
	StartOffset      int
	EndOffset        int
	TotalRecords     int
	ProcessedRecords int
	SuccessRecords   int
	ErrorRecords     int
	SkippedRecords   int
	RetryCount       int
	StartedAt        *time.Time
	CompletedAt      *time.Time
	ErrorMessage     string
	CreateTime       time.Time
	LastUpdated      time.Time
	Version          int
}

func (ChunkEntity) TableName() string {
	return "swell_chunk"
}

// RecordEntity is a schema model used for persistence.
type RecordEntity struct {
	ID           string `gorm:"primaryKey"`
	ChunkID      string `gorm:"index"`
	InstanceID   string `gorm:"index"`
	RecordIndex  int
	Status       string `gorm:"index"`
	Input        model.Payload `gorm:"type:text"`
	Result       model.Payload `gorm:"type:text"`
	ErrorMessage string
	RetryCount   int
	CreateTime   time.Time
	LastUpdated  time.Time
	Version      int
}

func (RecordEntity) TableName() string {
	return "swell_record"
}

// entities lists every schema model for migration.
func entities() []interface{} {
	return []interface{}{
		&JobDefinitionEntity{},
		&ScheduleEntity{},
		&InstanceEntity{},
		&ChunkEntity{},
		&RecordEntity{},
	}
}
