package tasks

import (
	"context"

	"github.com/pattayaone/tidal/app/content"
	"github.com/pattayaone/tidal/app/pipeline"
)

// TaskSchedulerInterface defines the interface for task scheduling
// operations. Used by the main application and the API's manual trigger
// endpoint to manage background processing.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// CycleRunner runs a single ingestion cycle for a collection.
type CycleRunner interface {
	RunCycle(ctx context.Context, config *content.Config) (pipeline.Summary, error)
}
