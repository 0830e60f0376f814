package api

import (
	"net/http"

	"github.com/JaimeStill/tally/internal/config"
	"github.com/JaimeStill/tally/internal/expenses"
	"github.com/JaimeStill/tally/internal/extraction"
	"github.com/JaimeStill/tally/internal/trigger"
	"github.com/JaimeStill/tally/internal/usage"
	"github.com/JaimeStill/tally/internal/workflow"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Expenses  expenses.System
	Workflow  *workflow.Runtime
	Publisher *trigger.Publisher
	Consumer  *trigger.Consumer
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	client := runtime.Broker.Client()

	expensesSystem := expenses.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	wf := &workflow.Runtime{
		MaxTurns: runtime.Pipeline.MaxTurns,
		Model:    runtime.Agent.Model,
		Source: &extraction.Resolver{
			HTTP:     &http.Client{Timeout: runtime.Pipeline.RunTimeoutDuration()},
			Blobs:    runtime.Storage,
			S3:       runtime.S3,
			MaxBytes: runtime.Pipeline.MaxDocumentBytes(),
		},
		Backend: extraction.NewBedrockBackend(runtime.Bedrock, extraction.BedrockOptions{
			Model:       runtime.Agent.Model,
			MaxTokens:   runtime.Agent.MaxTokens,
			Temperature: runtime.Agent.Temperature,
		}),
		Expenses: expensesSystem,
		Status:   expensesSystem,
		Usage:    newUsageSink(runtime),
		Metrics:  workflow.NewMetrics(runtime.Registry),
		Logger:   runtime.Logger,
	}

	consumer := trigger.NewConsumer(
		client,
		trigger.WorkflowRunner(wf),
		trigger.ConsumerConfig{
			Stream:      runtime.Pipeline.TriggerStream,
			Group:       runtime.Pipeline.ConsumerGroup,
			Name:        runtime.Pipeline.ConsumerName,
			Concurrency: runtime.Pipeline.Concurrency,
			RunTimeout:  runtime.Pipeline.RunTimeoutDuration(),
		},
		runtime.Logger,
	)

	return &Domain{
		Expenses:  expensesSystem,
		Workflow:  wf,
		Publisher: trigger.NewPublisher(client, runtime.Pipeline.TriggerStream),
		Consumer:  consumer,
	}
}

func newUsageSink(runtime *Runtime) usage.Sink {
	if runtime.Pipeline.UsageSink == config.UsageSinkLog {
		return usage.NewLogSink(runtime.Logger)
	}
	return usage.NewRedisSink(
		runtime.Broker.Client(),
		runtime.Pipeline.UsageStream,
		runtime.Pipeline.UsageDedupeTTLDuration(),
		runtime.Logger,
	)
}
