// Package extraction implements the agent that turns a receipt document into
// a structured record. It fetches the document, runs model inference, and
// writes the parsed record into run state. It never touches the backing store.
package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JaimeStill/tally/internal/receipts"
	"github.com/JaimeStill/tally/internal/runstate"
	"github.com/JaimeStill/tally/pkg/formatting"
	"github.com/JaimeStill/tally/pkg/network"
)

const (
	AgentName = "extraction"
	ToolName  = "parse-document"

	// AttrDocumentURL is the task attribute carrying the document location.
	AttrDocumentURL = "document_url"
)

// Args are the parse-document tool arguments.
type Args struct {
	DocumentURL string `json:"document_url"`
}

// Output summarizes a successful extraction for the turn history.
type Output struct {
	MediaType string   `json:"media_type"`
	Pages     int      `json:"pages"`
	Missing   []string `json:"missing,omitempty"`
}

// Config wires the agent's collaborators.
type Config struct {
	Source  Source
	Backend Backend
	Model   string
	Logger  *slog.Logger
}

// NewAgent builds the extraction agent. Its selector always invokes
// parse-document with the task's document URL.
func NewAgent(cfg Config) *network.Agent[*runstate.State] {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	t := &tool{
		source:  cfg.Source,
		backend: cfg.Backend,
		logger:  logger.With("agent", AgentName),
	}

	return &network.Agent[*runstate.State]{
		Name:        AgentName,
		Description: "Reads a receipt document and extracts merchant, transaction, item, and total details.",
		Model:       cfg.Model,
		Tools: []network.Tool[*runstate.State]{
			{
				Name:        ToolName,
				Description: "Fetch the document at document_url and extract a structured receipt record.",
				Handler:     t.handle,
			},
		},
		Select: selectInvocation,
	}
}

func selectInvocation(task network.Task, _ *runstate.State) (network.Invocation, error) {
	args, err := network.Args(Args{DocumentURL: task.Attr(AttrDocumentURL)})
	if err != nil {
		return network.Invocation{}, err
	}
	return network.Invocation{Tool: ToolName, Args: args}, nil
}

type tool struct {
	source  Source
	backend Backend
	logger  *slog.Logger
}

func (t *tool) handle(ctx context.Context, call network.Call[*runstate.State]) (any, error) {
	args, err := network.DecodeArgs[Args](call)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.DocumentURL) == "" {
		return nil, network.Fail(network.ErrInvalidArguments, fmt.Errorf("%s: document_url required", ToolName))
	}

	doc, err := t.source.Fetch(ctx, args.DocumentURL)
	if err != nil {
		return nil, network.Fail(ErrExtractionFailed, err)
	}

	text, err := t.backend.Extract(ctx, doc, Prompt)
	if err != nil {
		return nil, network.Fail(ErrExtractionFailed, err)
	}

	record, err := formatting.Parse[receipts.Record](text)
	if err != nil {
		return nil, network.Fail(ErrExtractionFailed, err)
	}

	if record.Empty() {
		return nil, network.Fail(ErrExtractionFailed, ErrEmptyRecord)
	}

	missing := record.Missing()
	call.State.SetRecord(&record)

	t.logger.InfoContext(ctx, "document extracted",
		"media_type", doc.MediaType,
		"pages", doc.PageCount,
		"items", len(record.Items),
		"missing", len(missing),
	)

	return Output{
		MediaType: doc.MediaType,
		Pages:     doc.PageCount,
		Missing:   missing,
	}, nil
}
