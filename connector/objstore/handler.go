package objstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/etlkit/job"
	"github.com/kbukum/etlkit/logger"
	"github.com/kbukum/etlkit/pipeline"
	"github.com/kbukum/etlkit/resilience"
	"github.com/kbukum/etlkit/storage"
)

const timeLayout = "20060102T150405.000000000Z"

// FileParams are the role params of the file error handler.
type FileParams struct {
	// Dir overrides the job name as the object directory.
	Dir string `mapstructure:"dir"`
	// Indent pretty-prints the stored JSON.
	Indent bool `mapstructure:"indent"`
}

// Document is the stored form of one failure.
type Document struct {
	Job         string `json:"job"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Offset      int    `json:"offset"`
	Limit       int    `json:"limit"`
	Failure     any    `json:"failure"`
}

// FileErrorHandler writes every failure it receives as one JSON object
// named <job>/<timestamp>-<uuid>.json in the destination storage.
type FileErrorHandler struct {
	job.ErrorHandlerBase
	params FileParams
	now    func() time.Time
}

// NewFileErrorHandler creates a file error handler.
func NewFileErrorHandler(attrs job.Attributes, source, destination string) (job.ErrorHandler, error) {
	base, err := job.NewErrorHandlerBase(attrs, source, destination)
	if err != nil {
		return nil, err
	}
	var params FileParams
	if err := attrs.Params.Decode(&params); err != nil {
		return nil, err
	}
	if params.Dir == "" {
		params.Dir = attrs.Name
	}
	return &FileErrorHandler{ErrorHandlerBase: base, params: params, now: time.Now}, nil
}

// Key returns the object key for a failure with the given id.
func (h *FileErrorHandler) Key(id string, at time.Time) string {
	if id == "" {
		id = uuid.NewString()
	}
	return path.Join(h.params.Dir, fmt.Sprintf("%s-%s.json", at.UTC().Format(timeLayout), id))
}

// HandleError stores failure. It is the terminal link, so nothing is
// appended to pool.
func (h *FileErrorHandler) HandleError(ctx context.Context, _ pipeline.Chain, failure any, _ *pipeline.Pool) {
	log := h.Logger()

	id := ""
	fields := logger.Fields()
	if f, ok := failure.(*pipeline.Failure); ok {
		id = f.ID
		fields = logger.Fields(
			"failure_id", f.ID,
			logger.FieldOperation, f.Operation,
			logger.FieldStage, f.Stage,
			"targets", f.Targets,
			logger.FieldError, f.Error,
		)
	}
	key := h.Key(id, h.now())
	fields["key"] = key

	body, err := h.encode(failure)
	if err != nil {
		log.Error("failure not encodable", fields, logger.Fields("cause", err.Error()))
		return
	}

	store, err := job.Stream[storage.Storage](ctx, h.Destination)
	if err == nil {
		err = resilience.RetryFunc(ctx, resilience.DefaultRetryConfig(), func() error {
			return store.Upload(ctx, key, bytes.NewReader(body))
		})
	}
	if err != nil {
		log.Error("failure not stored", fields, logger.Fields("cause", err.Error()))
		return
	}
	log.Warn("failure stored", fields)
}

func (h *FileErrorHandler) encode(failure any) ([]byte, error) {
	doc := Document{
		Job:         h.Name,
		Source:      h.Source.Name(),
		Destination: h.Destination.Name(),
		Offset:      h.Offset,
		Limit:       h.Limit,
		Failure:     failure,
	}
	if h.params.Indent {
		return json.MarshalIndent(doc, "", "  ")
	}
	return json.Marshal(doc)
}
