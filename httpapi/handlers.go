package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/bufferstream/bufferstream"
	"github.com/kbukum/bufferstream/errors"
	"github.com/kbukum/bufferstream/logger"
	"github.com/kbukum/bufferstream/observability"
	"github.com/kbukum/bufferstream/pipeline"
	"github.com/kbukum/bufferstream/validation"
	"github.com/kbukum/bufferstream/version"
)

// Request body encodings accepted by /v1/transform.
const (
	FormatRaw    = "raw"
	FormatNDJSON = "ndjson"
)

const (
	contentTypeRaw    = "application/octet-stream"
	contentTypeNDJSON = "application/x-ndjson"
	maxChainLength    = 4096
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"service":    s.service,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"transforms": len(s.registry.List()),
		"in_flight":  s.limit.inUse(),
	})
}

func (s *Server) version(c *gin.Context) {
	c.JSON(http.StatusOK, version.GetVersionInfo())
}

type transformInfo struct {
	Name        string `json:"name"`
	ObjectMode  bool   `json:"object_mode"`
	RequiresArg bool   `json:"requires_arg"`
	Description string `json:"description"`
}

func (s *Server) listTransforms(c *gin.Context) {
	defs := s.registry.List()
	out := make([]transformInfo, 0, len(defs))
	for _, d := range defs {
		out = append(out, transformInfo{Name: d.Name, ObjectMode: d.ObjectMode, RequiresArg: d.RequiresArg, Description: d.Description})
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "chains": s.chains})
}

// transform streams the request body through the requested chain and
// writes what the last stage emits. Query parameters:
//
//	chain   chain spec or the name of a configured chain (required)
//	format  raw (default) or ndjson, for both request and response
func (s *Server) transform(c *gin.Context) {
	chainParam := c.Query("chain")
	format := c.DefaultQuery("format", FormatRaw)
	if err := validation.New().
		Required("chain", chainParam).
		MaxLength("chain", chainParam, maxChainLength).
		OneOf("format", format, []string{FormatRaw, FormatNDJSON}).
		Validate(); err != nil {
		RespondWithError(c, err)
		return
	}

	spec := chainParam
	if named, ok := s.chains[chainParam]; ok {
		spec = named
	}

	requestID := c.GetString(ctxRequestID)
	ctx, span := observability.StartSpan(c.Request.Context(), observability.SpanRequest)
	defer span.End()
	span.SetAttributes(
		attribute.String(observability.AttrChain, spec),
		attribute.String(observability.AttrRequestID, requestID),
	)

	log := s.log.WithFields(logger.Fields(logger.FieldRequestID, requestID, logger.FieldChain, spec))
	opts := append([]bufferstream.Option{bufferstream.WithLogger(log)}, s.stageOpts...)
	if s.metrics != nil {
		opts = append(opts, bufferstream.WithMetrics(s.metrics))
	}
	stages, err := s.registry.BuildChain(spec, opts...)
	if err != nil {
		observability.SetSpanError(ctx, err)
		RespondWithError(c, err)
		return
	}
	c.Header("X-Stage-Count", strconv.Itoa(len(stages)))

	var units []any
	if format == FormatNDJSON {
		units, err = s.runNDJSON(ctx, c, stages)
	} else {
		units, err = s.runRaw(ctx, c, stages, log)
	}
	if err != nil {
		observability.SetSpanError(ctx, err)
		RespondWithError(c, err)
		return
	}
	span.SetAttributes(attribute.Int(observability.AttrEmitted, len(units)))

	if format == FormatNDJSON {
		body, err := encodeNDJSON(units)
		if err != nil {
			RespondWithError(c, errors.Internal(err))
			return
		}
		c.Data(http.StatusOK, contentTypeNDJSON, body)
		return
	}
	var buf bytes.Buffer
	for _, u := range units {
		switch v := u.(type) {
		case []byte:
			buf.Write(v)
		case string:
			buf.WriteString(v)
		default:
			RespondWithError(c, errors.ModeMismatch(FormatRaw, u).WithDetail("hint", "use format=ndjson for object output"))
			return
		}
	}
	c.Data(http.StatusOK, contentTypeRaw, buf.Bytes())
}

func (s *Server) runRaw(ctx context.Context, c *gin.Context, stages []*bufferstream.Stage, log *logger.Logger) ([]any, error) {
	out := bufferstream.NewCollector()
	stages[len(stages)-1].PipeTo(out)

	// A read error is delivered to the first stage through Fail and
	// surfaces again from the collector unless a transform recovers it.
	if err := bufferstream.FromReader(ctx, stages[0], c.Request.Body, s.config.ChunkSize); err != nil {
		log.Debug("request body not fully read", logger.ErrorFields("read_body", err))
	}

	select {
	case <-out.Done():
		return out.Units(), out.Err()
	case <-ctx.Done():
		for _, st := range stages {
			st.Abort(ctx, ctx.Err())
		}
		return nil, errors.Timeout("transform").WithCause(ctx.Err())
	}
}

func (s *Server) runNDJSON(ctx context.Context, c *gin.Context, stages []*bufferstream.Stage) ([]any, error) {
	values := pipeline.Map(pipeline.Lines(c.Request.Body, int(s.maxBody)), decodeJSON)
	return pipeline.Collect(ctx, pipeline.Through(values, stages...))
}

func decodeJSON(_ context.Context, line []byte) (any, error) {
	var v any
	if err := json.Unmarshal(line, &v); err != nil {
		return nil, errors.InvalidInput("body", "each line must be a JSON value").WithCause(err)
	}
	return v, nil
}

func encodeNDJSON(units []any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, u := range units {
		if b, ok := u.([]byte); ok {
			u = string(b)
		}
		if err := enc.Encode(u); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
