package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ironsheep/plate-prep/internal/charset"
	"github.com/ironsheep/plate-prep/internal/labelfile"
	"github.com/ironsheep/plate-prep/internal/pipeline"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "dataset_prepare", "plate_read").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", zap.String("tool", params.Name), zap.Error(err))
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Dataset
	case "dataset_prepare":
		return s.handleDatasetPrepare(ctx, args)
	case "dataset_resolve":
		return s.handleDatasetResolve(args)
	case "dataset_audit":
		return s.handleDatasetAudit(ctx, args)

	// Images
	case "image_probe":
		return s.handleImageProbe(args)
	case "plate_read":
		return s.handlePlateRead(ctx, args)

	// Alphabet
	case "charset_list":
		return s.handleCharsetList(args)
	case "charset_write":
		return s.handleCharsetWrite(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Dataset Handlers ===

type datasetPrepareArgs struct {
	LabelsPath string  `json:"labels_path"`
	ImageDir   string  `json:"image_dir"`
	OutputDir  string  `json:"output_dir"`
	Seed       *uint64 `json:"seed"`
	Stratify   *bool   `json:"stratify"`
	DryRun     bool    `json:"dry_run"`
}

func (s *Server) handleDatasetPrepare(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a datasetPrepareArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	cfg := s.cfg
	if a.LabelsPath != "" {
		cfg.LabelsPath = a.LabelsPath
	}
	if a.ImageDir != "" {
		cfg.ImageDir = a.ImageDir
	}
	if a.OutputDir != "" {
		cfg.OutputDir = a.OutputDir
	}
	if a.Seed != nil {
		cfg.Split.Seed = *a.Seed
	}
	if a.Stratify != nil {
		cfg.Split.Stratify = *a.Stratify
	}

	run := pipeline.Run
	if a.DryRun {
		run = pipeline.DryRun
	}
	rep, err := run(ctx, cfg, pipeline.Deps{Logger: s.logger})
	if err != nil {
		return nil, fmt.Errorf("%w (exit class %s)", err, pipeline.Class(err))
	}
	return rep, nil
}

type datasetResolveArgs struct {
	ImagePaths []string `json:"image_paths"`
	ImageDir   string   `json:"image_dir"`
}

func (s *Server) handleDatasetResolve(args json.RawMessage) (interface{}, error) {
	var a datasetResolveArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.ImagePaths) == 0 {
		return nil, errors.New("image_paths is empty")
	}
	cfg := s.cfg
	if a.ImageDir != "" {
		cfg.ImageDir = a.ImageDir
	}
	return pipeline.Resolve(cfg, a.ImagePaths)
}

type datasetAuditArgs struct {
	Split string `json:"split"`
	Limit int    `json:"limit"`
}

func (s *Server) handleDatasetAudit(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a datasetAuditArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Limit < 0 {
		return nil, fmt.Errorf("limit %d must not be negative", a.Limit)
	}
	return pipeline.Audit(ctx, s.cfg, s.recognizer, pipeline.AuditOptions{Split: a.Split, Limit: a.Limit}, s.logger, nil)
}

// === Image Handlers ===

type imagePathArgs struct {
	Path string `json:"path"`
}

func (a imagePathArgs) validate() error {
	if a.Path == "" {
		return errors.New("path is required")
	}
	return nil
}

func (s *Server) handleImageProbe(args json.RawMessage) (interface{}, error) {
	var a imagePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return s.prober.Probe(a.Path)
}

func (s *Server) handlePlateRead(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imagePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return s.recognizer.Recognize(ctx, a.Path)
}

// === Alphabet Handlers ===

type charsetListResult struct {
	FileName  string   `json:"file_name"`
	Symbols   []string `json:"symbols"`
	Whitelist string   `json:"whitelist"`
}

func (s *Server) handleCharsetList(args json.RawMessage) (interface{}, error) {
	var a struct{}
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return charsetListResult{
		FileName:  s.charsetFile(),
		Symbols:   charset.Symbols(),
		Whitelist: charset.Whitelist(),
	}, nil
}

type charsetWriteArgs struct {
	OutputDir string `json:"output_dir"`
}

func (s *Server) handleCharsetWrite(args json.RawMessage) (interface{}, error) {
	var a charsetWriteArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	dir := s.cfg.OutputDir
	if a.OutputDir != "" {
		dir = a.OutputDir
	}
	w := &labelfile.Writer{Dir: dir, Atomic: s.cfg.AtomicWrites}
	if err := w.EnsureDir(); err != nil {
		return nil, err
	}
	path, err := w.WriteCharset(s.charsetFile())
	if err != nil {
		return nil, err
	}
	return map[string]string{"path": path}, nil
}

func (s *Server) charsetFile() string {
	if s.cfg.CharsetFile != "" {
		return s.cfg.CharsetFile
	}
	return charset.FileName
}
