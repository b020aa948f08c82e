package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/document-rectify-mcp/internal/detection"
	"github.com/ironsheep/document-rectify-mcp/internal/docerr"
	"github.com/ironsheep/document-rectify-mcp/internal/enhance"
	"github.com/ironsheep/document-rectify-mcp/internal/geometry"
	"github.com/ironsheep/document-rectify-mcp/internal/imaging"
	"github.com/ironsheep/document-rectify-mcp/internal/ocr"
	"github.com/ironsheep/document-rectify-mcp/internal/pipeline"
	"github.com/ironsheep/document-rectify-mcp/internal/quality"
	"github.com/ironsheep/document-rectify-mcp/internal/rectify"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "document_process").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`

	// Meta carries the optional progress token.
	Meta *RequestMeta `json:"_meta,omitempty"`
}

// RequestMeta is the _meta object of a tools/call request.
type RequestMeta struct {
	ProgressToken interface{} `json:"progressToken,omitempty"`
}

// paramError marks malformed tool arguments.
type paramError struct {
	err error
}

func (e *paramError) Error() string { return e.err.Error() }
func (e *paramError) Unwrap() error { return e.err }

func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return &paramError{err: fmt.Errorf("invalid arguments: %w", err)}
	}
	return nil
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000
// whose data carries the error code, stage and reason.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	var token interface{}
	if params.Meta != nil {
		token = params.Meta.ProgressToken
	}

	start := time.Now()
	log := s.log.WithField("tool", params.Name)

	result, err := s.executeTool(ctx, params.Name, params.Arguments, s.progressNotifier(token))
	if err != nil {
		log.WithError(err).WithField("duration_ms", time.Since(start).Milliseconds()).Warn("tool failed")

		var pe *paramError
		if errors.As(err, &pe) {
			return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", pe.Error())
		}
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", errorData(err))
	}
	log.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("tool completed")

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
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage, progress progressFunc) (interface{}, error) {
	switch name {
	case "document_detect_edges":
		return s.handleDetectEdges(ctx, args)
	case "document_correct_perspective":
		return s.handleCorrectPerspective(ctx, args)
	case "document_process":
		return s.handleProcess(ctx, args, progress)
	case "document_quality":
		return s.handleQuality(ctx, args)
	case "document_overlay":
		return s.handleOverlay(ctx, args)
	case "document_ocr":
		return s.handleOCR(ctx, args)
	default:
		return nil, &paramError{err: fmt.Errorf("unknown tool: %s", name)}
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
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

// errorData renders err for the error response's data member.
func errorData(err error) map[string]interface{} {
	var de *docerr.Error
	if errors.As(err, &de) {
		m := de.ToMap()
		m["message"] = err.Error()
		return m
	}
	return map[string]interface{}{"reason": err.Error(), "message": err.Error()}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// progressFunc reports progress as a fraction of total.
type progressFunc func(progress, total float64, message string)

// progressNotifier returns a function that sends notifications/progress for
// token, or nil when the client did not ask for progress.
func (s *Server) progressNotifier(token interface{}) progressFunc {
	if token == nil {
		return nil
	}
	return func(progress, total float64, message string) {
		s.notify("notifications/progress", map[string]interface{}{
			"progressToken": token,
			"progress":      progress,
			"total":         total,
			"message":       message,
		})
	}
}

func (s *Server) loadImage(path string) (image.Image, error) {
	if path == "" {
		return nil, docerr.InvalidInputf("server", "image_path is required")
	}
	return s.cache.Load(path)
}

// writeOrEncode saves img to outputPath when given, otherwise returns it as
// base64 PNG when include is set.
func writeOrEncode(img image.Image, outputPath string, include bool) (*imaging.ImageResult, error) {
	if outputPath != "" {
		if err := imaging.Save(img, outputPath); err != nil {
			return nil, err
		}
	}
	if !include {
		return nil, nil
	}
	return imaging.EncodePNG(img)
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// === Edge detection ===

type imagePathArgs struct {
	ImagePath string `json:"image_path"`
}

type detectEdgesResult struct {
	Width            int                    `json:"width"`
	Height           int                    `json:"height"`
	Corners          geometry.Quadrilateral `json:"corners"`
	Confidence       float64                `json:"confidence"`
	DocumentBounds   *geometry.Rect         `json:"document_bounds,omitempty"`
	CornerSource     detection.CornerSource `json:"corner_source"`
	EdgeDensity      float64                `json:"edge_density"`
	CornerQuality    float64                `json:"corner_quality"`
	ProcessingTimeMs float64                `json:"processing_time_ms"`
}

func (s *Server) handleDetectEdges(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imagePathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.ImagePath)
	if err != nil {
		return nil, err
	}

	r, err := s.coord.Detector().DetectEdges(ctx, img, nil)
	if err != nil {
		return nil, err
	}
	return &detectEdgesResult{
		Width:            img.Bounds().Dx(),
		Height:           img.Bounds().Dy(),
		Corners:          r.Corners,
		Confidence:       r.Confidence,
		DocumentBounds:   r.DocumentBounds,
		CornerSource:     r.CornerSource,
		EdgeDensity:      r.EdgeDensity,
		CornerQuality:    r.CornerQuality,
		ProcessingTimeMs: millis(r.ProcessingTime),
	}, nil
}

// === Perspective correction ===

type correctPerspectiveArgs struct {
	ImagePath    string           `json:"image_path"`
	Corners      []geometry.Point `json:"corners"`
	OutputPath   string           `json:"output_path"`
	IncludeImage *bool            `json:"include_image"`
}

type correctPerspectiveResult struct {
	CorrectionAccuracy float64                `json:"correction_accuracy"`
	GeometricAccuracy  float64                `json:"geometric_accuracy"`
	QualityAccuracy    float64                `json:"quality_accuracy"`
	SourceCorners      geometry.Quadrilateral `json:"source_corners"`
	TargetCorners      geometry.Quadrilateral `json:"target_corners"`
	PageFormat         rectify.PageFormat     `json:"page_format"`
	RefinedCorners     int                    `json:"refined_corners"`
	ProcessingTimeMs   float64                `json:"processing_time_ms"`
	OutputPath         string                 `json:"output_path,omitempty"`
	Image              *imaging.ImageResult   `json:"image,omitempty"`
}

func (s *Server) handleCorrectPerspective(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a correctPerspectiveArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.ImagePath)
	if err != nil {
		return nil, err
	}

	r, err := s.coord.Rectifier().CorrectPerspective(ctx, img, geometry.Quadrilateral(a.Corners), nil, nil)
	if err != nil {
		return nil, err
	}

	include := a.OutputPath == ""
	if a.IncludeImage != nil {
		include = *a.IncludeImage
	}
	encoded, err := writeOrEncode(r.CorrectedImage, a.OutputPath, include)
	if err != nil {
		return nil, err
	}

	return &correctPerspectiveResult{
		CorrectionAccuracy: r.CorrectionAccuracy,
		GeometricAccuracy:  r.GeometricAccuracy,
		QualityAccuracy:    r.QualityAccuracy,
		SourceCorners:      r.SourceCorners,
		TargetCorners:      r.TargetCorners,
		PageFormat:         r.PageFormat,
		RefinedCorners:     r.RefinedCorners,
		ProcessingTimeMs:   millis(r.ProcessingTime),
		OutputPath:         a.OutputPath,
		Image:              encoded,
	}, nil
}

// === Full pipeline ===

type processArgs struct {
	ImagePath      string `json:"image_path"`
	OptimizeForOCR bool   `json:"optimize_for_ocr"`
	PreserveColors bool   `json:"preserve_colors"`
	Enhance        bool   `json:"enhance"`
	OutputPath     string `json:"output_path"`
	IncludeImage   bool   `json:"include_image"`
}

type processResult struct {
	RunID                 string                               `json:"run_id"`
	Width                 int                                  `json:"width"`
	Height                int                                  `json:"height"`
	EdgeDetection         *detection.EdgeDetectionResult       `json:"edge_detection"`
	PerspectiveCorrection *rectify.PerspectiveCorrectionResult `json:"perspective_correction"`
	Quality               quality.Metrics                      `json:"quality"`
	Performance           pipeline.PerformanceMetrics          `json:"performance"`
	TotalTimeMs           float64                              `json:"total_time_ms"`
	Enhanced              bool                                 `json:"enhanced"`
	OutputPath            string                               `json:"output_path,omitempty"`
	Image                 *imaging.ImageResult                 `json:"image,omitempty"`
}

// process runs the pipeline and, when enhance is set, the enhancement
// stages. Progress covers [0,1] for the pipeline and [1,2] for enhancement.
func (s *Server) process(ctx context.Context, img image.Image, opts pipeline.Options, doEnhance bool, progress progressFunc) (*pipeline.DocumentProcessingResult, image.Image, error) {
	total := 1.0
	if doEnhance {
		total = 2
	}
	if progress != nil {
		opts.ProgressCallback = func(p pipeline.Progress) {
			progress(p.OverallProgress, total, string(p.CurrentStep))
		}
	}

	result, err := s.coord.Process(ctx, img, opts)
	if err != nil {
		return nil, nil, err
	}
	if !doEnhance {
		return result, result.ProcessedImage, nil
	}

	eopts := enhance.FromPipeline(opts)
	steps := enhance.Steps(eopts)
	index := make(map[pipeline.Step]int, len(steps))
	for i, step := range steps {
		index[step] = i
	}

	var report enhance.ProgressFunc
	if progress != nil {
		report = func(step pipeline.Step, p float64) {
			progress(1+(float64(index[step])+p)/float64(len(steps)), total, string(step))
		}
	}
	enhanced, err := enhance.Apply(ctx, s.coord.RenderContext(), result.ProcessedImage, eopts, report)
	if err != nil {
		return nil, nil, err
	}
	return result, enhanced, nil
}

func (s *Server) handleProcess(ctx context.Context, args json.RawMessage, progress progressFunc) (interface{}, error) {
	var a processArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.ImagePath)
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{OptimizeForOCR: a.OptimizeForOCR, PreserveColors: a.PreserveColors}
	result, out, err := s.process(ctx, img, opts, a.Enhance, progress)
	if err != nil {
		return nil, err
	}

	encoded, err := writeOrEncode(out, a.OutputPath, a.IncludeImage)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"run_id":      result.RunID,
		"enhanced":    a.Enhance,
		"duration_ms": result.Performance.TotalProcessingTime.Milliseconds(),
	}).Info("document_process completed")

	return &processResult{
		RunID:                 result.RunID,
		Width:                 out.Bounds().Dx(),
		Height:                out.Bounds().Dy(),
		EdgeDetection:         result.EdgeDetection,
		PerspectiveCorrection: result.PerspectiveCorrection,
		Quality:               result.Quality,
		Performance:           result.Performance,
		TotalTimeMs:           millis(result.Performance.TotalProcessingTime),
		Enhanced:              a.Enhance,
		OutputPath:            a.OutputPath,
		Image:                 encoded,
	}, nil
}

// === Quality ===

type qualityResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	quality.Signals
}

func (s *Server) handleQuality(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imagePathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.ImagePath)
	if err != nil {
		return nil, err
	}

	signals, err := quality.Analyze(ctx, s.coord.RenderContext(), img)
	if err != nil {
		return nil, err
	}
	return &qualityResult{
		Width:   img.Bounds().Dx(),
		Height:  img.Bounds().Dy(),
		Signals: signals,
	}, nil
}

// === Overlay ===

type overlayArgs struct {
	ImagePath  string           `json:"image_path"`
	Corners    []geometry.Point `json:"corners"`
	Color      string           `json:"color"`
	Thickness  int              `json:"thickness"`
	OutputPath string           `json:"output_path"`
}

type overlayResult struct {
	Corners      geometry.Quadrilateral `json:"corners"`
	CornerSource detection.CornerSource `json:"corner_source,omitempty"`
	OutputPath   string                 `json:"output_path,omitempty"`
	*imaging.ImageResult
}

func (s *Server) handleOverlay(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a overlayArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.ImagePath)
	if err != nil {
		return nil, err
	}

	res := &overlayResult{Corners: geometry.Quadrilateral(a.Corners)}
	if len(res.Corners) == 0 {
		edges, err := s.coord.Detector().DetectEdges(ctx, img, nil)
		if err != nil {
			return nil, err
		}
		res.Corners = edges.Corners
		res.CornerSource = edges.CornerSource
	}

	opts := imaging.DefaultOverlayOptions()
	if a.Color != "" {
		opts.Color = a.Color
	}
	if a.Thickness > 0 {
		opts.Thickness = a.Thickness
	}

	drawn, err := s.coord.RenderContext().DrawQuadrilateral(img, res.Corners, opts)
	if err != nil {
		return nil, err
	}
	if res.ImageResult, err = writeOrEncode(drawn, a.OutputPath, a.OutputPath == ""); err != nil {
		return nil, err
	}
	res.OutputPath = a.OutputPath
	return res, nil
}

// === OCR ===

type ocrArgs struct {
	ImagePath string `json:"image_path"`
	Language  string `json:"language"`
	Force     *bool  `json:"force"`
}

type ocrResult struct {
	RunID      string          `json:"run_id"`
	Recognized bool            `json:"recognized"`
	Reason     string          `json:"reason,omitempty"`
	Quality    quality.Metrics `json:"quality"`
	*ocr.Result
}

func (s *Server) handleOCR(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a ocrArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.ImagePath)
	if err != nil {
		return nil, err
	}

	force := s.cfg.OCR.Force
	if a.Force != nil {
		force = *a.Force
	}
	language := a.Language
	if language == "" {
		language = s.cfg.OCR.Language
	}

	result, err := s.coord.Process(ctx, img, pipeline.Options{OptimizeForOCR: true})
	if err != nil {
		return nil, err
	}

	res := &ocrResult{RunID: result.RunID, Quality: result.Quality}
	if !ocr.ShouldRecognize(result.Quality, force) {
		res.Reason = "page quality is below the OCR recommendation; pass force to recognize anyway"
		return res, nil
	}

	prepared, err := enhance.Apply(ctx, s.coord.RenderContext(), result.ProcessedImage, enhance.Options{OptimizeForOCR: true}, nil)
	if err != nil {
		return nil, err
	}
	text, err := ocr.Recognize(prepared, language)
	if err != nil {
		return nil, err
	}
	res.Recognized = true
	res.Result = text
	return res, nil
}
