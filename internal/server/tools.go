package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func imagePathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the photograph or page image",
	}
}

func cornersProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"x": map[string]interface{}{"type": "number"},
				"y": map[string]interface{}{"type": "number"},
			},
			"required": []string{"x", "y"},
		},
	}
}

func outputPathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Optional path to write the resulting image to; the format follows the extension",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "document_detect_edges",
			Description: "Find the four corners of a document in a photograph. Returns corners ordered top-left, top-right, bottom-right, bottom-left in pixel coordinates, a confidence score, the document bounds and which method located the corners (capability, edge_map or inset).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image_path": imagePathProperty(),
				},
				"required": []string{"image_path"},
			},
		},
		{
			Name:        "document_correct_perspective",
			Description: "Rectify a document given its four corners. The page is warped onto an upright rectangle, snapped to US Letter or A4 proportions when close, cropped and lightly sharpened. Returns accuracy scores, the refined source corners, the target corners and the corrected image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image_path":  imagePathProperty(),
					"corners":     cornersProperty("Exactly four document corners in pixel coordinates, in any order"),
					"output_path": outputPathProperty(),
					"include_image": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the corrected image as base64 PNG. Defaults to true unless output_path is set",
					},
				},
				"required": []string{"image_path", "corners"},
			},
		},
		{
			Name:        "document_process",
			Description: "Run the full rectification pipeline: corner detection, perspective correction and quality analysis, optionally followed by enhancement. Returns per-stage results, quality metrics including an OCR recommendation, and performance metrics. Sends progress notifications when the request carries a progress token.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image_path": imagePathProperty(),
					"optimize_for_ocr": map[string]interface{}{
						"type":        "boolean",
						"description": "Enhance for text recognition: grayscale, strong contrast and posterization",
						"default":     false,
					},
					"preserve_colors": map[string]interface{}{
						"type":        "boolean",
						"description": "Keep full colour saturation during enhancement",
						"default":     false,
					},
					"enhance": map[string]interface{}{
						"type":        "boolean",
						"description": "Run the enhancement stages on the rectified page",
						"default":     false,
					},
					"output_path": outputPathProperty(),
					"include_image": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the processed image as base64 PNG",
						"default":     false,
					},
				},
				"required": []string{"image_path"},
			},
		},
		{
			Name:        "document_quality",
			Description: "Measure sharpness, contrast, noise and text clarity of an already rectified page, each in [0,1].",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image_path": imagePathProperty(),
				},
				"required": []string{"image_path"},
			},
		},
		{
			Name:        "document_overlay",
			Description: "Draw a document outline over the photograph so corners can be reviewed. Detects the corners when none are given.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image_path": imagePathProperty(),
					"corners":    cornersProperty("Optional corners to draw; detected when omitted"),
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Stroke colour as #rrggbb. Default #ff0000",
					},
					"thickness": map[string]interface{}{
						"type":        "integer",
						"description": "Stroke thickness in pixels. Default 3",
					},
					"output_path": outputPathProperty(),
				},
				"required": []string{"image_path"},
			},
		},
		{
			Name:        "document_ocr",
			Description: "Process a document photograph and recognize its text with Tesseract when the page quality is recommended for OCR. Set force to recognize regardless of quality. Requires Tesseract and the language data to be installed.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image_path": imagePathProperty(),
					"language": map[string]interface{}{
						"type":        "string",
						"description": "Tesseract language code. Default from configuration (eng)",
					},
					"force": map[string]interface{}{
						"type":        "boolean",
						"description": "Recognize even when quality is below the OCR recommendation",
					},
				},
				"required": []string{"image_path"},
			},
		},
	}
}
