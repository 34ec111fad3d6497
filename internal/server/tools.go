package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": desc,
	}
}

func splitProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        []string{"train", "test", "eval"},
		"description": "Which split file to read. Defaults to the configured audit split.",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Dataset
		{
			Name: "dataset_prepare",
			Description: "Load the labels file, keep records whose image exists, split 80/10/10 with a fixed seed, " +
				"write train/test/eval label files, convert them for the recognizer toolkit and write the alphabet file. " +
				"With dry_run only counts are returned and nothing is written.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"labels_path": pathProperty("JSON array of {text, image_path} records. Defaults to the configured path."),
					"image_dir":   pathProperty("Directory the images are looked up in. Defaults to the configured directory."),
					"output_dir":  pathProperty("Directory that receives the output files. Defaults to the configured directory."),
					"seed": map[string]interface{}{
						"type":        "integer",
						"description": "Shuffle seed. Default 42",
					},
					"stratify": map[string]interface{}{
						"type":        "boolean",
						"description": "Split each plate family separately so every split holds all families",
					},
					"dry_run": map[string]interface{}{
						"type":        "boolean",
						"description": "Stop after the split and write nothing",
						"default":     false,
					},
				},
			},
		},
		{
			Name:        "dataset_resolve",
			Description: "Show the image file each declared image_path maps to, which rule matched, and whether the file exists.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image_paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Declared image paths as they appear in the labels file",
					},
					"image_dir": pathProperty("Directory the images are looked up in. Defaults to the configured directory."),
				},
				"required": []string{"image_paths"},
			},
		},
		{
			Name:        "dataset_audit",
			Description: "Run Tesseract over a written split and report exact-match accuracy and character error rate against the labels.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"split": splitProperty(),
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Audit at most this many images. 0 audits the whole split",
						"default":     0,
					},
				},
			},
		},

		// Images
		{
			Name:        "image_probe",
			Description: "Read the header of an image file and return its format, dimensions and size on disk without decoding pixels.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the image file"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "plate_read",
			Description: "Recognize the plate text of one image with Tesseract, restricted to the plate alphabet.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the image file"),
				},
				"required": []string{"path"},
			},
		},

		// Alphabet
		{
			Name:        "charset_list",
			Description: "Return the fixed 37-symbol plate alphabet (A-Z, 0-9, -) and its file name.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "charset_write",
			Description: "Write the alphabet file, one symbol per line.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"output_dir": pathProperty("Directory to write to. Defaults to the configured output directory."),
				},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
