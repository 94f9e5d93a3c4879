package workflow

// PaletteEntry is one draggable node kind offered to the editor.
type PaletteEntry struct {
	Type  NodeType `json:"type" yaml:"type"`
	Label string   `json:"label" yaml:"label"`
}

// PaletteCategory groups palette entries under a heading.
type PaletteCategory struct {
	Category string         `json:"category" yaml:"category"`
	Nodes    []PaletteEntry `json:"nodes" yaml:"nodes"`
}

// Palette returns the node kinds grouped as the editor presents them.
func Palette() []PaletteCategory {
	return []PaletteCategory{
		{
			Category: "Input",
			Nodes: []PaletteEntry{
				{Type: NodeTypeUserInput, Label: "User Input"},
				{Type: NodeTypeAPIInput, Label: "API Input"},
			},
		},
		{
			Category: "Logic",
			Nodes: []PaletteEntry{
				{Type: NodeTypeCreditCheck, Label: "Credit Check"},
				{Type: NodeTypeScoreCalculation, Label: "Score Calculation"},
				{Type: NodeTypeCondition, Label: "Condition"},
			},
		},
		{
			Category: "Output",
			Nodes: []PaletteEntry{
				{Type: NodeTypeApproval, Label: "Approval"},
				{Type: NodeTypeRejection, Label: "Rejection"},
				{Type: NodeTypeReview, Label: "Manual Review"},
			},
		},
	}
}
