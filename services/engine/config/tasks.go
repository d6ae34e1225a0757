// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/atelier-research/mentor/services/engine/datatypes"
)

// DefaultTaskDefinitions returns the built-in curriculum tasks in
// priority order. Order here is the tie-break when several tasks become
// eligible on the same turn.
func DefaultTaskDefinitions() []TaskDefinition {
	return []TaskDefinition{
		{
			Type:        datatypes.TaskArchitecturalConcept,
			Phase:       datatypes.PhaseIdeation,
			WindowMin:   10,
			WindowMax:   60,
			TriggerOnce: true,
			Title:       "Develop Your Core Concept",
			Guidance:    "Articulate the central idea driving your design in one or two sentences. What experience should the building create?",
		},
		{
			Type:        datatypes.TaskSpatialProgram,
			Phase:       datatypes.PhaseIdeation,
			WindowMin:   40,
			WindowMax:   90,
			Prerequisites: []datatypes.TaskType{
				datatypes.TaskArchitecturalConcept,
			},
			TriggerOnce: true,
			Title:       "Map the Spatial Program",
			Guidance:    "List the key spaces your design needs and describe how they relate. Which adjacencies matter most?",
		},
		{
			Type:          datatypes.TaskVisualAnalysis2D,
			Phase:         datatypes.PhaseVisualization,
			WindowMin:     10,
			WindowMax:     50,
			TriggerOnce:   true,
			ImageRequired: true,
			Title:         "Sketch Analysis",
			Guidance:      "Describe your plan or section sketch. What organizing geometry does it reveal?",
		},
		{
			Type:      datatypes.TaskVisualAnalysis3D,
			Phase:     datatypes.PhaseVisualization,
			WindowMin: 40,
			WindowMax: 85,
			Prerequisites: []datatypes.TaskType{
				datatypes.TaskVisualAnalysis2D,
			},
			TriggerOnce:   true,
			ImageRequired: true,
			Title:         "Massing and Volume",
			Guidance:      "Describe the three-dimensional massing of your design. How does it respond to the site?",
		},
		{
			Type:        datatypes.TaskTechnicalSystems,
			Phase:       datatypes.PhaseMaterialization,
			WindowMin:   5,
			WindowMax:   45,
			TriggerOnce: true,
			Title:       "Structural and Environmental Systems",
			Guidance:    "Identify the structural system and one environmental strategy. How do they shape the spaces?",
		},
		{
			Type:        datatypes.TaskMaterialSelection,
			Phase:       datatypes.PhaseMaterialization,
			WindowMin:   25,
			WindowMax:   70,
			TriggerOnce: true,
			Title:       "Material Palette",
			Guidance:    "Choose two primary materials and explain what each contributes to the experience of the building.",
		},
		{
			Type:        datatypes.TaskSustainabilityAnalysis,
			Phase:       datatypes.PhaseMaterialization,
			WindowMin:   40,
			WindowMax:   85,
			TriggerOnce: true,
			Title:       "Sustainability Check",
			Guidance:    "Assess one environmental impact of your design and propose a mitigation.",
		},
		{
			Type:      datatypes.TaskFinalPresentation,
			Phase:     datatypes.PhaseMaterialization,
			WindowMin: 70,
			WindowMax: 100,
			Prerequisites: []datatypes.TaskType{
				datatypes.TaskTechnicalSystems,
				datatypes.TaskMaterialSelection,
			},
			TriggerOnce: true,
			Title:       "Present Your Design",
			Guidance:    "Summarize your design journey: concept, development, and final resolution, in your own words.",
		},
	}
}

// LoadTaskDefinitions reads task definitions from a standalone YAML file.
//
// The file holds a top-level `tasks:` list in the same shape as the
// inline config block.
func LoadTaskDefinitions(path string) ([]TaskDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading task definitions: %w", err)
	}
	var doc struct {
		Tasks []TaskDefinition `yaml:"tasks"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing task definitions: %w", err)
	}
	for i, t := range doc.Tasks {
		if !t.Type.Valid() {
			return nil, fmt.Errorf("%w: tasks[%d]: unknown task type %q", ErrInvalidConfig, i, t.Type)
		}
		if !t.Phase.Valid() {
			return nil, fmt.Errorf("%w: tasks[%d]: unknown phase %q", ErrInvalidConfig, i, t.Phase)
		}
	}
	return doc.Tasks, nil
}
