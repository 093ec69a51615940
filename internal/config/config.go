// Package config loads viewer configuration from JSON. All fields are
// pointers so a partial config file only overrides what it names; the Get*
// methods supply the built-in defaults for everything else.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stviewer-data/stviewer/internal/scene"
)

// ViewerConfig is the root configuration for the scene engine.
type ViewerConfig struct {
	// Initial render parameters applied to freshly loaded layers.
	PointSize   *float64 `json:"point_size,omitempty"`
	LineWidth   *float64 `json:"line_width,omitempty"`
	MeshOpacity *float64 `json:"mesh_opacity,omitempty"`

	// Colormap names the continuous colormap for numeric attributes.
	Colormap *string `json:"colormap,omitempty"`

	// AutoSelectCategorical activates a point cloud's sole categorical
	// attribute on load instead of starting with the fixed layer color.
	AutoSelectCategorical *bool `json:"auto_select_categorical,omitempty"`

	// PresetDB is the path of the sqlite database holding layer presets
	// and load history. Empty disables persistence.
	PresetDB *string `json:"preset_db,omitempty"`
}

// Empty returns a ViewerConfig with all fields unset.
func Empty() *ViewerConfig {
	return &ViewerConfig{}
}

// Load reads a ViewerConfig from a JSON file. The file must have a .json
// extension and stay under 1MB. Fields omitted from the file keep their
// built-in defaults, so partial configs are safe.
func Load(path string) (*ViewerConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *ViewerConfig) Validate() error {
	if c.PointSize != nil && *c.PointSize <= 0 {
		return fmt.Errorf("point_size must be positive, got %f", *c.PointSize)
	}
	if c.LineWidth != nil && *c.LineWidth <= 0 {
		return fmt.Errorf("line_width must be positive, got %f", *c.LineWidth)
	}
	if c.MeshOpacity != nil {
		if *c.MeshOpacity < 0 || *c.MeshOpacity > 1 {
			return fmt.Errorf("mesh_opacity must be between 0 and 1, got %f", *c.MeshOpacity)
		}
	}
	if c.Colormap != nil && *c.Colormap != "" {
		if _, err := scene.NewColormap(*c.Colormap); err != nil {
			return fmt.Errorf("invalid colormap: %w", err)
		}
	}
	return nil
}

// GetPointSize returns the point_size value or the default.
func (c *ViewerConfig) GetPointSize() float64 {
	if c.PointSize == nil {
		return 3 // default
	}
	return *c.PointSize
}

// GetLineWidth returns the line_width value or the default.
func (c *ViewerConfig) GetLineWidth() float64 {
	if c.LineWidth == nil {
		return 2 // default
	}
	return *c.LineWidth
}

// GetMeshOpacity returns the mesh_opacity value or the default.
func (c *ViewerConfig) GetMeshOpacity() float64 {
	if c.MeshOpacity == nil {
		return 0.5 // default: meshes start translucent
	}
	return *c.MeshOpacity
}

// GetColormap returns the colormap name or the default.
func (c *ViewerConfig) GetColormap() string {
	if c.Colormap == nil || *c.Colormap == "" {
		return scene.DefaultColormapName
	}
	return *c.Colormap
}

// GetAutoSelectCategorical returns the auto_select_categorical value or the
// default.
func (c *ViewerConfig) GetAutoSelectCategorical() bool {
	if c.AutoSelectCategorical == nil {
		return false // default: keep the fixed layer color on load
	}
	return *c.AutoSelectCategorical
}

// GetPresetDB returns the preset database path, or empty when persistence
// is disabled.
func (c *ViewerConfig) GetPresetDB() string {
	if c.PresetDB == nil {
		return ""
	}
	return *c.PresetDB
}

// SceneDefaults converts the configuration into the layer-state defaults the
// scene store consumes.
func (c *ViewerConfig) SceneDefaults() scene.Defaults {
	return scene.Defaults{
		PointSize:             c.GetPointSize(),
		LineWidth:             c.GetLineWidth(),
		MeshOpacity:           c.GetMeshOpacity(),
		Colormap:              c.GetColormap(),
		AutoSelectCategorical: c.GetAutoSelectCategorical(),
	}
}
