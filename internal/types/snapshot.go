package types

import "time"

// ImageTypeLight is the only image type that counts as a completed measurement.
const ImageTypeLight = "LIGHT"

// RMS holds guiding error as reported by the guider, in pixels. Scale converts
// the per-axis values to arcseconds.
type RMS struct {
	Total float64 `json:"total"`
	RA    float64 `json:"ra"`
	Dec   float64 `json:"dec"`
	Scale float64 `json:"scale"`
}

// Target describes the object being imaged.
type Target struct {
	Name string `json:"name"`
	RA   string `json:"ra"`
	Dec  string `json:"dec"`
}

// Snapshot is one completed measurement. Every property read during an
// evaluation comes from the same Snapshot. Optional values are pointers so
// that absent and zero stay distinguishable.
type Snapshot struct {
	Path      string    `json:"path" validate:"required"`
	ImageType string    `json:"image_type" validate:"required"`
	Timestamp time.Time `json:"timestamp"`

	Filter string  `json:"filter,omitempty"`
	Target *Target `json:"target,omitempty"`
	RMS    *RMS    `json:"rms,omitempty"`

	Stars       *int     `json:"stars,omitempty"`
	HFR         *float64 `json:"hfr,omitempty"`
	Mean        *float64 `json:"mean,omitempty"`
	Median      *float64 `json:"median,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	StDev       *float64 `json:"stdev,omitempty"`
	MAD         *float64 `json:"mad,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Duration    *float64 `json:"duration,omitempty"`

	FocuserPosition           *int `json:"focuser_position,omitempty"`
	RotatorPosition           *int `json:"rotator_position,omitempty"`
	RotatorMechanicalPosition *int `json:"rotator_mechanical_position,omitempty"`

	// PreviewPath points at an already rendered image suitable for attaching.
	PreviewPath string `json:"preview_path,omitempty"`
}

// Complete reports whether the key field is populated.
func (s *Snapshot) Complete() bool {
	return s != nil && s.Path != ""
}

// IsLight reports whether the snapshot is a light frame.
func (s *Snapshot) IsLight() bool {
	return s != nil && s.ImageType == ImageTypeLight
}

// Exposure announces a completed light frame. LightCount is the number of
// light frames in the current session including this one. Session increases
// each time the measurement history is reset.
type Exposure struct {
	Session    uint64
	LightCount int
	Snapshot   *Snapshot
}
