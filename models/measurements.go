package models

import (
	"errors"
	"fmt"
)

// Gender selects which measurement bag an order carries
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Validate returns an error for anything other than male or female
func (g Gender) Validate() error {
	switch g {
	case GenderMale, GenderFemale:
		return nil
	default:
		return fmt.Errorf("unknown gender %q", string(g))
	}
}

// MaleMeasurements holds body measurements in inches for male garments
type MaleMeasurements struct {
	Neck          float64 `json:"neck,omitempty"`
	Chest         float64 `json:"chest,omitempty"`
	Waist         float64 `json:"waist,omitempty"`
	Hip           float64 `json:"hip,omitempty"`
	Shoulder      float64 `json:"shoulder,omitempty"`
	SleeveLength  float64 `json:"sleeve_length,omitempty"`
	TopLength     float64 `json:"top_length,omitempty"`
	TrouserLength float64 `json:"trouser_length,omitempty"`
	Thigh         float64 `json:"thigh,omitempty"`
	Ankle         float64 `json:"ankle,omitempty"`
	CapSize       float64 `json:"cap_size,omitempty"`
}

// FemaleMeasurements holds body measurements in inches for female garments
type FemaleMeasurements struct {
	Bust           float64 `json:"bust,omitempty"`
	UnderBust      float64 `json:"under_bust,omitempty"`
	Waist          float64 `json:"waist,omitempty"`
	Hip            float64 `json:"hip,omitempty"`
	Shoulder       float64 `json:"shoulder,omitempty"`
	SleeveLength   float64 `json:"sleeve_length,omitempty"`
	BlouseLength   float64 `json:"blouse_length,omitempty"`
	SkirtLength    float64 `json:"skirt_length,omitempty"`
	DressLength    float64 `json:"dress_length,omitempty"`
	NippleToNipple float64 `json:"nipple_to_nipple,omitempty"`
	HalfLength     float64 `json:"half_length,omitempty"`
}

// Measurements is the gender-specific bag stored on an order.
// Exactly one of Male or Female is set and it matches the order's gender.
type Measurements struct {
	Male   *MaleMeasurements   `json:"male,omitempty"`
	Female *FemaleMeasurements `json:"female,omitempty"`
}

// Validate checks the bag against the order's gender
func (m Measurements) Validate(gender Gender) error {
	if err := gender.Validate(); err != nil {
		return err
	}
	if m.Male != nil && m.Female != nil {
		return errors.New("only one of male or female measurements may be provided")
	}
	switch gender {
	case GenderMale:
		if m.Male == nil {
			return errors.New("male measurements are required for a male order")
		}
	case GenderFemale:
		if m.Female == nil {
			return errors.New("female measurements are required for a female order")
		}
	}
	return nil
}
