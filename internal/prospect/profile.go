package prospect

// Weights are the signed points a compiled profile assigns to each rule.
type Weights struct {
	Country   float64 `json:"country" mapstructure:"country"`
	Sector    float64 `json:"sector" mapstructure:"sector"`
	Size      float64 `json:"size" mapstructure:"size"`
	Role      float64 `json:"role" mapstructure:"role"`
	Tech      float64 `json:"tech" mapstructure:"tech"`
	Rating    float64 `json:"rating" mapstructure:"rating"`
	Exclusion float64 `json:"exclusion" mapstructure:"exclusion"`
}

// DefaultWeights returns the weights used when a profile does not carry any.
func DefaultWeights() Weights {
	return Weights{
		Country:   25,
		Sector:    20,
		Size:      15,
		Role:      15,
		Tech:      10,
		Rating:    10,
		Exclusion: -20,
	}
}

// CompiledProfile is the structured scoring configuration built from a free-text ICP description.
type CompiledProfile struct {
	Country      *string  `json:"country" yaml:"country"`
	Sectors      []string `json:"sectors" yaml:"sectors"`
	SizeMin      *float64 `json:"sizeMin" yaml:"sizeMin"`
	SizeMax      *float64 `json:"sizeMax" yaml:"sizeMax"`
	Roles        []string `json:"roles" yaml:"roles"`
	Technologies []string `json:"technologies" yaml:"technologies"`
	RatingMax    *float64 `json:"ratingMax" yaml:"ratingMax"`
	Exclusions   []string `json:"exclusions" yaml:"exclusions"`
	Weights      Weights  `json:"weights" yaml:"weights"`
	Notes        string   `json:"notes" yaml:"notes"`
}

// CompiledResult is what profile compilation returns to callers.
type CompiledResult struct {
	Name     string          `json:"name" yaml:"name"`
	Compiled CompiledProfile `json:"compiled" yaml:"compiled"`
	Summary  string          `json:"summary" yaml:"summary"`
}

// NewCompiledProfile returns an empty profile with every list allocated and default weights.
func NewCompiledProfile() CompiledProfile {
	return CompiledProfile{
		Sectors:      []string{},
		Roles:        []string{},
		Technologies: []string{},
		Exclusions:   []string{},
		Weights:      DefaultWeights(),
	}
}

// ICP maps a compiled profile onto the criteria read by the rule scorer.
// Technologies become signals and exclusions become excludes.
func (p CompiledProfile) ICP() ICP {
	icp := ICP{
		Sectors:         append([]string(nil), p.Sectors...),
		SizeMin:         p.SizeMin,
		SizeMax:         p.SizeMax,
		Roles:           append([]string(nil), p.Roles...),
		Excludes:        append([]string(nil), p.Exclusions...),
		Signals:         append([]string(nil), p.Technologies...),
		GoogleRatingMax: p.RatingMax,
	}
	if p.Country != nil {
		icp.Country = *p.Country
	}
	return icp
}
