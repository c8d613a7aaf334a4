package prospect

// ICP describes the buyer criteria a prospect is scored against.
// Every field is optional: an unset field disables the rule that reads it.
type ICP struct {
	Country         string   `json:"country,omitempty" yaml:"country,omitempty" mapstructure:"country"`
	Sectors         []string `json:"sectors,omitempty" yaml:"sectors,omitempty" mapstructure:"sectors"`
	SizeMin         *float64 `json:"sizeMin,omitempty" yaml:"sizeMin,omitempty" mapstructure:"sizeMin"`
	SizeMax         *float64 `json:"sizeMax,omitempty" yaml:"sizeMax,omitempty" mapstructure:"sizeMax"`
	Roles           []string `json:"roles,omitempty" yaml:"roles,omitempty" mapstructure:"roles"`
	Excludes        []string `json:"excludes,omitempty" yaml:"excludes,omitempty" mapstructure:"excludes"`
	Signals         []string `json:"signals,omitempty" yaml:"signals,omitempty" mapstructure:"signals"`
	GoogleRatingMax *float64 `json:"googleRatingMax,omitempty" yaml:"googleRatingMax,omitempty" mapstructure:"googleRatingMax"`
}

// Features are the observations extracted from a prospect page.
type Features struct {
	Country       string   `json:"country,omitempty" yaml:"country,omitempty"`
	SectorText    string   `json:"sectorText,omitempty" yaml:"sectorText,omitempty"`
	EmployeeCount *float64 `json:"employeeCount,omitempty" yaml:"employeeCount,omitempty"`
	WebsiteURL    string   `json:"websiteUrl,omitempty" yaml:"websiteUrl,omitempty"`
	Technologies  []string `json:"technologies,omitempty" yaml:"technologies,omitempty"`
	GoogleRating  *float64 `json:"googleRating,omitempty" yaml:"googleRating,omitempty"`
	TextBlob      string   `json:"textBlob,omitempty" yaml:"textBlob,omitempty"`
	// RoleText holds a page headline (LinkedIn). Only profile-weighted scoring reads it.
	RoleText string `json:"roleText,omitempty" yaml:"roleText,omitempty"`
}

// ScoreResult is the outcome of a scoring call.
type ScoreResult struct {
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// AIAssessment is the normalized answer of the AI scoring collaborator.
type AIAssessment struct {
	Score   float64  `json:"score_ai"`
	Reasons []string `json:"reasons_ai"`
	Labels  []string `json:"labels"`
}

// Float returns a pointer to v. Handy for optional numeric fields.
func Float(v float64) *float64 {
	return &v
}
