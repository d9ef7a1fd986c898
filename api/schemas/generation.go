// File: api/schemas/generation.go
package schemas

// GenerationResult carries a generated phishlet, its canonical YAML
// serialization, and the advisory findings the generator produced.
// Warnings never block use; suggestions are optional improvements.
type GenerationResult struct {
	YAMLContent string   `json:"yaml_content"`
	Phishlet    Phishlet `json:"phishlet"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
}

// ValidationResult is the outcome of validating phishlet YAML text.
// Valid is true exactly when Errors is empty, regardless of warnings.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}
