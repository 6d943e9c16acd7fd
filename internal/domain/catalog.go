package domain

// Function is a reference entry for one built-in.
type Function struct {
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description" yaml:"description"`
	Syntax       string   `json:"syntax" yaml:"syntax"`
	Example      string   `json:"example" yaml:"example"`
	CommonErrors []string `json:"commonErrors" yaml:"common_errors"`
	Tip          string   `json:"tips" yaml:"tip"`
}

// Library describes a standard or third-party library.
type Library struct {
	Name           string   `json:"name" yaml:"name"`
	Description    string   `json:"description" yaml:"description"`
	Category       string   `json:"category" yaml:"category"`
	IsStandard     bool     `json:"isStandard" yaml:"standard"`
	InstallCommand string   `json:"installCommand,omitempty" yaml:"install,omitempty"`
	KeyFeatures    []string `json:"keyFeatures" yaml:"key_features"`
	Example        string   `json:"example" yaml:"example"`
}

// Topic is one lesson of the knowledge base. Content may embed fenced
// python blocks.
type Topic struct {
	ID       string `json:"id" yaml:"id"`
	Category string `json:"category" yaml:"category"`
	Title    string `json:"title" yaml:"title"`
	Content  string `json:"content" yaml:"content"`
}
