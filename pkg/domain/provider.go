package domain

const (
	APITypeGemini = "Gemini"
	APITypeOpenAI = "OpenAI"

	DefaultAPIURL = "https://generativelanguage.googleapis.com/v1beta/models"
	DefaultModel  = "gemini-2.5-flash-image"

	// ProImageModel is the only model accepting imageSize and the search tool.
	ProImageModel = "gemini-3-pro-image-preview"
)

type Provider struct {
	Name    string
	APIType string
	APIURL  string
	Model   string
	Keys    []string
	Stream  bool
}

// Defaults are the configured fallbacks for options a prompt does not set.
type Defaults struct {
	MinImages    int
	MaxImages    int
	ReferImages  string
	ImageSize    string
	AspectRatio  string
	GoogleSearch bool
	TextResponse bool
}

// AspectRatioDefault leaves the aspect ratio to the model.
const AspectRatioDefault = "default"
