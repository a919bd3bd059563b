package cv

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	DefaultPrimaryColor = "#004f90"
	DefaultFontFamily   = "Source Sans 3"
)

// FontFamilies is the closed set of fonts the typesetter ships.
var FontFamilies = []string{
	"Source Sans 3",
	"Charter",
	"Lato",
	"Raleway",
	"Open Sans",
	"Roboto",
	"EB Garamond",
	"New Computer Modern",
	"Noto Sans",
	"Ubuntu",
	"XCharter",
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// DesignSettings are the user's visual overrides applied on top of a theme.
type DesignSettings struct {
	PrimaryColor string `json:"primaryColor" yaml:"primaryColor"`
	FontFamily   string `json:"fontFamily" yaml:"fontFamily"`
}

// DefaultDesign returns the settings a new session starts with.
func DefaultDesign() DesignSettings {
	return DesignSettings{PrimaryColor: DefaultPrimaryColor, FontFamily: DefaultFontFamily}
}

// Validate checks the color format and font membership. Blank values are
// allowed and mean "use the theme's own".
func (d DesignSettings) Validate() error {
	fonts := make([]any, len(FontFamilies))
	for i, f := range FontFamilies {
		fonts[i] = f
	}
	return validation.ValidateStruct(&d,
		validation.Field(&d.PrimaryColor, validation.Match(hexColor).Error("must be a hex color such as #004f90")),
		validation.Field(&d.FontFamily, validation.In(fonts...).Error("must be a supported font family")),
	)
}

// WithDefaults fills blank values from DefaultDesign.
func (d DesignSettings) WithDefaults() DesignSettings {
	if d.PrimaryColor == "" {
		d.PrimaryColor = DefaultPrimaryColor
	}
	if d.FontFamily == "" {
		d.FontFamily = DefaultFontFamily
	}
	return d
}
