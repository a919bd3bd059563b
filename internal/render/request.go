// Package render is the client for the remote typesetting service: preview
// images, downloadable documents and AI text suggestions.
package render

import (
	"cvstudio/internal/cv"
)

// Format is the output the typesetter produces.
type Format string

const (
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

// Request is the typesetter's render payload.
type Request struct {
	CVData         cv.Document       `json:"cv_data"`
	Theme          cv.Theme          `json:"theme"`
	Format         Format            `json:"format"`
	DesignSettings cv.DesignSettings `json:"design_settings"`
	SectionOrder   []cv.Section      `json:"section_order"`
}

// NewRequest snapshots doc for rendering. The copy has markdown bold
// stripped from the name and carries the theme's section order.
func NewRequest(doc cv.Document, theme cv.Theme, design cv.DesignSettings, format Format) Request {
	snapshot := doc.Clone()
	snapshot.Name = cv.StripBold(snapshot.Name)
	return Request{
		CVData:         snapshot,
		Theme:          theme,
		Format:         format,
		DesignSettings: design,
		SectionOrder:   theme.SectionOrder(),
	}
}

// Document is a downloaded render.
type Document struct {
	Data        []byte
	Filename    string
	ContentType string
}
