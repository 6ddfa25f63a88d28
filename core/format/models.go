package format

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gymhub/contentdesk/core"
)

// Format types
const (
	TypePhoto    = "photo"
	TypeVideo    = "video"
	TypeCarousel = "carousel"
	TypeReel     = "reel"
	TypeStory    = "story"
)

var AllTypes = []string{TypePhoto, TypeVideo, TypeCarousel, TypeReel, TypeStory}

// Format is a required content type of the catalog, with its own submission quota.
type Format struct {
	ID             string    `json:"id"`
	Key            string    `json:"format_key"`
	Title          string    `json:"title"`
	Type           string    `json:"format_type"`
	Dimensions     string    `json:"dimensions"`
	Duration       string    `json:"duration"`
	TotalRequired  int       `json:"total_required"`
	SetupPlanning  string    `json:"setup_planning"`
	ProductionTips string    `json:"production_tips"`
	Examples       []string  `json:"examples"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

// AcceptsPhotos reports whether photo files may be submitted for the format.
func (f Format) AcceptsPhotos() bool {
	return f.Type == TypePhoto || f.Type == TypeCarousel || f.Type == TypeStory
}

// AcceptsVideos reports whether video files may be submitted for the format.
func (f Format) AcceptsVideos() bool {
	return f.Type == TypeVideo || f.Type == TypeReel || f.Type == TypeStory
}

// AllowedExtensions returns the lowercase file extensions (with dot) accepted for the format.
func (f Format) AllowedExtensions(conf core.UploadsConfig) []string {
	exts := make([]string, 0, len(conf.PhotoExtensions)+len(conf.VideoExtensions))
	if f.AcceptsPhotos() {
		exts = append(exts, conf.PhotoExtensions...)
	}
	if f.AcceptsVideos() {
		exts = append(exts, conf.VideoExtensions...)
	}
	return exts
}

// AllowsExtension reports whether ext is in the format's allow-list.
func (f Format) AllowsExtension(ext string, conf core.UploadsConfig) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range f.AllowedExtensions(conf) {
		if strings.ToLower(allowed) == ext {
			return true
		}
	}
	return false
}

// NewFormat contains information needed to add a Format to the catalog.
type NewFormat struct {
	Key            string   `json:"format_key" validate:"required,formatkey"`
	Title          string   `json:"title" validate:"required,notblank"`
	Type           string   `json:"format_type" validate:"required,oneof=photo video carousel reel story"`
	Dimensions     string   `json:"dimensions"`
	Duration       string   `json:"duration"`
	TotalRequired  int      `json:"total_required" validate:"min=1"`
	SetupPlanning  string   `json:"setup_planning"`
	ProductionTips string   `json:"production_tips"`
	Examples       []string `json:"examples"`
}

func (nf *NewFormat) Validate(validate *validator.Validate) error {
	nf.Key = core.CleanString(nf.Key, true /* lower */)
	nf.Title = core.CleanString(nf.Title)
	nf.Type = core.CleanString(nf.Type, true /* lower */)
	nf.Examples = core.CleanStrings(nf.Examples)
	return validate.Struct(nf)
}

// UpdateFormat defines what may be changed on a catalog entry. The key is immutable.
type UpdateFormat struct {
	Title          string   `json:"title"`
	Dimensions     *string  `json:"dimensions"`
	Duration       *string  `json:"duration"`
	TotalRequired  *int     `json:"total_required" validate:"omitempty,min=1"`
	SetupPlanning  *string  `json:"setup_planning"`
	ProductionTips *string  `json:"production_tips"`
	Examples       []string `json:"examples"`
}

func (uf *UpdateFormat) Validate(validate *validator.Validate) error {
	uf.Title = core.CleanString(uf.Title)
	uf.Examples = core.CleanStrings(uf.Examples)
	return validate.Struct(uf)
}

type QueryFilter struct {
	Type string   `query:"type"`
	Keys []string `query:"key"`
}
