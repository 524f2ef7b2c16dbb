package render

// SlideAsset references one rendered slide image. The locationRef is either
// an http(s) URL or an object-storage key; slideIndex is the stable ordering
// key for the whole pipeline.
type SlideAsset struct {
	LocationRef string `bson:"location_ref" json:"location_ref" binding:"required"`
	SlideIndex  int    `bson:"slide_index" json:"slide_index"`
}

// AudioAsset references the narration clip belonging to one slide. Exactly
// one clip per slide index.
type AudioAsset struct {
	LocationRef string `bson:"location_ref" json:"location_ref" binding:"required"`
	SlideIndex  int    `bson:"slide_index" json:"slide_index"`
	DurationMs  int64  `bson:"duration_ms" json:"duration_ms"`
}

// RenderRequest is the immutable input to one render. Slides and audio must
// pair 1:1 by slide index; overlay date is the briefing date burned into the
// frame, formatted per the configured locale.
type RenderRequest struct {
	Slides      []SlideAsset `bson:"slides" json:"slides" binding:"required"`
	Audio       []AudioAsset `bson:"audio" json:"audio" binding:"required"`
	Orientation Orientation  `bson:"orientation" json:"orientation" binding:"required"`
	OverlayDate string       `bson:"overlay_date" json:"overlay_date" binding:"required"` // YYYY-MM-DD
}
