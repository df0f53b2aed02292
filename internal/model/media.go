package model

// MediaType discriminates the payload of a media attachment.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaAudio MediaType = "audio"
	MediaVideo MediaType = "video"
)

// Valid reports whether t is a known media type.
func (t MediaType) Valid() bool {
	return t == MediaImage || t == MediaAudio || t == MediaVideo
}

// Media is an opaque attachment (base64 data URI in practice) owned by at
// most one post and deleted together with it. The ID stays server-side; the
// wire shape is {"mediaType": ..., "data": ...}.
type Media struct {
	ID   string    `json:"-"`
	Type MediaType `json:"mediaType"`
	Data string    `json:"data"`
}
