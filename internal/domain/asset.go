package domain

import "time"

type AssetKind string

const (
	AssetPoster AssetKind = "poster"
	AssetReel   AssetKind = "reel"
)

// GeneratedAsset is one finished export. It is never mutated after an
// export pipeline creates it.
type GeneratedAsset struct {
	ID            string
	Kind          AssetKind
	Data          []byte
	ContentType   string
	Ext           string
	Codec         string // negotiated MIME/codec tag, reels only
	Caption       string
	Thumbnail     []byte
	ThumbnailType string
	SourceIndex   int
	CreatedAt     time.Time
}

// Filename returns "<id>.<ext>".
func (a GeneratedAsset) Filename() string {
	return a.ID + "." + a.Ext
}
