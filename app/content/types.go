package content

import "errors"

type Kind string

const (
	KindURL   Kind = "url"
	KindImage Kind = "image"
	KindText  Kind = "text"
)

// ErrInvalidInput marks content that cannot be classified or parsed.
var ErrInvalidInput = errors.New("invalid input")

// Input is the canonical form of raw user content handed to enrichment.
type Input struct {
	Kind Kind

	URL       string // KindURL
	ImageData string // KindImage, data URI as sent by the client

	// KindText content is wrapped as {title, description}
	Title       string
	Description string
}
